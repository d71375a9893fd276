// Package service wires the durable store, connectivity monitor, submission
// client, and sync orchestrator into one process-wide unit with an
// init/cleanup lifecycle tied to the host application's start and stop.
package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/ubuntu/decorate"

	"github.com/kartikkumbhar150/epinova-field-sync/internal/endpoints"
	"github.com/kartikkumbhar150/epinova-field-sync/internal/netmon"
	"github.com/kartikkumbhar150/epinova-field-sync/internal/report"
	"github.com/kartikkumbhar150/epinova-field-sync/internal/store"
	"github.com/kartikkumbhar150/epinova-field-sync/internal/submit"
	"github.com/kartikkumbhar150/epinova-field-sync/internal/syncer"
)

// Store is the durable store surface the service depends on.
type Store interface {
	Init(ctx context.Context) error
	Close() error
	Insert(ctx context.Context, r report.PendingReport) (int64, error)
	ListAll(ctx context.Context) ([]report.PendingReport, error)
	ListQuarantined(ctx context.Context) ([]report.PendingReport, error)
	DeleteByID(ctx context.Context, id int64) error
	MarkPermanentRejection(ctx context.Context, id int64, threshold int) (bool, error)
	ReleaseQuarantined(ctx context.Context, id int64) error
	DiscardQuarantined(ctx context.Context, id int64) error
	CountPending(ctx context.Context) (int, error)
}

// Monitor is the connectivity monitor surface the service depends on.
type Monitor interface {
	CurrentState() netmon.State
	Subscribe(onChange func(connected bool)) (unsubscribe func())
	ProbeReachability(ctx context.Context, timeout time.Duration) bool
	SetProbeURL(url string)
	Start()
	Stop()
}

// Submitter is the submission client surface the service depends on.
type Submitter interface {
	Submit(ctx context.Context, r report.PendingReport) submit.Result
	SetBaseURL(url string)
}

// Config holds the static configuration of the service.
type Config struct {
	DBPath        string
	ServerURL     string
	ProbeURL      string
	EndpointsFile string

	Sync syncer.Config
}

// Service is the sync service singleton.
type Service struct {
	log *slog.Logger
	cfg Config

	store     Store
	monitor   Monitor
	submitter Submitter
	orch      *syncer.Orchestrator
	endpoints *endpoints.Manager

	mu          sync.Mutex
	initialized bool
	unsubscribe func()
	watchCancel context.CancelFunc
	watchDone   chan struct{}
}

type options struct {
	// Private members exported for tests.
	store     Store
	monitor   Monitor
	submitter Submitter
}

// Options represents an optional function to override Service default values.
type Options func(*options)

// New returns a Service assembled from cfg. Nothing is opened or started
// until Initialize is called.
func New(l *slog.Logger, cfg Config, args ...Options) *Service {
	opts := options{}
	for _, opt := range args {
		opt(&opts)
	}

	if opts.store == nil {
		opts.store = store.New(l, cfg.DBPath)
	}
	if opts.monitor == nil {
		opts.monitor = netmon.New(l, cfg.ProbeURL)
	}
	if opts.submitter == nil {
		opts.submitter = submit.New(l, cfg.ServerURL)
	}

	s := &Service{
		log:       l,
		cfg:       cfg,
		store:     opts.store,
		monitor:   opts.monitor,
		submitter: opts.submitter,
	}
	s.orch = syncer.New(l, s.store, s.monitor, s.submitter, cfg.Sync)

	if cfg.EndpointsFile != "" {
		s.endpoints = endpoints.New(l, cfg.EndpointsFile, func(e endpoints.Endpoints) {
			if e.ServerURL != "" {
				s.submitter.SetBaseURL(e.ServerURL)
			}
			if e.ProbeURL != "" {
				s.monitor.SetProbeURL(e.ProbeURL)
			}
		})
	}

	return s
}

// Initialize brings the service up. The store is initialized first and must
// complete before anything else is wired: that ordering is a strict
// precondition, not a convenience. It then captures the initial network
// state, starts the periodic timer if online, and triggers one sync pass
// regardless (the pass no-ops cleanly if offline).
//
// Store initialization failures are fatal and propagate to the caller; they
// are the only errors Initialize returns.
func (s *Service) Initialize(ctx context.Context) (err error) {
	defer decorate.OnError(&err, "failed to initialize sync service")

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return nil
	}

	if err := s.store.Init(ctx); err != nil {
		return err
	}

	if s.endpoints != nil {
		if err := s.endpoints.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.log.Warn("Failed to load endpoints file, using configured endpoints", "error", err)
		}
		watchCtx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		s.watchCancel, s.watchDone = cancel, done
		go func() {
			defer close(done)
			s.endpoints.Watch(watchCtx)
		}()
	}

	s.unsubscribe = s.monitor.Subscribe(s.orch.HandleNetworkChange)
	s.monitor.Start()

	online := s.monitor.CurrentState().Connected
	if online {
		online = s.monitor.ProbeReachability(ctx, s.cfg.Sync.ProbeTimeout)
	}
	s.orch.SetOnline(online)
	s.log.Info("Sync service initialized", "online", online)

	go func() {
		res := s.orch.Sync(context.Background())
		if !res.Success {
			s.log.Debug("Initial sync did not run", "message", res.Message)
		}
	}()

	s.initialized = true
	return nil
}

// Cleanup tears the service down: the periodic timer is stopped, the monitor
// subscription released, and the store closed. It is idempotent and safe to
// call even if Initialize never completed or was never called.
func (s *Service) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watchCancel != nil {
		s.watchCancel()
		<-s.watchDone
		s.watchCancel, s.watchDone = nil, nil
	}

	s.orch.Shutdown()

	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.monitor.Stop()

	if err := s.store.Close(); err != nil {
		s.log.Warn("Failed to close report store", "error", err)
	}

	s.initialized = false
	s.log.Debug("Sync service cleaned up")
}

// ManualSync triggers one sync pass and returns its aggregate result. It
// never returns an error: "offline" and "busy" are ordinary results.
func (s *Service) ManualSync(ctx context.Context) syncer.Result {
	s.log.Info("Manual sync triggered")
	return s.orch.Sync(ctx)
}

// SubmitReport persists a new report into the pending queue, assigning its
// local id. A store fault here means the submission cannot be saved offline.
func (s *Service) SubmitReport(ctx context.Context, r report.PendingReport) (int64, error) {
	return s.store.Insert(ctx, r)
}

// NetworkStatus reports the orchestrator's network sub-state and whether a
// sync pass is in flight.
func (s *Service) NetworkStatus() (online, syncing bool) {
	return s.orch.Online(), s.orch.Syncing()
}

// PendingCount returns the number of reports awaiting delivery.
func (s *Service) PendingCount(ctx context.Context) (int, error) {
	return s.store.CountPending(ctx)
}

// Quarantine exposes the quarantined records surface of the store.
func (s *Service) Quarantine() Store {
	return s.store
}
