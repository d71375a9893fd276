// Package syncer implements the sync orchestrator component.
//
// The orchestrator owns the online/offline state machine and the periodic
// sync timer, and drains the pending report queue record-by-record with
// bounded retry and exponential backoff. Exactly one sync pass runs at a
// time; triggers arriving while a pass is in flight are rejected with a
// "busy" result, never queued.
package syncer

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kartikkumbhar150/epinova-field-sync/internal/constants"
	"github.com/kartikkumbhar150/epinova-field-sync/internal/report"
	"github.com/kartikkumbhar150/epinova-field-sync/internal/submit"
)

// ReportStore is the part of the durable store the orchestrator drains.
type ReportStore interface {
	ListAll(ctx context.Context) ([]report.PendingReport, error)
	DeleteByID(ctx context.Context, id int64) error
	MarkPermanentRejection(ctx context.Context, id int64, threshold int) (quarantined bool, err error)
}

// Prober confirms actual internet usability before network work is committed.
type Prober interface {
	ProbeReachability(ctx context.Context, timeout time.Duration) bool
}

// Submitter delivers one report to the remote service.
type Submitter interface {
	Submit(ctx context.Context, r report.PendingReport) submit.Result
}

// Config holds the orchestrator tuning parameters.
// Zero values are replaced with the application defaults.
type Config struct {
	SyncInterval        time.Duration
	MaxAttempts         int
	BaseRetryPeriod     time.Duration
	ProbeTimeout        time.Duration
	PreflightTimeout    time.Duration
	QuarantineThreshold int
}

func (c *Config) setDefaults() {
	if c.SyncInterval <= 0 {
		c.SyncInterval = constants.DefaultSyncInterval
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = constants.DefaultMaxAttempts
	}
	if c.BaseRetryPeriod <= 0 {
		c.BaseRetryPeriod = constants.DefaultBaseRetryPeriod
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = constants.DefaultProbeTimeout
	}
	if c.PreflightTimeout <= 0 {
		c.PreflightTimeout = constants.DefaultPreflightTimeout
	}
	if c.QuarantineThreshold == 0 {
		c.QuarantineThreshold = constants.DefaultQuarantineThreshold
	}
}

// Result is the aggregate outcome of one sync pass trigger. Success means
// the pass executed, not that every record synced: partial failure is a
// normal outcome reported through the counts.
type Result struct {
	Success bool
	Message string
	Synced  int
	Failed  int
}

// Orchestrator schedules and runs sync passes.
type Orchestrator struct {
	log       *slog.Logger
	store     ReportStore
	prober    Prober
	submitter Submitter
	cfg       Config

	sleep func(ctx context.Context, d time.Duration)

	// syncing is the sole mutual exclusion for sync passes.
	syncing atomic.Bool

	mu         sync.Mutex
	online     bool
	tickerStop chan struct{}
	tickerDone chan struct{}
}

type options struct {
	// Private members exported for tests.
	sleep func(ctx context.Context, d time.Duration)
}

// Options represents an optional function to override Orchestrator default values.
type Options func(*options)

// New returns an Orchestrator draining store through submitter.
// The network sub-state starts offline until SetOnline or HandleNetworkChange
// reports otherwise.
func New(l *slog.Logger, store ReportStore, prober Prober, submitter Submitter, cfg Config, args ...Options) *Orchestrator {
	cfg.setDefaults()

	opts := options{
		sleep: sleepCtx,
	}
	for _, opt := range args {
		opt(&opts)
	}

	return &Orchestrator{
		log:       l,
		store:     store,
		prober:    prober,
		submitter: submitter,
		cfg:       cfg,
		sleep:     opts.sleep,
	}
}

// Online reports the current network sub-state.
func (o *Orchestrator) Online() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.online
}

// Syncing reports whether a sync pass is currently in flight.
func (o *Orchestrator) Syncing() bool {
	return o.syncing.Load()
}

// SetOnline sets the network sub-state without triggering a sync pass,
// starting or stopping the periodic timer to match. Used to seed the initial
// state at startup.
func (o *Orchestrator) SetOnline(online bool) {
	o.mu.Lock()
	o.online = online
	o.mu.Unlock()

	if online {
		o.startPeriodic()
	} else {
		o.stopPeriodic()
	}
}

// HandleNetworkChange processes a connectivity transition. An offline to
// online transition triggers an immediate sync attempt and starts the
// periodic timer; going offline stops the timer but never cancels an
// in-flight pass, which is left to fail naturally on its own network calls.
// Duplicate same-state notifications are tolerated.
func (o *Orchestrator) HandleNetworkChange(connected bool) {
	o.mu.Lock()
	wasOnline := o.online
	o.online = connected
	o.mu.Unlock()

	if !connected {
		if wasOnline {
			o.log.Info("Network lost, periodic sync suspended")
		}
		o.stopPeriodic()
		return
	}

	o.startPeriodic()
	if !wasOnline {
		o.log.Info("Network restored, starting sync")
		go func() {
			res := o.Sync(context.Background())
			if !res.Success {
				o.log.Debug("Reconnection sync did not run", "message", res.Message)
			}
		}()
	}
}

// startPeriodic starts the fixed-interval sync timer. Repeated starts do not
// create duplicate timers.
func (o *Orchestrator) startPeriodic() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.tickerStop != nil {
		return
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	o.tickerStop, o.tickerDone = stop, done

	o.log.Debug("Periodic sync started", "interval", o.cfg.SyncInterval)
	go func() {
		defer close(done)
		ticker := time.NewTicker(o.cfg.SyncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				res := o.Sync(context.Background())
				if !res.Success {
					o.log.Debug("Periodic sync did not run", "message", res.Message)
				}
			}
		}
	}()
}

// stopPeriodic stops the periodic sync timer. It is idempotent.
func (o *Orchestrator) stopPeriodic() {
	o.mu.Lock()
	if o.tickerStop == nil {
		o.mu.Unlock()
		return
	}
	stop, done := o.tickerStop, o.tickerDone
	o.tickerStop, o.tickerDone = nil, nil
	o.mu.Unlock()

	close(stop)
	<-done
	o.log.Debug("Periodic sync stopped")
}

// Shutdown stops the periodic timer. An in-flight pass is not interrupted.
func (o *Orchestrator) Shutdown() {
	o.stopPeriodic()
}

func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
