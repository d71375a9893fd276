// Package netmon implements the connectivity monitor component.
//
// The monitor tracks coarse link-layer connectivity (an interface is up) and
// performs short-timeout reachability probes against a well-known endpoint.
// Link-layer "connected" does not mean the internet is usable: DNS or routing
// may still be converging, so the probe is the authoritative check before any
// sync work is committed.
package netmon

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"
)

// State is a snapshot of the platform's network capability.
type State struct {
	// Connected reports link-layer connectivity, not internet usability.
	Connected bool
}

// Monitor watches network capability transitions and probes reachability.
type Monitor struct {
	log  *slog.Logger
	http *http.Client

	pollInterval time.Duration
	linkState    func() bool

	mu        sync.Mutex
	probeURL  string
	connected bool
	stop      chan struct{}
	done      chan struct{}
	subs      map[int]func(connected bool)
	nextSub   int
}

type options struct {
	// Private members exported for tests.
	pollInterval time.Duration
	linkState    func() bool
	httpClient   *http.Client
}

// Options represents an optional function to override Monitor default values.
type Options func(*options)

// New returns a Monitor probing against probeURL.
// The monitor does not watch for transitions until Start is called.
func New(l *slog.Logger, probeURL string, args ...Options) *Monitor {
	opts := options{
		pollInterval: 5 * time.Second,
		linkState:    linkUp,
		httpClient:   &http.Client{},
	}
	for _, opt := range args {
		opt(&opts)
	}

	return &Monitor{
		log:          l,
		http:         opts.httpClient,
		pollInterval: opts.pollInterval,
		linkState:    opts.linkState,
		probeURL:     probeURL,
		connected:    opts.linkState(),
		subs:         make(map[int]func(bool)),
	}
}

// CurrentState returns a best-effort snapshot of link-layer connectivity.
func (m *Monitor) CurrentState() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return State{Connected: m.connected}
}

// Subscribe registers a callback invoked on every capability transition and
// returns an unsubscribe function. Delivery is asynchronous relative to the
// underlying change and is not exactly-once: listeners must tolerate
// duplicate same-state notifications.
func (m *Monitor) Subscribe(onChange func(connected bool)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSub
	m.nextSub++
	m.subs[id] = onChange

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// SetProbeURL replaces the reachability probe endpoint. Operational
// parameter: a blocked probe endpoint can be swapped without restarting.
func (m *Monitor) SetProbeURL(url string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probeURL = url
}

// ProbeReachability issues a minimal request to the probe endpoint and
// reports whether a response arrived within timeout. It never fails with an
// error: any timeout, DNS failure, or abort simply yields false.
func (m *Monitor) ProbeReachability(ctx context.Context, timeout time.Duration) bool {
	m.mu.Lock()
	url := m.probeURL
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		m.log.Debug("Failed to build reachability probe request", "url", url, "error", err)
		return false
	}

	resp, err := m.http.Do(req)
	if err != nil {
		m.log.Debug("Reachability probe failed", "url", url, "error", err)
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	// generate_204 style endpoints answer 204; accept any non-error status as
	// proof that DNS and the HTTP path work.
	return resp.StatusCode >= 200 && resp.StatusCode < 400
}

// Start begins watching for link-layer transitions. It is idempotent.
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stop != nil {
		return
	}
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	go m.watch(m.stop, m.done)
}

// Stop stops watching for transitions. It is idempotent and safe to call on
// a monitor that was never started.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if m.stop == nil {
		m.mu.Unlock()
		return
	}
	stop, done := m.stop, m.done
	m.stop, m.done = nil, nil
	m.mu.Unlock()

	close(stop)
	<-done
}

func (m *Monitor) watch(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.refresh()
		}
	}
}

func (m *Monitor) refresh() {
	connected := m.linkState()

	m.mu.Lock()
	changed := connected != m.connected
	m.connected = connected
	subs := make([]func(bool), 0, len(m.subs))
	for _, cb := range m.subs {
		subs = append(subs, cb)
	}
	m.mu.Unlock()

	if !changed {
		return
	}

	m.log.Info("Network state changed", "connected", connected)
	for _, cb := range subs {
		cb(connected)
	}
}

// linkUp reports whether any non-loopback interface is up.
func linkUp() bool {
	ifaces, err := net.Interfaces()
	if err != nil {
		return false
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if iface.Flags&net.FlagUp != 0 {
			return true
		}
	}
	return false
}
