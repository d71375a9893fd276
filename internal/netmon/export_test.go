package netmon

import (
	"net/http"
	"time"
)

// WithLinkState sets the link-layer state function for the monitor.
func WithLinkState(f func() bool) Options {
	return func(o *options) {
		o.linkState = f
	}
}

// WithPollInterval sets the link-layer polling interval for the monitor.
func WithPollInterval(d time.Duration) Options {
	return func(o *options) {
		o.pollInterval = d
	}
}

// WithHTTPClient sets the HTTP client used for reachability probes.
func WithHTTPClient(c *http.Client) Options {
	return func(o *options) {
		o.httpClient = c
	}
}
