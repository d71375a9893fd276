package submit

import "net/http"

// WithHTTPClient sets the HTTP client used for submissions.
func WithHTTPClient(c *http.Client) Options {
	return func(o *options) {
		o.httpClient = c
	}
}
