// Package submit implements the remote submission client component.
//
// The client sends one disease report per call to the submission service and
// reduces every failure mode to a structured result: transient failures
// (no response, timeout, 5xx) are worth retrying, permanent rejections
// (validation, 4xx) are not. Submit never panics and never returns an error;
// the orchestrator branches on the result alone.
package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"sync"

	"github.com/kartikkumbhar150/epinova-field-sync/internal/constants"
	"github.com/kartikkumbhar150/epinova-field-sync/internal/report"
)

// Result is the structured outcome of one submission attempt.
type Result struct {
	// Success is true when the service acknowledged the report (2xx).
	Success bool
	// Transient distinguishes failures worth retrying (network, 5xx) from
	// permanent rejections (validation, 4xx). Meaningless when Success.
	Transient bool
	// StatusCode is the HTTP status, 0 when no response was received.
	StatusCode int
	// Error describes the failure, empty on success.
	Error string
}

// Client submits reports to the remote service.
type Client struct {
	log  *slog.Logger
	http *http.Client

	mu      sync.Mutex
	baseURL string
}

type options struct {
	// Private members exported for tests.
	httpClient *http.Client
}

// Options represents an optional function to override Client default values.
type Options func(*options)

// New returns a Client posting to the service at baseURL.
func New(l *slog.Logger, baseURL string, args ...Options) *Client {
	opts := options{
		httpClient: &http.Client{},
	}
	for _, opt := range args {
		opt(&opts)
	}

	return &Client{log: l, http: opts.httpClient, baseURL: baseURL}
}

// SetBaseURL replaces the submission service base URL.
func (c *Client) SetBaseURL(u string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseURL = u
}

type payload struct {
	PatientName      string   `json:"patient_name"`
	AgeGroup         string   `json:"age_group"`
	Latitude         *float64 `json:"latitude"`
	Longitude        *float64 `json:"longitude"`
	LocationAccuracy *float64 `json:"location_accuracy"`
	Symptoms         []string `json:"symptoms"`
	OnsetDate        string   `json:"onset_date"`
	Severity         string   `json:"severity"`
	Description      string   `json:"description"`
	WaterSource      string   `json:"water_source"`
	ReportedBy       string   `json:"reported_by"`
}

// Submit performs one network call carrying the report payload.
func (c *Client) Submit(ctx context.Context, r report.PendingReport) Result {
	// A malformed record will never be accepted no matter how often it is
	// re-sent, so local validation failures classify as permanent.
	if err := r.Validate(); err != nil {
		return Result{Transient: false, Error: err.Error()}
	}

	u, err := c.submitURL()
	if err != nil {
		return Result{Transient: false, Error: err.Error()}
	}

	body, err := json.Marshal(buildPayload(r))
	if err != nil {
		return Result{Transient: false, Error: fmt.Sprintf("failed to marshal report: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewBuffer(body))
	if err != nil {
		return Result{Transient: false, Error: fmt.Sprintf("failed to create request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	// Redelivery of the same record is expected under at-least-once; the UID
	// lets the server deduplicate.
	req.Header.Set("X-Report-UID", r.UID)

	c.log.Debug("Submitting report", "uid", r.UID, "url", u)

	resp, err := c.http.Do(req)
	if err != nil {
		// No response at all: network-level failure.
		return Result{Transient: true, Error: fmt.Sprintf("failed to send HTTP request: %v", err)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		_, _ = io.Copy(io.Discard, resp.Body)
		return Result{Success: true, StatusCode: resp.StatusCode}
	case resp.StatusCode >= 500:
		return Result{Transient: true, StatusCode: resp.StatusCode,
			Error: fmt.Sprintf("server error: %s", responseError(resp))}
	default:
		return Result{Transient: false, StatusCode: resp.StatusCode,
			Error: fmt.Sprintf("rejected by server: %s", responseError(resp))}
	}
}

func (c *Client) submitURL() (string, error) {
	c.mu.Lock()
	base := c.baseURL
	c.mu.Unlock()

	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("failed to parse base server URL %s: %v", base, err)
	}
	u.Path = path.Join(u.Path, constants.SubmitPath)
	return u.String(), nil
}

func buildPayload(r report.PendingReport) payload {
	p := payload{
		PatientName: r.PatientName,
		AgeGroup:    r.AgeGroup,
		Symptoms:    r.Symptoms,
		OnsetDate:   r.OnsetDate,
		Severity:    string(r.Severity),
		Description: r.Description,
		WaterSource: r.WaterSource,
		ReportedBy:  r.ReportedBy,
	}
	if r.Location != nil {
		p.Latitude = &r.Location.Latitude
		p.Longitude = &r.Location.Longitude
		p.LocationAccuracy = &r.Location.Accuracy
	}
	return p
}

// responseError extracts the error message from a failure response body,
// falling back to the HTTP status text.
func responseError(resp *http.Response) string {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<12))
	if err == nil {
		var parsed struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if jsonErr := json.Unmarshal(body, &parsed); jsonErr == nil {
			if parsed.Error != "" {
				return parsed.Error
			}
			if parsed.Message != "" {
				return parsed.Message
			}
		}
	}
	return fmt.Sprintf("status %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
}
