// Package report defines the disease report record and its encodings.
//
// A PendingReport is a locally persisted submission that has not yet been
// acknowledged by the submission service. Records are create-only: once
// written, the payload is never mutated, and the record is removed only after
// a confirmed successful delivery.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrMissingPatientName is returned when a report has no patient name.
	ErrMissingPatientName = errors.New("patient name is required")
	// ErrMissingAgeGroup is returned when a report has no age group.
	ErrMissingAgeGroup = errors.New("patient age is required")
	// ErrMissingSymptoms is returned when a report has no symptoms.
	ErrMissingSymptoms = errors.New("at least one symptom is required")
	// ErrMissingReporter is returned when a report has no reporter identity.
	ErrMissingReporter = errors.New("reporter ID is required")
	// ErrInvalidSeverity is returned when a report carries an unknown severity level.
	ErrInvalidSeverity = errors.New("unknown severity level")
)

// Severity is the reported severity of a case.
type Severity string

// Severity levels, from least to most severe.
const (
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is a known severity level.
func (s Severity) Valid() bool {
	switch s {
	case SeverityMild, SeverityModerate, SeveritySevere, SeverityCritical:
		return true
	}
	return false
}

// Coordinates is a GPS fix captured at submission time.
// A report carries either a full fix or none at all.
type Coordinates struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64
}

// PendingReport is a disease report awaiting delivery to the submission
// service.
type PendingReport struct {
	// LocalID is assigned by the durable store; monotonic, never reused.
	LocalID int64
	// UID is a client-assigned identifier carried to the server so that
	// at-least-once redelivery can be deduplicated.
	UID string

	PatientName    string
	AgeGroup       string
	Location       *Coordinates
	Symptoms       []string
	OnsetDate      string
	Severity       Severity
	Description    string
	WaterSource    string
	ReportedBy     string
	ReportedByName string

	// ClientTimestamp is the creation time assigned by the submitting device,
	// in RFC 3339 format.
	ClientTimestamp string

	// PermanentRejections counts 4xx/validation rejections accumulated across
	// sync passes. It is sync bookkeeping, not part of the payload.
	PermanentRejections int
}

// New returns a PendingReport with a fresh UID and the client timestamp set
// to now. The caller fills in the payload fields.
func New() PendingReport {
	return PendingReport{
		UID:             uuid.New().String(),
		ClientTimestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// Validate checks the fields the submission service requires. A failing
// report is a malformed record, not a network condition: re-sending it
// unchanged will never succeed.
func (r PendingReport) Validate() error {
	if r.PatientName == "" {
		return ErrMissingPatientName
	}
	if r.AgeGroup == "" {
		return ErrMissingAgeGroup
	}
	if len(r.Symptoms) == 0 {
		return ErrMissingSymptoms
	}
	if r.ReportedBy == "" {
		return ErrMissingReporter
	}
	if r.Severity != "" && !r.Severity.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidSeverity, r.Severity)
	}
	return nil
}

// EncodeSymptoms serializes the symptom codes for storage.
func EncodeSymptoms(symptoms []string) (string, error) {
	if symptoms == nil {
		return "", nil
	}
	data, err := json.Marshal(symptoms)
	if err != nil {
		return "", fmt.Errorf("failed to encode symptoms: %v", err)
	}
	return string(data), nil
}

// DecodeSymptoms deserializes symptom codes from their stored encoding.
func DecodeSymptoms(encoded string) ([]string, error) {
	if encoded == "" {
		return nil, nil
	}
	var symptoms []string
	if err := json.Unmarshal([]byte(encoded), &symptoms); err != nil {
		return nil, fmt.Errorf("failed to decode symptoms: %v", err)
	}
	return symptoms, nil
}
