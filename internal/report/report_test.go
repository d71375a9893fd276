package report_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartikkumbhar150/epinova-field-sync/internal/report"
)

func TestNew(t *testing.T) {
	t.Parallel()

	r1 := report.New()
	r2 := report.New()

	require.NotEmpty(t, r1.UID, "New should assign a UID")
	require.NotEqual(t, r1.UID, r2.UID, "UIDs should be unique per report")
	require.NotEmpty(t, r1.ClientTimestamp, "New should assign a client timestamp")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() report.PendingReport {
		r := report.New()
		r.PatientName = "Asha Devi"
		r.AgeGroup = "19-45"
		r.Symptoms = []string{"diarrhea", "vomiting"}
		r.Severity = report.SeverityModerate
		r.ReportedBy = "chw-017"
		return r
	}

	tests := map[string]struct {
		tweak func(*report.PendingReport)

		wantErr error
	}{
		"Valid report passes":               {},
		"Valid report without severity":     {tweak: func(r *report.PendingReport) { r.Severity = "" }},
		"Missing patient name is rejected":  {tweak: func(r *report.PendingReport) { r.PatientName = "" }, wantErr: report.ErrMissingPatientName},
		"Missing age group is rejected":     {tweak: func(r *report.PendingReport) { r.AgeGroup = "" }, wantErr: report.ErrMissingAgeGroup},
		"Nil symptoms are rejected":         {tweak: func(r *report.PendingReport) { r.Symptoms = nil }, wantErr: report.ErrMissingSymptoms},
		"Empty symptom list is rejected":    {tweak: func(r *report.PendingReport) { r.Symptoms = []string{} }, wantErr: report.ErrMissingSymptoms},
		"Missing reporter is rejected":      {tweak: func(r *report.PendingReport) { r.ReportedBy = "" }, wantErr: report.ErrMissingReporter},
		"Unknown severity level is invalid": {tweak: func(r *report.PendingReport) { r.Severity = "apocalyptic" }, wantErr: report.ErrInvalidSeverity},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			r := valid()
			if tc.tweak != nil {
				tc.tweak(&r)
			}

			err := r.Validate()
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestSeverityValid(t *testing.T) {
	t.Parallel()

	assert.True(t, report.SeverityMild.Valid())
	assert.True(t, report.SeverityCritical.Valid())
	assert.False(t, report.Severity("").Valid())
	assert.False(t, report.Severity("MILD").Valid(), "severity levels are case sensitive")
}

func TestSymptomsCodec(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		symptoms []string
	}{
		"Single symptom":              {symptoms: []string{"fever"}},
		"Multiple symptoms":           {symptoms: []string{"diarrhea", "vomiting", "dehydration"}},
		"Symptom with special chars":  {symptoms: []string{`abdominal "cramps", severe`}},
		"Empty list stays empty":      {symptoms: []string{}},
		"Nil list decodes to nothing": {symptoms: nil},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			encoded, err := report.EncodeSymptoms(tc.symptoms)
			require.NoError(t, err, "Setup: symptoms should encode")

			got, err := report.DecodeSymptoms(encoded)
			require.NoError(t, err)
			assert.Equal(t, len(tc.symptoms), len(got))
			for i := range tc.symptoms {
				assert.Equal(t, tc.symptoms[i], got[i])
			}
		})
	}
}

func TestDecodeSymptomsGarbage(t *testing.T) {
	t.Parallel()

	_, err := report.DecodeSymptoms("{not json")
	require.Error(t, err, "garbage input should not decode")
}
