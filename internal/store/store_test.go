package store_test

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartikkumbhar150/epinova-field-sync/internal/report"
	"github.com/kartikkumbhar150/epinova-field-sync/internal/store"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()

	s := store.New(slog.Default(), filepath.Join(t.TempDir(), "pending.db"))
	require.NoError(t, s.Init(context.Background()), "Setup: store should initialize")
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleReport(patient string) report.PendingReport {
	r := report.New()
	r.PatientName = patient
	r.AgeGroup = "19-45"
	r.Symptoms = []string{"diarrhea", "vomiting"}
	r.OnsetDate = "2026-08-20"
	r.Severity = report.SeveritySevere
	r.Description = "suspected cholera cluster"
	r.WaterSource = "community well"
	r.ReportedBy = "chw-017"
	r.ReportedByName = "R. Gurung"
	return r
}

func TestInitIsIdempotent(t *testing.T) {
	t.Parallel()

	s := store.New(slog.Default(), filepath.Join(t.TempDir(), "pending.db"))
	require.NoError(t, s.Init(context.Background()))
	require.NoError(t, s.Init(context.Background()), "second Init should be a no-op")
	defer s.Close()
}

func TestInitCreatesParentDirs(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "deeper", "pending.db")
	s := store.New(slog.Default(), path)
	require.NoError(t, s.Init(context.Background()))
	defer s.Close()
}

func TestUninitializedStoreFails(t *testing.T) {
	t.Parallel()

	s := store.New(slog.Default(), filepath.Join(t.TempDir(), "pending.db"))
	_, err := s.ListAll(context.Background())
	require.ErrorIs(t, err, store.ErrStorageFault)
}

func TestInsertRoundTrip(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	in := sampleReport("Asha Devi")
	in.Location = &report.Coordinates{Latitude: 27.71, Longitude: 85.32, Accuracy: 12.5}

	id, err := s.Insert(context.Background(), in)
	require.NoError(t, err)
	require.Positive(t, id)

	got, err := s.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)

	out := got[0]
	assert.Equal(t, id, out.LocalID)
	assert.Equal(t, in.UID, out.UID)
	assert.Equal(t, in.PatientName, out.PatientName)
	assert.Equal(t, in.AgeGroup, out.AgeGroup)
	assert.Equal(t, in.Symptoms, out.Symptoms)
	assert.Equal(t, in.OnsetDate, out.OnsetDate)
	assert.Equal(t, in.Severity, out.Severity)
	assert.Equal(t, in.Description, out.Description)
	assert.Equal(t, in.WaterSource, out.WaterSource)
	assert.Equal(t, in.ReportedBy, out.ReportedBy)
	assert.Equal(t, in.ReportedByName, out.ReportedByName)
	assert.Equal(t, in.ClientTimestamp, out.ClientTimestamp)
	require.NotNil(t, out.Location)
	assert.InDelta(t, 27.71, out.Location.Latitude, 1e-9)
	assert.InDelta(t, 85.32, out.Location.Longitude, 1e-9)
	assert.InDelta(t, 12.5, out.Location.Accuracy, 1e-9)
}

func TestInsertWithoutLocation(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	_, err := s.Insert(context.Background(), sampleReport("Asha Devi"))
	require.NoError(t, err)

	got, err := s.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].Location, "absent GPS fix should round-trip as nil")
}

func TestListAllOrdersByInsertion(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	for _, patient := range []string{"first", "second", "third"} {
		_, err := s.Insert(context.Background(), sampleReport(patient))
		require.NoError(t, err, "Setup: insert should succeed")
	}

	got, err := s.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "first", got[0].PatientName)
	assert.Equal(t, "second", got[1].PatientName)
	assert.Equal(t, "third", got[2].PatientName)
	assert.Less(t, got[0].LocalID, got[1].LocalID)
	assert.Less(t, got[1].LocalID, got[2].LocalID)
}

func TestDeleteByID(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	id, err := s.Insert(context.Background(), sampleReport("Asha Devi"))
	require.NoError(t, err, "Setup: insert should succeed")

	require.NoError(t, s.DeleteByID(context.Background(), id))

	count, err := s.CountPending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)

	// Deleting an absent record is not an error.
	require.NoError(t, s.DeleteByID(context.Background(), id))
	require.NoError(t, s.DeleteByID(context.Background(), 424242))
}

func TestCountPending(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	count, err := s.CountPending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count, "fresh store should be empty")

	for i := 0; i < 5; i++ {
		_, err := s.Insert(context.Background(), sampleReport("patient"))
		require.NoError(t, err, "Setup: insert should succeed")
	}

	count, err = s.CountPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestQuarantineAfterThreshold(t *testing.T) {
	t.Parallel()

	const threshold = 3

	s := newStore(t)
	id, err := s.Insert(context.Background(), sampleReport("Asha Devi"))
	require.NoError(t, err, "Setup: insert should succeed")

	for i := 1; i < threshold; i++ {
		quarantined, err := s.MarkPermanentRejection(context.Background(), id, threshold)
		require.NoError(t, err)
		assert.False(t, quarantined, "rejection %d of %d should not quarantine", i, threshold)
	}

	quarantined, err := s.MarkPermanentRejection(context.Background(), id, threshold)
	require.NoError(t, err)
	assert.True(t, quarantined, "rejection %d should quarantine", threshold)

	// Quarantined reports are invisible to sync passes.
	pending, err := s.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pending)

	count, err := s.CountPending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)

	held, err := s.ListQuarantined(context.Background())
	require.NoError(t, err)
	require.Len(t, held, 1)
	assert.Equal(t, id, held[0].LocalID)
	assert.Equal(t, threshold, held[0].PermanentRejections)
}

func TestQuarantineDisabled(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	id, err := s.Insert(context.Background(), sampleReport("Asha Devi"))
	require.NoError(t, err, "Setup: insert should succeed")

	for i := 0; i < 10; i++ {
		quarantined, err := s.MarkPermanentRejection(context.Background(), id, 0)
		require.NoError(t, err)
		assert.False(t, quarantined, "threshold 0 should never quarantine")
	}

	pending, err := s.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 10, pending[0].PermanentRejections)
}

func TestReleaseQuarantined(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	id, err := s.Insert(context.Background(), sampleReport("Asha Devi"))
	require.NoError(t, err, "Setup: insert should succeed")
	quarantined, err := s.MarkPermanentRejection(context.Background(), id, 1)
	require.NoError(t, err, "Setup: rejection should succeed")
	require.True(t, quarantined, "Setup: report should be quarantined")

	require.NoError(t, s.ReleaseQuarantined(context.Background(), id))

	pending, err := s.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1, "released report should be pending again")
	assert.Zero(t, pending[0].PermanentRejections, "release should reset the rejection count")

	// Releasing a report that is not quarantined is an error.
	require.ErrorIs(t, s.ReleaseQuarantined(context.Background(), id), store.ErrNotQuarantined)
	require.ErrorIs(t, s.ReleaseQuarantined(context.Background(), 424242), store.ErrNotQuarantined)
}

func TestDiscardQuarantined(t *testing.T) {
	t.Parallel()

	s := newStore(t)
	id, err := s.Insert(context.Background(), sampleReport("Asha Devi"))
	require.NoError(t, err, "Setup: insert should succeed")

	// Pending reports cannot be discarded through the quarantine path.
	require.ErrorIs(t, s.DiscardQuarantined(context.Background(), id), store.ErrNotQuarantined)

	quarantined, err := s.MarkPermanentRejection(context.Background(), id, 1)
	require.NoError(t, err, "Setup: rejection should succeed")
	require.True(t, quarantined, "Setup: report should be quarantined")

	require.NoError(t, s.DiscardQuarantined(context.Background(), id))

	held, err := s.ListQuarantined(context.Background())
	require.NoError(t, err)
	assert.Empty(t, held)
}

func TestPersistenceAcrossReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "pending.db")

	s := store.New(slog.Default(), path)
	require.NoError(t, s.Init(context.Background()), "Setup: store should initialize")
	in := sampleReport("Asha Devi")
	_, err := s.Insert(context.Background(), in)
	require.NoError(t, err, "Setup: insert should succeed")
	require.NoError(t, s.Close())

	s = store.New(slog.Default(), path)
	require.NoError(t, s.Init(context.Background()))
	defer s.Close()

	got, err := s.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1, "reports should survive process restarts")
	assert.Equal(t, in.UID, got[0].UID)
}

func TestCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	s := store.New(slog.Default(), filepath.Join(t.TempDir(), "pending.db"))
	require.NoError(t, s.Init(context.Background()))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}
