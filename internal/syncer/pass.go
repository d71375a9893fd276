package syncer

import (
	"context"
	"fmt"

	"github.com/kartikkumbhar150/epinova-field-sync/internal/report"
)

// Sync runs one sync pass: timer ticks, reconnection events, and manual
// triggers all share this code path and its mutual-exclusion flag.
//
// Records are processed oldest first. Within a pass each record gets a
// bounded number of delivery attempts with exponential backoff between
// transient failures; a failed cheap preflight abandons the record for this
// pass without consuming its budget. Records are deleted from the store only
// after a confirmed successful delivery, never on failure.
func (o *Orchestrator) Sync(ctx context.Context) Result {
	if !o.Online() {
		o.log.Debug("Cannot sync, device is offline")
		return Result{Message: "offline"}
	}

	if !o.syncing.CompareAndSwap(false, true) {
		o.log.Debug("Sync already in progress")
		return Result{Message: "busy"}
	}
	defer o.syncing.Store(false)

	// Link-layer "connected" can be true while DNS or routing is still
	// converging; probe before touching any records.
	if !o.prober.ProbeReachability(ctx, o.cfg.ProbeTimeout) {
		o.log.Warn("Connectivity preflight failed, aborting sync pass")
		return Result{Message: "preflight failed"}
	}

	reports, err := o.store.ListAll(ctx)
	if err != nil {
		o.log.Error("Failed to read pending reports", "error", err)
		return Result{Message: fmt.Sprintf("failed to read pending reports: %v", err)}
	}
	if len(reports) == 0 {
		o.log.Debug("No pending reports to sync")
		return Result{Success: true, Message: "no pending reports"}
	}

	o.log.Info("Starting sync pass", "pending", len(reports))

	var synced, failed int
	for _, r := range reports {
		if o.syncOne(ctx, r) {
			synced++
		} else {
			failed++
		}
	}

	o.log.Info("Sync pass completed", "synced", synced, "failed", failed)
	return Result{
		Success: true,
		Message: fmt.Sprintf("synced %d reports", synced),
		Synced:  synced,
		Failed:  failed,
	}
}

// syncOne attempts to deliver a single report, returning whether it was
// acknowledged and removed from the store.
func (o *Orchestrator) syncOne(ctx context.Context, r report.PendingReport) bool {
	for attempt := 1; attempt <= o.cfg.MaxAttempts; attempt++ {
		// Cheap preflight before each attempt avoids burning the budget on
		// immediate DNS errors; the record simply waits for a later pass.
		if !o.prober.ProbeReachability(ctx, o.cfg.PreflightTimeout) {
			o.log.Warn("Preflight failed, abandoning report for this pass", "id", r.LocalID, "attempt", attempt)
			return false
		}

		res := o.submitter.Submit(ctx, r)
		if res.Success {
			o.log.Info("Report synced", "id", r.LocalID, "attempt", attempt)
			if err := o.store.DeleteByID(ctx, r.LocalID); err != nil {
				// The record will be re-sent next pass; the server dedupes on
				// the report UID, so at-least-once still holds.
				o.log.Error("Failed to delete synced report, it will be re-sent", "id", r.LocalID, "error", err)
			}
			return true
		}

		if !res.Transient {
			o.log.Warn("Report permanently rejected, not retrying", "id", r.LocalID, "status", res.StatusCode, "error", res.Error)
			quarantined, err := o.store.MarkPermanentRejection(ctx, r.LocalID, o.cfg.QuarantineThreshold)
			if err != nil {
				o.log.Error("Failed to record permanent rejection", "id", r.LocalID, "error", err)
			} else if quarantined {
				o.log.Warn("Report moved to quarantine", "id", r.LocalID)
			}
			return false
		}

		o.log.Warn("Failed to sync report", "id", r.LocalID, "attempt", attempt, "error", res.Error)
		if attempt < o.cfg.MaxAttempts {
			delay := o.cfg.BaseRetryPeriod << attempt
			o.log.Debug("Waiting before next attempt", "id", r.LocalID, "delay", delay)
			o.sleep(ctx, delay)
		}
	}

	o.log.Info("Report not synced after exhausting attempts, will retry next pass", "id", r.LocalID)
	return false
}
