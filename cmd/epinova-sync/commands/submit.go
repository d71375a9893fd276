package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/kartikkumbhar150/epinova-field-sync/internal/identity"
	"github.com/kartikkumbhar150/epinova-field-sync/internal/report"
	"github.com/kartikkumbhar150/epinova-field-sync/internal/store"
)

// submitConfig holds the flags of the submit command.
type submitConfig struct {
	PatientName string
	AgeGroup    string
	Symptoms    []string
	OnsetDate   string
	Severity    string
	Description string
	WaterSource string

	Latitude  float64
	Longitude float64
	Accuracy  float64

	ReporterID   string
	ReporterName string

	SyncNow bool
}

func installSubmitCmd(app *App) {
	submitCmd := &cobra.Command{
		Use:   "submit",
		Short: "Record a disease report in the local queue",
		Long: `Record a disease report in the local queue.

The report is persisted immediately and delivered by the next sync pass.
With --sync-now a pass is attempted right away; the report stays queued if
the service is unreachable.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			hasFix := cmd.Flags().Changed("latitude") || cmd.Flags().Changed("longitude")
			return app.submitReport(cmd.Context(), hasFix)
		},
	}

	submitCmd.Flags().StringVar(&app.config.Submit.PatientName, "patient-name", "", "name of the patient")
	submitCmd.Flags().StringVar(&app.config.Submit.AgeGroup, "age-group", "", "age group of the patient")
	submitCmd.Flags().StringSliceVar(&app.config.Submit.Symptoms, "symptom", nil, "observed symptom, repeatable")
	submitCmd.Flags().StringVar(&app.config.Submit.OnsetDate, "onset-date", "", "date symptoms first appeared (YYYY-MM-DD)")
	submitCmd.Flags().StringVar(&app.config.Submit.Severity, "severity", string(report.SeverityMild), "case severity: mild, moderate, severe or critical")
	submitCmd.Flags().StringVar(&app.config.Submit.Description, "description", "", "free-form case notes")
	submitCmd.Flags().StringVar(&app.config.Submit.WaterSource, "water-source", "", "suspected water source")
	submitCmd.Flags().Float64Var(&app.config.Submit.Latitude, "latitude", 0, "latitude of the GPS fix")
	submitCmd.Flags().Float64Var(&app.config.Submit.Longitude, "longitude", 0, "longitude of the GPS fix")
	submitCmd.Flags().Float64Var(&app.config.Submit.Accuracy, "accuracy", 0, "accuracy of the GPS fix in meters")
	submitCmd.Flags().StringVar(&app.config.Submit.ReporterID, "reporter-id", "", "reporter ID, defaults to the stored identity profile")
	submitCmd.Flags().StringVar(&app.config.Submit.ReporterName, "reporter-name", "", "reporter display name, defaults to the stored identity profile")
	submitCmd.Flags().BoolVar(&app.config.Submit.SyncNow, "sync-now", false, "attempt a sync pass immediately after queueing")

	app.cmd.AddCommand(submitCmd)
}

func (a *App) submitReport(ctx context.Context, hasFix bool) error {
	c := a.config.Submit

	r := report.New()
	r.PatientName = c.PatientName
	r.AgeGroup = c.AgeGroup
	r.Symptoms = c.Symptoms
	r.OnsetDate = c.OnsetDate
	r.Severity = report.Severity(c.Severity)
	r.Description = c.Description
	r.WaterSource = c.WaterSource
	if hasFix {
		r.Location = &report.Coordinates{
			Latitude:  c.Latitude,
			Longitude: c.Longitude,
			Accuracy:  c.Accuracy,
		}
	}

	r.ReportedBy = c.ReporterID
	r.ReportedByName = c.ReporterName
	if r.ReportedBy == "" {
		p, err := identity.New(slog.Default(), a.config.ProfileDir).Get()
		if err != nil {
			if errors.Is(err, identity.ErrProfileNotFound) {
				return fmt.Errorf("no reporter identity: set one with %q or pass --reporter-id", "epinova-sync identity set")
			}
			return err
		}
		r.ReportedBy = p.UserID
		if r.ReportedByName == "" {
			r.ReportedByName = p.DisplayName
		}
	}

	if err := r.Validate(); err != nil {
		return err
	}

	s := store.New(slog.Default(), a.config.DBPath)
	if err := s.Init(ctx); err != nil {
		return err
	}
	defer s.Close()

	id, err := s.Insert(ctx, r)
	if err != nil {
		return err
	}
	fmt.Printf("Report %s queued (local id %d)\n", r.UID, id)

	if !c.SyncNow {
		return nil
	}

	res := a.newOrchestrator(s).Sync(ctx)
	fmt.Println(res.Message)
	return nil
}
