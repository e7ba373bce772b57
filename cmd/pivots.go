package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leadintel/internal/model"
	"github.com/sells-group/leadintel/internal/pivot"
	"github.com/sells-group/leadintel/pkg/narrative"
)

var pivotsCmd = &cobra.Command{
	Use:   "pivots",
	Short: "Detect underperforming campaigns and raise pivot alerts",
	Long: `Checks call statistics against the pivot rules (low appointment
rate, high rejection rate) and raises alerts with improvement
suggestions. Without --project every active project is checked.

Examples:
  leadintel pivots
  leadintel pivots --project p-1 --draft-note
  leadintel pivots --ack a1b2c3`,
	RunE: runPivots,
}

func init() {
	f := pivotsCmd.Flags()
	f.String("project", "", "check a single project")
	f.String("ack", "", "acknowledge an alert by ID instead of detecting")
	f.Bool("list", false, "list active alerts instead of detecting")
	f.Bool("draft-note", false, "draft a reviewer note for each new alert via the Anthropic API")

	rootCmd.AddCommand(pivotsCmd)
}

func runPivots(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := initMigratedStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	detector := pivot.NewDetector(st, cfg.Pivot)
	projectID, _ := cmd.Flags().GetString("project")

	if ackID, _ := cmd.Flags().GetString("ack"); ackID != "" {
		if err := detector.Acknowledge(ctx, ackID); err != nil {
			return eris.Wrapf(err, "pivots: acknowledge %s", ackID)
		}
		fmt.Printf("Alert %s acknowledged.\n", ackID)
		return nil
	}

	if list, _ := cmd.Flags().GetBool("list"); list {
		if projectID == "" {
			return eris.New("pivots: --list requires --project")
		}
		alerts, err := st.ListPivotAlerts(ctx, projectID, model.AlertActive)
		if err != nil {
			return eris.Wrapf(err, "pivots: list alerts %s", projectID)
		}
		printAlerts(projectID, alerts)
		return nil
	}

	byProject := map[string][]model.PivotAlert{}
	if projectID != "" {
		alerts, err := detector.Detect(ctx, projectID)
		if err != nil {
			return err
		}
		if len(alerts) > 0 {
			byProject[projectID] = alerts
		}
	} else {
		byProject, err = detector.DetectAll(ctx)
		if err != nil {
			return err
		}
	}

	if len(byProject) == 0 {
		fmt.Println("No new alerts.")
		return nil
	}

	draftNote, _ := cmd.Flags().GetBool("draft-note")
	var drafter narrative.Drafter
	if draftNote {
		drafter = narrative.NewDrafter(cfg.Anthropic.Model, cfg.Anthropic.Key)
	}

	for pid, alerts := range byProject {
		printAlerts(pid, alerts)
		if drafter == nil {
			continue
		}
		stats, err := st.CallStats(ctx, pid)
		if err != nil {
			return eris.Wrapf(err, "pivots: call stats %s", pid)
		}
		for _, a := range alerts {
			note, err := drafter.DraftAlertNote(ctx, a, stats)
			if err != nil {
				return eris.Wrapf(err, "pivots: draft note for %s", a.ID)
			}
			fmt.Printf("\nNote for %s:\n%s\n", a.ID, note)
		}
	}
	return nil
}

func printAlerts(projectID string, alerts []model.PivotAlert) {
	fmt.Printf("Project %s: %d alert(s)\n", projectID, len(alerts))
	for _, a := range alerts {
		fmt.Printf("  [%s] %s %s\n", a.Severity, a.ID, pivot.Describe(a))
		for _, s := range a.Suggestions {
			fmt.Printf("    - %s\n", s)
		}
	}
}
