package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leadintel/internal/model"
	"github.com/sells-group/leadintel/internal/scorer"
)

var intentCmd = &cobra.Command{
	Use:   "intent",
	Short: "Analyze buying intent from a scrape snapshot",
	Long: `Reads a scrape snapshot (hiring data, news items, social activity)
from a JSON file, derives intent signals, and saves the resulting
intent profile for the company.

Example:
  leadintel intent --company 7a4c8e21-... --snapshot snapshot.json`,
	RunE: runIntent,
}

func init() {
	f := intentCmd.Flags()
	f.String("company", "", "company ID (required)")
	f.String("snapshot", "", "path to scrape snapshot JSON (required)")
	_ = intentCmd.MarkFlagRequired("company")
	_ = intentCmd.MarkFlagRequired("snapshot")

	rootCmd.AddCommand(intentCmd)
}

func runIntent(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	companyID, _ := cmd.Flags().GetString("company")
	snapshotPath, _ := cmd.Flags().GetString("snapshot")

	data, err := os.ReadFile(snapshotPath)
	if err != nil {
		return eris.Wrapf(err, "intent: read snapshot %s", snapshotPath)
	}
	var snap model.ScrapeSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return eris.Wrap(err, "intent: parse snapshot")
	}

	st, err := initMigratedStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	if _, err := st.GetCompany(ctx, companyID); err != nil {
		return eris.Wrapf(err, "intent: load company %s", companyID)
	}

	profile := scorer.AnalyzeIntent(companyID, &snap, time.Now().UTC())
	if err := st.SaveIntentProfile(ctx, &profile); err != nil {
		return eris.Wrapf(err, "intent: save profile %s", companyID)
	}

	fmt.Printf("Intent score: %d / 100\n", profile.Score)
	fmt.Printf("Level:        %s\n", profile.Level)
	fmt.Printf("Buying stage: %s\n", profile.BuyingStage)
	fmt.Printf("Summary:      %s\n", profile.Summary)
	for _, s := range profile.Signals {
		fmt.Printf("  [%s] %s (+%d)\n", s.Type, s.Description, s.Weight)
	}
	return nil
}
