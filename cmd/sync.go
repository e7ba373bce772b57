package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadintel/internal/export"
	"github.com/sells-group/leadintel/internal/ranking"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push ranked lead scores to Salesforce",
	Long: `Ranks leads for a product and writes the scoring fields
(Lead_Score__c, Lead_Rank__c, Intent_Level__c, Priority__c) to the
matching Salesforce Lead records.

Example:
  leadintel sync --product prod-1 --limit 500`,
	RunE: runSync,
}

func init() {
	f := syncCmd.Flags()
	f.String("client", "", "restrict to one client's companies")
	f.String("product", "", "product ID for match scoring")
	f.Int("limit", 500, "maximum leads to sync")

	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := initMigratedStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	sf, err := initSalesforce()
	if err != nil {
		return err
	}

	clientID, _ := cmd.Flags().GetString("client")
	productID, _ := cmd.Flags().GetString("product")
	limit, _ := cmd.Flags().GetInt("limit")

	page, err := ranking.New(st).Rank(ctx, ranking.Filter{
		ClientID:  clientID,
		ProductID: productID,
		Limit:     limit,
	})
	if err != nil {
		return err
	}

	log := zap.L().With(zap.String("command", "sync"))
	log.Info("syncing leads to salesforce", zap.Int("leads", len(page.Leads)))

	result, err := export.NewLeadSyncer(sf).Sync(ctx, page.Leads)
	if err != nil {
		return err
	}

	fmt.Printf("Matched: %d  Updated: %d  Skipped: %d\n",
		result.Matched, result.Updated, result.Skipped)
	if len(result.Failures) > 0 {
		fmt.Printf("Failed IDs: %s\n", strings.Join(result.Failures, ", "))
	}
	return nil
}
