package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leadintel/internal/crosssell"
)

var crosssellCmd = &cobra.Command{
	Use:   "crosssell",
	Short: "Recommend rejected companies to other active projects",
	Long: `Takes companies rejected in a source project and scores them
against every other active project. Combinations at or above the
minimum score are persisted as cross-sell recommendations.

Examples:
  leadintel crosssell --source p-1
  leadintel crosssell --target p-2 --list`,
	RunE: runCrosssell,
}

func init() {
	f := crosssellCmd.Flags()
	f.String("source", "", "source project whose rejections to reuse")
	f.String("target", "", "target project for --list")
	f.Bool("list", false, "list stored recommendations for --target")

	rootCmd.AddCommand(crosssellCmd)
}

func runCrosssell(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := initMigratedStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	if list, _ := cmd.Flags().GetBool("list"); list {
		targetID, _ := cmd.Flags().GetString("target")
		if targetID == "" {
			return eris.New("crosssell: --list requires --target")
		}
		recs, err := st.ListRecommendations(ctx, targetID)
		if err != nil {
			return eris.Wrapf(err, "crosssell: list recommendations %s", targetID)
		}
		for _, r := range recs {
			fmt.Printf("[%3d] %s <- %s (%s) %s\n",
				r.MatchScore, r.TargetProjectID, r.CompanyID, r.Status,
				strings.Join(r.Reasons, " / "))
		}
		fmt.Printf("%d recommendation(s).\n", len(recs))
		return nil
	}

	sourceID, _ := cmd.Flags().GetString("source")
	if sourceID == "" {
		return eris.New("crosssell: --source is required")
	}

	recs, err := crosssell.New(st, cfg.CrossSell).Run(ctx, sourceID)
	if err != nil {
		return err
	}
	for _, r := range recs {
		fmt.Printf("[%3d] %s -> %s: %s\n",
			r.MatchScore, r.CompanyID, r.TargetProjectID, strings.Join(r.Reasons, " / "))
	}
	fmt.Printf("Created %d recommendation(s).\n", len(recs))
	return nil
}
