package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leadintel/internal/model"
	"github.com/sells-group/leadintel/internal/scorer"
	"github.com/sells-group/leadintel/internal/store"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Run the fit scorer over stored companies",
	Long: `Scores company attractiveness on a 0-100 scale from firmographic
attributes (employee count, industry, location) and enrichment data
(revenue, capital, listing status, corporate grade), then assigns an
S/A/B/C rank.

Examples:
  # Score every company for a client
  leadintel score --client client-1

  # Re-score one company and print the reasons
  leadintel score --company 7a4c8e21-...`,
	RunE: runScore,
}

func init() {
	f := scoreCmd.Flags()
	f.String("company", "", "score a single company by ID")
	f.String("client", "", "restrict to one client's companies")
	f.Int("concurrency", 8, "parallel scoring workers")

	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := initMigratedStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	companyID, _ := cmd.Flags().GetString("company")
	clientID, _ := cmd.Flags().GetString("client")
	concurrency, _ := cmd.Flags().GetInt("concurrency")

	if companyID != "" {
		c, err := st.GetCompany(ctx, companyID)
		if err != nil {
			return eris.Wrapf(err, "score: load company %s", companyID)
		}
		fit := scorer.ScoreFit(c, cfg.Scoring)
		if err := st.SaveFitResult(ctx, c.ID, fit, time.Now().UTC()); err != nil {
			return eris.Wrapf(err, "score: save result %s", companyID)
		}
		printFitResult(c, fit)
		return nil
	}

	companies, err := st.ListCompanies(ctx, store.CompanyFilter{ClientID: clientID})
	if err != nil {
		return eris.Wrap(err, "score: list companies")
	}
	if len(companies) == 0 {
		fmt.Println("No companies to score.")
		return nil
	}

	log := zap.L().With(zap.String("command", "score"))
	log.Info("scoring companies", zap.Int("total", len(companies)))

	scoredAt := time.Now().UTC()
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))
	for i := range companies {
		c := companies[i]
		g.Go(func() error {
			fit := scorer.ScoreFit(&c, cfg.Scoring)
			if err := st.SaveFitResult(gCtx, c.ID, fit, scoredAt); err != nil {
				return eris.Wrapf(err, "score: save result %s", c.ID)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("scoring complete", zap.Int("scored", len(companies)))
	fmt.Printf("Scored %d companies.\n", len(companies))
	return nil
}

func printFitResult(c *model.Company, fit model.FitResult) {
	fmt.Printf("Company: %s\n", c.Name)
	fmt.Printf("Score:   %d / 100\n", fit.Score)
	fmt.Printf("Rank:    %s\n", fit.Rank)
	if len(fit.Reasons) > 0 {
		fmt.Printf("Reasons: %s\n", strings.Join(fit.Reasons, " / "))
	}
}
