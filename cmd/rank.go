package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/leadintel/internal/model"
	"github.com/sells-group/leadintel/internal/ranking"
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Build the prioritized lead list",
	Long: `Combines intent scores with product-match scores into a single
prioritized list. Without --product the ranking uses intent alone.

Examples:
  # Rank all leads by combined score for a product
  leadintel rank --product prod-1

  # Hot leads in Tokyo, top 20, as CSV
  leadintel rank --product prod-1 --levels hot --locations 東京 --limit 20 --format csv

  # Full list as a spreadsheet for the sales team
  leadintel rank --product prod-1 --format xlsx --output leads.xlsx`,
	RunE: runRank,
}

func init() {
	f := rankCmd.Flags()
	f.String("client", "", "restrict to one client's companies")
	f.String("product", "", "product ID for match scoring")
	f.String("project", "", "project ID for engagement-aware actions")
	f.String("levels", "", "comma-separated intent levels (hot,warm,cold)")
	f.String("stages", "", "comma-separated buying stages")
	f.Int("min-intent", 0, "minimum intent score")
	f.Int("min-match", 0, "minimum match score")
	f.String("ranks", "", "comma-separated fit ranks (S,A,B,C)")
	f.String("industries", "", "comma-separated industries")
	f.Int("min-employees", 0, "minimum employee count")
	f.Int("max-employees", 0, "maximum employee count (0 = no cap)")
	f.String("locations", "", "comma-separated location substrings")
	f.String("sort", "combined_score", "sort key: combined_score, intent_score, match_score, company_name")
	f.Bool("asc", false, "sort ascending")
	f.Int("limit", 50, "maximum results")
	f.Int("offset", 0, "results to skip")
	f.String("format", "table", "output format: table, csv, yaml, or xlsx")
	f.String("output", "", "output file path (default: stdout)")

	rootCmd.AddCommand(rankCmd)
}

func runRank(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "table", "csv", "yaml", "xlsx":
	default:
		return eris.Errorf("rank: --format must be table, csv, yaml, or xlsx (got %q)", format)
	}

	st, err := initMigratedStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	filter := rankFilterFromFlags(cmd)
	page, err := ranking.New(st).Rank(ctx, filter)
	if err != nil {
		return err
	}

	outputPath, _ := cmd.Flags().GetString("output")
	w := os.Stdout
	if outputPath != "" {
		w, err = os.Create(outputPath)
		if err != nil {
			return eris.Wrapf(err, "rank: create output file %s", outputPath)
		}
		defer w.Close() //nolint:errcheck
	}

	switch format {
	case "csv":
		if err := writeRankCSV(w, page.Leads); err != nil {
			return err
		}
	case "yaml":
		if err := yaml.NewEncoder(w).Encode(page); err != nil {
			return eris.Wrap(err, "rank: encode yaml")
		}
	case "xlsx":
		if err := writeRankXLSX(w, page.Leads); err != nil {
			return err
		}
	default:
		writeRankTable(w, page.Leads)
	}

	if format == "table" && outputPath == "" {
		printRankSummary(page.Summary)
	}
	return nil
}

func rankFilterFromFlags(cmd *cobra.Command) ranking.Filter {
	f := cmd.Flags()
	clientID, _ := f.GetString("client")
	productID, _ := f.GetString("product")
	projectID, _ := f.GetString("project")
	levels, _ := f.GetString("levels")
	stages, _ := f.GetString("stages")
	minIntent, _ := f.GetInt("min-intent")
	minMatch, _ := f.GetInt("min-match")
	ranks, _ := f.GetString("ranks")
	industries, _ := f.GetString("industries")
	minEmployees, _ := f.GetInt("min-employees")
	maxEmployees, _ := f.GetInt("max-employees")
	locations, _ := f.GetString("locations")
	sortBy, _ := f.GetString("sort")
	asc, _ := f.GetBool("asc")
	limit, _ := f.GetInt("limit")
	offset, _ := f.GetInt("offset")

	filter := ranking.Filter{
		ClientID:       clientID,
		ProductID:      productID,
		ProjectID:      projectID,
		MinIntentScore: minIntent,
		MinMatchScore:  minMatch,
		MinEmployees:   minEmployees,
		MaxEmployees:   maxEmployees,
		SortBy:         sortBy,
		SortAsc:        asc,
		Limit:          limit,
		Offset:         offset,
	}
	for _, l := range splitAndTrim(levels) {
		filter.IntentLevels = append(filter.IntentLevels, model.IntentLevel(l))
	}
	for _, s := range splitAndTrim(stages) {
		filter.BuyingStages = append(filter.BuyingStages, model.BuyingStage(s))
	}
	for _, r := range splitAndTrim(ranks) {
		filter.Ranks = append(filter.Ranks, model.Rank(strings.ToUpper(r)))
	}
	filter.Industries = splitAndTrim(industries)
	filter.Locations = splitAndTrim(locations)
	return filter
}

func writeRankTable(w *os.File, leads []ranking.RankedLead) {
	fmt.Fprintf(w, "%-4s %-30s %-12s %6s %6s %6s  %s\n",
		"Pri", "Company", "Intent", "Int", "Match", "Comb", "Actions")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, l := range leads {
		name := l.Company.Name
		if len([]rune(name)) > 30 {
			name = string([]rune(name)[:27]) + "..."
		}
		fmt.Fprintf(w, "%-4s %-30s %-12s %6d %6d %6d  %s\n",
			l.Priority, name, l.IntentLevel,
			l.IntentScore, l.MatchScore, l.CombinedScore,
			strings.Join(l.Actions, " / "))
	}
}

func writeRankCSV(w *os.File, leads []ranking.RankedLead) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{
		"priority", "company_id", "company_name", "industry", "location",
		"intent_score", "intent_level", "buying_stage",
		"match_score", "match_level", "combined_score", "actions",
	}
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "rank: write CSV header")
	}
	for _, l := range leads {
		row := []string{
			string(l.Priority),
			l.Company.ID,
			l.Company.Name,
			l.Company.Industry,
			l.Company.Location,
			strconv.Itoa(l.IntentScore),
			string(l.IntentLevel),
			string(l.BuyingStage),
			strconv.Itoa(l.MatchScore),
			string(l.MatchLevel),
			strconv.Itoa(l.CombinedScore),
			strings.Join(l.Actions, "; "),
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "rank: write CSV row")
		}
	}
	return nil
}

func writeRankXLSX(w *os.File, leads []ranking.RankedLead) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Leads")
	if err != nil {
		return eris.Wrap(err, "rank: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{
		"優先度", "企業ID", "企業名", "業界", "所在地",
		"インテント", "レベル", "検討ステージ",
		"マッチ", "マッチレベル", "総合", "推奨アクション",
	} {
		header.AddCell().Value = h
	}

	for _, l := range leads {
		row := sheet.AddRow()
		row.AddCell().Value = string(l.Priority)
		row.AddCell().Value = l.Company.ID
		row.AddCell().Value = l.Company.Name
		row.AddCell().Value = l.Company.Industry
		row.AddCell().Value = l.Company.Location
		row.AddCell().SetInt(l.IntentScore)
		row.AddCell().Value = string(l.IntentLevel)
		row.AddCell().Value = string(l.BuyingStage)
		row.AddCell().SetInt(l.MatchScore)
		row.AddCell().Value = string(l.MatchLevel)
		row.AddCell().SetInt(l.CombinedScore)
		row.AddCell().Value = strings.Join(l.Actions, " / ")
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "rank: write xlsx")
	}
	return nil
}

func printRankSummary(s ranking.Summary) {
	fmt.Printf("\n--- Summary ---\n")
	fmt.Printf("Total:      %d\n", s.Total)
	fmt.Printf("Priority:   S=%d A=%d B=%d C=%d\n",
		s.ByPriority[model.RankS], s.ByPriority[model.RankA],
		s.ByPriority[model.RankB], s.ByPriority[model.RankC])
	fmt.Printf("Intent:     hot=%d warm=%d cold=%d\n",
		s.ByIntentLevel[model.IntentHot], s.ByIntentLevel[model.IntentWarm],
		s.ByIntentLevel[model.IntentCold])
	fmt.Printf("Avg scores: intent=%.1f combined=%.1f\n", s.AvgIntentScore, s.AvgCombinedScore)
	if len(s.TopIndustries) > 0 {
		var parts []string
		for _, ic := range s.TopIndustries {
			parts = append(parts, fmt.Sprintf("%s(%d)", ic.Industry, ic.Count))
		}
		fmt.Printf("Industries: %s\n", strings.Join(parts, " "))
	}
}

func splitAndTrim(s string) []string {
	var result []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
