package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadintel/internal/engagement"
	"github.com/sells-group/leadintel/internal/model"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Apply engagement events",
	Long: `Applies a single engagement event, or replays a JSONL file (one JSON
object per line) into the engagement accumulator. Events referencing unknown
projects are reported and dropped; unknown event types are ignored.

Examples:
  leadintel events --company c-1 --project p-1 --type call_connected
  leadintel events --file events.jsonl`,
	RunE: runEvents,
}

func init() {
	f := eventsCmd.Flags()
	f.String("file", "", "path to JSONL event file")
	f.String("company", "", "company ID for a single event")
	f.String("project", "", "project ID for a single event")
	f.String("type", "", "event type for a single event")

	rootCmd.AddCommand(eventsCmd)
}

func runEvents(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path, _ := cmd.Flags().GetString("file")
	companyID, _ := cmd.Flags().GetString("company")

	if path == "" && companyID == "" {
		return eris.New("events: either --file or --company/--project/--type is required")
	}

	st, err := initMigratedStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	acc := engagement.NewAccumulator(st)

	if path != "" {
		return replayEvents(ctx, acc, path)
	}

	projectID, _ := cmd.Flags().GetString("project")
	eventType, _ := cmd.Flags().GetString("type")
	if projectID == "" || eventType == "" {
		return eris.New("events: --project and --type are required with --company")
	}

	score, err := acc.ApplyEvent(ctx, model.Event{
		CompanyID: companyID,
		ProjectID: projectID,
		Type:      model.EngagementEvent(eventType),
	})
	if err != nil {
		return eris.Wrap(err, "events: apply")
	}
	fmt.Printf("Total: %d (call=%d doc=%d web=%d social=%d) trend=%s alert=%s\n",
		score.TotalScore, score.CallScore, score.DocumentScore,
		score.WebActivityScore, score.SocialScore, score.Trend, score.AlertLevel)
	return nil
}

func replayEvents(ctx context.Context, acc *engagement.Accumulator, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return eris.Wrapf(err, "events: open %s", path)
	}
	defer file.Close() //nolint:errcheck

	log := zap.L().With(zap.String("command", "events"))

	var applied, dropped int
	scanner := bufio.NewScanner(file)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var ev model.Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			log.Warn("skipping malformed event", zap.Int("line", line), zap.Error(err))
			dropped++
			continue
		}
		if _, err := acc.ApplyEvent(ctx, ev); err != nil {
			if eris.Is(err, engagement.ErrUnknownProject) {
				log.Warn("dropping event for unknown project",
					zap.Int("line", line),
					zap.String("project_id", ev.ProjectID))
				dropped++
				continue
			}
			return eris.Wrapf(err, "events: line %d", line)
		}
		applied++
	}
	if err := scanner.Err(); err != nil {
		return eris.Wrap(err, "events: read file")
	}

	fmt.Printf("Applied %d events (%d dropped).\n", applied, dropped)
	return nil
}
