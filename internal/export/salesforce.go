// Package export pushes ranked lead results to external CRM systems.
package export

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leadintel/internal/ranking"
	"github.com/sells-group/leadintel/internal/resilience"
	"github.com/sells-group/leadintel/pkg/salesforce"
)

// batchSize is how many leads one UpdateCollection call carries.
const batchSize = 200

// maxConcurrentBatches bounds parallel Salesforce API calls.
const maxConcurrentBatches = 4

// SyncResult summarizes one export run.
type SyncResult struct {
	Matched  int
	Updated  int
	Skipped  int
	Failures []string
}

// LeadSyncer maps ranked leads onto Salesforce Lead records and updates the
// custom scoring fields.
type LeadSyncer struct {
	client salesforce.Client
	retry  resilience.RetryConfig
}

func NewLeadSyncer(c salesforce.Client) *LeadSyncer {
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("salesforce", "sync_leads")
	return &LeadSyncer{client: c, retry: retry}
}

// Sync looks up each lead by company website and pushes the scoring fields
// for every match. Companies without a website or without a matching Lead
// are skipped, not errors.
func (s *LeadSyncer) Sync(ctx context.Context, leads []ranking.RankedLead) (*SyncResult, error) {
	result := &SyncResult{}

	var updates []salesforce.LeadUpdate
	for _, lead := range leads {
		if lead.Company.Website == "" {
			result.Skipped++
			continue
		}
		sfLead, err := resilience.DoVal(ctx, s.retry, func(ctx context.Context) (*salesforce.Lead, error) {
			return salesforce.FindLeadByWebsite(ctx, s.client, lead.Company.Website)
		})
		if err != nil {
			return result, eris.Wrapf(err, "export: lookup lead for %s", lead.Company.ID)
		}
		if sfLead == nil {
			result.Skipped++
			continue
		}
		result.Matched++
		updates = append(updates, salesforce.LeadUpdate{
			ID:     sfLead.ID,
			Fields: leadFields(lead),
		})
	}

	if len(updates) == 0 {
		return result, nil
	}

	var mu sync.Mutex
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentBatches)

	for start := 0; start < len(updates); start += batchSize {
		end := min(start+batchSize, len(updates))
		batch := updates[start:end]
		g.Go(func() error {
			results, err := resilience.DoVal(gCtx, s.retry, func(ctx context.Context) ([]salesforce.CollectionResult, error) {
				return salesforce.BulkUpdateLeads(ctx, s.client, batch)
			})
			if err != nil {
				return eris.Wrap(err, "export: update batch")
			}
			mu.Lock()
			defer mu.Unlock()
			for _, r := range results {
				if r.Success {
					result.Updated++
				} else {
					result.Failures = append(result.Failures, r.ID)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}

	zap.L().Info("salesforce sync complete",
		zap.Int("matched", result.Matched),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", result.Skipped),
		zap.Int("failures", len(result.Failures)))
	return result, nil
}

func leadFields(lead ranking.RankedLead) map[string]any {
	return map[string]any{
		"Lead_Score__c":   lead.CombinedScore,
		"Lead_Rank__c":    string(lead.Company.Rank),
		"Intent_Level__c": string(lead.IntentLevel),
		"Priority__c":     string(lead.Priority),
	}
}
