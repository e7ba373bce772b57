package salesforce

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// maxBatchSize is the Salesforce Collections API limit per request.
const maxBatchSize = 200

// Lead represents a Salesforce Lead record with the custom scoring fields.
type Lead struct {
	ID                string  `json:"Id" salesforce:"Id"`
	Company           string  `json:"Company" salesforce:"Company"`
	Website           string  `json:"Website" salesforce:"Website"`
	Industry          string  `json:"Industry" salesforce:"Industry"`
	City              string  `json:"City" salesforce:"City"`
	NumberOfEmployees int     `json:"NumberOfEmployees" salesforce:"NumberOfEmployees"`
	LeadScore         float64 `json:"Lead_Score__c" salesforce:"Lead_Score__c"`
	LeadRank          string  `json:"Lead_Rank__c" salesforce:"Lead_Rank__c"`
	IntentLevel       string  `json:"Intent_Level__c" salesforce:"Intent_Level__c"`
	Priority          string  `json:"Priority__c" salesforce:"Priority__c"`
}

// leadFields are the SOQL fields selected for Lead queries.
var leadFields = []string{
	"Id", "Company", "Website", "Industry", "City", "NumberOfEmployees",
	"Lead_Score__c", "Lead_Rank__c", "Intent_Level__c", "Priority__c",
}

// FindLeadByWebsite queries Salesforce for a Lead matching the given website.
// Returns nil if no lead is found.
func FindLeadByWebsite(ctx context.Context, c Client, website string) (*Lead, error) {
	soql := fmt.Sprintf(
		"SELECT %s FROM Lead WHERE Website LIKE '%s' LIMIT 1",
		strings.Join(leadFields, ", "),
		escapeSoql(website),
	)

	var leads []Lead
	if err := c.Query(ctx, soql, &leads); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("sf: find lead by website %s", website))
	}
	if len(leads) == 0 {
		return nil, nil
	}
	return &leads[0], nil
}

// LeadUpdate holds a lead ID and the fields to update.
type LeadUpdate struct {
	ID     string
	Fields map[string]any
}

// BulkUpdateLeads splits updates into batches of 200 (SF Collections API
// limit) and sends them via UpdateCollection.
func BulkUpdateLeads(ctx context.Context, c Client, updates []LeadUpdate) ([]CollectionResult, error) {
	if len(updates) == 0 {
		return nil, nil
	}

	var allResults []CollectionResult

	for start := 0; start < len(updates); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(updates) {
			end = len(updates)
		}
		batch := updates[start:end]

		records := make([]CollectionRecord, len(batch))
		for i, u := range batch {
			records[i] = CollectionRecord(u)
		}

		results, err := c.UpdateCollection(ctx, "Lead", records)
		if err != nil {
			return allResults, eris.Wrap(err, fmt.Sprintf("sf: bulk update leads batch %d-%d", start, end))
		}
		allResults = append(allResults, results...)
	}

	return allResults, nil
}

// escapeSoql escapes single quotes in SOQL string literals to prevent injection.
func escapeSoql(s string) string {
	return strings.ReplaceAll(s, "'", "\\'")
}
