package export

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadintel/internal/model"
	"github.com/sells-group/leadintel/internal/ranking"
	"github.com/sells-group/leadintel/pkg/salesforce"
)

// fakeClient maps websites to lead IDs and records collection updates.
type fakeClient struct {
	mu        sync.Mutex
	leadByURL map[string]string
	updates   []salesforce.CollectionRecord
	failIDs   map[string]bool
}

func (f *fakeClient) Query(_ context.Context, soql string, out any) error {
	leads := out.(*[]salesforce.Lead)
	for url, id := range f.leadByURL {
		if strings.Contains(soql, url) {
			*leads = []salesforce.Lead{{ID: id}}
			return nil
		}
	}
	return nil
}

func (f *fakeClient) UpdateOne(_ context.Context, _ string, _ string, _ map[string]any) error {
	return nil
}

func (f *fakeClient) UpdateCollection(_ context.Context, _ string, records []salesforce.CollectionRecord) ([]salesforce.CollectionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, records...)
	results := make([]salesforce.CollectionResult, len(records))
	for i, r := range records {
		results[i] = salesforce.CollectionResult{ID: r.ID, Success: !f.failIDs[r.ID]}
		if f.failIDs[r.ID] {
			results[i].Errors = []string{"FIELD_INTEGRITY_EXCEPTION"}
		}
	}
	return results, nil
}

func rankedLead(companyID, website string, combined int) ranking.RankedLead {
	return ranking.RankedLead{
		Company: model.Company{
			ID: companyID, Website: website, Rank: model.RankA,
		},
		IntentLevel:   model.IntentHot,
		CombinedScore: combined,
		Priority:      model.RankS,
	}
}

func TestSync_UpdatesMatchedLeads(t *testing.T) {
	f := &fakeClient{leadByURL: map[string]string{"https://alpha.example": "00Q1"}}
	s := NewLeadSyncer(f)

	result, err := s.Sync(context.Background(), []ranking.RankedLead{
		rankedLead("c-1", "https://alpha.example", 84),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Matched)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 0, result.Skipped)

	require.Len(t, f.updates, 1)
	fields := f.updates[0].Fields
	assert.Equal(t, 84, fields["Lead_Score__c"])
	assert.Equal(t, "A", fields["Lead_Rank__c"])
	assert.Equal(t, "hot", fields["Intent_Level__c"])
	assert.Equal(t, "S", fields["Priority__c"])
}

func TestSync_SkipsUnmatchedAndWebsiteless(t *testing.T) {
	f := &fakeClient{leadByURL: map[string]string{}}
	s := NewLeadSyncer(f)

	result, err := s.Sync(context.Background(), []ranking.RankedLead{
		rankedLead("c-1", "", 50),
		rankedLead("c-2", "https://nomatch.example", 50),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Matched)
	assert.Equal(t, 2, result.Skipped)
	assert.Empty(t, f.updates)
}

func TestSync_ReportsFailedRecords(t *testing.T) {
	f := &fakeClient{
		leadByURL: map[string]string{
			"https://alpha.example": "00Q1",
			"https://beta.example":  "00Q2",
		},
		failIDs: map[string]bool{"00Q2": true},
	}
	s := NewLeadSyncer(f)

	result, err := s.Sync(context.Background(), []ranking.RankedLead{
		rankedLead("c-1", "https://alpha.example", 84),
		rankedLead("c-2", "https://beta.example", 70),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Matched)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, []string{"00Q2"}, result.Failures)
}

func TestSync_BatchesLargeSets(t *testing.T) {
	f := &fakeClient{leadByURL: map[string]string{}}
	leads := make([]ranking.RankedLead, 250)
	for i := range leads {
		url := fmt.Sprintf("https://c%03d.example", i)
		f.leadByURL[url] = fmt.Sprintf("00Q%03d", i)
		leads[i] = rankedLead(fmt.Sprintf("c-%d", i), url, 60)
	}

	result, err := NewLeadSyncer(f).Sync(context.Background(), leads)
	require.NoError(t, err)
	assert.Equal(t, 250, result.Matched)
	assert.Equal(t, 250, result.Updated)
	assert.Len(t, f.updates, 250)
}
