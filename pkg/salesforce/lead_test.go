package salesforce

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient records calls and returns canned responses.
type fakeClient struct {
	queries       []string
	queryResult   []Lead
	queryErr      error
	updateBatches [][]CollectionRecord
	updateErr     error
}

func (f *fakeClient) Query(_ context.Context, soql string, out any) error {
	f.queries = append(f.queries, soql)
	if f.queryErr != nil {
		return f.queryErr
	}
	leads := out.(*[]Lead)
	*leads = f.queryResult
	return nil
}

func (f *fakeClient) UpdateOne(_ context.Context, _ string, _ string, _ map[string]any) error {
	return nil
}

func (f *fakeClient) UpdateCollection(_ context.Context, _ string, records []CollectionRecord) ([]CollectionResult, error) {
	f.updateBatches = append(f.updateBatches, records)
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	results := make([]CollectionResult, len(records))
	for i, r := range records {
		results[i] = CollectionResult{ID: r.ID, Success: true}
	}
	return results, nil
}

func TestFindLeadByWebsite(t *testing.T) {
	f := &fakeClient{queryResult: []Lead{{ID: "00Q1", Company: "アルファ商事"}}}

	lead, err := FindLeadByWebsite(context.Background(), f, "https://example.co.jp")
	require.NoError(t, err)
	require.NotNil(t, lead)
	assert.Equal(t, "00Q1", lead.ID)
	require.Len(t, f.queries, 1)
	assert.Contains(t, f.queries[0], "FROM Lead")
	assert.Contains(t, f.queries[0], "Lead_Score__c")
}

func TestFindLeadByWebsite_NotFound(t *testing.T) {
	f := &fakeClient{}

	lead, err := FindLeadByWebsite(context.Background(), f, "https://unknown.example")
	require.NoError(t, err)
	assert.Nil(t, lead)
}

func TestFindLeadByWebsite_EscapesQuotes(t *testing.T) {
	f := &fakeClient{}

	_, err := FindLeadByWebsite(context.Background(), f, "https://o'brien.example")
	require.NoError(t, err)
	assert.Contains(t, f.queries[0], `o\'brien`)
}

func TestBulkUpdateLeads_Empty(t *testing.T) {
	f := &fakeClient{}

	results, err := BulkUpdateLeads(context.Background(), f, nil)
	require.NoError(t, err)
	assert.Nil(t, results)
	assert.Empty(t, f.updateBatches)
}

func TestBulkUpdateLeads_SplitsBatches(t *testing.T) {
	f := &fakeClient{}

	updates := make([]LeadUpdate, 450)
	for i := range updates {
		updates[i] = LeadUpdate{
			ID:     fmt.Sprintf("00Q%03d", i),
			Fields: map[string]any{"Lead_Score__c": 75},
		}
	}

	results, err := BulkUpdateLeads(context.Background(), f, updates)
	require.NoError(t, err)
	assert.Len(t, results, 450)
	require.Len(t, f.updateBatches, 3)
	assert.Len(t, f.updateBatches[0], 200)
	assert.Len(t, f.updateBatches[1], 200)
	assert.Len(t, f.updateBatches[2], 50)
}
