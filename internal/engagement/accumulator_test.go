package engagement

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leadintel/internal/model"
	"github.com/sells-group/leadintel/internal/store"
)

func newTestAccumulator(t *testing.T) (*Accumulator, store.Store) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck

	ctx := context.Background()
	require.NoError(t, st.Migrate(ctx))
	require.NoError(t, st.UpsertProject(ctx, &model.Project{
		ID: "p-1", Name: "新規開拓Q1", Status: model.ProjectActive,
		MinAppointmentRate: 50, CreatedAt: time.Now().UTC(),
	}))
	return NewAccumulator(st), st
}

func TestApplyEvent_FirstEventCreatesScore(t *testing.T) {
	acc, _ := newTestAccumulator(t)
	ctx := context.Background()

	got, err := acc.ApplyEvent(ctx, model.Event{
		CompanyID: "c-1", ProjectID: "p-1", Type: model.EventCallConnected,
	})
	require.NoError(t, err)
	assert.Equal(t, 10, got.CallScore)
	assert.Equal(t, 0, got.DocumentScore)
	assert.Equal(t, 10, got.TotalScore)
	assert.Equal(t, model.TrendRising, got.Trend)
	assert.Equal(t, model.AlertNone, got.AlertLevel)
}

func TestApplyEvent_PointTable(t *testing.T) {
	tests := []struct {
		event      model.EngagementEvent
		wantPoints int
		wantCall   int
		wantDoc    int
		wantTrend  model.Trend
	}{
		{model.EventCallConnected, 10, 10, 0, model.TrendStable},
		{model.EventCallAppointment, 30, 30, 0, model.TrendRising},
		{model.EventDocumentSent, 5, 0, 5, model.TrendStable},
		{model.EventDocumentOpen, 15, 0, 15, model.TrendRising},
		{model.EventDocumentPageView, 5, 0, 5, model.TrendStable},
		{model.EventDocumentLinkClick, 20, 0, 20, model.TrendRising},
		{model.EventDocumentDownload, 25, 0, 25, model.TrendRising},
	}
	for _, tt := range tests {
		t.Run(string(tt.event), func(t *testing.T) {
			acc, _ := newTestAccumulator(t)
			ctx := context.Background()

			// Seed an existing score so the trend reflects this event's
			// points rather than the first-event rule.
			_, err := acc.ApplyEvent(ctx, model.Event{
				CompanyID: "c-1", ProjectID: "p-1", Type: model.EventDocumentSent,
			})
			require.NoError(t, err)

			got, err := acc.ApplyEvent(ctx, model.Event{
				CompanyID: "c-1", ProjectID: "p-1", Type: tt.event,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantCall, got.CallScore)
			assert.Equal(t, tt.wantDoc+5, got.DocumentScore)
			assert.Equal(t, tt.wantPoints+5, got.TotalScore)
			assert.Equal(t, tt.wantTrend, got.Trend)
		})
	}
}

func TestApplyEvent_AlertLevelRecomputed(t *testing.T) {
	acc, _ := newTestAccumulator(t)
	ctx := context.Background()

	apply := func(ev model.EngagementEvent) *model.EngagementScore {
		got, err := acc.ApplyEvent(ctx, model.Event{
			CompanyID: "c-1", ProjectID: "p-1", Type: ev,
		})
		require.NoError(t, err)
		return got
	}

	assert.Equal(t, model.AlertNone, apply(model.EventCallConnected).AlertLevel)    // 10
	assert.Equal(t, model.AlertLow, apply(model.EventDocumentOpen).AlertLevel)      // 25
	assert.Equal(t, model.AlertMedium, apply(model.EventDocumentLinkClick).AlertLevel) // 45
	assert.Equal(t, model.AlertHigh, apply(model.EventDocumentDownload).AlertLevel) // 70
	got := apply(model.EventCallAppointment) // 100
	assert.Equal(t, model.AlertCritical, got.AlertLevel)
	assert.Equal(t, 100, got.TotalScore)
	assert.Equal(t, got.ChannelSum(), got.TotalScore)
}

func TestApplyEvent_UnknownEventIsNoOp(t *testing.T) {
	acc, _ := newTestAccumulator(t)
	ctx := context.Background()

	before, err := acc.ApplyEvent(ctx, model.Event{
		CompanyID: "c-1", ProjectID: "p-1", Type: model.EventCallConnected,
	})
	require.NoError(t, err)

	after, err := acc.ApplyEvent(ctx, model.Event{
		CompanyID: "c-1", ProjectID: "p-1", Type: "bogus_event",
	})
	require.NoError(t, err)
	assert.Equal(t, before.TotalScore, after.TotalScore)
	assert.Equal(t, before.Trend, after.Trend)
}

func TestApplyEvent_UnknownProject(t *testing.T) {
	acc, _ := newTestAccumulator(t)

	_, err := acc.ApplyEvent(context.Background(), model.Event{
		CompanyID: "c-1", ProjectID: "no-such-project", Type: model.EventCallConnected,
	})
	require.ErrorIs(t, err, ErrUnknownProject)
}

func TestApplyEvent_ConcurrentEventsNeverLosePoints(t *testing.T) {
	acc, _ := newTestAccumulator(t)
	ctx := context.Background()

	var g errgroup.Group
	for i := 0; i < 10; i++ {
		g.Go(func() error {
			_, err := acc.ApplyEvent(ctx, model.Event{
				CompanyID: "c-1", ProjectID: "p-1", Type: model.EventCallConnected,
			})
			return err
		})
	}
	require.NoError(t, g.Wait())

	got, err := acc.Get(ctx, "c-1", "p-1")
	require.NoError(t, err)
	assert.Equal(t, 100, got.TotalScore)
	assert.Equal(t, 100, got.CallScore)
	assert.Equal(t, model.AlertCritical, got.AlertLevel)
}

func TestListAboveThreshold(t *testing.T) {
	acc, _ := newTestAccumulator(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := acc.ApplyEvent(ctx, model.Event{
			CompanyID: "c-hot", ProjectID: "p-1", Type: model.EventCallAppointment,
		})
		require.NoError(t, err)
	}
	_, err := acc.ApplyEvent(ctx, model.Event{
		CompanyID: "c-cold", ProjectID: "p-1", Type: model.EventDocumentSent,
	})
	require.NoError(t, err)

	got, err := acc.ListAboveThreshold(ctx, "p-1", 60)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c-hot", got[0].CompanyID)
	assert.Equal(t, 90, got[0].TotalScore)
}
