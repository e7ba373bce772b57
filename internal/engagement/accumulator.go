// Package engagement accumulates per-company engagement scores from call and
// document interaction events.
package engagement

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadintel/internal/model"
	"github.com/sells-group/leadintel/internal/store"
)

// ErrUnknownProject is returned when an event references a project that does
// not exist.
var ErrUnknownProject = eris.New("engagement: unknown project")

// risingThreshold is the per-event point value at or above which an update
// marks the trend as rising.
const risingThreshold = 15

type eventValue struct {
	points  int
	channel model.Channel
}

// eventPoints maps each qualifying event type to its point value and channel.
var eventPoints = map[model.EngagementEvent]eventValue{
	model.EventCallConnected:     {10, model.ChannelCall},
	model.EventCallAppointment:   {30, model.ChannelCall},
	model.EventDocumentSent:      {5, model.ChannelDocument},
	model.EventDocumentOpen:      {15, model.ChannelDocument},
	model.EventDocumentPageView:  {5, model.ChannelDocument},
	model.EventDocumentLinkClick: {20, model.ChannelDocument},
	model.EventDocumentDownload:  {25, model.ChannelDocument},
}

// Accumulator applies engagement events against the store. Events for the
// same (company, project) pair are serialized so concurrent deliveries never
// lose points.
type Accumulator struct {
	store store.Store

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewAccumulator(st store.Store) *Accumulator {
	return &Accumulator{
		store: st,
		locks: make(map[string]*sync.Mutex),
	}
}

func (a *Accumulator) keyLock(key string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	l, ok := a.locks[key]
	if !ok {
		l = &sync.Mutex{}
		a.locks[key] = l
	}
	return l
}

// ApplyEvent folds one event into the stored engagement score and returns the
// updated state. Events with an unrecognized type are ignored and return the
// current state unchanged.
func (a *Accumulator) ApplyEvent(ctx context.Context, ev model.Event) (*model.EngagementScore, error) {
	if _, err := a.store.GetProject(ctx, ev.ProjectID); err != nil {
		if eris.Is(err, store.ErrNotFound) {
			return nil, ErrUnknownProject
		}
		return nil, eris.Wrapf(err, "engagement: lookup project %s", ev.ProjectID)
	}

	lock := a.keyLock(ev.CompanyID + "/" + ev.ProjectID)
	lock.Lock()
	defer lock.Unlock()

	current, err := a.store.GetEngagement(ctx, ev.CompanyID, ev.ProjectID)
	if err != nil && !eris.Is(err, store.ErrNotFound) {
		return nil, eris.Wrapf(err, "engagement: load score %s/%s", ev.CompanyID, ev.ProjectID)
	}

	val, known := eventPoints[ev.Type]
	if !known {
		zap.L().Debug("ignoring unknown engagement event",
			zap.String("type", string(ev.Type)),
			zap.String("company_id", ev.CompanyID))
		return current, nil
	}

	now := time.Now().UTC()
	occurred := ev.OccurredAt
	if occurred.IsZero() {
		occurred = now
	}

	var next model.EngagementScore
	if current == nil {
		next = model.EngagementScore{
			CompanyID: ev.CompanyID,
			ProjectID: ev.ProjectID,
			Trend:     model.TrendRising,
			CreatedAt: now,
		}
	} else {
		next = *current
		if val.points >= risingThreshold {
			next.Trend = model.TrendRising
		} else {
			next.Trend = model.TrendStable
		}
	}

	switch val.channel {
	case model.ChannelCall:
		next.CallScore += val.points
	case model.ChannelDocument:
		next.DocumentScore += val.points
	case model.ChannelWeb:
		next.WebActivityScore += val.points
	case model.ChannelSocial:
		next.SocialScore += val.points
	}
	next.TotalScore = next.ChannelSum()
	next.AlertLevel = model.AlertLevelFor(next.TotalScore)
	next.LastActivityAt = occurred
	next.UpdatedAt = now

	if err := a.store.PutEngagement(ctx, &next); err != nil {
		return nil, eris.Wrapf(err, "engagement: persist score %s/%s", ev.CompanyID, ev.ProjectID)
	}

	zap.L().Debug("applied engagement event",
		zap.String("company_id", ev.CompanyID),
		zap.String("project_id", ev.ProjectID),
		zap.String("type", string(ev.Type)),
		zap.Int("points", val.points),
		zap.Int("total", next.TotalScore),
		zap.String("alert_level", string(next.AlertLevel)))

	return &next, nil
}

// Get returns the stored engagement score for a (company, project) pair.
func (a *Accumulator) Get(ctx context.Context, companyID, projectID string) (*model.EngagementScore, error) {
	return a.store.GetEngagement(ctx, companyID, projectID)
}

// ListAboveThreshold returns engagement scores for a project at or above the
// given total, highest first.
func (a *Accumulator) ListAboveThreshold(ctx context.Context, projectID string, minScore int) ([]model.EngagementScore, error) {
	return a.store.ListEngagementAbove(ctx, projectID, minScore)
}
