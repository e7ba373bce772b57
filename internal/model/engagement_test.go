package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAlertLevelFor(t *testing.T) {
	tests := []struct {
		total int
		want  AlertLevel
	}{
		{0, AlertNone},
		{19, AlertNone},
		{20, AlertLow},
		{39, AlertLow},
		{40, AlertMedium},
		{59, AlertMedium},
		{60, AlertHigh},
		{79, AlertHigh},
		{80, AlertCritical},
		{250, AlertCritical},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, AlertLevelFor(tt.total), "total=%d", tt.total)
	}
}

func TestEngagementScoreChannelSum(t *testing.T) {
	e := EngagementScore{
		CallScore:        40,
		DocumentScore:    35,
		WebActivityScore: 5,
		SocialScore:      0,
	}
	assert.Equal(t, 80, e.ChannelSum())
}

func TestCallStatsRates(t *testing.T) {
	s := CallStats{TotalCalls: 60, Appointments: 20, Rejections: 45}
	assert.InDelta(t, 33.33, s.AppointmentRate(), 0.01)
	assert.InDelta(t, 0.75, s.RejectionRatio(), 0.001)

	empty := CallStats{}
	assert.Zero(t, empty.AppointmentRate())
	assert.Zero(t, empty.RejectionRatio())
}
