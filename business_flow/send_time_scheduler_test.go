package businessflow

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/amirphl/gateway-campaign-broker/utils"
)

func TestSendTimeScheduler_Legalize(t *testing.T) {
	loc := utils.SeoulLocation()
	at := func(h, m, s int) time.Time { return time.Date(2026, 3, 2, h, m, s, 0, loc) }
	ptr := func(t time.Time) *time.Time { return &t }

	tests := []struct {
		name      string
		now       time.Time
		requested *time.Time
		want      time.Time
	}{
		{"as soon as possible", at(11, 13, 45), nil, at(12, 20, 0)},
		{"already on the grid", at(11, 10, 0), nil, at(12, 10, 0)},
		{"seconds past the grid", at(11, 10, 1), nil, at(12, 20, 0)},
		{"requested too early", at(11, 13, 45), ptr(at(11, 30, 0)), at(12, 20, 0)},
		{"requested later is rounded up", at(9, 0, 0), ptr(at(15, 41, 30)), at(15, 50, 0)},
		{"requested later on the grid", at(9, 0, 0), ptr(at(15, 40, 0)), at(15, 40, 0)},
		{"requested seconds are never dropped", at(9, 0, 0), ptr(at(15, 40, 30)), at(15, 50, 0)},
		{"rolls over the hour", at(10, 55, 0), nil, at(12, 0, 0)},
		{"rolls over the day", at(23, 51, 0), nil, time.Date(2026, 3, 3, 1, 0, 0, 0, loc)},
	}

	s := NewSendTimeScheduler()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Legalize(tt.requested, tt.now)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
			assert.True(t, s.IsLegal(got, tt.now))
		})
	}
}

func TestSendTimeScheduler_Properties(t *testing.T) {
	s := NewSendTimeScheduler()
	rng := rand.New(rand.NewPCG(7, 11))
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 2000; i++ {
		now := base.Add(time.Duration(rng.Int64N(int64(90 * 24 * time.Hour))))
		var requested *time.Time
		if rng.IntN(2) == 0 {
			r := now.Add(time.Duration(rng.Int64N(int64(72*time.Hour))) - 24*time.Hour)
			requested = &r
		}

		got := s.Legalize(requested, now)
		if !assert.False(t, got.Before(now.Add(time.Hour)), "now=%s requested=%v got=%s", now, requested, got) {
			return
		}
		assert.Zero(t, got.Minute()%10)
		assert.Zero(t, got.Second())
		assert.Zero(t, got.Nanosecond())
		if requested != nil && requested.After(now.Add(time.Hour)) {
			assert.False(t, got.Before(*requested))
			assert.Less(t, got.Sub(*requested), 11*time.Minute)
		}
	}
}

func TestSendTimeScheduler_NeverBeforeLead(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	zones := []*time.Location{time.UTC, utils.SeoulLocation(), time.FixedZone("NPT", 5*3600+45*60)}
	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	for _, lead := range []time.Duration{time.Minute, 7 * time.Minute, time.Hour} {
		for _, granularity := range []time.Duration{time.Minute, 5 * time.Minute, 15 * time.Minute, 30 * time.Minute} {
			s := &SendTimeScheduler{lead: lead, granularity: granularity}
			for i := 0; i < 200; i++ {
				now := base.Add(time.Duration(rng.Int64N(int64(48 * time.Hour)))).In(zones[i%len(zones)])
				got := s.Legalize(nil, now)
				if !assert.False(t, got.Before(now.Add(lead)), "lead=%s granularity=%s now=%s got=%s", lead, granularity, now, got) {
					return
				}
				assert.Zero(t, got.Minute()%int(granularity/time.Minute))
			}
		}
	}
}

func TestSendTimeScheduler_IsLegal(t *testing.T) {
	s := NewSendTimeScheduler()
	now := time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC)

	assert.True(t, s.IsLegal(now.Add(time.Hour), now))
	assert.False(t, s.IsLegal(now.Add(50*time.Minute), now))
	assert.False(t, s.IsLegal(now.Add(2*time.Hour+5*time.Minute), now))
	assert.False(t, s.IsLegal(now.Add(2*time.Hour+time.Second), now))
}
