package businessflow

import (
	"time"

	"github.com/amirphl/gateway-campaign-broker/utils"
)

// SendTimeScheduler computes gateway-legal send times
type SendTimeScheduler struct {
	lead        time.Duration
	granularity time.Duration
}

// NewSendTimeScheduler creates a scheduler with the gateway's lead time and minute granularity
func NewSendTimeScheduler() *SendTimeScheduler {
	return &SendTimeScheduler{
		lead:        utils.MinimumSendLead,
		granularity: utils.SendTimeGranularity,
	}
}

// Legalize returns the earliest legal send time not before requested.
// The result is at least now+lead, has zero seconds, and its minute is a multiple of the granularity.
func (s *SendTimeScheduler) Legalize(requested *time.Time, now time.Time) time.Time {
	earliest := now.Add(s.lead)
	t := earliest
	if requested != nil && requested.After(earliest) {
		t = *requested
	}

	// round up, never down, so the result stays at or after t
	if whole := t.Truncate(time.Minute); whole.Before(t) {
		t = whole.Add(time.Minute)
	}
	step := int(s.granularity / time.Minute)
	if rem := t.Minute() % step; rem != 0 {
		t = t.Add(time.Duration(step-rem) * time.Minute)
	}
	// aligned slots stay aligned when stepped by the granularity
	for t.Before(earliest) {
		t = t.Add(s.granularity)
	}
	return t
}

// IsLegal reports whether t could still be sent to the gateway as is
func (s *SendTimeScheduler) IsLegal(t, now time.Time) bool {
	if t.Before(now.Add(s.lead)) {
		return false
	}
	return t.Second() == 0 && t.Nanosecond() == 0 && t.Minute()%int(s.granularity/time.Minute) == 0
}
