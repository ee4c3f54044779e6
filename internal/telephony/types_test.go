package telephony

import (
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to EventType
		want     bool
	}{
		{EventInitiated, EventRinging, true},
		{EventInitiated, EventAnswered, true},
		{EventInitiated, EventEnded, true},
		{EventRinging, EventAnswered, true},
		{EventAnswered, EventEnded, true},
		{EventInitiated, EventFailed, true},
		{EventRinging, EventFailed, true},
		{EventAnswered, EventFailed, true},
		// No going back and no leaving terminal states.
		{EventRinging, EventInitiated, false},
		{EventAnswered, EventRinging, false},
		{EventEnded, EventAnswered, false},
		{EventEnded, EventFailed, false},
		{EventFailed, EventEnded, false},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestCallMetadataValidate(t *testing.T) {
	valid := CallMetadata{
		CallerNumber:   "+15551230000",
		CalledNumber:   "+15559876543",
		ProviderCallID: "pbx-1",
		OccurredAt:     time.Now(),
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid metadata rejected: %v", err)
	}

	for name, mutate := range map[string]func(*CallMetadata){
		"missing caller":    func(m *CallMetadata) { m.CallerNumber = "" },
		"missing called":    func(m *CallMetadata) { m.CalledNumber = "" },
		"missing call id":   func(m *CallMetadata) { m.ProviderCallID = "" },
		"missing timestamp": func(m *CallMetadata) { m.OccurredAt = time.Time{} },
	} {
		md := valid
		mutate(&md)
		if err := md.Validate(); err != ErrInvalidMetadata {
			t.Errorf("%s: expected ErrInvalidMetadata, got %v", name, err)
		}
	}
}
