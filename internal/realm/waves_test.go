package realm

import (
	"testing"
	"time"
)

func TestFireTimesAccumulate(t *testing.T) {
	now := time.Unix(1000, 0)
	waves := []Wave{
		{Content: "a", Delay: time.Second},
		{Content: PauseMarker, Delay: 2 * time.Second},
		{Content: "b", Delay: 3 * time.Second},
	}
	times := FireTimes(now, waves)
	want := []time.Time{
		now.Add(time.Second),
		now.Add(3 * time.Second),
		now.Add(6 * time.Second),
	}
	for i := range want {
		if !times[i].Equal(want[i]) {
			t.Errorf("wave %d fires at %v, want %v", i, times[i], want[i])
		}
	}
}

func TestComposeReplyDepthFollowsBond(t *testing.T) {
	rnd := NewRand(3)
	f := Fill{Username: "orpheus"}

	shallow := ComposeReply(BondRecord{Score: 5, Tier: TierStranger}, f, rnd)
	if len(shallow) != 1 {
		t.Errorf("low bond: got %d waves, want 1", len(shallow))
	}

	mid := ComposeReply(BondRecord{Score: 30, Tier: TierFlirty}, f, rnd)
	if len(mid) != 2 {
		t.Errorf("mid bond: got %d waves, want 2", len(mid))
	}

	deep := ComposeReply(BondRecord{Score: 80, Tier: TierDevoted}, f, rnd)
	if len(deep) != 4 {
		t.Fatalf("high bond: got %d waves, want 4", len(deep))
	}
	if !deep[2].IsPause() {
		t.Errorf("wave 3 should be the pause marker, got %q", deep[2].Content)
	}
	if deep[3].IsPause() {
		t.Error("closing wave must be a real message")
	}
}

func TestComposeReplyNeverEmpty(t *testing.T) {
	rnd := NewRand(3)
	for tier := TierStranger; tier <= TierSoulmate; tier++ {
		waves := ComposeReply(BondRecord{Score: 0, Tier: tier}, Fill{}, rnd)
		if len(waves) == 0 {
			t.Errorf("tier %s produced no waves", tier)
		}
		if waves[0].Content == "" || waves[0].IsPause() {
			t.Errorf("tier %s first wave must be a real message, got %q", tier, waves[0].Content)
		}
	}
}
