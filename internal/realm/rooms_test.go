package realm

import (
	"testing"
	"time"
)

func newTestManager() *Manager { return NewManager(5, 10) }

func TestJoinCreatesRoomLazily(t *testing.T) {
	m := newTestManager()
	rnd := NewRand(1)
	now := time.Now()

	if m.Count() != 0 {
		t.Fatalf("fresh manager has %d rooms", m.Count())
	}
	room := m.GetOrCreate("soul-1", "Galatea", rnd, now)
	if m.Count() != 1 {
		t.Fatalf("room count = %d, want 1", m.Count())
	}
	if len(room.phantoms) != 5 {
		t.Errorf("roster size = %d, want 5", len(room.phantoms))
	}
	again := m.GetOrCreate("soul-1", "Galatea", rnd, now)
	if again != room {
		t.Error("second join should return the same room")
	}
}

func TestAtmosphereSteps(t *testing.T) {
	cases := []struct {
		occupants int
		want      Atmosphere
	}{
		{0, AtmosphereDormant},
		{1, AtmosphereQuiet},
		{3, AtmosphereQuiet},
		{4, AtmosphereLively},
		{8, AtmosphereLively},
		{9, AtmosphereElectric},
	}
	for _, c := range cases {
		if got := AtmosphereFor(c.occupants); got != c.want {
			t.Errorf("AtmosphereFor(%d) = %s, want %s", c.occupants, got, c.want)
		}
	}
}

func TestEnergyClamped(t *testing.T) {
	room := newRoom("s", "Galatea", nil, 10, time.Now())
	if got := room.BumpEnergy(5); got != 1 {
		t.Errorf("energy should clamp to 1, got %f", got)
	}
	if got := room.BumpEnergy(-5); got != 0 {
		t.Errorf("energy should clamp to 0, got %f", got)
	}
}

func TestHistoryRingBounded(t *testing.T) {
	room := newRoom("s", "Galatea", nil, 3, time.Now())
	for i := 0; i < 5; i++ {
		room.AppendHistory(HistoryEntry{Author: "u", Message: string(rune('a' + i))})
	}
	got := room.History()
	if len(got) != 3 {
		t.Fatalf("history length = %d, want 3", len(got))
	}
	want := []string{"c", "d", "e"}
	for i := range want {
		if got[i].Message != want[i] {
			t.Errorf("history[%d] = %q, want %q", i, got[i].Message, want[i])
		}
	}
}

func TestLeaveStartsIdleCountdown(t *testing.T) {
	m := newTestManager()
	rnd := NewRand(1)
	now := time.Now()
	room := m.GetOrCreate("soul-1", "Galatea", rnd, now)
	room.Join("u1", "orpheus", now)

	removed, empty := room.Leave("u1", now)
	if !removed || !empty {
		t.Fatalf("leave: removed=%v empty=%v, want both true", removed, empty)
	}
	if m.Count() != 1 {
		t.Fatal("room must not be torn down immediately on empty")
	}

	// Not yet past the TTL.
	if reaped := m.ReapIdle(now.Add(30*time.Minute), time.Hour); len(reaped) != 0 {
		t.Errorf("reaped %v before TTL elapsed", reaped)
	}
	// Past the TTL.
	reaped := m.ReapIdle(now.Add(2*time.Hour), time.Hour)
	if len(reaped) != 1 || reaped[0] != "soul-1" {
		t.Errorf("reaped = %v, want [soul-1]", reaped)
	}
	if m.Count() != 0 {
		t.Errorf("room count after reap = %d, want 0", m.Count())
	}
}

func TestRejoinCancelsIdleCountdown(t *testing.T) {
	m := newTestManager()
	rnd := NewRand(1)
	now := time.Now()
	room := m.GetOrCreate("soul-1", "Galatea", rnd, now)
	room.Join("u1", "orpheus", now)
	room.Leave("u1", now)
	room.Join("u2", "eurydice", now.Add(time.Minute))

	if reaped := m.ReapIdle(now.Add(48*time.Hour), time.Hour); len(reaped) != 0 {
		t.Errorf("occupied room reaped: %v", reaped)
	}
}

func TestRecordActivityUnknownUser(t *testing.T) {
	room := newRoom("s", "Galatea", nil, 10, time.Now())
	if _, ok := room.RecordActivity("ghost", time.Now()); ok {
		t.Error("activity recorded for a user who never joined")
	}
}

func TestRoomReactAppliesEnergyDelta(t *testing.T) {
	now := time.Now()
	room := newRoom("s", "Galatea", tipRoster(), 10, now)
	before := room.Energy()
	room.React(TriggerEvent{Category: TriggerTipGiven, Username: "orpheus", Amount: 40}, alwaysRand{Rand: NewRand(1)}, now, time.Second)
	if after := room.Energy(); after <= before {
		t.Errorf("tip should raise room energy: %f -> %f", before, after)
	}
}
