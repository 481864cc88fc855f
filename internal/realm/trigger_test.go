package realm

import (
	"testing"
	"time"
)

// alwaysRand forces every probability draw to succeed.
type alwaysRand struct{ Rand }

func (alwaysRand) Float64() float64 { return 0 }

// neverRand forces every probability draw to fail.
type neverRand struct{ Rand }

func (neverRand) Float64() float64 { return 1 }

func tipRoster() []*Phantom {
	return []*Phantom{
		{ID: "p1", Archetype: ArchetypeAmplifier, Name: "Zara"},
		{ID: "p2", Archetype: ArchetypeStatus, Name: "Seraphina"},
		{ID: "p3", Archetype: ArchetypeAdmirer, Name: "Bella_New"},
	}
}

func TestReactCapsAndStaggersRespondents(t *testing.T) {
	phantoms := tipRoster()
	cooldowns := map[string]time.Time{}
	now := time.Now()
	rnd := alwaysRand{Rand: NewRand(1)}
	stagger := 1500 * time.Millisecond

	reactions := React(phantoms, cooldowns, TriggerEvent{
		Category: TriggerTipGiven,
		Username: "orpheus",
		SoulName: "Galatea",
		Amount:   50,
	}, rnd, now, stagger)

	if len(reactions) != 3 {
		t.Fatalf("got %d reactions, want 3", len(reactions))
	}
	for i := 1; i < len(reactions); i++ {
		if reactions[i].Delay <= reactions[i-1].Delay {
			t.Errorf("delays not strictly increasing: %v then %v", reactions[i-1].Delay, reactions[i].Delay)
		}
	}
}

func TestReactRespectsCooldowns(t *testing.T) {
	phantoms := tipRoster()
	cooldowns := map[string]time.Time{}
	now := time.Now()
	rnd := alwaysRand{Rand: NewRand(1)}

	first := React(phantoms, cooldowns, TriggerEvent{Category: TriggerTipGiven, Amount: 10}, rnd, now, time.Second)
	if len(first) == 0 {
		t.Fatal("expected reactions on first event")
	}
	// Everyone who fired is now on cooldown. React must also damp phantoms
	// active within the last 30s, but cooldown alone excludes them here.
	second := React(phantoms, cooldowns, TriggerEvent{Category: TriggerTipGiven, Amount: 10}, rnd, now.Add(time.Second), time.Second)
	if len(second) != 0 {
		t.Errorf("got %d reactions within cooldown window, want 0", len(second))
	}

	// Well past every cooldown they fire again.
	later := now.Add(time.Hour)
	third := React(phantoms, cooldowns, TriggerEvent{Category: TriggerTipGiven, Amount: 10}, rnd, later, time.Second)
	if len(third) == 0 {
		t.Error("expected reactions once cooldowns expired")
	}
}

func TestReactFiltersByArchetypeEligibility(t *testing.T) {
	// The mentor does not react to tips.
	phantoms := []*Phantom{{ID: "m", Archetype: ArchetypeMentor, Name: "Athena_Divine"}}
	reactions := React(phantoms, map[string]time.Time{}, TriggerEvent{Category: TriggerTipGiven, Amount: 10},
		alwaysRand{Rand: NewRand(1)}, time.Now(), time.Second)
	if len(reactions) != 0 {
		t.Errorf("mentor reacted to a tip: %v", reactions)
	}
}

func TestReactNoTriggerWhenDrawFails(t *testing.T) {
	reactions := React(tipRoster(), map[string]time.Time{}, TriggerEvent{Category: TriggerTipGiven, Amount: 10},
		neverRand{Rand: NewRand(1)}, time.Now(), time.Second)
	if len(reactions) != 0 {
		t.Errorf("got %d reactions with a failing draw, want 0", len(reactions))
	}
}

func TestReactUnknownCategory(t *testing.T) {
	reactions := React(tipRoster(), map[string]time.Time{}, TriggerEvent{Category: "nonsense"},
		alwaysRand{Rand: NewRand(1)}, time.Now(), time.Second)
	if reactions != nil {
		t.Errorf("unknown category should produce nil, got %v", reactions)
	}
}

func TestEnergyDeltaForTipScalesWithAmount(t *testing.T) {
	if got := EnergyDeltaFor(TriggerTipGiven, 20); got != 0.1 {
		t.Errorf("tip 20: got %f, want 0.1", got)
	}
	if got := EnergyDeltaFor(TriggerTipGiven, 10000); got != 0.3 {
		t.Errorf("tip 10000 should cap at 0.3, got %f", got)
	}
	if got := EnergyDeltaFor(TriggerUserLeft, 0); got != -0.05 {
		t.Errorf("user_left: got %f, want -0.05", got)
	}
}

func TestTemplateRenderFillsTypedSlots(t *testing.T) {
	tmpl := tpl(lit("hey "), slot(PlaceholderUsername), lit(", "), slot(PlaceholderSoulName), lit(" got "), slot(PlaceholderAmount))
	got := tmpl.Render(Fill{Username: "orpheus", SoulName: "Galatea", Amount: 50})
	want := "hey orpheus, Galatea got 50"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	// Missing values render empty, never panic.
	empty := tmpl.Render(Fill{})
	if empty != "hey ,  got " {
		t.Errorf("empty fill: got %q", empty)
	}
}

func TestNewRosterAlwaysIncludesEssentials(t *testing.T) {
	rnd := NewRand(7)
	roster := NewRoster(rnd, 5)
	if len(roster) != 5 {
		t.Fatalf("roster size = %d, want 5", len(roster))
	}
	for _, want := range []Archetype{ArchetypeGreeter, ArchetypeAmplifier, ArchetypeStatus} {
		found := false
		for _, ph := range roster {
			if ph.Archetype == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("roster missing essential archetype %s", want)
		}
	}
}

func TestNewRosterClampsCohortSize(t *testing.T) {
	rnd := NewRand(7)
	if got := len(NewRoster(rnd, 1)); got != 3 {
		t.Errorf("undersized cohort: got %d, want 3", got)
	}
	if got := len(NewRoster(rnd, 50)); got != 7 {
		t.Errorf("oversized cohort: got %d, want 7", got)
	}
}
