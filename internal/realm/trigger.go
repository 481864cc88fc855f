package realm

import (
	"sort"
	"time"
)

// TriggerCategory classifies an inbound room event for the phantom engine.
type TriggerCategory string

const (
	TriggerUserJoined   TriggerCategory = "user_joined"
	TriggerUserMessage  TriggerCategory = "user_message"
	TriggerTipGiven     TriggerCategory = "tip_given"
	TriggerCompliment   TriggerCategory = "compliment_given"
	TriggerPurchaseMade TriggerCategory = "purchase_made"
	TriggerUserLeft     TriggerCategory = "user_left"
	TriggerSilence      TriggerCategory = "silence_elapsed"
	TriggerAmbient      TriggerCategory = "ambient"
)

type triggerDef struct {
	BaseProbability float64
	EnergyDelta     float64
}

var triggerDefs = map[TriggerCategory]triggerDef{
	TriggerUserJoined:   {BaseProbability: 0.9, EnergyDelta: 0.1},
	TriggerUserMessage:  {BaseProbability: 0.25, EnergyDelta: 0.05},
	TriggerTipGiven:     {BaseProbability: 0.8, EnergyDelta: 0.2},
	TriggerCompliment:   {BaseProbability: 0.5, EnergyDelta: 0.1},
	TriggerPurchaseMade: {BaseProbability: 0.9, EnergyDelta: 0.25},
	TriggerUserLeft:     {BaseProbability: 0.3, EnergyDelta: -0.05},
	TriggerSilence:      {BaseProbability: 0.6, EnergyDelta: -0.02},
	TriggerAmbient:      {BaseProbability: 0.4, EnergyDelta: 0},
}

// MaxRespondents caps simultaneous phantom reactions to one event.
const MaxRespondents = 3

// Phantoms active within this window get their trigger odds damped.
const recentActivityDamp = 30 * time.Second

// EnergyDeltaFor returns the room-energy shift a category carries. Tips
// scale with amount, capped.
func EnergyDeltaFor(cat TriggerCategory, amount float64) float64 {
	def := triggerDefs[cat]
	if cat == TriggerTipGiven && amount > 0 {
		d := amount / 200
		if d > 0.3 {
			d = 0.3
		}
		return d
	}
	return def.EnergyDelta
}

// TriggerEvent is a classified room event handed to the phantom engine.
type TriggerEvent struct {
	Category TriggerCategory
	Username string
	SoulName string
	Amount   float64
}

// PhantomReaction is one selected phantom's templated response with its
// relative delivery delay.
type PhantomReaction struct {
	PhantomID   string
	PhantomName string
	Message     string
	Delay       time.Duration
}

// React selects up to MaxRespondents phantoms for ev, renders their
// templates, assigns staggered delays and marks cooldowns. phantoms and
// cooldowns belong to the caller's room; the caller must hold its lock.
func React(phantoms []*Phantom, cooldowns map[string]time.Time, ev TriggerEvent, rnd Rand, now time.Time, stagger time.Duration) []PhantomReaction {
	def, ok := triggerDefs[ev.Category]
	if !ok {
		return nil
	}

	var eligible []*Phantom
	for _, ph := range phantoms {
		adef, ok := DefFor(ph.Archetype)
		if !ok {
			continue
		}
		if _, reacts := adef.Pools[ev.Category]; !reacts {
			continue
		}
		if now.Before(cooldowns[ph.ID]) {
			continue
		}
		prob := def.BaseProbability
		if adef.Enthusiasm > 0.8 {
			prob *= 1.2
		}
		if adef.Mystery > 0.7 {
			prob *= 0.8
		}
		if !ph.LastActive.IsZero() && now.Sub(ph.LastActive) < recentActivityDamp {
			prob *= 0.3
		}
		if prob > 0.95 {
			prob = 0.95
		}
		if rnd.Float64() < prob {
			eligible = append(eligible, ph)
		}
	}
	if len(eligible) == 0 {
		return nil
	}

	// Most devoted archetypes speak first.
	sort.SliceStable(eligible, func(i, j int) bool {
		di, _ := DefFor(eligible[i].Archetype)
		dj, _ := DefFor(eligible[j].Archetype)
		return di.Devotion > dj.Devotion
	})
	if len(eligible) > MaxRespondents {
		eligible = eligible[:MaxRespondents]
	}

	fill := Fill{Username: ev.Username, SoulName: ev.SoulName, Amount: ev.Amount}
	reactions := make([]PhantomReaction, 0, len(eligible))
	var prev time.Duration
	for i, ph := range eligible {
		adef, _ := DefFor(ph.Archetype)
		delay := adef.BaseDelay + time.Duration(i)*stagger
		// Staggered reactions must land one after another even when a
		// slower archetype spoke first.
		if i > 0 && delay <= prev {
			delay = prev + stagger
		}
		prev = delay
		reactions = append(reactions, PhantomReaction{
			PhantomID:   ph.ID,
			PhantomName: ph.Name,
			Message:     PickTemplate(adef.Pools[ev.Category], rnd).Render(fill),
			Delay:       delay,
		})
		cooldowns[ph.ID] = now.Add(adef.Cooldown + delay)
		ph.LastActive = now
		ph.MessageCount++
	}
	return reactions
}
