package realm

import (
	"fmt"
	"time"
)

// Tier is the escalation level derived from the bond score.
type Tier int

const (
	TierStranger Tier = iota
	TierCurious
	TierFlirty
	TierRomantic
	TierDevoted
	TierSoulmate
)

var tierNames = map[Tier]string{
	TierStranger: "stranger",
	TierCurious:  "curious",
	TierFlirty:   "flirty",
	TierRomantic: "romantic",
	TierDevoted:  "devoted",
	TierSoulmate: "soulmate",
}

func (t Tier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return "stranger"
}

// TierFor is a step function of the bond score.
func TierFor(score float64) Tier {
	switch {
	case score >= 90:
		return TierSoulmate
	case score >= 75:
		return TierDevoted
	case score >= 50:
		return TierRomantic
	case score >= 25:
		return TierFlirty
	case score >= 10:
		return TierCurious
	default:
		return TierStranger
	}
}

// MaxBondDeltaPerEvent caps how much a single event can move the score, so
// one oversized offering cannot jump a stranger straight to soulmate.
const MaxBondDeltaPerEvent = 8.0

// Per-category increments and offering rates (per 10 currency units).
const (
	bondRomantic      = 1.5
	bondValidation    = 1.0
	bondVulnerability = 2.0
	bondFrequency     = 0.5
	tipRate           = 0.5
	giftRate          = 1.0
	bondDecayPerHour  = 0.5
)

// Offering types accepted on the wire.
const (
	OfferingTip  = "tip"
	OfferingGift = "gift"
)

// Milestone is a one-shot marker in a bond's history.
type Milestone string

const (
	MilestoneFirstCompliment Milestone = "first_compliment"
	MilestoneFirstIntimate   Milestone = "first_intimate"
	MilestoneFirstOffering   Milestone = "first_offering"
	MilestoneFirstPurchase   Milestone = "first_purchase"
)

func tierMilestone(t Tier) Milestone {
	return Milestone(fmt.Sprintf("tier_%s", t))
}

// BondRecord tracks one user's relationship with one soul.
type BondRecord struct {
	Score      float64
	Tier       Tier
	TotalValue float64
	Milestones []Milestone
	LastEvent  time.Time
}

// HasMilestone reports whether m was already logged.
func (r BondRecord) HasMilestone(m Milestone) bool {
	for _, have := range r.Milestones {
		if have == m {
			return true
		}
	}
	return false
}

// BondEvent is one scored inbound interaction.
type BondEvent struct {
	Romantic      bool
	Validation    bool
	Vulnerability bool

	OfferingType   string
	OfferingAmount float64

	Purchase       bool
	PurchaseAmount float64

	SessionCount int
	At           time.Time
}

// ApplyBondEvent folds one event into the record. The delta is capped at
// MaxBondDeltaPerEvent and the score clamped to [0,100]. Milestones append
// at most once each; reapplying a logged milestone is a no-op.
func ApplyBondEvent(r BondRecord, ev BondEvent) BondRecord {
	out := r
	out.Milestones = append([]Milestone(nil), r.Milestones...)

	var delta float64
	if ev.Romantic {
		delta += bondRomantic
	}
	if ev.Validation {
		delta += bondValidation
	}
	if ev.Vulnerability {
		delta += bondVulnerability
	}
	if ev.OfferingAmount > 0 {
		rate := tipRate
		if ev.OfferingType == OfferingGift {
			rate = giftRate
		}
		delta += ev.OfferingAmount / 10 * rate
		out.TotalValue += ev.OfferingAmount
	}
	if ev.Purchase {
		out.TotalValue += ev.PurchaseAmount
	}
	if ev.SessionCount >= 3 {
		delta += bondFrequency
	}
	if delta > MaxBondDeltaPerEvent {
		delta = MaxBondDeltaPerEvent
	}

	out.Score = clampBond(out.Score + delta)
	out.LastEvent = ev.At

	if ev.Validation {
		out = logMilestone(out, MilestoneFirstCompliment)
	}
	if ev.Romantic || ev.Vulnerability {
		out = logMilestone(out, MilestoneFirstIntimate)
	}
	if ev.OfferingAmount > 0 {
		out = logMilestone(out, MilestoneFirstOffering)
	}
	if ev.Purchase {
		out = logMilestone(out, MilestoneFirstPurchase)
	}

	next := TierFor(out.Score)
	if next > out.Tier {
		for t := out.Tier + 1; t <= next; t++ {
			out = logMilestone(out, tierMilestone(t))
		}
	}
	out.Tier = next
	return out
}

// DecayBond reduces the score of a record idle for the given duration.
// The score floors at zero and the tier is recomputed downward.
func DecayBond(r BondRecord, idleFor time.Duration) BondRecord {
	out := r
	hours := idleFor.Hours()
	if hours <= 0 {
		return out
	}
	out.Score = clampBond(out.Score - hours*bondDecayPerHour)
	out.Tier = TierFor(out.Score)
	return out
}

// Perk is a feature unlocked by cumulative contributed value.
type Perk string

const (
	PerkNicknames  Perk = "nicknames"
	PerkVoiceNotes Perk = "voice_notes"
	PerkGallery    Perk = "gallery"
	PerkMemory     Perk = "personal_memory"
)

var perkThresholds = []struct {
	Value float64
	Perk  Perk
}{
	{25, PerkNicknames},
	{50, PerkVoiceNotes},
	{100, PerkGallery},
	{200, PerkMemory},
}

// UnlockedPerks derives the perk set from cumulative contributed value.
func (r BondRecord) UnlockedPerks() []Perk {
	var perks []Perk
	for _, p := range perkThresholds {
		if r.TotalValue >= p.Value {
			perks = append(perks, p.Perk)
		}
	}
	return perks
}

func logMilestone(r BondRecord, m Milestone) BondRecord {
	if r.HasMilestone(m) {
		return r
	}
	r.Milestones = append(r.Milestones, m)
	return r
}

func clampBond(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
