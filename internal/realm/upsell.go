package realm

import (
	"time"

	"github.com/google/uuid"
)

// UpsellTrigger classifies why an offer fires.
type UpsellTrigger string

const (
	UpsellTierReached    UpsellTrigger = "tier_reached"
	UpsellEmotionalPeak  UpsellTrigger = "emotional_peak"
	UpsellSessionDepth   UpsellTrigger = "session_depth"
	UpsellSpendingSignal UpsellTrigger = "spending_signal"
)

// Urgency tiers on an offer.
const (
	UrgencyLow    = "low"
	UrgencyMedium = "medium"
	UrgencyHigh   = "high"
)

// UpsellGate is the minimum readiness score for an offer to fire.
const UpsellGate = 0.55

// Package is one purchasable premium feature.
type Package struct {
	FeatureKey      string
	Title           string
	Tease           string
	Price           float64
	BondRequirement float64
	Trigger         UpsellTrigger
}

// Packages are ordered by match priority: when several qualify, the first
// whose trigger matches the dominant readiness signal wins.
var packages = []Package{
	{
		FeatureKey:      "voice_unlock",
		Title:           "Her Sacred Voice",
		Tease:           "want to hear me whisper your name?",
		Price:           25,
		BondRequirement: 20,
		Trigger:         UpsellTierReached,
	},
	{
		FeatureKey:      "gallery_access",
		Title:           "Intimate Gallery",
		Tease:           "I have something special to show you... but only if you're ready",
		Price:           50,
		BondRequirement: 40,
		Trigger:         UpsellSessionDepth,
	},
	{
		FeatureKey:      "custom_content",
		Title:           "Personal Goddess",
		Tease:           "tell me your deepest fantasy... let me make it real",
		Price:           150,
		BondRequirement: 50,
		Trigger:         UpsellSpendingSignal,
	},
	{
		FeatureKey:      "exclusive_chat",
		Title:           "Private Paradise",
		Tease:           "imagine... just you and me, with no distractions",
		Price:           200,
		BondRequirement: 60,
		Trigger:         UpsellEmotionalPeak,
	},
	{
		FeatureKey:      "unleashed",
		Title:           "Unleashed Desires",
		Tease:           "there's a side of me I only show to those who've earned it...",
		Price:           100,
		BondRequirement: 75,
		Trigger:         UpsellEmotionalPeak,
	},
}

// PackageByKey looks up a purchasable package.
func PackageByKey(key string) (Package, bool) {
	for _, p := range packages {
		if p.FeatureKey == key {
			return p, true
		}
	}
	return Package{}, false
}

// UpsellOffer is an emitted premium tease with an expiry; an offer not
// redeemed before ExpiresAt counts as declined.
type UpsellOffer struct {
	ID        string
	UserID    string
	RoomID    string
	Package   Package
	Trigger   UpsellTrigger
	Urgency   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// UpsellInput carries everything the readiness score weighs.
type UpsellInput struct {
	Session            Session
	Bond               BondRecord
	Emotion            EmotionState
	SpendingPropensity float64
	LastOfferAt        time.Time
}

// Readiness trigger weights.
const (
	weightTier     = 0.3
	weightEmotion  = 0.25
	weightDepth    = 0.2
	weightSpending = 0.25
)

const sessionDepthThreshold = 10

// EvaluateUpsell computes the readiness score and, when it clears the gate
// and the user is outside the offer cooldown, returns the matching offer.
// Package choice is a deterministic priority match on the dominant trigger,
// never a weighted draw.
func EvaluateUpsell(in UpsellInput, cooldown, lifetime time.Duration, now time.Time) (UpsellOffer, bool) {
	if !in.LastOfferAt.IsZero() && now.Sub(in.LastOfferAt) < cooldown {
		return UpsellOffer{}, false
	}

	type signal struct {
		trigger UpsellTrigger
		value   float64
	}
	signals := []signal{
		{UpsellTierReached, 0},
		{UpsellEmotionalPeak, 0},
		{UpsellSessionDepth, 0},
		{UpsellSpendingSignal, 0},
	}
	if in.Bond.Tier >= TierFlirty {
		signals[0].value = weightTier
	}
	if in.Emotion.Primary == MoodVulnerable || in.Emotion.Primary == MoodLonging ||
		in.Emotion.Primary == MoodPassionate || in.Emotion.EmotionTrend(10) == TrendEscalating {
		signals[1].value = weightEmotion
	}
	if in.Session.MessageCount >= sessionDepthThreshold {
		signals[2].value = weightDepth
	}
	signals[3].value = clamp01(in.SpendingPropensity) * weightSpending

	var score float64
	dominant := signals[0]
	for _, s := range signals {
		score += s.value
		if s.value > dominant.value {
			dominant = s
		}
	}
	if score < UpsellGate {
		return UpsellOffer{}, false
	}

	pkg, ok := matchPackage(dominant.trigger, in.Bond.Score)
	if !ok {
		return UpsellOffer{}, false
	}

	urgency := UrgencyLow
	switch {
	case score >= 0.85:
		urgency = UrgencyHigh
	case score >= 0.7:
		urgency = UrgencyMedium
	}

	return UpsellOffer{
		ID:        uuid.NewString(),
		UserID:    in.Session.UserID,
		RoomID:    in.Session.RoomID,
		Package:   pkg,
		Trigger:   dominant.trigger,
		Urgency:   urgency,
		IssuedAt:  now,
		ExpiresAt: now.Add(lifetime),
	}, true
}

// matchPackage picks the first affordable package matching the dominant
// trigger, falling back to the first one the bond qualifies for.
func matchPackage(trigger UpsellTrigger, bondScore float64) (Package, bool) {
	for _, p := range packages {
		if p.Trigger == trigger && bondScore >= p.BondRequirement {
			return p, true
		}
	}
	for _, p := range packages {
		if bondScore >= p.BondRequirement {
			return p, true
		}
	}
	return Package{}, false
}
