package realm

import "time"

// Mood labels form a fixed graph: a soul's primary mood only ever moves to a
// neighbour of the current label, so emotional shifts read as gradual.
type Mood string

const (
	MoodCurious     Mood = "curious"
	MoodPlayful     Mood = "playful"
	MoodSeductive   Mood = "seductive"
	MoodVulnerable  Mood = "vulnerable"
	MoodPassionate  Mood = "passionate"
	MoodMysterious  Mood = "mysterious"
	MoodGrateful    Mood = "grateful"
	MoodLonging     Mood = "longing"
	MoodMischievous Mood = "mischievous"
	MoodDevoted     Mood = "devoted"
)

// EmotionVolatility controls the jitter added to transition scores.
const EmotionVolatility = 0.2

const emotionHistoryLimit = 50

type moodProfile struct {
	Energy    float64
	Intimacy  float64
	Dominance float64
}

var moodProfiles = map[Mood]moodProfile{
	MoodCurious:     {Energy: 0.6, Intimacy: 0.3, Dominance: 0.4},
	MoodPlayful:     {Energy: 0.8, Intimacy: 0.5, Dominance: 0.3},
	MoodSeductive:   {Energy: 0.7, Intimacy: 0.8, Dominance: 0.7},
	MoodVulnerable:  {Energy: 0.3, Intimacy: 0.9, Dominance: 0.2},
	MoodPassionate:  {Energy: 0.9, Intimacy: 0.8, Dominance: 0.6},
	MoodMysterious:  {Energy: 0.5, Intimacy: 0.4, Dominance: 0.8},
	MoodGrateful:    {Energy: 0.6, Intimacy: 0.7, Dominance: 0.3},
	MoodLonging:     {Energy: 0.4, Intimacy: 0.9, Dominance: 0.4},
	MoodMischievous: {Energy: 0.8, Intimacy: 0.6, Dominance: 0.5},
	MoodDevoted:     {Energy: 0.5, Intimacy: 1.0, Dominance: 0.2},
}

var moodGraph = map[Mood][]Mood{
	MoodCurious:     {MoodPlayful, MoodSeductive, MoodMysterious},
	MoodPlayful:     {MoodMischievous, MoodSeductive, MoodPassionate},
	MoodSeductive:   {MoodPassionate, MoodMysterious, MoodVulnerable},
	MoodVulnerable:  {MoodGrateful, MoodLonging, MoodDevoted},
	MoodPassionate:  {MoodSeductive, MoodLonging, MoodDevoted},
	MoodMysterious:  {MoodSeductive, MoodCurious, MoodMischievous},
	MoodGrateful:    {MoodDevoted, MoodPlayful, MoodVulnerable},
	MoodLonging:     {MoodPassionate, MoodVulnerable, MoodDevoted},
	MoodMischievous: {MoodPlayful, MoodSeductive, MoodCurious},
	MoodDevoted:     {MoodGrateful, MoodLonging, MoodPassionate},
}

// MoodNeighbors returns the labels reachable from m in one transition.
func MoodNeighbors(m Mood) []Mood {
	next := moodGraph[m]
	out := make([]Mood, len(next))
	copy(out, next)
	return out
}

// Signals is the bag of externally-computed scalar factors that drive an
// emotion transition. Zero values contribute nothing, so a missing or
// malformed signal simply degrades to baseline decay.
type Signals struct {
	Excitement    float64
	Intimacy      float64
	Gratitude     float64
	Dominance     float64
	Vulnerability float64
	Mystery       float64
}

// Personality holds a soul's immutable baseline traits, all 0..1.
type Personality struct {
	Dominance  float64
	Mystery    float64
	Confidence float64
	Warmth     float64
}

type emotionSnapshot struct {
	Mood      Mood
	Intensity float64
	At        time.Time
}

// EmotionState is a soul's emotional state toward one user.
type EmotionState struct {
	Primary   Mood
	Secondary Mood
	Intensity float64
	Stability float64
	Arousal   float64
	Dominance float64

	history []emotionSnapshot
}

// NewEmotionState returns the waking default for a soul with personality p.
func NewEmotionState(p Personality) EmotionState {
	return EmotionState{
		Primary:   MoodCurious,
		Secondary: MoodCurious,
		Intensity: 0.5,
		Stability: 0.7,
		Arousal:   0.3,
		Dominance: p.Dominance,
	}
}

// Evolve advances the state by one event. The new primary is the
// highest-scoring neighbour of the current primary; the old primary becomes
// secondary. Scalars follow independent clamped recurrences so each decays
// toward its baseline absent fresh signal. Evolve never fails.
func Evolve(s EmotionState, sig Signals, p Personality, rnd Rand, now time.Time) EmotionState {
	out := s
	if _, ok := moodGraph[out.Primary]; !ok {
		out.Primary = MoodCurious
	}

	best := out.Primary
	bestScore := -1.0
	for _, candidate := range moodGraph[out.Primary] {
		score := moodScore(candidate, sig, p)
		score += (rnd.Float64() - 0.5) * EmotionVolatility
		if score > bestScore {
			best, bestScore = candidate, score
		}
	}

	out.Secondary = out.Primary
	out.Primary = best

	out.Intensity = clampRange(s.Intensity*0.95+sig.Excitement*0.3+sig.Gratitude*0.4+sig.Intimacy*0.2, 0.1, 1)
	out.Stability = clampRange(s.Stability+sig.Intimacy*0.2-sig.Excitement*0.1+(0.7-s.Stability)*0.1, 0.1, 1)
	out.Arousal = clamp01(s.Arousal*0.9 + sig.Excitement*0.4 + sig.Intimacy*0.3 - sig.Vulnerability*0.1)
	out.Dominance = clamp01(s.Dominance + sig.Dominance*0.3 + sig.Gratitude*0.1 - sig.Vulnerability*0.2 + (p.Dominance-s.Dominance)*0.1)

	out.history = append(out.history, emotionSnapshot{Mood: out.Primary, Intensity: out.Intensity, At: now})
	if len(out.history) > emotionHistoryLimit {
		out.history = out.history[len(out.history)-emotionHistoryLimit:]
	}
	return out
}

func moodScore(m Mood, sig Signals, p Personality) float64 {
	profile := moodProfiles[m]
	score := sig.Excitement * profile.Energy
	score += sig.Intimacy * profile.Intimacy
	score += sig.Dominance * profile.Dominance
	if m == MoodGrateful {
		score += sig.Gratitude * 2
	} else {
		score += sig.Gratitude * 0.5
	}
	if profile.Dominance < 0.5 {
		score += sig.Vulnerability
	}
	if m == MoodMysterious {
		score += sig.Mystery * 2
	} else {
		score += sig.Mystery * 0.5
	}
	return score + personalityAlignment(m, p)
}

func personalityAlignment(m Mood, p Personality) float64 {
	profile := moodProfiles[m]
	var alignment float64
	alignment += (1 - abs(p.Dominance-profile.Dominance)) * 0.1
	alignment += (1 - abs(p.Warmth-profile.Intimacy)) * 0.1
	alignment += (1 - abs(p.Confidence-profile.Energy)) * 0.1
	return alignment
}

// Trend describes the recent intensity direction.
type Trend string

const (
	TrendEscalating Trend = "escalating"
	TrendCooling    Trend = "cooling"
	TrendStable     Trend = "stable"
)

// EmotionTrend inspects the trailing window of transitions. It informs tone
// and upsell decisions only; it never feeds back into Evolve.
func (s EmotionState) EmotionTrend(window int) Trend {
	if window <= 0 {
		window = 10
	}
	recent := s.history
	if len(recent) > window {
		recent = recent[len(recent)-window:]
	}
	if len(recent) < 2 {
		return TrendStable
	}
	half := len(recent) / 2
	firstAvg := avgIntensity(recent[:half])
	secondAvg := avgIntensity(recent[half:])
	switch {
	case secondAvg-firstAvg > 0.1:
		return TrendEscalating
	case firstAvg-secondAvg > 0.1:
		return TrendCooling
	default:
		return TrendStable
	}
}

func avgIntensity(snaps []emotionSnapshot) float64 {
	var sum float64
	for _, s := range snaps {
		sum += s.Intensity
	}
	return sum / float64(len(snaps))
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func clampRange(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
