// Package sentiment scores free text into the factor bag the realm engine
// consumes. Keyword buckets and punctuation heuristics only; any scorer
// that fills the same Factors contract can replace it.
package sentiment

import "strings"

// Category is the dominant classification of a message.
type Category string

const (
	Neutral    Category = "neutral"
	Compliment Category = "compliment"
	Romantic   Category = "romantic"
	Vulnerable Category = "vulnerable"
	Hostile    Category = "hostile"
)

// Factors are externally-computed scalar signals, each roughly in [0,1]
// (dominance may go slightly negative for submissive phrasing).
type Factors struct {
	Category      Category
	Intensity     float64
	Excitement    float64
	Intimacy      float64
	Gratitude     float64
	Dominance     float64
	Vulnerability float64
	Mystery       float64
}

var keywordBuckets = map[Category][]string{
	Compliment: {
		"beautiful", "gorgeous", "amazing", "stunning", "perfect", "incredible",
		"wonderful", "divine", "radiant", "lovely",
	},
	Romantic: {
		"love", "miss you", "thinking of you", "together", "close", "special",
		"desire", "heart", "kiss", "dream of",
	},
	Vulnerable: {
		"lonely", "scared", "honest", "confess", "secret", "trust you",
		"never told", "afraid", "hurt", "miss",
	},
	Hostile: {
		"idiot", "stupid", "shut up", "hate", "boring", "fake",
	},
}

var excitementWords = []string{"amazing", "wow", "incredible", "love", "excited", "omg", "perfect", "yes"}
var intimateWords = []string{"close", "together", "private", "special", "beautiful", "gorgeous", "desire", "touch"}
var gratitudeWords = []string{"thank", "grateful", "appreciate", "means a lot"}
var dominantWords = []string{"command", "control", "mine", "belong", "submit", "obey"}
var submissiveWords = []string{"please", "may i", "if you want", "sorry", "apologize"}
var mysteryWords = []string{"wonder", "curious", "mystery", "secret", "hidden", "tell me about you"}

// Analyze scores text into Factors. Empty or unrecognised text yields the
// zero contribution (Neutral, all scalars 0) so callers degrade gracefully.
func Analyze(text string) Factors {
	f := Factors{Category: Neutral}
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return f
	}

	f.Excitement = scoreBucket(normalized, excitementWords, 0.1, 0.5)
	f.Intimacy = scoreBucket(normalized, intimateWords, 0.15, 0.4)
	f.Gratitude = scoreBucket(normalized, gratitudeWords, 0.2, 0.6)
	f.Mystery = scoreBucket(normalized, mysteryWords, 0.15, 0.4)
	f.Vulnerability = scoreBucket(normalized, keywordBuckets[Vulnerable], 0.15, 0.5)

	// Dominance runs both ways.
	f.Dominance = scoreBucket(normalized, dominantWords, 0.2, 0.3) -
		scoreBucket(normalized, submissiveWords, 0.1, 0.3)
	if f.Dominance < -0.3 {
		f.Dominance = -0.3
	}

	// Exclamation marks boost excitement; long messages signal investment.
	f.Excitement += float64(strings.Count(text, "!")) * 0.05
	if f.Excitement > 0.5 {
		f.Excitement = 0.5
	}
	if len(text) > 100 {
		f.Intimacy += 0.1
	}
	if len(text) > 200 {
		f.Intimacy += 0.1
	}
	if f.Intimacy > 0.5 {
		f.Intimacy = 0.5
	}

	f.Category = classify(normalized)
	f.Intensity = f.Excitement + f.Intimacy + f.Gratitude + f.Vulnerability
	if f.Intensity > 1 {
		f.Intensity = 1
	}
	return f
}

func classify(normalized string) Category {
	best, bestHits := Neutral, 0
	// Fixed evaluation order so ties resolve deterministically.
	for _, cat := range []Category{Hostile, Vulnerable, Romantic, Compliment} {
		hits := 0
		for _, w := range keywordBuckets[cat] {
			if strings.Contains(normalized, w) {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = cat, hits
		}
	}
	return best
}

func scoreBucket(normalized string, words []string, per, cap float64) float64 {
	var score float64
	for _, w := range words {
		if strings.Contains(normalized, w) {
			score += per
		}
	}
	if score > cap {
		return cap
	}
	return score
}
