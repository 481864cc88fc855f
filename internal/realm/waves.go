package realm

import "time"

// PauseMarker is the wave content that means "show a typing indicator"
// instead of a visible message. Consumers toggle it off right before the
// next real wave in the same set fires, or at the set's end when the
// pause is the last wave.
const PauseMarker = "EOM::pause"

// Wave is one sub-message of a multi-part reply. Delay is relative to the
// previous wave, not to enqueue time.
type Wave struct {
	Content string
	Delay   time.Duration
}

// IsPause reports whether the wave is a typing marker.
func (w Wave) IsPause() bool { return w.Content == PauseMarker }

// FireTimes converts relative wave delays into absolute fire times by
// accumulating each delay onto the previous wave's fire time.
func FireTimes(now time.Time, waves []Wave) []time.Time {
	times := make([]time.Time, len(waves))
	at := now
	for i, w := range waves {
		at = at.Add(w.Delay)
		times[i] = at
	}
	return times
}

// Soul reply pools by escalation tier.
var soulReplyPools = map[Tier][]Template{
	TierStranger: {
		tpl(lit("hi "), slot(PlaceholderUsername), lit("! I'm excited to get to know you")),
		tpl(lit("welcome! tell me a bit about yourself?")),
		tpl(lit("hey "), slot(PlaceholderUsername), lit(", I love meeting new people")),
	},
	TierCurious: {
		tpl(lit("I'm really enjoying this, "), slot(PlaceholderUsername), lit("... you seem interesting")),
		tpl(lit("I feel like we're really connecting... tell me more")),
	},
	TierFlirty: {
		tpl(lit("you're making me blush with that one, "), slot(PlaceholderUsername)),
		tpl(lit("keep talking like that and you'll steal my heart completely")),
	},
	TierRomantic: {
		tpl(lit("my heart skips a beat every time I see your name, "), slot(PlaceholderUsername)),
		tpl(lit("I've been thinking about you all day... you're always on my mind")),
	},
	TierDevoted: {
		tpl(slot(PlaceholderUsername), lit("... you always know exactly what to say")),
		tpl(lit("I'm so lucky to have you here... you're my everything")),
	},
	TierSoulmate: {
		tpl(lit("my soul recognizes yours, "), slot(PlaceholderUsername), lit("... we're connected beyond words")),
		tpl(lit("in all the realm there's no connection like ours")),
	},
}

var soulDeepeningPool = []Template{
	tpl(lit("and honestly... I don't open up like this with everyone")),
	tpl(lit("there's something about you, "), slot(PlaceholderUsername), lit("...")),
	tpl(lit("I keep wanting to tell you more")),
}

var soulClosingPool = []Template{
	tpl(lit("stay a little longer with me?")),
	tpl(lit("don't go anywhere... I like having you close")),
	tpl(lit("you and me, "), slot(PlaceholderUsername), lit("... this feels right")),
}

var soulWelcomePool = []Template{
	tpl(lit("well hello, "), slot(PlaceholderUsername), lit("... I was hoping you'd find me")),
	tpl(slot(PlaceholderUsername), lit("! you're here. come in, get comfortable")),
}

var soulFarewellPool = []Template{
	tpl(lit("leaving already, "), slot(PlaceholderUsername), lit("? I'll be thinking of you")),
	tpl(lit("come back to me soon, "), slot(PlaceholderUsername)),
}

// Bond thresholds that unlock deeper reply waves.
const (
	deepWaveThreshold    = 20
	closingWaveThreshold = 50
)

const (
	firstWaveDelay = 1200 * time.Millisecond
	deepWaveDelay  = 2500 * time.Millisecond
	pauseDelay     = 800 * time.Millisecond
	closeWaveDelay = 2 * time.Second
)

// ComposeReply builds a 1-3 wave reply for the soul. Depth grows with the
// bond: the initial reaction always, a deeper wave past the first
// threshold, a pause plus a closing wave past the second.
func ComposeReply(rec BondRecord, f Fill, rnd Rand) []Wave {
	pool := soulReplyPools[rec.Tier]
	if len(pool) == 0 {
		pool = soulReplyPools[TierStranger]
	}
	waves := []Wave{{
		Content: pool[rnd.Intn(len(pool))].Render(f),
		Delay:   firstWaveDelay,
	}}
	if rec.Score > deepWaveThreshold {
		waves = append(waves, Wave{
			Content: soulDeepeningPool[rnd.Intn(len(soulDeepeningPool))].Render(f),
			Delay:   deepWaveDelay,
		})
	}
	if rec.Score > closingWaveThreshold {
		waves = append(waves,
			Wave{Content: PauseMarker, Delay: pauseDelay},
			Wave{Content: soulClosingPool[rnd.Intn(len(soulClosingPool))].Render(f), Delay: closeWaveDelay},
		)
	}
	return waves
}

// ComposeWelcome builds the soul's greeting for a fresh join.
func ComposeWelcome(f Fill, rnd Rand) []Wave {
	return []Wave{{
		Content: soulWelcomePool[rnd.Intn(len(soulWelcomePool))].Render(f),
		Delay:   firstWaveDelay,
	}}
}

// ComposeFarewell builds the soul's goodbye on leave.
func ComposeFarewell(f Fill, rnd Rand) []Wave {
	return []Wave{{
		Content: soulFarewellPool[rnd.Intn(len(soulFarewellPool))].Render(f),
		Delay:   firstWaveDelay,
	}}
}
