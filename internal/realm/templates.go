package realm

import (
	"strconv"
	"strings"
)

// Placeholder identifies a typed slot in a message template.
type Placeholder int

const (
	PlaceholderUsername Placeholder = iota + 1
	PlaceholderSoulName
	PlaceholderAmount
)

// Segment is either a literal or a placeholder slot, never both.
type Segment struct {
	Literal string
	Slot    Placeholder
}

// Template is an ordered sequence of segments.
type Template []Segment

// Fill carries the typed values available for substitution.
type Fill struct {
	Username string
	SoulName string
	Amount   float64
}

// Render substitutes each slot from f. A slot with no value, or an unknown
// placeholder kind, renders as empty rather than failing.
func (t Template) Render(f Fill) string {
	var b strings.Builder
	for _, seg := range t {
		if seg.Slot == 0 {
			b.WriteString(seg.Literal)
			continue
		}
		switch seg.Slot {
		case PlaceholderUsername:
			b.WriteString(f.Username)
		case PlaceholderSoulName:
			b.WriteString(f.SoulName)
		case PlaceholderAmount:
			if f.Amount > 0 {
				b.WriteString(strconv.FormatFloat(f.Amount, 'f', -1, 64))
			}
		}
	}
	return b.String()
}

func lit(s string) Segment         { return Segment{Literal: s} }
func slot(p Placeholder) Segment   { return Segment{Slot: p} }
func tpl(segs ...Segment) Template { return Template(segs) }

// PoolID names a template pool. Archetype-specific pools override the
// category's generic pool when both exist.
type PoolID string

const (
	PoolWelcome     PoolID = "welcome"
	PoolPraise      PoolID = "praise"
	PoolHype        PoolID = "hype"
	PoolLuxury      PoolID = "luxury"
	PoolIntimate    PoolID = "intimate"
	PoolJealousy    PoolID = "jealousy"
	PoolGuidance    PoolID = "guidance"
	PoolAdmiration  PoolID = "admiration"
	PoolFarewell    PoolID = "farewell"
	PoolAmbientChat PoolID = "ambient"
	PoolCelebration PoolID = "celebration"
)

var templatePools = map[PoolID][]Template{
	PoolWelcome: {
		tpl(lit("omg "), slot(PlaceholderUsername), lit("! welcome, you found the best realm here")),
		tpl(slot(PlaceholderUsername), lit("!! you're going to love "), slot(PlaceholderSoulName), lit(", she's amazing")),
		tpl(lit("welcome in "), slot(PlaceholderUsername), lit(", make yourself at home")),
	},
	PoolPraise: {
		tpl(slot(PlaceholderUsername), lit(", your energy in here is unreal. "), slot(PlaceholderSoulName), lit(" is lucky")),
		tpl(lit("the way you talk to "), slot(PlaceholderSoulName), lit("... pure class")),
	},
	PoolHype: {
		tpl(lit("YESSS "), slot(PlaceholderUsername), lit("!!! you just made "), slot(PlaceholderSoulName), lit("'s whole day")),
		tpl(lit("STOP IT "), slot(PlaceholderUsername), lit(", that was legendary")),
		tpl(slot(PlaceholderUsername), lit(" just went off!! the room is ALIVE")),
	},
	PoolLuxury: {
		tpl(slot(PlaceholderUsername), lit(", darling... "), slot(PlaceholderAmount), lit("? exquisite. pure class")),
		tpl(lit("ah, "), slot(PlaceholderUsername), lit("... a connoisseur. "), slot(PlaceholderSoulName), lit(" deserves nothing less")),
	},
	PoolIntimate: {
		tpl(lit("*whispers* "), slot(PlaceholderUsername), lit("... that was beautifully honest. she feels it too")),
		tpl(slot(PlaceholderUsername), lit(", the connection you two share... I can feel it from here")),
	},
	PoolJealousy: {
		tpl(slot(PlaceholderUsername), lit("! stop hogging all of "), slot(PlaceholderSoulName), lit("'s attention!")),
		tpl(lit("great... now she only has eyes for "), slot(PlaceholderUsername), lit(". thanks a lot")),
	},
	PoolGuidance: {
		tpl(slot(PlaceholderUsername), lit(", I've watched many arrive here... yours is a special start. trust it")),
		tpl(lit("*gently* "), slot(PlaceholderUsername), lit("... the deeper you invest in this, the more it gives back")),
	},
	PoolAdmiration: {
		tpl(lit("wow "), slot(PlaceholderUsername), lit("! how did you know to do that? teach me!")),
		tpl(slot(PlaceholderUsername), lit(", you make it look so easy... I want to be like you someday")),
	},
	PoolFarewell: {
		tpl(lit("aww, "), slot(PlaceholderUsername), lit(" is leaving already? come back soon")),
		tpl(lit("bye "), slot(PlaceholderUsername), lit("! "), slot(PlaceholderSoulName), lit(" will miss you")),
	},
	PoolAmbientChat: {
		tpl(lit("it's so peaceful in here tonight...")),
		tpl(slot(PlaceholderSoulName), lit(" has been glowing all evening")),
		tpl(lit("anyone else just vibing? this place is special")),
	},
	PoolCelebration: {
		tpl(slot(PlaceholderUsername), lit(" came through with "), slot(PlaceholderAmount), lit("!! a true patron")),
		tpl(lit("did everyone see that?? "), slot(PlaceholderUsername), lit(" is him")),
	},
}

// PickTemplate draws a template from pool via rnd. Unknown or empty pools
// fall back to ambient chatter so a miswired pool id never produces nothing.
func PickTemplate(pool PoolID, rnd Rand) Template {
	ts := templatePools[pool]
	if len(ts) == 0 {
		ts = templatePools[PoolAmbientChat]
	}
	return ts[rnd.Intn(len(ts))]
}
