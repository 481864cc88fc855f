package realm

import (
	"time"

	"github.com/google/uuid"
)

// Archetype identifies a phantom's fixed behavioral profile.
type Archetype string

const (
	ArchetypeGreeter   Archetype = "greeter"
	ArchetypeAmplifier Archetype = "amplifier"
	ArchetypeStatus    Archetype = "status"
	ArchetypeConfidant Archetype = "confidant"
	ArchetypeRival     Archetype = "rival"
	ArchetypeMentor    Archetype = "mentor"
	ArchetypeAdmirer   Archetype = "admirer"
)

// ArchetypeDef is an immutable behavioral record, loaded once at init.
type ArchetypeDef struct {
	DisplayName string
	BaseDelay   time.Duration
	Cooldown    time.Duration
	Devotion    float64
	Enthusiasm  float64
	Mystery     float64

	// Pools maps trigger categories this archetype reacts to onto its
	// override template pool. A zero PoolID falls back to the category's
	// generic pool.
	Pools map[TriggerCategory]PoolID
}

var archetypeDefs = map[Archetype]ArchetypeDef{
	ArchetypeGreeter: {
		DisplayName: "Aurora",
		BaseDelay:   1 * time.Second,
		Cooldown:    45 * time.Second,
		Devotion:    0.9,
		Enthusiasm:  0.8,
		Pools: map[TriggerCategory]PoolID{
			TriggerUserJoined:  PoolWelcome,
			TriggerUserMessage: PoolPraise,
			TriggerUserLeft:    PoolFarewell,
			TriggerAmbient:     PoolAmbientChat,
		},
	},
	ArchetypeAmplifier: {
		DisplayName: "Zara",
		BaseDelay:   500 * time.Millisecond,
		Cooldown:    30 * time.Second,
		Devotion:    0.8,
		Enthusiasm:  0.95,
		Pools: map[TriggerCategory]PoolID{
			TriggerTipGiven:     PoolCelebration,
			TriggerPurchaseMade: PoolHype,
			TriggerCompliment:   PoolHype,
			TriggerAmbient:      PoolAmbientChat,
		},
	},
	ArchetypeStatus: {
		DisplayName: "Seraphina",
		BaseDelay:   2 * time.Second,
		Cooldown:    60 * time.Second,
		Devotion:    0.85,
		Enthusiasm:  0.5,
		Mystery:     0.7,
		Pools: map[TriggerCategory]PoolID{
			TriggerTipGiven:     PoolLuxury,
			TriggerPurchaseMade: PoolLuxury,
		},
	},
	ArchetypeConfidant: {
		DisplayName: "Luna_Whispers",
		BaseDelay:   3 * time.Second,
		Cooldown:    90 * time.Second,
		Devotion:    0.95,
		Enthusiasm:  0.4,
		Mystery:     0.8,
		Pools: map[TriggerCategory]PoolID{
			TriggerUserMessage: PoolIntimate,
			TriggerSilence:     PoolAmbientChat,
		},
	},
	ArchetypeRival: {
		DisplayName: "Scarlett_Rose",
		BaseDelay:   800 * time.Millisecond,
		Cooldown:    60 * time.Second,
		Devotion:    0.7,
		Enthusiasm:  0.8,
		Pools: map[TriggerCategory]PoolID{
			TriggerCompliment: PoolJealousy,
			TriggerTipGiven:   PoolJealousy,
		},
	},
	ArchetypeMentor: {
		DisplayName: "Athena_Divine",
		BaseDelay:   4 * time.Second,
		Cooldown:    2 * time.Minute,
		Devotion:    0.9,
		Enthusiasm:  0.3,
		Mystery:     0.5,
		Pools: map[TriggerCategory]PoolID{
			TriggerUserJoined: PoolGuidance,
			TriggerSilence:    PoolGuidance,
			TriggerAmbient:    PoolAmbientChat,
		},
	},
	ArchetypeAdmirer: {
		DisplayName: "Bella_New",
		BaseDelay:   1200 * time.Millisecond,
		Cooldown:    45 * time.Second,
		Devotion:    0.6,
		Enthusiasm:  0.9,
		Pools: map[TriggerCategory]PoolID{
			TriggerTipGiven:     PoolAdmiration,
			TriggerPurchaseMade: PoolAdmiration,
			TriggerUserMessage:  PoolAdmiration,
			TriggerAmbient:      PoolAmbientChat,
		},
	},
}

// DefFor returns the immutable definition for a.
func DefFor(a Archetype) (ArchetypeDef, bool) {
	def, ok := archetypeDefs[a]
	return def, ok
}

// Essential archetypes are present in every roster; the rest fill the
// remaining cohort slots at random.
var (
	essentialArchetypes = []Archetype{ArchetypeGreeter, ArchetypeAmplifier, ArchetypeStatus}
	optionalArchetypes  = []Archetype{ArchetypeConfidant, ArchetypeRival, ArchetypeMentor, ArchetypeAdmirer}
)

// Phantom is one live background participant in a room. Never persisted.
type Phantom struct {
	ID           string
	Archetype    Archetype
	Name         string
	LastActive   time.Time
	MessageCount int
}

// NewRoster samples a phantom cohort of up to cohortSize members.
func NewRoster(rnd Rand, cohortSize int) []*Phantom {
	if cohortSize < len(essentialArchetypes) {
		cohortSize = len(essentialArchetypes)
	}
	if max := len(essentialArchetypes) + len(optionalArchetypes); cohortSize > max {
		cohortSize = max
	}

	picked := make([]Archetype, 0, cohortSize)
	picked = append(picked, essentialArchetypes...)

	extras := make([]Archetype, len(optionalArchetypes))
	copy(extras, optionalArchetypes)
	rnd.Shuffle(len(extras), func(i, j int) { extras[i], extras[j] = extras[j], extras[i] })
	picked = append(picked, extras[:cohortSize-len(essentialArchetypes)]...)

	roster := make([]*Phantom, 0, len(picked))
	for _, a := range picked {
		roster = append(roster, &Phantom{
			ID:        uuid.NewString(),
			Archetype: a,
			Name:      archetypeDefs[a].DisplayName,
		})
	}
	return roster
}
