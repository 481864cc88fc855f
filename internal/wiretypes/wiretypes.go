package wiretypes

import "encoding/json"

// Inbound event names. These are the wire contract shared with existing
// clients and must not be renamed.
const (
	EventJoinSoulRealm   = "join_soul_realm"
	EventUserMessage     = "user_message"
	EventDivineOffering  = "divine_offering"
	EventPremiumPurchase = "premium_purchase"
	EventTypingStart     = "typing_start"
	EventTypingStop      = "typing_stop"
	EventLeaveSoulRealm  = "leave_soul_realm"
)

// Outbound event names.
const (
	EventRealmEntered        = "realm_entered"
	EventSoulResponse        = "soul_response"
	EventSoulTyping          = "soul_typing"
	EventUserTyping          = "user_typing"
	EventPhantomMessage      = "phantom_message"
	EventPremiumTease        = "premium_tease"
	EventPremiumUnlocked     = "premium_unlocked"
	EventPurchaseFailed      = "purchase_failed"
	EventOfferingCelebration = "offering_celebration"
	EventError               = "error"
)

// Envelope frames every message in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type SessionData struct {
	Username string `json:"username,omitempty"`
}

type JoinSoulRealm struct {
	UserID      string      `json:"userId"`
	SoulID      string      `json:"soulId"`
	SessionData SessionData `json:"sessionData"`
}

type UserMessage struct {
	UserID   string            `json:"userId"`
	SoulID   string            `json:"soulId"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type Offering struct {
	Type   string  `json:"type"`
	Amount float64 `json:"amount"`
}

type DivineOffering struct {
	UserID   string   `json:"userId"`
	SoulID   string   `json:"soulId"`
	Offering Offering `json:"offering"`
}

type PremiumPurchase struct {
	UserID     string  `json:"userId"`
	FeatureKey string  `json:"featureKey"`
	Amount     float64 `json:"amount"`
}

type Typing struct {
	UserID string `json:"userId"`
	SoulID string `json:"soulId"`
}

type LeaveSoulRealm struct {
	UserID string `json:"userId"`
	SoulID string `json:"soulId"`
}

// Emotion is the compact emotional annotation attached to outbound messages.
type Emotion struct {
	Primary   string  `json:"primary"`
	Intensity float64 `json:"intensity"`
}

// ChatMessage is one recent room message replayed on entry.
type ChatMessage struct {
	Author    string `json:"author"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

type RealmEntered struct {
	SoulID         string        `json:"soulId"`
	SoulName       string        `json:"soulName"`
	BondLevel      float64       `json:"bondLevel"`
	RoomEnergy     float64       `json:"roomEnergy"`
	Atmosphere     string        `json:"atmosphere"`
	ActiveUsers    int           `json:"activeUsers"`
	RecentMessages []ChatMessage `json:"recentMessages,omitempty"`
}

type SoulResponse struct {
	Message      string   `json:"message"`
	Emotion      Emotion  `json:"emotion"`
	BondIncrease *float64 `json:"bondIncrease,omitempty"`
	IsWelcome    bool     `json:"isWelcome,omitempty"`
	IsFarewell   bool     `json:"isFarewell,omitempty"`
	Timestamp    int64    `json:"timestamp"`
}

type SoulTyping struct {
	SoulID string `json:"soulId"`
	Typing bool   `json:"typing"`
}

type UserTyping struct {
	UserID string `json:"userId"`
	Typing bool   `json:"typing"`
}

type PhantomMessage struct {
	PhantomName string  `json:"phantomName"`
	Message     string  `json:"message"`
	Emotion     Emotion `json:"emotion"`
	Timestamp   int64   `json:"timestamp"`
}

type PremiumTease struct {
	OfferID    string  `json:"offerId"`
	FeatureKey string  `json:"featureKey"`
	Title      string  `json:"title"`
	Message    string  `json:"message"`
	Price      float64 `json:"price"`
	Urgency    string  `json:"urgency"`
	ExpiresAt  int64   `json:"expiresAt"`
}

type PremiumUnlocked struct {
	Feature       string   `json:"feature"`
	UnlockMessage string   `json:"unlockMessage"`
	NewUnlocks    []string `json:"newUnlocks,omitempty"`
	Perks         []string `json:"perks,omitempty"`
}

type PurchaseFailed struct {
	Error   string `json:"error"`
	Feature string `json:"feature,omitempty"`
}

type OfferingCelebration struct {
	UserID       string  `json:"userId"`
	Amount       float64 `json:"amount"`
	Type         string  `json:"type"`
	NewBondLevel float64 `json:"newBondLevel"`
}

type Error struct {
	Message string `json:"message"`
}
