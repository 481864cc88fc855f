package realm

import (
	"context"
	"errors"
	"hash/fnv"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/keshon/server-siren/internal/analysis/sentiment"
	"github.com/keshon/server-siren/internal/storage"
	"github.com/keshon/server-siren/internal/wiretypes"
	"github.com/keshon/server-siren/pkg/waveq"
)

var (
	ErrUnknownSession = errors.New("unknown user/room session")
	ErrMalformedEvent = errors.New("malformed event")
)

// AnalyzeFunc scores a message into signal factors. The default is
// sentiment.Analyze; tests and future scorers can substitute their own.
type AnalyzeFunc func(text string) sentiment.Factors

// OutboundEvent is one wire event headed to a room's subscribers. An empty
// TargetUser means room broadcast; otherwise only that user receives it.
type OutboundEvent struct {
	Name       string
	Data       any
	TargetUser string
}

// offerExpiry is a queue payload marking an unredeemed offer's deadline.
type offerExpiry struct {
	OfferID string
	UserID  string
}

// Options are the engine tunables, normally filled from config.
type Options struct {
	CohortSize      int
	HistorySize     int
	ReactionStagger time.Duration
	UpsellCooldown  time.Duration
	OfferLifetime   time.Duration
	AmbientInterval time.Duration
	SilenceAfter    time.Duration
	RoomIdleTTL     time.Duration
	ReapInterval    time.Duration
}

// pairState is the soul's in-memory disposition toward one user in one room.
type pairState struct {
	emotion      EmotionState
	bond         BondRecord
	personality  Personality
	sessionCount int
}

// Subscription is one consumer of a room's outbound stream.
type Subscription struct {
	UserID string
	C      chan OutboundEvent

	engine *Engine
	roomID string
}

// Close detaches the subscription from its room and closes C so range
// loops over the stream terminate. Safe to call more than once.
func (s *Subscription) Close() {
	s.engine.unsubscribe(s.roomID, s)
}

// Engine coordinates rooms, emotion and bond state, the wave queue, the
// phantom trigger engine and the upsell engine behind the inbound event API.
type Engine struct {
	opts    Options
	rooms   *Manager
	queue   *waveq.Queue
	store   *storage.Storage
	analyze AnalyzeFunc
	rnd     Rand

	stateMu sync.Mutex
	states  map[string]*pairState

	subMu sync.RWMutex
	subs  map[string]map[*Subscription]struct{}

	offerMu sync.Mutex
	offers  map[string]waveq.Token
}

// NewEngine wires the coordinator. rnd is wrapped for concurrent use.
func NewEngine(store *storage.Storage, analyze AnalyzeFunc, rnd Rand, opts Options) *Engine {
	e := &Engine{
		opts:    opts,
		rooms:   NewManager(opts.CohortSize, opts.HistorySize),
		store:   store,
		analyze: analyze,
		rnd:     NewLockedRand(rnd),
		states:  make(map[string]*pairState),
		subs:    make(map[string]map[*Subscription]struct{}),
		offers:  make(map[string]waveq.Token),
	}
	e.queue = waveq.New(e.deliver)
	return e
}

// Run starts the dispatcher, the room reaper and the ambient pass, and
// blocks until ctx is done.
func (e *Engine) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		e.queue.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		e.rooms.RunReaper(ctx, e.opts.ReapInterval, e.opts.RoomIdleTTL, e.onRoomReaped)
	}()
	go func() {
		defer wg.Done()
		e.runAmbient(ctx)
	}()
	wg.Wait()
}

// Subscribe attaches a consumer to roomID's outbound stream. Events
// targeted at other users are filtered out.
func (e *Engine) Subscribe(roomID, userID string) *Subscription {
	sub := &Subscription{
		UserID: userID,
		C:      make(chan OutboundEvent, 64),
		engine: e,
		roomID: roomID,
	}
	e.subMu.Lock()
	defer e.subMu.Unlock()
	if e.subs[roomID] == nil {
		e.subs[roomID] = make(map[*Subscription]struct{})
	}
	e.subs[roomID][sub] = struct{}{}
	return sub
}

func (e *Engine) unsubscribe(roomID string, sub *Subscription) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	set, ok := e.subs[roomID]
	if !ok {
		return
	}
	if _, attached := set[sub]; !attached {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(e.subs, roomID)
	}
	// dispatch sends only under subMu, so closing here cannot race a send.
	close(sub.C)
}

// deliver runs on the dispatcher goroutine for every fired queue item.
func (e *Engine) deliver(item waveq.Item) {
	switch p := item.Payload.(type) {
	case OutboundEvent:
		e.dispatch(item.Key, p)
	case offerExpiry:
		e.offerMu.Lock()
		delete(e.offers, p.OfferID)
		e.offerMu.Unlock()
		log.Printf("[INFO] [REALM] offer %s for %s expired unredeemed", p.OfferID, p.UserID)
	}
}

func (e *Engine) dispatch(roomID string, ev OutboundEvent) {
	e.subMu.RLock()
	defer e.subMu.RUnlock()
	for sub := range e.subs[roomID] {
		if ev.TargetUser != "" && ev.TargetUser != sub.UserID {
			continue
		}
		select {
		case sub.C <- ev:
		default:
			log.Printf("[WARN] [REALM] dropping event %s for slow subscriber %s", ev.Name, sub.UserID)
		}
	}
}

// HandleJoin admits a user into a soul's room.
func (e *Engine) HandleJoin(userID, username, soulID string) error {
	if userID == "" || soulID == "" {
		return ErrMalformedEvent
	}
	if username == "" {
		username = userID
	}
	now := time.Now()
	room := e.rooms.GetOrCreate(soulID, soulNameFor(soulID), e.rnd, now)
	room.Join(userID, username, now)

	sessions, err := e.store.RecordSession(userID, now)
	if err != nil {
		log.Println("[ERR] [REALM] recording session:", err)
		sessions = 1
	}

	st := e.pairState(soulID, userID)
	e.stateMu.Lock()
	st.sessionCount = sessions
	bondLevel := st.bond.Score
	e.stateMu.Unlock()

	e.enqueue(soulID, now, OutboundEvent{
		Name:       wiretypes.EventRealmEntered,
		TargetUser: userID,
		Data: wiretypes.RealmEntered{
			SoulID:         soulID,
			SoulName:       room.SoulName,
			BondLevel:      bondLevel,
			RoomEnergy:     room.Energy(),
			Atmosphere:     string(room.Atmosphere()),
			ActiveUsers:    room.Occupants() + room.PhantomCount(),
			RecentMessages: historyPayload(room.History()),
		},
	})

	fill := Fill{Username: username, SoulName: room.SoulName}
	e.enqueueSoulWaves(soulID, userID, ComposeWelcome(fill, e.rnd), now, soulWaveMeta{isWelcome: true})

	reactions := room.React(TriggerEvent{Category: TriggerUserJoined, Username: username}, e.rnd, now, e.opts.ReactionStagger)
	e.enqueuePhantomReactions(soulID, reactions, now)
	return nil
}

// HandleMessage runs the full per-message pipeline: sentiment, emotion,
// bond, soul reply waves, phantom reactions and the upsell check.
func (e *Engine) HandleMessage(userID, soulID, text string) error {
	if userID == "" || soulID == "" || text == "" {
		return ErrMalformedEvent
	}
	now := time.Now()
	room, ok := e.rooms.Get(soulID)
	if !ok {
		return ErrUnknownSession
	}
	sess, ok := room.RecordActivity(userID, now)
	if !ok {
		return ErrUnknownSession
	}
	room.AppendHistory(HistoryEntry{Author: sess.Username, Message: text, At: now})

	factors := e.analyze(text)

	e.stateMu.Lock()
	st := e.pairStateLocked(soulID, userID)
	st.emotion = Evolve(st.emotion, signalsFrom(factors), st.personality, e.rnd, now)
	before := st.bond.Score
	st.bond = ApplyBondEvent(st.bond, bondEventFrom(factors, st.sessionCount, now))
	bond := st.bond
	emotion := st.emotion
	e.stateMu.Unlock()

	e.persistBond(userID, soulID, bond, now)

	fill := Fill{Username: sess.Username, SoulName: room.SoulName}
	meta := soulWaveMeta{emotion: emotion}
	if inc := bond.Score - before; inc > 0 {
		meta.bondIncrease = &inc
	}
	lastWave := e.enqueueSoulWaves(soulID, userID, ComposeReply(bond, fill, e.rnd), now, meta)

	category := TriggerUserMessage
	if factors.Category == sentiment.Compliment {
		category = TriggerCompliment
	}
	reactions := room.React(TriggerEvent{Category: category, Username: sess.Username}, e.rnd, now, e.opts.ReactionStagger)
	e.enqueuePhantomReactions(soulID, reactions, now)

	e.maybeUpsell(room, sess, bond, emotion, lastWave)
	return nil
}

// HandleOffering processes a tip or gift.
func (e *Engine) HandleOffering(userID, soulID, offeringType string, amount float64) error {
	if userID == "" || soulID == "" || amount <= 0 {
		return ErrMalformedEvent
	}
	if offeringType != OfferingTip && offeringType != OfferingGift {
		return ErrMalformedEvent
	}
	now := time.Now()
	room, ok := e.rooms.Get(soulID)
	if !ok {
		return ErrUnknownSession
	}
	sess, ok := room.RecordActivity(userID, now)
	if !ok {
		return ErrUnknownSession
	}

	e.stateMu.Lock()
	st := e.pairStateLocked(soulID, userID)
	st.emotion = Evolve(st.emotion, Signals{Gratitude: 0.8, Excitement: 0.5}, st.personality, e.rnd, now)
	st.bond = ApplyBondEvent(st.bond, BondEvent{OfferingType: offeringType, OfferingAmount: amount, At: now})
	bond := st.bond
	emotion := st.emotion
	e.stateMu.Unlock()

	if _, err := e.store.RecordSpend(userID, amount); err != nil {
		log.Println("[ERR] [REALM] recording spend:", err)
	}
	e.persistBond(userID, soulID, bond, now)

	e.enqueue(soulID, now, OutboundEvent{
		Name: wiretypes.EventOfferingCelebration,
		Data: wiretypes.OfferingCelebration{
			UserID:       userID,
			Amount:       amount,
			Type:         offeringType,
			NewBondLevel: bond.Score,
		},
	})

	fill := Fill{Username: sess.Username, SoulName: room.SoulName}
	lastWave := e.enqueueSoulWaves(soulID, userID, ComposeReply(bond, fill, e.rnd), now, soulWaveMeta{emotion: emotion})

	reactions := room.React(TriggerEvent{Category: TriggerTipGiven, Username: sess.Username, Amount: amount}, e.rnd, now, e.opts.ReactionStagger)
	e.enqueuePhantomReactions(soulID, reactions, now)

	e.maybeUpsell(room, sess, bond, emotion, lastWave)
	return nil
}

// HandlePurchase confirms a premium purchase. Rejections go back to the
// buyer as purchase_failed events rather than errors.
func (e *Engine) HandlePurchase(userID, soulID, featureKey string, amount float64) error {
	if userID == "" || soulID == "" || featureKey == "" {
		return ErrMalformedEvent
	}
	now := time.Now()
	room, ok := e.rooms.Get(soulID)
	if !ok {
		return ErrUnknownSession
	}
	sess, ok := room.RecordActivity(userID, now)
	if !ok {
		return ErrUnknownSession
	}

	fail := func(reason string) {
		e.enqueue(soulID, now, OutboundEvent{
			Name:       wiretypes.EventPurchaseFailed,
			TargetUser: userID,
			Data:       wiretypes.PurchaseFailed{Error: reason, Feature: featureKey},
		})
	}

	pkg, ok := PackageByKey(featureKey)
	if !ok {
		fail("unknown feature")
		return nil
	}
	if owned, err := e.store.HasFeature(userID, featureKey); err != nil {
		log.Println("[ERR] [REALM] checking owned features:", err)
	} else if owned {
		fail("feature already unlocked")
		return nil
	}

	e.stateMu.Lock()
	bondScore := e.pairStateLocked(soulID, userID).bond.Score
	e.stateMu.Unlock()
	if bondScore < pkg.BondRequirement {
		fail("your bond is not deep enough yet")
		return nil
	}

	price := amount
	if price <= 0 {
		price = pkg.Price
	}
	profile, err := e.store.RecordSpend(userID, price)
	if err != nil {
		log.Println("[ERR] [REALM] recording purchase spend:", err)
		fail("purchase could not be recorded")
		return nil
	}
	if _, err := e.store.UnlockFeature(userID, featureKey); err != nil {
		log.Println("[ERR] [REALM] unlocking feature:", err)
	}
	e.redeemMatchingOffer(userID, featureKey, now)

	// Re-fetch the pair state: the lock was dropped for the storage calls
	// and a concurrent leave may have detached the earlier pointer.
	e.stateMu.Lock()
	st := e.pairStateLocked(soulID, userID)
	st.bond = ApplyBondEvent(st.bond, BondEvent{Purchase: true, PurchaseAmount: price, At: now})
	bond := st.bond
	e.stateMu.Unlock()
	e.persistBond(userID, soulID, bond, now)

	e.enqueue(soulID, now, OutboundEvent{
		Name:       wiretypes.EventPremiumUnlocked,
		TargetUser: userID,
		Data: wiretypes.PremiumUnlocked{
			Feature:       featureKey,
			UnlockMessage: pkg.Tease,
			NewUnlocks:    profile.UnlockedFeatures,
			Perks:         perkStrings(bond.UnlockedPerks()),
		},
	})

	reactions := room.React(TriggerEvent{Category: TriggerPurchaseMade, Username: sess.Username, Amount: price}, e.rnd, now, e.opts.ReactionStagger)
	e.enqueuePhantomReactions(soulID, reactions, now)
	return nil
}

// HandleTyping relays a user's typing indicator to the room.
func (e *Engine) HandleTyping(userID, soulID string, typing bool) error {
	if userID == "" || soulID == "" {
		return ErrMalformedEvent
	}
	room, ok := e.rooms.Get(soulID)
	if !ok {
		return ErrUnknownSession
	}
	if _, ok := room.Session(userID); !ok {
		return ErrUnknownSession
	}
	e.enqueue(soulID, time.Now(), OutboundEvent{
		Name: wiretypes.EventUserTyping,
		Data: wiretypes.UserTyping{UserID: userID, Typing: typing},
	})
	return nil
}

// HandleLeave removes the user's session and cancels every scheduled wave
// still addressed to them.
func (e *Engine) HandleLeave(userID, soulID string) error {
	if userID == "" || soulID == "" {
		return ErrMalformedEvent
	}
	now := time.Now()
	room, ok := e.rooms.Get(soulID)
	if !ok {
		return ErrUnknownSession
	}
	sess, hadSession := room.Session(userID)
	removed, _ := room.Leave(userID, now)
	if !removed || !hadSession {
		return ErrUnknownSession
	}

	cancelled := e.queue.CancelMatching(soulID, func(payload any) bool {
		ev, ok := payload.(OutboundEvent)
		return ok && ev.TargetUser == userID
	})
	if cancelled > 0 {
		log.Printf("[INFO] [REALM] cancelled %d pending waves for %s leaving %s", cancelled, userID, soulID)
	}

	e.stateMu.Lock()
	key := pairKey(soulID, userID)
	st, exists := e.states[key]
	var bond BondRecord
	if exists {
		bond = st.bond
		delete(e.states, key)
	}
	e.stateMu.Unlock()
	if exists {
		e.persistBond(userID, soulID, bond, now)
	}

	fill := Fill{Username: sess.Username, SoulName: room.SoulName}
	e.enqueueSoulWaves(soulID, "", ComposeFarewell(fill, e.rnd), now, soulWaveMeta{isFarewell: true})

	reactions := room.React(TriggerEvent{Category: TriggerUserLeft, Username: sess.Username}, e.rnd, now, e.opts.ReactionStagger)
	e.enqueuePhantomReactions(soulID, reactions, now)
	return nil
}

// Stats summarizes live engine state for the ops endpoint.
func (e *Engine) Stats() map[string]any {
	e.subMu.RLock()
	subscribers := 0
	for _, set := range e.subs {
		subscribers += len(set)
	}
	e.subMu.RUnlock()
	return map[string]any{
		"rooms":         e.rooms.Count(),
		"pending_waves": e.queue.Len(),
		"subscribers":   subscribers,
	}
}

func (e *Engine) onRoomReaped(roomID string) {
	e.queue.CancelKey(roomID)
	e.stateMu.Lock()
	prefix := roomID + "/"
	for key := range e.states {
		if strings.HasPrefix(key, prefix) {
			delete(e.states, key)
		}
	}
	e.stateMu.Unlock()
}

// runAmbient periodically decays room energy and lets phantoms fill
// silences in populated rooms.
func (e *Engine) runAmbient(ctx context.Context) {
	if e.opts.AmbientInterval <= 0 {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(e.opts.AmbientInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for _, room := range e.rooms.Rooms() {
				if room.Occupants() == 0 {
					continue
				}
				room.DecayEnergy(0.95)
				if room.SilentFor(now) < e.opts.SilenceAfter {
					continue
				}
				reactions := room.React(TriggerEvent{Category: TriggerSilence}, e.rnd, now, e.opts.ReactionStagger)
				if len(reactions) > 0 {
					e.enqueuePhantomReactions(room.SoulID, reactions, now)
					room.MarkActivity(now)
				}
			}
			e.decayIdleBonds(now)
		}
	}
}

// bondIdleDecayAfter is how long a pair must sit without a bond event
// before its score starts eroding.
const bondIdleDecayAfter = time.Hour

// decayIdleBonds erodes every idle bond by one ambient tick's worth, so
// the hourly decay rate holds regardless of tick length. Decayed
// snapshots are persisted with their original last-event time.
func (e *Engine) decayIdleBonds(now time.Time) {
	type decayed struct {
		roomID, userID string
		bond           BondRecord
	}
	var hit []decayed
	e.stateMu.Lock()
	for key, st := range e.states {
		if st.bond.Score <= 0 || st.bond.LastEvent.IsZero() {
			continue
		}
		if now.Sub(st.bond.LastEvent) < bondIdleDecayAfter {
			continue
		}
		st.bond = DecayBond(st.bond, e.opts.AmbientInterval)
		roomID, userID, ok := strings.Cut(key, "/")
		if !ok {
			continue
		}
		hit = append(hit, decayed{roomID: roomID, userID: userID, bond: st.bond})
	}
	e.stateMu.Unlock()
	for _, d := range hit {
		e.persistBond(d.userID, d.roomID, d.bond, d.bond.LastEvent)
	}
}

type soulWaveMeta struct {
	emotion      EmotionState
	bondIncrease *float64
	isWelcome    bool
	isFarewell   bool
}

// enqueueSoulWaves schedules a composed wave set. Pause markers become
// typing indicators, toggled off right before the next real wave fires.
// Returns the final fire time so follow-ups can land after the reply.
func (e *Engine) enqueueSoulWaves(roomID, targetUser string, waves []Wave, start time.Time, meta soulWaveMeta) time.Time {
	times := FireTimes(start, waves)
	emotion := wiretypes.Emotion{Primary: string(meta.emotion.Primary), Intensity: meta.emotion.Intensity}
	if meta.emotion.Primary == "" {
		emotion = wiretypes.Emotion{Primary: string(MoodCurious), Intensity: 0.5}
	}

	afterPause := false
	first := true
	for i, w := range waves {
		if w.IsPause() {
			e.enqueue(roomID, times[i], OutboundEvent{
				Name:       wiretypes.EventSoulTyping,
				TargetUser: targetUser,
				Data:       wiretypes.SoulTyping{SoulID: roomID, Typing: true},
			})
			afterPause = true
			continue
		}
		if afterPause {
			e.enqueue(roomID, times[i], OutboundEvent{
				Name:       wiretypes.EventSoulTyping,
				TargetUser: targetUser,
				Data:       wiretypes.SoulTyping{SoulID: roomID, Typing: false},
			})
			afterPause = false
		}
		resp := wiretypes.SoulResponse{
			Message:    w.Content,
			Emotion:    emotion,
			IsWelcome:  meta.isWelcome,
			IsFarewell: meta.isFarewell,
			Timestamp:  times[i].UnixMilli(),
		}
		if first {
			resp.BondIncrease = meta.bondIncrease
			first = false
		}
		e.enqueue(roomID, times[i], OutboundEvent{
			Name:       wiretypes.EventSoulResponse,
			TargetUser: targetUser,
			Data:       resp,
		})
	}
	if len(times) == 0 {
		return start
	}
	// A trailing pause must still toggle the indicator back off; the
	// same-instant item lands after the toggle-on by enqueue order.
	if afterPause {
		e.enqueue(roomID, times[len(times)-1], OutboundEvent{
			Name:       wiretypes.EventSoulTyping,
			TargetUser: targetUser,
			Data:       wiretypes.SoulTyping{SoulID: roomID, Typing: false},
		})
	}
	return times[len(times)-1]
}

func (e *Engine) enqueuePhantomReactions(roomID string, reactions []PhantomReaction, now time.Time) {
	for _, r := range reactions {
		fireAt := now.Add(r.Delay)
		e.enqueue(roomID, fireAt, OutboundEvent{
			Name: wiretypes.EventPhantomMessage,
			Data: wiretypes.PhantomMessage{
				PhantomName: r.PhantomName,
				Message:     r.Message,
				Emotion:     wiretypes.Emotion{Primary: "supportive", Intensity: 0.7},
				Timestamp:   fireAt.UnixMilli(),
			},
		})
	}
}

// maybeUpsell runs the readiness engine and, when an offer clears the
// gate, schedules the tease after the reply waves plus its expiry timer.
func (e *Engine) maybeUpsell(room *Room, sess Session, bond BondRecord, emotion EmotionState, after time.Time) {
	lastOffer, err := e.store.LastOfferAt(sess.UserID, room.SoulID)
	if err != nil {
		log.Println("[ERR] [REALM] reading offer cooldown:", err)
		return
	}
	profile, err := e.store.Profile(sess.UserID)
	if err != nil {
		log.Println("[ERR] [REALM] reading profile:", err)
		return
	}

	now := time.Now()
	offer, ok := EvaluateUpsell(UpsellInput{
		Session:            sess,
		Bond:               bond,
		Emotion:            emotion,
		SpendingPropensity: profile.SpendingPropensity,
		LastOfferAt:        lastOffer,
	}, e.opts.UpsellCooldown, e.opts.OfferLifetime, now)
	if !ok {
		return
	}

	if err := e.store.RecordOffer(sess.UserID, storage.OfferRecord{
		ID:         offer.ID,
		RoomID:     room.SoulID,
		FeatureKey: offer.Package.FeatureKey,
		Price:      offer.Package.Price,
		IssuedAt:   offer.IssuedAt,
		ExpiresAt:  offer.ExpiresAt,
	}); err != nil {
		log.Println("[ERR] [REALM] recording offer:", err)
		return
	}

	teaseAt := after.Add(1500 * time.Millisecond)
	e.enqueue(room.SoulID, teaseAt, OutboundEvent{
		Name:       wiretypes.EventPremiumTease,
		TargetUser: sess.UserID,
		Data: wiretypes.PremiumTease{
			OfferID:    offer.ID,
			FeatureKey: offer.Package.FeatureKey,
			Title:      offer.Package.Title,
			Message:    offer.Package.Tease,
			Price:      offer.Package.Price,
			Urgency:    offer.Urgency,
			ExpiresAt:  offer.ExpiresAt.UnixMilli(),
		},
	})

	tok := e.queue.Enqueue(room.SoulID, offer.ExpiresAt, offerExpiry{OfferID: offer.ID, UserID: sess.UserID})
	e.offerMu.Lock()
	e.offers[offer.ID] = tok
	e.offerMu.Unlock()
}

// redeemMatchingOffer marks the buyer's live offer for featureKey redeemed
// and cancels its expiry timer.
func (e *Engine) redeemMatchingOffer(userID, featureKey string, now time.Time) {
	profile, err := e.store.Profile(userID)
	if err != nil {
		return
	}
	for _, o := range profile.Offers {
		if o.FeatureKey != featureKey || o.Redeemed || now.After(o.ExpiresAt) {
			continue
		}
		if ok, err := e.store.RedeemOffer(userID, o.ID, now); err != nil || !ok {
			continue
		}
		e.offerMu.Lock()
		if tok, live := e.offers[o.ID]; live {
			tok.Cancel()
			delete(e.offers, o.ID)
		}
		e.offerMu.Unlock()
		return
	}
}

func (e *Engine) enqueue(roomID string, fireAt time.Time, ev OutboundEvent) {
	e.queue.Enqueue(roomID, fireAt, ev)
}

func (e *Engine) pairState(roomID, userID string) *pairState {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.pairStateLocked(roomID, userID)
}

// pairStateLocked requires stateMu to be held.
func (e *Engine) pairStateLocked(roomID, userID string) *pairState {
	key := pairKey(roomID, userID)
	if st, ok := e.states[key]; ok {
		return st
	}
	p := personalityFor(roomID)
	st := &pairState{
		emotion:     NewEmotionState(p),
		personality: p,
	}
	if snap, ok, err := e.store.BondSnapshotFor(userID, roomID); err == nil && ok {
		st.bond = BondRecord{Score: snap.Score, Tier: TierFor(snap.Score), LastEvent: snap.At}
	}
	e.states[key] = st
	return st
}

func (e *Engine) persistBond(userID, soulID string, bond BondRecord, now time.Time) {
	err := e.store.SaveBondSnapshot(userID, storage.BondSnapshot{
		SoulID: soulID,
		Score:  bond.Score,
		Tier:   bond.Tier.String(),
		At:     now,
	})
	if err != nil {
		log.Println("[ERR] [REALM] persisting bond snapshot:", err)
	}
}

func pairKey(roomID, userID string) string { return roomID + "/" + userID }

func perkStrings(perks []Perk) []string {
	if len(perks) == 0 {
		return nil
	}
	out := make([]string, len(perks))
	for i, p := range perks {
		out[i] = string(p)
	}
	return out
}

// historyPayload converts the room's ring history for replay on entry.
func historyPayload(entries []HistoryEntry) []wiretypes.ChatMessage {
	if len(entries) == 0 {
		return nil
	}
	out := make([]wiretypes.ChatMessage, 0, len(entries))
	for _, h := range entries {
		out = append(out, wiretypes.ChatMessage{
			Author:    h.Author,
			Message:   h.Message,
			Timestamp: h.At.UnixMilli(),
		})
	}
	return out
}

// signalsFrom maps analyzer factors onto emotion transition signals.
// Missing factors are zero and contribute nothing.
func signalsFrom(f sentiment.Factors) Signals {
	return Signals{
		Excitement:    f.Excitement,
		Intimacy:      f.Intimacy,
		Gratitude:     f.Gratitude,
		Dominance:     f.Dominance,
		Vulnerability: f.Vulnerability,
		Mystery:       f.Mystery,
	}
}

func bondEventFrom(f sentiment.Factors, sessionCount int, now time.Time) BondEvent {
	return BondEvent{
		Romantic:      f.Category == sentiment.Romantic,
		Validation:    f.Category == sentiment.Compliment,
		Vulnerability: f.Category == sentiment.Vulnerable,
		SessionCount:  sessionCount,
		At:            now,
	}
}

// personalityFor derives a soul's fixed traits from its id so every realm
// for the same soul behaves consistently across restarts.
func personalityFor(soulID string) Personality {
	h := fnv.New32a()
	h.Write([]byte(soulID))
	sum := h.Sum32()
	f := func(shift uint) float64 {
		return 0.3 + float64((sum>>shift)&0xff)/255*0.6
	}
	return Personality{
		Dominance:  f(0),
		Mystery:    f(8),
		Confidence: f(16),
		Warmth:     f(24),
	}
}

// soulNameFor prettifies a soul id for display when no name is registered.
func soulNameFor(soulID string) string {
	name := strings.ReplaceAll(soulID, "-", " ")
	name = strings.ReplaceAll(name, "_", " ")
	words := strings.Fields(name)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	if len(words) == 0 {
		return soulID
	}
	return strings.Join(words, " ")
}
