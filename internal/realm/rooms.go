package realm

import (
	"context"
	"log"
	"sync"
	"time"
)

// Atmosphere is a room-level label derived from occupant count.
type Atmosphere string

const (
	AtmosphereDormant  Atmosphere = "dormant"
	AtmosphereQuiet    Atmosphere = "quiet"
	AtmosphereLively   Atmosphere = "lively"
	AtmosphereElectric Atmosphere = "electric"
)

// AtmosphereFor is a step function of total participants.
func AtmosphereFor(occupants int) Atmosphere {
	switch {
	case occupants <= 0:
		return AtmosphereDormant
	case occupants <= 3:
		return AtmosphereQuiet
	case occupants <= 8:
		return AtmosphereLively
	default:
		return AtmosphereElectric
	}
}

// Session is one real user's occupancy of one room.
type Session struct {
	UserID       string
	Username     string
	RoomID       string
	JoinedAt     time.Time
	LastActive   time.Time
	MessageCount int
}

// HistoryEntry is one message in a room's bounded history.
type HistoryEntry struct {
	Author  string
	Message string
	At      time.Time
}

// Room is a soul's shared space. All mutation goes through its methods,
// which serialize on the room's own lock; rooms never lock each other.
type Room struct {
	SoulID   string
	SoulName string

	mu        sync.Mutex
	sessions  map[string]*Session
	phantoms  []*Phantom
	cooldowns map[string]time.Time
	energy    float64

	history  []HistoryEntry
	histNext int
	histFull bool

	lastActivity time.Time
	emptySince   time.Time
}

func newRoom(soulID, soulName string, roster []*Phantom, historySize int, now time.Time) *Room {
	return &Room{
		SoulID:       soulID,
		SoulName:     soulName,
		sessions:     make(map[string]*Session),
		phantoms:     roster,
		cooldowns:    make(map[string]time.Time),
		energy:       0.6,
		history:      make([]HistoryEntry, historySize),
		lastActivity: now,
	}
}

// Join adds (or refreshes) a session and clears any idle countdown.
func (r *Room) Join(userID, username string, now time.Time) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[userID]
	if !ok {
		sess = &Session{UserID: userID, Username: username, RoomID: r.SoulID, JoinedAt: now}
		r.sessions[userID] = sess
	}
	sess.Username = username
	sess.LastActive = now
	r.emptySince = time.Time{}
	r.lastActivity = now
	return sess
}

// Leave removes a session. When the last occupant goes, the idle-expiry
// countdown starts rather than the room being torn down immediately.
func (r *Room) Leave(userID string, now time.Time) (removed, empty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[userID]; !ok {
		return false, len(r.sessions) == 0
	}
	delete(r.sessions, userID)
	if len(r.sessions) == 0 {
		r.emptySince = now
		return true, true
	}
	return true, false
}

// Session returns a copy of the user's session, if present.
func (r *Room) Session(userID string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[userID]
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

// RecordActivity refreshes the session and bumps its message counter.
func (r *Room) RecordActivity(userID string, now time.Time) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[userID]
	if !ok {
		return Session{}, false
	}
	sess.LastActive = now
	sess.MessageCount++
	r.lastActivity = now
	return *sess, true
}

// PhantomCount returns the size of the room's phantom cohort.
func (r *Room) PhantomCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.phantoms)
}

// Occupants counts real sessions only.
func (r *Room) Occupants() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Atmosphere derives the label from sessions plus the phantom cohort.
func (r *Room) Atmosphere() Atmosphere {
	r.mu.Lock()
	defer r.mu.Unlock()
	return AtmosphereFor(len(r.sessions) + len(r.phantoms))
}

// BumpEnergy shifts room energy, clamped to [0,1].
func (r *Room) BumpEnergy(delta float64) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.energy = clamp01(r.energy + delta)
	return r.energy
}

// DecayEnergy multiplies energy by factor, used by the ambient pass.
func (r *Room) DecayEnergy(factor float64) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.energy = clamp01(r.energy * factor)
	return r.energy
}

// Energy returns the current room energy.
func (r *Room) Energy() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.energy
}

// AppendHistory writes into the bounded ring; the oldest entry is
// overwritten once the ring is full.
func (r *Room) AppendHistory(e HistoryEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.history) == 0 {
		return
	}
	r.history[r.histNext] = e
	r.histNext++
	if r.histNext == len(r.history) {
		r.histNext = 0
		r.histFull = true
	}
}

// History returns the retained entries oldest-first.
func (r *Room) History() []HistoryEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.histFull {
		out := make([]HistoryEntry, r.histNext)
		copy(out, r.history[:r.histNext])
		return out
	}
	out := make([]HistoryEntry, 0, len(r.history))
	out = append(out, r.history[r.histNext:]...)
	out = append(out, r.history[:r.histNext]...)
	return out
}

// React runs the phantom trigger engine against this room's roster and
// cooldown ledger, and applies the category's energy delta.
func (r *Room) React(ev TriggerEvent, rnd Rand, now time.Time, stagger time.Duration) []PhantomReaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	ev.SoulName = r.SoulName
	r.energy = clamp01(r.energy + EnergyDeltaFor(ev.Category, ev.Amount))
	return React(r.phantoms, r.cooldowns, ev, rnd, now, stagger)
}

// SilentFor reports how long the room has gone without activity.
func (r *Room) SilentFor(now time.Time) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return now.Sub(r.lastActivity)
}

// MarkActivity refreshes the room-level activity clock without touching
// any session, used when phantom chatter fires.
func (r *Room) MarkActivity(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastActivity = now
}

func (r *Room) reapEligible(now time.Time, ttl time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions) == 0 && !r.emptySince.IsZero() && now.Sub(r.emptySince) >= ttl
}

// Manager owns all live rooms. Rooms are created lazily on first join and
// reaped after sitting empty past the idle TTL.
type Manager struct {
	mu          sync.RWMutex
	rooms       map[string]*Room
	cohortSize  int
	historySize int
}

// NewManager returns an empty room registry.
func NewManager(cohortSize, historySize int) *Manager {
	return &Manager{
		rooms:       make(map[string]*Room),
		cohortSize:  cohortSize,
		historySize: historySize,
	}
}

// GetOrCreate returns the soul's room, allocating it with a fresh phantom
// roster on first join.
func (m *Manager) GetOrCreate(soulID, soulName string, rnd Rand, now time.Time) *Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	if room, ok := m.rooms[soulID]; ok {
		return room
	}
	room := newRoom(soulID, soulName, NewRoster(rnd, m.cohortSize), m.historySize, now)
	m.rooms[soulID] = room
	log.Printf("[INFO] [REALM] room %s opened with %d phantoms", soulID, m.cohortSize)
	return room
}

// Get looks up a live room.
func (m *Manager) Get(soulID string) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	room, ok := m.rooms[soulID]
	return room, ok
}

// Rooms snapshots the live room set.
func (m *Manager) Rooms() []*Room {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Room, 0, len(m.rooms))
	for _, room := range m.rooms {
		out = append(out, room)
	}
	return out
}

// Count returns the number of live rooms.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

// ReapIdle deletes rooms empty past ttl and returns their ids so the
// caller can cancel residual scheduled waves.
func (m *Manager) ReapIdle(now time.Time, ttl time.Duration) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var reaped []string
	for id, room := range m.rooms {
		if room.reapEligible(now, ttl) {
			delete(m.rooms, id)
			reaped = append(reaped, id)
		}
	}
	return reaped
}

// RunReaper periodically reaps idle rooms until ctx is done, invoking
// onReap for each torn-down room.
func (m *Manager) RunReaper(ctx context.Context, interval, ttl time.Duration, onReap func(roomID string)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for _, id := range m.ReapIdle(now, ttl) {
				log.Printf("[INFO] [REALM] room %s reaped after idle timeout", id)
				if onReap != nil {
					onReap(id)
				}
			}
		}
	}
}
