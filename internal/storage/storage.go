// /internal/storage/storage.go
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/keshon/datastore"
)

const profilesKey = "profiles"

const offerRetention = 24 * time.Hour

// Storage owns the datastore lifecycle: the cancel func releases the
// autosave goroutine so Close can run the final flush and return.
type Storage struct {
	ds     *datastore.DataStore
	cancel context.CancelFunc
}

// BondSnapshot is the persisted view of a user's bond with one soul.
type BondSnapshot struct {
	SoulID string    `json:"soul_id"`
	Score  float64   `json:"score"`
	Tier   string    `json:"tier"`
	At     time.Time `json:"at"`
}

// OfferRecord is one emitted premium offer in a user's ledger.
type OfferRecord struct {
	ID         string    `json:"id"`
	RoomID     string    `json:"room_id"`
	FeatureKey string    `json:"feature_key"`
	Price      float64   `json:"price"`
	IssuedAt   time.Time `json:"issued_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	Redeemed   bool      `json:"redeemed"`
}

// Profile is everything persisted per user across sessions.
type Profile struct {
	UserID             string                  `json:"user_id"`
	SpendingPropensity float64                 `json:"spending_propensity"`
	TotalSpent         float64                 `json:"total_spent"`
	SessionCount       int                     `json:"session_count"`
	UnlockedFeatures   []string                `json:"unlocked_features"`
	Bonds              map[string]BondSnapshot `json:"bonds"`       // key = soulID
	Offers             []OfferRecord           `json:"offers"`      // append-only ledger
	LastOfferAt        map[string]time.Time    `json:"last_offers"` // key = roomID
	FirstSeen          time.Time               `json:"first_seen"`
	LastSeen           time.Time               `json:"last_seen"`
}

func New(filePath string) (*Storage, error) {
	ctx, cancel := context.WithCancel(context.Background())
	ds, err := datastore.New(ctx, filePath)
	if err != nil {
		cancel()
		return nil, err
	}
	return &Storage{ds: ds, cancel: cancel}, nil
}

func (s *Storage) Close() error {
	s.cancel()
	return s.ds.Close()
}

// Stats exposes datastore counters for the ops endpoint.
func (s *Storage) Stats() map[string]any {
	return map[string]any{
		"keys": s.ds.Len(),
	}
}

// All profiles live under a single datastore key so the store can be
// iterated without key enumeration.
func (s *Storage) getProfiles() (map[string]*Profile, error) {
	var profiles map[string]*Profile
	exists, err := s.ds.Get(profilesKey, &profiles)
	if err != nil {
		return nil, fmt.Errorf("error reading profiles: %w", err)
	}
	if !exists || profiles == nil {
		profiles = map[string]*Profile{}
	}
	return profiles, nil
}

func (s *Storage) putProfiles(profiles map[string]*Profile) error {
	if err := s.ds.Set(profilesKey, profiles); err != nil {
		return fmt.Errorf("error writing profiles: %w", err)
	}
	return nil
}

func (s *Storage) getOrCreateProfile(profiles map[string]*Profile, userID string) *Profile {
	p, ok := profiles[userID]
	if !ok {
		p = &Profile{
			UserID:      userID,
			Bonds:       map[string]BondSnapshot{},
			LastOfferAt: map[string]time.Time{},
			FirstSeen:   time.Now(),
		}
		profiles[userID] = p
	}
	if p.Bonds == nil {
		p.Bonds = map[string]BondSnapshot{}
	}
	if p.LastOfferAt == nil {
		p.LastOfferAt = map[string]time.Time{}
	}
	return p
}

// Profile fetches a copy of the user's profile, creating it on first use.
func (s *Storage) Profile(userID string) (Profile, error) {
	profiles, err := s.getProfiles()
	if err != nil {
		return Profile{}, err
	}
	p := s.getOrCreateProfile(profiles, userID)
	if err := s.putProfiles(profiles); err != nil {
		return Profile{}, err
	}
	return *p, nil
}

// RecordSession bumps the user's session counter and returns the new count.
func (s *Storage) RecordSession(userID string, now time.Time) (int, error) {
	profiles, err := s.getProfiles()
	if err != nil {
		return 0, err
	}
	p := s.getOrCreateProfile(profiles, userID)
	p.SessionCount++
	p.LastSeen = now
	if err := s.putProfiles(profiles); err != nil {
		return 0, err
	}
	return p.SessionCount, nil
}

// RecordSpend adds to the user's lifetime spend and re-derives the
// spending propensity (saturating toward 1 at 250 total).
func (s *Storage) RecordSpend(userID string, amount float64) (Profile, error) {
	profiles, err := s.getProfiles()
	if err != nil {
		return Profile{}, err
	}
	p := s.getOrCreateProfile(profiles, userID)
	p.TotalSpent += amount
	p.SpendingPropensity = p.TotalSpent / 250
	if p.SpendingPropensity > 1 {
		p.SpendingPropensity = 1
	}
	if err := s.putProfiles(profiles); err != nil {
		return Profile{}, err
	}
	return *p, nil
}

// UnlockFeature marks a feature as owned. Reports whether the user
// already had it.
func (s *Storage) UnlockFeature(userID, featureKey string) (bool, error) {
	profiles, err := s.getProfiles()
	if err != nil {
		return false, err
	}
	p := s.getOrCreateProfile(profiles, userID)
	for _, have := range p.UnlockedFeatures {
		if have == featureKey {
			return true, nil
		}
	}
	p.UnlockedFeatures = append(p.UnlockedFeatures, featureKey)
	if err := s.putProfiles(profiles); err != nil {
		return false, err
	}
	return false, nil
}

// HasFeature reports whether the user owns featureKey.
func (s *Storage) HasFeature(userID, featureKey string) (bool, error) {
	p, err := s.Profile(userID)
	if err != nil {
		return false, err
	}
	for _, have := range p.UnlockedFeatures {
		if have == featureKey {
			return true, nil
		}
	}
	return false, nil
}

// SaveBondSnapshot persists the user's current bond with one soul.
func (s *Storage) SaveBondSnapshot(userID string, snap BondSnapshot) error {
	profiles, err := s.getProfiles()
	if err != nil {
		return err
	}
	p := s.getOrCreateProfile(profiles, userID)
	p.Bonds[snap.SoulID] = snap
	return s.putProfiles(profiles)
}

// BondSnapshotFor returns the persisted bond with soulID, if any.
func (s *Storage) BondSnapshotFor(userID, soulID string) (BondSnapshot, bool, error) {
	p, err := s.Profile(userID)
	if err != nil {
		return BondSnapshot{}, false, err
	}
	snap, ok := p.Bonds[soulID]
	return snap, ok, nil
}

// RecordOffer appends to the offer ledger and stamps the per-room offer
// cooldown clock.
func (s *Storage) RecordOffer(userID string, offer OfferRecord) error {
	profiles, err := s.getProfiles()
	if err != nil {
		return err
	}
	p := s.getOrCreateProfile(profiles, userID)
	p.Offers = append(p.Offers, offer)
	p.LastOfferAt[offer.RoomID] = offer.IssuedAt
	return s.putProfiles(profiles)
}

// LastOfferAt returns when the user last received an offer in roomID.
func (s *Storage) LastOfferAt(userID, roomID string) (time.Time, error) {
	p, err := s.Profile(userID)
	if err != nil {
		return time.Time{}, err
	}
	return p.LastOfferAt[roomID], nil
}

// RedeemOffer marks the ledger entry redeemed. Reports whether a live
// matching offer was found.
func (s *Storage) RedeemOffer(userID, offerID string, now time.Time) (bool, error) {
	profiles, err := s.getProfiles()
	if err != nil {
		return false, err
	}
	p := s.getOrCreateProfile(profiles, userID)
	for i := range p.Offers {
		o := &p.Offers[i]
		if o.ID != offerID || o.Redeemed {
			continue
		}
		if now.After(o.ExpiresAt) {
			return false, nil
		}
		o.Redeemed = true
		if err := s.putProfiles(profiles); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// ClearExpiredOffers drops unredeemed offers expired past the retention
// window from every ledger.
func (s *Storage) ClearExpiredOffers(now time.Time) (int, error) {
	profiles, err := s.getProfiles()
	if err != nil {
		return 0, err
	}
	cleared := 0
	for _, p := range profiles {
		kept := p.Offers[:0]
		for _, o := range p.Offers {
			if !o.Redeemed && now.Sub(o.ExpiresAt) > offerRetention {
				cleared++
				continue
			}
			kept = append(kept, o)
		}
		p.Offers = kept
	}
	if cleared > 0 {
		if err := s.putProfiles(profiles); err != nil {
			return 0, err
		}
	}
	return cleared, nil
}
