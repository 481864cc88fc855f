package storage

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "datastore.json"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestProfileCreatedOnFirstUse(t *testing.T) {
	s := newTestStorage(t)
	p, err := s.Profile("u1")
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if p.UserID != "u1" {
		t.Errorf("UserID = %q, want u1", p.UserID)
	}
	if p.SessionCount != 0 || p.TotalSpent != 0 {
		t.Errorf("fresh profile not zeroed: %+v", p)
	}
}

func TestRecordSessionIncrements(t *testing.T) {
	s := newTestStorage(t)
	now := time.Now()
	for want := 1; want <= 3; want++ {
		got, err := s.RecordSession("u1", now)
		if err != nil {
			t.Fatalf("RecordSession: %v", err)
		}
		if got != want {
			t.Errorf("session count = %d, want %d", got, want)
		}
	}
}

func TestRecordSpendDerivesPropensity(t *testing.T) {
	s := newTestStorage(t)
	p, err := s.RecordSpend("u1", 50)
	if err != nil {
		t.Fatalf("RecordSpend: %v", err)
	}
	if p.SpendingPropensity != 0.2 {
		t.Errorf("propensity = %f, want 0.2", p.SpendingPropensity)
	}
	p, _ = s.RecordSpend("u1", 10000)
	if p.SpendingPropensity != 1 {
		t.Errorf("propensity should cap at 1, got %f", p.SpendingPropensity)
	}
}

func TestUnlockFeatureIdempotent(t *testing.T) {
	s := newTestStorage(t)
	already, err := s.UnlockFeature("u1", "voice_unlock")
	if err != nil {
		t.Fatalf("UnlockFeature: %v", err)
	}
	if already {
		t.Error("first unlock reported as already owned")
	}
	already, _ = s.UnlockFeature("u1", "voice_unlock")
	if !already {
		t.Error("second unlock should report already owned")
	}
	has, _ := s.HasFeature("u1", "voice_unlock")
	if !has {
		t.Error("HasFeature should see the unlock")
	}
}

func TestOfferLedgerAndRedeem(t *testing.T) {
	s := newTestStorage(t)
	now := time.Now()
	offer := OfferRecord{
		ID:         "o1",
		RoomID:     "soul-1",
		FeatureKey: "voice_unlock",
		Price:      25,
		IssuedAt:   now,
		ExpiresAt:  now.Add(10 * time.Minute),
	}
	if err := s.RecordOffer("u1", offer); err != nil {
		t.Fatalf("RecordOffer: %v", err)
	}

	last, err := s.LastOfferAt("u1", "soul-1")
	if err != nil {
		t.Fatalf("LastOfferAt: %v", err)
	}
	if !last.Equal(now) {
		t.Errorf("last offer at %v, want %v", last, now)
	}

	ok, err := s.RedeemOffer("u1", "o1", now.Add(time.Minute))
	if err != nil || !ok {
		t.Fatalf("RedeemOffer: ok=%v err=%v", ok, err)
	}
	// A redeemed offer cannot be redeemed twice.
	ok, _ = s.RedeemOffer("u1", "o1", now.Add(2*time.Minute))
	if ok {
		t.Error("offer redeemed twice")
	}
}

func TestRedeemExpiredOfferFails(t *testing.T) {
	s := newTestStorage(t)
	now := time.Now()
	s.RecordOffer("u1", OfferRecord{ID: "o1", RoomID: "r", ExpiresAt: now.Add(time.Minute)})
	ok, err := s.RedeemOffer("u1", "o1", now.Add(time.Hour))
	if err != nil {
		t.Fatalf("RedeemOffer: %v", err)
	}
	if ok {
		t.Error("expired offer should not redeem")
	}
}

func TestClearExpiredOffers(t *testing.T) {
	s := newTestStorage(t)
	now := time.Now()
	s.RecordOffer("u1", OfferRecord{ID: "stale", RoomID: "r", ExpiresAt: now.Add(-48 * time.Hour)})
	s.RecordOffer("u1", OfferRecord{ID: "fresh", RoomID: "r", ExpiresAt: now.Add(time.Hour)})

	cleared, err := s.ClearExpiredOffers(now)
	if err != nil {
		t.Fatalf("ClearExpiredOffers: %v", err)
	}
	if cleared != 1 {
		t.Errorf("cleared = %d, want 1", cleared)
	}
	p, _ := s.Profile("u1")
	if len(p.Offers) != 1 || p.Offers[0].ID != "fresh" {
		t.Errorf("ledger after clear = %+v", p.Offers)
	}
}

func TestCloseFlushesAndReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "datastore.json")
	s, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := s.RecordSession("u1", time.Now()); err != nil {
		t.Fatalf("RecordSession: %v", err)
	}

	// Close must release the autosave goroutine, run the final flush and
	// return instead of blocking.
	closed := make(chan error, 1)
	go func() { closed <- s.Close() }()
	select {
	case err := <-closed:
		if err != nil {
			t.Fatalf("Close: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return")
	}

	reopened, err := New(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	p, err := reopened.Profile("u1")
	if err != nil {
		t.Fatalf("Profile after reopen: %v", err)
	}
	if p.SessionCount != 1 {
		t.Errorf("session count after reopen = %d, want 1", p.SessionCount)
	}
}

func TestBondSnapshotRoundTrip(t *testing.T) {
	s := newTestStorage(t)
	snap := BondSnapshot{SoulID: "soul-1", Score: 42.5, Tier: "flirty", At: time.Now()}
	if err := s.SaveBondSnapshot("u1", snap); err != nil {
		t.Fatalf("SaveBondSnapshot: %v", err)
	}
	got, ok, err := s.BondSnapshotFor("u1", "soul-1")
	if err != nil || !ok {
		t.Fatalf("BondSnapshotFor: ok=%v err=%v", ok, err)
	}
	if got.Score != 42.5 || got.Tier != "flirty" {
		t.Errorf("snapshot = %+v", got)
	}
	if _, ok, _ := s.BondSnapshotFor("u1", "soul-2"); ok {
		t.Error("unknown soul should have no snapshot")
	}
}
