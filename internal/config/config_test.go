package config

import (
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg, err := New()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ListenAddr != ":8989" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.CohortSize != 5 {
		t.Errorf("CohortSize = %d", cfg.CohortSize)
	}
	if cfg.ReactionStagger != 1500*time.Millisecond {
		t.Errorf("ReactionStagger = %v", cfg.ReactionStagger)
	}
	if cfg.RoomIdleTTL != time.Hour {
		t.Errorf("RoomIdleTTL = %v", cfg.RoomIdleTTL)
	}
	if cfg.RandomSeed != 0 {
		t.Errorf("RandomSeed = %d", cfg.RandomSeed)
	}
}

func TestOverridesFromEnvironment(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9000")
	t.Setenv("COHORT_SIZE", "3")
	t.Setenv("UPSELL_COOLDOWN", "45m")

	cfg, err := New()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ListenAddr != ":9000" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.CohortSize != 3 {
		t.Errorf("CohortSize = %d", cfg.CohortSize)
	}
	if cfg.UpsellCooldown != 45*time.Minute {
		t.Errorf("UpsellCooldown = %v", cfg.UpsellCooldown)
	}
}

func TestRejectsBadCohortSize(t *testing.T) {
	t.Setenv("COHORT_SIZE", "0")
	if _, err := New(); err == nil {
		t.Fatal("expected an error for COHORT_SIZE=0")
	}
}
