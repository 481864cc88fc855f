package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, falling back to system environment variables")
	}
}

// Config holds all runtime settings. Values come from the environment,
// optionally seeded from a .env file.
type Config struct {
	ListenAddr  string `env:"LISTEN_ADDR" envDefault:":8989"`
	StoragePath string `env:"STORAGE_PATH" envDefault:"datastore.json"`

	// Room lifecycle
	RoomIdleTTL  time.Duration `env:"ROOM_IDLE_TTL" envDefault:"1h"`
	ReapInterval time.Duration `env:"REAP_INTERVAL" envDefault:"1m"`
	CohortSize   int           `env:"COHORT_SIZE" envDefault:"5"`
	HistorySize  int           `env:"HISTORY_SIZE" envDefault:"100"`

	// Ambient orchestration
	AmbientInterval time.Duration `env:"AMBIENT_INTERVAL" envDefault:"2m"`
	SilenceAfter    time.Duration `env:"SILENCE_AFTER" envDefault:"5m"`

	// Wave delivery
	ReactionStagger time.Duration `env:"REACTION_STAGGER" envDefault:"1500ms"`

	// Upsell gating
	UpsellCooldown time.Duration `env:"UPSELL_COOLDOWN" envDefault:"30m"`
	OfferLifetime  time.Duration `env:"OFFER_LIFETIME" envDefault:"10m"`

	// RandomSeed of 0 means seed from the clock at startup.
	RandomSeed int64 `env:"RANDOM_SEED" envDefault:"0"`
}

// New parses the environment into a Config.
func New() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing environment: %w", err)
	}
	if cfg.CohortSize < 1 {
		return nil, fmt.Errorf("COHORT_SIZE must be at least 1, got %d", cfg.CohortSize)
	}
	if cfg.HistorySize < 1 {
		return nil, fmt.Errorf("HISTORY_SIZE must be at least 1, got %d", cfg.HistorySize)
	}
	return &cfg, nil
}
