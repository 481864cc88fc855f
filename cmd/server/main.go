// cmd/server/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/keshon/server-siren/internal/analysis/sentiment"
	"github.com/keshon/server-siren/internal/config"
	"github.com/keshon/server-siren/internal/gateway"
	"github.com/keshon/server-siren/internal/realm"
	"github.com/keshon/server-siren/internal/storage"
	v "github.com/keshon/server-siren/internal/version"
)

func main() {
	log.Printf("[INFO] Starting %v...", v.AppName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.New()
	if err != nil {
		log.Fatal(err)
	}

	store, err := storage.New(cfg.StoragePath)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	go storage.RunOfferJanitor(ctx, store, time.Hour)

	seed := cfg.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	engine := realm.NewEngine(store, sentiment.Analyze, realm.NewRand(seed), realm.Options{
		CohortSize:      cfg.CohortSize,
		HistorySize:     cfg.HistorySize,
		ReactionStagger: cfg.ReactionStagger,
		UpsellCooldown:  cfg.UpsellCooldown,
		OfferLifetime:   cfg.OfferLifetime,
		AmbientInterval: cfg.AmbientInterval,
		SilenceAfter:    cfg.SilenceAfter,
		RoomIdleTTL:     cfg.RoomIdleTTL,
		ReapInterval:    cfg.ReapInterval,
	})
	go engine.Run(ctx)

	srv := gateway.New(cfg.ListenAddr, engine, store)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Run(ctx); err != nil {
			errCh <- err
		}
		close(errCh)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		log.Printf("[INFO] Received signal %s, shutting down...\n", s)
		cancel()
	case err := <-errCh:
		if err != nil {
			log.Println("[ERR] Gateway error:", err)
		}
		cancel()
	case <-ctx.Done():
	}

	log.Println("[INFO] Exited cleanly")
}
