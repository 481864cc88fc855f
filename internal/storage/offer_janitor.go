package storage

import (
	"context"
	"log"
	"time"
)

// RunOfferJanitor runs a background goroutine that drops stale expired
// offers from the ledgers every interval until ctx is done. Call from main
// or app lifecycle.
func RunOfferJanitor(ctx context.Context, store *Storage, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			cleared, err := store.ClearExpiredOffers(now)
			if err != nil {
				log.Println("[ERR] Error clearing expired offers:", err)
				continue
			}
			if cleared > 0 {
				log.Printf("[INFO] Cleared %d expired offers", cleared)
			}
		}
	}
}
