package domain

import (
	"context"
	"time"
)

// SeatHoldCache mirrors live holds into a shared fast store so availability
// reads can see them without a round trip to the primary store. Entries are
// advisory: the reservation table stays the source of truth, and a cache miss
// or stale entry may only ever make a seat look HELD, never FREE.
type SeatHoldCache interface {
	MarkHeld(ctx context.Context, performanceID, seatID int, holderID string, ttl time.Duration) error
	Release(ctx context.Context, performanceID, seatID int) error
	HeldSeats(ctx context.Context, performanceID int) ([]int, error)
}
