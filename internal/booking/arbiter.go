package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/stagehold/theatre-reservation-system/internal/domain"
)

// ClaimResult is the arbiter's verdict on a single claim. Reservation is set
// only when the outcome is ACCEPTED.
type ClaimResult struct {
	Outcome     domain.ClaimOutcome
	Reservation *domain.Reservation
}

// Arbiter is the single authority deciding whether a claim on a specific
// (performance, seat) key succeeds. No two claims on the same key evaluate
// concurrently: the first to acquire the key wins, everyone else observes the
// resulting HELD or BOOKED state and is rejected. There is no queueing and no
// retry inside the arbiter; retrying is the caller's decision.
type Arbiter struct {
	performances domain.PerformanceRepository
	reservations domain.ReservationRepository
	holds        domain.SeatHoldCache
	logger       *slog.Logger
	locks        *keyLockTable
	now          func() time.Time
}

func NewArbiter(
	performances domain.PerformanceRepository,
	reservations domain.ReservationRepository,
	holds domain.SeatHoldCache,
	logger *slog.Logger) *Arbiter {

	return &Arbiter{
		performances: performances,
		reservations: reservations,
		holds:        holds,
		logger:       logger,
		locks:        newKeyLockTable(),
		now:          time.Now,
	}
}

// TryClaim attempts to transition a seat from FREE to HELD by writing a new
// PENDING reservation. The critical section is bounded: one reap, one read
// and one conditional write against the store.
func (a *Arbiter) TryClaim(
	ctx context.Context,
	performanceID, seatID int,
	holderID string,
	holdDuration time.Duration) (ClaimResult, error) {

	// An unknown performance or seat is rejected without touching the ledger.
	_, err := a.performances.GetSeat(ctx, performanceID, seatID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return ClaimResult{Outcome: domain.OutcomeRejectedInvalid}, nil
		}

		return ClaimResult{}, fmt.Errorf("resolving seat: %w", err)
	}

	unlock := a.locks.lock(seatKey{performanceID: performanceID, seatID: seatID})
	defer unlock()

	now := a.now()

	// A lapsed hold must never block a new claim (reaping is lazy here, the
	// background sweep only bounds how long abandoned holds linger).
	if _, err := a.reservations.ReapExpired(ctx, performanceID, seatID, now); err != nil {
		return ClaimResult{}, fmt.Errorf("reaping expired holds: %w", err)
	}

	active, err := a.reservations.ActiveBySeat(ctx, performanceID, seatID, now)
	if err != nil {
		return ClaimResult{}, fmt.Errorf("reading seat state: %w", err)
	}

	if active != nil {
		return a.rejectConflict(ctx, performanceID, seatID, holderID, now)
	}

	reservation := &domain.Reservation{
		ID:            uuid.New(),
		PerformanceID: performanceID,
		SeatID:        seatID,
		HolderID:      holderID,
		State:         domain.ReservationPending,
		CreatedAt:     now,
		ExpiresAt:     now.Add(holdDuration),
	}

	err = a.reservations.CreatePending(ctx, reservation)
	if err != nil {
		// The store's live-reservation uniqueness is the backstop for the
		// lock table. Hitting it means another writer, such as a sibling
		// instance, claimed the seat between our read and write.
		if errors.Is(err, domain.ErrSeatAlreadyReserved) {
			return a.rejectConflict(ctx, performanceID, seatID, holderID, now)
		}

		return ClaimResult{}, fmt.Errorf("writing reservation: %w", err)
	}

	if a.holds != nil {
		if err := a.holds.MarkHeld(ctx, performanceID, seatID, holderID, holdDuration); err != nil {
			a.logger.Warn("failed to mirror seat hold to cache",
				"performance_id", performanceID, "seat_id", seatID, "error", err)
		}
	}

	return ClaimResult{Outcome: domain.OutcomeAccepted, Reservation: reservation}, nil
}

func (a *Arbiter) rejectConflict(
	ctx context.Context,
	performanceID, seatID int,
	holderID string,
	now time.Time) (ClaimResult, error) {

	entry := &domain.LedgerEntry{
		PerformanceID: performanceID,
		SeatID:        seatID,
		HolderID:      holderID,
		Action:        domain.LedgerClaim,
		Outcome:       domain.OutcomeRejectedConflict,
		CreatedAt:     now,
	}

	if err := a.reservations.AppendLedger(ctx, entry); err != nil {
		return ClaimResult{}, fmt.Errorf("recording rejected claim: %w", err)
	}

	return ClaimResult{Outcome: domain.OutcomeRejectedConflict}, nil
}
