package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ReservationState string

const (
	ReservationPending   ReservationState = "PENDING"
	ReservationConfirmed ReservationState = "CONFIRMED"
	ReservationExpired   ReservationState = "EXPIRED"
	ReservationCancelled ReservationState = "CANCELLED"
)

// CanTransitionTo reports whether the state machine permits moving to next.
// EXPIRED and CANCELLED are terminal; CONFIRMED can only be released through
// an explicit cancellation.
func (s ReservationState) CanTransitionTo(next ReservationState) bool {
	switch s {
	case ReservationPending:
		return next == ReservationConfirmed || next == ReservationExpired || next == ReservationCancelled
	case ReservationConfirmed:
		return next == ReservationCancelled
	default:
		return false
	}
}

type Reservation struct {
	ID            uuid.UUID
	PerformanceID int
	SeatID        int
	HolderID      string
	State         ReservationState
	CreatedAt     time.Time
	ConfirmedAt   *time.Time
	ExpiresAt     time.Time
}

// Active reports whether the reservation still excludes other claims on its
// seat at the given instant. A pending hold past its deadline no longer
// counts, even if no reaper has marked it EXPIRED yet.
func (r *Reservation) Active(now time.Time) bool {
	switch r.State {
	case ReservationConfirmed:
		return true
	case ReservationPending:
		return r.ExpiresAt.After(now)
	default:
		return false
	}
}

// Confirm applies the PENDING -> CONFIRMED transition. A lapsed hold fails
// with ErrReservationExpired; any finalized state fails with
// ErrAlreadyFinalized.
func (r *Reservation) Confirm(now time.Time) error {
	switch {
	case r.State.CanTransitionTo(ReservationConfirmed) && r.ExpiresAt.After(now):
		r.State = ReservationConfirmed
		r.ConfirmedAt = &now
		return nil
	case r.State == ReservationPending, r.State == ReservationExpired:
		return ErrReservationExpired
	default:
		return ErrAlreadyFinalized
	}
}

// Cancel applies PENDING|CONFIRMED -> CANCELLED. Cancelling an already
// cancelled reservation reports changed=false so the operation stays
// idempotent without writing a second audit entry.
func (r *Reservation) Cancel() (changed bool, err error) {
	switch {
	case r.State == ReservationCancelled:
		return false, nil
	case r.State.CanTransitionTo(ReservationCancelled):
		r.State = ReservationCancelled
		return true, nil
	default:
		return false, ErrAlreadyFinalized
	}
}

type LedgerAction string

const (
	LedgerClaim   LedgerAction = "CLAIM"
	LedgerConfirm LedgerAction = "CONFIRM"
	LedgerCancel  LedgerAction = "CANCEL"
	LedgerExpire  LedgerAction = "EXPIRE"
)

type ClaimOutcome string

const (
	OutcomeAccepted         ClaimOutcome = "ACCEPTED"
	OutcomeRejectedConflict ClaimOutcome = "REJECTED_CONFLICT"
	OutcomeRejectedInvalid  ClaimOutcome = "REJECTED_INVALID"
)

// LedgerEntry is an immutable audit record of a state transition attempted on
// a (performance, seat) pair. Current seat state can be reconstructed by
// folding a seat's entries in order.
type LedgerEntry struct {
	ID            int64
	PerformanceID int
	SeatID        int
	HolderID      string
	ReservationID *uuid.UUID
	Action        LedgerAction
	Outcome       ClaimOutcome
	CreatedAt     time.Time
}

type ReservationRepository interface {
	// CreatePending writes the reservation and its ACCEPTED ledger entry as
	// one atomic unit. Returns ErrSeatAlreadyReserved when another live
	// reservation already holds the seat.
	CreatePending(ctx context.Context, reservation *Reservation) error

	GetByReservationID(ctx context.Context, id uuid.UUID) (*Reservation, error)

	// ActiveBySeat returns the reservation currently excluding new claims on
	// the seat, or nil when the seat is free.
	ActiveBySeat(ctx context.Context, performanceID, seatID int, now time.Time) (*Reservation, error)

	ActiveByPerformance(ctx context.Context, performanceID int, now time.Time) ([]Reservation, error)

	// UpdateState persists an already validated transition together with its
	// ledger entry. Fails with ErrEditConflict when the stored state no
	// longer matches from.
	UpdateState(ctx context.Context, reservation *Reservation, from ReservationState, action LedgerAction) error

	// ReapExpired marks lapsed PENDING reservations on one seat as EXPIRED
	// and appends the matching ledger entries.
	ReapExpired(ctx context.Context, performanceID, seatID int, now time.Time) (int, error)

	// ReapAllExpired is the sweep variant of ReapExpired, covering every
	// performance.
	ReapAllExpired(ctx context.Context, now time.Time) (int, error)

	HasConfirmed(ctx context.Context, performanceID int) (bool, error)

	AppendLedger(ctx context.Context, entry *LedgerEntry) error

	LedgerBySeat(ctx context.Context, performanceID, seatID int) ([]LedgerEntry, error)
}
