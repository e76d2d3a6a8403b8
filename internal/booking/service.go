package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/stagehold/theatre-reservation-system/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	DefaultHoldDuration = 10 * time.Minute

	// Claims close shortly before curtain so front-of-house keeps control of
	// last-minute seating.
	DefaultClaimCutoff = 15 * time.Minute
)

// Service orchestrates seat claims: it validates the performance-level
// preconditions, delegates per-seat adjudication to the arbiter and drives
// the reservation state machine for confirm and cancel.
type Service struct {
	performances domain.PerformanceRepository
	reservations domain.ReservationRepository
	arbiter      *Arbiter
	holds        domain.SeatHoldCache
	logger       *slog.Logger
	holdDuration time.Duration
	claimCutoff  time.Duration
	now          func() time.Time
	claims       metric.Int64Counter
}

func NewService(
	performances domain.PerformanceRepository,
	reservations domain.ReservationRepository,
	arbiter *Arbiter,
	holds domain.SeatHoldCache,
	logger *slog.Logger,
	holdDuration, claimCutoff time.Duration) *Service {

	if holdDuration <= 0 {
		holdDuration = DefaultHoldDuration
	}

	meter := otel.Meter("github.com/stagehold/theatre-reservation-system/internal/booking")

	claims, err := meter.Int64Counter("booking.claims",
		metric.WithDescription("Seat claims adjudicated, by outcome"))
	if err != nil {
		logger.Error("failed to create claims counter", "error", err)
	}

	return &Service{
		performances: performances,
		reservations: reservations,
		arbiter:      arbiter,
		holds:        holds,
		logger:       logger,
		holdDuration: holdDuration,
		claimCutoff:  claimCutoff,
		now:          time.Now,
		claims:       claims,
	}
}

// BookingResult carries the outcome of a single-seat booking attempt. A
// conflict is a normal result of contention, reported through Outcome rather
// than as an error.
type BookingResult struct {
	Outcome     domain.ClaimOutcome
	Reservation *domain.Reservation
}

// BookSeat claims one seat for the holder. Fails with ErrRecordNotFound for
// an unknown performance or seat, ErrPerformanceCancelled for a cancelled
// performance and ErrClaimWindowClosed once the pre-showtime cutoff passed.
func (s *Service) BookSeat(ctx context.Context, performanceID, seatID int, holderID string) (BookingResult, error) {
	if err := s.checkClaimable(ctx, performanceID); err != nil {
		return BookingResult{}, err
	}

	result, err := s.arbiter.TryClaim(ctx, performanceID, seatID, holderID, s.holdDuration)
	if err != nil {
		return BookingResult{}, err
	}

	s.recordClaim(ctx, result.Outcome)

	if result.Outcome == domain.OutcomeRejectedInvalid {
		return BookingResult{}, domain.ErrRecordNotFound
	}

	return BookingResult{Outcome: result.Outcome, Reservation: result.Reservation}, nil
}

// SeatBookingResult is one seat's outcome within a multi-seat request.
type SeatBookingResult struct {
	SeatID      int
	Outcome     domain.ClaimOutcome
	Reservation *domain.Reservation
}

// BookSeats claims several seats as independent per-seat attempts. Each seat
// succeeds or fails on its own and partial success is visible in the result;
// callers wanting all-or-nothing semantics compensate by cancelling the
// accepted reservations themselves. Seats are claimed one at a time, so the
// request never holds more than one arbiter key.
func (s *Service) BookSeats(ctx context.Context, performanceID int, seatIDs []int, holderID string) ([]SeatBookingResult, error) {
	if err := s.checkClaimable(ctx, performanceID); err != nil {
		return nil, err
	}

	results := make([]SeatBookingResult, 0, len(seatIDs))

	for _, seatID := range seatIDs {
		claim, err := s.arbiter.TryClaim(ctx, performanceID, seatID, holderID, s.holdDuration)
		if err != nil {
			return results, err
		}

		s.recordClaim(ctx, claim.Outcome)

		results = append(results, SeatBookingResult{
			SeatID:      seatID,
			Outcome:     claim.Outcome,
			Reservation: claim.Reservation,
		})
	}

	return results, nil
}

func (s *Service) checkClaimable(ctx context.Context, performanceID int) error {
	performance, err := s.performances.GetByID(ctx, performanceID)
	if err != nil {
		return err
	}

	if performance.Status == domain.PerformanceCancelled {
		return domain.ErrPerformanceCancelled
	}

	if s.claimCutoff > 0 && s.now().After(performance.Showtime.Add(-s.claimCutoff)) {
		return domain.ErrClaimWindowClosed
	}

	return nil
}

// Confirm finalizes a pending hold into a booking. Fails with
// ErrReservationExpired past the hold deadline and ErrAlreadyFinalized for
// any terminal state.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	reservation, err := s.reservations.GetByReservationID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	from := reservation.State

	if err := reservation.Confirm(now); err != nil {
		if errors.Is(err, domain.ErrReservationExpired) && from == domain.ReservationPending {
			// The hold lapsed but nobody reaped it yet; record the expiry now
			// so the audit trail reflects what the caller observed.
			if _, reapErr := s.reservations.ReapExpired(ctx, reservation.PerformanceID, reservation.SeatID, now); reapErr != nil {
				s.logger.Error("failed to reap lapsed hold on confirm",
					"reservation_id", reservation.ID, "error", reapErr)
			}
		}

		return nil, err
	}

	if err := s.reservations.UpdateState(ctx, reservation, from, domain.LedgerConfirm); err != nil {
		return nil, fmt.Errorf("persisting confirmation: %w", err)
	}

	s.releaseHold(ctx, reservation.PerformanceID, reservation.SeatID)

	return reservation, nil
}

// Cancel releases a pending hold or a confirmed booking. Cancelling an
// already cancelled reservation succeeds without writing anything.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	reservation, err := s.reservations.GetByReservationID(ctx, id)
	if err != nil {
		return nil, err
	}

	from := reservation.State

	changed, err := reservation.Cancel()
	if err != nil {
		return nil, err
	}

	if !changed {
		return reservation, nil
	}

	if err := s.reservations.UpdateState(ctx, reservation, from, domain.LedgerCancel); err != nil {
		return nil, fmt.Errorf("persisting cancellation: %w", err)
	}

	s.releaseHold(ctx, reservation.PerformanceID, reservation.SeatID)

	return reservation, nil
}

// Availability reports the derived state of every seat of a performance,
// ordered by seat ID. The read folds the seat map with the live reservation
// set at read time: a hold expiring between read and response may still show
// as HELD, but a seat with a live reservation is never reported FREE.
func (s *Service) Availability(ctx context.Context, performanceID int) ([]domain.SeatAvailability, error) {
	seats, err := s.performances.GetSeatMap(ctx, performanceID)
	if err != nil {
		return nil, err
	}

	now := s.now()

	active, err := s.reservations.ActiveByPerformance(ctx, performanceID, now)
	if err != nil {
		return nil, err
	}

	states := make(map[int]domain.SeatState, len(active))
	for i := range active {
		states[active[i].SeatID] = domain.DeriveSeatState(&active[i], now)
	}

	// Overlay cached holds. The cache may lag a cancellation by a moment;
	// that can only upgrade FREE to HELD, which is acceptable staleness.
	if s.holds != nil {
		heldIDs, err := s.holds.HeldSeats(ctx, performanceID)
		if err != nil {
			s.logger.Warn("failed to read seat holds from cache",
				"performance_id", performanceID, "error", err)
		} else {
			for _, seatID := range heldIDs {
				if states[seatID] == "" {
					states[seatID] = domain.SeatHeld
				}
			}
		}
	}

	availability := make([]domain.SeatAvailability, len(seats))

	for i, seat := range seats {
		state, ok := states[seat.ID]
		if !ok || state == "" {
			state = domain.SeatFree
		}

		availability[i] = domain.SeatAvailability{
			SeatID: seat.ID,
			Label:  seat.Label,
			State:  state,
		}
	}

	return availability, nil
}

// Ledger returns the audit trail for one seat, oldest entry first.
func (s *Service) Ledger(ctx context.Context, performanceID, seatID int) ([]domain.LedgerEntry, error) {
	return s.reservations.LedgerBySeat(ctx, performanceID, seatID)
}

func (s *Service) releaseHold(ctx context.Context, performanceID, seatID int) {
	if s.holds == nil {
		return
	}

	if err := s.holds.Release(ctx, performanceID, seatID); err != nil {
		s.logger.Warn("failed to release seat hold in cache",
			"performance_id", performanceID, "seat_id", seatID, "error", err)
	}
}

func (s *Service) recordClaim(ctx context.Context, outcome domain.ClaimOutcome) {
	if s.claims == nil {
		return
	}

	s.claims.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", string(outcome))))
}
