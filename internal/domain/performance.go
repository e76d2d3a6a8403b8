package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type PerformanceStatus string

const (
	PerformanceScheduled PerformanceStatus = "SCHEDULED"
	PerformanceCancelled PerformanceStatus = "CANCELLED"
)

type Performance struct {
	ID          int
	Title       string
	VenueID     int
	Showtime    time.Time
	Rows        int
	SeatsPerRow int
	BasePrice   decimal.Decimal
	Status      PerformanceStatus
	CreatedAt   time.Time
}

// NewPerformance builds a SCHEDULED performance from admin input. The seat
// grid dimensions are fixed at creation and never change afterwards.
func NewPerformance(
	title string,
	venueID int,
	showtime time.Time,
	rows, seatsPerRow int,
	basePrice decimal.Decimal,
	now time.Time) (*Performance, error) {

	if title == "" {
		return nil, fmt.Errorf("%w: title must not be empty", ErrInvalidPerformance)
	}

	if rows < 1 || seatsPerRow < 1 {
		return nil, fmt.Errorf("%w: seat grid must have at least one seat", ErrInvalidPerformance)
	}

	if !showtime.After(now) {
		return nil, fmt.Errorf("%w: showtime cannot be in the past", ErrInvalidPerformance)
	}

	if basePrice.IsNegative() {
		return nil, fmt.Errorf("%w: base price cannot be negative", ErrInvalidPerformance)
	}

	return &Performance{
		Title:       title,
		VenueID:     venueID,
		Showtime:    showtime,
		Rows:        rows,
		SeatsPerRow: seatsPerRow,
		BasePrice:   basePrice,
		Status:      PerformanceScheduled,
	}, nil
}

func (p *Performance) Capacity() int {
	return p.Rows * p.SeatsPerRow
}

type Seat struct {
	ID            int
	PerformanceID int
	Row           int
	Number        int
	Label         string
}

func SeatLabel(row, number int) string {
	return fmt.Sprintf("R%dS%d", row, number)
}

// SeatGrid materializes the full seat map of a performance. Seat IDs are
// assigned row-major starting at 1 and are unique within the performance.
func SeatGrid(performanceID, rows, seatsPerRow int) []Seat {
	seats := make([]Seat, 0, rows*seatsPerRow)
	id := 1

	for row := 1; row <= rows; row++ {
		for number := 1; number <= seatsPerRow; number++ {
			seats = append(seats, Seat{
				ID:            id,
				PerformanceID: performanceID,
				Row:           row,
				Number:        number,
				Label:         SeatLabel(row, number),
			})
			id++
		}
	}

	return seats
}

type SeatState string

const (
	SeatFree   SeatState = "FREE"
	SeatHeld   SeatState = "HELD"
	SeatBooked SeatState = "BOOKED"
)

type SeatAvailability struct {
	SeatID int
	Label  string
	State  SeatState
}

// DeriveSeatState folds a seat's active reservation into its user-visible
// state: BOOKED for a confirmed reservation, HELD for a live pending hold,
// FREE otherwise.
func DeriveSeatState(active *Reservation, now time.Time) SeatState {
	switch {
	case active == nil:
		return SeatFree
	case active.State == ReservationConfirmed:
		return SeatBooked
	case active.State == ReservationPending && active.ExpiresAt.After(now):
		return SeatHeld
	default:
		return SeatFree
	}
}

type PerformanceRepository interface {
	Create(ctx context.Context, performance *Performance) error
	GetByID(ctx context.Context, id int) (*Performance, error)
	List(ctx context.Context, pagination Pagination) ([]Performance, *Metadata, error)
	GetSeatMap(ctx context.Context, performanceID int) ([]Seat, error)
	GetSeat(ctx context.Context, performanceID, seatID int) (*Seat, error)
	Cancel(ctx context.Context, id int) error
}
