package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stagehold/theatre-reservation-system/internal/domain"
)

// InMemoryStore implements the performance and reservation repositories with
// plain maps behind one mutex. It mirrors the transactional guarantees the
// Postgres repositories get from the database, most importantly the at most
// one live reservation per seat rule, so the booking package can be exercised
// without a running database.
type InMemoryStore struct {
	mu sync.Mutex

	nextPerformanceID int
	nextLedgerID      int64

	performances map[int]domain.Performance
	seats        map[int][]domain.Seat
	reservations map[uuid.UUID]domain.Reservation
	ledger       []domain.LedgerEntry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		nextPerformanceID: 1,
		nextLedgerID:      1,
		performances:      make(map[int]domain.Performance),
		seats:             make(map[int][]domain.Seat),
		reservations:      make(map[uuid.UUID]domain.Reservation),
	}
}

func (s *InMemoryStore) Create(ctx context.Context, performance *domain.Performance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	performance.ID = s.nextPerformanceID
	s.nextPerformanceID++

	if performance.CreatedAt.IsZero() {
		performance.CreatedAt = time.Now()
	}

	s.performances[performance.ID] = *performance
	s.seats[performance.ID] = domain.SeatGrid(performance.ID, performance.Rows, performance.SeatsPerRow)

	return nil
}

func (s *InMemoryStore) GetByID(ctx context.Context, id int) (*domain.Performance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	performance, ok := s.performances[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}

	return &performance, nil
}

func (s *InMemoryStore) List(ctx context.Context, pagination domain.Pagination) ([]domain.Performance, *domain.Metadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]domain.Performance, 0, len(s.performances))
	for _, p := range s.performances {
		all = append(all, p)
	}

	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	metadata := domain.NewMetadata(len(all), pagination.Page, pagination.PageSize)

	start := pagination.Offset()
	if start > len(all) {
		start = len(all)
	}

	end := start + pagination.Limit()
	if end > len(all) {
		end = len(all)
	}

	return all[start:end], metadata, nil
}

func (s *InMemoryStore) GetSeatMap(ctx context.Context, performanceID int) ([]domain.Seat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seats, ok := s.seats[performanceID]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}

	out := make([]domain.Seat, len(seats))
	copy(out, seats)

	return out, nil
}

func (s *InMemoryStore) GetSeat(ctx context.Context, performanceID, seatID int) (*domain.Seat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, seat := range s.seats[performanceID] {
		if seat.ID == seatID {
			return &seat, nil
		}
	}

	return nil, domain.ErrRecordNotFound
}

func (s *InMemoryStore) Cancel(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	performance, ok := s.performances[id]
	if !ok {
		return domain.ErrRecordNotFound
	}

	for _, r := range s.reservations {
		if r.PerformanceID == id && r.State == domain.ReservationConfirmed {
			return domain.ErrPerformanceHasBookings
		}
	}

	performance.Status = domain.PerformanceCancelled
	s.performances[id] = performance

	return nil
}

func (s *InMemoryStore) CreatePending(ctx context.Context, reservation *domain.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Same rule the partial unique index enforces in Postgres.
	for _, r := range s.reservations {
		if r.PerformanceID == reservation.PerformanceID &&
			r.SeatID == reservation.SeatID &&
			(r.State == domain.ReservationPending || r.State == domain.ReservationConfirmed) {
			return domain.ErrSeatAlreadyReserved
		}
	}

	s.reservations[reservation.ID] = *reservation

	id := reservation.ID
	s.appendLedgerLocked(domain.LedgerEntry{
		PerformanceID: reservation.PerformanceID,
		SeatID:        reservation.SeatID,
		HolderID:      reservation.HolderID,
		ReservationID: &id,
		Action:        domain.LedgerClaim,
		Outcome:       domain.OutcomeAccepted,
		CreatedAt:     reservation.CreatedAt,
	})

	return nil
}

func (s *InMemoryStore) GetByReservationID(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reservation, ok := s.reservations[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}

	return &reservation, nil
}

func (s *InMemoryStore) ActiveBySeat(ctx context.Context, performanceID, seatID int, now time.Time) (*domain.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.reservations {
		if r.PerformanceID == performanceID && r.SeatID == seatID && r.Active(now) {
			reservation := r
			return &reservation, nil
		}
	}

	return nil, nil
}

func (s *InMemoryStore) ActiveByPerformance(ctx context.Context, performanceID int, now time.Time) ([]domain.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := make([]domain.Reservation, 0)

	for _, r := range s.reservations {
		if r.PerformanceID == performanceID && r.Active(now) {
			active = append(active, r)
		}
	}

	sort.Slice(active, func(i, j int) bool { return active[i].SeatID < active[j].SeatID })

	return active, nil
}

func (s *InMemoryStore) UpdateState(
	ctx context.Context,
	reservation *domain.Reservation,
	from domain.ReservationState,
	action domain.LedgerAction) error {

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.reservations[reservation.ID]
	if !ok {
		return domain.ErrRecordNotFound
	}

	if stored.State != from {
		return domain.ErrEditConflict
	}

	s.reservations[reservation.ID] = *reservation

	id := reservation.ID
	s.appendLedgerLocked(domain.LedgerEntry{
		PerformanceID: reservation.PerformanceID,
		SeatID:        reservation.SeatID,
		HolderID:      reservation.HolderID,
		ReservationID: &id,
		Action:        action,
		Outcome:       domain.OutcomeAccepted,
		CreatedAt:     time.Now(),
	})

	return nil
}

func (s *InMemoryStore) ReapExpired(ctx context.Context, performanceID, seatID int, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.reapLocked(func(r domain.Reservation) bool {
		return r.PerformanceID == performanceID && r.SeatID == seatID
	}, now), nil
}

func (s *InMemoryStore) ReapAllExpired(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.reapLocked(func(domain.Reservation) bool { return true }, now), nil
}

func (s *InMemoryStore) reapLocked(match func(domain.Reservation) bool, now time.Time) int {
	reaped := 0

	for id, r := range s.reservations {
		if !match(r) || r.State != domain.ReservationPending || r.ExpiresAt.After(now) {
			continue
		}

		r.State = domain.ReservationExpired
		s.reservations[id] = r

		rid := id
		s.appendLedgerLocked(domain.LedgerEntry{
			PerformanceID: r.PerformanceID,
			SeatID:        r.SeatID,
			HolderID:      r.HolderID,
			ReservationID: &rid,
			Action:        domain.LedgerExpire,
			Outcome:       domain.OutcomeAccepted,
			CreatedAt:     now,
		})

		reaped++
	}

	return reaped
}

func (s *InMemoryStore) HasConfirmed(ctx context.Context, performanceID int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.reservations {
		if r.PerformanceID == performanceID && r.State == domain.ReservationConfirmed {
			return true, nil
		}
	}

	return false, nil
}

func (s *InMemoryStore) AppendLedger(ctx context.Context, entry *domain.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.appendLedgerLocked(*entry)
	entry.ID = s.ledger[len(s.ledger)-1].ID

	return nil
}

func (s *InMemoryStore) LedgerBySeat(ctx context.Context, performanceID, seatID int) ([]domain.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]domain.LedgerEntry, 0)

	for _, e := range s.ledger {
		if e.PerformanceID == performanceID && e.SeatID == seatID {
			entries = append(entries, e)
		}
	}

	return entries, nil
}

func (s *InMemoryStore) appendLedgerLocked(entry domain.LedgerEntry) {
	entry.ID = s.nextLedgerID
	s.nextLedgerID++
	s.ledger = append(s.ledger, entry)
}
