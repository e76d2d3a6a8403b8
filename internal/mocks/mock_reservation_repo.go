package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stagehold/theatre-reservation-system/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockReservationRepo struct {
	mock.Mock
	domain.ReservationRepository
}

func (m *MockReservationRepo) CreatePending(ctx context.Context, reservation *domain.Reservation) error {
	args := m.Called(ctx, reservation)
	return args.Error(0)
}

func (m *MockReservationRepo) GetByReservationID(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reservation), args.Error(1)
}

func (m *MockReservationRepo) ActiveBySeat(ctx context.Context, performanceID, seatID int, now time.Time) (*domain.Reservation, error) {
	args := m.Called(ctx, performanceID, seatID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reservation), args.Error(1)
}

func (m *MockReservationRepo) ActiveByPerformance(ctx context.Context, performanceID int, now time.Time) ([]domain.Reservation, error) {
	args := m.Called(ctx, performanceID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Reservation), args.Error(1)
}

func (m *MockReservationRepo) UpdateState(ctx context.Context, reservation *domain.Reservation, from domain.ReservationState, action domain.LedgerAction) error {
	args := m.Called(ctx, reservation, from, action)
	return args.Error(0)
}

func (m *MockReservationRepo) ReapExpired(ctx context.Context, performanceID, seatID int, now time.Time) (int, error) {
	args := m.Called(ctx, performanceID, seatID, now)
	return args.Int(0), args.Error(1)
}

func (m *MockReservationRepo) ReapAllExpired(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

func (m *MockReservationRepo) HasConfirmed(ctx context.Context, performanceID int) (bool, error) {
	args := m.Called(ctx, performanceID)
	return args.Bool(0), args.Error(1)
}

func (m *MockReservationRepo) AppendLedger(ctx context.Context, entry *domain.LedgerEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockReservationRepo) LedgerBySeat(ctx context.Context, performanceID, seatID int) ([]domain.LedgerEntry, error) {
	args := m.Called(ctx, performanceID, seatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LedgerEntry), args.Error(1)
}
