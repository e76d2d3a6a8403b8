package mocks

import (
	"context"

	"github.com/stagehold/theatre-reservation-system/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockPerformanceRepo struct {
	mock.Mock
	domain.PerformanceRepository
}

func (m *MockPerformanceRepo) Create(ctx context.Context, performance *domain.Performance) error {
	args := m.Called(ctx, performance)
	return args.Error(0)
}

func (m *MockPerformanceRepo) GetByID(ctx context.Context, id int) (*domain.Performance, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Performance), args.Error(1)
}

func (m *MockPerformanceRepo) List(ctx context.Context, pagination domain.Pagination) ([]domain.Performance, *domain.Metadata, error) {
	args := m.Called(ctx, pagination)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).([]domain.Performance), args.Get(1).(*domain.Metadata), args.Error(2)
}

func (m *MockPerformanceRepo) GetSeatMap(ctx context.Context, performanceID int) ([]domain.Seat, error) {
	args := m.Called(ctx, performanceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Seat), args.Error(1)
}

func (m *MockPerformanceRepo) GetSeat(ctx context.Context, performanceID, seatID int) (*domain.Seat, error) {
	args := m.Called(ctx, performanceID, seatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Seat), args.Error(1)
}

func (m *MockPerformanceRepo) Cancel(ctx context.Context, id int) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
