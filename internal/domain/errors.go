package domain

import "errors"

var (
	ErrInvalidPerformance     = errors.New("invalid performance definition")
	ErrRecordNotFound         = errors.New("record not found")
	ErrEditConflict           = errors.New("edit conflict")
	ErrSeatAlreadyReserved    = errors.New("seat is already held or booked")
	ErrReservationExpired     = errors.New("reservation has expired")
	ErrAlreadyFinalized       = errors.New("reservation is already finalized")
	ErrPerformanceCancelled   = errors.New("performance is cancelled")
	ErrPerformanceHasBookings = errors.New("performance has confirmed bookings")
	ErrClaimWindowClosed      = errors.New("claims are closed for this performance")
	ErrStoreUnavailable       = errors.New("store temporarily unavailable")
)
