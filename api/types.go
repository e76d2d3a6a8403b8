// Package api defines the request and response types of the HTTP boundary.
package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrorResponse defines model for ErrorResponse.
type ErrorResponse struct {
	Message   string    `json:"message"`
	RequestId string    `json:"requestId"`
	Timestamp time.Time `json:"timestamp"`
}

// ValidationErrorResponse defines model for ValidationErrorResponse.
type ValidationErrorResponse struct {
	Message          string            `json:"message"`
	RequestId        string            `json:"requestId"`
	Timestamp        time.Time         `json:"timestamp"`
	ValidationErrors []ValidationError `json:"validationErrors"`
}

// ValidationError describes a single rejected field.
type ValidationError struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

// SystemInfo defines model for SystemInfo.
type SystemInfo struct {
	Version     string `json:"version"`
	Environment string `json:"environment"`
}

// HealthcheckResponse defines model for HealthcheckResponse.
type HealthcheckResponse struct {
	Status     string     `json:"status"`
	SystemInfo SystemInfo `json:"systemInfo"`
}

// Metadata defines model for Metadata.
type Metadata struct {
	CurrentPage  int `json:"currentPage"`
	PageSize     int `json:"pageSize"`
	FirstPage    int `json:"firstPage"`
	LastPage     int `json:"lastPage"`
	TotalRecords int `json:"totalRecords"`
}

// CreatePerformanceRequest defines model for CreatePerformanceRequest.
type CreatePerformanceRequest struct {
	Title       string          `json:"title" validate:"required,max=200"`
	VenueId     int             `json:"venueId" validate:"required,min=1"`
	Showtime    time.Time       `json:"showtime" validate:"required,future"`
	Rows        int             `json:"rows" validate:"required,min=1,max=100"`
	SeatsPerRow int             `json:"seatsPerRow" validate:"required,min=1,max=100"`
	BasePrice   decimal.Decimal `json:"basePrice"`
}

// PerformanceResponse defines model for PerformanceResponse.
type PerformanceResponse struct {
	Id          int             `json:"id"`
	Title       string          `json:"title"`
	VenueId     int             `json:"venueId"`
	Showtime    time.Time       `json:"showtime"`
	Rows        int             `json:"rows"`
	SeatsPerRow int             `json:"seatsPerRow"`
	Capacity    int             `json:"capacity"`
	BasePrice   decimal.Decimal `json:"basePrice"`
	Status      string          `json:"status"`
}

// PerformanceListResponse defines model for PerformanceListResponse.
type PerformanceListResponse struct {
	Performances []PerformanceResponse `json:"performances"`
	Metadata     Metadata              `json:"metadata"`
}

// GetPerformancesParams defines parameters for listing performances.
type GetPerformancesParams struct {
	Page     *int `validate:"omitempty,min=1"`
	PageSize *int `validate:"omitempty,min=1,max=100"`
}

// SeatStatus is one seat's derived state within an availability read.
type SeatStatus struct {
	SeatId int    `json:"seatId"`
	Label  string `json:"label"`
	State  string `json:"state"`
}

// AvailabilityResponse defines model for AvailabilityResponse. Seats are
// ordered by seat ID.
type AvailabilityResponse struct {
	PerformanceId int          `json:"performanceId"`
	Seats         []SeatStatus `json:"seats"`
	FreeCount     int          `json:"freeCount"`
}

// ClaimSeatRequest defines model for ClaimSeatRequest. HolderId is optional;
// anonymous claims fall back to the caller's session identity.
type ClaimSeatRequest struct {
	PerformanceId int    `json:"performanceId" validate:"required,min=1"`
	SeatId        int    `json:"seatId" validate:"required,min=1"`
	HolderId      string `json:"holderId,omitempty" validate:"omitempty,max=100"`
}

// ClaimSeatResponse defines model for ClaimSeatResponse.
type ClaimSeatResponse struct {
	ReservationId uuid.UUID `json:"reservationId"`
	PerformanceId int       `json:"performanceId"`
	SeatId        int       `json:"seatId"`
	State         string    `json:"state"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

// BatchClaimRequest defines model for BatchClaimRequest.
type BatchClaimRequest struct {
	PerformanceId int    `json:"performanceId" validate:"required,min=1"`
	SeatIds       []int  `json:"seatIds" validate:"required,min=1,max=10,dive,min=1"`
	HolderId      string `json:"holderId,omitempty" validate:"omitempty,max=100"`
}

// SeatClaimResult is one seat's outcome within a batch claim. ReservationId
// and ExpiresAt are set only for accepted claims.
type SeatClaimResult struct {
	SeatId        int        `json:"seatId"`
	Outcome       string     `json:"outcome"`
	ReservationId *uuid.UUID `json:"reservationId,omitempty"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
}

// BatchClaimResponse defines model for BatchClaimResponse.
type BatchClaimResponse struct {
	PerformanceId int               `json:"performanceId"`
	Results       []SeatClaimResult `json:"results"`
}

// ReservationResponse defines model for ReservationResponse.
type ReservationResponse struct {
	ReservationId uuid.UUID  `json:"reservationId"`
	PerformanceId int        `json:"performanceId"`
	SeatId        int        `json:"seatId"`
	State         string     `json:"state"`
	ExpiresAt     time.Time  `json:"expiresAt"`
	ConfirmedAt   *time.Time `json:"confirmedAt,omitempty"`
}

// LedgerEntryResponse is one audit record of a seat's claim history.
type LedgerEntryResponse struct {
	Action    string    `json:"action"`
	Outcome   string    `json:"outcome,omitempty"`
	HolderId  string    `json:"holderId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// SeatLedgerResponse defines model for SeatLedgerResponse.
type SeatLedgerResponse struct {
	PerformanceId int                   `json:"performanceId"`
	SeatId        int                   `json:"seatId"`
	Entries       []LedgerEntryResponse `json:"entries"`
}
