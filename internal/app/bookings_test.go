package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stagehold/theatre-reservation-system/api"
	"github.com/stagehold/theatre-reservation-system/internal/domain"
	"github.com/stagehold/theatre-reservation-system/internal/repository"
	"github.com/stretchr/testify/suite"
)

// BookingsTestSuite drives the booking handlers against a behavioral
// in-memory store, so handler status codes are checked together with the
// booking core's real semantics.
type BookingsTestSuite struct {
	suite.Suite
	app           *Application
	store         *repository.InMemoryStore
	performanceID int
}

func (s *BookingsTestSuite) SetupTest() {
	s.store = repository.NewInMemoryStore()

	performance, err := domain.NewPerformance(
		"The Tempest", 1, time.Now().Add(2*time.Hour), 2, 3, decimal.NewFromInt(30), time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(context.Background(), performance))

	s.performanceID = performance.ID
	s.app = newTestApplication(withInMemoryBooking(s.store))
}

func TestBookingsSuite(t *testing.T) {
	suite.Run(t, new(BookingsTestSuite))
}

func (s *BookingsTestSuite) claimSeat(seatID int, holder string) api.ClaimSeatResponse {
	w, r := executeRequest(s.T(), http.MethodPost, "/bookings", api.ClaimSeatRequest{
		PerformanceId: s.performanceID,
		SeatId:        seatID,
		HolderId:      holder,
	})
	s.app.ClaimSeatHandler(w, r)

	s.Require().Equal(http.StatusCreated, w.Code)

	var resp api.ClaimSeatResponse
	s.Require().NoError(json.NewDecoder(w.Body).Decode(&resp))

	return resp
}

func (s *BookingsTestSuite) TestClaimSeat() {
	tests := []struct {
		name           string
		request        api.ClaimSeatRequest
		setup          func()
		wantStatus     int
		wantErrMessage string
	}{
		{
			name:           "should fail when seat ID is missing",
			request:        api.ClaimSeatRequest{PerformanceId: 1, HolderId: "alice"},
			wantStatus:     http.StatusUnprocessableEntity,
			wantErrMessage: "is required",
		},
		{
			name:           "should fail when performance does not exist",
			request:        api.ClaimSeatRequest{PerformanceId: 999, SeatId: 1, HolderId: "alice"},
			wantStatus:     http.StatusNotFound,
			wantErrMessage: ErrNotFound,
		},
		{
			name:           "should fail when seat does not exist",
			request:        api.ClaimSeatRequest{PerformanceId: 1, SeatId: 999, HolderId: "alice"},
			wantStatus:     http.StatusNotFound,
			wantErrMessage: ErrNotFound,
		},
		{
			name:    "should fail when seat is already held",
			request: api.ClaimSeatRequest{PerformanceId: 1, SeatId: 1, HolderId: "bob"},
			setup: func() {
				s.claimSeat(1, "alice")
			},
			wantStatus:     http.StatusConflict,
			wantErrMessage: "The seat is already held or booked",
		},
		{
			name:       "should claim free seat",
			request:    api.ClaimSeatRequest{PerformanceId: 1, SeatId: 1, HolderId: "alice"},
			wantStatus: http.StatusCreated,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()

			if tt.setup != nil {
				tt.setup()
			}

			w, r := executeRequest(s.T(), http.MethodPost, "/bookings", tt.request)
			s.app.ClaimSeatHandler(w, r)

			s.Equal(tt.wantStatus, w.Code)

			if tt.wantStatus == http.StatusCreated {
				var resp api.ClaimSeatResponse
				s.Require().NoError(json.NewDecoder(w.Body).Decode(&resp))

				s.Equal(tt.request.SeatId, resp.SeatId)
				s.Equal(string(domain.ReservationPending), resp.State)
				s.True(resp.ExpiresAt.After(time.Now()))
			}

			checkErrorResponse(s.T(), w, struct {
				wantStatus     int
				wantErrMessage string
			}{
				wantStatus:     tt.wantStatus,
				wantErrMessage: tt.wantErrMessage,
			})
		})
	}
}

func (s *BookingsTestSuite) TestBatchClaim() {
	// seat 2 is taken before the batch arrives
	s.claimSeat(2, "bob")

	w, r := executeRequest(s.T(), http.MethodPost, "/bookings/batch", api.BatchClaimRequest{
		PerformanceId: s.performanceID,
		SeatIds:       []int{1, 2, 3},
		HolderId:      "alice",
	})
	s.app.BatchClaimHandler(w, r)

	s.Equal(http.StatusCreated, w.Code)

	var resp api.BatchClaimResponse
	s.Require().NoError(json.NewDecoder(w.Body).Decode(&resp))
	s.Require().Len(resp.Results, 3)

	s.Equal(string(domain.OutcomeAccepted), resp.Results[0].Outcome)
	s.NotNil(resp.Results[0].ReservationId)

	s.Equal(string(domain.OutcomeRejectedConflict), resp.Results[1].Outcome)
	s.Nil(resp.Results[1].ReservationId)

	s.Equal(string(domain.OutcomeAccepted), resp.Results[2].Outcome)
}

func (s *BookingsTestSuite) TestBatchClaimAllConflicts() {
	s.claimSeat(1, "bob")

	w, r := executeRequest(s.T(), http.MethodPost, "/bookings/batch", api.BatchClaimRequest{
		PerformanceId: s.performanceID,
		SeatIds:       []int{1},
		HolderId:      "alice",
	})
	s.app.BatchClaimHandler(w, r)

	s.Equal(http.StatusConflict, w.Code)
}

func (s *BookingsTestSuite) TestConfirmReservation() {
	claim := s.claimSeat(1, "alice")

	confirmURL := fmt.Sprintf("/bookings/%s/confirm", claim.ReservationId)

	w, r := executeRequest(s.T(), http.MethodPost, confirmURL, nil)
	r = withURLParams(r, map[string]string{"reservationId": claim.ReservationId.String()})
	s.app.ConfirmReservationHandler(w, r)

	s.Equal(http.StatusOK, w.Code)

	var resp api.ReservationResponse
	s.Require().NoError(json.NewDecoder(w.Body).Decode(&resp))
	s.Equal(string(domain.ReservationConfirmed), resp.State)
	s.NotNil(resp.ConfirmedAt)

	// a second confirm is rejected
	w, r = executeRequest(s.T(), http.MethodPost, confirmURL, nil)
	r = withURLParams(r, map[string]string{"reservationId": claim.ReservationId.String()})
	s.app.ConfirmReservationHandler(w, r)

	s.Equal(http.StatusConflict, w.Code)

	checkErrorResponse(s.T(), w, struct {
		wantStatus     int
		wantErrMessage string
	}{
		wantStatus:     http.StatusConflict,
		wantErrMessage: "The reservation is already finalized",
	})
}

func (s *BookingsTestSuite) TestCancelReservationIsIdempotent() {
	claim := s.claimSeat(1, "alice")

	cancelURL := fmt.Sprintf("/bookings/%s/cancel", claim.ReservationId)

	for i := 0; i < 2; i++ {
		w, r := executeRequest(s.T(), http.MethodPost, cancelURL, nil)
		r = withURLParams(r, map[string]string{"reservationId": claim.ReservationId.String()})
		s.app.CancelReservationHandler(w, r)

		s.Equal(http.StatusOK, w.Code, "cancel attempt %d", i+1)

		var resp api.ReservationResponse
		s.Require().NoError(json.NewDecoder(w.Body).Decode(&resp))
		s.Equal(string(domain.ReservationCancelled), resp.State)
	}

	// the freed seat can be claimed again
	s.claimSeat(1, "bob")
}

func (s *BookingsTestSuite) TestGetReservation() {
	claim := s.claimSeat(1, "alice")

	w, r := executeRequest(s.T(), http.MethodGet, fmt.Sprintf("/bookings/%s", claim.ReservationId), nil)
	r = withURLParams(r, map[string]string{"reservationId": claim.ReservationId.String()})
	s.app.GetReservationHandler(w, r)

	s.Equal(http.StatusOK, w.Code)

	var resp api.ReservationResponse
	s.Require().NoError(json.NewDecoder(w.Body).Decode(&resp))
	s.Equal(claim.ReservationId, resp.ReservationId)
	s.Equal(1, resp.SeatId)
}

func (s *BookingsTestSuite) TestGetReservationInvalidID() {
	w, r := executeRequest(s.T(), http.MethodGet, "/bookings/not-a-uuid", nil)
	r = withURLParams(r, map[string]string{"reservationId": "not-a-uuid"})
	s.app.GetReservationHandler(w, r)

	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *BookingsTestSuite) TestGetAvailability() {
	s.claimSeat(2, "alice")

	booked := s.claimSeat(5, "bob")
	w, r := executeRequest(s.T(), http.MethodPost, fmt.Sprintf("/bookings/%s/confirm", booked.ReservationId), nil)
	r = withURLParams(r, map[string]string{"reservationId": booked.ReservationId.String()})
	s.app.ConfirmReservationHandler(w, r)
	s.Require().Equal(http.StatusOK, w.Code)

	w, r = executeRequest(s.T(), http.MethodGet, fmt.Sprintf("/performances/%d/availability", s.performanceID), nil)
	r = withURLParams(r, map[string]string{"performanceId": fmt.Sprint(s.performanceID)})
	s.app.GetAvailabilityHandler(w, r)

	s.Equal(http.StatusOK, w.Code)

	var resp api.AvailabilityResponse
	s.Require().NoError(json.NewDecoder(w.Body).Decode(&resp))

	s.Equal(s.performanceID, resp.PerformanceId)
	s.Require().Len(resp.Seats, 6)
	s.Equal(4, resp.FreeCount)

	s.Equal("HELD", resp.Seats[1].State)
	s.Equal("BOOKED", resp.Seats[4].State)
	s.Equal("FREE", resp.Seats[0].State)
	s.Equal("R1S2", resp.Seats[1].Label)
}

func (s *BookingsTestSuite) TestGetSeatLedger() {
	claim := s.claimSeat(1, "alice")

	// a losing claim and a confirm add to the trail
	w, r := executeRequest(s.T(), http.MethodPost, "/bookings", api.ClaimSeatRequest{
		PerformanceId: s.performanceID,
		SeatId:        1,
		HolderId:      "bob",
	})
	s.app.ClaimSeatHandler(w, r)
	s.Require().Equal(http.StatusConflict, w.Code)

	w, r = executeRequest(s.T(), http.MethodPost, fmt.Sprintf("/bookings/%s/confirm", claim.ReservationId), nil)
	r = withURLParams(r, map[string]string{"reservationId": claim.ReservationId.String()})
	s.app.ConfirmReservationHandler(w, r)
	s.Require().Equal(http.StatusOK, w.Code)

	w, r = executeRequest(s.T(), http.MethodGet, fmt.Sprintf("/performances/%d/seats/1/ledger", s.performanceID), nil)
	r = withURLParams(r, map[string]string{
		"performanceId": fmt.Sprint(s.performanceID),
		"seatId":        "1",
	})
	s.app.GetSeatLedgerHandler(w, r)

	s.Equal(http.StatusOK, w.Code)

	var resp api.SeatLedgerResponse
	s.Require().NoError(json.NewDecoder(w.Body).Decode(&resp))

	s.Require().Len(resp.Entries, 3)
	s.Equal("CLAIM", resp.Entries[0].Action)
	s.Equal("ACCEPTED", resp.Entries[0].Outcome)
	s.Equal("CLAIM", resp.Entries[1].Action)
	s.Equal("REJECTED_CONFLICT", resp.Entries[1].Outcome)
	s.Equal("CONFIRM", resp.Entries[2].Action)
}
