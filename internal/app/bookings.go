package app

import (
	"net/http"

	"github.com/stagehold/theatre-reservation-system/api"
	"github.com/stagehold/theatre-reservation-system/internal/booking"
	"github.com/stagehold/theatre-reservation-system/internal/domain"
)

// ClaimSeatHandler places a hold on one seat. Contention is not an error: a
// seat that is already held or booked yields 409 with no side effects beyond
// the audit trail.
func (app *Application) ClaimSeatHandler(w http.ResponseWriter, r *http.Request) {
	var req api.ClaimSeatRequest

	err := app.readJSON(w, r, &req)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(req)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	holderId := app.holderIdentity(r, req.HolderId)

	result, err := app.booking.BookSeat(r.Context(), req.PerformanceId, req.SeatId, holderId)
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	if result.Outcome != domain.OutcomeAccepted {
		app.conflictResponse(w, r, "The seat is already held or booked")
		return
	}

	err = app.writeJSON(w, http.StatusCreated, toClaimSeatResponse(result.Reservation), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// BatchClaimHandler claims several seats in one request. Seats succeed or
// fail independently; the response reports each seat's outcome and the
// request is 201 if at least one seat was claimed, 409 if none were.
func (app *Application) BatchClaimHandler(w http.ResponseWriter, r *http.Request) {
	var req api.BatchClaimRequest

	err := app.readJSON(w, r, &req)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(req)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	holderId := app.holderIdentity(r, req.HolderId)

	results, err := app.booking.BookSeats(r.Context(), req.PerformanceId, req.SeatIds, holderId)
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	resp := api.BatchClaimResponse{
		PerformanceId: req.PerformanceId,
		Results:       make([]api.SeatClaimResult, len(results)),
	}

	status := http.StatusConflict

	for i, result := range results {
		resp.Results[i] = toSeatClaimResult(result)

		if result.Outcome == domain.OutcomeAccepted {
			status = http.StatusCreated
		}
	}

	err = app.writeJSON(w, status, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) GetReservationHandler(w http.ResponseWriter, r *http.Request) {
	reservationId, err := app.readUUIDParam(r, "reservationId")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	reservation, err := app.reservationRepo.GetByReservationID(r.Context(), reservationId)
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, toReservationResponse(reservation), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) ConfirmReservationHandler(w http.ResponseWriter, r *http.Request) {
	reservationId, err := app.readUUIDParam(r, "reservationId")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	reservation, err := app.booking.Confirm(r.Context(), reservationId)
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, toReservationResponse(reservation), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) CancelReservationHandler(w http.ResponseWriter, r *http.Request) {
	reservationId, err := app.readUUIDParam(r, "reservationId")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	reservation, err := app.booking.Cancel(r.Context(), reservationId)
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, toReservationResponse(reservation), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) GetSeatLedgerHandler(w http.ResponseWriter, r *http.Request) {
	performanceId, err := app.readIDParam(r, "performanceId")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	seatId, err := app.readIDParam(r, "seatId")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	entries, err := app.booking.Ledger(r.Context(), performanceId, seatId)
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	resp := api.SeatLedgerResponse{
		PerformanceId: performanceId,
		SeatId:        seatId,
		Entries:       make([]api.LedgerEntryResponse, len(entries)),
	}

	for i, entry := range entries {
		resp.Entries[i] = api.LedgerEntryResponse{
			Action:    string(entry.Action),
			Outcome:   string(entry.Outcome),
			HolderId:  entry.HolderID,
			Timestamp: entry.CreatedAt,
		}
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func toClaimSeatResponse(reservation *domain.Reservation) api.ClaimSeatResponse {
	return api.ClaimSeatResponse{
		ReservationId: reservation.ID,
		PerformanceId: reservation.PerformanceID,
		SeatId:        reservation.SeatID,
		State:         string(reservation.State),
		ExpiresAt:     reservation.ExpiresAt,
	}
}

func toSeatClaimResult(result booking.SeatBookingResult) api.SeatClaimResult {
	claimResult := api.SeatClaimResult{
		SeatId:  result.SeatID,
		Outcome: string(result.Outcome),
	}

	if result.Reservation != nil {
		claimResult.ReservationId = &result.Reservation.ID
		claimResult.ExpiresAt = &result.Reservation.ExpiresAt
	}

	return claimResult
}

func toReservationResponse(reservation *domain.Reservation) api.ReservationResponse {
	return api.ReservationResponse{
		ReservationId: reservation.ID,
		PerformanceId: reservation.PerformanceID,
		SeatId:        reservation.SeatID,
		State:         string(reservation.State),
		ExpiresAt:     reservation.ExpiresAt,
		ConfirmedAt:   reservation.ConfirmedAt,
	}
}
