package app

import (
	"net/http"

	"github.com/stagehold/theatre-reservation-system/api"
	"github.com/stagehold/theatre-reservation-system/internal/domain"
)

func (app *Application) GetAvailabilityHandler(w http.ResponseWriter, r *http.Request) {
	performanceId, err := app.readIDParam(r, "performanceId")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	availability, err := app.booking.Availability(r.Context(), performanceId)
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, toAvailabilityResponse(performanceId, availability), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func toAvailabilityResponse(performanceId int, availability []domain.SeatAvailability) api.AvailabilityResponse {
	resp := api.AvailabilityResponse{
		PerformanceId: performanceId,
		Seats:         make([]api.SeatStatus, len(availability)),
	}

	for i, seat := range availability {
		resp.Seats[i] = api.SeatStatus{
			SeatId: seat.SeatID,
			Label:  seat.Label,
			State:  string(seat.State),
		}

		if seat.State == domain.SeatFree {
			resp.FreeCount++
		}
	}

	return resp
}
