package app

import (
	"net/http"
	"time"

	"github.com/stagehold/theatre-reservation-system/api"
	"github.com/stagehold/theatre-reservation-system/internal/domain"
)

func (app *Application) CreatePerformanceHandler(w http.ResponseWriter, r *http.Request) {
	var req api.CreatePerformanceRequest

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

	performance, err := domain.NewPerformance(
		req.Title, req.VenueId, req.Showtime, req.Rows, req.SeatsPerRow, req.BasePrice, time.Now())
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	err = app.performanceRepo.Create(r.Context(), performance)
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusCreated, toPerformanceResponse(performance), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) GetPerformancesHandler(w http.ResponseWriter, r *http.Request) {
	params := api.GetPerformancesParams{}

	page, err := app.readQueryInt(r, "page")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	params.Page = page

	pageSize, err := app.readQueryInt(r, "pageSize")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	params.PageSize = pageSize

	err = app.validator.Struct(params)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	pagination := toPagination(params)

	performances, metadata, err := app.performanceRepo.List(r.Context(), pagination)
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	resp := api.PerformanceListResponse{
		Performances: make([]api.PerformanceResponse, len(performances)),
		Metadata:     toApiMetadata(metadata),
	}

	for i := range performances {
		resp.Performances[i] = toPerformanceResponse(&performances[i])
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) GetPerformanceHandler(w http.ResponseWriter, r *http.Request) {
	performanceId, err := app.readIDParam(r, "performanceId")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	performance, err := app.performanceRepo.GetByID(r.Context(), performanceId)
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, toPerformanceResponse(performance), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// CancelPerformanceHandler withdraws a performance from sale. A performance
// with confirmed bookings cannot be cancelled through this endpoint.
func (app *Application) CancelPerformanceHandler(w http.ResponseWriter, r *http.Request) {
	performanceId, err := app.readIDParam(r, "performanceId")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	confirmed, err := app.reservationRepo.HasConfirmed(r.Context(), performanceId)
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}
	if confirmed {
		app.domainErrorResponse(w, r, domain.ErrPerformanceHasBookings)
		return
	}

	// the repository re-checks inside its transaction, so a booking confirmed
	// after this point still blocks the cancel
	err = app.performanceRepo.Cancel(r.Context(), performanceId)
	if err != nil {
		app.domainErrorResponse(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func toPerformanceResponse(performance *domain.Performance) api.PerformanceResponse {
	return api.PerformanceResponse{
		Id:          performance.ID,
		Title:       performance.Title,
		VenueId:     performance.VenueID,
		Showtime:    performance.Showtime,
		Rows:        performance.Rows,
		SeatsPerRow: performance.SeatsPerRow,
		Capacity:    performance.Capacity(),
		BasePrice:   performance.BasePrice,
		Status:      string(performance.Status),
	}
}

func toPagination(params api.GetPerformancesParams) domain.Pagination {
	pagination := domain.Pagination{
		Page:     DefaultPage,
		PageSize: DefaultPageSize,
	}

	if params.Page != nil {
		pagination.Page = *params.Page
	}
	if params.PageSize != nil {
		pagination.PageSize = *params.PageSize
	}

	return pagination
}

func toApiMetadata(metadata *domain.Metadata) api.Metadata {
	if metadata == nil {
		return api.Metadata{}
	}

	return api.Metadata{
		CurrentPage:  metadata.CurrentPage,
		PageSize:     metadata.PageSize,
		FirstPage:    metadata.FirstPage,
		LastPage:     metadata.LastPage,
		TotalRecords: metadata.TotalRecords,
	}
}
