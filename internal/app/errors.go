package app

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/stagehold/theatre-reservation-system/api"
	"github.com/stagehold/theatre-reservation-system/internal/domain"
	appvalidator "github.com/stagehold/theatre-reservation-system/internal/validator"
)

const (
	ErrInternalServer   = "The server encountered a problem and could not process your request"
	ErrNotFound         = "The requested resource not found"
	ErrStoreUnavailable = "The service is temporarily unavailable, please retry"
)

func (app *Application) logError(r *http.Request, err error) {
	var (
		method = r.Method
		uri    = r.URL.RequestURI()
	)

	app.logger.Error(err.Error(), "method", method, "uri", uri)
}

// The errorResponse() method is a generic helper for sending JSON-formatted error
// messages to the client with a given status code.
func (app *Application) errorResponse(w http.ResponseWriter, r *http.Request, status int, message string) {
	resp := api.ErrorResponse{
		Message:   message,
		RequestId: middleware.GetReqID(r.Context()),
		Timestamp: time.Now(),
	}

	err := app.writeJSON(w, status, resp, nil)
	if err != nil {
		app.logError(r, err)
		w.WriteHeader(500)
	}
}

func (app *Application) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logError(r, err)
	app.errorResponse(w, r, http.StatusInternalServerError, ErrInternalServer)
}

func (app *Application) notFoundResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusNotFound, ErrNotFound)
}

func (app *Application) methodNotAllowedResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusMethodNotAllowed, "The method is not supported for this resource")
}

func (app *Application) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func (app *Application) conflictResponse(w http.ResponseWriter, r *http.Request, message string) {
	app.errorResponse(w, r, http.StatusConflict, message)
}

func (app *Application) storeUnavailableResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logError(r, err)
	app.errorResponse(w, r, http.StatusServiceUnavailable, ErrStoreUnavailable)
}

func (app *Application) failedValidationResponse(w http.ResponseWriter, r *http.Request, err error) {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		app.serverErrorResponse(w, r, err)
		return
	}

	details := make([]api.ValidationError, len(validationErrors))
	for i, fieldError := range validationErrors {
		details[i] = api.ValidationError{
			Field: fieldError.Field(),
			Issue: appvalidator.ValidationMessage(fieldError),
		}
	}

	resp := api.ValidationErrorResponse{
		Message:          "The request contains invalid fields",
		RequestId:        middleware.GetReqID(r.Context()),
		Timestamp:        time.Now(),
		ValidationErrors: details,
	}

	writeErr := app.writeJSON(w, http.StatusUnprocessableEntity, resp, nil)
	if writeErr != nil {
		app.logError(r, writeErr)
		w.WriteHeader(500)
	}
}

// domainErrorResponse maps booking-core errors onto HTTP statuses. Anything
// it does not recognize is a server error.
func (app *Application) domainErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrRecordNotFound):
		app.notFoundResponse(w, r)
	case errors.Is(err, domain.ErrInvalidPerformance):
		app.badRequestResponse(w, r, err)
	case errors.Is(err, domain.ErrSeatAlreadyReserved):
		app.conflictResponse(w, r, "The seat is already held or booked")
	case errors.Is(err, domain.ErrReservationExpired):
		app.conflictResponse(w, r, "The reservation hold has expired")
	case errors.Is(err, domain.ErrAlreadyFinalized):
		app.conflictResponse(w, r, "The reservation is already finalized")
	case errors.Is(err, domain.ErrEditConflict):
		app.conflictResponse(w, r, "The reservation was modified concurrently, please retry")
	case errors.Is(err, domain.ErrPerformanceCancelled):
		app.conflictResponse(w, r, "The performance has been cancelled")
	case errors.Is(err, domain.ErrPerformanceHasBookings):
		app.conflictResponse(w, r, "The performance has confirmed bookings and cannot be cancelled")
	case errors.Is(err, domain.ErrClaimWindowClosed):
		app.conflictResponse(w, r, "Seat claims for this performance are closed")
	case errors.Is(err, domain.ErrStoreUnavailable):
		app.storeUnavailableResponse(w, r, err)
	default:
		app.serverErrorResponse(w, r, err)
	}
}
