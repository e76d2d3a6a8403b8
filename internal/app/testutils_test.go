package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stagehold/theatre-reservation-system/api"
	"github.com/stagehold/theatre-reservation-system/internal/booking"
	"github.com/stagehold/theatre-reservation-system/internal/mocks"
	"github.com/stagehold/theatre-reservation-system/internal/repository"
	"github.com/stagehold/theatre-reservation-system/internal/validator"
)

func newTestApplication(opts ...func(*Application)) *Application {
	app := &Application{
		validator:       validator.NewValidator(),
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		performanceRepo: &mocks.MockPerformanceRepo{},
		reservationRepo: &mocks.MockReservationRepo{},
	}

	for _, opt := range opts {
		opt(app)
	}

	return app
}

// withInMemoryBooking swaps the mock repositories for a behavioral in-memory
// store with a real booking service on top.
func withInMemoryBooking(store *repository.InMemoryStore) func(*Application) {
	return func(a *Application) {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		arbiter := booking.NewArbiter(store, store, nil, logger)

		a.performanceRepo = store
		a.reservationRepo = store
		a.booking = booking.NewService(
			store, store, arbiter, nil, logger, booking.DefaultHoldDuration, booking.DefaultClaimCutoff)
	}
}

func executeRequest(t *testing.T, method, url string, body any) (*httptest.ResponseRecorder, *http.Request) {
	t.Helper()

	jsonData, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}

	r := httptest.NewRequest(method, url, bytes.NewReader(jsonData))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	return w, r
}

// withURLParams attaches chi route parameters to a request built outside a
// router.
func withURLParams(r *http.Request, params map[string]string) *http.Request {
	routeCtx := chi.NewRouteContext()
	for key, value := range params {
		routeCtx.URLParams.Add(key, value)
	}

	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, routeCtx))
}

func checkErrorResponse(t *testing.T, w *httptest.ResponseRecorder, tt struct {
	wantStatus     int
	wantErrMessage string
}) {
	t.Helper()

	if tt.wantStatus >= 200 && tt.wantStatus < 300 {
		return
	}

	switch tt.wantStatus {
	case http.StatusUnprocessableEntity:
		var validationResp api.ValidationErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&validationResp); err != nil {
			t.Fatalf("Failed to decode validation error response: %v", err)
		}

		errorSet := make(map[string]bool)
		for _, vErr := range validationResp.ValidationErrors {
			errorSet[vErr.Issue] = true
		}

		if !errorSet[tt.wantErrMessage] {
			t.Errorf("Expected validation error message '%s' not found in response", tt.wantErrMessage)
		}

	default:
		var errorResp api.ErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&errorResp); err != nil {
			t.Fatalf("Failed to decode error response: %v", err)
		}

		if tt.wantErrMessage != "" && errorResp.Message != tt.wantErrMessage {
			t.Errorf("Error message = %v, want %v", errorResp.Message, tt.wantErrMessage)
		}
	}
}

func ptr[T any](v T) *T {
	return &v
}
