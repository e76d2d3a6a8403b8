package integration_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stagehold/theatre-reservation-system/api"
	"github.com/stretchr/testify/require"
)

// nondeterministic response fields skipped by compareResponse
var keysToIgnore = map[string]struct{}{
	"timestamp":     {},
	"requestId":     {},
	"createdAt":     {},
	"showtime":      {},
	"expiresAt":     {},
	"confirmedAt":   {},
	"reservationId": {},
}

func prepareRequest(method, path string, body io.Reader, headers map[string]string) (*http.Request, error) {
	req := httptest.NewRequest(method, path, body)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req, nil
}

func compareResponse(t *testing.T, body io.Reader, expectedResponse string) {
	var actual map[string]any
	require.NoError(t, json.NewDecoder(body).Decode(&actual))

	cleanMap(actual)

	var expected map[string]any
	require.NoError(t, json.Unmarshal([]byte(expectedResponse), &expected))

	// ignore indetermistic fields while comparing
	opts := cmpopts.IgnoreMapEntries(func(k string, _ any) bool {
		_, ok := keysToIgnore[k]
		return ok
	})

	if diff := cmp.Diff(expected, actual, opts); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}
}

func cleanMap(m map[string]any) {
	for k := range m {
		if _, ok := keysToIgnore[k]; ok {
			delete(m, k)
			continue
		}
		if nested, ok := m[k].(map[string]any); ok {
			cleanMap(nested)
		}
		if list, ok := m[k].([]any); ok {
			for _, item := range list {
				if nested, ok := item.(map[string]any); ok {
					cleanMap(nested)
				}
			}
		}
	}
}

func jsonBody(t testing.TB, v any) io.Reader {
	t.Helper()

	data, err := json.Marshal(v)
	require.NoError(t, err)

	return bytes.NewReader(data)
}

func doJSON(t testing.TB, testApp *TestApp, method, path string, body any, out any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		reader = jsonBody(t, body)
	}

	req, err := prepareRequest(method, path, reader, nil)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	testApp.App.Routes().ServeHTTP(rec, req)

	res := rec.Result()
	t.Cleanup(func() { res.Body.Close() })

	if out != nil {
		require.NoError(t, json.NewDecoder(res.Body).Decode(out))
	}

	return res
}

// createPerformance seeds a scheduled performance through the API and
// returns its ID.
func createPerformance(t testing.TB, testApp *TestApp, rows, seatsPerRow int) int {
	t.Helper()

	req := api.CreatePerformanceRequest{
		Title:       TestPerformanceTitle,
		VenueId:     TestVenueId,
		Showtime:    time.Now().Add(48 * time.Hour),
		Rows:        rows,
		SeatsPerRow: seatsPerRow,
	}

	var resp api.PerformanceResponse
	res := doJSON(t, testApp, http.MethodPost, "/performances", req, &resp)
	require.Equal(t, http.StatusCreated, res.StatusCode)

	return resp.Id
}

// claimSeat places a hold through the API and returns the claim response.
func claimSeat(t testing.TB, testApp *TestApp, performanceID, seatID int, holder string) api.ClaimSeatResponse {
	t.Helper()

	req := api.ClaimSeatRequest{
		PerformanceId: performanceID,
		SeatId:        seatID,
		HolderId:      holder,
	}

	var resp api.ClaimSeatResponse
	res := doJSON(t, testApp, http.MethodPost, "/bookings", req, &resp)
	require.Equal(t, http.StatusCreated, res.StatusCode)

	return resp
}

func confirmReservation(t testing.TB, testApp *TestApp, claim api.ClaimSeatResponse) {
	t.Helper()

	res := doJSON(t, testApp, http.MethodPost, fmt.Sprintf("/bookings/%s/confirm", claim.ReservationId), nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
}
