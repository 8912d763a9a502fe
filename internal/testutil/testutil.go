// Package testutil provides shared HTTP test helpers for the API and the
// serve command.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// Get issues a GET for target against h and returns the recorded response.
func Get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// DecodeJSON decodes the recorded body into T, failing the test on error.
func DecodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

// AssertJSONError checks for an {"error": ...} body with the given status.
func AssertJSONError(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	AssertStatusCode(t, rec.Code, want)
	body := DecodeJSON[map[string]string](t, rec)
	if body["error"] == "" {
		t.Errorf("response has no error message: %v", body)
	}
}
