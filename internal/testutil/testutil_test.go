package testutil

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGet(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"days":["2025-08-01"]}`))
	})

	rec := Get(t, h, "/api/days")
	AssertStatusCode(t, rec.Code, http.StatusOK)
	got := DecodeJSON[map[string][]string](t, rec)
	if len(got["days"]) != 1 || got["days"][0] != "2025-08-01" {
		t.Errorf("days = %v", got["days"])
	}
}

func TestAssertJSONError(t *testing.T) {
	rec := httptest.NewRecorder()
	rec.WriteHeader(http.StatusNotFound)
	rec.Body.WriteString(`{"error":"no frames.json for 2025-08-02"}`)
	AssertJSONError(t, rec, http.StatusNotFound)
}
