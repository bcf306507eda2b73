package http

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExportImportRoundTrip(t *testing.T) {
	src, _ := newTestServer(t)
	seedLedger(t, src)
	doJSON(t, src, http.MethodPost, "/api/templates", templateBody{
		Amount: "-10.00", Category: "Gym", Person: "Bob", Frequency: "monthly", StartDate: "2024-01-01",
	})

	exported := doJSON(t, src, http.MethodGet, "/api/export", nil)
	if exported.Code != http.StatusOK {
		t.Fatalf("export status = %d", exported.Code)
	}
	if exported.Header().Get("Content-Disposition") == "" {
		t.Error("export missing Content-Disposition")
	}

	dst, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/import", bytes.NewReader(exported.Body.Bytes()))
	rec := httptest.NewRecorder()
	dst.Server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("import status = %d, body %s", rec.Code, rec.Body.String())
	}

	var result struct {
		Transactions int `json:"transactions"`
		Templates    int `json:"templates"`
	}
	decodeInto(t, rec, &result)
	if result.Transactions != 3 || result.Templates != 1 {
		t.Errorf("imported = %+v, want 3 transactions and 1 template", result)
	}

	t.Run("merge is idempotent", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/import?mode=merge", bytes.NewReader(exported.Body.Bytes()))
		rec := httptest.NewRecorder()
		dst.Server.Handler.ServeHTTP(rec, req)
		var again struct {
			Transactions int `json:"transactions"`
			Skipped      int `json:"skipped"`
		}
		decodeInto(t, rec, &again)
		if again.Transactions != 0 {
			t.Errorf("re-import added %d transactions, want 0", again.Transactions)
		}
	})
}

func TestImportBadInput(t *testing.T) {
	s, _ := newTestServer(t)

	t.Run("unknown mode", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/import?mode=upsert", bytes.NewReader([]byte("{}")))
		rec := httptest.NewRecorder()
		s.Server.Handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("truncated body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/import", bytes.NewReader([]byte(`{"version":1,`)))
		rec := httptest.NewRecorder()
		s.Server.Handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusInternalServerError && rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want an error status", rec.Code)
		}
	})
}
