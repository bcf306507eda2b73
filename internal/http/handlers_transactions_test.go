package http

import (
	"net/http"
	"testing"
)

func TestRecordAndGetTransaction(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/transactions", transactionBody{
		Amount:   "-42.50",
		Date:     "2024-03-10",
		Category: "Food",
		Person:   "Alice",
		Note:     "groceries",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}

	var created transactionView
	decodeInto(t, rec, &created)
	if created.ID == 0 {
		t.Fatal("created transaction has no ID")
	}
	if created.AmountCents != -4250 {
		t.Errorf("amount_cents = %d, want -4250", created.AmountCents)
	}
	if created.Amount != "-42.50" {
		t.Errorf("amount = %q, want -42.50", created.Amount)
	}

	got := doJSON(t, s, http.MethodGet, "/api/transactions/1", nil)
	if got.Code != http.StatusOK {
		t.Fatalf("get status = %d", got.Code)
	}
	var fetched transactionView
	decodeInto(t, got, &fetched)
	if fetched.Category != "Food" || fetched.Person != "Alice" {
		t.Errorf("fetched = %+v", fetched)
	}
}

func TestRecordTransactionRejections(t *testing.T) {
	s, _ := newTestServer(t)

	cases := []struct {
		name string
		body transactionBody
		want int
	}{
		{"zero amount", transactionBody{Amount: "0", Date: "2024-01-01", Category: "x", Person: "p"}, http.StatusUnprocessableEntity},
		{"bad amount", transactionBody{Amount: "12.x", Date: "2024-01-01", Category: "x", Person: "p"}, http.StatusUnprocessableEntity},
		{"bad date", transactionBody{Amount: "10", Date: "01-01-2024", Category: "x", Person: "p"}, http.StatusUnprocessableEntity},
		{"missing category", transactionBody{Amount: "10", Date: "2024-01-01", Person: "p"}, http.StatusUnprocessableEntity},
		{"missing person", transactionBody{Amount: "10", Date: "2024-01-01", Category: "x"}, http.StatusUnprocessableEntity},
		{"out of range date", transactionBody{Amount: "10", Date: "1850-01-01", Category: "x", Person: "p"}, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, s, http.MethodPost, "/api/transactions", tc.body)
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}

func TestListTransactionsFiltered(t *testing.T) {
	s, _ := newTestServer(t)

	seed := []transactionBody{
		{Amount: "1000.00", Date: "2024-01-01", Category: "Salary", Person: "Alice"},
		{Amount: "-200.00", Date: "2024-01-15", Category: "Rent", Person: "Alice"},
		{Amount: "-50.00", Date: "2024-02-01", Category: "Food", Person: "Bob"},
	}
	for _, b := range seed {
		if rec := doJSON(t, s, http.MethodPost, "/api/transactions", b); rec.Code != http.StatusCreated {
			t.Fatalf("seed failed: %s", rec.Body.String())
		}
	}

	cases := []struct {
		name  string
		query string
		want  int
	}{
		{"all", "", 3},
		{"by person", "?person=Alice", 2},
		{"by kind", "?kind=expense", 2},
		{"by category", "?category=Food", 1},
		{"by range", "?from=2024-01-10&to=2024-01-31", 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, s, http.MethodGet, "/api/transactions"+tc.query, nil)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			var payload struct {
				Count int `json:"count"`
			}
			decodeInto(t, rec, &payload)
			if payload.Count != tc.want {
				t.Errorf("count = %d, want %d", payload.Count, tc.want)
			}
		})
	}

	t.Run("bad kind", func(t *testing.T) {
		rec := doJSON(t, s, http.MethodGet, "/api/transactions?kind=transfer", nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestCorrectTransaction(t *testing.T) {
	s, _ := newTestServer(t)

	doJSON(t, s, http.MethodPost, "/api/transactions", transactionBody{
		Amount: "-20.00", Date: "2024-01-15", Category: "Rent", Person: "Alice",
	})

	amount := "-25.00"
	rec := doJSON(t, s, http.MethodPatch, "/api/transactions/1", correctionBody{Amount: &amount})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch status = %d, body %s", rec.Code, rec.Body.String())
	}
	var updated transactionView
	decodeInto(t, rec, &updated)
	if updated.AmountCents != -2500 {
		t.Errorf("amount_cents = %d, want -2500", updated.AmountCents)
	}
	if updated.Category != "Rent" {
		t.Errorf("category changed to %q, patch must not touch it", updated.Category)
	}

	t.Run("zero amount rejected", func(t *testing.T) {
		zero := "0"
		rec := doJSON(t, s, http.MethodPatch, "/api/transactions/1", correctionBody{Amount: &zero})
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("status = %d, want 422", rec.Code)
		}
	})

	t.Run("missing transaction", func(t *testing.T) {
		rec := doJSON(t, s, http.MethodPatch, "/api/transactions/999", correctionBody{Amount: &amount})
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}

func TestDeleteTransaction(t *testing.T) {
	s, _ := newTestServer(t)

	doJSON(t, s, http.MethodPost, "/api/transactions", transactionBody{
		Amount: "-20.00", Date: "2024-01-15", Category: "Rent", Person: "Alice",
	})

	if rec := doJSON(t, s, http.MethodDelete, "/api/transactions/1", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if rec := doJSON(t, s, http.MethodGet, "/api/transactions/1", nil); rec.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", rec.Code)
	}
	if rec := doJSON(t, s, http.MethodDelete, "/api/transactions/1", nil); rec.Code != http.StatusNotFound {
		t.Errorf("double delete = %d, want 404", rec.Code)
	}
}
