package http

import (
	"errors"
	"net/http"

	"budget/internal/core"
	"budget/internal/ledger"
)

type transactionBody struct {
	Amount   string `json:"amount"`
	Date     string `json:"date"`
	Category string `json:"category"`
	Person   string `json:"person"`
	Note     string `json:"note"`
}

type transactionView struct {
	ID                 int64  `json:"id"`
	Amount             string `json:"amount"`
	AmountCents        int64  `json:"amount_cents"`
	Date               string `json:"date"`
	Category           string `json:"category"`
	Person             string `json:"person"`
	Note               string `json:"note,omitempty"`
	SourceRecurrenceID int64  `json:"source_recurrence_id,omitempty"`
	OccurrenceKey      string `json:"occurrence_key,omitempty"`
}

func viewOf(tx core.Transaction) transactionView {
	return transactionView{
		ID:                 tx.ID,
		Amount:             tx.Amount.String(),
		AmountCents:        tx.Amount.Cents,
		Date:               tx.Date.String(),
		Category:           tx.Category,
		Person:             tx.Person,
		Note:               tx.Note,
		SourceRecurrenceID: tx.SourceRecurrenceID,
		OccurrenceKey:      tx.OccurrenceKey,
	}
}

func (s *Server) handleRecordTransaction(w http.ResponseWriter, r *http.Request) {
	var body transactionBody
	if err := decodeBody(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	cents, err := core.ParseDecimalToCents(body.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	date, err := core.ParseDate(body.Date)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "invalid date: " + err.Error()})
		return
	}

	tx := core.Transaction{
		Amount:   core.Money{Cents: cents},
		Date:     date,
		Category: sanitize(body.Category),
		Person:   sanitize(body.Person),
		Note:     sanitize(body.Note),
	}
	id, err := s.ledger.RecordTransaction(r.Context(), tx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.reports.Invalidate()

	tx.ID = id
	writeJSON(w, http.StatusCreated, viewOf(tx))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	txs, err := s.store.QueryTransactions(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	views := make([]transactionView, 0, len(txs))
	for _, tx := range txs {
		views = append(views, viewOf(tx))
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": views, "count": len(views)})
}

func parseFilter(r *http.Request) (ledger.Filter, error) {
	var f ledger.Filter
	var err error
	if f.From, err = queryDate(r, "from"); err != nil {
		return f, err
	}
	if f.To, err = queryDate(r, "to"); err != nil {
		return f, err
	}
	f.Person = sanitize(r.URL.Query().Get("person"))
	f.Category = sanitize(r.URL.Query().Get("category"))

	switch kind := ledger.Kind(r.URL.Query().Get("kind")); kind {
	case ledger.KindAny, ledger.KindIncome, ledger.KindExpense:
		f.Kind = kind
	default:
		return f, errors.New("invalid kind, want income or expense")
	}
	return f, nil
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	tx, err := s.findTransaction(r, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(tx))
}

// findTransaction scans the history for one entry. The store port has no
// per-ID lookup; history sizes here make a scan acceptable.
func (s *Server) findTransaction(r *http.Request, id int64) (core.Transaction, error) {
	txs, err := s.store.QueryTransactions(r.Context(), ledger.Filter{})
	if err != nil {
		return core.Transaction{}, err
	}
	for _, tx := range txs {
		if tx.ID == id {
			return tx, nil
		}
	}
	return core.Transaction{}, ledger.ErrNotFound
}

type correctionBody struct {
	Amount   *string `json:"amount"`
	Date     *string `json:"date"`
	Category *string `json:"category"`
	Person   *string `json:"person"`
	Note     *string `json:"note"`
}

func (s *Server) handleCorrectTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	var body correctionBody
	if err := decodeBody(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	var patch ledger.TransactionPatch
	if body.Amount != nil {
		cents, err := core.ParseDecimalToCents(*body.Amount)
		if err != nil {
			writeError(w, r, err)
			return
		}
		patch.Amount = &core.Money{Cents: cents}
	}
	if body.Date != nil {
		date, err := core.ParseDate(*body.Date)
		if err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "invalid date: " + err.Error()})
			return
		}
		patch.Date = &date
	}
	if body.Category != nil {
		c := sanitize(*body.Category)
		patch.Category = &c
	}
	if body.Person != nil {
		p := sanitize(*body.Person)
		patch.Person = &p
	}
	if body.Note != nil {
		n := sanitize(*body.Note)
		patch.Note = &n
	}

	if err := s.ledger.CorrectTransaction(r.Context(), id, patch); err != nil {
		writeError(w, r, err)
		return
	}
	s.reports.Invalidate()

	tx, err := s.findTransaction(r, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(tx))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	if err := s.ledger.DeleteTransaction(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	s.reports.Invalidate()
	w.WriteHeader(http.StatusNoContent)
}
