package http

import (
	"net/http"
	"strings"

	"budget/internal/core"
)

type templateBody struct {
	Amount    string `json:"amount"`
	Category  string `json:"category"`
	Person    string `json:"person"`
	Note      string `json:"note"`
	Frequency string `json:"frequency"`
	Interval  int    `json:"interval"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type templateView struct {
	ID                  int64  `json:"id"`
	Amount              string `json:"amount"`
	AmountCents         int64  `json:"amount_cents"`
	Category            string `json:"category"`
	Person              string `json:"person"`
	Note                string `json:"note,omitempty"`
	Frequency           string `json:"frequency"`
	Interval            int    `json:"interval"`
	StartDate           string `json:"start_date"`
	EndDate             string `json:"end_date,omitempty"`
	MaterializedThrough string `json:"materialized_through,omitempty"`
}

func templateViewOf(rt core.RecurrenceTemplate) templateView {
	v := templateView{
		ID:          rt.ID,
		Amount:      rt.Amount.String(),
		AmountCents: rt.Amount.Cents,
		Category:    rt.Category,
		Person:      rt.Person,
		Note:        rt.Note,
		Frequency:   string(rt.Frequency),
		Interval:    rt.Interval,
		StartDate:   rt.StartDate.String(),
	}
	if !rt.EndDate.IsEmpty() {
		v.EndDate = rt.EndDate.String()
	}
	if !rt.LastMaterializedThrough.IsEmpty() {
		v.MaterializedThrough = rt.LastMaterializedThrough.String()
	}
	return v
}

func (b templateBody) toTemplate() (core.RecurrenceTemplate, error) {
	cents, err := core.ParseDecimalToCents(b.Amount)
	if err != nil {
		return core.RecurrenceTemplate{}, err
	}
	start, err := core.ParseDate(b.StartDate)
	if err != nil {
		return core.RecurrenceTemplate{}, err
	}
	rt := core.RecurrenceTemplate{
		Amount:    core.Money{Cents: cents},
		Category:  sanitize(b.Category),
		Person:    sanitize(b.Person),
		Note:      sanitize(b.Note),
		Frequency: core.Frequency(strings.ToLower(strings.TrimSpace(b.Frequency))),
		Interval:  b.Interval,
		StartDate: start,
	}
	if rt.Interval == 0 {
		rt.Interval = 1
	}
	if b.EndDate != "" {
		if rt.EndDate, err = core.ParseDate(b.EndDate); err != nil {
			return core.RecurrenceTemplate{}, err
		}
	}
	return rt, nil
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var body templateBody
	if err := decodeBody(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	rt, err := body.toTemplate()
	if err != nil {
		writeError(w, r, err)
		return
	}

	id, err := s.ledger.CreateTemplate(r.Context(), rt)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rt.ID = id
	writeJSON(w, http.StatusCreated, templateViewOf(rt))
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.store.ListTemplates(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	views := make([]templateView, 0, len(templates))
	for _, rt := range templates {
		views = append(views, templateViewOf(rt))
	}
	writeJSON(w, http.StatusOK, map[string]any{"templates": views, "count": len(views)})
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	rt, err := s.store.GetTemplate(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, templateViewOf(rt))
}

func (s *Server) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	var body templateBody
	if err := decodeBody(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	rt, err := body.toTemplate()
	if err != nil {
		writeError(w, r, err)
		return
	}
	rt.ID = id

	if err := s.ledger.UpdateTemplateSchedule(r.Context(), rt); err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := s.store.GetTemplate(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, templateViewOf(updated))
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	cascade := r.URL.Query().Get("cascade") == "true"

	removed, err := s.ledger.DeleteTemplate(r.Context(), id, cascade)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if cascade && removed > 0 {
		s.reports.Invalidate()
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id, "transactions_removed": removed})
}

type materializeBody struct {
	AsOf string `json:"as_of"`
}

func (s *Server) handleMaterialize(w http.ResponseWriter, r *http.Request) {
	asOf := todayDate()
	if r.ContentLength > 0 {
		var body materializeBody
		if err := decodeBody(r, &body); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
			return
		}
		if body.AsOf != "" {
			parsed, err := core.ParseDate(body.AsOf)
			if err != nil {
				writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "invalid as_of: " + err.Error()})
				return
			}
			asOf = parsed
		}
	}

	result, err := s.mat.ProcessDueTemplates(r.Context(), asOf)
	if result.Created > 0 {
		s.reports.Invalidate()
	}
	payload := map[string]any{
		"as_of":             asOf.String(),
		"templates_checked": result.TemplatesChecked,
		"created":           result.Created,
		"skipped":           result.Skipped,
	}
	if err != nil {
		payload["error"] = err.Error()
		writeJSON(w, http.StatusInternalServerError, payload)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}
