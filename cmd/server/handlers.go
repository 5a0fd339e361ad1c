package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"math"
	"net/http"
	"net/url"
	"slices"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Simplici0/plmcost/internal/analysis"
	"github.com/Simplici0/plmcost/internal/catalog"
	"github.com/Simplici0/plmcost/internal/costing"
	"github.com/Simplici0/plmcost/internal/form"
	"github.com/Simplici0/plmcost/internal/report"
)

const (
	msgSubmitFailed      = "There was an error generating the analysis. Please try again."
	msgRecalculateFailed = "There was an error recalculating the analysis. Please try again."
	msgInFlight          = "An analysis is already running. Please wait for it to finish."
)

// formFields is the order in which posted fields are applied. Industry goes
// first so that its sector reset happens before the sector is read.
var formFields = []string{
	form.FieldIndustryInput,
	form.FieldSectorInput,
	form.FieldCompanyName,
	form.FieldCountryCode,
	form.FieldEngineers,
	form.FieldNumSites,
	form.FieldNumCountries,
	form.FieldInfoLocation,
	form.FieldNewProducts,
	form.FieldReworks,
	form.FieldDelays,
}

type baseViewData struct {
	ErrorMessage   string
	SuccessMessage string
}

type itemView struct {
	Category    string
	Cost        string
	Share       string
	Formula     string
	Narrative   string
	Explanation string
	MetricLabel string
	Metric      string
	Overridden  bool
}

type overrideInput struct {
	Key         costing.MetricKey
	Label       string
	Value       string
	Placeholder string
	USD         string
	Custom      bool
	Rejected    bool
}

type resultView struct {
	ID                   string
	Total                string
	Summary              string
	Items                []itemView
	MethodologyNotes     string
	ChartInterpretations costing.ChartInterpretations
	Methodology          costing.Methodology
	Overrides            []overrideInput
	StateLabel           string
}

type homeViewData struct {
	baseViewData
	Form         form.State
	Countries    []catalog.Country
	Industries   []catalog.IndustryOption
	Sectors      []string
	Result       *resultView
	HistoryCount int
}

type historyRow struct {
	ID        string
	CreatedAt string
	Company   string
	Industry  string
	Country   string
	Total     string
}

type historyViewData struct {
	baseViewData
	Entries []historyRow
}

func (s *server) handleHome(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.get(sessionID(r))
	s.renderHome(w, http.StatusOK, sess, baseViewData{ErrorMessage: sess.Error})
}

func (s *server) renderHome(w http.ResponseWriter, status int, sess session, base baseViewData) {
	data := homeViewData{
		baseViewData: base,
		Form:         sess.Form,
		Countries:    s.cat.Countries(),
		Industries:   s.cat.IndustryOptions(),
		Sectors:      s.cat.Sectors(sess.Form.Industry),
		HistoryCount: s.history.Len(),
	}
	if sess.Current != nil {
		data.Result = newResultView(*sess.Current, sess.Overrides, sess.Rejected)
	}
	s.renderTemplate(w, status, "home.html", data)
}

func newResultView(out analysis.Outcome, overrides costing.Overrides, rejected []costing.MetricKey) *resultView {
	r := out.Entry.Result
	country := out.Entry.Country
	money := func(v float64) string { return costing.FormatCurrency(v, country) }

	view := &resultView{
		ID:                   out.Entry.ID,
		Total:                money(float64(r.TotalCost)),
		Summary:              r.Summary,
		MethodologyNotes:     r.MethodologyNotes,
		ChartInterpretations: r.ChartInterpretations,
		Methodology:          out.Methodology,
		StateLabel:           stateLabel(out.Methodology.State),
	}

	for _, item := range r.CostBreakdown {
		share := "0%"
		if r.TotalCost > 0 {
			share = strconv.FormatFloat(float64(item.Cost)*100/float64(r.TotalCost), 'f', 1, 64) + "%"
		}
		metric := money(item.MetricValue)
		if item.MetricKey == costing.SiloCostMultiplier {
			metric = strconv.FormatFloat(math.Round(item.MetricValue*10000)/100, 'f', -1, 64) + "%"
		}
		view.Items = append(view.Items, itemView{
			Category:    item.Category,
			Cost:        money(float64(item.Cost)),
			Share:       share,
			Formula:     item.MethodologyFormula,
			Narrative:   item.CalculationNarrative,
			Explanation: item.Explanation,
			MetricLabel: item.MetricLabel,
			Metric:      metric,
			Overridden:  item.IsMetricOverridden,
		})
	}

	for _, line := range out.Methodology.Financial {
		in := overrideInput{
			Key:         line.Key,
			Label:       line.Label,
			Placeholder: strconv.FormatFloat(line.Value, 'f', -1, 64),
			USD:         line.USDDisplay,
			Custom:      line.Custom,
			Rejected:    slices.Contains(rejected, line.Key),
		}
		if v, ok := overrides.Value(line.Key); ok {
			in.Value = strconv.FormatFloat(v, 'f', -1, 64)
		}
		view.Overrides = append(view.Overrides, in)
	}
	return view
}

func stateLabel(st costing.OverrideState) string {
	switch st {
	case costing.PartiallyOverridden:
		return "Hybrid: market estimates combined with your values"
	case costing.FullyOverridden:
		return "Fully custom: every financial metric is your own"
	}
	return "Market estimates"
}

// applyFormValues folds posted fields into state through the form coupling
// rules.
func applyFormValues(cat *catalog.Catalog, state form.State, values url.Values) form.State {
	for _, field := range formFields {
		if _, ok := values[field]; ok {
			state = form.ApplyFieldChange(cat, state, field, values.Get(field))
		}
	}
	return state
}

// applyOverrideValues folds posted override fields into overrides. Invalid
// values are skipped, leaving that metric as it was, and reported back.
func applyOverrideValues(overrides costing.Overrides, values url.Values) (costing.Overrides, []costing.MetricKey) {
	next := overrides
	var rejected []costing.MetricKey
	for _, key := range costing.OverridableMetrics {
		if _, ok := values[string(key)]; !ok {
			continue
		}
		updated, err := next.Set(key, values.Get(string(key)))
		if err != nil {
			rejected = append(rejected, key)
			continue
		}
		next = updated
	}
	return next, rejected
}

// errorResponse maps a pipeline error to a status and a user message.
func errorResponse(err error, failure string) (int, string) {
	var verr *form.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Message
	case errors.Is(err, analysis.ErrInFlight):
		return http.StatusConflict, msgInFlight
	case errors.Is(err, analysis.ErrNarrativeFailed):
		return http.StatusBadGateway, failure
	}
	return http.StatusInternalServerError, failure
}

// handleAnalyze runs a fresh submission. The session only changes once the
// run was admitted: a rejected concurrent submit leaves it as it was.
func (s *server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	id := sessionID(r)
	sess := s.sessions.get(id)
	state := applyFormValues(s.cat, sess.Form, r.PostForm)

	out, err := s.analysis.Run(r.Context(), id, analysis.Request{Form: state})
	if errors.Is(err, analysis.ErrInFlight) {
		s.fail(w, r, id, err, msgSubmitFailed)
		return
	}

	s.sessions.update(id, func(sess *session) {
		sess.Form = state
		sess.Overrides = nil
		sess.Rejected = nil
		sess.Current = nil
		sess.Error = ""
		if err == nil {
			sess.Current = &out
		}
	})
	if err != nil {
		s.fail(w, r, id, err, msgSubmitFailed)
		return
	}

	http.Redirect(w, r, "/#results", http.StatusSeeOther)
}

// handleOverrides stores override edits without recalculating. Invalid
// values do not take effect and are flagged next to their field.
func (s *server) handleOverrides(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	id := sessionID(r)
	s.sessions.update(id, func(sess *session) {
		sess.Overrides, sess.Rejected = applyOverrideValues(sess.Overrides, r.PostForm)
	})
	http.Redirect(w, r, "/#methodology", http.StatusSeeOther)
}

func (s *server) handleRecalculate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	id := sessionID(r)
	sess := s.sessions.get(id)
	overrides, rejected := applyOverrideValues(sess.Overrides, r.PostForm)

	out, err := s.analysis.Run(r.Context(), id, analysis.Request{Form: sess.Form, Overrides: overrides})
	if errors.Is(err, analysis.ErrInFlight) {
		s.fail(w, r, id, err, msgRecalculateFailed)
		return
	}

	s.sessions.update(id, func(sess *session) {
		sess.Overrides = overrides
		sess.Rejected = rejected
		sess.Error = ""
		if err == nil {
			sess.Current = &out
		}
	})
	if err != nil {
		s.fail(w, r, id, err, msgRecalculateFailed)
		return
	}

	http.Redirect(w, r, "/#results", http.StatusSeeOther)
}

func (s *server) fail(w http.ResponseWriter, r *http.Request, id string, err error, failure string) {
	status, msg := errorResponse(err, failure)
	if status >= http.StatusInternalServerError {
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("analysis failed")
	}
	if status != http.StatusConflict {
		s.sessions.update(id, func(sess *session) { sess.Error = msg })
	}
	s.renderHome(w, status, s.sessions.get(id), baseViewData{ErrorMessage: msg})
}

func (s *server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.sessions.update(sessionID(r), func(sess *session) {
		sess.Current = nil
		sess.Overrides = nil
		sess.Rejected = nil
		sess.Error = ""
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type fieldChangeRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

type fieldChangeResponse struct {
	Form    form.State `json:"form"`
	Sectors []string   `json:"sectors"`
}

// handleFieldChange applies a single field edit, for clients that update
// the form as the user types.
func (s *server) handleFieldChange(w http.ResponseWriter, r *http.Request) {
	var req fieldChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	id := sessionID(r)
	var state form.State
	s.sessions.update(id, func(sess *session) {
		sess.Form = form.ApplyFieldChange(s.cat, sess.Form, req.Field, req.Value)
		state = sess.Form
	})

	sectors := s.cat.Sectors(state.Industry)
	if sectors == nil {
		sectors = []string{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(fieldChangeResponse{Form: state, Sectors: sectors})
}

func (s *server) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	s.history.Load(r.Context())
	entries := s.history.Entries()
	rows := make([]historyRow, 0, len(entries))
	for _, e := range entries {
		created := ""
		if t := e.CreatedAt(); !t.IsZero() {
			created = t.Format("2006-01-02 15:04")
		}
		rows = append(rows, historyRow{
			ID:        e.ID,
			CreatedAt: created,
			Company:   e.FormData.CompanyName,
			Industry:  form.IndustryDisplay(s.cat, e.FormData),
			Country:   e.Country.Name,
			Total:     costing.FormatCurrency(float64(e.Result.TotalCost), e.Country),
		})
	}

	s.renderTemplate(w, http.StatusOK, "history.html", historyViewData{
		baseViewData: baseViewData{SuccessMessage: r.URL.Query().Get("success")},
		Entries:      rows,
	})
}

func (s *server) handleHistoryClear(w http.ResponseWriter, r *http.Request) {
	s.history.Clear(r.Context())
	http.Redirect(w, r, "/history?success=History+cleared", http.StatusSeeOther)
}

func (s *server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	s.history.Load(r.Context())
	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, s.cat, s.history.Entries()); err != nil {
		s.log.Error().Err(err).Msg("export csv")
		http.Error(w, "failed to export history", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.CSVFileName))
	_, _ = w.Write(buf.Bytes())
}

func (s *server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	s.history.Load(r.Context())
	var buf bytes.Buffer
	if err := report.WriteXLSX(&buf, s.cat, s.history.Entries()); err != nil {
		s.log.Error().Err(err).Msg("export xlsx")
		http.Error(w, "failed to export history", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.XLSXFileName))
	_, _ = w.Write(buf.Bytes())
}

func (s *server) handleHistoryDocument(w http.ResponseWriter, r *http.Request) {
	s.history.Load(r.Context())
	e, ok := s.history.Get(chi.URLParam(r, "id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	doc, err := report.Document(s.cat, e)
	if err != nil {
		s.log.Error().Err(err).Str("id", e.ID).Msg("render document")
		http.Error(w, "failed to render report", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(doc)
}

func (s *server) renderTemplate(w http.ResponseWriter, status int, page string, data any) {
	tmpl, ok := s.pages[page]
	if !ok {
		http.Error(w, "unknown page", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		s.log.Error().Err(err).Str("page", page).Msg("render template")
		http.Error(w, "failed to render template", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func parsePages() (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template)
	for _, page := range []string{"home.html", "history.html"} {
		tmpl, err := template.ParseFS(webFS, "web/templates/layout.html", "web/templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", page, err)
		}
		pages[page] = tmpl
	}
	return pages, nil
}
