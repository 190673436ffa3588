package http

import (
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cassa/internal/core"
	"cassa/internal/period"
	"cassa/internal/report"
	"cassa/internal/services"
)

// trendPeriods is how many past cycles the trend chart shows.
const trendPeriods = 6

// getSummary memoizes the current period's summary per state version. The
// cache is purged on every mutation, so a hit is always current.
func (s *Server) getSummary(state core.LedgerState, now time.Time) report.Summary {
	key := reportKey(state.Version, period.Key(now, state.Settings.Payday))
	if cached, ok := s.summaryCache.Get(key); ok {
		return cached
	}
	summary := report.PeriodSummary(state, now)
	s.summaryCache.Set(key, summary)
	return summary
}

func (s *Server) getTrend(state core.LedgerState, now time.Time) []report.TrendPoint {
	key := reportKey(state.Version, "trend:"+period.Key(now, state.Settings.Payday)+":"+strconv.Itoa(trendPeriods))
	if cached, ok := s.trendCache.Get(key); ok {
		return cached
	}
	points := report.Trend(state, now, trendPeriods)
	s.trendCache.Set(key, points)
	return points
}

type billRow struct {
	ID     string
	Name   string
	Amount string
	Paid   bool
	Status string
	Due    string
}

type envelopeRow struct {
	ID          string
	Name        string
	Description string
	Allocated   string
	Target      string
	Progress    int
}

type categoryRow struct {
	Label  string
	Color  string
	Amount string
	Width  int
}

type overviewData struct {
	PeriodStart string
	PeriodEnd   string
	Bank        string
	Cash        string
	Total       string
	Income      string
	Spent       string
	Net         string
	Projected   string
	UnpaidTotal string
	Categories  []categoryRow
	Bills       []billRow
	Envelopes   []envelopeRow
	Payday      int
}

func (s *Server) buildOverview(state core.LedgerState, now time.Time) overviewData {
	summary := s.getSummary(state, now)
	forecast := report.Project(state, now)
	unpaid := services.UnpaidTotal(state)

	data := overviewData{
		PeriodStart: summary.Start.Format("02/01"),
		PeriodEnd:   summary.End.AddDate(0, 0, -1).Format("02/01"),
		Bank:        formatEuros(state.Balance.Bank.Cents),
		Cash:        formatEuros(state.Balance.Cash.Cents),
		Total:       formatEuros(state.Balance.Total().Cents),
		Income:      formatEuros(summary.Income.Cents),
		Spent:       formatEuros(summary.Spent.Cents),
		Net:         formatEuros(summary.Net.Cents),
		Projected:   formatEuros(forecast.Projected.Cents),
		UnpaidTotal: formatEuros(unpaid.Total().Cents),
		Payday:      state.Settings.Payday,
	}

	var maxCents int64
	for _, c := range summary.ByCategory {
		if c.Amount.Cents > maxCents {
			maxCents = c.Amount.Cents
		}
	}
	for _, c := range summary.ByCategory {
		width := 0
		if maxCents > 0 && c.Amount.Cents > 0 {
			width = int((c.Amount.Cents*100 + maxCents/2) / maxCents)
			if width > 0 && width < 2 {
				width = 2
			}
			if width > 100 {
				width = 100
			}
		}
		data.Categories = append(data.Categories, categoryRow{
			Label:  template.HTMLEscapeString(c.Label),
			Color:  c.Color,
			Amount: formatEuros(c.Amount.Cents),
			Width:  width,
		})
	}

	for _, b := range services.DueBills(state, now) {
		row := billRow{
			ID:     b.ID,
			Name:   template.HTMLEscapeString(b.Name),
			Amount: formatEuros(b.Amount.Cents),
			Paid:   b.Paid,
			Status: string(b.Status),
		}
		if !b.Due.IsZero() {
			row.Due = b.Due.Format("02/01")
		}
		data.Bills = append(data.Bills, row)
	}

	for _, e := range state.Envelopes {
		progress := 0
		if e.Target.Cents > 0 {
			progress = int((e.Allocated.Cents * 100) / e.Target.Cents)
			if progress > 100 {
				progress = 100
			}
			if progress < 0 {
				progress = 0
			}
		}
		data.Envelopes = append(data.Envelopes, envelopeRow{
			ID:          e.ID,
			Name:        template.HTMLEscapeString(e.Name),
			Description: template.HTMLEscapeString(e.Description),
			Allocated:   formatEuros(e.Allocated.Cents),
			Target:      formatEuros(e.Target.Cents),
			Progress:    progress,
		})
	}

	return data
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	state := s.svc.State()
	data := struct {
		Overview   overviewData
		Categories []core.Category
	}{
		Overview:   s.buildOverview(state, s.now()),
		Categories: state.Categories,
	}

	if s.templates == nil {
		_, _ = w.Write([]byte(`<html><body><div class="placeholder">Saldo: ` + data.Overview.Total + `</div></body></html>`))
		return
	}
	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "index.html")
		_, _ = w.Write([]byte(`<div class="error">Errore nel caricamento della pagina</div>`))
	}
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	state := s.svc.State()
	now := s.now()
	// An optional date pins the overview to a past cycle.
	if v := strings.TrimSpace(r.URL.Query().Get("date")); v != "" {
		if d, err := time.Parse("2006-01-02", v); err == nil {
			now = d
		} else {
			slog.WarnContext(r.Context(), "Invalid date parameter", "date", v)
		}
	}

	data := s.buildOverview(state, now)

	if s.templates == nil {
		_, _ = w.Write([]byte(`<section id="overview" class="overview"><div class="placeholder">Saldo: ` + data.Total + `</div></section>`))
		return
	}
	if err := s.templates.ExecuteTemplate(w, "overview.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "overview.html")
		_, _ = w.Write([]byte(`<section id="overview" class="overview"><div class="placeholder">Errore nel caricamento</div></section>`))
	}
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	state := s.svc.State()
	points := s.getTrend(state, s.now())

	var maxCents int64
	for _, p := range points {
		if p.Expense.Cents > maxCents {
			maxCents = p.Expense.Cents
		}
		if p.Income.Cents > maxCents {
			maxCents = p.Income.Cents
		}
	}

	type trendRow struct {
		Label        string
		Income       string
		Expense      string
		IncomeWidth  int
		ExpenseWidth int
	}
	barWidth := func(cents int64) int {
		if maxCents <= 0 || cents <= 0 {
			return 0
		}
		w := int((cents*100 + maxCents/2) / maxCents)
		if w > 0 && w < 2 {
			w = 2
		}
		if w > 100 {
			w = 100
		}
		return w
	}

	data := struct {
		Rows []trendRow
	}{}
	for _, p := range points {
		data.Rows = append(data.Rows, trendRow{
			Label:        p.Start.Format("02/01"),
			Income:       formatEuros(p.Income.Cents),
			Expense:      formatEuros(p.Expense.Cents),
			IncomeWidth:  barWidth(p.Income.Cents),
			ExpenseWidth: barWidth(p.Expense.Cents),
		})
	}

	if s.templates == nil {
		_, _ = w.Write([]byte(`<section id="trend" class="trend"><div class="placeholder">` + strconv.Itoa(len(points)) + ` cicli</div></section>`))
		return
	}
	if err := s.templates.ExecuteTemplate(w, "trend.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "trend.html")
		_, _ = w.Write([]byte(`<section id="trend" class="trend"><div class="placeholder">Errore nel caricamento</div></section>`))
	}
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	label := sanitizeInput(r.Form.Get("label"))
	if label == "" {
		UnprocessableEntityError("Nome categoria mancante").Write(w)
		return
	}

	if err := s.svc.AddCategory(r.Context(), label); err != nil {
		slog.ErrorContext(r.Context(), "Failed to add category",
			"error", err,
			"label", label,
			"component", "category_handler",
			"operation", "create")
		mutationError(err).Write(w)
		return
	}

	slog.InfoContext(r.Context(), "Category created",
		"label", label,
		"version", s.svc.State().Version,
		"component", "category_handler",
		"operation", "create")

	s.mutationOK("Categoria creata").Write(w)
}

func (s *Server) handleUpdatePayday(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	day, err := strconv.Atoi(strings.TrimSpace(r.Form.Get("payday")))
	if err != nil {
		UnprocessableEntityError("Giorno di paga non valido (1-28)").Write(w)
		return
	}

	if err := s.svc.UpdatePayday(r.Context(), day); err != nil {
		slog.ErrorContext(r.Context(), "Failed to update payday",
			"error", err,
			"payday", day,
			"component", "settings_handler",
			"operation", "update_payday")
		mutationError(err).Write(w)
		return
	}

	slog.InfoContext(r.Context(), "Payday updated",
		"payday", day,
		"version", s.svc.State().Version,
		"component", "settings_handler",
		"operation", "update_payday")

	s.mutationOK("Giorno di paga aggiornato").Write(w)
}
