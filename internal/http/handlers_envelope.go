package http

import (
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"cassa/internal/core"
	"cassa/internal/ledger"
)

func (s *Server) handleCreateEnvelope(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	name := sanitizeInput(r.Form.Get("name"))
	if name == "" {
		UnprocessableEntityError("Nome della busta mancante").Write(w)
		return
	}

	var target int64
	if v := strings.TrimSpace(r.Form.Get("target")); v != "" {
		cents, err := core.ParseAmount(v)
		if err != nil {
			UnprocessableEntityError("Obiettivo non valido").Write(w)
			return
		}
		target = cents
	}

	in := ledger.EnvelopeInput{
		Name:        name,
		Description: sanitizeInput(r.Form.Get("description")),
		Target:      core.Money{Cents: target},
	}

	if err := s.svc.AddEnvelope(r.Context(), in); err != nil {
		slog.ErrorContext(r.Context(), "Failed to add envelope",
			"error", err,
			"name", in.Name,
			"component", "envelope_handler",
			"operation", "create")
		mutationError(err).Write(w)
		return
	}

	slog.InfoContext(r.Context(), "Envelope created",
		"name", in.Name,
		"target_cents", in.Target.Cents,
		"version", s.svc.State().Version,
		"component", "envelope_handler",
		"operation", "create")

	s.mutationOK("Busta creata").Write(w)
}

func (s *Server) handleEditEnvelope(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	id := sanitizeInput(r.Form.Get("id"))
	if id == "" {
		BadRequestError("ID busta mancante").Write(w)
		return
	}

	name := sanitizeInput(r.Form.Get("name"))
	if name == "" {
		UnprocessableEntityError("Nome della busta mancante").Write(w)
		return
	}

	var target, allocated int64
	if v := strings.TrimSpace(r.Form.Get("target")); v != "" {
		cents, err := core.ParseAmount(v)
		if err != nil {
			UnprocessableEntityError("Obiettivo non valido").Write(w)
			return
		}
		target = cents
	}
	// The allocation field is a manual correction: it rewrites the envelope's
	// balance without producing a log entry or touching the pools.
	if v := strings.TrimSpace(r.Form.Get("allocated")); v != "" {
		cents, err := core.ParseAmount(v)
		if err != nil {
			UnprocessableEntityError("Saldo non valido").Write(w)
			return
		}
		allocated = cents
	}

	in := ledger.EnvelopeEdit{
		Name:        name,
		Description: sanitizeInput(r.Form.Get("description")),
		Allocated:   core.Money{Cents: allocated},
		Target:      core.Money{Cents: target},
	}

	if err := s.svc.EditEnvelope(r.Context(), id, in); err != nil {
		slog.ErrorContext(r.Context(), "Failed to edit envelope",
			"error", err,
			"envelope_id", id,
			"component", "envelope_handler",
			"operation", "edit")
		mutationError(err).Write(w)
		return
	}

	slog.InfoContext(r.Context(), "Envelope updated",
		"envelope_id", id,
		"version", s.svc.State().Version,
		"component", "envelope_handler",
		"operation", "edit")

	s.mutationOK("Busta aggiornata").Write(w)
}

func (s *Server) handleDeleteEnvelope(w http.ResponseWriter, r *http.Request) {
	if resp := RequireDeleteOrPOST(r); resp != nil {
		resp.Write(w)
		return
	}

	id, resp := parseID(r)
	if resp != nil {
		resp.Write(w)
		return
	}

	if err := s.svc.DeleteEnvelope(r.Context(), id); err != nil {
		slog.ErrorContext(r.Context(), "Failed to delete envelope",
			"error", err,
			"envelope_id", id,
			"component", "envelope_handler",
			"operation", "delete")
		mutationError(err).Write(w)
		return
	}

	slog.InfoContext(r.Context(), "Envelope deleted",
		"envelope_id", id,
		"version", s.svc.State().Version,
		"component", "envelope_handler",
		"operation", "delete")

	s.mutationOK("Busta cancellata").Write(w)
}

func (s *Server) handleFundEnvelope(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	id := sanitizeInput(r.Form.Get("id"))
	if id == "" {
		BadRequestError("ID busta mancante").Write(w)
		return
	}

	cents, err := core.ParseAmount(strings.TrimSpace(r.Form.Get("amount")))
	if err != nil {
		UnprocessableEntityError("Importo non valido").Write(w)
		return
	}

	src, err := parseSource(r.Form.Get("source"))
	if err != nil {
		UnprocessableEntityError("Origine fondi non valida").Write(w)
		return
	}

	if err := s.svc.FundEnvelope(r.Context(), id, core.Money{Cents: cents}, src); err != nil {
		slog.ErrorContext(r.Context(), "Failed to fund envelope",
			"error", err,
			"envelope_id", id,
			"amount_cents", cents,
			"component", "envelope_handler",
			"operation", "fund")
		mutationError(err).Write(w)
		return
	}

	slog.InfoContext(r.Context(), "Envelope funded",
		"envelope_id", id,
		"amount_cents", cents,
		"source", string(src),
		"version", s.svc.State().Version,
		"component", "envelope_handler",
		"operation", "fund")

	s.mutationOK("Busta finanziata").Write(w)
}

func (s *Server) handleSpendEnvelope(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	id := sanitizeInput(r.Form.Get("id"))
	if id == "" {
		BadRequestError("ID busta mancante").Write(w)
		return
	}

	cents, err := core.ParseAmount(strings.TrimSpace(r.Form.Get("amount")))
	if err != nil {
		UnprocessableEntityError("Importo non valido").Write(w)
		return
	}

	note := sanitizeInput(r.Form.Get("note"))

	if err := s.svc.SpendFromEnvelope(r.Context(), id, core.Money{Cents: cents}, note); err != nil {
		slog.ErrorContext(r.Context(), "Failed to spend from envelope",
			"error", err,
			"envelope_id", id,
			"amount_cents", cents,
			"component", "envelope_handler",
			"operation", "spend")
		mutationError(err).Write(w)
		return
	}

	slog.InfoContext(r.Context(), "Envelope spending recorded",
		"envelope_id", id,
		"amount_cents", cents,
		"version", s.svc.State().Version,
		"component", "envelope_handler",
		"operation", "spend")

	s.mutationOK("Prelievo dalla busta registrato").Write(w)
}

// handleEnvelopeLog renders the envelope audit log, newest first. An entry
// holds only a weak reference to its envelope: when the envelope has since
// been deleted, the entry stays and shows a removed label.
func (s *Server) handleEnvelopeLog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	state := s.svc.State()

	type logRow struct {
		Envelope string
		Removed  bool
		In       bool
		Amount   string
		Date     string
		Note     string
	}
	data := struct {
		Rows []logRow
	}{}
	for i := len(state.EnvelopeLog) - 1; i >= 0; i-- {
		entry := state.EnvelopeLog[i]
		row := logRow{
			In:     entry.Type == core.EntryIn,
			Amount: formatEuros(entry.Amount.Cents),
			Date:   entry.Date.Format("02/01/2006"),
			Note:   template.HTMLEscapeString(entry.Note),
		}
		if env, ok := state.Envelope(entry.EnvelopeID); ok {
			row.Envelope = template.HTMLEscapeString(env.Name)
		} else {
			row.Envelope = "Busta rimossa"
			row.Removed = true
		}
		data.Rows = append(data.Rows, row)
	}

	if s.templates == nil {
		_, _ = w.Write([]byte(`<section id="envelope-log" class="envelope-log"><div class="placeholder">` + strconv.Itoa(len(data.Rows)) + ` movimenti</div></section>`))
		return
	}
	if err := s.templates.ExecuteTemplate(w, "envelope_log.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution error", "error", err, "template", "envelope_log.html")
		_, _ = w.Write([]byte(`<section id="envelope-log" class="envelope-log"><div class="placeholder">Errore nel caricamento</div></section>`))
	}
}
