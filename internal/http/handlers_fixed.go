package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"cassa/internal/core"
	"cassa/internal/ledger"
)

func (s *Server) parseFixedInput(r *http.Request) (ledger.FixedInput, *HTMXResponseBuilder) {
	name := sanitizeInput(r.Form.Get("name"))
	if name == "" {
		return ledger.FixedInput{}, UnprocessableEntityError("Nome della spesa fissa mancante")
	}

	cents, err := core.ParseAmount(strings.TrimSpace(r.Form.Get("amount")))
	if err != nil {
		return ledger.FixedInput{}, UnprocessableEntityError("Importo non valido")
	}

	src, err := parseSource(r.Form.Get("source"))
	if err != nil {
		return ledger.FixedInput{}, UnprocessableEntityError("Origine fondi non valida")
	}

	dueDay := 0
	if v := strings.TrimSpace(r.Form.Get("due_day")); v != "" {
		dueDay, err = strconv.Atoi(v)
		if err != nil || dueDay < 1 || dueDay > 31 {
			return ledger.FixedInput{}, UnprocessableEntityError("Giorno di scadenza non valido (1-31)")
		}
	}

	return ledger.FixedInput{
		Name:   name,
		Amount: core.Money{Cents: cents},
		Source: src,
		DueDay: dueDay,
	}, nil
}

func (s *Server) handleCreateFixed(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	in, resp := s.parseFixedInput(r)
	if resp != nil {
		resp.Write(w)
		return
	}

	if err := s.svc.AddFixed(r.Context(), in); err != nil {
		slog.ErrorContext(r.Context(), "Failed to add fixed expense",
			"error", err,
			"name", in.Name,
			"amount_cents", in.Amount.Cents,
			"component", "fixed_handler",
			"operation", "create")
		mutationError(err).Write(w)
		return
	}

	slog.InfoContext(r.Context(), "Fixed expense created",
		"name", in.Name,
		"amount_cents", in.Amount.Cents,
		"due_day", in.DueDay,
		"version", s.svc.State().Version,
		"component", "fixed_handler",
		"operation", "create")

	s.mutationOK("Spesa fissa creata").Write(w)
}

func (s *Server) handleEditFixed(w http.ResponseWriter, r *http.Request) {
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
		BadRequestError("ID spesa fissa mancante").Write(w)
		return
	}

	in, resp := s.parseFixedInput(r)
	if resp != nil {
		resp.Write(w)
		return
	}

	if err := s.svc.EditFixed(r.Context(), id, in); err != nil {
		slog.ErrorContext(r.Context(), "Failed to edit fixed expense",
			"error", err,
			"fixed_id", id,
			"component", "fixed_handler",
			"operation", "edit")
		mutationError(err).Write(w)
		return
	}

	slog.InfoContext(r.Context(), "Fixed expense updated",
		"fixed_id", id,
		"amount_cents", in.Amount.Cents,
		"version", s.svc.State().Version,
		"component", "fixed_handler",
		"operation", "edit")

	s.mutationOK("Spesa fissa aggiornata").Write(w)
}

func (s *Server) handleDeleteFixed(w http.ResponseWriter, r *http.Request) {
	if resp := RequireDeleteOrPOST(r); resp != nil {
		resp.Write(w)
		return
	}

	id, resp := parseID(r)
	if resp != nil {
		resp.Write(w)
		return
	}

	if err := s.svc.DeleteFixed(r.Context(), id); err != nil {
		slog.ErrorContext(r.Context(), "Failed to delete fixed expense",
			"error", err,
			"fixed_id", id,
			"component", "fixed_handler",
			"operation", "delete")
		mutationError(err).Write(w)
		return
	}

	slog.InfoContext(r.Context(), "Fixed expense deleted",
		"fixed_id", id,
		"version", s.svc.State().Version,
		"component", "fixed_handler",
		"operation", "delete")

	s.mutationOK("Spesa fissa cancellata").Write(w)
}

// handleToggleFixed flips a bill's paid flag. This is the only operation that
// moves money for a fixed expense: paying subtracts from its source pool,
// unpaying restores it.
func (s *Server) handleToggleFixed(w http.ResponseWriter, r *http.Request) {
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
		BadRequestError("ID spesa fissa mancante").Write(w)
		return
	}

	if err := s.svc.ToggleFixed(r.Context(), id); err != nil {
		slog.ErrorContext(r.Context(), "Failed to toggle fixed expense",
			"error", err,
			"fixed_id", id,
			"component", "fixed_handler",
			"operation", "toggle")
		mutationError(err).Write(w)
		return
	}

	slog.InfoContext(r.Context(), "Fixed expense toggled",
		"fixed_id", id,
		"version", s.svc.State().Version,
		"component", "fixed_handler",
		"operation", "toggle")

	s.invalidateReports()
	NewHTMXResponse().
		Status(http.StatusOK).
		TriggerLedgerChanged(s.svc.State().Version).
		Write(w)
}

// handleResetFixed clears every paid flag without touching the balances.
// The rollover scheduler calls the same transition at the cycle boundary;
// this endpoint is the manual override.
func (s *Server) handleResetFixed(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}

	if err := s.svc.ResetFixed(r.Context()); err != nil {
		slog.ErrorContext(r.Context(), "Failed to reset fixed expenses",
			"error", err,
			"component", "fixed_handler",
			"operation", "reset")
		mutationError(err).Write(w)
		return
	}

	slog.InfoContext(r.Context(), "Fixed expenses reset",
		"version", s.svc.State().Version,
		"component", "fixed_handler",
		"operation", "reset")

	s.invalidateReports()
	NewHTMXResponse().
		Status(http.StatusOK).
		TriggerLedgerChanged(s.svc.State().Version).
		TriggerSuccessNotification("Nuovo ciclo avviato").
		Write(w)
}
