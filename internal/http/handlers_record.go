package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"cassa/internal/core"
	"cassa/internal/ledger"
)

// mutationError translates a service error into the HTMX error response the
// frontend expects. Domain validation failures map to 422, missing records to
// 404, anything else is a 500.
func mutationError(err error) *HTMXResponseBuilder {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return NotFoundError("Elemento non trovato")
	case errors.Is(err, core.ErrInvalidAmount):
		return UnprocessableEntityError("Importo non valido")
	case errors.Is(err, core.ErrInvalidSource):
		return UnprocessableEntityError("Origine fondi non valida")
	case errors.Is(err, core.ErrInvalidPayday):
		return UnprocessableEntityError("Giorno di paga non valido (1-28)")
	case errors.Is(err, core.ErrEmptyName):
		return UnprocessableEntityError("Nome mancante")
	default:
		return InternalServerError("Errore interno, riprova")
	}
}

// mutationOK invalidates the memoized views and builds the standard success
// response carrying the new ledger version.
func (s *Server) mutationOK(message string) *HTMXResponseBuilder {
	s.invalidateReports()
	return NewHTMXResponse().
		Status(http.StatusOK).
		TriggerLedgerChanged(s.svc.State().Version).
		TriggerFormReset().
		TriggerSuccessNotification(message)
}

func (s *Server) parseExpenseInput(r *http.Request) (ledger.ExpenseInput, *HTMXResponseBuilder) {
	cents, err := core.ParseAmount(strings.TrimSpace(r.Form.Get("amount")))
	if err != nil {
		return ledger.ExpenseInput{}, UnprocessableEntityError("Importo non valido")
	}

	src, err := parseSource(r.Form.Get("source"))
	if err != nil {
		return ledger.ExpenseInput{}, UnprocessableEntityError("Origine fondi non valida")
	}

	date, err := parseDate(r.Form.Get("date"), s.now())
	if err != nil {
		return ledger.ExpenseInput{}, UnprocessableEntityError("Data non valida")
	}

	return ledger.ExpenseInput{
		Amount:   core.Money{Cents: cents},
		Category: sanitizeInput(r.Form.Get("category")),
		Note:     sanitizeInput(r.Form.Get("note")),
		Source:   src,
		Date:     date,
	}, nil
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	in, resp := s.parseExpenseInput(r)
	if resp != nil {
		resp.Write(w)
		return
	}

	if err := s.svc.AddExpense(r.Context(), in); err != nil {
		slog.ErrorContext(r.Context(), "Failed to add expense",
			"error", err,
			"amount_cents", in.Amount.Cents,
			"category", in.Category,
			"component", "expense_handler",
			"operation", "create")
		mutationError(err).Write(w)
		return
	}

	slog.InfoContext(r.Context(), "Expense recorded",
		"amount_cents", in.Amount.Cents,
		"category", in.Category,
		"source", string(in.Source),
		"version", s.svc.State().Version,
		"component", "expense_handler",
		"operation", "create")

	s.mutationOK("Spesa registrata").Write(w)
}

func (s *Server) handleEditExpense(w http.ResponseWriter, r *http.Request) {
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
		BadRequestError("ID spesa mancante").Write(w)
		return
	}

	in, resp := s.parseExpenseInput(r)
	if resp != nil {
		resp.Write(w)
		return
	}

	if err := s.svc.EditExpense(r.Context(), id, in); err != nil {
		slog.ErrorContext(r.Context(), "Failed to edit expense",
			"error", err,
			"expense_id", id,
			"component", "expense_handler",
			"operation", "edit")
		mutationError(err).Write(w)
		return
	}

	slog.InfoContext(r.Context(), "Expense updated",
		"expense_id", id,
		"amount_cents", in.Amount.Cents,
		"version", s.svc.State().Version,
		"component", "expense_handler",
		"operation", "edit")

	s.mutationOK("Spesa aggiornata").Write(w)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if resp := RequireDeleteOrPOST(r); resp != nil {
		resp.Write(w)
		return
	}

	id, resp := parseID(r)
	if resp != nil {
		resp.Write(w)
		return
	}

	if err := s.svc.DeleteExpense(r.Context(), id); err != nil {
		slog.ErrorContext(r.Context(), "Failed to delete expense",
			"error", err,
			"expense_id", id,
			"component", "expense_handler",
			"operation", "delete")
		mutationError(err).Write(w)
		return
	}

	slog.InfoContext(r.Context(), "Expense deleted",
		"expense_id", id,
		"version", s.svc.State().Version,
		"component", "expense_handler",
		"operation", "delete")

	s.mutationOK("Spesa cancellata").Write(w)
}

func (s *Server) parseIncomeInput(r *http.Request) (ledger.IncomeInput, *HTMXResponseBuilder) {
	cents, err := core.ParseAmount(strings.TrimSpace(r.Form.Get("amount")))
	if err != nil {
		return ledger.IncomeInput{}, UnprocessableEntityError("Importo non valido")
	}

	src, err := parseSource(r.Form.Get("source"))
	if err != nil {
		return ledger.IncomeInput{}, UnprocessableEntityError("Origine fondi non valida")
	}

	date, err := parseDate(r.Form.Get("date"), s.now())
	if err != nil {
		return ledger.IncomeInput{}, UnprocessableEntityError("Data non valida")
	}

	return ledger.IncomeInput{
		Amount: core.Money{Cents: cents},
		Source: src,
		Date:   date,
	}, nil
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	in, resp := s.parseIncomeInput(r)
	if resp != nil {
		resp.Write(w)
		return
	}

	if err := s.svc.AddIncome(r.Context(), in); err != nil {
		slog.ErrorContext(r.Context(), "Failed to add income",
			"error", err,
			"amount_cents", in.Amount.Cents,
			"component", "income_handler",
			"operation", "create")
		mutationError(err).Write(w)
		return
	}

	slog.InfoContext(r.Context(), "Income recorded",
		"amount_cents", in.Amount.Cents,
		"source", string(in.Source),
		"version", s.svc.State().Version,
		"component", "income_handler",
		"operation", "create")

	s.mutationOK("Entrata registrata").Write(w)
}

func (s *Server) handleEditIncome(w http.ResponseWriter, r *http.Request) {
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
		BadRequestError("ID entrata mancante").Write(w)
		return
	}

	in, resp := s.parseIncomeInput(r)
	if resp != nil {
		resp.Write(w)
		return
	}

	if err := s.svc.EditIncome(r.Context(), id, in); err != nil {
		slog.ErrorContext(r.Context(), "Failed to edit income",
			"error", err,
			"income_id", id,
			"component", "income_handler",
			"operation", "edit")
		mutationError(err).Write(w)
		return
	}

	slog.InfoContext(r.Context(), "Income updated",
		"income_id", id,
		"amount_cents", in.Amount.Cents,
		"version", s.svc.State().Version,
		"component", "income_handler",
		"operation", "edit")

	s.mutationOK("Entrata aggiornata").Write(w)
}

func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
	if resp := RequireDeleteOrPOST(r); resp != nil {
		resp.Write(w)
		return
	}

	id, resp := parseID(r)
	if resp != nil {
		resp.Write(w)
		return
	}

	if err := s.svc.DeleteIncome(r.Context(), id); err != nil {
		slog.ErrorContext(r.Context(), "Failed to delete income",
			"error", err,
			"income_id", id,
			"component", "income_handler",
			"operation", "delete")
		mutationError(err).Write(w)
		return
	}

	slog.InfoContext(r.Context(), "Income deleted",
		"income_id", id,
		"version", s.svc.State().Version,
		"component", "income_handler",
		"operation", "delete")

	s.mutationOK("Entrata cancellata").Write(w)
}
