// Package ledger implements the state transitions of the financial cycle
// engine. Every operation is a pure transformation: it validates its input,
// clones the aggregate, applies the change, and bumps the version. On any
// error the caller's state is returned untouched.
//
// Edits follow the reverse-then-apply idiom: the old financial effect is
// undone against the old source before the new effect is applied against the
// new source. Collapsing the two steps double-counts when the source changes.
package ledger

import (
	"time"

	"cassa/internal/core"
)

type (
	IncomeInput struct {
		Amount core.Money
		Source core.MoneySource
		Date   time.Time
	}

	ExpenseInput struct {
		Amount   core.Money
		Category string
		Note     string
		Source   core.MoneySource
		Date     time.Time
	}

	FixedInput struct {
		Name   string
		Amount core.Money
		Source core.MoneySource
		DueDay int
	}

	EnvelopeInput struct {
		Name        string
		Description string
		Target      core.Money
	}

	// EnvelopeEdit overwrites an envelope including its allocation. The
	// allocation write is a manual correction path: it touches neither the
	// balances nor the envelope log.
	EnvelopeEdit struct {
		Name        string
		Description string
		Allocated   core.Money
		Target      core.Money
	}
)

func (in IncomeInput) validate() error {
	if err := in.Amount.Validate(); err != nil {
		return err
	}
	if !in.Source.Valid() {
		return core.ErrInvalidSource
	}
	return nil
}

func (in ExpenseInput) validate() error {
	if err := in.Amount.Validate(); err != nil {
		return err
	}
	if !in.Source.Valid() {
		return core.ErrInvalidSource
	}
	return nil
}

// AddIncome credits the source pool and prepends the record.
func AddIncome(s core.LedgerState, in IncomeInput) (core.LedgerState, error) {
	if err := in.validate(); err != nil {
		return s, err
	}
	c := s.Clone()
	c.Balance = c.Balance.Add(in.Source, in.Amount.Cents)
	c.Incomes = append([]core.IncomeRecord{{
		ID:     core.NewID(),
		Amount: in.Amount,
		Date:   in.Date.UTC(),
		Source: in.Source,
	}}, c.Incomes...)
	c.Version++
	return c, nil
}

// EditIncome reverses the old credit, applies the new one, and replaces the
// record fields. Unknown ids leave the state unchanged.
func EditIncome(s core.LedgerState, id string, in IncomeInput) (core.LedgerState, error) {
	if err := in.validate(); err != nil {
		return s, err
	}
	idx := -1
	for i, r := range s.Incomes {
		if r.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return s, core.ErrNotFound
	}
	c := s.Clone()
	old := c.Incomes[idx]
	c.Balance = c.Balance.Add(old.Source, -old.Amount.Cents)
	c.Balance = c.Balance.Add(in.Source, in.Amount.Cents)
	c.Incomes[idx] = core.IncomeRecord{ID: id, Amount: in.Amount, Date: in.Date.UTC(), Source: in.Source}
	c.Version++
	return c, nil
}

// DeleteIncome reverses the credit and removes the record.
func DeleteIncome(s core.LedgerState, id string) (core.LedgerState, error) {
	idx := -1
	for i, r := range s.Incomes {
		if r.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return s, core.ErrNotFound
	}
	c := s.Clone()
	old := c.Incomes[idx]
	c.Balance = c.Balance.Add(old.Source, -old.Amount.Cents)
	c.Incomes = append(c.Incomes[:idx], c.Incomes[idx+1:]...)
	c.Version++
	return c, nil
}

// AddExpense debits the source pool and prepends the record.
func AddExpense(s core.LedgerState, in ExpenseInput) (core.LedgerState, error) {
	if err := in.validate(); err != nil {
		return s, err
	}
	c := s.Clone()
	c.Balance = c.Balance.Add(in.Source, -in.Amount.Cents)
	c.Expenses = append([]core.ExpenseRecord{{
		ID:       core.NewID(),
		Amount:   in.Amount,
		Category: in.Category,
		Date:     in.Date.UTC(),
		Source:   in.Source,
		Note:     in.Note,
	}}, c.Expenses...)
	c.Version++
	return c, nil
}

// EditExpense is EditIncome with the sign inverted: refund the old debit,
// apply the new one.
func EditExpense(s core.LedgerState, id string, in ExpenseInput) (core.LedgerState, error) {
	if err := in.validate(); err != nil {
		return s, err
	}
	idx := -1
	for i, r := range s.Expenses {
		if r.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return s, core.ErrNotFound
	}
	c := s.Clone()
	old := c.Expenses[idx]
	c.Balance = c.Balance.Add(old.Source, old.Amount.Cents)
	c.Balance = c.Balance.Add(in.Source, -in.Amount.Cents)
	c.Expenses[idx] = core.ExpenseRecord{
		ID:       id,
		Amount:   in.Amount,
		Category: in.Category,
		Date:     in.Date.UTC(),
		Source:   in.Source,
		Note:     in.Note,
	}
	c.Version++
	return c, nil
}

// DeleteExpense refunds the debit and removes the record.
func DeleteExpense(s core.LedgerState, id string) (core.LedgerState, error) {
	idx := -1
	for i, r := range s.Expenses {
		if r.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return s, core.ErrNotFound
	}
	c := s.Clone()
	old := c.Expenses[idx]
	c.Balance = c.Balance.Add(old.Source, old.Amount.Cents)
	c.Expenses = append(c.Expenses[:idx], c.Expenses[idx+1:]...)
	c.Version++
	return c, nil
}

// AddFixed appends a new unpaid bill. Adding never touches the balances.
func AddFixed(s core.LedgerState, in FixedInput) (core.LedgerState, error) {
	f := core.FixedExpense{
		ID:     core.NewID(),
		Name:   in.Name,
		Amount: in.Amount,
		Source: in.Source,
		DueDay: in.DueDay,
	}
	if err := f.Validate(); err != nil {
		return s, err
	}
	c := s.Clone()
	c.Fixed = append(c.Fixed, f)
	c.Version++
	return c, nil
}

// EditFixed rewrites a bill's structure. The paid flag and the balances are
// deliberately left alone, even when the bill is currently marked paid: a
// paid bill is settled, and the edit only shapes future toggles.
func EditFixed(s core.LedgerState, id string, in FixedInput) (core.LedgerState, error) {
	idx := -1
	for i, f := range s.Fixed {
		if f.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return s, core.ErrNotFound
	}
	next := s.Fixed[idx]
	next.Name = in.Name
	next.Amount = in.Amount
	next.Source = in.Source
	next.DueDay = in.DueDay
	if err := next.Validate(); err != nil {
		return s, err
	}
	c := s.Clone()
	c.Fixed[idx] = next
	c.Version++
	return c, nil
}

// DeleteFixed removes the bill unconditionally, with no balance
// reconciliation regardless of its paid flag.
func DeleteFixed(s core.LedgerState, id string) (core.LedgerState, error) {
	idx := -1
	for i, f := range s.Fixed {
		if f.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return s, core.ErrNotFound
	}
	c := s.Clone()
	c.Fixed = append(c.Fixed[:idx], c.Fixed[idx+1:]...)
	c.Version++
	return c, nil
}

// ToggleFixed flips the paid flag. Unpaid to paid debits the bill's source;
// paid to unpaid credits it back. No transaction record is written.
func ToggleFixed(s core.LedgerState, id string) (core.LedgerState, error) {
	idx := -1
	for i, f := range s.Fixed {
		if f.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return s, core.ErrNotFound
	}
	c := s.Clone()
	f := c.Fixed[idx]
	if f.Paid {
		c.Balance = c.Balance.Add(f.Source, f.Amount.Cents)
	} else {
		c.Balance = c.Balance.Add(f.Source, -f.Amount.Cents)
	}
	c.Fixed[idx].Paid = !f.Paid
	c.Version++
	return c, nil
}

// ResetFixed clears every paid flag for the new cycle. It only resets the
// checkboxes: payments made last cycle stay paid for.
func ResetFixed(s core.LedgerState) core.LedgerState {
	c := s.Clone()
	for i := range c.Fixed {
		c.Fixed[i].Paid = false
	}
	c.Version++
	return c
}

// AddEnvelope creates an empty envelope.
func AddEnvelope(s core.LedgerState, in EnvelopeInput) (core.LedgerState, error) {
	e := core.Envelope{
		ID:          core.NewID(),
		Name:        in.Name,
		Description: in.Description,
		Target:      in.Target,
	}
	if err := e.Validate(); err != nil {
		return s, err
	}
	c := s.Clone()
	c.Envelopes = append(c.Envelopes, e)
	c.Version++
	return c, nil
}

// EditEnvelope overwrites the envelope, allocation included. Writing the
// allocation directly is an unreconciled correction for drift; normal
// funding goes through FundEnvelope.
func EditEnvelope(s core.LedgerState, id string, in EnvelopeEdit) (core.LedgerState, error) {
	idx := -1
	for i, e := range s.Envelopes {
		if e.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return s, core.ErrNotFound
	}
	next := core.Envelope{
		ID:          id,
		Name:        in.Name,
		Description: in.Description,
		Allocated:   in.Allocated,
		Target:      in.Target,
	}
	if err := next.Validate(); err != nil {
		return s, err
	}
	c := s.Clone()
	c.Envelopes[idx] = next
	c.Version++
	return c, nil
}

// DeleteEnvelope removes the envelope and refunds its allocation to bank,
// whatever pool it was funded from. The log entries survive as orphans and
// are displayed against a "removed" envelope.
func DeleteEnvelope(s core.LedgerState, id string) (core.LedgerState, error) {
	idx := -1
	for i, e := range s.Envelopes {
		if e.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return s, core.ErrNotFound
	}
	c := s.Clone()
	c.Balance = c.Balance.Add(core.SourceBank, c.Envelopes[idx].Allocated.Cents)
	c.Envelopes = append(c.Envelopes[:idx], c.Envelopes[idx+1:]...)
	c.Version++
	return c, nil
}

// FundEnvelope moves money from a balance pool into the envelope and logs it.
func FundEnvelope(s core.LedgerState, id string, amount core.Money, src core.MoneySource, now time.Time) (core.LedgerState, error) {
	if err := amount.Validate(); err != nil {
		return s, err
	}
	if !src.Valid() {
		return s, core.ErrInvalidSource
	}
	idx := -1
	for i, e := range s.Envelopes {
		if e.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return s, core.ErrNotFound
	}
	c := s.Clone()
	c.Balance = c.Balance.Add(src, -amount.Cents)
	c.Envelopes[idx].Allocated.Cents += amount.Cents
	c.EnvelopeLog = append(c.EnvelopeLog, core.EnvelopeEntry{
		ID:         core.NewID(),
		EnvelopeID: id,
		Type:       core.EntryIn,
		Amount:     amount,
		Date:       now.UTC(),
		Note:       "funding",
	})
	c.Version++
	return c, nil
}

// SpendFromEnvelope draws the amount down from the envelope and logs it.
// The balances are untouched: the money left them when it was funded. The
// allocation may go negative.
func SpendFromEnvelope(s core.LedgerState, id string, amount core.Money, note string, now time.Time) (core.LedgerState, error) {
	if err := amount.Validate(); err != nil {
		return s, err
	}
	idx := -1
	for i, e := range s.Envelopes {
		if e.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return s, core.ErrNotFound
	}
	c := s.Clone()
	c.Envelopes[idx].Allocated.Cents -= amount.Cents
	c.EnvelopeLog = append(c.EnvelopeLog, core.EnvelopeEntry{
		ID:         core.NewID(),
		EnvelopeID: id,
		Type:       core.EntryOut,
		Amount:     amount,
		Date:       now.UTC(),
		Note:       note,
	})
	c.Version++
	return c, nil
}

// AddCategory derives the id from the label and assigns a palette color.
// A colliding label produces a second category with the same id; the model
// tolerates duplicates rather than guessing which one the user meant.
func AddCategory(s core.LedgerState, label string) (core.LedgerState, error) {
	id := core.SlugID(label)
	if id == "" {
		return s, core.ErrEmptyName
	}
	c := s.Clone()
	c.Categories = append(c.Categories, core.Category{
		ID:    id,
		Label: label,
		Color: core.ColorFor(id),
	})
	c.Version++
	return c, nil
}

// UpdatePayday overwrites the cycle anchor. It does not trigger a rollover;
// the monitor evaluates the new boundary on its next check.
func UpdatePayday(s core.LedgerState, day int) (core.LedgerState, error) {
	if day < 1 || day > 28 {
		return s, core.ErrInvalidPayday
	}
	c := s.Clone()
	c.Settings.Payday = day
	c.Version++
	return c, nil
}
