package core

import (
	"errors"
	"strings"
	"time"
)

const (
	SourceBank MoneySource = "bank"
	SourceCash MoneySource = "cash"
)

const (
	EntryIn  EnvelopeEntryType = "in"
	EntryOut EnvelopeEntryType = "out"
)

type (
	// MoneySource selects which balance pool a transaction affects.
	MoneySource string

	// EnvelopeEntryType marks an envelope log entry as funding or spending.
	EnvelopeEntryType string

	Money struct {
		Cents int64 `json:"cents"`
	}

	// Balance holds the two money pools. It may go negative; overdraft is a
	// display concern, not a validation error.
	Balance struct {
		Bank Money `json:"bank"`
		Cash Money `json:"cash"`
	}

	// FixedExpense is a recurring bill gated by a paid flag per cycle.
	// Toggling the flag moves money; nothing else does.
	FixedExpense struct {
		ID     string      `json:"id"`
		Name   string      `json:"name"`
		Amount Money       `json:"amount"`
		Paid   bool        `json:"paid"`
		Source MoneySource `json:"source"`
		DueDay int         `json:"dueDay,omitempty"` // 1..31, 0 when unset
	}

	// Envelope is a named sub-allocation carved out of the balances.
	Envelope struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
		Allocated   Money  `json:"allocated"`
		Target      Money  `json:"target"`
	}

	// EnvelopeEntry is an append-only audit record of envelope funding and
	// spending. EnvelopeID is a weak reference: the envelope may since have
	// been deleted.
	EnvelopeEntry struct {
		ID         string            `json:"id"`
		EnvelopeID string            `json:"envelopeId"`
		Type       EnvelopeEntryType `json:"type"`
		Amount     Money             `json:"amount"`
		Date       time.Time         `json:"date"`
		Note       string            `json:"note,omitempty"`
	}

	ExpenseRecord struct {
		ID       string      `json:"id"`
		Amount   Money       `json:"amount"`
		Category string      `json:"category"`
		Date     time.Time   `json:"date"`
		Source   MoneySource `json:"source"`
		Note     string      `json:"note,omitempty"`
	}

	IncomeRecord struct {
		ID     string      `json:"id"`
		Amount Money       `json:"amount"`
		Date   time.Time   `json:"date"`
		Source MoneySource `json:"source"`
	}

	Category struct {
		ID    string `json:"id"`
		Label string `json:"label"`
		Color string `json:"color"`
	}

	// Settings govern the financial cycle. Payday is capped to 1..28 so every
	// month has the anchor day. LastReset records when the paid flags were
	// last cleared.
	Settings struct {
		Payday    int       `json:"payday"`
		LastReset time.Time `json:"lastReset"`
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidSource = errors.New("invalid money source")
	ErrInvalidPayday = errors.New("payday must be between 1 and 28")
	ErrEmptyName     = errors.New("empty name")
	ErrNotFound      = errors.New("not found")
	ErrCorruptLedger = errors.New("corrupt ledger document")
)

// Valid reports whether the source names a known balance pool.
func (s MoneySource) Valid() bool {
	return s == SourceBank || s == SourceCash
}

// Of returns the amount held in the given pool.
func (b Balance) Of(src MoneySource) Money {
	if src == SourceCash {
		return b.Cash
	}
	return b.Bank
}

// Add returns the balance with cents added to the given pool. Negative cents
// subtract.
func (b Balance) Add(src MoneySource, cents int64) Balance {
	if src == SourceCash {
		b.Cash.Cents += cents
	} else {
		b.Bank.Cents += cents
	}
	return b
}

// Total is the sum of both pools.
func (b Balance) Total() Money {
	return Money{Cents: b.Bank.Cents + b.Cash.Cents}
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// SlugID derives a category id from its label: lowercased, whitespace runs
// collapsed to single hyphens. Colliding labels produce colliding ids; the
// ledger tolerates duplicates rather than rejecting them.
func SlugID(label string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(label))), "-")
}

func (f FixedExpense) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return ErrEmptyName
	}
	if f.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	if !f.Source.Valid() {
		return ErrInvalidSource
	}
	if f.DueDay < 0 || f.DueDay > 31 {
		return errors.New("due day out of range")
	}
	return nil
}

func (e Envelope) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return ErrEmptyName
	}
	if e.Target.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}
