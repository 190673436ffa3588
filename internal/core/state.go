package core

import (
	"hash/fnv"
	"time"

	"github.com/google/uuid"
)

// LedgerState is the aggregate root: the single unit of persistence and the
// sole input and output of every mutation. It is treated as an immutable
// value; mutations clone, change, and bump Version.
type LedgerState struct {
	Balance     Balance         `json:"balance"`
	Fixed       []FixedExpense  `json:"fixed"`
	Envelopes   []Envelope      `json:"envelopes"`
	EnvelopeLog []EnvelopeEntry `json:"envelopeLog"`
	Expenses    []ExpenseRecord `json:"expenses"`
	Incomes     []IncomeRecord  `json:"incomes"`
	Categories  []Category      `json:"categories"`
	Settings    Settings        `json:"settings"`

	// Version increments on every applied mutation. Derived views are
	// memoized against it.
	Version int64 `json:"version"`
}

// Palette is the fixed set of category colors. Assignment is a deterministic
// hash of the category id so the same label always renders the same color.
var Palette = []string{
	"#e76f51", "#f4a261", "#e9c46a", "#2a9d8f", "#264653",
	"#9b5de5", "#f15bb5", "#00bbf9", "#00f5d4", "#8ac926",
}

// ColorFor picks a palette color for a category id.
func ColorFor(id string) string {
	h := fnv.New32a()
	h.Write([]byte(id))
	return Palette[int(h.Sum32()%uint32(len(Palette)))]
}

// NewID returns a fresh opaque entity id.
func NewID() string {
	return uuid.NewString()
}

func defaultCategories() []Category {
	labels := []string{"Food", "Transport", "Home", "Health", "Fun", "Other"}
	cats := make([]Category, 0, len(labels))
	for _, l := range labels {
		id := SlugID(l)
		cats = append(cats, Category{ID: id, Label: l, Color: ColorFor(id)})
	}
	return cats
}

func defaultFixed() []FixedExpense {
	names := []string{"Rent", "Power", "Internet", "Phone"}
	fixed := make([]FixedExpense, 0, len(names))
	for _, n := range names {
		fixed = append(fixed, FixedExpense{
			ID:     NewID(),
			Name:   n,
			Source: SourceBank,
		})
	}
	return fixed
}

// NewInitialState builds the state a fresh ledger starts from: zero balances,
// the four conventional zero-amount bills, the default category set, payday
// on the 1st and LastReset at now.
func NewInitialState(now time.Time) LedgerState {
	return LedgerState{
		Fixed:      defaultFixed(),
		Categories: defaultCategories(),
		Settings:   Settings{Payday: 1, LastReset: now.UTC()},
		Version:    1,
	}
}

// Clone deep-copies the state so a mutation never aliases the slices of the
// state it was derived from.
func (s LedgerState) Clone() LedgerState {
	c := s
	c.Fixed = append([]FixedExpense(nil), s.Fixed...)
	c.Envelopes = append([]Envelope(nil), s.Envelopes...)
	c.EnvelopeLog = append([]EnvelopeEntry(nil), s.EnvelopeLog...)
	c.Expenses = append([]ExpenseRecord(nil), s.Expenses...)
	c.Incomes = append([]IncomeRecord(nil), s.Incomes...)
	c.Categories = append([]Category(nil), s.Categories...)
	return c
}

// Normalize backfills pieces a loaded document may lack so the engine never
// operates on partially-shaped state. Documents written by older revisions
// of the app are missing settings, categories or the income log entirely.
func (s LedgerState) Normalize(now time.Time) LedgerState {
	c := s.Clone()
	if c.Settings.Payday < 1 || c.Settings.Payday > 28 {
		c.Settings.Payday = 1
	}
	if c.Settings.LastReset.IsZero() {
		c.Settings.LastReset = now.UTC()
	}
	if len(c.Categories) == 0 {
		c.Categories = defaultCategories()
	}
	if c.Incomes == nil {
		c.Incomes = []IncomeRecord{}
	}
	if c.Version < 1 {
		c.Version = 1
	}
	return c
}

// Envelope returns the envelope with the given id, if present.
func (s LedgerState) Envelope(id string) (Envelope, bool) {
	for _, e := range s.Envelopes {
		if e.ID == id {
			return e, true
		}
	}
	return Envelope{}, false
}

// CategoryLabel resolves a category id for display. Unknown ids (a deleted
// or legacy category) resolve to the id itself.
func (s LedgerState) CategoryLabel(id string) string {
	for _, c := range s.Categories {
		if c.ID == id {
			return c.Label
		}
	}
	return id
}
