package ledger

import (
	"errors"
	"testing"
	"time"

	"cassa/internal/core"
)

var testNow = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

func seedState(t *testing.T, bank, cash int64) core.LedgerState {
	t.Helper()
	s := core.NewInitialState(testNow)
	s.Balance = core.Balance{Bank: core.Money{Cents: bank}, Cash: core.Money{Cents: cash}}
	return s
}

func cents(m int64) core.Money { return core.Money{Cents: m} }

func TestAddIncome(t *testing.T) {
	s := seedState(t, 0, 0)

	s2, err := AddIncome(s, IncomeInput{Amount: cents(150000), Source: core.SourceBank, Date: testNow})
	if err != nil {
		t.Fatalf("add income: %v", err)
	}
	if s2.Balance.Bank.Cents != 150000 {
		t.Fatalf("bank = %d, want 150000", s2.Balance.Bank.Cents)
	}
	if len(s2.Incomes) != 1 || s2.Incomes[0].Amount.Cents != 150000 {
		t.Fatalf("income record missing: %+v", s2.Incomes)
	}
	if s2.Version != s.Version+1 {
		t.Fatalf("version not bumped: %d -> %d", s.Version, s2.Version)
	}
	// Original state untouched.
	if s.Balance.Bank.Cents != 0 || len(s.Incomes) != 0 {
		t.Fatal("AddIncome mutated its input")
	}
}

func TestAddIncomeRejectsBadInput(t *testing.T) {
	s := seedState(t, 0, 0)
	if _, err := AddIncome(s, IncomeInput{Amount: cents(0), Source: core.SourceBank, Date: testNow}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := AddIncome(s, IncomeInput{Amount: cents(100), Source: "wallet", Date: testNow}); !errors.Is(err, core.ErrInvalidSource) {
		t.Fatalf("expected ErrInvalidSource, got %v", err)
	}
}

func TestEditIncomeReverseThenApply(t *testing.T) {
	s := seedState(t, 0, 0)
	s, _ = AddIncome(s, IncomeInput{Amount: cents(10000), Source: core.SourceBank, Date: testNow})
	id := s.Incomes[0].ID

	// Move the income to cash with a new amount: bank loses the old credit,
	// cash gains the new one.
	s2, err := EditIncome(s, id, IncomeInput{Amount: cents(12000), Source: core.SourceCash, Date: testNow})
	if err != nil {
		t.Fatalf("edit income: %v", err)
	}
	if s2.Balance.Bank.Cents != 0 {
		t.Fatalf("bank = %d, want 0 after reversal", s2.Balance.Bank.Cents)
	}
	if s2.Balance.Cash.Cents != 12000 {
		t.Fatalf("cash = %d, want 12000", s2.Balance.Cash.Cents)
	}
	if s2.Incomes[0].Source != core.SourceCash || s2.Incomes[0].Amount.Cents != 12000 {
		t.Fatalf("record not rewritten: %+v", s2.Incomes[0])
	}
}

func TestEditIncomeIdenticalValuesIsIdentity(t *testing.T) {
	s := seedState(t, 0, 0)
	s, _ = AddIncome(s, IncomeInput{Amount: cents(5000), Source: core.SourceBank, Date: testNow})
	id := s.Incomes[0].ID

	s2, err := EditIncome(s, id, IncomeInput{Amount: cents(5000), Source: core.SourceBank, Date: testNow})
	if err != nil {
		t.Fatalf("edit income: %v", err)
	}
	if s2.Balance != s.Balance {
		t.Fatalf("identical edit moved money: %+v vs %+v", s2.Balance, s.Balance)
	}
}

func TestDeleteIncome(t *testing.T) {
	s := seedState(t, 0, 0)
	s, _ = AddIncome(s, IncomeInput{Amount: cents(7000), Source: core.SourceCash, Date: testNow})
	id := s.Incomes[0].ID

	s2, err := DeleteIncome(s, id)
	if err != nil {
		t.Fatalf("delete income: %v", err)
	}
	if s2.Balance.Cash.Cents != 0 || len(s2.Incomes) != 0 {
		t.Fatalf("delete did not reverse: %+v", s2)
	}
}

func TestExpenseScenario(t *testing.T) {
	// bank 100 -> add 30 -> 70 -> edit to 50 -> 50 -> delete -> 100.
	s := seedState(t, 10000, 0)

	s, err := AddExpense(s, ExpenseInput{Amount: cents(3000), Category: "food", Source: core.SourceBank, Date: testNow})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if s.Balance.Bank.Cents != 7000 {
		t.Fatalf("after add bank = %d, want 7000", s.Balance.Bank.Cents)
	}
	id := s.Expenses[0].ID

	s, err = EditExpense(s, id, ExpenseInput{Amount: cents(5000), Category: "food", Source: core.SourceBank, Date: testNow})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if s.Balance.Bank.Cents != 5000 {
		t.Fatalf("after edit bank = %d, want 5000", s.Balance.Bank.Cents)
	}

	s, err = DeleteExpense(s, id)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if s.Balance.Bank.Cents != 10000 {
		t.Fatalf("after delete bank = %d, want 10000", s.Balance.Bank.Cents)
	}
	if len(s.Expenses) != 0 {
		t.Fatalf("expense record survived delete")
	}
}

func TestExpenseEditAcrossSources(t *testing.T) {
	s := seedState(t, 10000, 10000)
	s, _ = AddExpense(s, ExpenseInput{Amount: cents(2500), Category: "fun", Source: core.SourceBank, Date: testNow})
	id := s.Expenses[0].ID

	s2, err := EditExpense(s, id, ExpenseInput{Amount: cents(4000), Category: "fun", Source: core.SourceCash, Date: testNow})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if s2.Balance.Bank.Cents != 10000 {
		t.Fatalf("bank not refunded: %d", s2.Balance.Bank.Cents)
	}
	if s2.Balance.Cash.Cents != 6000 {
		t.Fatalf("cash = %d, want 6000", s2.Balance.Cash.Cents)
	}
}

func TestBalanceConservationOverAddDeletePairs(t *testing.T) {
	s := seedState(t, 31337, 4242)
	start := s.Balance

	for i := 0; i < 10; i++ {
		src := core.SourceBank
		if i%2 == 1 {
			src = core.SourceCash
		}
		var err error
		s, err = AddExpense(s, ExpenseInput{Amount: cents(int64(100 * (i + 1))), Category: "other", Source: src, Date: testNow})
		if err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
		s, err = DeleteExpense(s, s.Expenses[0].ID)
		if err != nil {
			t.Fatalf("delete %d: %v", i, err)
		}
	}
	if s.Balance != start {
		t.Fatalf("balance drifted: %+v -> %+v", start, s.Balance)
	}
}

func TestMutationsOnUnknownIDAreNoOps(t *testing.T) {
	s := seedState(t, 5000, 5000)
	in := ExpenseInput{Amount: cents(100), Category: "x", Source: core.SourceBank, Date: testNow}

	for name, op := range map[string]func() (core.LedgerState, error){
		"editExpense":   func() (core.LedgerState, error) { return EditExpense(s, "ghost", in) },
		"deleteExpense": func() (core.LedgerState, error) { return DeleteExpense(s, "ghost") },
		"editIncome": func() (core.LedgerState, error) {
			return EditIncome(s, "ghost", IncomeInput{Amount: cents(100), Source: core.SourceBank, Date: testNow})
		},
		"deleteIncome": func() (core.LedgerState, error) { return DeleteIncome(s, "ghost") },
		"toggleFixed":  func() (core.LedgerState, error) { return ToggleFixed(s, "ghost") },
		"deleteFixed":  func() (core.LedgerState, error) { return DeleteFixed(s, "ghost") },
		"fundEnvelope": func() (core.LedgerState, error) {
			return FundEnvelope(s, "ghost", cents(100), core.SourceBank, testNow)
		},
		"spendEnvelope": func() (core.LedgerState, error) {
			return SpendFromEnvelope(s, "ghost", cents(100), "", testNow)
		},
		"deleteEnvelope": func() (core.LedgerState, error) { return DeleteEnvelope(s, "ghost") },
	} {
		t.Run(name, func(t *testing.T) {
			got, err := op()
			if !errors.Is(err, core.ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			if got.Version != s.Version || got.Balance != s.Balance {
				t.Fatalf("state changed on unknown id")
			}
		})
	}
}

func TestToggleFixedMovesMoneyBothWays(t *testing.T) {
	s := seedState(t, 100000, 0)
	s, err := AddFixed(s, FixedInput{Name: "Gym", Amount: cents(3500), Source: core.SourceBank, DueDay: 5})
	if err != nil {
		t.Fatalf("add fixed: %v", err)
	}
	id := s.Fixed[len(s.Fixed)-1].ID

	s, err = ToggleFixed(s, id)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if s.Balance.Bank.Cents != 96500 {
		t.Fatalf("pay: bank = %d, want 96500", s.Balance.Bank.Cents)
	}

	s, err = ToggleFixed(s, id)
	if err != nil {
		t.Fatalf("untoggle: %v", err)
	}
	if s.Balance.Bank.Cents != 100000 {
		t.Fatalf("unpay: bank = %d, want 100000", s.Balance.Bank.Cents)
	}
	// No transaction records for fixed bills.
	if len(s.Expenses) != 0 || len(s.EnvelopeLog) != 0 {
		t.Fatal("toggling a bill must not write transaction records")
	}
}

func TestEditPaidFixedDoesNotReconcile(t *testing.T) {
	s := seedState(t, 50000, 0)
	s, _ = AddFixed(s, FixedInput{Name: "Rent", Amount: cents(10000), Source: core.SourceBank})
	id := s.Fixed[len(s.Fixed)-1].ID
	s, _ = ToggleFixed(s, id)
	if s.Balance.Bank.Cents != 40000 {
		t.Fatalf("setup: bank = %d", s.Balance.Bank.Cents)
	}

	// Structural edit of a settled bill: the balance must not move.
	s2, err := EditFixed(s, id, FixedInput{Name: "Rent", Amount: cents(99999), Source: core.SourceCash})
	if err != nil {
		t.Fatalf("edit fixed: %v", err)
	}
	if s2.Balance != s.Balance {
		t.Fatalf("editing a paid bill moved money: %+v", s2.Balance)
	}
	// Deleting settled bills is also structural only.
	s3, err := DeleteFixed(s2, id)
	if err != nil {
		t.Fatalf("delete fixed: %v", err)
	}
	if s3.Balance != s.Balance {
		t.Fatalf("deleting a paid bill moved money: %+v", s3.Balance)
	}
}

func TestResetFixedClearsFlagsOnly(t *testing.T) {
	s := seedState(t, 20000, 0)
	s.Fixed[0].Amount = cents(5000)
	s, _ = ToggleFixed(s, s.Fixed[0].ID)
	paidBalance := s.Balance

	s2 := ResetFixed(s)
	for _, f := range s2.Fixed {
		if f.Paid {
			t.Fatalf("bill still paid after reset: %+v", f)
		}
	}
	if s2.Balance != paidBalance {
		t.Fatalf("reset moved money: %+v vs %+v", s2.Balance, paidBalance)
	}
}

func TestEnvelopeFundSpendDelete(t *testing.T) {
	// fund 40 from bank 100 -> bank 60, allocated 40;
	// spend 15 -> allocated 25, bank untouched; delete -> refund to bank.
	s := seedState(t, 10000, 0)
	s, err := AddEnvelope(s, EnvelopeInput{Name: "Gifts", Target: cents(20000)})
	if err != nil {
		t.Fatalf("add envelope: %v", err)
	}
	id := s.Envelopes[0].ID

	s, err = FundEnvelope(s, id, cents(4000), core.SourceBank, testNow)
	if err != nil {
		t.Fatalf("fund: %v", err)
	}
	if s.Balance.Bank.Cents != 6000 {
		t.Fatalf("after fund bank = %d, want 6000", s.Balance.Bank.Cents)
	}
	if s.Envelopes[0].Allocated.Cents != 4000 {
		t.Fatalf("allocated = %d, want 4000", s.Envelopes[0].Allocated.Cents)
	}

	s, err = SpendFromEnvelope(s, id, cents(1500), "gift", testNow)
	if err != nil {
		t.Fatalf("spend: %v", err)
	}
	if s.Envelopes[0].Allocated.Cents != 2500 {
		t.Fatalf("allocated = %d, want 2500", s.Envelopes[0].Allocated.Cents)
	}
	if s.Balance.Bank.Cents != 6000 {
		t.Fatalf("spend touched the balance: %d", s.Balance.Bank.Cents)
	}

	// Audit log: funding then spending, append order.
	if len(s.EnvelopeLog) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(s.EnvelopeLog))
	}
	if s.EnvelopeLog[0].Type != core.EntryIn || s.EnvelopeLog[0].Note != "funding" {
		t.Fatalf("first entry should be funding: %+v", s.EnvelopeLog[0])
	}
	if s.EnvelopeLog[1].Type != core.EntryOut || s.EnvelopeLog[1].Note != "gift" {
		t.Fatalf("second entry should be the spend: %+v", s.EnvelopeLog[1])
	}

	s, err = DeleteEnvelope(s, id)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if s.Balance.Bank.Cents != 8500 {
		t.Fatalf("refund: bank = %d, want 8500", s.Balance.Bank.Cents)
	}
	// Log entries survive as orphans.
	if len(s.EnvelopeLog) != 2 {
		t.Fatalf("delete erased the audit log")
	}
}

func TestDeleteEnvelopeRefundsToBankEvenWhenFundedFromCash(t *testing.T) {
	s := seedState(t, 0, 10000)
	s, _ = AddEnvelope(s, EnvelopeInput{Name: "Rainy day"})
	id := s.Envelopes[0].ID
	s, _ = FundEnvelope(s, id, cents(3000), core.SourceCash, testNow)
	if s.Balance.Cash.Cents != 7000 {
		t.Fatalf("setup: cash = %d", s.Balance.Cash.Cents)
	}

	s, err := DeleteEnvelope(s, id)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	// Fixed policy: refunds always land in bank.
	if s.Balance.Bank.Cents != 3000 || s.Balance.Cash.Cents != 7000 {
		t.Fatalf("refund went to the wrong pool: %+v", s.Balance)
	}
}

func TestFundThenDeleteRestoresBank(t *testing.T) {
	s := seedState(t, 12345, 0)
	s, _ = AddEnvelope(s, EnvelopeInput{Name: "Car"})
	id := s.Envelopes[0].ID
	s, _ = FundEnvelope(s, id, cents(4000), core.SourceBank, testNow)
	s, _ = DeleteEnvelope(s, id)
	if s.Balance.Bank.Cents != 12345 {
		t.Fatalf("fund+delete must restore bank, got %d", s.Balance.Bank.Cents)
	}
}

func TestSpendCanOverdrawEnvelope(t *testing.T) {
	s := seedState(t, 10000, 0)
	s, _ = AddEnvelope(s, EnvelopeInput{Name: "Snacks"})
	id := s.Envelopes[0].ID
	s, _ = FundEnvelope(s, id, cents(500), core.SourceBank, testNow)

	s, err := SpendFromEnvelope(s, id, cents(800), "overshoot", testNow)
	if err != nil {
		t.Fatalf("spend: %v", err)
	}
	if s.Envelopes[0].Allocated.Cents != -300 {
		t.Fatalf("expected negative allocation, got %d", s.Envelopes[0].Allocated.Cents)
	}
}

func TestEditEnvelopeIsUnreconciled(t *testing.T) {
	s := seedState(t, 10000, 0)
	s, _ = AddEnvelope(s, EnvelopeInput{Name: "Bikes"})
	id := s.Envelopes[0].ID

	s2, err := EditEnvelope(s, id, EnvelopeEdit{Name: "Bikes", Allocated: cents(7777), Target: cents(50000)})
	if err != nil {
		t.Fatalf("edit envelope: %v", err)
	}
	if s2.Envelopes[0].Allocated.Cents != 7777 {
		t.Fatalf("allocation not overwritten: %d", s2.Envelopes[0].Allocated.Cents)
	}
	if s2.Balance != s.Balance {
		t.Fatal("manual correction must not touch the balances")
	}
	if len(s2.EnvelopeLog) != 0 {
		t.Fatal("manual correction must not write log entries")
	}
}

func TestAddCategory(t *testing.T) {
	s := seedState(t, 0, 0)
	before := len(s.Categories)

	s, err := AddCategory(s, "Eating Out")
	if err != nil {
		t.Fatalf("add category: %v", err)
	}
	got := s.Categories[len(s.Categories)-1]
	if got.ID != "eating-out" || got.Label != "Eating Out" {
		t.Fatalf("unexpected category: %+v", got)
	}
	if got.Color == "" {
		t.Fatal("category missing color")
	}

	// Duplicate labels are tolerated, not rejected or deduplicated.
	s, err = AddCategory(s, "Eating Out")
	if err != nil {
		t.Fatalf("duplicate add: %v", err)
	}
	if len(s.Categories) != before+2 {
		t.Fatalf("expected duplicate to be kept, have %d categories", len(s.Categories))
	}

	if _, err := AddCategory(s, "   "); !errors.Is(err, core.ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName for blank label, got %v", err)
	}
}

func TestUpdatePayday(t *testing.T) {
	s := seedState(t, 0, 0)
	lastReset := s.Settings.LastReset

	s2, err := UpdatePayday(s, 15)
	if err != nil {
		t.Fatalf("update payday: %v", err)
	}
	if s2.Settings.Payday != 15 {
		t.Fatalf("payday = %d, want 15", s2.Settings.Payday)
	}
	// Changing payday never resets by itself.
	if !s2.Settings.LastReset.Equal(lastReset) {
		t.Fatal("payday change must not advance the reset marker")
	}
	for _, day := range []int{0, 29, 31, -1} {
		if _, err := UpdatePayday(s, day); !errors.Is(err, core.ErrInvalidPayday) {
			t.Fatalf("day %d: expected ErrInvalidPayday, got %v", day, err)
		}
	}
}
