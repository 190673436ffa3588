package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cassa/internal/services"
	"cassa/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	cache, err := storage.NewSnapshotCache(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open snapshot cache: %v", err)
	}
	t.Cleanup(func() { _ = cache.Close() })

	svc := services.NewLedgerService(cache, "test", services.Options{})
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("load ledger: %v", err)
	}

	return NewServer(":0", svc)
}

func postForm(srv *Server, path, form string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestIndexAndHealth(t *testing.T) {
	srv := newTestServer(t)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d", rr.Code)
	}

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		srv.Handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestCreateExpenseValidationAndSuccess(t *testing.T) {
	srv := newTestServer(t)

	// Wrong method
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/expenses", nil)
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}

	// Invalid amount
	rr = postForm(srv, "/expenses", "amount=abc&category=spesa&source=bank")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}

	// Invalid source
	rr = postForm(srv, "/expenses", "amount=12,50&category=spesa&source=crypto")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}

	// Success
	rr = postForm(srv, "/expenses", "amount=12,50&category=spesa&source=bank&note=mercato")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	trigger := rr.Header().Get("HX-Trigger")
	if !strings.Contains(trigger, "ledger:changed") {
		t.Fatalf("missing ledger:changed trigger: %s", trigger)
	}

	state := srv.svc.State()
	if len(state.Expenses) != 1 {
		t.Fatalf("expected 1 expense, got %d", len(state.Expenses))
	}
	if state.Balance.Bank.Cents != -1250 {
		t.Fatalf("bank balance = %d, want -1250", state.Balance.Bank.Cents)
	}
}

func TestDeleteExpense(t *testing.T) {
	srv := newTestServer(t)

	rr := postForm(srv, "/expenses", "amount=5,00&category=bar&source=cash")
	if rr.Code != http.StatusOK {
		t.Fatalf("create status=%d", rr.Code)
	}
	id := srv.svc.State().Expenses[0].ID

	// Unknown id
	rr = postForm(srv, "/expenses/delete", "id=nope")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}

	// JSON body over DELETE, the way HTMX sends it
	req := httptest.NewRequest(http.MethodDelete, "/expenses/delete", strings.NewReader(`{"id":"`+id+`"}`))
	req.Header.Set("Content-Type", "application/json")
	rr2 := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr2, req)
	if rr2.Code != http.StatusOK {
		t.Fatalf("delete status=%d: %s", rr2.Code, rr2.Body.String())
	}

	state := srv.svc.State()
	if len(state.Expenses) != 0 {
		t.Fatalf("expected 0 expenses, got %d", len(state.Expenses))
	}
	if state.Balance.Cash.Cents != 0 {
		t.Fatalf("cash balance = %d, want 0 after delete", state.Balance.Cash.Cents)
	}
}

func TestIncomeRoundTrip(t *testing.T) {
	srv := newTestServer(t)

	rr := postForm(srv, "/incomes", "amount=1500,00&source=bank")
	if rr.Code != http.StatusOK {
		t.Fatalf("create income status=%d", rr.Code)
	}
	state := srv.svc.State()
	if state.Balance.Bank.Cents != 150000 {
		t.Fatalf("bank = %d, want 150000", state.Balance.Bank.Cents)
	}

	id := state.Incomes[0].ID
	rr = postForm(srv, "/incomes/edit", "id="+id+"&amount=1600,00&source=bank")
	if rr.Code != http.StatusOK {
		t.Fatalf("edit income status=%d: %s", rr.Code, rr.Body.String())
	}
	if got := srv.svc.State().Balance.Bank.Cents; got != 160000 {
		t.Fatalf("bank after edit = %d, want 160000", got)
	}
}

func TestFixedToggleFlow(t *testing.T) {
	srv := newTestServer(t)

	rr := postForm(srv, "/fixed", "name=Affitto&amount=800,00&source=bank&due_day=5")
	if rr.Code != http.StatusOK {
		t.Fatalf("create fixed status=%d: %s", rr.Code, rr.Body.String())
	}
	fixed := srv.svc.State().Fixed
	id := fixed[len(fixed)-1].ID

	rr = postForm(srv, "/fixed/toggle", "id="+id)
	if rr.Code != http.StatusOK {
		t.Fatalf("toggle status=%d", rr.Code)
	}
	state := srv.svc.State()
	if !state.Fixed[len(state.Fixed)-1].Paid {
		t.Fatal("expected bill marked paid")
	}
	if state.Balance.Bank.Cents != -80000 {
		t.Fatalf("bank = %d, want -80000 after payment", state.Balance.Bank.Cents)
	}

	// Toggling back restores the balance
	rr = postForm(srv, "/fixed/toggle", "id="+id)
	if rr.Code != http.StatusOK {
		t.Fatalf("untoggle status=%d", rr.Code)
	}
	state = srv.svc.State()
	if state.Fixed[len(state.Fixed)-1].Paid {
		t.Fatal("expected bill marked unpaid")
	}
	if state.Balance.Bank.Cents != 0 {
		t.Fatalf("bank = %d, want 0 after untoggle", state.Balance.Bank.Cents)
	}

	// Reset clears flags without moving money
	postForm(srv, "/fixed/toggle", "id="+id)
	rr = postForm(srv, "/fixed/reset", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("reset status=%d", rr.Code)
	}
	state = srv.svc.State()
	if state.Fixed[len(state.Fixed)-1].Paid {
		t.Fatal("expected paid flag cleared by reset")
	}
	if state.Balance.Bank.Cents != -80000 {
		t.Fatalf("bank = %d, want -80000 preserved across reset", state.Balance.Bank.Cents)
	}
}

func TestEnvelopeFundAndSpend(t *testing.T) {
	srv := newTestServer(t)

	rr := postForm(srv, "/envelopes", "name=Vacanze&target=500,00")
	if rr.Code != http.StatusOK {
		t.Fatalf("create envelope status=%d: %s", rr.Code, rr.Body.String())
	}
	id := srv.svc.State().Envelopes[0].ID

	rr = postForm(srv, "/envelopes/fund", "id="+id+"&amount=100,00&source=bank")
	if rr.Code != http.StatusOK {
		t.Fatalf("fund status=%d: %s", rr.Code, rr.Body.String())
	}
	state := srv.svc.State()
	if state.Envelopes[0].Allocated.Cents != 10000 {
		t.Fatalf("allocated = %d, want 10000", state.Envelopes[0].Allocated.Cents)
	}
	if len(state.EnvelopeLog) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(state.EnvelopeLog))
	}

	rr = postForm(srv, "/envelopes/spend", "id="+id+"&amount=30,00&note=treno")
	if rr.Code != http.StatusOK {
		t.Fatalf("spend status=%d: %s", rr.Code, rr.Body.String())
	}
	state = srv.svc.State()
	if state.Envelopes[0].Allocated.Cents != 7000 {
		t.Fatalf("allocated = %d, want 7000", state.Envelopes[0].Allocated.Cents)
	}
	if len(state.EnvelopeLog) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(state.EnvelopeLog))
	}
}

func TestEnvelopeLogPartial(t *testing.T) {
	srv := newTestServer(t)

	rr := postForm(srv, "/envelopes", "name=Vacanze&target=500,00")
	if rr.Code != http.StatusOK {
		t.Fatalf("create envelope status=%d: %s", rr.Code, rr.Body.String())
	}
	id := srv.svc.State().Envelopes[0].ID
	postForm(srv, "/envelopes/fund", "id="+id+"&amount=100,00&source=bank")
	postForm(srv, "/envelopes/spend", "id="+id+"&amount=30,00&note=treno")

	get := func() string {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ui/envelope-log", nil)
		srv.Handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("envelope log status=%d", rr.Code)
		}
		return rr.Body.String()
	}

	body := get()
	if !strings.Contains(body, "Vacanze") {
		t.Fatalf("missing envelope name in log: %s", body)
	}
	// Newest first: the spend entry renders before the funding one.
	spendAt := strings.Index(body, "treno")
	fundAt := strings.Index(body, "funding")
	if spendAt < 0 || fundAt < 0 {
		t.Fatalf("missing log entries: %s", body)
	}
	if spendAt > fundAt {
		t.Fatal("log entries not in most-recent-first order")
	}

	// Entries survive envelope deletion and resolve to a removed label.
	req := httptest.NewRequest(http.MethodDelete, "/envelopes/delete", strings.NewReader(`{"id":"`+id+`"}`))
	req.Header.Set("Content-Type", "application/json")
	rr2 := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr2, req)
	if rr2.Code != http.StatusOK {
		t.Fatalf("delete envelope status=%d: %s", rr2.Code, rr2.Body.String())
	}

	body = get()
	if !strings.Contains(body, "Busta rimossa") {
		t.Fatalf("deleted envelope not shown as removed: %s", body)
	}
	if strings.Contains(body, "Vacanze") {
		t.Fatalf("deleted envelope name still rendered: %s", body)
	}
}

func TestUpdatePaydayValidation(t *testing.T) {
	srv := newTestServer(t)

	rr := postForm(srv, "/settings/payday", "payday=31")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for day 31, got %d", rr.Code)
	}

	rr = postForm(srv, "/settings/payday", "payday=10")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if got := srv.svc.State().Settings.Payday; got != 10 {
		t.Fatalf("payday = %d, want 10", got)
	}
}

func TestOverviewAndTrendPartials(t *testing.T) {
	srv := newTestServer(t)

	postForm(srv, "/incomes", "amount=1000,00&source=bank")
	postForm(srv, "/expenses", "amount=200,00&category=spesa&source=bank")

	for _, path := range []string{"/ui/overview", "/ui/trend"} {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		srv.Handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
		if rr.Body.Len() == 0 {
			t.Fatalf("%s empty body", path)
		}
	}
}

func TestTrendFollowsCycleBoundary(t *testing.T) {
	srv := newTestServer(t)
	srv.now = func() time.Time { return time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC) }

	get := func() string {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ui/trend", nil)
		srv.Handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("trend status=%d", rr.Code)
		}
		return rr.Body.String()
	}

	january := get()
	if strings.Contains(january, "01/02") {
		t.Fatalf("January trend already shows the February cycle: %s", january)
	}

	// A month later with no mutation in between the state version is the
	// same, but the window of cycles has moved.
	srv.now = func() time.Time { return time.Date(2024, 2, 15, 12, 0, 0, 0, time.UTC) }
	february := get()
	if !strings.Contains(february, "01/02") {
		t.Fatalf("trend still pinned to the old cycle window: %s", february)
	}
}

func TestReportCacheInvalidation(t *testing.T) {
	srv := newTestServer(t)

	get := func(path string) string {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		srv.Handler.ServeHTTP(rr, req)
		return rr.Body.String()
	}

	before := get("/ui/overview")
	if srv.summaryCache.Size() != 1 {
		t.Fatalf("summary cache size = %d, want 1", srv.summaryCache.Size())
	}

	rr := postForm(srv, "/expenses", "amount=50,00&category=bar&source=cash")
	if rr.Code != http.StatusOK {
		t.Fatalf("create status=%d", rr.Code)
	}
	if srv.summaryCache.Size() != 0 {
		t.Fatalf("summary cache size = %d after mutation, want 0", srv.summaryCache.Size())
	}

	after := get("/ui/overview")
	if before == after {
		t.Fatal("overview did not change after mutation")
	}
}

func TestShutdownIdempotent(t *testing.T) {
	srv := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && err != http.ErrServerClosed {
		t.Fatalf("first shutdown: %v", err)
	}
	if err := srv.Shutdown(ctx); err != nil && err != http.ErrServerClosed {
		t.Fatalf("second shutdown: %v", err)
	}
}
