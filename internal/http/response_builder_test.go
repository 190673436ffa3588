package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTMXResponseBuilderTriggers(t *testing.T) {
	w := httptest.NewRecorder()
	NewHTMXResponse().
		TriggerLedgerChanged(7).
		TriggerFormReset().
		TriggerSuccessNotification("fatto").
		Write(w)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	trigger := w.Header().Get("HX-Trigger")
	for _, want := range []string{`"ledger:changed":{"version":7}`, `"form:reset"`, `"show-notification"`, `"fatto"`} {
		if !strings.Contains(trigger, want) {
			t.Fatalf("HX-Trigger missing %s: %s", want, trigger)
		}
	}
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name    string
		builder *HTMXResponseBuilder
		status  int
	}{
		{"bad request", BadRequestError("Invalid input"), http.StatusBadRequest},
		{"unprocessable", UnprocessableEntityError("Validation failed"), http.StatusUnprocessableEntity},
		{"not found", NotFoundError("Missing"), http.StatusNotFound},
		{"internal", InternalServerError("Boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d", w.Code, tt.status)
			}
			if !strings.Contains(w.Body.String(), `class="error"`) {
				t.Fatalf("body missing error div: %s", w.Body.String())
			}
		})
	}
}

func TestErrorResponseEscapesHTML(t *testing.T) {
	w := httptest.NewRecorder()
	BadRequestError("<script>alert('xss')</script>").Write(w)

	body := w.Body.String()
	if strings.Contains(body, "<script>") {
		t.Fatalf("unescaped script tag in %s", body)
	}
	if !strings.Contains(body, "&lt;script&gt;") {
		t.Fatalf("expected escaped markup in %s", body)
	}
}

func TestMethodNotAllowedSetsAllowHeader(t *testing.T) {
	w := httptest.NewRecorder()
	MethodNotAllowedError("POST").Write(w)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", w.Code)
	}
	if got := w.Header().Get("Allow"); got != "POST" {
		t.Fatalf("Allow = %q", got)
	}
}
