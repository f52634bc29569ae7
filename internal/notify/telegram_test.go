package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"velocity/monitor-service/internal/model"
)

// ── Message formatting ─────────────────────────────────────────────────────

func TestFormatAlert(t *testing.T) {
	msg := FormatAlert(model.JobPosting{
		Source: "Adzuna", Title: "Backend Engineer", Company: "Acme",
		Location: "Remote", URL: "https://example.com/42",
		Salary: "90000-120000", WorkModel: "Remote",
	})

	for _, want := range []string{
		"<b>Role:</b> Backend Engineer",
		"<b>Company:</b> Acme",
		"<b>Location:</b> Remote",
		"<b>Salary:</b> 90000-120000",
		"<b>Work Model:</b> Remote",
		"<b>Source:</b> Adzuna",
		"https://example.com/42",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestFormatAlert_OmitsEmptyOptionalFields(t *testing.T) {
	msg := FormatAlert(model.JobPosting{Source: "X", Title: "Dev", Company: "Acme", Location: "Remote"})
	if strings.Contains(msg, "Salary") || strings.Contains(msg, "Work Model") {
		t.Errorf("optional lines should be omitted when empty:\n%s", msg)
	}
}

// ── Delivery ───────────────────────────────────────────────────────────────

func TestTelegramSend(t *testing.T) {
	var gotPath string
	var gotPayload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotPayload)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tg := NewTelegram("TOKEN", "CHAT", zap.NewNop().Sugar())
	tg.baseURL = srv.URL

	err := tg.Send(model.JobPosting{Source: "X", Title: "Dev", Company: "Acme", Location: "Remote"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotPath != "/botTOKEN/sendMessage" {
		t.Errorf("path = %q", gotPath)
	}
	if gotPayload["chat_id"] != "CHAT" || gotPayload["parse_mode"] != "HTML" {
		t.Errorf("payload = %v", gotPayload)
	}
}

func TestTelegramSend_NonOKStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	tg := NewTelegram("TOKEN", "CHAT", zap.NewNop().Sugar())
	tg.baseURL = srv.URL

	if err := tg.Send(model.JobPosting{Title: "Dev"}); err == nil {
		t.Error("non-200 response should surface an error")
	}
}

func TestTelegramSend_MissingCredentialsIsNoOp(t *testing.T) {
	tg := NewTelegram("", "", zap.NewNop().Sugar())
	if err := tg.Send(model.JobPosting{Title: "Dev"}); err != nil {
		t.Errorf("credential-less send should be a silent no-op, got %v", err)
	}
}
