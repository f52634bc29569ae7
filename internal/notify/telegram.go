// Package notify delivers new-posting alerts to external channels. Every
// channel is best-effort: a delivery failure is reported to the caller for
// logging and never blocks the pipeline or subsequent postings.
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"velocity/monitor-service/internal/model"
)

const telegramTimeout = 5 * time.Second

// Telegram pushes a formatted alert through the Bot API. With empty
// credentials every send is a logged no-op, so the pipeline runs unchanged
// in deployments without a bot.
type Telegram struct {
	BotToken string
	ChatID   string

	baseURL string
	client  *http.Client
	log     *zap.SugaredLogger
}

// NewTelegram constructs the notifier.
func NewTelegram(botToken, chatID string, log *zap.SugaredLogger) *Telegram {
	return &Telegram{
		BotToken: botToken,
		ChatID:   chatID,
		baseURL:  "https://api.telegram.org",
		client:   &http.Client{Timeout: telegramTimeout},
		log:      log.Named("telegram"),
	}
}

// Send formats and dispatches one alert.
func (t *Telegram) Send(job model.JobPosting) error {
	if t.BotToken == "" || t.ChatID == "" {
		t.log.Debug("telegram credentials not set, skipping alert")
		return nil
	}

	payload, err := json.Marshal(map[string]any{
		"chat_id":                  t.ChatID,
		"text":                     FormatAlert(job),
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.BotToken)
	resp, err := t.client.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("telegram POST: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram returned %d: %s", resp.StatusCode, string(body))
	}

	t.log.Infow("alert sent", "title", job.Title, "company", job.Company)
	return nil
}

// FormatAlert renders the HTML message body for one posting.
func FormatAlert(job model.JobPosting) string {
	lines := []string{
		fmt.Sprintf("<b>Role:</b> %s", job.Title),
		fmt.Sprintf("<b>Company:</b> %s", job.Company),
		fmt.Sprintf("<b>Location:</b> %s", job.Location),
	}
	if job.Salary != "" {
		lines = append(lines, fmt.Sprintf("<b>Salary:</b> %s", job.Salary))
	}
	if job.WorkModel != "" {
		lines = append(lines, fmt.Sprintf("<b>Work Model:</b> %s", job.WorkModel))
	}
	lines = append(lines,
		fmt.Sprintf("<b>Source:</b> %s", job.Source),
		"",
		fmt.Sprintf("🔗 <a href='%s'><b>APPLY NOW</b></a>", job.URL),
	)
	return strings.Join(lines, "\n")
}
