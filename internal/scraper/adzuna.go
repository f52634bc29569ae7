package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"velocity/monitor-service/internal/dedup"
	"velocity/monitor-service/internal/model"
)

const (
	adzunaPageSize = 50
	adzunaAttempts = 3 // total attempts per fetch, including the first
	httpTimeout    = 15 * time.Second
)

// Linear backoff base between attempts; a variable so tests can shrink it.
var retryBaseDelay = time.Second

// Adzuna fetches postings from the Adzuna public API, sorted newest-first.
// Adzuna supplies posting timestamps, so its dedup records carry the short
// TTL class.
type Adzuna struct {
	AppID   string
	AppKey  string
	Country string // "us", "gb", "fr", …

	baseURL string
	client  *http.Client
	log     *zap.SugaredLogger
}

// NewAdzuna constructs the adapter with a shared HTTP client.
func NewAdzuna(appID, appKey, country string, log *zap.SugaredLogger) *Adzuna {
	return &Adzuna{
		AppID:   appID,
		AppKey:  appKey,
		Country: country,
		baseURL: "https://api.adzuna.com/v1/api/jobs",
		client:  &http.Client{Timeout: httpTimeout},
		log:     log.Named("adzuna"),
	}
}

func (a *Adzuna) Name() string             { return "Adzuna" }
func (a *Adzuna) NeedsKeywords() bool      { return true }
func (a *Adzuna) TTLClass() dedup.TTLClass { return dedup.TTLShort }

// adzunaResponse mirrors the top-level Adzuna JSON response.
type adzunaResponse struct {
	Results []adzunaResult `json:"results"`
}

type adzunaResult struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Company      display `json:"company"`
	Location     display `json:"location"`
	SalaryMin    float64 `json:"salary_min"`
	SalaryMax    float64 `json:"salary_max"`
	RedirectURL  string  `json:"redirect_url"`
	Created      string  `json:"created"`
	ContractTime string  `json:"contract_time"`
}

type display struct {
	DisplayName string `json:"display_name"`
}

// Fetch retrieves one page of results for q.Keyword, retrying transient
// failures up to adzunaAttempts with a linear backoff. Missing credentials
// produce an empty, non-failed result so the cycle keeps its shape.
func (a *Adzuna) Fetch(ctx context.Context, q Query) model.FetchResult {
	if a.AppID == "" || a.AppKey == "" {
		a.log.Warn("ADZUNA_APP_ID / ADZUNA_APP_KEY not set, skipping fetch")
		return model.FetchResult{}
	}

	var retries int
	for attempt := 1; attempt <= adzunaAttempts; attempt++ {
		jobs, retryable, err := a.fetchOnce(ctx, q)
		if err == nil {
			return model.FetchResult{Jobs: jobs, Retries: retries}
		}
		if !retryable || attempt == adzunaAttempts {
			a.log.Errorw("fetch failed", "keyword", q.Keyword, "attempt", attempt, "error", err)
			return model.FetchResult{Retries: retries, Failed: true}
		}

		a.log.Warnw("transient fetch error, retrying", "keyword", q.Keyword, "attempt", attempt, "error", err)
		retries++
		select {
		case <-time.After(time.Duration(attempt) * retryBaseDelay):
		case <-ctx.Done():
			return model.FetchResult{Retries: retries, Failed: true}
		}
	}
	return model.FetchResult{Retries: retries, Failed: true}
}

func (a *Adzuna) fetchOnce(ctx context.Context, q Query) (jobs []model.JobPosting, retryable bool, err error) {
	endpoint := fmt.Sprintf("%s/%s/search/1", a.baseURL, a.Country)

	params := url.Values{}
	params.Set("app_id", a.AppID)
	params.Set("app_key", a.AppKey)
	params.Set("results_per_page", strconv.Itoa(adzunaPageSize))
	params.Set("what", q.Keyword)
	if q.Location != "" {
		params.Set("where", q.Location)
	}
	params.Set("sort_by", "date")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, false, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("http GET: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("read body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("adzuna returned %d", resp.StatusCode)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, false, fmt.Errorf("adzuna auth rejected (%d)", resp.StatusCode)
	default:
		return nil, false, fmt.Errorf("adzuna returned %d: %s", resp.StatusCode, string(body))
	}

	var apiResp adzunaResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, false, fmt.Errorf("json unmarshal: %w", err)
	}

	jobs = make([]model.JobPosting, 0, len(apiResp.Results))
	for _, r := range apiResp.Results {
		if r.ID == "" {
			a.log.Warnw("dropping result without id", "title", r.Title)
			continue
		}
		job := model.JobPosting{
			Source:     a.Name(),
			ExternalID: r.ID,
			Title:      r.Title,
			Company:    r.Company.DisplayName,
			Location:   r.Location.DisplayName,
			URL:        r.RedirectURL,
			WorkModel:  r.ContractTime,
		}
		if r.SalaryMin > 0 || r.SalaryMax > 0 {
			job.Salary = fmt.Sprintf("%.0f-%.0f", r.SalaryMin, r.SalaryMax)
		}
		if t, err := time.Parse(time.RFC3339, r.Created); err == nil {
			job.PostedAt = &t
		}
		jobs = append(jobs, job)
	}
	return jobs, false, nil
}
