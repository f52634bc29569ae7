package scheduler_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"velocity/monitor-service/internal/dedup"
	"velocity/monitor-service/internal/model"
	"velocity/monitor-service/internal/scheduler"
	"velocity/monitor-service/internal/scraper"
	"velocity/monitor-service/internal/settings"
)

// ── Test doubles ───────────────────────────────────────────────────────────

type fakeSource struct {
	name          string
	needsKeywords bool
	ttl           dedup.TTLClass
	fetch         func(q scraper.Query) model.FetchResult

	mu    sync.Mutex
	calls int
}

func (f *fakeSource) Name() string             { return f.name }
func (f *fakeSource) NeedsKeywords() bool      { return f.needsKeywords }
func (f *fakeSource) TTLClass() dedup.TTLClass { return f.ttl }

func (f *fakeSource) Fetch(_ context.Context, q scraper.Query) model.FetchResult {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.fetch(q)
}

// recorder captures everything the fan-out delivered.
type recorder struct {
	mu     sync.Mutex
	ops    []string
	events []model.Event
	sent   []model.JobPosting
}

func (r *recorder) Broadcast(ev model.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, "broadcast")
	r.events = append(r.events, ev)
}

func (r *recorder) Send(job model.JobPosting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, "notify")
	r.sent = append(r.sent, job)
	return nil
}

// tracingStore logs MarkSeen calls into the shared recorder so delivery
// order is observable.
type tracingStore struct {
	*dedup.MemoryStore
	rec *recorder
}

func (s *tracingStore) MarkSeen(ctx context.Context, key string, job model.JobPosting, class dedup.TTLClass) error {
	s.rec.mu.Lock()
	s.rec.ops = append(s.rec.ops, "mark")
	s.rec.mu.Unlock()
	return s.MemoryStore.MarkSeen(ctx, key, job, class)
}

func minutesAgo(m int) *time.Time {
	t := time.Now().Add(-time.Duration(m) * time.Minute)
	return &t
}

func newScheduler(opts scheduler.Options) *scheduler.Scheduler {
	if opts.Lists == nil {
		opts.Lists = settings.NewStaticStore(map[string][]string{
			settings.TargetKeywords:      {"Backend"},
			settings.TargetLocations:     {"United States"},
			settings.BlockedCompanies:    {"Infosys"},
			settings.TitleFilterKeywords: {"senior"},
		})
	}
	if opts.Seen == nil {
		opts.Seen = dedup.NewMemoryStore()
	}
	opts.Interval = time.Minute
	opts.RecencyWindow = 2 * time.Hour
	return scheduler.New(opts, zap.NewNop().Sugar())
}

// ── At-most-once alerting ──────────────────────────────────────────────────

func TestRunCycle_AlertsOnceAcrossCycles(t *testing.T) {
	job := model.JobPosting{
		Source: "X", ExternalID: "1",
		Title: "Backend Engineer", Company: "Acme",
		Location: "Remote, United States", PostedAt: minutesAgo(2),
	}
	src := &fakeSource{
		name: "X", needsKeywords: true, ttl: dedup.TTLShort,
		fetch: func(scraper.Query) model.FetchResult { return model.FetchResult{Jobs: []model.JobPosting{job}} },
	}
	rec := &recorder{}
	seen := dedup.NewMemoryStore()
	s := newScheduler(scheduler.Options{Sources: []scraper.Source{src}, Seen: seen, Hub: rec, Notifier: rec})

	ctx := context.Background()
	s.RunCycle(ctx)

	if len(rec.sent) != 1 {
		t.Fatalf("first cycle sent %d alerts, want 1", len(rec.sent))
	}
	if !seen.Seen(ctx, dedup.Key("X", "1")) {
		t.Fatal("dedup record seen:X:1 should exist after the first alert")
	}

	s.RunCycle(ctx)
	if len(rec.sent) != 1 {
		t.Errorf("second cycle re-alerted: %d total alerts, want 1", len(rec.sent))
	}
}

func TestRunCycle_ExpiredRecordAlertsAgain(t *testing.T) {
	job := model.JobPosting{
		Source: "X", ExternalID: "1",
		Title: "Backend Engineer", Company: "Acme",
		Location: "Remote", PostedAt: minutesAgo(2),
	}
	src := &fakeSource{
		name: "X", needsKeywords: true, ttl: dedup.TTLClass(time.Second),
		fetch: func(scraper.Query) model.FetchResult { return model.FetchResult{Jobs: []model.JobPosting{job}} },
	}
	rec := &recorder{}
	seen := dedup.NewMemoryStore()
	now := time.Now()
	seen.SetClock(func() time.Time { return now })
	s := newScheduler(scheduler.Options{Sources: []scraper.Source{src}, Seen: seen, Hub: rec, Notifier: rec})

	ctx := context.Background()
	s.RunCycle(ctx)
	now = now.Add(2 * time.Second) // step past the record's TTL
	s.RunCycle(ctx)

	if len(rec.sent) != 2 {
		t.Errorf("expired identity should alert again: got %d alerts, want 2", len(rec.sent))
	}
}

// ── Write-before-dispatch ordering ─────────────────────────────────────────

func TestRunCycle_DedupWriteBeforeDelivery(t *testing.T) {
	job := model.JobPosting{
		Source: "X", ExternalID: "1",
		Title: "Backend Engineer", Company: "Acme",
		Location: "Remote", PostedAt: minutesAgo(2),
	}
	src := &fakeSource{
		name: "X", needsKeywords: true, ttl: dedup.TTLShort,
		fetch: func(scraper.Query) model.FetchResult { return model.FetchResult{Jobs: []model.JobPosting{job}} },
	}
	rec := &recorder{}
	store := &tracingStore{MemoryStore: dedup.NewMemoryStore(), rec: rec}
	s := newScheduler(scheduler.Options{Sources: []scraper.Source{src}, Seen: store, Hub: rec, Notifier: rec})

	s.RunCycle(context.Background())

	want := []string{"mark", "broadcast", "notify"}
	if len(rec.ops) != len(want) {
		t.Fatalf("ops = %v, want %v", rec.ops, want)
	}
	for i := range want {
		if rec.ops[i] != want[i] {
			t.Fatalf("ops = %v, want %v", rec.ops, want)
		}
	}
}

// ── Filtering before the cache ─────────────────────────────────────────────

func TestRunCycle_ExcludedTitleNeverReachesCacheOrChannel(t *testing.T) {
	job := model.JobPosting{
		Source: "X", ExternalID: "9",
		Title: "Senior Backend Engineer", Company: "Acme",
		Location: "Remote", PostedAt: minutesAgo(2),
	}
	src := &fakeSource{
		name: "X", needsKeywords: true, ttl: dedup.TTLShort,
		fetch: func(scraper.Query) model.FetchResult { return model.FetchResult{Jobs: []model.JobPosting{job}} },
	}
	rec := &recorder{}
	seen := dedup.NewMemoryStore()
	s := newScheduler(scheduler.Options{Sources: []scraper.Source{src}, Seen: seen, Hub: rec, Notifier: rec})

	s.RunCycle(context.Background())

	if len(rec.sent) != 0 || len(rec.events) != 0 {
		t.Error("excluded title must never be delivered")
	}
	if seen.Seen(context.Background(), dedup.Key("X", "9")) {
		t.Error("excluded title must never reach the dedup cache")
	}
}

func TestRunCycle_RecentPoolSkipsFilteringButNotBlocklist(t *testing.T) {
	// Neither posting would survive the general pipeline (no keyword, no
	// timestamp); only the blocked one must be held back.
	ok := model.JobPosting{Source: "P", ExternalID: "1", Title: "Quant Researcher", Company: "Acme", Location: "Tokyo"}
	blocked := model.JobPosting{Source: "P", ExternalID: "2", Title: "Backend Engineer", Company: "Infosys Ltd.", Location: "Remote"}
	src := &fakeSource{
		name: "P", ttl: dedup.TTLLong,
		fetch: func(scraper.Query) model.FetchResult {
			return model.FetchResult{RecentJobs: []model.JobPosting{ok, blocked}}
		},
	}
	rec := &recorder{}
	seen := dedup.NewMemoryStore()
	s := newScheduler(scheduler.Options{Sources: []scraper.Source{src}, Seen: seen, Hub: rec, Notifier: rec})

	s.RunCycle(context.Background())

	if len(rec.sent) != 1 || rec.sent[0].ExternalID != "1" {
		t.Fatalf("sent = %+v, want exactly the non-blocked recent posting", rec.sent)
	}
	if seen.Seen(context.Background(), dedup.Key("P", "2")) {
		t.Error("blocked company must never reach the dedup cache")
	}
}

// ── Stats and fan-out shape ────────────────────────────────────────────────

func TestRunCycle_StatsAcrossMixedOutcomes(t *testing.T) {
	keyworded := &fakeSource{
		name: "K", needsKeywords: true, ttl: dedup.TTLShort,
		fetch: func(scraper.Query) model.FetchResult { return model.FetchResult{Retries: 1} },
	}
	failing := &fakeSource{
		name: "F", ttl: dedup.TTLShort,
		fetch: func(scraper.Query) model.FetchResult { return model.FetchResult{Retries: 2, Failed: true} },
	}
	lists := settings.NewStaticStore(map[string][]string{
		settings.TargetKeywords: {"Backend", "Python"},
	})
	s := newScheduler(scheduler.Options{Sources: []scraper.Source{keyworded, failing}, Lists: lists})

	stats := s.RunCycle(context.Background())

	// 2 keywords × keyworded source + 1 keywordless source.
	if stats.TotalCalls != 3 {
		t.Errorf("TotalCalls = %d, want 3", stats.TotalCalls)
	}
	if stats.Passed != 2 || stats.Failed != 1 {
		t.Errorf("passed/failed = %d/%d, want 2/1", stats.Passed, stats.Failed)
	}
	if stats.Retried != 3 || stats.RetriedAndPassed != 2 {
		t.Errorf("retried/retriedAndPassed = %d/%d, want 3/2", stats.Retried, stats.RetriedAndPassed)
	}
	if stats.Passed+stats.Failed != stats.TotalCalls {
		t.Error("passed + failed must equal totalCalls")
	}
	if keyworded.calls != 2 {
		t.Errorf("keyworded source fetched %d times, want one per keyword", keyworded.calls)
	}
}

// ── Failure containment ────────────────────────────────────────────────────

func TestRunCycle_AdapterPanicCountsAsFailedCall(t *testing.T) {
	panicking := &fakeSource{
		name: "Boom", ttl: dedup.TTLShort,
		fetch: func(scraper.Query) model.FetchResult { panic("adapter bug") },
	}
	healthy := &fakeSource{
		name: "OK", ttl: dedup.TTLShort,
		fetch: func(scraper.Query) model.FetchResult { return model.FetchResult{} },
	}
	s := newScheduler(scheduler.Options{Sources: []scraper.Source{panicking, healthy}})

	stats := s.RunCycle(context.Background())

	if stats.Failed != 1 || stats.Passed != 1 {
		t.Errorf("panicking adapter should read as one failed call: passed/failed = %d/%d", stats.Passed, stats.Failed)
	}
}
