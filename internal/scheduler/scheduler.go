// Package scheduler drives the poll → filter → dedup → alert pipeline. One
// scheduler instance is the single writer of dedup records; cycles are
// strictly serialized and the loop is designed to never exit on a cycle
// error.
package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"velocity/monitor-service/internal/dedup"
	"velocity/monitor-service/internal/filter"
	"velocity/monitor-service/internal/model"
	"velocity/monitor-service/internal/scraper"
	"velocity/monitor-service/internal/settings"
)

// Broadcaster pushes events to live subscribers; the ws.Hub satisfies it.
type Broadcaster interface {
	Broadcast(model.Event)
}

// Notifier is the external push channel (Telegram in production).
type Notifier interface {
	Send(model.JobPosting) error
}

// EventProducer is the optional stream sink (Kafka in production).
type EventProducer interface {
	WriteAlert(ctx context.Context, job model.JobPosting) error
}

// Archiver is the optional durable feed (Postgres in production).
type Archiver interface {
	Store(ctx context.Context, job model.JobPosting) (bool, error)
}

// Options wires the scheduler's collaborators. Notifier, Producer and
// Archive may be nil; the corresponding fan-out step is skipped.
type Options struct {
	Sources       []scraper.Source
	Seen          dedup.SeenStore
	Lists         settings.ListStore
	Hub           Broadcaster
	Notifier      Notifier
	Producer      EventProducer
	Archive       Archiver
	Interval      time.Duration
	RecencyWindow time.Duration
}

// Scheduler owns the cron loop.
type Scheduler struct {
	Options
	cron *cron.Cron
	log  *zap.SugaredLogger
}

// New builds a Scheduler. SkipIfStillRunning keeps cycles serialized: a
// cycle that outlives the interval delays the next tick instead of
// overlapping it.
func New(opts Options, log *zap.SugaredLogger) *Scheduler {
	logger := log.Named("scheduler")
	return &Scheduler{
		Options: opts,
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DiscardLogger),
		)),
		log: logger,
	}
}

// Start registers the cycle job and fires one cycle immediately so the feed
// is populated without waiting for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	spec := fmt.Sprintf("@every %s", s.Interval)
	if _, err := s.cron.AddFunc(spec, func() { s.safeCycle(ctx) }); err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	s.log.Infow("scheduler started", "interval", s.Interval, "sources", len(s.Sources))

	go s.safeCycle(ctx)
	return nil
}

// Stop halts the cron loop. An in-flight cycle is abandoned, not cancelled.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.log.Info("scheduler stopped")
}

// safeCycle contains any panic from the cycle body so the loop survives
// programming errors. Availability over strictness: a persistent bug is
// retried every cycle and shows up loud in the logs instead of killing the
// process.
func (s *Scheduler) safeCycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Errorw("cycle panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	s.RunCycle(ctx)
}

type fetchTask struct {
	source scraper.Source
	query  scraper.Query
}

// RunCycle executes one full pass: snapshot config, fetch all sources
// concurrently, aggregate stats, filter, dedup, alert. Exported so tests
// drive cycles directly without the cron loop.
func (s *Scheduler) RunCycle(ctx context.Context) model.CycleStats {
	started := time.Now()
	lists := settings.Snapshot(ctx, s.Lists)
	pipeline := filter.Pipeline{Lists: lists, RecencyWindow: s.RecencyWindow}

	var tasks []fetchTask
	for _, src := range s.Sources {
		if src.NeedsKeywords() {
			for _, kw := range lists.TargetKeywords {
				tasks = append(tasks, fetchTask{source: src, query: scraper.Query{Keyword: kw}})
			}
		} else {
			tasks = append(tasks, fetchTask{source: src})
		}
	}

	results := make([]model.FetchResult, len(tasks))
	var wg sync.WaitGroup
	for i, task := range tasks {
		wg.Add(1)
		go func(i int, task fetchTask) {
			defer wg.Done()
			// Adapters are contracted not to panic; contain it anyway so a
			// misbehaving adapter reads as a failed call, not a dead process.
			defer func() {
				if r := recover(); r != nil {
					s.log.Errorw("adapter panicked", "source", task.source.Name(), "panic", r)
					results[i] = model.FetchResult{Failed: true}
				}
			}()
			results[i] = task.source.Fetch(ctx, task.query)
		}(i, task)
	}
	wg.Wait()

	var stats model.CycleStats
	for _, r := range results {
		stats.Record(r)
	}

	var alerts, duplicates, filtered int
	now := time.Now()
	for i, r := range results {
		src := tasks[i].source
		for _, job := range r.Jobs {
			v := pipeline.Check(job, now)
			if !v.Accepted {
				filtered++
				s.log.Debugw("filtered", "title", job.Title, "reason", v.Reason)
				continue
			}
			s.dispatch(ctx, job, src.TTLClass(), &alerts, &duplicates)
		}
		for _, job := range r.RecentJobs {
			if v := pipeline.CheckRecent(job); !v.Accepted {
				filtered++
				s.log.Debugw("filtered", "title", job.Title, "reason", v.Reason)
				continue
			}
			s.dispatch(ctx, job, src.TTLClass(), &alerts, &duplicates)
		}
	}

	s.log.Infow("cycle complete",
		"calls", stats.TotalCalls,
		"passed", stats.Passed,
		"failed", stats.Failed,
		"retried", stats.Retried,
		"retriedAndPassed", stats.RetriedAndPassed,
		"successRate", fmt.Sprintf("%.1f%%", stats.SuccessRate()),
		"alerts", alerts,
		"duplicates", duplicates,
		"filtered", filtered,
		"elapsed", time.Since(started).Round(time.Millisecond),
	)
	return stats
}

// dispatch runs the alert fan-out for one candidate posting. The dedup
// record is written before any delivery so a crash mid-fan-out drops the
// alert rather than duplicating it next cycle.
func (s *Scheduler) dispatch(ctx context.Context, job model.JobPosting, class dedup.TTLClass, alerts, duplicates *int) {
	key := dedup.Key(job.Source, job.ExternalID)
	if s.Seen.Seen(ctx, key) {
		*duplicates++
		return
	}

	if err := s.Seen.MarkSeen(ctx, key, job, class); err != nil {
		// Fail-soft: the posting may re-alert next cycle.
		s.log.Warnw("dedup write failed", "key", key, "error", err)
	}

	*alerts++
	s.log.Infow("new posting", "title", job.Title, "company", job.Company, "source", job.Source)

	if s.Hub != nil {
		s.Hub.Broadcast(model.Event{Type: model.EventNewJob, Data: job})
	}
	if s.Notifier != nil {
		if err := s.Notifier.Send(job); err != nil {
			s.log.Errorw("notification failed", "key", key, "error", err)
		}
	}
	if s.Producer != nil {
		if err := s.Producer.WriteAlert(ctx, job); err != nil {
			s.log.Errorw("event publish failed", "key", key, "error", err)
		}
	}
	if s.Archive != nil {
		if _, err := s.Archive.Store(ctx, job); err != nil {
			s.log.Errorw("feed archive failed", "key", key, "error", err)
		}
	}
}
