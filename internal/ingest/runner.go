package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pfrederiksen/watchwherelive/internal/config"
	"github.com/pfrederiksen/watchwherelive/internal/logger"
	"github.com/pfrederiksen/watchwherelive/internal/metrics"
	"github.com/pfrederiksen/watchwherelive/internal/schedule"
	"github.com/pfrederiksen/watchwherelive/internal/scraper"
	"github.com/pfrederiksen/watchwherelive/internal/storage"
)

// Source produces the candidates of one schedule page
type Source interface {
	FetchGames(ctx context.Context) (*scraper.Page, error)
}

// Job pairs a league with the source its games are read from
type Job struct {
	League config.LeagueConfig
	Source Source
}

// Report summarizes one league run
type Report struct {
	League        string        `json:"league"`
	Parsed        int           `json:"parsed"`
	Created       int           `json:"created"`
	Updated       int           `json:"updated"`
	Unchanged     int           `json:"unchanged"`
	Skipped       int           `json:"skipped"`
	StoreFailures int           `json:"store_failures"`
	Duration      time.Duration `json:"duration_ns"`
	Error         string        `json:"error,omitempty"`

	Err error `json:"-"`
}

// Failed reports whether the league page could not be read
func (r *Report) Failed() bool {
	return r.Err != nil
}

// Runner executes league runs against a store
type Runner struct {
	store      storage.GameStore
	normalizer *schedule.TeamNormalizer
	filter     *schedule.BroadcasterFilter
	metrics    *metrics.Recorder
	log        *logger.Logger
	now        func() time.Time
}

// Option configures a Runner
type Option func(*Runner)

// WithMetrics records run and game counts
func WithMetrics(m *metrics.Recorder) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithLogger replaces the default logger
func WithLogger(l *logger.Logger) Option {
	return func(r *Runner) { r.log = l }
}

// WithClock sets the reference time used for year inference and timestamps
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// NewRunner creates a Runner. A nil normalizer or filter uses the built-in tables.
func NewRunner(store storage.GameStore, normalizer *schedule.TeamNormalizer, filter *schedule.BroadcasterFilter, opts ...Option) *Runner {
	if normalizer == nil {
		normalizer = schedule.NewTeamNormalizer(nil, nil)
	}
	if filter == nil {
		filter = schedule.NewBroadcasterFilter(nil, nil)
	}
	r := &Runner{
		store:      store,
		normalizer: normalizer,
		filter:     filter,
		log:        logger.Default(),
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FromConfig creates a Runner with the configured normalizer and broadcaster tables
func FromConfig(store storage.GameStore, cfg *config.Config, opts ...Option) *Runner {
	return NewRunner(store,
		schedule.NewTeamNormalizer(cfg.Normalize.Suffixes, cfg.Normalize.AliasMap()),
		schedule.NewBroadcasterFilter(cfg.Broadcasters.Denylist, cfg.Broadcasters.Suffixes),
		opts...,
	)
}

// RunAll runs each job in order. A failed league does not stop the others.
func (r *Runner) RunAll(ctx context.Context, jobs []Job) []*Report {
	reports := make([]*Report, 0, len(jobs))
	for _, job := range jobs {
		if ctx.Err() != nil {
			reports = append(reports, &Report{League: job.League.Key, Err: ctx.Err(), Error: ctx.Err().Error()})
			continue
		}
		reports = append(reports, r.Run(ctx, job.League, job.Source))
	}
	return reports
}

// Run fetches one league page and persists its games
func (r *Runner) Run(ctx context.Context, league config.LeagueConfig, src Source) *Report {
	start := time.Now()
	ref := r.now()
	report := &Report{League: league.Key}
	fields := logger.Fields{"league": league.Key}

	page, err := src.FetchGames(ctx)
	if err != nil {
		report.Err = err
		report.Error = err.Error()
		report.Duration = time.Since(start)
		r.log.Error("Schedule fetch failed", fields, err)
		r.metrics.RecordRun(league.Key, metrics.ResultFetchFailed, report.Duration)
		return report
	}

	for _, skipped := range page.Skipped {
		r.log.Warn("Skipping game block", logger.Fields{"league": league.Key, "reason": skipped.Error()})
	}
	report.Skipped += len(page.Skipped)
	report.Parsed = len(page.Candidates)

	seen := make(map[string]int, len(page.Candidates))
	for _, c := range page.Candidates {
		rec, err := r.record(c, league, ref)
		if err != nil {
			report.Skipped++
			r.log.Warn("Dropping invalid candidate", logger.Fields{
				"league":  league.Key,
				"matchup": c.AwayTeam + " @ " + c.HomeTeam,
				"reason":  err.Error(),
			})
			continue
		}

		seen[rec.ID]++
		if n := seen[rec.ID]; n > 1 {
			rec.ID = schedule.DuplicateID(rec.ID, n)
		}

		switch outcome := r.persist(ctx, rec); outcome {
		case metrics.OutcomeCreated:
			report.Created++
		case metrics.OutcomeUpdated:
			report.Updated++
		case metrics.OutcomeUnchanged:
			report.Unchanged++
		case metrics.OutcomeSkipped:
			report.Skipped++
		default:
			report.StoreFailures++
		}
	}

	report.Duration = time.Since(start)
	r.recordMetrics(report)

	r.log.Info("Scrape complete", logger.Fields{
		"league":         league.Key,
		"parsed":         report.Parsed,
		"created":        report.Created,
		"updated":        report.Updated,
		"unchanged":      report.Unchanged,
		"skipped":        report.Skipped,
		"store_failures": report.StoreFailures,
		"duration_ms":    report.Duration.Milliseconds(),
	})
	return report
}

// record turns a raw candidate into a GameRecord with its id
func (r *Runner) record(c scraper.Candidate, league config.LeagueConfig, ref time.Time) (*schedule.GameRecord, error) {
	sport := schedule.ParseSport(c.Sport)
	if sport == "" {
		sport = schedule.ParseSport(league.Sport)
	}
	leagueKey := league.Key
	if leagueKey == "" {
		leagueKey = c.League
	}

	rec := &schedule.GameRecord{
		Sport:              sport,
		League:             leagueKey,
		Date:               schedule.DateKey(c.DateText, ref),
		DateText:           c.DateText,
		TimeText:           c.TimeText,
		AwayTeam:           r.normalizer.Normalize(c.AwayTeam),
		HomeTeam:           r.normalizer.Normalize(c.HomeTeam),
		NationalBroadcasts: r.filter.Filter(c.Broadcasts),
		RegionalHint:       c.RegionalHint,
		SourceURL:          c.SourceURL,
		UpdatedAt:          ref,
	}

	key := schedule.Key{
		League: string(sport),
		Away:   rec.AwayTeam,
		Home:   rec.HomeTeam,
		Date:   rec.Date,
	}
	if key.Date == "" {
		key.Date = rec.DateText
	}
	if league.IDTimeToken {
		key.Time = rec.TimeText
	}

	id, err := schedule.BuildID(key)
	if err != nil {
		return nil, err
	}
	rec.ID = id
	return rec, rec.Validate()
}

// persist merges rec over the stored version and writes it when Tier 1 content changed.
// It returns the metrics outcome for the game.
func (r *Runner) persist(ctx context.Context, rec *schedule.GameRecord) string {
	fields := logger.Fields{"id": rec.ID}

	existing, err := r.store.GetGame(ctx, rec.ID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		r.log.Error("Failed to read stored game", fields, err)
		return metrics.OutcomeStoreFailure
	}

	merged, err := schedule.Merge(rec, existing)
	if err != nil {
		r.log.Warn("Dropping invalid record", logger.Fields{"id": rec.ID, "reason": err.Error()})
		return metrics.OutcomeSkipped
	}

	changes := schedule.Changes(existing, merged)
	if len(changes) == 0 {
		return metrics.OutcomeUnchanged
	}

	if err := r.store.UpsertGame(ctx, merged); err != nil {
		r.log.Error("Failed to store game", fields, err)
		return metrics.OutcomeStoreFailure
	}

	if existing == nil {
		r.log.Debug("New game", logger.Fields{"id": rec.ID, "matchup": merged.Matchup()})
		return metrics.OutcomeCreated
	}
	for _, ch := range changes {
		r.log.Debug("Game changed", logger.Fields{
			"id":    rec.ID,
			"field": ch.Field,
			"old":   ch.OldValue,
			"new":   ch.NewValue,
		})
	}
	return metrics.OutcomeUpdated
}

func (r *Runner) recordMetrics(report *Report) {
	r.metrics.AddGames(report.League, metrics.OutcomeCreated, report.Created)
	r.metrics.AddGames(report.League, metrics.OutcomeUpdated, report.Updated)
	r.metrics.AddGames(report.League, metrics.OutcomeUnchanged, report.Unchanged)
	r.metrics.AddGames(report.League, metrics.OutcomeSkipped, report.Skipped)
	r.metrics.AddGames(report.League, metrics.OutcomeStoreFailure, report.StoreFailures)

	result := metrics.ResultOK
	if report.StoreFailures > 0 {
		result = metrics.ResultPartial
	}
	r.metrics.RecordRun(report.League, result, report.Duration)
}

// Jobs builds scraper-backed jobs for the named leagues, or every enabled league when
// keys is empty
func Jobs(cfg *config.Config, keys []string) ([]Job, error) {
	if len(keys) == 0 {
		keys = cfg.EnabledLeagues()
	}
	jobs := make([]Job, 0, len(keys))
	for _, key := range keys {
		league, ok := cfg.League(key)
		if !ok {
			return nil, fmt.Errorf("unknown league %q", key)
		}
		s, err := scraper.New(league)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, Job{League: league, Source: s})
	}
	return jobs, nil
}
