package curation

import (
	"context"
	"sort"
	"time"

	"github.com/pfrederiksen/watchwherelive/internal/calendar"
	"github.com/pfrederiksen/watchwherelive/internal/config"
	"github.com/pfrederiksen/watchwherelive/internal/logger"
	"github.com/pfrederiksen/watchwherelive/internal/metrics"
	"github.com/pfrederiksen/watchwherelive/internal/schedule"
	"github.com/pfrederiksen/watchwherelive/internal/storage"
)

const (
	DefaultQueueLimit = 50
	MaxQueueLimit     = 200
)

// Service implements the curation operations on top of a store
type Service struct {
	store      storage.Store
	cfg        *config.Config
	normalizer *schedule.TeamNormalizer
	metrics    *metrics.Recorder
	log        *logger.Logger
}

// Option configures a Service
type Option func(*Service)

// WithMetrics records queue sizes and rule applications
func WithMetrics(m *metrics.Recorder) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger replaces the default logger
func WithLogger(l *logger.Logger) Option {
	return func(s *Service) { s.log = l }
}

// NewService creates a Service. Rule teams are normalized with the configured tables.
func NewService(store storage.Store, cfg *config.Config, opts ...Option) *Service {
	s := &Service{
		store:      store,
		cfg:        cfg,
		normalizer: schedule.NewTeamNormalizer(cfg.Normalize.Suffixes, cfg.Normalize.AliasMap()),
		log:        logger.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Queue returns unvalidated games for one sport, or for every configured sport when
// sport is empty. limit applies per sport; values <= 0 use the configured limit.
func (s *Service) Queue(ctx context.Context, sport schedule.Sport, limit int) ([]*schedule.GameRecord, error) {
	limit = s.queueLimit(limit)

	sports := []schedule.Sport{sport}
	if sport == "" {
		sports = s.sports()
	}

	var games []*schedule.GameRecord
	for _, sp := range sports {
		q := storage.QueueQuery{Sport: sp, Limit: limit}
		if league, ok := s.cfg.LeagueForSport(string(sp)); ok {
			q.RequireRegionalHint = league.QueueRequiresRegionalHint
		}

		found, err := s.store.ListUnvalidated(ctx, q)
		if err != nil {
			return nil, err
		}
		s.metrics.SetQueueSize(string(sp), len(found))
		games = append(games, found...)
	}
	return games, nil
}

func (s *Service) queueLimit(limit int) int {
	if limit <= 0 {
		limit = s.cfg.API.QueueLimit
	}
	if limit <= 0 {
		limit = DefaultQueueLimit
	}
	if limit > MaxQueueLimit {
		limit = MaxQueueLimit
	}
	return limit
}

// sports lists the distinct sports of the configured leagues
func (s *Service) sports() []schedule.Sport {
	seen := make(map[schedule.Sport]bool)
	var sports []schedule.Sport
	for _, league := range s.cfg.Leagues {
		sp := schedule.ParseSport(league.Sport)
		if sp == "" || seen[sp] {
			continue
		}
		seen[sp] = true
		sports = append(sports, sp)
	}
	sort.Slice(sports, func(i, j int) bool { return sports[i] < sports[j] })
	return sports
}

// RuleResult is a saved rule and the number of queued games it was applied to
type RuleResult struct {
	Rule    *schedule.DMARule
	Applied int
}

// SaveRule validates and upserts a DMA rule, then writes its channel into the regional
// map of every unvalidated game of that sport the team plays in.
func (s *Service) SaveRule(ctx context.Context, dmaCode, team, sport, channel string) (*RuleResult, error) {
	rule, err := schedule.NewDMARule(dmaCode, team, sport, channel)
	if err != nil {
		return nil, err
	}
	rule.Team = s.normalizer.Normalize(rule.Team)
	rule.LastUpdated = time.Now().UTC()

	saved, err := s.store.SaveRule(ctx, rule)
	if err != nil {
		return nil, err
	}
	s.log.Info("DMA rule saved", logger.Fields{
		"id":      saved.ID,
		"dma":     saved.DMACode,
		"team":    saved.Team,
		"sport":   string(saved.Sport),
		"channel": saved.Channel,
	})

	applied, err := s.apply(ctx, saved)
	if err != nil {
		return nil, err
	}
	return &RuleResult{Rule: saved, Applied: applied}, nil
}

// apply writes the rule into matching queued games. A game that fails to update is
// logged and left for the next save.
func (s *Service) apply(ctx context.Context, rule *schedule.DMARule) (int, error) {
	games, err := s.store.ListUnvalidated(ctx, storage.QueueQuery{Sport: rule.Sport})
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, g := range games {
		if !g.HasTeam(rule.Team) || g.RegionalBroadcastMap[rule.DMACode] == rule.Channel {
			continue
		}
		if err := s.store.SetRegionalBroadcast(ctx, g.ID, rule.DMACode, rule.Channel); err != nil {
			s.log.Error("Failed to apply DMA rule", logger.Fields{"rule": rule.ID, "game": g.ID}, err)
			continue
		}
		applied++
	}

	s.metrics.AddRuleApplications(applied)
	if applied > 0 {
		s.log.Info("DMA rule applied", logger.Fields{"rule": rule.ID, "games": applied})
	}
	return applied, nil
}

// ApplyRules re-applies every stored rule, optionally for one sport, to the unvalidated games
// now in the store. It picks up games scraped after their rules were saved.
func (s *Service) ApplyRules(ctx context.Context, sport schedule.Sport) (int, error) {
	rules, err := s.store.ListRules(ctx, sport)
	if err != nil {
		return 0, err
	}

	total := 0
	for _, rule := range rules {
		applied, err := s.apply(ctx, rule)
		if err != nil {
			return total, err
		}
		total += applied
	}
	s.log.Info("DMA rules applied", logger.Fields{"rules": len(rules), "games": total})
	return total, nil
}

// ListRules returns stored rules, optionally for one sport
func (s *Service) ListRules(ctx context.Context, sport schedule.Sport) ([]*schedule.DMARule, error) {
	return s.store.ListRules(ctx, sport)
}

// DeleteRule removes a rule. Regional entries it already wrote stay in place.
func (s *Service) DeleteRule(ctx context.Context, id string) error {
	if err := s.store.DeleteRule(ctx, id); err != nil {
		return err
	}
	s.log.Info("DMA rule deleted", logger.Fields{"id": id})
	return nil
}

// ValidateGame signs off a game, merging any regional entries supplied with it
func (s *Service) ValidateGame(ctx context.Context, id string, regional map[string]string) (*schedule.GameRecord, error) {
	if err := s.store.MarkValidated(ctx, id, regional); err != nil {
		return nil, err
	}
	s.log.Info("Game validated", logger.Fields{"id": id, "markets": len(regional)})
	return s.store.GetGame(ctx, id)
}

// GameCalendar renders one stored game as an iCalendar document in the schedule timezone
func (s *Service) GameCalendar(ctx context.Context, id string) (string, error) {
	g, err := s.store.GetGame(ctx, id)
	if err != nil {
		return "", err
	}
	loc, err := time.LoadLocation(s.cfg.Schedule.Timezone)
	if err != nil {
		loc = time.UTC
	}
	return calendar.GenerateICS(g, loc, time.Now())
}
