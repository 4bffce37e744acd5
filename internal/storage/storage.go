package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pfrederiksen/watchwherelive/internal/config"
	"github.com/pfrederiksen/watchwherelive/internal/schedule"
)

// ErrNotFound is returned when a game or rule id does not exist
var ErrNotFound = errors.New("not found")

// StoreError wraps a backend failure with the operation and key involved
type StoreError struct {
	Op  string
	ID  string
	Err error
}

func (e *StoreError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store %s %s: %v", e.Op, e.ID, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(op, id string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) || errors.Is(err, ErrNotFound) || errors.Is(err, schedule.ErrValidation) {
		return err
	}
	return &StoreError{Op: op, ID: id, Err: err}
}

// QueueQuery filters the validation queue
type QueueQuery struct {
	Sport               schedule.Sport // empty matches every sport
	RequireRegionalHint bool
	Limit               int // 0 means no limit
}

func (q QueueQuery) matches(g *schedule.GameRecord) bool {
	if g.IsValidated {
		return false
	}
	if q.Sport != "" && g.Sport != q.Sport {
		return false
	}
	if q.RequireRegionalHint && strings.TrimSpace(g.RegionalHint) == "" {
		return false
	}
	return true
}

// GameStore holds game records keyed by id
type GameStore interface {
	// GetGame returns ErrNotFound for unknown ids
	GetGame(ctx context.Context, id string) (*schedule.GameRecord, error)

	// UpsertGame creates the record, or replaces only its Tier 1 fields when it exists
	UpsertGame(ctx context.Context, rec *schedule.GameRecord) error

	// ListUnvalidated returns unvalidated games ordered by date, then id
	ListUnvalidated(ctx context.Context, q QueueQuery) ([]*schedule.GameRecord, error)

	// SetRegionalBroadcast sets one market entry of the curator's regional map
	SetRegionalBroadcast(ctx context.Context, id, market, provider string) error

	// MarkValidated merges regional into the curator map and sets is_validated
	MarkValidated(ctx context.Context, id string, regional map[string]string) error
}

// RuleStore holds curator DMA rules
type RuleStore interface {
	// SaveRule upserts by (dma_code, team, sport) and returns the stored rule with its id
	SaveRule(ctx context.Context, rule *schedule.DMARule) (*schedule.DMARule, error)

	// ListRules returns rules ordered by sport, team, market. An empty sport lists all.
	ListRules(ctx context.Context, sport schedule.Sport) ([]*schedule.DMARule, error)

	// DeleteRule returns ErrNotFound for unknown ids
	DeleteRule(ctx context.Context, id string) error
}

// Store is a complete backend
type Store interface {
	GameStore
	RuleStore
	Close() error
}

// Open connects the backend selected in cfg
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Backend {
	case config.BackendFile, "":
		return NewFileStore(cfg.DataDir)
	case config.BackendRedis:
		return NewRedisStore(ctx, cfg)
	case config.BackendPostgres:
		return NewPostgresStore(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
