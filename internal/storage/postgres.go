package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/pfrederiksen/watchwherelive/internal/config"
	"github.com/pfrederiksen/watchwherelive/internal/schedule"
)

// gameRow is the games table
type gameRow struct {
	ID                   string         `gorm:"column:id;type:varchar(160);primaryKey"`
	Sport                string         `gorm:"column:sport;type:varchar(16);not null;index:idx_games_queue,priority:1"`
	League               string         `gorm:"column:league;type:varchar(32)"`
	Date                 string         `gorm:"column:date;type:varchar(10);index"`
	DateText             string         `gorm:"column:date_text;type:varchar(64)"`
	TimeText             string         `gorm:"column:time_text;type:varchar(32)"`
	AwayTeam             string         `gorm:"column:away_team;type:varchar(128);not null"`
	HomeTeam             string         `gorm:"column:home_team;type:varchar(128);not null"`
	NationalBroadcasts   datatypes.JSON `gorm:"column:national_broadcasts;type:jsonb;not null"`
	RegionalHint         string         `gorm:"column:regional_hint;type:varchar(256)"`
	SourceURL            string         `gorm:"column:source_url;type:varchar(512)"`
	RegionalBroadcastMap datatypes.JSON `gorm:"column:regional_broadcast_map;type:jsonb;not null"`
	IsValidated          bool           `gorm:"column:is_validated;not null;default:false;index:idx_games_queue,priority:2"`
	FirstSeen            time.Time      `gorm:"column:first_seen;type:timestamptz;not null"`
	UpdatedAt            time.Time      `gorm:"column:updated_at;type:timestamptz;not null;autoUpdateTime:false"`
}

func (gameRow) TableName() string { return "games" }

// tier1Columns are overwritten on conflict; curator columns and first_seen never are
var tier1Columns = []string{
	"sport", "league", "date", "date_text", "time_text", "away_team", "home_team",
	"national_broadcasts", "regional_hint", "source_url", "updated_at",
}

// ruleRow is the dma_rules table
type ruleRow struct {
	ID          string    `gorm:"column:id;type:uuid;primaryKey"`
	DMACode     string    `gorm:"column:dma_code;type:varchar(32);not null;uniqueIndex:uq_dma_rule,priority:1"`
	TeamKey     string    `gorm:"column:team_key;type:varchar(128);not null;uniqueIndex:uq_dma_rule,priority:2"`
	Sport       string    `gorm:"column:sport;type:varchar(16);not null;uniqueIndex:uq_dma_rule,priority:3"`
	Team        string    `gorm:"column:team;type:varchar(128);not null"`
	Channel     string    `gorm:"column:channel;type:varchar(128);not null"`
	LastUpdated time.Time `gorm:"column:last_updated;type:timestamptz;not null"`
}

func (ruleRow) TableName() string { return "dma_rules" }

func toGameRow(g *schedule.GameRecord) (*gameRow, error) {
	national, err := json.Marshal(g.NationalBroadcasts)
	if err != nil {
		return nil, err
	}
	regional, err := json.Marshal(g.RegionalBroadcastMap)
	if err != nil {
		return nil, err
	}
	return &gameRow{
		ID:                   g.ID,
		Sport:                string(g.Sport),
		League:               g.League,
		Date:                 g.Date,
		DateText:             g.DateText,
		TimeText:             g.TimeText,
		AwayTeam:             g.AwayTeam,
		HomeTeam:             g.HomeTeam,
		NationalBroadcasts:   datatypes.JSON(national),
		RegionalHint:         g.RegionalHint,
		SourceURL:            g.SourceURL,
		RegionalBroadcastMap: datatypes.JSON(regional),
		IsValidated:          g.IsValidated,
		FirstSeen:            g.FirstSeen,
		UpdatedAt:            g.UpdatedAt,
	}, nil
}

func (r *gameRow) record() (*schedule.GameRecord, error) {
	g := &schedule.GameRecord{
		ID:           r.ID,
		Sport:        schedule.Sport(r.Sport),
		League:       r.League,
		Date:         r.Date,
		DateText:     r.DateText,
		TimeText:     r.TimeText,
		AwayTeam:     r.AwayTeam,
		HomeTeam:     r.HomeTeam,
		RegionalHint: r.RegionalHint,
		SourceURL:    r.SourceURL,
		IsValidated:  r.IsValidated,
		FirstSeen:    r.FirstSeen.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
	if err := json.Unmarshal(r.NationalBroadcasts, &g.NationalBroadcasts); err != nil {
		return nil, fmt.Errorf("decoding national_broadcasts of %s: %w", r.ID, err)
	}
	if err := json.Unmarshal(r.RegionalBroadcastMap, &g.RegionalBroadcastMap); err != nil {
		return nil, fmt.Errorf("decoding regional_broadcast_map of %s: %w", r.ID, err)
	}
	if g.NationalBroadcasts == nil {
		g.NationalBroadcasts = []string{}
	}
	if g.RegionalBroadcastMap == nil {
		g.RegionalBroadcastMap = map[string]string{}
	}
	return g, nil
}

func toRuleRow(r *schedule.DMARule) *ruleRow {
	return &ruleRow{
		ID:          r.ID,
		DMACode:     r.DMACode,
		TeamKey:     strings.ToLower(r.Team),
		Sport:       string(r.Sport),
		Team:        r.Team,
		Channel:     r.Channel,
		LastUpdated: r.LastUpdated,
	}
}

func (r *ruleRow) rule() *schedule.DMARule {
	return &schedule.DMARule{
		ID:          r.ID,
		DMACode:     r.DMACode,
		Team:        r.Team,
		Sport:       schedule.Sport(r.Sport),
		Channel:     r.Channel,
		LastUpdated: r.LastUpdated.UTC(),
	}
}

// PostgresStore keeps games and rules in PostgreSQL through GORM
type PostgresStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewPostgresStore connects, sizes the pool and migrates the schema
func NewPostgresStore(ctx context.Context, cfg config.StoreConfig) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql db: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close() // nolint:errcheck
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	if err := db.WithContext(ctx).AutoMigrate(&gameRow{}, &ruleRow{}); err != nil {
		sqlDB.Close() // nolint:errcheck
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	return &PostgresStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

// GetGame returns the stored record
func (s *PostgresStore) GetGame(ctx context.Context, id string) (*schedule.GameRecord, error) {
	var row gameRow
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("game %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, storeErr("get", id, err)
	}
	g, err := row.record()
	return g, storeErr("get", id, err)
}

// UpsertGame inserts the record or, on id conflict, rewrites only the Tier 1 columns
func (s *PostgresStore) UpsertGame(ctx context.Context, rec *schedule.GameRecord) error {
	if rec == nil {
		return storeErr("upsert", "", fmt.Errorf("nil record"))
	}
	// the insert half needs initialized curator fields; the conflict half never touches them
	fresh, err := schedule.Merge(rec, nil)
	if err != nil {
		return err
	}
	row, err := toGameRow(fresh)
	if err != nil {
		return storeErr("upsert", rec.ID, err)
	}

	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(tier1Columns),
	}).Create(row).Error
	return storeErr("upsert", rec.ID, err)
}

// ListUnvalidated queries the queue index
func (s *PostgresStore) ListUnvalidated(ctx context.Context, q QueueQuery) ([]*schedule.GameRecord, error) {
	tx := s.db.WithContext(ctx).Where("is_validated = ?", false)
	if q.Sport != "" {
		tx = tx.Where("sport = ?", string(q.Sport))
	}
	if q.RequireRegionalHint {
		tx = tx.Where("TRIM(regional_hint) <> ''")
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var rows []gameRow
	if err := tx.Order("date ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, storeErr("list", "", err)
	}

	out := make([]*schedule.GameRecord, 0, len(rows))
	for i := range rows {
		g, err := rows[i].record()
		if err != nil {
			return nil, storeErr("list", rows[i].ID, err)
		}
		out = append(out, g)
	}
	return out, nil
}

// SetRegionalBroadcast updates one market of the curator map
func (s *PostgresStore) SetRegionalBroadcast(ctx context.Context, id, market, provider string) error {
	return s.curate(ctx, id, func(g *schedule.GameRecord) error {
		return g.SetRegional(market, provider)
	})
}

// MarkValidated sets is_validated and merges regional into the curator map
func (s *PostgresStore) MarkValidated(ctx context.Context, id string, regional map[string]string) error {
	return s.curate(ctx, id, func(g *schedule.GameRecord) error {
		return g.MarkValidated(regional)
	})
}

// curate locks the row, applies fn and writes back the curator columns only
func (s *PostgresStore) curate(ctx context.Context, id string, fn func(*schedule.GameRecord) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row gameRow
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("game %s: %w", id, ErrNotFound)
		}
		if err != nil {
			return err
		}

		g, err := row.record()
		if err != nil {
			return err
		}
		if err := fn(g); err != nil {
			return err
		}
		regional, err := json.Marshal(g.RegionalBroadcastMap)
		if err != nil {
			return err
		}

		return tx.Model(&gameRow{}).Where("id = ?", id).Updates(map[string]interface{}{
			"regional_broadcast_map": datatypes.JSON(regional),
			"is_validated":           g.IsValidated,
		}).Error
	})
	return storeErr("curate", id, err)
}

// SaveRule upserts by (dma_code, team, sport) and reads back the surviving id
func (s *PostgresStore) SaveRule(ctx context.Context, rule *schedule.DMARule) (*schedule.DMARule, error) {
	saved := *rule
	saved.ID = uuid.NewString()
	if saved.LastUpdated.IsZero() {
		saved.LastUpdated = s.now()
	}
	row := toRuleRow(&saved)

	db := s.db.WithContext(ctx)
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "dma_code"}, {Name: "team_key"}, {Name: "sport"}},
		DoUpdates: clause.AssignmentColumns([]string{"team", "channel", "last_updated"}),
	}).Create(row).Error
	if err != nil {
		return nil, storeErr("save rule", rule.Key(), err)
	}

	var stored ruleRow
	err = db.Where("dma_code = ? AND team_key = ? AND sport = ?", row.DMACode, row.TeamKey, row.Sport).
		First(&stored).Error
	if err != nil {
		return nil, storeErr("save rule", rule.Key(), err)
	}
	return stored.rule(), nil
}

// ListRules returns rules ordered by sport, team, market
func (s *PostgresStore) ListRules(ctx context.Context, sport schedule.Sport) ([]*schedule.DMARule, error) {
	tx := s.db.WithContext(ctx)
	if sport != "" {
		tx = tx.Where("sport = ?", string(sport))
	}

	var rows []ruleRow
	if err := tx.Order("sport ASC, team_key ASC, dma_code ASC").Find(&rows).Error; err != nil {
		return nil, storeErr("list rules", "", err)
	}

	out := make([]*schedule.DMARule, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].rule())
	}
	return out, nil
}

// DeleteRule removes a rule by id
func (s *PostgresStore) DeleteRule(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("rule %s: %w", id, ErrNotFound)
	}
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&ruleRow{})
	if res.Error != nil {
		return storeErr("delete rule", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("rule %s: %w", id, ErrNotFound)
	}
	return nil
}

// Close releases the connection pool
func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
