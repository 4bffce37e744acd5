package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/pfrederiksen/watchwherelive/internal/config"
	"github.com/pfrederiksen/watchwherelive/internal/schedule"
)

const (
	redisPrefix    = "wwl:"
	redisRuleHash  = redisPrefix + "rules"    // rule id -> rule JSON
	redisRuleIndex = redisPrefix + "rulekeys" // natural key -> rule id
	maxTxRetries   = 5
)

func gameKey(id string) string { return redisPrefix + "game:" + id }

func sportKey(sport schedule.Sport) string { return redisPrefix + "games:" + string(sport) }

// RedisStore keeps each game as a JSON string and indexes ids per sport in a set
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(ctx context.Context, cfg config.StoreConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close() // nolint:errcheck
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.RedisAddr, err)
	}
	return NewRedisStoreWithClient(client), nil
}

// NewRedisStoreWithClient wraps an existing client
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readGame(ctx context.Context, c getter, id string) (*schedule.GameRecord, error) {
	data, err := c.Get(ctx, gameKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var g schedule.GameRecord
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("decoding game %s: %w", id, err)
	}
	return &g, nil
}

// GetGame returns the stored record
func (s *RedisStore) GetGame(ctx context.Context, id string) (*schedule.GameRecord, error) {
	g, err := readGame(ctx, s.client, id)
	if err != nil {
		return nil, storeErr("get", id, err)
	}
	if g == nil {
		return nil, fmt.Errorf("game %s: %w", id, ErrNotFound)
	}
	return g, nil
}

// UpsertGame merges rec over the stored record inside a WATCH transaction
func (s *RedisStore) UpsertGame(ctx context.Context, rec *schedule.GameRecord) error {
	if rec == nil {
		return storeErr("upsert", "", fmt.Errorf("nil record"))
	}
	if err := rec.Validate(); err != nil {
		return err
	}

	err := s.update(ctx, rec.ID, func(prev *schedule.GameRecord) (*schedule.GameRecord, error) {
		return schedule.Merge(rec, prev)
	})
	return storeErr("upsert", rec.ID, err)
}

// update runs fn on the current record and writes the result, retrying when the key
// changed between read and write. prev is nil when the record does not exist.
func (s *RedisStore) update(ctx context.Context, id string, fn func(*schedule.GameRecord) (*schedule.GameRecord, error)) error {
	key := gameKey(id)

	txf := func(tx *redis.Tx) error {
		prev, err := readGame(ctx, tx, id)
		if err != nil {
			return err
		}
		next, err := fn(prev)
		if err != nil {
			return err
		}
		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encoding game %s: %w", id, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.SAdd(ctx, sportKey(next.Sport), id)
			if prev != nil && prev.Sport != next.Sport {
				pipe.SRem(ctx, sportKey(prev.Sport), id)
			}
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("game %s: too many concurrent writers", id)
}

// ListUnvalidated scans the sport sets and filters in memory
func (s *RedisStore) ListUnvalidated(ctx context.Context, q QueueQuery) ([]*schedule.GameRecord, error) {
	var sets []string
	if q.Sport != "" {
		sets = []string{sportKey(q.Sport)}
	} else {
		keys, err := s.client.Keys(ctx, redisPrefix+"games:*").Result()
		if err != nil {
			return nil, storeErr("list", "", err)
		}
		sets = keys
	}

	var ids []string
	for _, set := range sets {
		members, err := s.client.SMembers(ctx, set).Result()
		if err != nil {
			return nil, storeErr("list", "", err)
		}
		ids = append(ids, members...)
	}
	if len(ids) == 0 {
		return []*schedule.GameRecord{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = gameKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, storeErr("list", "", err)
	}

	out := make([]*schedule.GameRecord, 0, len(values))
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			continue // id indexed but record gone
		}
		var g schedule.GameRecord
		if err := json.Unmarshal([]byte(str), &g); err != nil {
			return nil, storeErr("list", ids[i], err)
		}
		if q.matches(&g) {
			out = append(out, &g)
		}
	}

	schedule.SortRecords(out)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// SetRegionalBroadcast updates one market of the curator map
func (s *RedisStore) SetRegionalBroadcast(ctx context.Context, id, market, provider string) error {
	return s.curate(ctx, id, func(g *schedule.GameRecord) error {
		return g.SetRegional(market, provider)
	})
}

// MarkValidated sets is_validated and merges regional into the curator map
func (s *RedisStore) MarkValidated(ctx context.Context, id string, regional map[string]string) error {
	return s.curate(ctx, id, func(g *schedule.GameRecord) error {
		return g.MarkValidated(regional)
	})
}

func (s *RedisStore) curate(ctx context.Context, id string, fn func(*schedule.GameRecord) error) error {
	err := s.update(ctx, id, func(prev *schedule.GameRecord) (*schedule.GameRecord, error) {
		if prev == nil {
			return nil, fmt.Errorf("game %s: %w", id, ErrNotFound)
		}
		if err := fn(prev); err != nil {
			return nil, err
		}
		return prev, nil
	})
	return storeErr("curate", id, err)
}

// SaveRule upserts the rule by its natural key
func (s *RedisStore) SaveRule(ctx context.Context, rule *schedule.DMARule) (*schedule.DMARule, error) {
	saved := *rule
	if saved.LastUpdated.IsZero() {
		saved.LastUpdated = s.now()
	}

	txf := func(tx *redis.Tx) error {
		id, err := tx.HGet(ctx, redisRuleIndex, rule.Key()).Result()
		switch {
		case errors.Is(err, redis.Nil):
			id = uuid.NewString()
		case err != nil:
			return err
		}
		saved.ID = id

		data, err := json.Marshal(&saved)
		if err != nil {
			return fmt.Errorf("encoding rule: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, redisRuleHash, id, data)
			pipe.HSet(ctx, redisRuleIndex, rule.Key(), id)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, redisRuleIndex)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, storeErr("save rule", saved.ID, err)
		}
		return &saved, nil
	}
	return nil, storeErr("save rule", rule.Key(), errors.New("too many concurrent writers"))
}

// ListRules reads every rule from the rules hash
func (s *RedisStore) ListRules(ctx context.Context, sport schedule.Sport) ([]*schedule.DMARule, error) {
	all, err := s.client.HGetAll(ctx, redisRuleHash).Result()
	if err != nil {
		return nil, storeErr("list rules", "", err)
	}

	out := make([]*schedule.DMARule, 0, len(all))
	for id, data := range all {
		var r schedule.DMARule
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return nil, storeErr("list rules", id, err)
		}
		if sport != "" && r.Sport != sport {
			continue
		}
		out = append(out, &r)
	}
	schedule.SortRules(out)
	return out, nil
}

// DeleteRule removes the rule and its key index entry
func (s *RedisStore) DeleteRule(ctx context.Context, id string) error {
	data, err := s.client.HGet(ctx, redisRuleHash, id).Result()
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("rule %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return storeErr("delete rule", id, err)
	}

	var r schedule.DMARule
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return storeErr("delete rule", id, err)
	}

	pipe := s.client.TxPipeline()
	pipe.HDel(ctx, redisRuleHash, id)
	pipe.HDel(ctx, redisRuleIndex, r.Key())
	if _, err := pipe.Exec(ctx); err != nil {
		return storeErr("delete rule", id, err)
	}
	return nil
}

// Close closes the client
func (s *RedisStore) Close() error {
	return s.client.Close()
}
