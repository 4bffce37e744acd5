package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pfrederiksen/watchwherelive/internal/schedule"
)

const documentName = "watchwherelive.json"

// document is the on-disk layout of the file backend
type document struct {
	Games     map[string]*schedule.GameRecord `json:"games"`
	Rules     map[string]*schedule.DMARule    `json:"rules"`
	UpdatedAt string                          `json:"updated_at"`
}

// FileStore keeps everything in one JSON document that is rewritten on each change
type FileStore struct {
	mu   sync.Mutex
	path string
	doc  *document
	now  func() time.Time
}

// NewFileStore opens (or creates) the document in dataDir. A leading ~/ is expanded.
func NewFileStore(dataDir string) (*FileStore, error) {
	if strings.HasPrefix(dataDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, dataDir[2:])
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	s := &FileStore{
		path: filepath.Join(dataDir, documentName),
		now:  func() time.Time { return time.Now().UTC() },
	}
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	s.doc = doc
	return s, nil
}

// Path returns the location of the JSON document
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) load() (*document, error) {
	doc := &document{
		Games: make(map[string]*schedule.GameRecord),
		Rules: make(map[string]*schedule.DMARule),
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return doc, nil
		}
		return nil, fmt.Errorf("reading store: %w", err)
	}

	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("parsing store: %w", err)
	}
	if doc.Games == nil {
		doc.Games = make(map[string]*schedule.GameRecord)
	}
	if doc.Rules == nil {
		doc.Rules = make(map[string]*schedule.DMARule)
	}
	return doc, nil
}

// save writes to a temp file and renames it over the document
func (s *FileStore) save() error {
	s.doc.UpdatedAt = s.now().Format(time.RFC3339)

	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding store: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".watchwherelive-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) // nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() // nolint:errcheck
		return fmt.Errorf("writing store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing store: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replacing store: %w", err)
	}
	return nil
}

// GetGame returns a copy of the stored record
func (s *FileStore) GetGame(_ context.Context, id string) (*schedule.GameRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.doc.Games[id]
	if !ok {
		return nil, fmt.Errorf("game %s: %w", id, ErrNotFound)
	}
	return g.Clone(), nil
}

// UpsertGame merges rec over the stored record and writes the document
func (s *FileStore) UpsertGame(_ context.Context, rec *schedule.GameRecord) error {
	if rec == nil {
		return storeErr("upsert", "", fmt.Errorf("nil record"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.doc.Games[rec.ID]
	merged, err := schedule.Merge(rec, prev)
	if err != nil {
		return err
	}

	s.doc.Games[rec.ID] = merged
	if err := s.save(); err != nil {
		s.restoreGame(rec.ID, prev)
		return storeErr("upsert", rec.ID, err)
	}
	return nil
}

func (s *FileStore) restoreGame(id string, prev *schedule.GameRecord) {
	if prev == nil {
		delete(s.doc.Games, id)
		return
	}
	s.doc.Games[id] = prev
}

// ListUnvalidated returns copies of matching records
func (s *FileStore) ListUnvalidated(_ context.Context, q QueueQuery) ([]*schedule.GameRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*schedule.GameRecord
	for _, g := range s.doc.Games {
		if q.matches(g) {
			out = append(out, g.Clone())
		}
	}
	schedule.SortRecords(out)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// SetRegionalBroadcast updates one market of the curator map
func (s *FileStore) SetRegionalBroadcast(_ context.Context, id, market, provider string) error {
	return s.curate(id, func(g *schedule.GameRecord) error {
		return g.SetRegional(market, provider)
	})
}

// MarkValidated sets is_validated and merges regional into the curator map
func (s *FileStore) MarkValidated(_ context.Context, id string, regional map[string]string) error {
	return s.curate(id, func(g *schedule.GameRecord) error {
		return g.MarkValidated(regional)
	})
}

func (s *FileStore) curate(id string, fn func(*schedule.GameRecord) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.doc.Games[id]
	if !ok {
		return fmt.Errorf("game %s: %w", id, ErrNotFound)
	}
	g := prev.Clone()
	if err := fn(g); err != nil {
		return err
	}

	s.doc.Games[id] = g
	if err := s.save(); err != nil {
		s.doc.Games[id] = prev
		return storeErr("curate", id, err)
	}
	return nil
}

// SaveRule upserts the rule by its natural key
func (s *FileStore) SaveRule(_ context.Context, rule *schedule.DMARule) (*schedule.DMARule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := *rule
	saved.ID = ""
	for id, r := range s.doc.Rules {
		if r.Key() == rule.Key() {
			saved.ID = id
			break
		}
	}
	if saved.ID == "" {
		saved.ID = uuid.NewString()
	}
	if saved.LastUpdated.IsZero() {
		saved.LastUpdated = s.now()
	}

	prev := s.doc.Rules[saved.ID]
	s.doc.Rules[saved.ID] = &saved
	if err := s.save(); err != nil {
		if prev == nil {
			delete(s.doc.Rules, saved.ID)
		} else {
			s.doc.Rules[saved.ID] = prev
		}
		return nil, storeErr("save rule", saved.ID, err)
	}

	out := saved
	return &out, nil
}

// ListRules returns copies of the stored rules
func (s *FileStore) ListRules(_ context.Context, sport schedule.Sport) ([]*schedule.DMARule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*schedule.DMARule, 0, len(s.doc.Rules))
	for _, r := range s.doc.Rules {
		if sport != "" && r.Sport != sport {
			continue
		}
		c := *r
		out = append(out, &c)
	}
	schedule.SortRules(out)
	return out, nil
}

// DeleteRule removes a rule by id
func (s *FileStore) DeleteRule(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.doc.Rules[id]
	if !ok {
		return fmt.Errorf("rule %s: %w", id, ErrNotFound)
	}
	delete(s.doc.Rules, id)
	if err := s.save(); err != nil {
		s.doc.Rules[id] = prev
		return storeErr("delete rule", id, err)
	}
	return nil
}

// Close is a no-op; every change is already on disk
func (s *FileStore) Close() error {
	return nil
}
