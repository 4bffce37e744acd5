package curation

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pfrederiksen/watchwherelive/internal/config"
	"github.com/pfrederiksen/watchwherelive/internal/logger"
	"github.com/pfrederiksen/watchwherelive/internal/metrics"
	"github.com/pfrederiksen/watchwherelive/internal/schedule"
	"github.com/pfrederiksen/watchwherelive/internal/storage"
)

// brokenStore fails every queue read and rule write
type brokenStore struct {
	storage.Store
}

func (brokenStore) ListUnvalidated(context.Context, storage.QueueQuery) ([]*schedule.GameRecord, error) {
	return nil, &storage.StoreError{Op: "list", Err: errors.New("connection refused")}
}

func (brokenStore) SaveRule(context.Context, *schedule.DMARule) (*schedule.DMARule, error) {
	return nil, &storage.StoreError{Op: "save rule", Err: errors.New("connection refused")}
}

func newTestRouter(t *testing.T) (http.Handler, storage.Store, *metrics.Recorder) {
	t.Helper()
	svc, store := newTestService(t)
	m := metrics.New()
	h := NewHandler(svc, m, logger.New(logger.LevelError, io.Discard))
	return h.Router(config.Default().API), store, m
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("decoding response %q: %v", w.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	h, _, _ := newTestRouter(t)

	w := do(t, h, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestGetUnvalidated(t *testing.T) {
	h, _, _ := newTestRouter(t)

	tests := []struct {
		name string
		path string
		want []string
	}{
		{"all sports", "/api/admin/unvalidated", []string{arsenalID, lakersID}},
		{"sport filter", "/api/admin/unvalidated?sport=nba", []string{lakersID}},
		{"limit", "/api/admin/unvalidated?sport=EPL&limit=1", []string{arsenalID}},
		{"bad limit falls back", "/api/admin/unvalidated?limit=lots", []string{arsenalID, lakersID}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodGet, tt.path, "")
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
			}
			var games []GameSummary
			decode(t, w, &games)
			if len(games) != len(tt.want) {
				t.Fatalf("got %d games, want %d", len(games), len(tt.want))
			}
			for i, g := range games {
				if g.ID != tt.want[i] {
					t.Errorf("games[%d] = %s, want %s", i, g.ID, tt.want[i])
				}
			}
		})
	}
}

func TestGetUnvalidated_EmptyIsArray(t *testing.T) {
	h, _, _ := newTestRouter(t)

	w := do(t, h, http.MethodGet, "/api/admin/unvalidated?sport=MLB", "")
	if body := strings.TrimSpace(w.Body.String()); body != "[]" {
		t.Errorf("body = %s, want []", body)
	}
}

func TestSaveRule(t *testing.T) {
	h, store, _ := newTestRouter(t)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantError  string
	}{
		{
			name:       "missing field",
			body:       `{"dma_code":"LA","team":"Los Angeles Lakers","sport":"NBA"}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Missing required fields in rule data",
		},
		{
			name:       "invalid json",
			body:       `{"dma_code":`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid JSON body",
		},
		{
			name:       "blank channel",
			body:       `{"dma_code":"LA","team":"Los Angeles Lakers","sport":"NBA","channel":" "}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid record: channel is required",
		},
		{
			name:       "saved",
			body:       `{"dma_code":"la","team":"Los Angeles Lakers","sport":"nba","channel":"Spectrum SportsNet"}`,
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, "/api/admin/map", tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}

			if tt.wantError != "" {
				var resp map[string]string
				decode(t, w, &resp)
				if resp["error"] != tt.wantError {
					t.Errorf("error = %q, want %q", resp["error"], tt.wantError)
				}
				return
			}

			var resp ruleResponse
			decode(t, w, &resp)
			if !resp.Success || resp.Message != "DMA Rule saved." || resp.ID == "" || resp.Applied != 1 {
				t.Errorf("response = %+v", resp)
			}
		})
	}

	g, _ := store.GetGame(context.Background(), lakersID)
	if g.RegionalBroadcastMap["LA"] != "Spectrum SportsNet" {
		t.Errorf("rule not applied: %v", g.RegionalBroadcastMap)
	}
}

func TestRuleListAndDelete(t *testing.T) {
	h, _, _ := newTestRouter(t)

	w := do(t, h, http.MethodGet, "/api/admin/map", "")
	if body := strings.TrimSpace(w.Body.String()); body != "[]" {
		t.Errorf("empty list body = %s", body)
	}

	w = do(t, h, http.MethodPost, "/api/admin/map", `{"dma_code":"NY","team":"Arsenal","sport":"EPL","channel":"NBC"}`)
	var saved ruleResponse
	decode(t, w, &saved)

	w = do(t, h, http.MethodGet, "/api/admin/map?sport=epl", "")
	var rules []schedule.DMARule
	decode(t, w, &rules)
	if len(rules) != 1 || rules[0].ID != saved.ID || rules[0].Channel != "NBC" {
		t.Fatalf("rules = %+v", rules)
	}

	if w := do(t, h, http.MethodDelete, "/api/admin/map/"+saved.ID, ""); w.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", w.Code)
	}
	if w := do(t, h, http.MethodDelete, "/api/admin/map/"+saved.ID, ""); w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d", w.Code)
	}
}

func TestValidateGame(t *testing.T) {
	h, _, _ := newTestRouter(t)

	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
	}{
		{"unknown game", "/api/admin/games/NBA_X_vs_Y_20251206/validate", "", http.StatusNotFound},
		{"bad body", "/api/admin/games/" + knicksID + "/validate", `{"regional_broadcast_map":`, http.StatusBadRequest},
		{"no body", "/api/admin/games/" + knicksID + "/validate", "", http.StatusOK},
		{"with regional map", "/api/admin/games/" + lakersID + "/validate", `{"regional_broadcast_map":{"LA-DMA":"Spectrum"}}`, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, tt.path, tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}

	w := do(t, h, http.MethodGet, "/api/admin/unvalidated?sport=nba", "")
	var games []GameSummary
	decode(t, w, &games)
	if len(games) != 0 {
		t.Errorf("validated games still queued: %+v", games)
	}
}

func TestStoreFailuresReturn500(t *testing.T) {
	svc, store := newTestService(t)
	svc.store = brokenStore{store}
	h := NewHandler(svc, nil, logger.New(logger.LevelError, io.Discard)).Router(config.Default().API)

	w := do(t, h, http.MethodGet, "/api/admin/unvalidated", "")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("queue status = %d", w.Code)
	}

	w = do(t, h, http.MethodPost, "/api/admin/map", `{"dma_code":"LA","team":"Lakers","sport":"NBA","channel":"Spectrum"}`)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("save status = %d", w.Code)
	}

	// no metrics recorder means no /metrics route
	if w := do(t, h, http.MethodGet, "/metrics", ""); w.Code != http.StatusNotFound {
		t.Errorf("/metrics status = %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h, _, _ := newTestRouter(t)

	do(t, h, http.MethodGet, "/api/admin/unvalidated?sport=nba", "")
	w := do(t, h, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	body := w.Body.String()
	for _, want := range []string{
		`watchwherelive_http_requests_total{method="GET",route="/api/admin/unvalidated",status="200"} 1`,
		`watchwherelive_curation_queue_size{sport="NBA"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	h, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/admin/map", nil)
	req.Header.Set("Origin", "http://admin.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestGameCalendar(t *testing.T) {
	h, store, _ := newTestRouter(t)

	w := do(t, h, http.MethodGet, "/api/games/"+lakersID+"/calendar.ics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(w.Body.String(), "SUMMARY:NBA: Los Angeles Lakers @ Boston Celtics") {
		t.Errorf("body:\n%s", w.Body.String())
	}

	if w := do(t, h, http.MethodGet, "/api/games/nope/calendar.ics", ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown game status = %d", w.Code)
	}

	undated := seedGame("EPL_Arsenal_vs_Chelsea_matchweek16", schedule.SportEPL, "Arsenal", "Chelsea", "")
	undated.Date = ""
	if err := store.UpsertGame(context.Background(), undated); err != nil {
		t.Fatal(err)
	}
	if w := do(t, h, http.MethodGet, "/api/games/"+undated.ID+"/calendar.ics", ""); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("undated game status = %d", w.Code)
	}
}
