package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pfrederiksen/watchwherelive/internal/config"
)

const eplPage = `
<html>
	<body>
		<h3 class="text-stvsDate">Saturday, December 6</h3>
		<ul>
			<li>
				<span class="text-stvsMatchHour">10:00 AM</span>
				<h4 class="text-stvsMatchTitle">Liverpool FC vs. Man City (Premier League)</h4>
				<div class="text-stvsProviderLink"><a>NBC</a></div>
			</li>
		</ul>
	</body>
</html>
`

func TestFetchGames(t *testing.T) {
	tests := []struct {
		name           string
		htmlContent    string
		statusCode     int
		wantFetchErr   bool
		wantParseErr   bool
		wantCandidates int
	}{
		{
			name:           "successful fetch with games",
			htmlContent:    eplPage,
			statusCode:     http.StatusOK,
			wantCandidates: 1,
		},
		{
			name:         "server error",
			htmlContent:  "Internal Server Error",
			statusCode:   http.StatusInternalServerError,
			wantFetchErr: true,
		},
		{
			name:         "not found",
			htmlContent:  "Not Found",
			statusCode:   http.StatusNotFound,
			wantFetchErr: true,
		},
		{
			name:         "page without schedule",
			htmlContent:  "<html><body>Maintenance</body></html>",
			statusCode:   http.StatusOK,
			wantParseErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if ua := r.Header.Get("User-Agent"); ua != UserAgent {
					t.Errorf("User-Agent = %q", ua)
				}
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.htmlContent))
			}))
			defer server.Close()

			s := NewWithParser(server.URL, time.Second, ParseEPL)
			page, err := s.FetchGames(context.Background())

			var ferr *FetchError
			if got := errors.As(err, &ferr); got != tt.wantFetchErr {
				t.Fatalf("FetchError = %v, want %v (err %v)", got, tt.wantFetchErr, err)
			}
			if tt.wantFetchErr && ferr.StatusCode != tt.statusCode {
				t.Errorf("status = %d, want %d", ferr.StatusCode, tt.statusCode)
			}
			if got := errors.Is(err, ErrNoSchedule); got != tt.wantParseErr {
				t.Fatalf("ErrNoSchedule = %v, want %v (err %v)", got, tt.wantParseErr, err)
			}
			if err != nil {
				return
			}
			if len(page.Candidates) != tt.wantCandidates {
				t.Errorf("candidates = %d, want %d", len(page.Candidates), tt.wantCandidates)
			}
			if page.Candidates[0].SourceURL != server.URL {
				t.Errorf("source url = %q", page.Candidates[0].SourceURL)
			}
		})
	}
}

func TestFetchGames_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	s := NewWithParser(server.URL, 50*time.Millisecond, ParseEPL)
	_, err := s.FetchGames(context.Background())

	var ferr *FetchError
	if !errors.As(err, &ferr) {
		t.Fatalf("error = %v, want *FetchError", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want deadline exceeded", err)
	}
}

func TestNew(t *testing.T) {
	cfg := config.Default()

	nba, _ := cfg.League("nba")
	s, err := New(nba)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if s.URL() != "https://www.nba.com/schedule" || s.timeout != 30*time.Second {
		t.Errorf("scraper = %+v", s)
	}

	nba.Parser = "cricket"
	if _, err := New(nba); err == nil {
		t.Error("expected error for unknown parser")
	}
}
