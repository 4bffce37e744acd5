package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/pfrederiksen/watchwherelive/internal/config"
)

const (
	UserAgent      = "watchwherelive/1.0 (github.com/pfrederiksen/watchwherelive)"
	DefaultTimeout = 30 * time.Second
)

// ErrNoSchedule means the page loaded but contained no schedule sections
var ErrNoSchedule = errors.New("no schedule sections found")

// FetchError is a network, timeout or HTTP status failure for a whole page
type FetchError struct {
	URL        string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetching %s: unexpected status code: %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError reports a game block, or a whole page, missing an expected element
type ParseError struct {
	League  string
	Context string // date header or raw block text identifying the game
	Reason  string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Context == "" {
		return fmt.Sprintf("parsing %s: %s", e.League, e.Reason)
	}
	return fmt.Sprintf("parsing %s (%s): %s", e.League, e.Context, e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Candidate is one game as extracted from the page, before normalization
type Candidate struct {
	Sport        string
	League       string
	DateText     string
	TimeText     string
	AwayTeam     string
	HomeTeam     string
	Broadcasts   []string
	RegionalHint string
	SourceURL    string
}

// Page is the result of parsing one schedule page
type Page struct {
	Candidates []Candidate
	Skipped    []error // per-game ParseErrors
}

func (p *Page) skip(league, context, reason string) {
	p.Skipped = append(p.Skipped, &ParseError{League: league, Context: context, Reason: reason})
}

// ParseFunc extracts candidates from a parsed document
type ParseFunc func(doc *goquery.Document, sourceURL string) (*Page, error)

var parsers = map[string]ParseFunc{
	"nba": ParseNBA,
	"epl": ParseEPL,
}

// Parser returns the parser registered under name
func Parser(name string) (ParseFunc, bool) {
	p, ok := parsers[name]
	return p, ok
}

// Parsers lists the registered parser names
func Parsers() []string {
	names := make([]string, 0, len(parsers))
	for name := range parsers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Scraper fetches and parses one league's schedule page
type Scraper struct {
	client  *http.Client
	url     string
	parse   ParseFunc
	timeout time.Duration
}

// New creates a Scraper for a configured league
func New(league config.LeagueConfig) (*Scraper, error) {
	parse, ok := Parser(league.Parser)
	if !ok {
		return nil, fmt.Errorf("league %s: unknown parser %q", league.Key, league.Parser)
	}
	return NewWithParser(league.URL, league.Timeout, parse), nil
}

// NewWithParser creates a Scraper for an arbitrary URL and parser
func NewWithParser(url string, timeout time.Duration, parse ParseFunc) *Scraper {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Scraper{
		client:  &http.Client{},
		url:     url,
		parse:   parse,
		timeout: timeout,
	}
}

// URL returns the page the scraper reads
func (s *Scraper) URL() string {
	return s.url
}

// FetchGames downloads the page within the scraper's timeout and parses it.
// A *FetchError means nothing was read; a *ParseError wrapping ErrNoSchedule means
// the page had no schedule at all.
func (s *Scraper) FetchGames(ctx context.Context) (*Page, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, &FetchError{URL: s.url, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: s.url, Err: err}
	}
	defer resp.Body.Close() // nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: s.url, StatusCode: resp.StatusCode}
	}

	return s.parseBody(resp.Body)
}

func (s *Scraper) parseBody(r io.Reader) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		// a body cut off by the deadline surfaces here
		return nil, &FetchError{URL: s.url, Err: fmt.Errorf("reading HTML: %w", err)}
	}
	return s.parse(doc, s.url)
}
