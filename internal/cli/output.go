package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pfrederiksen/watchwherelive/internal/curation"
	"github.com/pfrederiksen/watchwherelive/internal/ingest"
	"github.com/pfrederiksen/watchwherelive/internal/schedule"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// ScrapeResult is the output of one scrape invocation
type ScrapeResult struct {
	CheckedAt time.Time        `json:"checked_at"`
	Reports   []*ingest.Report `json:"reports"`
}

// WriteScrapeResult writes the run reports in the specified format
func WriteScrapeResult(w io.Writer, result *ScrapeResult, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, result)
	case FormatText:
		return writeReportsText(w, result, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// WriteQueue writes the validation queue in the specified format
func WriteQueue(w io.Writer, games []*schedule.GameRecord, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		if games == nil {
			games = []*schedule.GameRecord{}
		}
		return writeJSON(w, games)
	case FormatText:
		return writeQueueText(w, games, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// WriteRules writes saved DMA rules in the specified format
func WriteRules(w io.Writer, rules []*schedule.DMARule, format OutputFormat) error {
	switch format {
	case FormatJSON:
		if rules == nil {
			rules = []*schedule.DMARule{}
		}
		return writeJSON(w, rules)
	case FormatText:
		if len(rules) == 0 {
			fmt.Fprintln(w, "No rules found.")
			return nil
		}
		for _, r := range rules {
			fmt.Fprintf(w, "%s  %-4s %-6s %s -> %s\n", r.ID, r.Sport, r.DMACode, r.Team, r.Channel)
		}
		fmt.Fprintf(w, "\nTotal: %d rules\n", len(rules))
		return nil
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// WriteRuleSaved reports a saved rule
func WriteRuleSaved(w io.Writer, res *curation.RuleResult, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, map[string]interface{}{
			"success": true,
			"message": "DMA Rule saved.",
			"id":      res.Rule.ID,
			"applied": res.Applied,
		})
	case FormatText:
		fmt.Fprintf(w, "DMA Rule saved: %s %s %s -> %s (id %s)\n",
			res.Rule.Sport, res.Rule.DMACode, res.Rule.Team, res.Rule.Channel, res.Rule.ID)
		fmt.Fprintf(w, "Applied to %d queued games\n", res.Applied)
		return nil
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// writeJSON outputs results as JSON
func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func writeReportsText(w io.Writer, result *ScrapeResult, verbose bool) error {
	if len(result.Reports) == 0 {
		fmt.Fprintln(w, "No leagues scraped.")
		return nil
	}

	var created, updated int
	for _, r := range result.Reports {
		if r.Failed() {
			fmt.Fprintf(w, "%s: FAILED: %s\n", strings.ToUpper(r.League), r.Error)
			continue
		}
		created += r.Created
		updated += r.Updated

		fmt.Fprintf(w, "%s: %d parsed, %d new, %d updated, %d unchanged",
			strings.ToUpper(r.League), r.Parsed, r.Created, r.Updated, r.Unchanged)
		if r.Skipped > 0 {
			fmt.Fprintf(w, ", %d skipped", r.Skipped)
		}
		if r.StoreFailures > 0 {
			fmt.Fprintf(w, ", %d store failures", r.StoreFailures)
		}
		fmt.Fprintln(w)
		if verbose {
			fmt.Fprintf(w, "     Took: %s\n", r.Duration.Round(time.Millisecond))
		}
	}

	fmt.Fprintf(w, "\nTotal: %d new, %d updated across %d leagues\n", created, updated, len(result.Reports))
	return nil
}

func writeQueueText(w io.Writer, games []*schedule.GameRecord, verbose bool) error {
	if len(games) == 0 {
		fmt.Fprintln(w, "No games awaiting validation.")
		return nil
	}

	for _, g := range games {
		date := g.Date
		if date == "" {
			date = g.DateText
		}
		fmt.Fprintf(w, "%s %s: %s", g.Sport, date, g.Matchup())
		if len(g.NationalBroadcasts) > 0 {
			fmt.Fprintf(w, " [%s]", strings.Join(g.NationalBroadcasts, ", "))
		}
		fmt.Fprintln(w)

		if verbose {
			fmt.Fprintf(w, "     ID: %s\n", g.ID)
			if g.TimeText != "" {
				fmt.Fprintf(w, "     Time: %s\n", g.TimeText)
			}
			if g.RegionalHint != "" {
				fmt.Fprintf(w, "     Regional: %s\n", g.RegionalHint)
			}
			for market, channel := range g.RegionalBroadcastMap {
				fmt.Fprintf(w, "     %s: %s\n", market, channel)
			}
		}
	}
	fmt.Fprintf(w, "\nTotal: %d games awaiting validation\n", len(games))
	return nil
}
