package cli

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/watchwherelive/internal/ingest"
)

func newScrapeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scrape [league...]",
		Short: "Scrape league schedules into the store",
		Long: `Fetch each league's schedule page and merge its games into the store.
Without arguments every enabled league is scraped.

Exit status is 1 when a league page could not be fetched and 3 when
games were parsed but could not be stored.`,
		RunE: runScrape,
	}
}

func runScrape(cmd *cobra.Command, args []string) error {
	format, err := outputFormat()
	if err != nil {
		return err
	}

	a, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	jobs, err := ingest.Jobs(a.cfg, args)
	if err != nil {
		return err
	}

	runner := ingest.FromConfig(a.store, a.cfg, ingest.WithMetrics(a.metrics), ingest.WithLogger(a.log))
	reports := runner.RunAll(cmd.Context(), jobs)

	result := &ScrapeResult{CheckedAt: time.Now().UTC(), Reports: reports}
	if err := WriteScrapeResult(os.Stdout, result, format, flagVerbose); err != nil {
		return err
	}

	if code := scrapeExitCode(reports); code != ExitSuccess {
		return &exitError{code: code}
	}
	return nil
}

// scrapeExitCode gives fetch failures precedence over store failures
func scrapeExitCode(reports []*ingest.Report) int {
	code := ExitSuccess
	for _, r := range reports {
		if r.Failed() {
			return ExitError
		}
		if r.StoreFailures > 0 {
			code = ExitStoreFailures
		}
	}
	return code
}
