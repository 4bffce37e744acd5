// Package cli implements the command-line interface for watchwherelive.
//
// The cli package provides the Cobra-based CLI: scrape runs the ingest pipeline and
// prints a run report (text/JSON), serve starts the curation API with optional cron
// scrapes, queue lists games awaiting validation, and map saves or lists DMA rules.
// Every command loads the same viper configuration and opens the configured store.
package cli
