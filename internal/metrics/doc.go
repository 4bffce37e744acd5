// Package metrics exposes Prometheus counters and histograms for scrape runs and the curation API.
package metrics
