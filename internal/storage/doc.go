// Package storage persists game records and DMA rules.
//
// Three backends share one interface: a JSON document on local disk (the default,
// stored under ~/.local/share/watchwherelive or the configured data_dir), Redis, and
// PostgreSQL through GORM. Every backend writes scraped records through schedule.Merge,
// so curator-owned fields survive a re-scrape.
package storage
