// Package curation is the curator-facing side of the store: the validation queue,
// DMA rules and game sign-off, plus the HTTP API that exposes them.
//
// Scraped Tier 1 fields are never written here. Every write goes to the curator-owned
// regional_broadcast_map and is_validated fields.
package curation
