// Package ingest runs the scrape pipeline for one or more leagues.
//
// A run fetches a league page, normalizes team names, filters broadcasters, derives
// the game id and merges each candidate over the stored record. Records whose Tier 1
// content did not change are not written. Failures are isolated per game, and a fetch
// failure aborts only the league it belongs to.
package ingest
