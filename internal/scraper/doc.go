// Package scraper fetches league schedule pages and extracts per-game candidates.
//
// Each league has a goquery parser keyed by name ("nba", "epl"). Parsers return raw
// strings as they appear on the page; normalization and ids happen in the ingest
// pipeline. A game block that lacks an expected element is reported as a ParseError
// and skipped, while a page that cannot be fetched at all is a FetchError.
package scraper
