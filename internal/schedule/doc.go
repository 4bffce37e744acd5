// Package schedule provides the canonical game record and the pure functions that build it.
//
// The schedule package normalizes scraped team names and broadcaster lists, derives a
// deterministic identifier for every game from its league, matchup and date, and merges a
// freshly scraped candidate with the stored record. Scraped (Tier 1) fields always take the
// candidate's values while curator-owned (Tier 2) fields, the regional broadcast map and the
// validation flag, are carried forward untouched.
package schedule
