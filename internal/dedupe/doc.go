// Package dedupe provides event deduplication using a time-based cache
// to prevent processing replayed events within a configurable window.
package dedupe
