// Package tagcache provides the persistent cache that maps content
// fingerprints to tagging results.
//
// A fingerprint present in the cache is never sent to the tagger again, so
// re-running winnow over a folder only pays for files it has not seen before.
// Relocating a file re-keys its entry under the destination's fingerprint,
// which keeps the invariant intact across moves.
//
// # Storage
//
// The cache is a single human-readable JSON file (default:
// ~/.cache/winnow/tagcache.json) mapping fingerprint to record, written
// atomically via a temp file and rename so a crash never leaves a torn file.
// A missing or corrupt file simply starts the cache empty.
//
// CLI commands for inspection and management:
//
//	winnow cache list   # List all cached records
//	winnow cache clear  # Remove all entries
//	winnow cache path   # Print the cache file location
package tagcache
