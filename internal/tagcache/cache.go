package tagcache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"winnow/internal/identity"
	"winnow/internal/logging"
)

// Record holds everything winnow learned about one image. Tags keep the order
// the tagger produced; TranslatedTags is the same list after lexicon
// substitution (identical when no lexicon is configured).
type Record struct {
	Path           string    `json:"path"`
	FileName       string    `json:"file_name"`
	Tags           []string  `json:"tags"`
	TranslatedTags []string  `json:"translated_tags"`
	Width          int       `json:"width,omitempty"`
	Height         int       `json:"height,omitempty"`
	PerceptualHash string    `json:"perceptual_hash,omitempty"`
	CapturedAt     time.Time `json:"captured_at,omitzero"`
	TaggedAt       time.Time `json:"tagged_at"`
	Tagger         string    `json:"tagger,omitempty"`
}

// Entry pairs a record with the fingerprint it is stored under. Used by the
// CLI listing surface; the on-disk format is the fingerprint-keyed map.
type Entry struct {
	Fingerprint identity.Fingerprint
	Record
}

// Cache provides thread-safe access to the fingerprint cache.
type Cache struct {
	path      string
	logger    *slog.Logger
	mu        sync.RWMutex
	persistMu sync.Mutex
	entries   map[identity.Fingerprint]Record
}

// New creates a cache instance backed by the JSON file at path. If path is
// empty the cache is non-functional and every operation becomes a no-op. The
// file is created lazily on first persist.
func New(path string, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "tagcache")

	c := &Cache{
		path:    path,
		logger:  logger,
		entries: make(map[identity.Fingerprint]Record),
	}

	if path == "" {
		return c
	}

	if err := c.load(); err != nil {
		logger.Warn("failed to load tag cache",
			logging.String(logging.FieldEventType, "tagcache_load_failed"),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "cache will start empty"),
			logging.String(logging.FieldImpact, "previously tagged images will be re-tagged"))
	}

	return c
}

// Lookup returns the record stored under fp if present.
func (c *Cache) Lookup(fp identity.Fingerprint) (Record, bool) {
	if fp == "" || c.path == "" {
		return Record{}, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	record, found := c.entries[fp]
	return record, found
}

// Upsert stores record under fp and persists the cache.
func (c *Cache) Upsert(fp identity.Fingerprint, record Record) error {
	if fp == "" {
		return errors.New("fingerprint cannot be empty")
	}
	if c.path == "" {
		return nil
	}

	c.mu.Lock()
	c.entries[fp] = record
	c.mu.Unlock()

	if err := c.Persist(); err != nil {
		return fmt.Errorf("persist cache: %w", err)
	}

	c.logger.Debug("cached tagging result",
		logging.String(logging.FieldFingerprint, string(fp)),
		logging.String(logging.FieldImage, record.FileName),
		logging.Int("tag_count", len(record.Tags)))

	return nil
}

// Rekey moves a record to a new fingerprint, typically after relocation
// rewrote the file and its bytes now hash differently. The old entry is
// removed, the record is stored under newFP, and the cache is persisted once.
func (c *Cache) Rekey(oldFP, newFP identity.Fingerprint, record Record) error {
	if newFP == "" {
		return errors.New("fingerprint cannot be empty")
	}
	if c.path == "" {
		return nil
	}

	c.mu.Lock()
	if oldFP != "" && oldFP != newFP {
		delete(c.entries, oldFP)
	}
	c.entries[newFP] = record
	c.mu.Unlock()

	if err := c.Persist(); err != nil {
		return fmt.Errorf("persist cache: %w", err)
	}

	c.logger.Debug("re-keyed cache entry",
		logging.String("old_fingerprint", string(oldFP)),
		logging.String(logging.FieldFingerprint, string(newFP)),
		logging.String(logging.FieldImage, record.FileName))

	return nil
}

// Entries returns all records sorted by TaggedAt descending (newest first).
func (c *Cache) Entries() []Entry {
	if c.path == "" {
		return nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entries := make([]Entry, 0, len(c.entries))
	for fp, record := range c.entries {
		entries = append(entries, Entry{Fingerprint: fp, Record: record})
	}

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].TaggedAt.Equal(entries[j].TaggedAt) {
			return entries[i].TaggedAt.After(entries[j].TaggedAt)
		}
		return entries[i].Fingerprint < entries[j].Fingerprint
	})

	return entries
}

// Count returns the number of cached records.
func (c *Cache) Count() int {
	if c.path == "" {
		return 0
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// Clear removes all entries and persists the empty cache.
func (c *Cache) Clear() error {
	if c.path == "" {
		return nil
	}

	c.mu.Lock()
	c.entries = make(map[identity.Fingerprint]Record)
	c.mu.Unlock()

	if err := c.Persist(); err != nil {
		return fmt.Errorf("persist cache: %w", err)
	}

	c.logger.Debug("cleared tag cache")
	return nil
}

// Persist writes the current cache contents to disk atomically. Writers are
// serialized by a dedicated mutex so concurrent upserts never interleave
// half-written files; the snapshot reflects at least the state at call time.
func (c *Cache) Persist() error {
	if c.path == "" {
		return nil
	}

	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.RLock()
	snapshot := make(map[identity.Fingerprint]Record, len(c.entries))
	for fp, record := range c.entries {
		snapshot[fp] = record
	}
	c.mu.RUnlock()

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, c.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}

// load reads the cache from disk into memory.
func (c *Cache) load() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read cache file: %w", err)
	}

	if len(data) == 0 {
		return nil
	}

	var entries map[identity.Fingerprint]Record
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse cache file: %w", err)
	}

	c.entries = make(map[identity.Fingerprint]Record, len(entries))
	for fp, record := range entries {
		if fp != "" {
			c.entries[fp] = record
		}
	}

	c.logger.Debug("loaded tag cache",
		logging.Int("entries", len(c.entries)),
		logging.String("path", c.path))

	return nil
}
