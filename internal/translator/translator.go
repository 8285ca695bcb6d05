// Package translator resolves display names for model tags. The tagger emits
// its own vocabulary; an optional lexicon file maps those tags to whatever
// the user prefers to see in file names and listings.
package translator

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"winnow/internal/logging"
)

// Translator maps model tags to display tags. Implementations are total and
// pure: every input tag gets an entry, unknown tags map to themselves.
type Translator interface {
	Translate(tags []string) map[string]string
}

// Passthrough maps every tag to itself.
type Passthrough struct{}

// Translate implements Translator.
func (Passthrough) Translate(tags []string) map[string]string {
	out := make(map[string]string, len(tags))
	for _, tag := range tags {
		out[tag] = tag
	}
	return out
}

// Lexicon translates through a fixed dictionary.
type Lexicon struct {
	entries map[string]string
}

// NewLexicon builds a Lexicon from a tag → replacement map. Blank
// replacements are dropped so they cannot erase tags.
func NewLexicon(entries map[string]string) *Lexicon {
	cleaned := make(map[string]string, len(entries))
	for tag, replacement := range entries {
		tag = strings.TrimSpace(tag)
		replacement = strings.TrimSpace(replacement)
		if tag == "" || replacement == "" {
			continue
		}
		cleaned[tag] = replacement
	}
	return &Lexicon{entries: cleaned}
}

// Translate implements Translator.
func (l *Lexicon) Translate(tags []string) map[string]string {
	out := make(map[string]string, len(tags))
	for _, tag := range tags {
		if replacement, ok := l.entries[tag]; ok {
			out[tag] = replacement
			continue
		}
		out[tag] = tag
	}
	return out
}

// Len returns the number of lexicon entries.
func (l *Lexicon) Len() int {
	return len(l.entries)
}

// Load reads a JSON lexicon (an object of tag → replacement) from path. An
// empty path means no lexicon is configured and yields a silent Passthrough;
// a missing or unreadable file degrades to Passthrough with a warning so a
// stale config never blocks a run.
func Load(path string, logger *slog.Logger) Translator {
	if strings.TrimSpace(path) == "" {
		return Passthrough{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "translator")

	lexicon, err := loadLexicon(path)
	if err != nil {
		logger.Warn("failed to load tag lexicon",
			logging.String(logging.FieldEventType, "lexicon_load_failed"),
			logging.String("translation_path", path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "tags will be used untranslated"))
		return Passthrough{}
	}

	logger.Debug("loaded tag lexicon",
		logging.String("translation_path", path),
		logging.Int("entries", lexicon.Len()))
	return lexicon
}

func loadLexicon(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("lexicon file not found: %w", err)
		}
		return nil, fmt.Errorf("read lexicon: %w", err)
	}

	var entries map[string]string
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse lexicon: %w", err)
	}
	return NewLexicon(entries), nil
}
