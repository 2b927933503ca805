package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ZaguanLabs/slanger"
)

// SeedVersion is the seed file format version written by Exporter.
const SeedVersion = "1.0"

// SeedFile is the JSON/YAML structure for dictionary export and import.
type SeedFile struct {
	Version    string            `json:"version" yaml:"version"`
	ExportedAt string            `json:"exported_at,omitempty" yaml:"exported_at,omitempty"`
	Entries    []SeedEntry       `json:"entries" yaml:"entries"`
	Metadata   map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// SeedEntry is one term's interpretation.
type SeedEntry struct {
	Term        string `json:"term" yaml:"term"`
	MeaningLine string `json:"meaning_line" yaml:"meaning_line"`
	Example     string `json:"example,omitempty" yaml:"example,omitempty"`
}

// Exporter writes the latest interpretation of every term.
type Exporter struct {
	store slanger.RecordStore
}

// NewExporter creates a new exporter.
func NewExporter(store slanger.RecordStore) *Exporter {
	return &Exporter{store: store}
}

// Export writes the store contents to w in JSON format.
func (e *Exporter) Export(ctx context.Context, w io.Writer, metadata map[string]string) error {
	entries, err := Snapshot(ctx, e.store)
	if err != nil {
		return err
	}

	seed := SeedFile{
		Version:    SeedVersion,
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Entries:    entries,
		Metadata:   metadata,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(seed); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return nil
}

// Snapshot returns the latest record of every term as seed entries.
func Snapshot(ctx context.Context, store slanger.RecordStore) ([]SeedEntry, error) {
	terms, err := store.Terms(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing terms: %w", err)
	}

	entries := make([]SeedEntry, 0, len(terms))
	for _, term := range terms {
		rec, err := store.FindLatestByTerm(ctx, term)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", term, err)
		}
		if rec == nil {
			continue
		}
		entries = append(entries, SeedEntry{
			Term:        rec.Term,
			MeaningLine: rec.Meaning,
			Example:     rec.Example,
		})
	}
	return entries, nil
}

// ExportToFile exports the store to a file.
// The path is provided by the caller and is intentionally user-controlled.
func (e *Exporter) ExportToFile(ctx context.Context, path string, metadata map[string]string) error {
	f, err := os.Create(path) // #nosec G304 - path is intentionally user-provided
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	return e.Export(ctx, f, metadata)
}

// Format selects the seed file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format by file extension (JSON by default).
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// ImportResult contains statistics about the import operation.
type ImportResult struct {
	Version  string
	Metadata map[string]string
	Imported int
	Skipped  int // Fallback lines and entries already current in the store
	Failed   int
}

// Importer loads seed entries into a store.
type Importer struct {
	store slanger.RecordStore
}

// NewImporter creates a new importer.
func NewImporter(store slanger.RecordStore) *Importer {
	return &Importer{store: store}
}

// Import reads seed entries from r and appends them to the store.
// Fallback lines are never imported, a repeated term keeps only its last
// entry, and an entry whose meaning already is the term's latest record is
// skipped so repeated imports stay idempotent.
func (i *Importer) Import(ctx context.Context, r io.Reader, format Format) (*ImportResult, error) {
	seed, err := DecodeSeed(r, format)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{
		Version:  seed.Version,
		Metadata: seed.Metadata,
	}

	entries, skipped := collapseEntries(seed.Entries)
	result.Skipped = skipped

	for _, entry := range entries {
		term, line := entry.Term, entry.MeaningLine

		latest, err := i.store.FindLatestByTerm(ctx, term)
		if err != nil {
			result.Failed++
			continue
		}
		if latest != nil && latest.Meaning == line {
			result.Skipped++
			continue
		}

		if _, err := i.store.Append(ctx, term, line, entry.Example); err != nil {
			result.Failed++
			continue
		}
		result.Imported++
	}

	return result, nil
}

// DecodeSeed reads a seed file in the given format.
func DecodeSeed(r io.Reader, format Format) (*SeedFile, error) {
	var seed SeedFile
	switch format {
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&seed); err != nil {
			return nil, fmt.Errorf("decoding YAML: %w", err)
		}
	default:
		if err := json.NewDecoder(r).Decode(&seed); err != nil {
			return nil, fmt.Errorf("decoding JSON: %w", err)
		}
	}
	return &seed, nil
}

// normalizeEntry trims the term and line; ok is false for entries that
// must not be imported.
func normalizeEntry(entry SeedEntry) (SeedEntry, bool) {
	entry.Term = strings.TrimSpace(entry.Term)
	entry.MeaningLine = slanger.TruncateLine(entry.MeaningLine)
	if entry.Term == "" || slanger.IsFallback(entry.MeaningLine) {
		return entry, false
	}
	return entry, true
}

// collapseEntries normalizes entries and keeps the last entry of each term,
// in order of first appearance. skipped counts dropped and superseded entries.
func collapseEntries(entries []SeedEntry) (unique []SeedEntry, skipped int) {
	index := make(map[string]int, len(entries))
	for _, entry := range entries {
		entry, ok := normalizeEntry(entry)
		if !ok {
			skipped++
			continue
		}
		if i, seen := index[entry.Term]; seen {
			unique[i] = entry
			skipped++
			continue
		}
		index[entry.Term] = len(unique)
		unique = append(unique, entry)
	}
	return unique, skipped
}

// ImportFromFile imports seed entries from a file, choosing the format by extension.
// The path is provided by the caller and is intentionally user-controlled.
func (i *Importer) ImportFromFile(ctx context.Context, path string) (*ImportResult, error) {
	f, err := os.Open(path) // #nosec G304 - path is intentionally user-provided
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	return i.Import(ctx, f, FormatFromPath(path))
}
