package store

import (
	"context"
	"io"
)

// DiffResult represents the difference between the store and a seed file.
type DiffResult struct {
	// Added contains terms the store does not know yet.
	Added []SeedEntry

	// Removed contains stored terms the seed file does not mention.
	// Imports never delete, so these are informational.
	Removed []SeedEntry

	// Unchanged contains terms whose latest meaning already matches.
	Unchanged []SeedEntry

	// Modified contains terms whose meaning line differs.
	Modified []ModifiedEntry

	// Skipped counts seed entries that would never be imported, including
	// entries superseded by a later entry for the same term.
	Skipped int
}

// ModifiedEntry pairs a stored entry with its replacement.
type ModifiedEntry struct {
	Old SeedEntry
	New SeedEntry
}

// Stats returns summary statistics for the diff.
func (d *DiffResult) Stats() DiffStats {
	return DiffStats{
		Added:     len(d.Added),
		Removed:   len(d.Removed),
		Unchanged: len(d.Unchanged),
		Modified:  len(d.Modified),
		Skipped:   d.Skipped,
	}
}

// DiffStats contains summary statistics for a diff.
type DiffStats struct {
	Added     int
	Removed   int
	Unchanged int
	Modified  int
	Skipped   int
}

// HasChanges returns true if importing would append anything.
func (d *DiffResult) HasChanges() bool {
	return len(d.Added) > 0 || len(d.Modified) > 0
}

// NeedsImport returns the entries an import would append.
func (d *DiffResult) NeedsImport() []SeedEntry {
	result := make([]SeedEntry, 0, len(d.Added)+len(d.Modified))
	result = append(result, d.Added...)
	for _, m := range d.Modified {
		result = append(result, m.New)
	}
	return result
}

// DiffEntries compares the current store snapshot with incoming seed
// entries. Incoming entries are collapsed the way Import does, so the
// plan matches what an import would append.
func DiffEntries(current, incoming []SeedEntry) *DiffResult {
	result := &DiffResult{}

	currentByTerm := make(map[string]SeedEntry, len(current))
	for _, entry := range current {
		currentByTerm[entry.Term] = entry
	}

	entries, skipped := collapseEntries(incoming)
	result.Skipped = skipped

	incomingByTerm := make(map[string]bool, len(entries))
	for _, entry := range entries {
		incomingByTerm[entry.Term] = true
		old, exists := currentByTerm[entry.Term]
		switch {
		case !exists:
			result.Added = append(result.Added, entry)
		case old.MeaningLine == entry.MeaningLine:
			result.Unchanged = append(result.Unchanged, entry)
		default:
			result.Modified = append(result.Modified, ModifiedEntry{Old: old, New: entry})
		}
	}

	for _, entry := range current {
		if _, exists := incomingByTerm[entry.Term]; !exists {
			result.Removed = append(result.Removed, entry)
		}
	}

	return result
}

// Plan decodes a seed file from r and diffs it against the store without
// writing anything.
func (i *Importer) Plan(ctx context.Context, r io.Reader, format Format) (*DiffResult, error) {
	seed, err := DecodeSeed(r, format)
	if err != nil {
		return nil, err
	}

	current, err := Snapshot(ctx, i.store)
	if err != nil {
		return nil, err
	}
	return DiffEntries(current, seed.Entries), nil
}
