package slanger

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ResolveMany resolves several terms that share one context sentence.
// Terms are trimmed and de-duplicated; empty terms are skipped. The result
// maps each distinct term to its line. ErrEmptyTerm is returned only when
// no term is left to resolve.
func (s *Service) ResolveMany(ctx context.Context, terms []string, sentence string) (map[string]string, error) {
	unique := make([]string, 0, len(terms))
	seen := make(map[string]bool, len(terms))
	for _, term := range terms {
		term = strings.TrimSpace(term)
		if term == "" || seen[term] {
			continue
		}
		seen[term] = true
		unique = append(unique, term)
	}
	if len(unique) == 0 {
		return nil, ErrEmptyTerm
	}

	results := make(map[string]string, len(unique))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, term := range unique {
		g.Go(func() error {
			line, err := s.Resolve(gctx, term, sentence)
			if err != nil {
				return err
			}
			mu.Lock()
			results[term] = line
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
