package catalog

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/iter"

	"shelfhub/pkg/models"
	"shelfhub/pkg/utils"
)

// Aggregator fans a query out to every provider that serves the requested
// content type and merges the answers into one deduplicated list.
// Providers are merged in slice order, so the order of Providers is the
// priority order for duplicates.
type Aggregator struct {
	Providers []Provider

	// Limit is the number of results requested from each provider.
	Limit int
	// Timeout bounds each provider call. Zero means only the caller's
	// context applies.
	Timeout time.Duration
}

func NewAggregator(limit int, timeout time.Duration, providers ...Provider) *Aggregator {
	if limit <= 0 {
		limit = DefaultProviderLimit
	}
	return &Aggregator{Providers: providers, Limit: limit, Timeout: timeout}
}

// FromConfig wires the three public catalogs in priority order: Google
// Books, Apple Books, Jikan.
func FromConfig(cfg utils.SearchConfig) (*Aggregator, *GoogleBooks) {
	client := NewHTTPClient()
	google := NewGoogleBooks(cfg.GoogleBooksURL, client)
	agg := NewAggregator(cfg.ProviderLimit, cfg.ProviderTimeout,
		google,
		NewAppleBooks(cfg.AppleBooksURL, client),
		NewJikan(cfg.JikanURL, client),
	)
	return agg, google
}

// Search returns at most MaxResults results. Provider failures are logged
// and treated as empty answers; the only error is ErrInvalidInput.
func (a *Aggregator) Search(ctx context.Context, query string, typ models.ContentType) ([]models.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidInput)
	}
	if typ == "" {
		typ = models.TypeAll
	}
	if typ != models.TypeAll && typ != models.TypeBook && typ != models.TypeManga {
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidInput, typ)
	}

	selected := make([]Provider, 0, len(a.Providers))
	for _, p := range a.Providers {
		if typ == models.TypeAll || p.Type() == typ {
			selected = append(selected, p)
		}
	}
	if len(selected) == 0 {
		return []models.SearchResult{}, nil
	}

	// every selected provider runs at once; Map returns after all of them
	// have settled, with answers in provider order
	mapper := iter.Mapper[Provider, []models.SearchResult]{MaxGoroutines: len(selected)}
	batches := mapper.Map(selected, func(p *Provider) []models.SearchResult {
		return a.searchOne(ctx, *p, query)
	})

	merged := dedupe(batches)
	if typ != models.TypeAll {
		rankByType(merged, typ)
	}
	if len(merged) > MaxResults {
		merged = merged[:MaxResults]
	}
	return merged, nil
}

func (a *Aggregator) searchOne(ctx context.Context, p Provider, query string) (results []models.SearchResult) {
	if a.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.Timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("provider", p.Name()).Interface("panic", r).Msg("search provider panicked")
			results = nil
		}
	}()

	start := time.Now()
	results, err := p.Search(ctx, query, a.Limit)
	if err != nil {
		log.Warn().Err(err).
			Str("provider", p.Name()).
			Dur("elapsed", time.Since(start)).
			Msg("search provider failed")
		return nil
	}
	return results
}

func dedupeKey(r models.SearchResult) string {
	return strings.ToLower(r.Title) + "\x00" + strings.ToLower(r.Authors)
}

// dedupe flattens the batches in order and keeps the first record for each
// case-insensitive (title, authors) pair.
func dedupe(batches [][]models.SearchResult) []models.SearchResult {
	seen := make(map[string]struct{})
	out := make([]models.SearchResult, 0)
	for _, batch := range batches {
		for _, r := range batch {
			r = normalize(r)
			key := dedupeKey(r)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, r)
		}
	}
	return out
}

// rankByType moves records of the requested type ahead of the rest without
// disturbing relative order inside either group.
func rankByType(results []models.SearchResult, typ models.ContentType) {
	slices.SortStableFunc(results, func(x, y models.SearchResult) int {
		xm, ym := x.Type == typ, y.Type == typ
		switch {
		case xm && !ym:
			return -1
		case !xm && ym:
			return 1
		default:
			return 0
		}
	})
}
