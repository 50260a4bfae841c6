package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"shelfhub/pkg/models"
)

const (
	DefaultProviderLimit = 10
	MaxResults           = 30
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
)

// Provider is one external catalog. Each provider is responsible for
// calling its own API and mapping the payload into models.SearchResult.
type Provider interface {
	Name() string
	Type() models.ContentType
	Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error)
}

// ParseType maps the "type" query value onto a content filter. An empty
// value means ALL.
func ParseType(s string) (models.ContentType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", string(models.TypeAll):
		return models.TypeAll, nil
	case string(models.TypeBook):
		return models.TypeBook, nil
	case string(models.TypeManga):
		return models.TypeManga, nil
	default:
		return "", fmt.Errorf("%w: type must be one of BOOK, MANGA, ALL", ErrInvalidInput)
	}
}

// StatusError is returned when a provider answers with a non-2xx status.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Code, e.Body)
}

func optString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func orPlaceholder(s, placeholder string) string {
	if strings.TrimSpace(s) == "" {
		return placeholder
	}
	return s
}

func joinNonEmpty(parts []string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}

// normalize enforces the required-field guarantees on a single record.
func normalize(r models.SearchResult) models.SearchResult {
	r.Title = orPlaceholder(r.Title, models.PlaceholderTitle)
	r.Authors = orPlaceholder(r.Authors, models.PlaceholderAuthor)
	if r.Categories == nil {
		r.Categories = []string{}
	}
	return r
}
