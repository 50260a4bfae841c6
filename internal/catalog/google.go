package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"shelfhub/pkg/models"
)

const (
	DefaultDirectLimit = 20
	MaxDirectLimit     = 40
)

// SearchMode selects how a direct Google Books query is built.
type SearchMode string

const (
	ModeGeneral SearchMode = "general"
	ModeAuthor  SearchMode = "author"
	ModeTitle   SearchMode = "title"
	ModePopular SearchMode = "popular"
)

// GoogleBooks queries the Google Books volumes API.
type GoogleBooks struct {
	BaseURL string
	Client  *http.Client
}

func NewGoogleBooks(baseURL string, client *http.Client) *GoogleBooks {
	if client == nil {
		client = NewHTTPClient()
	}
	return &GoogleBooks{BaseURL: strings.TrimRight(baseURL, "/"), Client: client}
}

func (g *GoogleBooks) Name() string             { return "google_books" }
func (g *GoogleBooks) Type() models.ContentType { return models.TypeBook }

type googleVolume struct {
	ID         string `json:"id"`
	VolumeInfo struct {
		Title         string   `json:"title"`
		Authors       []string `json:"authors"`
		Description   string   `json:"description"`
		PageCount     *int     `json:"pageCount"`
		PublishedDate string   `json:"publishedDate"`
		Categories    []string `json:"categories"`
		ImageLinks    *struct {
			Thumbnail      string `json:"thumbnail"`
			SmallThumbnail string `json:"smallThumbnail"`
		} `json:"imageLinks"`
	} `json:"volumeInfo"`
}

type googleResponse struct {
	TotalItems int            `json:"totalItems"`
	Items      []googleVolume `json:"items"`
}

func (g *GoogleBooks) Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("maxResults", strconv.Itoa(limit))
	params.Set("orderBy", "relevance")
	return g.volumes(ctx, params)
}

// Query runs a direct search with one of the search modes. An empty
// query is only accepted in popular mode.
func (g *GoogleBooks) Query(ctx context.Context, query string, mode SearchMode, limit int) ([]models.SearchResult, error) {
	query = strings.TrimSpace(query)
	if limit <= 0 {
		limit = DefaultDirectLimit
	}
	if limit > MaxDirectLimit {
		limit = MaxDirectLimit
	}

	var q string
	switch mode {
	case "", ModeGeneral:
		q = query
	case ModeAuthor:
		q = `inauthor:"` + query + `"`
	case ModeTitle:
		q = `intitle:"` + query + `"`
	case ModePopular:
		q = "subject:" + query
		if query == "" {
			q = "bestseller"
		}
		limit = MaxDirectLimit
	default:
		return nil, fmt.Errorf("%w: unknown search mode %q", ErrInvalidInput, mode)
	}
	if mode != ModePopular && query == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidInput)
	}

	params := url.Values{}
	params.Set("q", q)
	params.Set("maxResults", strconv.Itoa(limit))
	params.Set("langRestrict", "es,en")
	return g.volumes(ctx, params)
}

// Volume fetches a single volume by id.
func (g *GoogleBooks) Volume(ctx context.Context, id string) (*models.SearchResult, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: id is required", ErrInvalidInput)
	}

	var v googleVolume
	endpoint := g.BaseURL + "/books/v1/volumes/" + url.PathEscape(id)
	if err := getJSON(ctx, g.Client, g.Name(), endpoint, &v); err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	r := mapGoogleVolume(v)
	return &r, nil
}

func (g *GoogleBooks) volumes(ctx context.Context, params url.Values) ([]models.SearchResult, error) {
	var resp googleResponse
	endpoint := g.BaseURL + "/books/v1/volumes?" + params.Encode()
	if err := getJSON(ctx, g.Client, g.Name(), endpoint, &resp); err != nil {
		return nil, err
	}

	out := make([]models.SearchResult, 0, len(resp.Items))
	for _, item := range resp.Items {
		out = append(out, mapGoogleVolume(item))
	}
	return out, nil
}

func mapGoogleVolume(v googleVolume) models.SearchResult {
	info := v.VolumeInfo
	r := models.SearchResult{
		ID:            v.ID,
		Title:         info.Title,
		Authors:       joinNonEmpty(info.Authors),
		Description:   optString(info.Description),
		PageCount:     info.PageCount,
		PublishedDate: optString(info.PublishedDate),
		Categories:    info.Categories,
		Type:          models.TypeBook,
		Source:        models.SourceGoogle,
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if info.ImageLinks != nil {
		thumb := info.ImageLinks.Thumbnail
		if thumb == "" {
			thumb = info.ImageLinks.SmallThumbnail
		}
		if strings.HasPrefix(thumb, "http:") {
			thumb = "https:" + strings.TrimPrefix(thumb, "http:")
		}
		r.Thumbnail = optString(thumb)
	}
	return normalize(r)
}
