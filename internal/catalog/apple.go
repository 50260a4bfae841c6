package catalog

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"shelfhub/pkg/models"
)

// AppleBooks queries the iTunes Search API for ebooks.
type AppleBooks struct {
	BaseURL string
	Client  *http.Client
}

func NewAppleBooks(baseURL string, client *http.Client) *AppleBooks {
	if client == nil {
		client = NewHTTPClient()
	}
	return &AppleBooks{BaseURL: strings.TrimRight(baseURL, "/"), Client: client}
}

func (a *AppleBooks) Name() string             { return "apple_books" }
func (a *AppleBooks) Type() models.ContentType { return models.TypeBook }

type appleResponse struct {
	ResultCount int `json:"resultCount"`
	Results     []struct {
		TrackID          *int64 `json:"trackId"`
		TrackName        string `json:"trackName"`
		ArtistName       string `json:"artistName"`
		Description      string `json:"description"`
		ReleaseDate      string `json:"releaseDate"`
		ArtworkURL100    string `json:"artworkUrl100"`
		PrimaryGenreName string `json:"primaryGenreName"`
	} `json:"results"`
}

func (a *AppleBooks) Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error) {
	params := url.Values{}
	params.Set("term", query)
	params.Set("media", "ebook")
	params.Set("entity", "ebook")
	params.Set("limit", strconv.Itoa(limit))

	var resp appleResponse
	if err := getJSON(ctx, a.Client, a.Name(), a.BaseURL+"/search?"+params.Encode(), &resp); err != nil {
		return nil, err
	}

	out := make([]models.SearchResult, 0, len(resp.Results))
	for _, item := range resp.Results {
		r := models.SearchResult{
			Title:         item.TrackName,
			Authors:       item.ArtistName,
			Description:   optString(item.Description),
			PublishedDate: optString(item.ReleaseDate),
			Categories:    []string{},
			Type:          models.TypeBook,
			Source:        models.SourceApple,
		}
		if item.TrackID != nil {
			r.ID = strconv.FormatInt(*item.TrackID, 10)
		} else {
			r.ID = uuid.NewString()
		}
		if item.PrimaryGenreName != "" {
			r.Categories = []string{item.PrimaryGenreName}
		}
		if item.ArtworkURL100 != "" {
			r.Thumbnail = optString(strings.Replace(item.ArtworkURL100, "100x100", "300x300", 1))
		}
		out = append(out, normalize(r))
	}
	return out, nil
}
