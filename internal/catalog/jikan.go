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

// Jikan queries the unofficial MyAnimeList API for manga.
type Jikan struct {
	BaseURL string
	Client  *http.Client
}

func NewJikan(baseURL string, client *http.Client) *Jikan {
	if client == nil {
		client = NewHTTPClient()
	}
	return &Jikan{BaseURL: strings.TrimRight(baseURL, "/"), Client: client}
}

func (j *Jikan) Name() string             { return "jikan" }
func (j *Jikan) Type() models.ContentType { return models.TypeManga }

type jikanName struct {
	Name string `json:"name"`
}

type jikanResponse struct {
	Data []struct {
		MalID        *int        `json:"mal_id"`
		Title        string      `json:"title"`
		TitleEnglish string      `json:"title_english"`
		Synopsis     string      `json:"synopsis"`
		Volumes      *int        `json:"volumes"`
		Authors      []jikanName `json:"authors"`
		Genres       []jikanName `json:"genres"`
		Published    struct {
			From string `json:"from"`
		} `json:"published"`
		Images struct {
			JPG struct {
				ImageURL      string `json:"image_url"`
				LargeImageURL string `json:"large_image_url"`
			} `json:"jpg"`
		} `json:"images"`
	} `json:"data"`
}

func (j *Jikan) Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("order_by", "score")
	params.Set("sort", "desc")

	var resp jikanResponse
	if err := getJSON(ctx, j.Client, j.Name(), j.BaseURL+"/v4/manga?"+params.Encode(), &resp); err != nil {
		return nil, err
	}

	out := make([]models.SearchResult, 0, len(resp.Data))
	for _, item := range resp.Data {
		authors := make([]string, 0, len(item.Authors))
		for _, a := range item.Authors {
			authors = append(authors, a.Name)
		}
		genres := make([]string, 0, len(item.Genres))
		for _, g := range item.Genres {
			if g.Name != "" {
				genres = append(genres, g.Name)
			}
		}

		title := item.Title
		if strings.TrimSpace(title) == "" {
			title = item.TitleEnglish
		}
		thumb := item.Images.JPG.LargeImageURL
		if thumb == "" {
			thumb = item.Images.JPG.ImageURL
		}

		r := models.SearchResult{
			Title:         title,
			Authors:       joinNonEmpty(authors),
			Description:   optString(item.Synopsis),
			VolumeCount:   item.Volumes,
			PublishedDate: optString(item.Published.From),
			Thumbnail:     optString(thumb),
			Categories:    genres,
			Type:          models.TypeManga,
			Source:        models.SourceMyAnimeList,
		}
		if item.MalID != nil {
			r.ID = strconv.Itoa(*item.MalID)
		} else {
			r.ID = uuid.NewString()
		}
		out = append(out, normalize(r))
	}
	return out, nil
}
