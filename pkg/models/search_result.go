package models

// SearchResultVersion is bumped whenever the shape of SearchResult changes.
const SearchResultVersion = 1

type ContentType string

const (
	TypeBook  ContentType = "BOOK"
	TypeManga ContentType = "MANGA"
	TypeAll   ContentType = "ALL" // search filter only, never on a result
)

type Source string

const (
	SourceGoogle      Source = "GOOGLE"      // Google Books
	SourceApple       Source = "APPLE"       // Apple Books (iTunes search)
	SourceMyAnimeList Source = "MYANIMELIST" // Jikan
)

const (
	PlaceholderTitle  = "Title unavailable"
	PlaceholderAuthor = "Unknown author"
)

// SearchResult is the normalized record for one catalog hit. Every
// provider maps into this shape; it is built per request and never stored.
type SearchResult struct {
	ID            string      `json:"id"`
	Title         string      `json:"title"`
	Authors       string      `json:"authors"`
	Description   *string     `json:"description,omitempty"`
	PageCount     *int        `json:"pageCount,omitempty"`
	VolumeCount   *int        `json:"volumeCount,omitempty"`
	PublishedDate *string     `json:"publishedDate,omitempty"`
	Thumbnail     *string     `json:"thumbnail,omitempty"`
	Categories    []string    `json:"categories"`
	Type          ContentType `json:"type"`
	Source        Source      `json:"source"`
}
