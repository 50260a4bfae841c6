package catalog

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"shelfhub/internal/middleware"
	"shelfhub/pkg/models"
)

type Handler struct {
	Aggregator *Aggregator
	Google     *GoogleBooks
}

func NewHandler(agg *Aggregator, google *GoogleBooks) *Handler {
	return &Handler{Aggregator: agg, Google: google}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/search", h.search)
	rg.GET("/search-enhanced", h.search)
	rg.GET("/search-books", h.searchBooks)
	rg.GET("/search-books/:id", h.getVolume)
}

type searchResponse struct {
	Books   []models.SearchResult `json:"books"`
	Version int                   `json:"version"`
}

func (h *Handler) search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query is required"})
		return
	}

	typ, err := ParseType(c.Query("type"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be one of BOOK, MANGA, ALL"})
		return
	}

	results, err := h.Aggregator.Search(c.Request.Context(), query, typ)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Query is required"})
			return
		}
		log.Error().Err(err).Str("request_id", c.GetString(middleware.CtxRequestIDKey)).Msg("search failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, searchResponse{Books: results, Version: models.SearchResultVersion})
}

func (h *Handler) searchBooks(c *gin.Context) {
	mode := SearchMode(strings.ToLower(strings.TrimSpace(c.Query("type"))))
	query := strings.TrimSpace(c.Query("q"))
	if query == "" && mode != ModePopular {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query is required"})
		return
	}

	limit := DefaultDirectLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	results, err := h.Google.Query(c.Request.Context(), query, mode, limit)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "type must be one of general, author, title, popular"})
			return
		}
		log.Error().Err(err).Str("request_id", c.GetString(middleware.CtxRequestIDKey)).Msg("google books search failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to search books"})
		return
	}
	c.JSON(http.StatusOK, results)
}

func (h *Handler) getVolume(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	book, err := h.Google.Volume(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Book not found"})
		case errors.Is(err, ErrInvalidInput):
			c.JSON(http.StatusBadRequest, gin.H{"error": "id required"})
		default:
			log.Error().Err(err).Str("request_id", c.GetString(middleware.CtxRequestIDKey)).Msg("google books lookup failed")
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch book"})
		}
		return
	}
	c.JSON(http.StatusOK, book)
}
