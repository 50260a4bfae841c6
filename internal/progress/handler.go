package progress

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"shelfhub/internal/auth"
)

// EntryOwner reports whether a library entry belongs to a user.
type EntryOwner interface {
	Owns(ctx context.Context, userID, entryID string) (bool, error)
}

type Handler struct {
	Repo    *Repo
	Entries EntryOwner
}

func NewHandler(repo *Repo, entries EntryOwner) *Handler {
	return &Handler{Repo: repo, Entries: entries}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/books/:id/progress", h.list)
}

func (h *Handler) list(c *gin.Context) {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	entryID := strings.TrimSpace(c.Param("id"))
	ok, err := h.Entries.Owns(c.Request.Context(), claims.UserID, entryID)
	if err != nil {
		log.Error().Err(err).Str("entry_id", entryID).Msg("ownership check failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Book not found"})
		return
	}

	limit, offset := ClampPage(parseInt(c.Query("limit"), DefaultPageSize), parseInt(c.Query("offset"), 0))

	items, total, err := h.Repo.List(c.Request.Context(), claims.UserID, entryID, limit, offset)
	if err != nil {
		log.Error().Err(err).Str("entry_id", entryID).Msg("list progress failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":  total,
		"limit":  limit,
		"offset": offset,
		"items":  items,
	})
}

func parseInt(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
