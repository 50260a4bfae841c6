package library

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"shelfhub/internal/auth"
	"shelfhub/internal/middleware"
	"shelfhub/pkg/models"
)

type Handler struct {
	Service *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Service: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/books", h.list)
	rg.POST("/books", h.create)
	rg.POST("/books/import", h.importResult)
	rg.GET("/books/stats", h.stats)
	rg.GET("/books/:id", h.getOne)
	rg.PUT("/books/:id", h.update)
	rg.DELETE("/books/:id", h.remove)
}

// fail maps service errors onto status codes.
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Book not found"})
	case errors.Is(err, ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": strings.TrimPrefix(err.Error(), ErrInvalidInput.Error()+": ")})
	default:
		log.Error().Err(err).
			Str("request_id", c.GetString(middleware.CtxRequestIDKey)).
			Str("path", c.FullPath()).
			Msg("library request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func userID(c *gin.Context) string {
	claims := auth.MustGetClaims(c)
	if claims == nil {
		return ""
	}
	return claims.UserID
}

func (h *Handler) list(c *gin.Context) {
	f := Filter{
		Status: models.EntryStatus(strings.TrimSpace(c.Query("status"))),
		Type:   models.ContentType(strings.TrimSpace(c.Query("type"))),
		Query:  c.Query("q"),
	}
	entries, err := h.Service.List(c.Request.Context(), userID(c), f)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *Handler) create(c *gin.Context) {
	var in EntryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if in.Title == nil || in.Author == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title and author are required"})
		return
	}

	e, err := h.Service.Create(c.Request.Context(), userID(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

func (h *Handler) importResult(c *gin.Context) {
	var in ImportInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	e, err := h.Service.Import(c.Request.Context(), userID(c), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

func (h *Handler) getOne(c *gin.Context) {
	e, err := h.Service.Get(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *Handler) update(c *gin.Context) {
	var in EntryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	e, err := h.Service.Update(c.Request.Context(), userID(c), c.Param("id"), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *Handler) remove(c *gin.Context) {
	if err := h.Service.Delete(c.Request.Context(), userID(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Book deleted"})
}

func (h *Handler) stats(c *gin.Context) {
	st, err := h.Service.Stats(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}
