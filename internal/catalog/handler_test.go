package catalog

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shelfhub/pkg/models"
)

func newTestRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h.RegisterRoutes(r.Group("/api"))
	return r
}

func TestHandler_Search(t *testing.T) {
	a := &fakeProvider{name: "a", typ: models.TypeBook, results: []models.SearchResult{book("Dune", "Frank Herbert", models.SourceGoogle)}}
	c := &fakeProvider{name: "c", typ: models.TypeManga, results: []models.SearchResult{manga("Dune", "Unknown")}}
	r := newTestRouter(NewHandler(NewAggregator(10, time.Second, a, c), nil))

	for _, path := range []string{"/api/search?q=dune", "/api/search-enhanced?q=dune&type=ALL"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, w.Code, path)

		var body searchResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, models.SearchResultVersion, body.Version)
		assert.Len(t, body.Books, 2)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/search?q=dune&type=manga", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var body searchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Books, 1)
	assert.Equal(t, models.TypeManga, body.Books[0].Type)
}

func TestHandler_SearchEmptyResultIsArray(t *testing.T) {
	a := &fakeProvider{name: "a", typ: models.TypeBook}
	r := newTestRouter(NewHandler(NewAggregator(10, time.Second, a), nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/search?q=nothing", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"books":[],"version":1}`, w.Body.String())
}

func TestHandler_SearchValidation(t *testing.T) {
	a := &fakeProvider{name: "a", typ: models.TypeBook}
	r := newTestRouter(NewHandler(NewAggregator(10, time.Second, a), nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/search?q=%20%20", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Query is required"}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/search?q=dune&type=comic", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Zero(t, a.calls.Load())
}

func TestHandler_SearchBooks(t *testing.T) {
	srv := jsonServer(t, "/books/v1/volumes", http.StatusOK,
		`{"items":[{"id":"x","volumeInfo":{"title":"Dune","authors":["Frank Herbert"]}}]}`, nil)
	r := newTestRouter(NewHandler(nil, NewGoogleBooks(srv.URL, srv.Client())))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/search-books?q=herbert&type=author", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var got []models.SearchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Dune", got[0].Title)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/search-books?type=popular", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/search-books", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/search-books?q=x&limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_SearchBooksUpstreamError(t *testing.T) {
	srv := jsonServer(t, "/books/v1/volumes", http.StatusInternalServerError, `{}`, nil)
	r := newTestRouter(NewHandler(nil, NewGoogleBooks(srv.URL, srv.Client())))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/search-books?q=dune", nil))
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestHandler_GetVolume(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/books/v1/volumes/abc" {
			_, _ = w.Write([]byte(`{"id":"abc","volumeInfo":{"title":"Dune"}}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()
	r := newTestRouter(NewHandler(nil, NewGoogleBooks(srv.URL, srv.Client())))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/search-books/abc", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"title":"Dune"`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/search-books/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
