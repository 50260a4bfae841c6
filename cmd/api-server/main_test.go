package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shelfhub/internal/catalog"
	"shelfhub/pkg/database/dbtest"
	"shelfhub/pkg/models"
	"shelfhub/pkg/utils"
)

func newTestServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	google := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items":[{"id":"g1","volumeInfo":{"title":"Naruto, Vol. 1","authors":["Masashi Kishimoto"]}}]}`))
	}))
	t.Cleanup(google.Close)
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(down.Close)

	cfg := utils.Config{
		Env: "test",
		Auth: utils.AuthConfig{
			JWTSecret: "test-secret", JWTIssuer: "shelfhub", JWTDuration: time.Hour, BcryptCost: 4,
		},
		Search: utils.SearchConfig{
			ProviderTimeout: time.Second, ProviderLimit: 10,
			GoogleBooksURL: google.URL, AppleBooksURL: down.URL, JikanURL: down.URL,
		},
	}
	agg, gb := catalog.FromConfig(cfg.Search)
	return newRouter(deps{db: dbtest.New(t), cfg: cfg, catalog: agg, google: gb})
}

func send(t *testing.T, r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthAndReady(t *testing.T) {
	r := newTestServer(t)

	w := send(t, r, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	w = send(t, r, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSearchThenImportFlow(t *testing.T) {
	r := newTestServer(t)

	w := send(t, r, http.MethodGet, "/api/search?q=naruto", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var found struct {
		Books   []models.SearchResult `json:"books"`
		Version int                   `json:"version"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &found))
	require.Len(t, found.Books, 1)
	assert.Equal(t, 1, found.Version)

	w = send(t, r, http.MethodPost, "/api/books/import", "", found.Books[0])
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = send(t, r, http.MethodPost, "/api/auth/register", "", gin.H{"email": "demo@example.com", "password": "123456"})
	require.Equal(t, http.StatusCreated, w.Code)
	var reg struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reg))

	w = send(t, r, http.MethodPost, "/api/books/import", reg.Token, found.Books[0])
	require.Equal(t, http.StatusCreated, w.Code)

	w = send(t, r, http.MethodGet, "/api/books", reg.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var entries []models.LibraryEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "Masashi Kishimoto", entries[0].Author)

	w = send(t, r, http.MethodGet, "/api/books/"+entries[0].ID+"/progress", reg.Token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
