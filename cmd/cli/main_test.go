package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shelfhub/pkg/models"
)

const testToken = "tok-123"

type fakeAPI struct {
	imported map[string]any
	logouts  int
}

func (f *fakeAPI) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	authed := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer "+testToken {
				w.WriteHeader(http.StatusUnauthorized)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "missing token"})
				return
			}
			next(w, r)
		}
	}
	writeJSON := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		assert.NoError(t, json.NewEncoder(w).Encode(v))
	}

	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["password"] != "123456" {
			w.WriteHeader(http.StatusUnauthorized)
			writeJSON(w, map[string]string{"error": "invalid credentials"})
			return
		}
		writeJSON(w, map[string]any{"token": testToken})
	})
	mux.HandleFunc("POST /api/auth/logout", authed(func(w http.ResponseWriter, r *http.Request) {
		f.logouts++
		writeJSON(w, map[string]string{"message": "logged out"})
	}))
	mux.HandleFunc("GET /api/search", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "naruto", r.URL.Query().Get("q"))
		writeJSON(w, searchResponse{Version: 1, Books: []models.SearchResult{
			{ID: "11", Title: "Naruto", Authors: "Masashi Kishimoto", Type: models.TypeManga, Source: models.SourceMyAnimeList},
		}})
	})
	mux.HandleFunc("POST /api/books/import", authed(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&f.imported))
		w.WriteHeader(http.StatusCreated)
		writeJSON(w, models.LibraryEntry{ID: "e1", Title: "Naruto"})
	}))
	mux.HandleFunc("GET /api/books", authed(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "READING", r.URL.Query().Get("status"))
		page, total := 10, 200
		writeJSON(w, []models.LibraryEntry{{ID: "e1", Title: "Naruto", Author: "Masashi Kishimoto",
			Status: models.StatusReading, Type: models.TypeManga, CurrentPage: &page, TotalPages: &total}})
	}))
	return mux
}

func runCLI(t *testing.T, srv *httptest.Server, tokenFile string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	full := append([]string{"--api", srv.URL, "--token-file", tokenFile}, args...)
	err := run(context.Background(), full, &out, kong.Exit(func(code int) {
		t.Fatalf("unexpected kong exit %d", code)
	}))
	return out.String(), err
}

func TestCLI_Flow(t *testing.T) {
	api := &fakeAPI{}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()
	tokenFile := filepath.Join(t.TempDir(), "token.json")

	_, err := runCLI(t, srv, tokenFile, "books", "list")
	assert.ErrorContains(t, err, "not logged in")

	_, err = runCLI(t, srv, tokenFile, "auth", "login", "--email", "demo@example.com", "--password", "wrong")
	assert.ErrorContains(t, err, "invalid credentials")

	out, err := runCLI(t, srv, tokenFile, "auth", "login", "--email", "demo@example.com", "--password", "123456")
	require.NoError(t, err)
	assert.Contains(t, out, "logged in")
	tok, err := readToken(tokenFile)
	require.NoError(t, err)
	assert.Equal(t, testToken, tok)

	out, err = runCLI(t, srv, tokenFile, "search", "naruto", "--type", "MANGA")
	require.NoError(t, err)
	assert.Contains(t, out, "[MANGA/MYANIMELIST] Naruto by Masashi Kishimoto")

	out, err = runCLI(t, srv, tokenFile, "books", "import", "naruto", "--status", "reading")
	require.NoError(t, err)
	assert.Contains(t, out, `imported "Naruto" as e1`)
	assert.Equal(t, "READING", api.imported["status"])
	assert.Equal(t, "11", api.imported["id"])

	out, err = runCLI(t, srv, tokenFile, "books", "list", "--status", "reading")
	require.NoError(t, err)
	assert.Contains(t, out, "Naruto by Masashi Kishimoto (p. 10/200)")

	out, err = runCLI(t, srv, tokenFile, "auth", "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "logged out")
	assert.Equal(t, 1, api.logouts)
	_, err = readToken(tokenFile)
	assert.Error(t, err)
}

func TestCLI_ProgressNeedsFields(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	tokenFile := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, saveToken(tokenFile, testToken))

	_, err := runCLI(t, srv, tokenFile, "books", "progress", "e1")
	assert.EqualError(t, err, "nothing to update")
}

func TestCLI_RejectsUnknownSearchType(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := runCLI(t, srv, filepath.Join(t.TempDir(), "t.json"), "search", "x", "--type", "COMIC")
	assert.Error(t, err)
}
