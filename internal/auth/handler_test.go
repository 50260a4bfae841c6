package auth

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
	"golang.org/x/crypto/bcrypt"

	"shelfhub/internal/middleware"
	"shelfhub/pkg/database/dbtest"
)

func newAuthRouter(t *testing.T, limit gin.HandlerFunc) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := dbtest.New(t)
	h := NewHandler(NewRepo(db), NewTokenService("test-secret", "shelfhub", time.Hour), bcrypt.MinCost, limit)

	r := gin.New()
	h.RegisterRoutes(r.Group("/api/auth"))
	return r
}

func call(t *testing.T, r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
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

func tokenFrom(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestRegisterAndLogin(t *testing.T) {
	r := newAuthRouter(t, nil)

	w := call(t, r, http.MethodPost, "/api/auth/register", "", gin.H{
		"email": "Demo@Example.com", "password": "123456", "name": "Demo",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"email":"demo@example.com"`)
	assert.NotContains(t, w.Body.String(), "password")

	w = call(t, r, http.MethodPost, "/api/auth/register", "", gin.H{"email": "demo@example.com", "password": "abcdef"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = call(t, r, http.MethodPost, "/api/auth/login", "", gin.H{"email": "demo@example.com", "password": "wrong!"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = call(t, r, http.MethodPost, "/api/auth/login", "", gin.H{"email": "nobody@example.com", "password": "123456"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = call(t, r, http.MethodPost, "/api/auth/login", "", gin.H{"email": "DEMO@example.com", "password": "123456"})
	require.Equal(t, http.StatusOK, w.Code)
	token := tokenFrom(t, w)

	w = call(t, r, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Demo"`)
}

func TestRegisterValidation(t *testing.T) {
	r := newAuthRouter(t, nil)

	bodies := []gin.H{
		{"email": "not-an-email", "password": "123456"},
		{"email": "a@example.com", "password": "123"},
		{"email": "", "password": "123456"},
		{"email": "a@example.com", "password": string(bytes.Repeat([]byte("x"), 73))},
	}
	for _, b := range bodies {
		w := call(t, r, http.MethodPost, "/api/auth/register", "", b)
		assert.Equal(t, http.StatusBadRequest, w.Code, b)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	r := newAuthRouter(t, nil)

	w := call(t, r, http.MethodPost, "/api/auth/register", "", gin.H{"email": "a@example.com", "password": "123456"})
	require.Equal(t, http.StatusCreated, w.Code)
	token := tokenFrom(t, w)

	w = call(t, r, http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = call(t, r, http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestChangePassword(t *testing.T) {
	r := newAuthRouter(t, nil)

	w := call(t, r, http.MethodPost, "/api/auth/register", "", gin.H{"email": "a@example.com", "password": "123456"})
	require.Equal(t, http.StatusCreated, w.Code)
	token := tokenFrom(t, w)

	w = call(t, r, http.MethodPost, "/api/auth/change-password", token, gin.H{"old_password": "nope!!", "new_password": "abcdef"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = call(t, r, http.MethodPost, "/api/auth/change-password", token, gin.H{"old_password": "123456", "new_password": "abc"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = call(t, r, http.MethodPost, "/api/auth/change-password", token, gin.H{"old_password": "123456", "new_password": "abcdef"})
	require.Equal(t, http.StatusOK, w.Code)

	w = call(t, r, http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = call(t, r, http.MethodPost, "/api/auth/login", "", gin.H{"email": "a@example.com", "password": "abcdef"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMiddlewareRejectsMissingOrMalformed(t *testing.T) {
	r := newAuthRouter(t, nil)

	w := call(t, r, http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Basic abc")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginRateLimited(t *testing.T) {
	r := newAuthRouter(t, middleware.NewRateLimiter(0.001, 2).Middleware())

	body := gin.H{"email": "a@example.com", "password": "123456"}
	for range 2 {
		w := call(t, r, http.MethodPost, "/api/auth/login", "", body)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}
	w := call(t, r, http.MethodPost, "/api/auth/login", "", body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRegisterLookupFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := dbtest.New(t)
	h := NewHandler(NewRepo(db), NewTokenService("test-secret", "shelfhub", time.Hour), bcrypt.MinCost, nil)
	r := gin.New()
	h.RegisterRoutes(r.Group("/api/auth"))

	require.NoError(t, db.Close())

	w := call(t, r, http.MethodPost, "/api/auth/register", "", gin.H{"email": "a@example.com", "password": "123456"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, w.Body.String())
}
