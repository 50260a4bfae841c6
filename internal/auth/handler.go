package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// Password bounds. bcrypt ignores input past 72 bytes.
const (
	minPasswordLen = 6
	maxPasswordLen = 72
)

type Handler struct {
	Repo       *Repo
	Tokens     TokenService
	BcryptCost int

	// RateLimit guards register and login when set.
	RateLimit gin.HandlerFunc
}

func NewHandler(repo *Repo, tokens TokenService, bcryptCost int, rateLimit gin.HandlerFunc) *Handler {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Handler{Repo: repo, Tokens: tokens, BcryptCost: bcryptCost, RateLimit: rateLimit}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	public := rg.Group("")
	if h.RateLimit != nil {
		public.Use(h.RateLimit)
	}
	public.POST("/register", h.register)
	public.POST("/login", h.login)

	private := rg.Group("", AuthMiddleware(h.Tokens, h.Repo))
	private.POST("/change-password", h.changePassword)
	private.POST("/logout", h.logout)
	private.GET("/me", h.me)
}

type signupInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (in signupInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required, validation.Length(3, 255), is.EmailFormat),
		validation.Field(&in.Password, validation.Required, validation.Length(minPasswordLen, maxPasswordLen)),
		validation.Field(&in.Name, validation.Length(0, 100)),
	)
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in credentials) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required),
		validation.Field(&in.Password, validation.Required),
	)
}

type passwordChange struct {
	Current string `json:"old_password"`
	Next    string `json:"new_password"`
}

func (in passwordChange) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Current, validation.Required),
		validation.Field(&in.Next, validation.Required, validation.Length(minPasswordLen, maxPasswordLen)),
	)
}

type session struct {
	User      *User  `json:"user"`
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// bindValid decodes the JSON body into dst and runs its validation. It
// writes the 400 response itself and reports whether to continue.
func bindValid(c *gin.Context, dst validation.Validatable) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return false
	}
	if err := dst.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func unauthorized(c *gin.Context, msg string) {
	c.JSON(http.StatusUnauthorized, gin.H{"error": msg})
}

func passwordMatches(u *User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// currentUser loads the account behind the request's token. It answers
// 401 and returns nil when the account is gone.
func (h *Handler) currentUser(c *gin.Context) *User {
	claims := MustGetClaims(c)
	if claims == nil {
		unauthorized(c, "invalid token")
		return nil
	}
	u, err := h.Repo.GetByID(c.Request.Context(), claims.UserID)
	if err != nil || u == nil {
		unauthorized(c, "invalid token")
		return nil
	}
	return u
}

func (h *Handler) register(c *gin.Context) {
	var in signupInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	in.Email = normalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := in.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	existing, err := h.Repo.GetByEmail(ctx, in.Email)
	if err != nil {
		log.Error().Err(err).Str("email", in.Email).Msg("lookup user failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if existing != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "email already exists"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), h.BcryptCost)
	if err != nil {
		log.Error().Err(err).Msg("hash password failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	u := User{
		ID:           uuid.NewString(),
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	switch err := h.Repo.CreateUser(ctx, u); {
	case errors.Is(err, ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "email already exists"})
		return
	case err != nil:
		log.Error().Err(err).Str("email", u.Email).Msg("create user failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	h.issue(c, http.StatusCreated, &u)
}

func (h *Handler) login(c *gin.Context) {
	var in credentials
	if !bindValid(c, &in) {
		return
	}

	u, err := h.Repo.GetByEmail(c.Request.Context(), normalizeEmail(in.Email))
	if err != nil || u == nil || !passwordMatches(u, in.Password) {
		unauthorized(c, "invalid credentials")
		return
	}
	h.issue(c, http.StatusOK, u)
}

func (h *Handler) issue(c *gin.Context, status int, u *User) {
	token, exp, err := h.Tokens.Sign(u)
	if err != nil {
		log.Error().Err(err).Str("user_id", u.ID).Msg("sign token failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(status, session{User: u, Token: token, ExpiresAt: exp.UTC().Format(time.RFC3339)})
}

func (h *Handler) changePassword(c *gin.Context) {
	var in passwordChange
	if !bindValid(c, &in) {
		return
	}
	u := h.currentUser(c)
	if u == nil {
		return
	}
	if !passwordMatches(u, in.Current) {
		unauthorized(c, "invalid credentials")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Next), h.BcryptCost)
	if err == nil {
		err = h.Repo.UpdatePasswordAndBumpTokenVersion(c.Request.Context(), u.ID, string(hash))
	}
	if err != nil {
		log.Error().Err(err).Str("user_id", u.ID).Msg("change password failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated, sign in again"})
}

// logout invalidates every token issued so far for the account.
func (h *Handler) logout(c *gin.Context) {
	u := h.currentUser(c)
	if u == nil {
		return
	}
	if err := h.Repo.BumpTokenVersion(c.Request.Context(), u.ID); err != nil {
		log.Error().Err(err).Str("user_id", u.ID).Msg("logout failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (h *Handler) me(c *gin.Context) {
	if u := h.currentUser(c); u != nil {
		c.JSON(http.StatusOK, gin.H{"user": u})
	}
}
