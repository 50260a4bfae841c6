package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"shelfhub/internal/auth"
	"shelfhub/internal/catalog"
	"shelfhub/internal/library"
	"shelfhub/internal/middleware"
	"shelfhub/internal/progress"
	"shelfhub/pkg/database"
	"shelfhub/pkg/logger"
	"shelfhub/pkg/utils"
)

type deps struct {
	db      *database.DB
	cfg     utils.Config
	catalog *catalog.Aggregator
	google  *catalog.GoogleBooks
	limiter *middleware.RateLimiter
}

func newRouter(d deps) *gin.Engine {
	if d.cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Logger(), middleware.Recovery())
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": d.db.Driver})
	})
	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := d.db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "db_error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "db": "ok"})
	})

	api := router.Group("/api")

	// Search (public)
	catalog.NewHandler(d.catalog, d.google).RegisterRoutes(api)

	// Auth
	tokenSvc := auth.NewTokenService(d.cfg.Auth.JWTSecret, d.cfg.Auth.JWTIssuer, d.cfg.Auth.JWTDuration)
	authRepo := auth.NewRepo(d.db)
	var limit gin.HandlerFunc
	if d.limiter != nil {
		limit = d.limiter.Middleware()
	}
	auth.NewHandler(authRepo, tokenSvc, d.cfg.Auth.BcryptCost, limit).RegisterRoutes(api.Group("/auth"))

	// Library (protected)
	protected := api.Group("")
	protected.Use(auth.AuthMiddleware(tokenSvc, authRepo))

	progressRepo := progress.NewRepo(d.db)
	libSvc := library.NewService(library.NewRepo(d.db), progressRepo)
	library.NewHandler(libSvc).RegisterRoutes(protected)
	progress.NewHandler(progressRepo, libSvc).RegisterRoutes(protected)

	return router
}

func main() {
	utils.LoadEnvFiles()
	cfg, err := utils.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logger.Init(cfg.Env, cfg.LogLevel)

	db := database.MustOpen(context.Background(), cfg.DatabaseConfig())
	defer db.Close()

	agg, google := catalog.FromConfig(cfg.Search)
	limiter := middleware.NewRateLimiter(cfg.Auth.RPS, cfg.Auth.Burst)

	router := newRouter(deps{db: db, cfg: cfg, catalog: agg, google: google, limiter: limiter})

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				limiter.Sweep(now)
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("db", cfg.DB.Driver).Msg("HTTP API server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown error")
	}
	log.Info().Msg("server stopped")
}
