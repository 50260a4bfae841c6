package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"shelfhub/internal/auth"
	"shelfhub/internal/catalog"
	"shelfhub/internal/grpcserver"
	"shelfhub/internal/library"
	"shelfhub/internal/progress"
	"shelfhub/pkg/database"
	"shelfhub/pkg/logger"
	"shelfhub/pkg/utils"
)

func main() {
	utils.LoadEnvFiles()
	cfg, err := utils.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logger.Init(cfg.Env, cfg.LogLevel)

	db := database.MustOpen(context.Background(), cfg.DatabaseConfig())
	defer db.Close()

	listener, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatal().Err(err).Str("addr", cfg.GRPCAddr).Msg("grpc listen failed")
	}

	agg, _ := catalog.FromConfig(cfg.Search)
	libSvc := library.NewService(library.NewRepo(db), progress.NewRepo(db))
	tokens := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.JWTDuration)

	grpcServer := grpcserver.NewGRPCServer(grpcserver.NewServer(agg, libSvc), tokens, auth.NewRepo(db))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		log.Info().Msg("shutdown signal received")
		grpcServer.GracefulStop()
	}()

	log.Info().Str("addr", cfg.GRPCAddr).Msg("gRPC server listening")
	if err := grpcServer.Serve(listener); err != nil {
		log.Error().Err(err).Msg("grpc server stopped")
	}
}
