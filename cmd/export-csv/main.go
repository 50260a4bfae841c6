package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"shelfhub/internal/auth"
	"shelfhub/internal/library"
	"shelfhub/pkg/database"
	"shelfhub/pkg/logger"
	"shelfhub/pkg/utils"
)

func exportEntries(ctx context.Context, db *database.DB, email string, w io.Writer) (int, error) {
	u, err := auth.NewRepo(db).GetByEmail(ctx, email)
	if err != nil {
		return 0, err
	}
	if u == nil {
		return 0, fmt.Errorf("no user with email %s", email)
	}

	entries, err := library.NewRepo(db).List(ctx, u.ID, library.Filter{})
	if err != nil {
		return 0, err
	}
	if err := library.WriteCSV(w, entries); err != nil {
		return 0, fmt.Errorf("write csv: %w", err)
	}
	return len(entries), nil
}

func main() {
	out := flag.String("out", "data/library.csv", "output CSV path")
	email := flag.String("email", "", "owner of the exported entries")
	flag.Parse()

	if *email == "" {
		fmt.Fprintln(os.Stderr, "-email is required")
		os.Exit(2)
	}

	utils.LoadEnvFiles()
	cfg, err := utils.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logger.Init(cfg.Env, cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := database.MustOpen(ctx, cfg.DatabaseConfig())
	defer db.Close()

	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		log.Fatal().Err(err).Msg("create output dir")
	}
	f, err := os.Create(*out)
	if err != nil {
		log.Fatal().Err(err).Msg("create output")
	}
	defer f.Close()

	n, err := exportEntries(ctx, db, *email, f)
	if err != nil {
		log.Fatal().Err(err).Msg("export failed")
	}
	log.Info().Int("entries", n).Str("file", *out).Msg("export done")
}
