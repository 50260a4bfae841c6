package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"shelfhub/internal/auth"
	"shelfhub/internal/library"
	"shelfhub/internal/progress"
	"shelfhub/pkg/database"
	"shelfhub/pkg/logger"
	"shelfhub/pkg/utils"
)

// importEntries adds every row of r to the library of the user with the
// given email. Rows that fail validation are skipped and counted.
func importEntries(ctx context.Context, db *database.DB, email string, r io.Reader) (imported, skipped int, err error) {
	u, err := auth.NewRepo(db).GetByEmail(ctx, email)
	if err != nil {
		return 0, 0, err
	}
	if u == nil {
		return 0, 0, fmt.Errorf("no user with email %s", email)
	}

	inputs, err := library.ReadCSV(r)
	if err != nil {
		return 0, 0, err
	}

	svc := library.NewService(library.NewRepo(db), progress.NewRepo(db))
	for i, in := range inputs {
		if _, err := svc.Create(ctx, u.ID, in); err != nil {
			log.Warn().Err(err).Int("row", i+1).Msg("skip row")
			skipped++
			continue
		}
		imported++
	}
	return imported, skipped, nil
}

func main() {
	in := flag.String("in", "data/library.csv", "input CSV path")
	email := flag.String("email", "", "owner of the imported entries")
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

	f, err := os.Open(*in)
	if err != nil {
		log.Fatal().Err(err).Msg("open input")
	}
	defer f.Close()

	imported, skipped, err := importEntries(ctx, db, *email, f)
	if err != nil {
		log.Fatal().Err(err).Msg("import failed")
	}
	log.Info().Int("imported", imported).Int("skipped", skipped).Str("file", *in).Msg("import done")
}
