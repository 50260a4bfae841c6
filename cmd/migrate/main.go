package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"shelfhub/pkg/database"
	"shelfhub/pkg/logger"
	"shelfhub/pkg/utils"
)

func main() {
	command := flag.String("command", "up", "Migration command: up, down, status, version")
	flag.Parse()

	utils.LoadEnvFiles()
	cfg, err := utils.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logger.Init(cfg.Env, cfg.LogLevel)

	db, err := database.Open(cfg.DatabaseConfig())
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()

	p, err := database.NewMigrator(db)
	if err != nil {
		log.Fatal().Err(err).Msg("migrator")
	}

	ctx := context.Background()
	switch *command {
	case "up":
		results, err := p.Up(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to run migrations")
		}
		for _, r := range results {
			fmt.Printf("applied %s (%s)\n", r.Source.Path, r.Duration)
		}
		fmt.Println("Migrations applied successfully")
	case "down":
		r, err := p.Down(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to roll back migration")
		}
		fmt.Printf("rolled back %s\n", r.Source.Path)
	case "status":
		statuses, err := p.Status(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to read migration status")
		}
		for _, s := range statuses {
			applied := "pending"
			if !s.AppliedAt.IsZero() {
				applied = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
			fmt.Printf("%-8s %-40s %s\n", s.State, s.Source.Path, applied)
		}
	case "version":
		v, err := p.GetDBVersion(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to read db version")
		}
		fmt.Println(v)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q: use up, down, status, version\n", *command)
		os.Exit(2)
	}
}
