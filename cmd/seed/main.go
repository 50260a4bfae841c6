package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"shelfhub/internal/auth"
	"shelfhub/internal/library"
	"shelfhub/internal/progress"
	"shelfhub/pkg/database"
	"shelfhub/pkg/logger"
	"shelfhub/pkg/models"
	"shelfhub/pkg/utils"
)

type sampleBook struct {
	Title       string
	Author      string
	Status      models.EntryStatus
	CurrentPage int
	TotalPages  int
	Rating      int
	Review      string
	StartDate   string
	FinishDate  string
}

var samples = []sampleBook{
	{Title: "El Quijote de la Mancha", Author: "Miguel de Cervantes", Status: models.StatusFinished, TotalPages: 863, Rating: 5,
		Review: "A masterpiece of Spanish literature.", StartDate: "2024-01-15", FinishDate: "2024-02-28"},
	{Title: "Cien años de soledad", Author: "Gabriel García Márquez", Status: models.StatusReading, CurrentPage: 120, TotalPages: 471,
		StartDate: "2024-06-01"},
	{Title: "La sombra del viento", Author: "Carlos Ruiz Zafón", Status: models.StatusWishlist, TotalPages: 576},
	{Title: "1984", Author: "George Orwell", Status: models.StatusFinished, TotalPages: 328, Rating: 4,
		Review: "A gripping and frightening dystopia.", StartDate: "2024-03-01", FinishDate: "2024-03-15"},
	{Title: "El nombre del viento", Author: "Patrick Rothfuss", Status: models.StatusReading, CurrentPage: 45, TotalPages: 662,
		StartDate: "2024-07-01"},
	{Title: "Sapiens", Author: "Yuval Noah Harari", Status: models.StatusFinished, TotalPages: 466, Rating: 5,
		Review: "Complex ideas about human history made accessible.", StartDate: "2024-04-01", FinishDate: "2024-04-20"},
	{Title: "El Hobbit", Author: "J.R.R. Tolkien", Status: models.StatusWishlist, TotalPages: 310},
	{Title: "Orgullo y prejuicio", Author: "Jane Austen", Status: models.StatusFinished, TotalPages: 432, Rating: 4,
		Review: "A classic romance with memorable characters.", StartDate: "2024-05-01", FinishDate: "2024-05-18"},
}

func optInt(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (b sampleBook) input() library.EntryInput {
	status := b.Status
	return library.EntryInput{
		Title:       &b.Title,
		Author:      &b.Author,
		Status:      &status,
		CurrentPage: optInt(b.CurrentPage),
		TotalPages:  optInt(b.TotalPages),
		Rating:      optInt(b.Rating),
		Review:      optString(b.Review),
		StartDate:   optString(b.StartDate),
		FinishDate:  optString(b.FinishDate),
	}
}

// seed creates the demo user with the sample entries. It does nothing
// when the user already exists.
func seed(ctx context.Context, db *database.DB, email, password string, cost int) (int, error) {
	users := auth.NewRepo(db)
	existing, err := users.GetByEmail(ctx, email)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return 0, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}
	u := auth.User{ID: uuid.NewString(), Email: email, Name: "Demo User", PasswordHash: string(hash), CreatedAt: time.Now().UTC()}
	if err := users.CreateUser(ctx, u); err != nil {
		return 0, err
	}

	svc := library.NewService(library.NewRepo(db), progress.NewRepo(db))
	for _, b := range samples {
		if _, err := svc.Create(ctx, u.ID, b.input()); err != nil {
			return 0, fmt.Errorf("seed %q: %w", b.Title, err)
		}
	}
	return len(samples), nil
}

func main() {
	email := flag.String("email", "demo@example.com", "demo account email")
	password := flag.String("password", "123456", "demo account password")
	flag.Parse()

	utils.LoadEnvFiles()
	cfg, err := utils.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logger.Init(cfg.Env, cfg.LogLevel)

	ctx := context.Background()
	db := database.MustOpen(ctx, cfg.DatabaseConfig())
	defer db.Close()

	n, err := seed(ctx, db, *email, *password, cfg.Auth.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("seed failed")
	}
	if n == 0 {
		fmt.Printf("user %s already exists, nothing to do\n", *email)
		return
	}
	fmt.Printf("created %d entries for %s (password: %s)\n", n, *email, *password)
}
