package library

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"shelfhub/pkg/models"
)

// ProgressRecorder receives a line every time an entry's page or volume
// counter changes.
type ProgressRecorder interface {
	Add(ctx context.Context, entry models.ProgressHistory) error
}

// Service applies ownership, defaults and validation on top of Repo.
// Every method takes the caller's user id and refuses to run without one.
type Service struct {
	Repo     *Repo
	Progress ProgressRecorder

	now func() time.Time
}

func NewService(repo *Repo, progress ProgressRecorder) *Service {
	return &Service{Repo: repo, Progress: progress, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) clock() time.Time {
	if s.now == nil {
		return time.Now().UTC()
	}
	return s.now()
}

func requireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrUnauthenticated
	}
	return nil
}

func (s *Service) Create(ctx context.Context, userID string, in EntryInput) (*models.LibraryEntry, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	now := s.clock()
	e := models.LibraryEntry{
		ID:        uuid.NewString(),
		UserID:    userID,
		Status:    models.StatusReading,
		Type:      models.TypeBook,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := in.apply(&e); err != nil {
		return nil, err
	}
	if err := Validate(&e); err != nil {
		return nil, err
	}

	if err := s.Repo.Create(ctx, e); err != nil {
		return nil, err
	}
	if e.CurrentPage != nil || e.CurrentVolume != nil {
		s.recordProgress(ctx, e)
	}
	return &e, nil
}

// Import turns a catalog search result into a new entry.
func (s *Service) Import(ctx context.Context, userID string, in ImportInput) (*models.LibraryEntry, error) {
	typ := in.Type
	if typ != models.TypeManga {
		typ = models.TypeBook
	}
	status := models.StatusReading
	if in.Status != nil {
		status = *in.Status
	}

	title := in.Title
	author := in.Authors
	return s.Create(ctx, userID, EntryInput{
		Title:        &title,
		Author:       &author,
		Status:       &status,
		Type:         &typ,
		TotalPages:   in.PageCount,
		TotalVolumes: in.VolumeCount,
	})
}

func (s *Service) Get(ctx context.Context, userID, id string) (*models.LibraryEntry, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	e, err := s.Repo.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, ErrNotFound
	}
	return e, nil
}

func (s *Service) List(ctx context.Context, userID string, f Filter) ([]models.LibraryEntry, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if f.Status != "" {
		f.Status = models.EntryStatus(strings.ToUpper(string(f.Status)))
		switch f.Status {
		case models.StatusReading, models.StatusFinished, models.StatusWishlist:
		default:
			return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, f.Status)
		}
	}
	if f.Type != "" {
		f.Type = models.ContentType(strings.ToUpper(string(f.Type)))
		switch f.Type {
		case models.TypeBook, models.TypeManga, models.TypeAll:
		default:
			return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidInput, f.Type)
		}
	}
	return s.Repo.List(ctx, userID, f)
}

func (s *Service) Update(ctx context.Context, userID, id string, in EntryInput) (*models.LibraryEntry, error) {
	current, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	next := *current
	if err := in.apply(&next); err != nil {
		return nil, err
	}
	if err := Validate(&next); err != nil {
		return nil, err
	}
	next.UpdatedAt = s.clock()

	ok, err := s.Repo.Update(ctx, next)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	if !sameInt(current.CurrentPage, next.CurrentPage) || !sameInt(current.CurrentVolume, next.CurrentVolume) {
		s.recordProgress(ctx, next)
	}
	return &next, nil
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	ok, err := s.Repo.Delete(ctx, userID, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *Service) Stats(ctx context.Context, userID string) (models.LibraryStats, error) {
	entries, err := s.List(ctx, userID, Filter{})
	if err != nil {
		return models.LibraryStats{}, err
	}
	return ComputeStats(entries, s.clock()), nil
}

// Owns satisfies progress.EntryOwner.
func (s *Service) Owns(ctx context.Context, userID, id string) (bool, error) {
	if err := requireUser(userID); err != nil {
		return false, err
	}
	return s.Repo.Owns(ctx, userID, id)
}

func (s *Service) recordProgress(ctx context.Context, e models.LibraryEntry) {
	if s.Progress == nil {
		return
	}
	err := s.Progress.Add(ctx, models.ProgressHistory{
		EntryID: e.ID,
		UserID:  e.UserID,
		Page:    e.CurrentPage,
		Volume:  e.CurrentVolume,
		At:      e.UpdatedAt,
	})
	if err != nil {
		log.Warn().Err(err).Str("entry_id", e.ID).Msg("record progress failed")
	}
}

func sameInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
