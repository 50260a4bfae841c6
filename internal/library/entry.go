package library

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"shelfhub/pkg/models"
)

var (
	ErrNotFound        = errors.New("entry not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnauthenticated = errors.New("unauthenticated")
)

// EntryInput is the writable part of an entry. Nil fields are left
// untouched on update and defaulted on create. A nullable field sent as
// JSON null (or named in Clear) is reset to empty.
type EntryInput struct {
	Title         *string             `json:"title"`
	Author        *string             `json:"author"`
	Status        *models.EntryStatus `json:"status"`
	Type          *models.ContentType `json:"type"`
	CurrentPage   *int                `json:"currentPage"`
	TotalPages    *int                `json:"totalPages"`
	CurrentVolume *int                `json:"currentVolume"`
	TotalVolumes  *int                `json:"totalVolumes"`
	Rating        *int                `json:"rating"`
	Review        *string             `json:"review"`
	StartDate     *string             `json:"startDate"`
	FinishDate    *string             `json:"finishDate"`

	cleared map[string]bool
}

// clearable lists the JSON names of the fields that may be reset to null.
var clearable = []string{
	"currentPage", "totalPages", "currentVolume", "totalVolumes",
	"rating", "review", "startDate", "finishDate",
}

// Clear marks nullable fields, by JSON name, to be reset. Unknown or
// required field names are ignored.
func (in *EntryInput) Clear(fields ...string) {
	for _, f := range fields {
		for _, name := range clearable {
			if strings.EqualFold(f, name) {
				if in.cleared == nil {
					in.cleared = make(map[string]bool)
				}
				in.cleared[name] = true
			}
		}
	}
}

func (in *EntryInput) UnmarshalJSON(data []byte) error {
	type fields EntryInput
	var f fields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*in = EntryInput(f)
	in.cleared = nil
	for key, v := range raw {
		if bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			in.Clear(key)
		}
	}
	return nil
}

// ImportInput creates an entry from a catalog search result.
type ImportInput struct {
	models.SearchResult
	Status *models.EntryStatus `json:"status"`
}

// Filter narrows List. Zero values match everything.
type Filter struct {
	Status models.EntryStatus
	Type   models.ContentType
	Query  string
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

func parseDate(field, s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: %s: invalid date %q", ErrInvalidInput, field, s)
}

// apply copies the set fields of in onto e.
func (in EntryInput) apply(e *models.LibraryEntry) error {
	if in.Title != nil {
		e.Title = strings.TrimSpace(*in.Title)
	}
	if in.Author != nil {
		e.Author = strings.TrimSpace(*in.Author)
	}
	if in.Status != nil {
		e.Status = models.EntryStatus(strings.ToUpper(string(*in.Status)))
	}
	if in.Type != nil {
		e.Type = models.ContentType(strings.ToUpper(string(*in.Type)))
	}
	if in.CurrentPage != nil {
		e.CurrentPage = in.CurrentPage
	}
	if in.TotalPages != nil {
		e.TotalPages = in.TotalPages
	}
	if in.CurrentVolume != nil {
		e.CurrentVolume = in.CurrentVolume
	}
	if in.TotalVolumes != nil {
		e.TotalVolumes = in.TotalVolumes
	}
	if in.Rating != nil {
		e.Rating = in.Rating
	}
	if in.Review != nil {
		if r := strings.TrimSpace(*in.Review); r != "" {
			e.Review = &r
		} else {
			e.Review = nil
		}
	}
	if in.StartDate != nil {
		d, err := parseDate("startDate", *in.StartDate)
		if err != nil {
			return err
		}
		e.StartDate = d
	}
	if in.FinishDate != nil {
		d, err := parseDate("finishDate", *in.FinishDate)
		if err != nil {
			return err
		}
		e.FinishDate = d
	}

	for name := range in.cleared {
		switch name {
		case "currentPage":
			e.CurrentPage = nil
		case "totalPages":
			e.TotalPages = nil
		case "currentVolume":
			e.CurrentVolume = nil
		case "totalVolumes":
			e.TotalVolumes = nil
		case "rating":
			e.Rating = nil
		case "review":
			e.Review = nil
		case "startDate":
			e.StartDate = nil
		case "finishDate":
			e.FinishDate = nil
		}
	}
	return nil
}

func notAbove(limit **int, name string) validation.RuleFunc {
	return func(value any) error {
		v, _ := value.(*int)
		if v == nil || *limit == nil {
			return nil
		}
		if *v > **limit {
			return fmt.Errorf("must not exceed %s", name)
		}
		return nil
	}
}

// Validate checks an entry before it is written.
func Validate(e *models.LibraryEntry) error {
	err := validation.ValidateStruct(e,
		validation.Field(&e.Title, validation.Required.Error("title is required"), validation.Length(1, 500)),
		validation.Field(&e.Author, validation.Required.Error("author is required"), validation.Length(1, 300)),
		validation.Field(&e.Status, validation.Required,
			validation.In(models.StatusReading, models.StatusFinished, models.StatusWishlist)),
		validation.Field(&e.Type, validation.Required, validation.In(models.TypeBook, models.TypeManga)),
		validation.Field(&e.CurrentPage, validation.Min(0), validation.By(notAbove(&e.TotalPages, "totalPages"))),
		validation.Field(&e.TotalPages, validation.Min(0)),
		validation.Field(&e.CurrentVolume, validation.Min(0), validation.By(notAbove(&e.TotalVolumes, "totalVolumes"))),
		validation.Field(&e.TotalVolumes, validation.Min(0)),
		validation.Field(&e.Rating, validation.Min(0), validation.Max(5)),
		validation.Field(&e.Review, validation.Length(0, 5000)),
		validation.Field(&e.FinishDate, validation.By(func(any) error {
			if e.StartDate != nil && e.FinishDate != nil && e.FinishDate.Before(*e.StartDate) {
				return errors.New("must not be before startDate")
			}
			return nil
		})),
	)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidInput, err.Error())
	}
	return nil
}
