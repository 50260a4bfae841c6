package library

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"shelfhub/pkg/models"
)

// CSVHeader is the column layout used by the import and export tools.
var CSVHeader = []string{
	"id", "title", "author", "status", "type",
	"current_page", "total_pages", "current_volume", "total_volumes",
	"rating", "review", "start_date", "finish_date", "created_at", "updated_at",
}

func fmtInt(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

func fmtDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}

func WriteCSV(w io.Writer, entries []models.LibraryEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, e := range entries {
		review := ""
		if e.Review != nil {
			review = *e.Review
		}
		row := []string{
			e.ID, e.Title, e.Author, string(e.Status), string(e.Type),
			fmtInt(e.CurrentPage), fmtInt(e.TotalPages), fmtInt(e.CurrentVolume), fmtInt(e.TotalVolumes),
			fmtInt(e.Rating), review, fmtDate(e.StartDate), fmtDate(e.FinishDate),
			e.CreatedAt.UTC().Format(time.RFC3339), e.UpdatedAt.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func readHeader(r *csv.Reader) (map[string]int, error) {
	row, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	index := make(map[string]int, len(row))
	for i, name := range row {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := index["title"]; !ok {
		return nil, errors.New("header must contain a title column")
	}
	return index, nil
}

func valueAt(header map[string]int, row []string, name string) string {
	i, ok := header[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parseOptInt(s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func optText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ReadCSV parses rows laid out like CSVHeader into inputs for Create.
// Columns may appear in any order; id and timestamps are ignored.
func ReadCSV(r io.Reader) ([]EntryInput, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := readHeader(cr)
	if err != nil {
		return nil, err
	}

	var out []EntryInput
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if len(row) == 0 || valueAt(header, row, "title") == "" {
			continue
		}

		in := EntryInput{
			Title:      optText(valueAt(header, row, "title")),
			Author:     optText(valueAt(header, row, "author")),
			Review:     optText(valueAt(header, row, "review")),
			StartDate:  optText(valueAt(header, row, "start_date")),
			FinishDate: optText(valueAt(header, row, "finish_date")),
		}
		if s := valueAt(header, row, "status"); s != "" {
			st := models.EntryStatus(strings.ToUpper(s))
			in.Status = &st
		}
		if s := valueAt(header, row, "type"); s != "" {
			ty := models.ContentType(strings.ToUpper(s))
			in.Type = &ty
		}

		ints := []struct {
			col string
			dst **int
		}{
			{"current_page", &in.CurrentPage},
			{"total_pages", &in.TotalPages},
			{"current_volume", &in.CurrentVolume},
			{"total_volumes", &in.TotalVolumes},
			{"rating", &in.Rating},
		}
		for _, f := range ints {
			v, err := parseOptInt(valueAt(header, row, f.col))
			if err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", line, f.col, err)
			}
			*f.dst = v
		}
		out = append(out, in)
	}
	return out, nil
}
