package library

import (
	"time"

	"github.com/shopspring/decimal"

	"shelfhub/pkg/models"
)

// ComputeStats summarizes entries as of now. Ratings of zero count as
// unrated.
func ComputeStats(entries []models.LibraryEntry, now time.Time) models.LibraryStats {
	var (
		st           models.LibraryStats
		ratingSum    = decimal.Zero
		rated        int64
		progressSum  = decimal.Zero
		progressSeen int64
	)
	st.Total = len(entries)

	for _, e := range entries {
		switch e.Status {
		case models.StatusReading:
			st.Reading++
		case models.StatusFinished:
			st.Finished++
		case models.StatusWishlist:
			st.Wishlist++
		}

		if e.Rating != nil && *e.Rating > 0 {
			ratingSum = ratingSum.Add(decimal.NewFromInt(int64(*e.Rating)))
			rated++
		}
		if e.TotalPages != nil && *e.TotalPages > 0 {
			st.TotalPages += *e.TotalPages
		}

		if e.Status == models.StatusReading &&
			e.CurrentPage != nil && *e.CurrentPage > 0 &&
			e.TotalPages != nil && *e.TotalPages > 0 {
			ratio := decimal.NewFromInt(int64(*e.CurrentPage)).Div(decimal.NewFromInt(int64(*e.TotalPages)))
			progressSum = progressSum.Add(ratio)
			progressSeen++
		}

		if e.FinishDate != nil {
			fd := e.FinishDate.In(now.Location())
			if fd.Year() == now.Year() {
				st.FinishedThisYear++
				if fd.Month() == now.Month() {
					st.FinishedThisMonth++
				}
			}
		}
	}

	if rated > 0 {
		st.AverageRating = ratingSum.Div(decimal.NewFromInt(rated)).Round(1).InexactFloat64()
	}
	if progressSeen > 0 {
		pct := progressSum.Div(decimal.NewFromInt(progressSeen)).Mul(decimal.NewFromInt(100)).Round(0)
		st.CurrentProgress = int(pct.IntPart())
	}
	return st
}
