package models

import "time"

type EntryStatus string

const (
	StatusReading  EntryStatus = "READING"
	StatusFinished EntryStatus = "FINISHED"
	StatusWishlist EntryStatus = "WISHLIST"
)

// LibraryEntry is one book or manga tracked by its owner.
type LibraryEntry struct {
	ID            string      `json:"id"`
	UserID        string      `json:"userId"`
	Title         string      `json:"title"`
	Author        string      `json:"author"`
	Status        EntryStatus `json:"status"`
	Type          ContentType `json:"type"`
	CurrentPage   *int        `json:"currentPage"`
	TotalPages    *int        `json:"totalPages"`
	CurrentVolume *int        `json:"currentVolume"`
	TotalVolumes  *int        `json:"totalVolumes"`
	Rating        *int        `json:"rating"`
	Review        *string     `json:"review"`
	StartDate     *time.Time  `json:"startDate"`
	FinishDate    *time.Time  `json:"finishDate"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// LibraryStats summarizes one user's entries.
type LibraryStats struct {
	Total             int     `json:"total"`
	Reading           int     `json:"reading"`
	Finished          int     `json:"finished"`
	Wishlist          int     `json:"wishlist"`
	AverageRating     float64 `json:"averageRating"`
	TotalPages        int     `json:"totalPages"`
	CurrentProgress   int     `json:"currentProgress"` // percent
	FinishedThisYear  int     `json:"finishedThisYear"`
	FinishedThisMonth int     `json:"finishedThisMonth"`
}
