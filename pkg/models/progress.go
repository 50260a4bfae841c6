package models

import "time"

type ProgressHistory struct {
	EntryID string    `json:"entryId"`
	UserID  string    `json:"userId"`
	Page    *int      `json:"page,omitempty"`
	Volume  *int      `json:"volume,omitempty"`
	At      time.Time `json:"at"`
}
