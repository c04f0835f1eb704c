package domain

import "time"

type Snapshot struct {
	Users     []User    `json:"users"`
	FetchedAt time.Time `json:"fetched_at"`
}
