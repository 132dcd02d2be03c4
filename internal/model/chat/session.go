package chat

import "time"

// Snapshot is a point-in-time copy of a session, safe to render or encode.
type Snapshot struct {
	ID         string    `json:"id"`
	DarkMode   bool      `json:"darkMode"`
	Transcript []Entry   `json:"transcript"`
	CreatedAt  time.Time `json:"createdAt"`
}
