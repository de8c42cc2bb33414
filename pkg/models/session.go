package models

import "time"

// Session is one logical conversation thread: an ordered message log plus
// display metadata. Messages order equals chronological send order and
// UpdatedAt is monotonically non-decreasing across mutations.
type Session struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Messages []Message `json:"messages"`
	// CreatedAt/UpdatedAt are serialized as RFC 3339 (ISO-8601).
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Empty reports whether the session has no messages yet.
func (s *Session) Empty() bool { return len(s.Messages) == 0 }
