package types

import "time"

// Message is the stored record. FromUsername and ToUsername never
// change after creation; ReadAt is nil until the recipient marks the
// message read and is never cleared afterwards.
type Message struct {
	ID           int64      `json:"id"`
	FromUsername string     `json:"from_username"`
	ToUsername   string     `json:"to_username"`
	Body         string     `json:"body"`
	SentAt       time.Time  `json:"sent_at"`
	ReadAt       *time.Time `json:"read_at"`
}

// MessageDetail is a message with both parties' minimal profiles joined,
// as returned by GET /messages/{id}.
type MessageDetail struct {
	ID       int64      `json:"id"`
	Body     string     `json:"body"`
	SentAt   time.Time  `json:"sent_at"`
	ReadAt   *time.Time `json:"read_at"`
	FromUser PublicUser `json:"from_user"`
	ToUser   PublicUser `json:"to_user"`
}

// MessageSummary is the user-centric view used by the profile message
// listings: the counterpart's profile joined, the caller's side implied
// by which endpoint produced it.
type MessageSummary struct {
	ID          int64      `json:"id"`
	Body        string     `json:"body"`
	SentAt      time.Time  `json:"sent_at"`
	ReadAt      *time.Time `json:"read_at"`
	Counterpart PublicUser `json:"counterpart"`
}
