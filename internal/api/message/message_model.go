package message

import "time"

// CreateRequest represents the send-message request body. The sender is
// always the verified caller, never a field of the body.
type CreateRequest struct {
	ToUser string `json:"to_user"`
	Body   string `json:"body"`
}

// ReadReceipt is the mark-as-read response payload.
type ReadReceipt struct {
	ID     int64     `json:"id"`
	ReadAt time.Time `json:"read_at"`
}
