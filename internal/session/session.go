package session

import "time"

// Sender types for chat messages.
const (
	SenderUser      = "user"
	SenderAssistant = "assistant"
)

// Message represents a single chat message. The ID is assigned by the
// transcript store on persistence and is empty for messages that only
// exist in memory.
type Message struct {
	ID         string `json:"id,omitempty"`
	SenderType string `json:"sender_type"`
	Text       string `json:"text"`
	Timestamp  string `json:"timestamp,omitempty"`
	Read       bool   `json:"read"`
}

// Product is a storefront product as delivered by the assistant backend.
type Product struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Price       string   `json:"price"`
	ImageURL    string   `json:"image_url,omitempty"`
	Description string   `json:"description"`
	Handle      string   `json:"handle"`
	Tags        []string `json:"tags,omitempty"`
}

// Timestamp returns the current time in the ISO-8601 form the backend and
// the transcript store use.
func Timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
