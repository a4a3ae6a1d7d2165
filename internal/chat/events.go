package chat

import (
	"encoding/json"
	"fmt"

	"github.com/roqcodes/ZyraClient/internal/session"
)

// Event type discriminators used by the assistant backend's stream.
const (
	eventText         = "text"
	eventProducts     = "products"
	eventSessionID    = "session_id"
	eventAuthRequired = "auth_required"
	eventDone         = "done"
	eventError        = "error"
)

// streamEvent is the decoded form of one SSE payload. Type selects
// which of the remaining fields carries the payload.
type streamEvent struct {
	Type      string            `json:"type"`
	Text      string            `json:"text,omitempty"`
	Products  []session.Product `json:"products,omitempty"`
	SessionID string            `json:"sessionId,omitempty"`
	Tool      string            `json:"tool,omitempty"`
	Error     string            `json:"error,omitempty"`
}

func decodeEvent(data []byte) (streamEvent, error) {
	var ev streamEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return streamEvent{}, fmt.Errorf("failed to decode stream event: %w", err)
	}
	if ev.Type == "" {
		return streamEvent{}, fmt.Errorf("stream event has no type discriminator")
	}
	return ev, nil
}

// triggerRequest is the body of the POST that asks the backend to begin
// producing a turn's stream output. SessionID is null before the first
// server-confirmed turn.
type triggerRequest struct {
	Message      string       `json:"message"`
	SessionID    *string      `json:"sessionId"`
	ShopDomain   string       `json:"shopDomain"`
	CustomerInfo customerInfo `json:"customerInfo"`
}

type customerInfo struct {
	ID string `json:"id"`
}
