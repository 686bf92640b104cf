package entity

import "time"

type EventType string

const (
	EventInfo         EventType = "info"
	EventSuccess      EventType = "success"
	EventError        EventType = "error"
	EventQueueChanged EventType = "queue"
)

// Event is a status message pushed to connected clients.
type Event struct {
	ID      string    `json:"id"`
	Origin  string    `json:"origin,omitempty"`
	Type    EventType `json:"type"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}
