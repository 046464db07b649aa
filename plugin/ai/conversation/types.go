// Package conversation classifies each contact's conversation as an open loop
// (the user awaits a reply) or a pending reply (the user owes one).
package conversation

import (
	"time"
)

// Direction is the direction of a message relative to the user.
type Direction string

const (
	// DirectionInbound is a message received from the contact.
	DirectionInbound Direction = "inbound"

	// DirectionOutbound is a message sent by the user.
	DirectionOutbound Direction = "outbound"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == DirectionInbound || d == DirectionOutbound
}

// Contact is a person the user talks to.
type Contact struct {
	ID       string `json:"id"`
	UserID   int32  `json:"userId"`
	Name     string `json:"name"`
	Platform string `json:"platform"`
	Category string `json:"category"`
}

// Message is an immutable, append-only message in a contact's history.
type Message struct {
	ID          string    `json:"id"`
	ContactID   string    `json:"contactId"`
	Content     string    `json:"content"`
	Direction   Direction `json:"direction"`
	CreatedAt   time.Time `json:"createdAt"`
	AIGenerated bool      `json:"aiGenerated"`
}

// OpenLoop exists when the user sent the latest message and awaits a reply.
type OpenLoop struct {
	Contact             Contact       `json:"contact"`
	Message             Message       `json:"message"`
	AgeSinceLastMessage time.Duration `json:"ageSinceLastMessage"`
}

// PendingReply exists when the user received the latest message and owes a reply.
type PendingReply struct {
	Contact            Contact `json:"contact"`
	Message            Message `json:"message"`
	HoursSinceReceived float64 `json:"hoursSinceReceived"`
	Urgency            Urgency `json:"urgency"`
}

// Stats aggregates classification output for a dashboard.
type Stats struct {
	OpenLoopsCount      int `json:"openLoopsCount"`
	PendingRepliesCount int `json:"pendingRepliesCount"`
	CheckInsSent        int `json:"checkInsSent"`
	CurrentStreak       int `json:"currentStreak"`
}

// Result is the output of a classification pass.
type Result struct {
	OpenLoops      []OpenLoop     `json:"openLoops"`
	PendingReplies []PendingReply `json:"pendingReplies"`
	Stats          Stats          `json:"stats"`
	// Skipped lists contacts whose analysis failed.
	Skipped []string `json:"skipped,omitempty"`
}
