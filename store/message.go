package store

import (
	"context"
)

// Message directions.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// Message is one message exchanged with a contact.
type Message struct {
	ID          int32
	UID         string
	UserID      int32
	ContactUID  string
	Content     string
	Direction   string
	AIGenerated bool
	CreatedTs   int64
}

// FindMessage is the find condition for message.
// Results are ordered by created_ts ascending.
type FindMessage struct {
	UserID     *int32
	ContactUID *string
	// SinceTs keeps messages created at or after the given time.
	SinceTs *int64
	Limit   *int
}

func (s *Store) CreateMessage(ctx context.Context, create *Message) (*Message, error) {
	return s.driver.CreateMessage(ctx, create)
}

func (s *Store) ListMessages(ctx context.Context, find *FindMessage) ([]*Message, error) {
	return s.driver.ListMessages(ctx, find)
}
