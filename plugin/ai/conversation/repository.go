package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/hrygo/followup/store"
)

var (
	// ErrContactNotFound is returned when a contact does not exist for the user.
	ErrContactNotFound = errors.New("contact not found")

	// ErrInvalidMessage is returned when a message cannot be appended.
	ErrInvalidMessage = errors.New("invalid message")

	// ErrInvalidContact is returned when a contact cannot be created.
	ErrInvalidContact = errors.New("invalid contact")

	// ErrContactExists is returned when the user already has a contact with the id.
	ErrContactExists = errors.New("contact already exists")
)

// Repository loads and appends contacts and messages in the relational store.
type Repository struct {
	store *store.Store
}

// NewRepository creates a repository over s.
func NewRepository(s *store.Store) *Repository {
	return &Repository{store: s}
}

// CreateContact adds a contact for userID.
func (r *Repository) CreateContact(ctx context.Context, userID int32, c Contact) (*Contact, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidContact)
	}
	if c.ID == "" {
		c.ID = shortuuid.New()
	} else {
		existing, err := r.store.GetContact(ctx, &store.FindContact{UID: &c.ID, UserID: &userID})
		if err != nil {
			return nil, fmt.Errorf("failed to get contact: %w", err)
		}
		if existing != nil {
			return nil, fmt.Errorf("%w: %s", ErrContactExists, c.ID)
		}
	}
	row, err := r.store.CreateContact(ctx, &store.Contact{
		UID:      c.ID,
		UserID:   userID,
		Name:     c.Name,
		Platform: c.Platform,
		Category: c.Category,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create contact: %w", err)
	}
	contact := contactFromRow(row)
	return &contact, nil
}

// GetContact returns userID's contact with id.
func (r *Repository) GetContact(ctx context.Context, userID int32, id string) (*Contact, error) {
	row, err := r.store.GetContact(ctx, &store.FindContact{UID: &id, UserID: &userID})
	if err != nil {
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}
	if row == nil {
		return nil, fmt.Errorf("%w: %s", ErrContactNotFound, id)
	}
	contact := contactFromRow(row)
	return &contact, nil
}

// ListContacts returns userID's contacts in creation order.
func (r *Repository) ListContacts(ctx context.Context, userID int32) ([]Contact, error) {
	rows, err := r.store.ListContacts(ctx, &store.FindContact{UserID: &userID})
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	contacts := make([]Contact, 0, len(rows))
	for _, row := range rows {
		contacts = append(contacts, contactFromRow(row))
	}
	return contacts, nil
}

// AppendMessage records m for userID. The contact must exist.
// A zero CreatedAt is stamped with the current time.
func (r *Repository) AppendMessage(ctx context.Context, userID int32, m Message) (*Message, error) {
	if m.ContactID == "" {
		return nil, fmt.Errorf("%w: contactId is required", ErrInvalidMessage)
	}
	if !m.Direction.Valid() {
		return nil, fmt.Errorf("%w: unknown direction %q", ErrInvalidMessage, m.Direction)
	}
	if _, err := r.GetContact(ctx, userID, m.ContactID); err != nil {
		return nil, err
	}
	if m.ID == "" {
		m.ID = shortuuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	row, err := r.store.CreateMessage(ctx, &store.Message{
		UID:         m.ID,
		UserID:      userID,
		ContactUID:  m.ContactID,
		Content:     m.Content,
		Direction:   string(m.Direction),
		AIGenerated: m.AIGenerated,
		CreatedTs:   m.CreatedAt.Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to append message: %w", err)
	}
	msg := messageFromRow(row)
	return &msg, nil
}

// ListMessages returns userID's messages oldest first; an empty contactID lists all contacts.
func (r *Repository) ListMessages(ctx context.Context, userID int32, contactID string) ([]Message, error) {
	find := &store.FindMessage{UserID: &userID}
	if contactID != "" {
		find.ContactUID = &contactID
	}
	rows, err := r.store.ListMessages(ctx, find)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	messages := make([]Message, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, messageFromRow(row))
	}
	return messages, nil
}

// Load returns everything the classifier needs for userID.
func (r *Repository) Load(ctx context.Context, userID int32) ([]Contact, []Message, error) {
	contacts, err := r.ListContacts(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	messages, err := r.ListMessages(ctx, userID, "")
	if err != nil {
		return nil, nil, err
	}
	return contacts, messages, nil
}

// Owners returns the users that have at least one contact.
func (r *Repository) Owners(ctx context.Context) ([]int32, error) {
	owners, err := r.store.ListContactOwners(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list contact owners: %w", err)
	}
	return owners, nil
}

func contactFromRow(row *store.Contact) Contact {
	return Contact{
		ID:       row.UID,
		UserID:   row.UserID,
		Name:     row.Name,
		Platform: row.Platform,
		Category: row.Category,
	}
}

func messageFromRow(row *store.Message) Message {
	return Message{
		ID:          row.UID,
		ContactID:   row.ContactUID,
		Content:     row.Content,
		Direction:   Direction(row.Direction),
		CreatedAt:   time.Unix(row.CreatedTs, 0),
		AIGenerated: row.AIGenerated,
	}
}
