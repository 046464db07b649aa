package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// Contact model related methods.
	CreateContact(ctx context.Context, create *Contact) (*Contact, error)
	ListContacts(ctx context.Context, find *FindContact) ([]*Contact, error)
	DeleteContact(ctx context.Context, delete *DeleteContact) error
	ListContactOwners(ctx context.Context) ([]int32, error)

	// Message model related methods.
	CreateMessage(ctx context.Context, create *Message) (*Message, error)
	ListMessages(ctx context.Context, find *FindMessage) ([]*Message, error)

	// Reminder model related methods.
	CreateReminder(ctx context.Context, create *Reminder) (*Reminder, error)
	ListReminders(ctx context.Context, find *FindReminder) ([]*Reminder, error)
	UpdateReminder(ctx context.Context, update *UpdateReminder) error
	DeleteReminder(ctx context.Context, delete *DeleteReminder) error

	// Followup model related methods.
	CreateFollowup(ctx context.Context, create *Followup) (*Followup, error)
	ListFollowups(ctx context.Context, find *FindFollowup) ([]*Followup, error)
	UpdateFollowup(ctx context.Context, update *UpdateFollowup) error

	// CommunicationContract model related methods.
	CreateCommunicationContract(ctx context.Context, create *CommunicationContract) (*CommunicationContract, error)
	ListCommunicationContracts(ctx context.Context, find *FindCommunicationContract) ([]*CommunicationContract, error)
	UpdateCommunicationContract(ctx context.Context, update *UpdateCommunicationContract) error

	// MemoryEntry model related methods.
	CreateMemoryEntry(ctx context.Context, create *MemoryEntry) (*MemoryEntry, error)
	ListMemoryEntries(ctx context.Context, find *FindMemoryEntry) ([]*MemoryEntry, error)

	// UserSetting model related methods.
	UpsertUserSetting(ctx context.Context, upsert *UserSetting) (*UserSetting, error)
	ListUserSettings(ctx context.Context, find *FindUserSetting) ([]*UserSetting, error)
}
