package contract

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hrygo/followup/store"
)

// PersistentStore keeps contracts in the relational store.
type PersistentStore struct {
	store *store.Store
}

// NewPersistentStore creates a Store over s.
func NewPersistentStore(s *store.Store) *PersistentStore {
	return &PersistentStore{store: s}
}

var _ Store = (*PersistentStore)(nil)

func (p *PersistentStore) Create(ctx context.Context, c *Contract) error {
	_, err := p.store.CreateCommunicationContract(ctx, &store.CommunicationContract{
		UID:           c.ID,
		UserID:        c.UserID,
		ContactUID:    c.ContactID,
		ContactName:   c.ContactName,
		Frequency:     string(c.Frequency),
		TimeOfDay:     c.TimeOfDay.String(),
		DaysOfWeek:    FormatWeekdays(c.DaysOfWeek),
		Status:        string(c.Status),
		LastCheckinTs: unixPtr(c.LastCheckin),
		NextCheckinTs: c.NextCheckin.Unix(),
		CreatedTs:     c.CreatedAt.Unix(),
		UpdatedTs:     c.UpdatedAt.Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to persist contract: %w", err)
	}
	return nil
}

func (p *PersistentStore) Get(ctx context.Context, id string) (*Contract, error) {
	row, err := p.store.GetCommunicationContract(ctx, &store.FindCommunicationContract{UID: &id})
	if err != nil {
		return nil, fmt.Errorf("failed to get contract: %w", err)
	}
	if row == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return contractFromRow(row), nil
}

func (p *PersistentStore) List(ctx context.Context, filter Filter) ([]*Contract, error) {
	find := &store.FindCommunicationContract{}
	if filter.UserID != 0 {
		find.UserID = &filter.UserID
	}
	if filter.ContactID != "" {
		find.ContactUID = &filter.ContactID
	}
	if filter.Status != "" {
		status := string(filter.Status)
		find.Status = &status
	}
	if filter.DueBy != nil {
		ts := filter.DueBy.Unix()
		find.NextCheckinBefore = &ts
	}
	rows, err := p.store.ListCommunicationContracts(ctx, find)
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}
	list := make([]*Contract, 0, len(rows))
	for _, row := range rows {
		list = append(list, contractFromRow(row))
	}
	return list, nil
}

func (p *PersistentStore) Update(ctx context.Context, c *Contract) error {
	status := string(c.Status)
	next, updated := c.NextCheckin.Unix(), c.UpdatedAt.Unix()
	err := p.store.UpdateCommunicationContract(ctx, &store.UpdateCommunicationContract{
		UID:              c.ID,
		Status:           &status,
		LastCheckinTs:    unixPtr(c.LastCheckin),
		ClearLastCheckin: c.LastCheckin == nil,
		NextCheckinTs:    &next,
		UpdatedTs:        &updated,
	})
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, c.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update contract: %w", err)
	}
	return nil
}

func contractFromRow(row *store.CommunicationContract) *Contract {
	c := &Contract{
		ID:          row.UID,
		UserID:      row.UserID,
		ContactID:   row.ContactUID,
		ContactName: row.ContactName,
		Frequency:   Frequency(row.Frequency),
		Status:      Status(row.Status),
		NextCheckin: time.Unix(row.NextCheckinTs, 0),
		CreatedAt:   time.Unix(row.CreatedTs, 0),
		UpdatedAt:   time.Unix(row.UpdatedTs, 0),
	}
	if row.LastCheckinTs != nil {
		last := time.Unix(*row.LastCheckinTs, 0)
		c.LastCheckin = &last
	}
	if tod, err := ParseTimeOfDay(row.TimeOfDay); err == nil {
		c.TimeOfDay = tod
	} else {
		slog.Warn("stored contract has invalid time of day", "contract_id", row.UID, "value", row.TimeOfDay)
	}
	if days, err := ParseWeekdays(row.DaysOfWeek); err == nil {
		c.DaysOfWeek = days
	} else {
		slog.Warn("stored contract has invalid weekdays", "contract_id", row.UID, "value", row.DaysOfWeek)
	}
	return c
}

func unixPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ts := t.Unix()
	return &ts
}
