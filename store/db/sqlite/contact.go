package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/hrygo/followup/store"
)

func (d *DB) CreateContact(ctx context.Context, create *store.Contact) (*store.Contact, error) {
	create.CreatedTs = nowTs(create.CreatedTs)
	fields := []string{"uid", "user_id", "name", "platform", "category", "created_ts"}
	args := []any{create.UID, create.UserID, create.Name, create.Platform, create.Category, create.CreatedTs}

	stmt := "INSERT INTO contact (" + strings.Join(fields, ", ") + ") VALUES (" + placeholders(len(args)) + ") RETURNING id"
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&create.ID); err != nil {
		return nil, fmt.Errorf("failed to create contact: %w", err)
	}
	return create, nil
}

func (d *DB) ListContacts(ctx context.Context, find *store.FindContact) ([]*store.Contact, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.UID; v != nil {
		where, args = append(where, "uid = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UserID; v != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `SELECT id, uid, user_id, name, platform, category, created_ts
		FROM contact
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts ASC, id ASC`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query contacts: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Contact, 0)
	for rows.Next() {
		var c store.Contact
		if err := rows.Scan(&c.ID, &c.UID, &c.UserID, &c.Name, &c.Platform, &c.Category, &c.CreatedTs); err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		list = append(list, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) DeleteContact(ctx context.Context, delete *store.DeleteContact) error {
	stmt := "DELETE FROM contact WHERE uid = " + placeholder(1) + " AND user_id = " + placeholder(2)
	if _, err := d.db.ExecContext(ctx, stmt, delete.UID, delete.UserID); err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}
	return nil
}

func (d *DB) ListContactOwners(ctx context.Context) ([]int32, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT DISTINCT user_id FROM contact ORDER BY user_id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query contact owners: %w", err)
	}
	defer rows.Close()

	var list []int32
	for rows.Next() {
		var id int32
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan contact owner: %w", err)
		}
		list = append(list, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}
