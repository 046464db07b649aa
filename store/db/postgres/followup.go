package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/followup/store"
)

func (d *DB) CreateFollowup(ctx context.Context, create *store.Followup) (*store.Followup, error) {
	create.CreatedTs = nowTs(create.CreatedTs)
	fields := []string{"uid", "user_id", "contact_uid", "contact_name", "reminder_uid", "message", "status", "scheduled_ts", "created_ts"}
	args := []any{
		create.UID, create.UserID, create.ContactUID, create.ContactName, create.ReminderUID,
		create.Message, create.Status, create.ScheduledTs, create.CreatedTs,
	}

	stmt := "INSERT INTO followup (" + strings.Join(fields, ", ") + ") VALUES (" + placeholders(len(args)) + ") RETURNING id"
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&create.ID); err != nil {
		return nil, fmt.Errorf("failed to create followup: %w", err)
	}
	return create, nil
}

func (d *DB) ListFollowups(ctx context.Context, find *store.FindFollowup) ([]*store.Followup, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.UID; v != nil {
		where, args = append(where, "uid = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UserID; v != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Status; v != nil {
		where, args = append(where, "status = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `SELECT id, uid, user_id, contact_uid, contact_name, reminder_uid, message, status, scheduled_ts, created_ts
		FROM followup
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY scheduled_ts ASC, id ASC`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query followups: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Followup, 0)
	for rows.Next() {
		var f store.Followup
		if err := rows.Scan(
			&f.ID, &f.UID, &f.UserID, &f.ContactUID, &f.ContactName, &f.ReminderUID,
			&f.Message, &f.Status, &f.ScheduledTs, &f.CreatedTs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan followup: %w", err)
		}
		list = append(list, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) UpdateFollowup(ctx context.Context, update *store.UpdateFollowup) error {
	set, args := []string{}, []any{}
	if v := update.Status; v != nil {
		set, args = append(set, "status = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.ReminderUID; v != nil {
		set, args = append(set, "reminder_uid = "+placeholder(len(args)+1)), append(args, *v)
	}
	if len(set) == 0 {
		return nil
	}

	args = append(args, update.UID)
	stmt := "UPDATE followup SET " + strings.Join(set, ", ") + " WHERE uid = " + placeholder(len(args))
	result, err := d.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("failed to update followup: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errors.Wrapf(sql.ErrNoRows, "followup %s", update.UID)
	}
	return nil
}
