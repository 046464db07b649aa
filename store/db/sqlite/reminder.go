package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/followup/store"
)

func (d *DB) CreateReminder(ctx context.Context, create *store.Reminder) (*store.Reminder, error) {
	create.CreatedTs = nowTs(create.CreatedTs)
	if create.Payload == "" {
		create.Payload = "{}"
	}
	fields := []string{
		"uid", "user_id", "contact_uid", "contact_name", "type", "priority",
		"message", "status", "created_ts", "scheduled_ts", "sent_ts", "payload",
	}
	args := []any{
		create.UID, create.UserID, create.ContactUID, create.ContactName, create.Type, create.Priority,
		create.Message, create.Status, create.CreatedTs, create.ScheduledTs, create.SentTs, create.Payload,
	}

	stmt := "INSERT INTO reminder (" + strings.Join(fields, ", ") + ") VALUES (" + placeholders(len(args)) + ") RETURNING id"
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&create.ID); err != nil {
		return nil, fmt.Errorf("failed to create reminder: %w", err)
	}
	return create, nil
}

func (d *DB) ListReminders(ctx context.Context, find *store.FindReminder) ([]*store.Reminder, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.UID; v != nil {
		where, args = append(where, "uid = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UserID; v != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.ContactUID; v != nil {
		where, args = append(where, "contact_uid = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Status; v != nil {
		where, args = append(where, "status = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Type; v != nil {
		where, args = append(where, "type = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `SELECT id, uid, user_id, contact_uid, contact_name, type, priority,
			message, status, created_ts, scheduled_ts, sent_ts, payload
		FROM reminder
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts ASC, id ASC`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reminders: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Reminder, 0)
	for rows.Next() {
		var r store.Reminder
		var scheduledTs, sentTs sql.NullInt64
		if err := rows.Scan(
			&r.ID, &r.UID, &r.UserID, &r.ContactUID, &r.ContactName, &r.Type, &r.Priority,
			&r.Message, &r.Status, &r.CreatedTs, &scheduledTs, &sentTs, &r.Payload,
		); err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		if scheduledTs.Valid {
			r.ScheduledTs = &scheduledTs.Int64
		}
		if sentTs.Valid {
			r.SentTs = &sentTs.Int64
		}
		list = append(list, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) UpdateReminder(ctx context.Context, update *store.UpdateReminder) error {
	set, args := []string{}, []any{}
	if v := update.Status; v != nil {
		set, args = append(set, "status = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Priority; v != nil {
		set, args = append(set, "priority = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Message; v != nil {
		set, args = append(set, "message = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.ScheduledTs; v != nil {
		set, args = append(set, "scheduled_ts = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.SentTs; v != nil {
		set, args = append(set, "sent_ts = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Payload; v != nil {
		set, args = append(set, "payload = "+placeholder(len(args)+1)), append(args, *v)
	}
	if len(set) == 0 {
		return nil
	}

	args = append(args, update.UID)
	stmt := "UPDATE reminder SET " + strings.Join(set, ", ") + " WHERE uid = " + placeholder(len(args))
	if v := update.ExpectedStatus; v != nil {
		args = append(args, *v)
		stmt += " AND status = " + placeholder(len(args))
	}
	result, err := d.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("failed to update reminder: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errors.Wrapf(sql.ErrNoRows, "reminder %s", update.UID)
	}
	return nil
}

func (d *DB) DeleteReminder(ctx context.Context, delete *store.DeleteReminder) error {
	stmt := "DELETE FROM reminder WHERE uid = " + placeholder(1)
	if _, err := d.db.ExecContext(ctx, stmt, delete.UID); err != nil {
		return fmt.Errorf("failed to delete reminder: %w", err)
	}
	return nil
}
