package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/followup/store"
)

func (d *DB) CreateCommunicationContract(ctx context.Context, create *store.CommunicationContract) (*store.CommunicationContract, error) {
	create.CreatedTs = nowTs(create.CreatedTs)
	create.UpdatedTs = nowTs(create.UpdatedTs)
	fields := []string{
		"uid", "user_id", "contact_uid", "contact_name", "frequency", "time_of_day", "days_of_week",
		"status", "last_checkin_ts", "next_checkin_ts", "created_ts", "updated_ts",
	}
	args := []any{
		create.UID, create.UserID, create.ContactUID, create.ContactName, create.Frequency, create.TimeOfDay, create.DaysOfWeek,
		create.Status, create.LastCheckinTs, create.NextCheckinTs, create.CreatedTs, create.UpdatedTs,
	}

	stmt := "INSERT INTO communication_contract (" + strings.Join(fields, ", ") + ") VALUES (" + placeholders(len(args)) + ") RETURNING id"
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&create.ID); err != nil {
		return nil, fmt.Errorf("failed to create communication contract: %w", err)
	}
	return create, nil
}

func (d *DB) ListCommunicationContracts(ctx context.Context, find *store.FindCommunicationContract) ([]*store.CommunicationContract, error) {
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
	if v := find.NextCheckinBefore; v != nil {
		where, args = append(where, "next_checkin_ts <= "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `SELECT id, uid, user_id, contact_uid, contact_name, frequency, time_of_day, days_of_week,
			status, last_checkin_ts, next_checkin_ts, created_ts, updated_ts
		FROM communication_contract
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY next_checkin_ts ASC, id ASC`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query communication contracts: %w", err)
	}
	defer rows.Close()

	list := make([]*store.CommunicationContract, 0)
	for rows.Next() {
		var c store.CommunicationContract
		var lastCheckinTs sql.NullInt64
		if err := rows.Scan(
			&c.ID, &c.UID, &c.UserID, &c.ContactUID, &c.ContactName, &c.Frequency, &c.TimeOfDay, &c.DaysOfWeek,
			&c.Status, &lastCheckinTs, &c.NextCheckinTs, &c.CreatedTs, &c.UpdatedTs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan communication contract: %w", err)
		}
		if lastCheckinTs.Valid {
			c.LastCheckinTs = &lastCheckinTs.Int64
		}
		list = append(list, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) UpdateCommunicationContract(ctx context.Context, update *store.UpdateCommunicationContract) error {
	set, args := []string{}, []any{}
	if v := update.Status; v != nil {
		set, args = append(set, "status = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.LastCheckinTs; v != nil {
		set, args = append(set, "last_checkin_ts = "+placeholder(len(args)+1)), append(args, *v)
	} else if update.ClearLastCheckin {
		set = append(set, "last_checkin_ts = NULL")
	}
	if v := update.NextCheckinTs; v != nil {
		set, args = append(set, "next_checkin_ts = "+placeholder(len(args)+1)), append(args, *v)
	}
	if len(set) == 0 {
		return nil
	}
	set, args = append(set, "updated_ts = "+placeholder(len(args)+1)), append(args, nowTs(derefTs(update.UpdatedTs)))

	args = append(args, update.UID)
	stmt := "UPDATE communication_contract SET " + strings.Join(set, ", ") + " WHERE uid = " + placeholder(len(args))
	result, err := d.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("failed to update communication contract: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errors.Wrapf(sql.ErrNoRows, "communication contract %s", update.UID)
	}
	return nil
}

func derefTs(ts *int64) int64 {
	if ts == nil {
		return 0
	}
	return *ts
}
