package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/hrygo/followup/store"
)

func (d *DB) UpsertUserSetting(ctx context.Context, upsert *store.UserSetting) (*store.UserSetting, error) {
	upsert.UpdatedTs = nowTs(upsert.UpdatedTs)
	stmt := `INSERT INTO user_setting (user_id, key, value, updated_ts)
		VALUES (` + placeholders(4) + `)
		ON CONFLICT (user_id, key) DO UPDATE SET value = excluded.value, updated_ts = excluded.updated_ts`
	if _, err := d.db.ExecContext(ctx, stmt, upsert.UserID, upsert.Key, upsert.Value, upsert.UpdatedTs); err != nil {
		return nil, fmt.Errorf("failed to upsert user setting: %w", err)
	}
	return upsert, nil
}

func (d *DB) ListUserSettings(ctx context.Context, find *store.FindUserSetting) ([]*store.UserSetting, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.UserID; v != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.Key; v != nil {
		where, args = append(where, "key = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `SELECT user_id, key, value, updated_ts
		FROM user_setting
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY user_id ASC, key ASC`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query user settings: %w", err)
	}
	defer rows.Close()

	list := make([]*store.UserSetting, 0)
	for rows.Next() {
		var s store.UserSetting
		if err := rows.Scan(&s.UserID, &s.Key, &s.Value, &s.UpdatedTs); err != nil {
			return nil, fmt.Errorf("failed to scan user setting: %w", err)
		}
		list = append(list, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}
