package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hrygo/followup/store"
)

func (d *DB) CreateMemoryEntry(ctx context.Context, create *store.MemoryEntry) (*store.MemoryEntry, error) {
	create.CreatedTs = nowTs(create.CreatedTs)
	fields := []string{
		"uid", "user_id", "contact_uid", "content", "context", "emotional_context", "sentiment",
		"topics", "urgency", "category", "action_items", "response_quality", "communication_style", "created_ts",
	}
	args := []any{
		create.UID, create.UserID, create.ContactUID, create.Content, create.Context, create.EmotionalContext, create.Sentiment,
		encodeStrings(create.Topics), create.Urgency, create.Category, encodeStrings(create.ActionItems),
		create.ResponseQuality, create.CommunicationStyle, create.CreatedTs,
	}

	stmt := "INSERT INTO memory_entry (" + strings.Join(fields, ", ") + ") VALUES (" + placeholders(len(args)) + ") RETURNING id"
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&create.ID); err != nil {
		return nil, fmt.Errorf("failed to create memory entry: %w", err)
	}
	return create, nil
}

func (d *DB) ListMemoryEntries(ctx context.Context, find *store.FindMemoryEntry) ([]*store.MemoryEntry, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.UserID; v != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.ContactUID; v != nil {
		where, args = append(where, "contact_uid = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `SELECT id, uid, user_id, contact_uid, content, context, emotional_context, sentiment,
			topics, urgency, category, action_items, response_quality, communication_style, created_ts
		FROM memory_entry
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC, id DESC`
	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query memory entries: %w", err)
	}
	defer rows.Close()

	list := make([]*store.MemoryEntry, 0)
	for rows.Next() {
		var e store.MemoryEntry
		var topics, actionItems string
		var quality sql.NullFloat64
		if err := rows.Scan(
			&e.ID, &e.UID, &e.UserID, &e.ContactUID, &e.Content, &e.Context, &e.EmotionalContext, &e.Sentiment,
			&topics, &e.Urgency, &e.Category, &actionItems, &quality, &e.CommunicationStyle, &e.CreatedTs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan memory entry: %w", err)
		}
		e.Topics = decodeStrings(topics)
		e.ActionItems = decodeStrings(actionItems)
		if quality.Valid {
			e.ResponseQuality = &quality.Float64
		}
		list = append(list, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}
