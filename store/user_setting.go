package store

import (
	"context"
)

// UserSettingKeyReminder stores the JSON encoded reminder settings.
const UserSettingKeyReminder = "reminder"

// UserSetting is a per-user key/value setting.
type UserSetting struct {
	UserID    int32
	Key       string
	Value     string
	UpdatedTs int64
}

// FindUserSetting is the find condition for user settings.
type FindUserSetting struct {
	UserID *int32
	Key    *string
}

func (s *Store) UpsertUserSetting(ctx context.Context, upsert *UserSetting) (*UserSetting, error) {
	return s.driver.UpsertUserSetting(ctx, upsert)
}

func (s *Store) ListUserSettings(ctx context.Context, find *FindUserSetting) ([]*UserSetting, error) {
	return s.driver.ListUserSettings(ctx, find)
}

// GetUserSetting returns the setting for userID and key, or nil.
func (s *Store) GetUserSetting(ctx context.Context, userID int32, key string) (*UserSetting, error) {
	list, err := s.driver.ListUserSettings(ctx, &FindUserSetting{UserID: &userID, Key: &key})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}
