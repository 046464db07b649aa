package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/followup/internal/profile"
	"github.com/hrygo/followup/store"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		mock.ExpectClose()
		require.NoError(t, db.Close())
	})
	return NewFromDB(db, &profile.Profile{Driver: "postgres"}).(*DB), mock
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "$1, $2, $3", placeholders(3))
	assert.Equal(t, "", placeholders(0))
}

func TestCreateContact(t *testing.T) {
	d, mock := newMockDB(t)
	mock.ExpectQuery(`INSERT INTO contact \(uid, user_id, name, platform, category, created_ts\) VALUES \(\$1, \$2, \$3, \$4, \$5, \$6\) RETURNING id`).
		WithArgs("c-ana", int32(1), "Ana", "whatsapp", "", int64(100)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	c, err := d.CreateContact(context.Background(), &store.Contact{UID: "c-ana", UserID: 1, Name: "Ana", Platform: "whatsapp", CreatedTs: 100})
	require.NoError(t, err)
	assert.Equal(t, int32(7), c.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListContactsFilters(t *testing.T) {
	d, mock := newMockDB(t)
	mock.ExpectQuery(`FROM contact\s+WHERE 1 = 1 AND user_id = \$1`).
		WithArgs(int32(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "uid", "user_id", "name", "platform", "category", "created_ts"}).
			AddRow(1, "c-ana", 1, "Ana", "whatsapp", "friend", 100).
			AddRow(2, "c-bo", 1, "Bo", "sms", "", 200))

	userID := int32(1)
	list, err := d.ListContacts(context.Background(), &store.FindContact{UserID: &userID})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Bo", list[1].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateReminderMissingRow(t *testing.T) {
	d, mock := newMockDB(t)
	mock.ExpectExec(`UPDATE reminder SET status = \$1 WHERE uid = \$2`).
		WithArgs("sent", "r1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	status := "sent"
	err := d.UpdateReminder(context.Background(), &store.UpdateReminder{UID: "r1", Status: &status})
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateReminderExpectedStatus(t *testing.T) {
	d, mock := newMockDB(t)
	mock.ExpectExec(`UPDATE reminder SET status = \$1 WHERE uid = \$2 AND status = \$3`).
		WithArgs("sent", "r1", "pending").
		WillReturnResult(sqlmock.NewResult(0, 0))

	status, expected := "sent", "pending"
	err := d.UpdateReminder(context.Background(), &store.UpdateReminder{UID: "r1", Status: &status, ExpectedStatus: &expected})
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateReminderNothingToSet(t *testing.T) {
	d, mock := newMockDB(t)
	require.NoError(t, d.UpdateReminder(context.Background(), &store.UpdateReminder{UID: "r1"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertUserSetting(t *testing.T) {
	d, mock := newMockDB(t)
	mock.ExpectExec(`INSERT INTO user_setting .* ON CONFLICT \(user_id, key\) DO UPDATE`).
		WithArgs(int32(3), "reminder", `{"browser":true}`, int64(50)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := d.UpsertUserSetting(context.Background(), &store.UserSetting{UserID: 3, Key: "reminder", Value: `{"browser":true}`, UpdatedTs: 50})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsInitialized(t *testing.T) {
	d, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT EXISTS`).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := d.IsInitialized(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectQuery(`SELECT EXISTS`).WillReturnError(errors.New("connection reset"))
	_, err = d.IsInitialized(context.Background())
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
