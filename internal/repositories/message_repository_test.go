package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	db, mockDB, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mockDB
}

var messageRows = []string{"id", "conversation_id", "sender_id", "content", "read", "created_at"}

func TestAppendUpdatesCountersInOneTransaction(t *testing.T) {
	db, mockDB := newMockDB(t)
	repo := NewMessageRepo(db)
	now := time.Now()

	mockDB.ExpectBegin()
	mockDB.ExpectQuery("INSERT INTO messages").
		WithArgs(5, 1, "hello").
		WillReturnRows(sqlmock.NewRows(messageRows).AddRow(40, 5, 1, "hello", false, now))
	mockDB.ExpectExec("UPDATE conversations SET").
		WithArgs("hello", now, 1, 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectCommit()

	msg, err := repo.Append(context.Background(), 5, 1, "hello")
	require.NoError(t, err)
	assert.Equal(t, 40, msg.ID)
	assert.Equal(t, "hello", msg.Content)
	assert.False(t, msg.Read)

	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestAppendIncrementsOnlyRecipientCounter(t *testing.T) {
	db, mockDB := newMockDB(t)
	repo := NewMessageRepo(db)
	now := time.Now()

	mockDB.ExpectBegin()
	mockDB.ExpectQuery("INSERT INTO messages").
		WithArgs(5, 1, "hi").
		WillReturnRows(sqlmock.NewRows(messageRows).AddRow(41, 5, 1, "hi", false, now))
	// The increment is conditional per participant column: only the side
	// whose user id differs from the sender moves.
	mockDB.ExpectExec(`unread_user1 = unread_user1 \+ CASE WHEN user1_id <> \$3 THEN 1 ELSE 0 END,\s*unread_user2 = unread_user2 \+ CASE WHEN user2_id <> \$3 THEN 1 ELSE 0 END`).
		WithArgs("hi", now, 1, 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectCommit()

	_, err := repo.Append(context.Background(), 5, 1, "hi")
	require.NoError(t, err)
	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestAppendUnknownConversationRollsBack(t *testing.T) {
	db, mockDB := newMockDB(t)
	repo := NewMessageRepo(db)
	now := time.Now()

	mockDB.ExpectBegin()
	mockDB.ExpectQuery("INSERT INTO messages").
		WithArgs(999, 1, "hi").
		WillReturnRows(sqlmock.NewRows(messageRows).AddRow(42, 999, 1, "hi", false, now))
	mockDB.ExpectExec("UPDATE conversations SET").
		WithArgs("hi", now, 1, 999).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mockDB.ExpectRollback()

	_, err := repo.Append(context.Background(), 999, 1, "hi")
	require.ErrorIs(t, err, ErrConversationNotFound)
	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestAppendInsertFailureSkipsCounterUpdate(t *testing.T) {
	db, mockDB := newMockDB(t)
	repo := NewMessageRepo(db)

	mockDB.ExpectBegin()
	mockDB.ExpectQuery("INSERT INTO messages").
		WithArgs(5, 1, "hi").
		WillReturnError(assert.AnError)
	mockDB.ExpectRollback()

	_, err := repo.Append(context.Background(), 5, 1, "hi")
	require.Error(t, err)
	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestMarkReadFlagsMessagesAndZeroesCounter(t *testing.T) {
	db, mockDB := newMockDB(t)
	repo := NewMessageRepo(db)

	mockDB.ExpectBegin()
	// Only counterpart-authored messages flip; the reader's own stay as-is.
	mockDB.ExpectExec(`UPDATE messages SET read = TRUE\s*WHERE conversation_id=\$1 AND sender_id <> \$2 AND read = FALSE`).
		WithArgs(5, 1).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mockDB.ExpectExec(`unread_user1 = CASE WHEN user1_id = \$2 THEN 0 ELSE unread_user1 END,\s*unread_user2 = CASE WHEN user2_id = \$2 THEN 0 ELSE unread_user2 END`).
		WithArgs(5, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectCommit()

	require.NoError(t, repo.MarkRead(context.Background(), 5, 1))
	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestMarkReadUnknownConversation(t *testing.T) {
	db, mockDB := newMockDB(t)
	repo := NewMessageRepo(db)

	mockDB.ExpectBegin()
	mockDB.ExpectExec("UPDATE messages SET read").
		WithArgs(999, 1).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mockDB.ExpectExec("UPDATE conversations SET").
		WithArgs(999, 1).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mockDB.ExpectRollback()

	err := repo.MarkRead(context.Background(), 999, 1)
	require.ErrorIs(t, err, ErrConversationNotFound)
	require.NoError(t, mockDB.ExpectationsWereMet())
}
