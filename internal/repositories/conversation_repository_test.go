package repositories

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/models"
)

var conversationRows = []string{"id", "user1_id", "user2_id", "item_id", "status", "last_message", "last_message_time", "unread_user1", "unread_user2", "created_at"}

func conversationRow(id, user1, user2 int, status string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(conversationRows).AddRow(id, user1, user2, nil, status, "", now, 0, 0, now)
}

func TestFindOrCreateNormalizesPair(t *testing.T) {
	db, mockDB := newMockDB(t)
	repo := NewConversationRepo(db)

	// Caller order (8, 3) becomes stored order (3, 8).
	mockDB.ExpectQuery(`INSERT INTO conversations \(user1_id, user2_id, item_id\)`).
		WithArgs(3, 8, nil).
		WillReturnRows(conversationRow(10, 3, 8, "active"))

	conv, err := repo.FindOrCreate(context.Background(), 8, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, conv.User1ID)
	assert.Equal(t, 8, conv.User2ID)
	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestFindOrCreateLosingRaceReReads(t *testing.T) {
	db, mockDB := newMockDB(t)
	repo := NewConversationRepo(db)

	// ON CONFLICT DO NOTHING returns no row when another caller won.
	mockDB.ExpectQuery("INSERT INTO conversations").
		WithArgs(1, 2, nil).
		WillReturnError(sql.ErrNoRows)
	mockDB.ExpectQuery("SELECT .* FROM conversations").
		WithArgs(1, 2, nil).
		WillReturnRows(conversationRow(10, 1, 2, "active"))

	conv, err := repo.FindOrCreate(context.Background(), 1, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, 10, conv.ID)
	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestFindOrCreateRejectsSelf(t *testing.T) {
	db, _ := newMockDB(t)
	repo := NewConversationRepo(db)

	_, err := repo.FindOrCreate(context.Background(), 4, 4, nil)
	require.ErrorIs(t, err, ErrSelfConversation)
}

func TestTransitionDistinguishesNotFoundFromInvalid(t *testing.T) {
	db, mockDB := newMockDB(t)
	repo := NewConversationRepo(db)

	// Zero rows moved and the conversation exists: the state disallowed it.
	mockDB.ExpectQuery("UPDATE conversations SET status").
		WillReturnError(sql.ErrNoRows)
	mockDB.ExpectQuery("SELECT .* FROM conversations WHERE id").
		WithArgs(5).
		WillReturnRows(conversationRow(5, 1, 2, "archived"))

	_, err := repo.Transition(context.Background(), 5, models.StatusResolved)
	require.ErrorIs(t, err, ErrInvalidTransition)

	// Zero rows moved and no such conversation at all.
	mockDB.ExpectQuery("UPDATE conversations SET status").
		WillReturnError(sql.ErrNoRows)
	mockDB.ExpectQuery("SELECT .* FROM conversations WHERE id").
		WithArgs(999).
		WillReturnError(sql.ErrNoRows)

	_, err = repo.Transition(context.Background(), 999, models.StatusResolved)
	require.ErrorIs(t, err, ErrConversationNotFound)

	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestTransitionRejectsUnknownTarget(t *testing.T) {
	db, _ := newMockDB(t)
	repo := NewConversationRepo(db)

	_, err := repo.Transition(context.Background(), 5, models.StatusActive)
	require.ErrorIs(t, err, ErrInvalidTransition)
}
