package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"messaging-service/internal/models"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrSelfConversation     = errors.New("cannot start a conversation with yourself")
	ErrInvalidTransition    = errors.New("invalid lifecycle transition")
)

const conversationColumns = `id, user1_id, user2_id, item_id, status, last_message, last_message_time, unread_user1, unread_user2, created_at`

// ConversationRepository abstracts conversation persistence and the
// lifecycle state machine.
type ConversationRepository interface {
	FindOrCreate(ctx context.Context, userID, otherID int, itemID *int) (models.Conversation, error)
	Get(ctx context.Context, conversationID int) (models.Conversation, error)
	IsParticipant(ctx context.Context, conversationID, userID int) (bool, error)
	ListForUser(ctx context.Context, userID int) ([]models.Conversation, error)
	Transition(ctx context.Context, conversationID int, to models.ConversationStatus) (models.Conversation, error)
}

// ConversationRepo is a sqlx implementation of ConversationRepository.
type ConversationRepo struct {
	db *sqlx.DB
}

// NewConversationRepo constructs a ConversationRepo.
func NewConversationRepo(db *sqlx.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

// FindOrCreate returns the unique conversation for the (pair, item) key,
// creating it if absent. The insert races first and falls back to a re-read
// on duplicate key, so concurrent callers all observe the same row.
func (r *ConversationRepo) FindOrCreate(ctx context.Context, userID, otherID int, itemID *int) (models.Conversation, error) {
	if userID == otherID {
		return models.Conversation{}, ErrSelfConversation
	}
	user1, user2 := userID, otherID
	if user1 > user2 {
		user1, user2 = user2, user1
	}

	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv, `INSERT INTO conversations (user1_id, user2_id, item_id)
        VALUES ($1, $2, $3)
        ON CONFLICT (user1_id, user2_id, COALESCE(item_id, 0)) DO NOTHING
        RETURNING `+conversationColumns, user1, user2, itemID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, err
	}

	// Lost the race: the winning row already exists.
	err = r.db.GetContext(ctx, &conv, `SELECT `+conversationColumns+` FROM conversations
        WHERE user1_id=$1 AND user2_id=$2 AND COALESCE(item_id, 0)=COALESCE($3, 0)`, user1, user2, itemID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrConversationNotFound
	}
	return conv, err
}

// Get fetches a conversation by id.
func (r *ConversationRepo) Get(ctx context.Context, conversationID int) (models.Conversation, error) {
	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv, `SELECT `+conversationColumns+` FROM conversations WHERE id=$1`, conversationID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrConversationNotFound
	}
	return conv, err
}

// IsParticipant checks whether a user belongs to the conversation.
func (r *ConversationRepo) IsParticipant(ctx context.Context, conversationID, userID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM conversations WHERE id=$1 AND (user1_id=$2 OR user2_id=$2))`, conversationID, userID)
	return exists, err
}

// ListForUser returns the user's active conversations, most recent activity
// first.
func (r *ConversationRepo) ListForUser(ctx context.Context, userID int) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := r.db.SelectContext(ctx, &convs, `SELECT `+conversationColumns+` FROM conversations
        WHERE (user1_id=$1 OR user2_id=$1) AND status='active'
        ORDER BY last_message_time DESC`, userID)
	return convs, err
}

// Transition applies a lifecycle state change. Allowed transitions are
// active->resolved, active->archived and resolved->archived; archived is
// terminal. An invalid transition is rejected, not silently accepted.
func (r *ConversationRepo) Transition(ctx context.Context, conversationID int, to models.ConversationStatus) (models.Conversation, error) {
	var allowed []string
	switch to {
	case models.StatusResolved:
		allowed = []string{string(models.StatusActive)}
	case models.StatusArchived:
		allowed = []string{string(models.StatusActive), string(models.StatusResolved)}
	default:
		return models.Conversation{}, ErrInvalidTransition
	}

	query, args, err := sqlx.In(`UPDATE conversations SET status=? WHERE id=? AND status IN (?) RETURNING `+conversationColumns, string(to), conversationID, allowed)
	if err != nil {
		return models.Conversation{}, err
	}
	query = r.db.Rebind(query)

	var conv models.Conversation
	err = r.db.GetContext(ctx, &conv, query, args...)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, err
	}

	// No row changed: either the conversation does not exist or it is not
	// in a state the transition accepts.
	if _, gerr := r.Get(ctx, conversationID); gerr != nil {
		return models.Conversation{}, gerr
	}
	return models.Conversation{}, ErrInvalidTransition
}
