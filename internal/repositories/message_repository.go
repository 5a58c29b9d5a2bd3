package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"messaging-service/internal/models"
)

const messageColumns = `id, conversation_id, sender_id, content, read, created_at`

// MessageRepository persists conversation messages together with the
// denormalized conversation state they imply (last message cache, unread
// counters, read flags). Every write that spans both tables runs in a single
// transaction so a crash can never leave a message without its counter
// update or vice versa.
type MessageRepository interface {
	Append(ctx context.Context, conversationID, senderID int, content string) (models.Message, error)
	ListForConversation(ctx context.Context, conversationID int) ([]models.Message, error)
	MarkRead(ctx context.Context, conversationID, userID int) error
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Append inserts a message and, in the same transaction, refreshes the
// conversation's last-message cache and increments the unread counter of the
// participant who did not send it. The row update takes the conversation's
// row lock, which serializes concurrent appends to one conversation.
func (r *MessageRepo) Append(ctx context.Context, conversationID, senderID int, content string) (models.Message, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Message{}, err
	}
	defer tx.Rollback()

	var msg models.Message
	err = tx.QueryRowxContext(ctx, `INSERT INTO messages (conversation_id, sender_id, content)
        VALUES ($1, $2, $3) RETURNING `+messageColumns, conversationID, senderID, content).
		Scan(&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.Content, &msg.Read, &msg.CreatedAt)
	if err != nil {
		return models.Message{}, err
	}

	res, err := tx.ExecContext(ctx, `UPDATE conversations SET
            last_message=$1,
            last_message_time=$2,
            unread_user1 = unread_user1 + CASE WHEN user1_id <> $3 THEN 1 ELSE 0 END,
            unread_user2 = unread_user2 + CASE WHEN user2_id <> $3 THEN 1 ELSE 0 END
        WHERE id=$4`, msg.Content, msg.CreatedAt, senderID, conversationID)
	if err != nil {
		return models.Message{}, err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return models.Message{}, err
	}
	if count == 0 {
		return models.Message{}, ErrConversationNotFound
	}

	if err := tx.Commit(); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// ListForConversation returns the conversation's messages in append order.
func (r *MessageRepo) ListForConversation(ctx context.Context, conversationID int) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `SELECT `+messageColumns+` FROM messages
        WHERE conversation_id=$1 ORDER BY created_at ASC, id ASC`, conversationID)
	return msgs, err
}

// MarkRead flags every counterpart-authored message as read and zeroes the
// reader's unread counter, atomically.
func (r *MessageRepo) MarkRead(ctx context.Context, conversationID, userID int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE messages SET read = TRUE
        WHERE conversation_id=$1 AND sender_id <> $2 AND read = FALSE`, conversationID, userID); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, `UPDATE conversations SET
            unread_user1 = CASE WHEN user1_id = $2 THEN 0 ELSE unread_user1 END,
            unread_user2 = CASE WHEN user2_id = $2 THEN 0 ELSE unread_user2 END
        WHERE id=$1`, conversationID, userID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrConversationNotFound
	}

	return tx.Commit()
}
