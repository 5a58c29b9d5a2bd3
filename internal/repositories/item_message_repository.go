package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"messaging-service/internal/models"
)

const itemMessageColumns = `id, item_id, sender_id, sender_name, content, created_at`

// ItemMessageRepository persists the flat per-item discussion log.
type ItemMessageRepository interface {
	Create(ctx context.Context, itemID, senderID int, senderName, content string) (models.ItemMessage, error)
	ListForItem(ctx context.Context, itemID int) ([]models.ItemMessage, error)
	DeleteForItem(ctx context.Context, itemID int) (int64, error)
}

// ItemMessageRepo is a sqlx-backed repository.
type ItemMessageRepo struct {
	db *sqlx.DB
}

// NewItemMessageRepo constructs ItemMessageRepo.
func NewItemMessageRepo(db *sqlx.DB) *ItemMessageRepo {
	return &ItemMessageRepo{db: db}
}

// Create stores one discussion message for an item.
func (r *ItemMessageRepo) Create(ctx context.Context, itemID, senderID int, senderName, content string) (models.ItemMessage, error) {
	var msg models.ItemMessage
	err := r.db.QueryRowxContext(ctx, `INSERT INTO item_messages (item_id, sender_id, sender_name, content)
        VALUES ($1, $2, $3, $4) RETURNING `+itemMessageColumns, itemID, senderID, senderName, content).
		Scan(&msg.ID, &msg.ItemID, &msg.SenderID, &msg.SenderName, &msg.Content, &msg.CreatedAt)
	return msg, err
}

// ListForItem returns the item's discussion log, oldest first.
func (r *ItemMessageRepo) ListForItem(ctx context.Context, itemID int) ([]models.ItemMessage, error) {
	var msgs []models.ItemMessage
	err := r.db.SelectContext(ctx, &msgs, `SELECT `+itemMessageColumns+` FROM item_messages
        WHERE item_id=$1 ORDER BY created_at ASC, id ASC`, itemID)
	return msgs, err
}

// DeleteForItem removes the whole log for an item. Called as a cleanup
// side-effect when the item itself is deleted.
func (r *ItemMessageRepo) DeleteForItem(ctx context.Context, itemID int) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM item_messages WHERE item_id=$1`, itemID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
