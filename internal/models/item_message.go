package models

import "time"

// ItemMessage is one entry in the flat per-item discussion log. Any
// authenticated user may post; there is no conversation wrapper, unread
// tracking, or lifecycle. SenderName is denormalized at write time so the
// log stays readable even if the user record changes later.
type ItemMessage struct {
	ID         int       `db:"id" json:"id"`
	ItemID     int       `db:"item_id" json:"item_id"`
	SenderID   int       `db:"sender_id" json:"sender_id"`
	SenderName string    `db:"sender_name" json:"sender_name"`
	Content    string    `db:"content" json:"content"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
