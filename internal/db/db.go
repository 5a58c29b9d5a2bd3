package db

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Connect initializes the database connection and runs migrations.
func Connect(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS conversations (
            id SERIAL PRIMARY KEY,
            user1_id INT NOT NULL,
            user2_id INT NOT NULL,
            item_id INT,
            status TEXT NOT NULL DEFAULT 'active',
            last_message TEXT NOT NULL DEFAULT '',
            last_message_time TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            unread_user1 INT NOT NULL DEFAULT 0,
            unread_user2 INT NOT NULL DEFAULT 0,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            CHECK (user1_id < user2_id)
        );`,
		// One conversation per (pair, item) key; COALESCE folds the NULL
		// item of a global conversation into the constraint.
		`CREATE UNIQUE INDEX IF NOT EXISTS conversations_pair_item_key
            ON conversations (user1_id, user2_id, COALESCE(item_id, 0));`,
		`CREATE TABLE IF NOT EXISTS messages (
            id SERIAL PRIMARY KEY,
            conversation_id INT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
            sender_id INT NOT NULL,
            content TEXT NOT NULL,
            read BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE INDEX IF NOT EXISTS messages_conversation_time_idx
            ON messages (conversation_id, created_at);`,
		`CREATE TABLE IF NOT EXISTS item_messages (
            id SERIAL PRIMARY KEY,
            item_id INT NOT NULL,
            sender_id INT NOT NULL,
            sender_name TEXT NOT NULL,
            content TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE INDEX IF NOT EXISTS item_messages_item_time_idx
            ON item_messages (item_id, created_at);`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	log.Println("database migrations applied")
	return nil
}
