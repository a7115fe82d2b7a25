package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the pipeline tables if they do not exist yet.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'member',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS accounts (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id),
			address TEXT NOT NULL,
			connector TEXT NOT NULL,
			host TEXT NOT NULL DEFAULT '',
			imap_host TEXT NOT NULL DEFAULT '',
			username TEXT NOT NULL DEFAULT '',
			secret TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			subject TEXT NOT NULL,
			body TEXT NOT NULL,
			is_html BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS recipients (
			id BIGSERIAL PRIMARY KEY,
			message_id TEXT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
			kind TEXT NOT NULL,
			address TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS attachments (
			id BIGSERIAL PRIMARY KEY,
			message_id TEXT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			mime_type TEXT NOT NULL,
			content TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS outbox_entries (
			id BIGSERIAL PRIMARY KEY,
			message_id TEXT NOT NULL UNIQUE REFERENCES messages(id) ON DELETE CASCADE,
			account_id BIGINT REFERENCES accounts(id),
			connector TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			owner_id BIGINT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			error_message TEXT NOT NULL DEFAULT '',
			not_before TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_outbox_status_not_before
			ON outbox_entries(status, not_before)`,
		`CREATE TABLE IF NOT EXISTS scheduled_tasks (
			id BIGSERIAL PRIMARY KEY,
			not_before TIMESTAMPTZ NOT NULL,
			outbox_entry_id BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scheduled_tasks_not_before
			ON scheduled_tasks(not_before)`,
		`CREATE TABLE IF NOT EXISTS email_relations (
			id BIGSERIAL PRIMARY KEY,
			message_id TEXT NOT NULL,
			table_id TEXT NOT NULL,
			record_id TEXT NOT NULL,
			relation_type TEXT NOT NULL,
			origin TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_email_relations_message
			ON email_relations(message_id)`,
		`CREATE INDEX IF NOT EXISTS idx_email_relations_target
			ON email_relations(table_id, record_id)`,
		`CREATE TABLE IF NOT EXISTS sent_entries (
			id BIGSERIAL PRIMARY KEY,
			message_id TEXT NOT NULL,
			account_id BIGINT NOT NULL,
			connector TEXT NOT NULL,
			sent_from TEXT NOT NULL,
			sent_at TIMESTAMPTZ NOT NULL,
			description TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sent_entries_message
			ON sent_entries(message_id)`,
	}

	for _, statement := range statements {
		if _, err := db.Exec(ctx, statement); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
