package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mailpipe/internal/model"
)

type SentRepository struct {
	db *pgxpool.Pool
}

func NewSentRepository(db *pgxpool.Pool) *SentRepository {
	return &SentRepository{db: db}
}

// Record appends a sent-archive row. The archive is never mutated after
// insert.
func (r *SentRepository) Record(ctx context.Context, e *model.SentEntry) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO sent_entries (message_id, account_id, connector, sent_from, sent_at, description)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, e.MessageID, e.AccountID, e.Connector, e.SentFrom, e.SentAt, e.Description).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("insert sent entry: %w", err)
	}
	return nil
}

// ByMessageID returns the archive row for a message, or (nil, nil) when
// the message was never sent.
func (r *SentRepository) ByMessageID(ctx context.Context, messageID string) (*model.SentEntry, error) {
	var e model.SentEntry
	err := r.db.QueryRow(ctx, `
		SELECT id, message_id, account_id, connector, sent_from, sent_at, description
		FROM sent_entries WHERE message_id = $1
		ORDER BY sent_at DESC LIMIT 1
	`, messageID).Scan(&e.ID, &e.MessageID, &e.AccountID, &e.Connector, &e.SentFrom, &e.SentAt, &e.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sent entry: %w", err)
	}
	return &e, nil
}

// BySource returns sent entries whose message carries a relation to the
// given table/record, newest first.
func (r *SentRepository) BySource(ctx context.Context, tableID, recordID string) ([]*model.SentEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT DISTINCT s.id, s.message_id, s.account_id, s.connector, s.sent_from, s.sent_at, s.description
		FROM sent_entries s
		JOIN email_relations rel ON rel.message_id = s.message_id
		WHERE rel.table_id = $1 AND rel.record_id = $2
		ORDER BY s.sent_at DESC
	`, tableID, recordID)
	if err != nil {
		return nil, fmt.Errorf("query sent by source: %w", err)
	}
	defer rows.Close()

	var entries []*model.SentEntry
	for rows.Next() {
		var e model.SentEntry
		if err := rows.Scan(&e.ID, &e.MessageID, &e.AccountID, &e.Connector,
			&e.SentFrom, &e.SentAt, &e.Description); err != nil {
			return nil, fmt.Errorf("scan sent entry: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
