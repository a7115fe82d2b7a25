package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mailpipe/internal/mailerr"
	"mailpipe/internal/model"
)

type OutboxRepository struct {
	db *pgxpool.Pool
}

func NewOutboxRepository(db *pgxpool.Pool) *OutboxRepository {
	return &OutboxRepository{db: db}
}

const outboxColumns = `id, message_id, account_id, connector, status, owner_id,
	description, error_message, not_before, created_at, updated_at`

func scanEntry(row pgx.Row) (*model.OutboxEntry, error) {
	var e model.OutboxEntry
	err := row.Scan(
		&e.ID,
		&e.MessageID,
		&e.AccountID,
		&e.Connector,
		&e.Status,
		&e.OwnerID,
		&e.Description,
		&e.ErrorMessage,
		&e.NotBefore,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// UpsertDraft creates or refreshes the draft entry for a message. The
// unique constraint on message_id makes SaveAsDraft idempotent.
func (r *OutboxRepository) UpsertDraft(ctx context.Context, e *model.OutboxEntry) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO outbox_entries (message_id, status, owner_id, description)
		VALUES ($1, 'draft', $2, $3)
		ON CONFLICT (message_id) DO UPDATE
			SET description = EXCLUDED.description, updated_at = NOW()
		RETURNING `+outboxColumns+`
	`, e.MessageID, e.OwnerID, e.Description).Scan(
		&e.ID, &e.MessageID, &e.AccountID, &e.Connector, &e.Status, &e.OwnerID,
		&e.Description, &e.ErrorMessage, &e.NotBefore, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert draft: %w", err)
	}
	return nil
}

// Create inserts a queued or processing entry directly (enqueue without a
// prior draft, or the synchronous send path).
func (r *OutboxRepository) Create(ctx context.Context, e *model.OutboxEntry) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO outbox_entries
			(message_id, account_id, connector, status, owner_id, description, not_before)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`, e.MessageID, e.AccountID, e.Connector, e.Status, e.OwnerID, e.Description, e.NotBefore).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

func (r *OutboxRepository) GetByID(ctx context.Context, id int64) (*model.OutboxEntry, error) {
	e, err := scanEntry(r.db.QueryRow(ctx, `
		SELECT `+outboxColumns+` FROM outbox_entries WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, mailerr.ErrEntryNotFound
		}
		return nil, fmt.Errorf("get outbox entry: %w", err)
	}
	return e, nil
}

func (r *OutboxRepository) GetByMessageID(ctx context.Context, messageID string) (*model.OutboxEntry, error) {
	e, err := scanEntry(r.db.QueryRow(ctx, `
		SELECT `+outboxColumns+` FROM outbox_entries WHERE message_id = $1
	`, messageID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, mailerr.ErrEntryNotFound
		}
		return nil, fmt.Errorf("get outbox entry by message: %w", err)
	}
	return e, nil
}

// SetQueued moves a draft (or failed) entry to queued with account,
// connector and optional scheduled-send timestamp.
func (r *OutboxRepository) SetQueued(ctx context.Context, id int64, accountID int64, connector string, notBefore *time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE outbox_entries
		SET status = 'queued', account_id = $1, connector = $2, not_before = $3,
			error_message = '', updated_at = NOW()
		WHERE id = $4
	`, accountID, connector, notBefore, id)
	if err != nil {
		return fmt.Errorf("set queued: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return mailerr.ErrEntryNotFound
	}
	return nil
}

// ClaimProcessing is the compare-and-set transition that guards against
// two workers dispatching the same entry. Returns false when another
// worker already claimed it.
func (r *OutboxRepository) ClaimProcessing(ctx context.Context, id int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE outbox_entries
		SET status = 'processing', updated_at = NOW()
		WHERE id = $1 AND status IN ('draft', 'queued', 'failed')
	`, id)
	if err != nil {
		return false, fmt.Errorf("claim processing: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkFailed records the failure outcome; the entry stays queryable for
// diagnostics and manual retry.
func (r *OutboxRepository) MarkFailed(ctx context.Context, id int64, errorMessage string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE outbox_entries
		SET status = 'failed', error_message = $1, updated_at = NOW()
		WHERE id = $2
	`, errorMessage, id)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return mailerr.ErrEntryNotFound
	}
	return nil
}

// Delete removes the entry. Called on successful dispatch and on discard.
func (r *OutboxRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM outbox_entries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete outbox entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return mailerr.ErrEntryNotFound
	}
	return nil
}

// ListReady returns queued entries whose scheduled-send time has passed
// (or was never set), oldest first.
func (r *OutboxRepository) ListReady(ctx context.Context, limit int) ([]*model.OutboxEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+outboxColumns+` FROM outbox_entries
		WHERE status = 'queued'
		AND (not_before IS NULL OR not_before <= NOW())
		ORDER BY created_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list ready entries: %w", err)
	}
	defer rows.Close()
	return collectEntries(rows)
}

// ListByOwner returns the owner's entries, newest first.
func (r *OutboxRepository) ListByOwner(ctx context.Context, ownerID int64) ([]*model.OutboxEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+outboxColumns+` FROM outbox_entries
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list entries by owner: %w", err)
	}
	defer rows.Close()
	return collectEntries(rows)
}

// ListFailed returns failed entries for diagnostics.
func (r *OutboxRepository) ListFailed(ctx context.Context, limit int) ([]*model.OutboxEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+outboxColumns+` FROM outbox_entries
		WHERE status = 'failed'
		ORDER BY updated_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list failed entries: %w", err)
	}
	defer rows.Close()
	return collectEntries(rows)
}

func collectEntries(rows pgx.Rows) ([]*model.OutboxEntry, error) {
	var entries []*model.OutboxEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
