package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mailpipe/internal/mailerr"
	"mailpipe/internal/model"
)

type MessageRepository struct {
	db *pgxpool.Pool
}

func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create inserts the message with its recipient rows in one transaction.
func (r *MessageRepository) Create(ctx context.Context, m *model.Message) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO messages (id, subject, body, is_html)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, m.ID, m.Subject, m.Body, m.IsHTML).Scan(&m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	if err := insertRecipients(ctx, tx, m); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Update rewrites subject, body and recipient lists of a draft message.
func (r *MessageRepository) Update(ctx context.Context, m *model.Message) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE messages SET subject = $1, body = $2, is_html = $3
		WHERE id = $4
	`, m.Subject, m.Body, m.IsHTML, m.ID)
	if err != nil {
		return fmt.Errorf("update message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return mailerr.ErrMessageNotFound
	}

	if _, err := tx.Exec(ctx, `DELETE FROM recipients WHERE message_id = $1`, m.ID); err != nil {
		return fmt.Errorf("clear recipients: %w", err)
	}
	if err := insertRecipients(ctx, tx, m); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func insertRecipients(ctx context.Context, tx pgx.Tx, m *model.Message) error {
	insert := func(kind model.RecipientKind, addrs []string) error {
		for _, addr := range addrs {
			if _, err := tx.Exec(ctx, `
				INSERT INTO recipients (message_id, kind, address)
				VALUES ($1, $2, $3)
			`, m.ID, kind, addr); err != nil {
				return fmt.Errorf("insert recipient: %w", err)
			}
		}
		return nil
	}
	if err := insert(model.RecipientTo, m.To); err != nil {
		return err
	}
	if err := insert(model.RecipientCc, m.Cc); err != nil {
		return err
	}
	return insert(model.RecipientBcc, m.Bcc)
}

// Get loads the full aggregate. A missing backing record maps to
// mailerr.ErrMessageNotFound; messages are user-deletable out of band and
// every caller must tolerate that.
func (r *MessageRepository) Get(ctx context.Context, id string) (*model.Message, error) {
	var m model.Message
	err := r.db.QueryRow(ctx, `
		SELECT id, subject, body, is_html, created_at
		FROM messages WHERE id = $1
	`, id).Scan(&m.ID, &m.Subject, &m.Body, &m.IsHTML, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, mailerr.ErrMessageNotFound
		}
		return nil, fmt.Errorf("get message: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT kind, address FROM recipients
		WHERE message_id = $1 ORDER BY id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("get recipients: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var kind model.RecipientKind
		var addr string
		if err := rows.Scan(&kind, &addr); err != nil {
			return nil, fmt.Errorf("scan recipient: %w", err)
		}
		switch kind {
		case model.RecipientTo:
			m.To = append(m.To, addr)
		case model.RecipientCc:
			m.Cc = append(m.Cc, addr)
		case model.RecipientBcc:
			m.Bcc = append(m.Bcc, addr)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	attRows, err := r.db.Query(ctx, `
		SELECT id, message_id, name, mime_type, content
		FROM attachments WHERE message_id = $1 ORDER BY id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("get attachments: %w", err)
	}
	defer attRows.Close()
	for attRows.Next() {
		var a model.Attachment
		if err := attRows.Scan(&a.ID, &a.MessageID, &a.Name, &a.MimeType, &a.Content); err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		m.Attachments = append(m.Attachments, a)
	}
	if err := attRows.Err(); err != nil {
		return nil, err
	}

	return &m, nil
}

// Delete removes the message; recipients and attachments cascade.
func (r *MessageRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM messages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return mailerr.ErrMessageNotFound
	}
	return nil
}

// AddAttachment appends an attachment row. Duplicate names are permitted.
func (r *MessageRepository) AddAttachment(ctx context.Context, messageID string, att *model.Attachment) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO attachments (message_id, name, mime_type, content)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, messageID, att.Name, att.MimeType, att.Content).Scan(&att.ID)
	if err != nil {
		return fmt.Errorf("insert attachment: %w", err)
	}
	att.MessageID = messageID
	return nil
}

// DeleteAttachment removes one attachment row.
func (r *MessageRepository) DeleteAttachment(ctx context.Context, messageID string, attachmentID int64) error {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM attachments WHERE id = $1 AND message_id = $2
	`, attachmentID, messageID)
	if err != nil {
		return fmt.Errorf("delete attachment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return mailerr.ErrMessageNotFound
	}
	return nil
}
