package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mailpipe/internal/model"
)

type RelationRepository struct {
	db *pgxpool.Pool
}

func NewRelationRepository(db *pgxpool.Pool) *RelationRepository {
	return &RelationRepository{db: db}
}

// Add appends a relation row. No dedup: the index reports what it was
// given and leaves ambiguity to the caller.
func (r *RelationRepository) Add(ctx context.Context, rel *model.Relation) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO email_relations (message_id, table_id, record_id, relation_type, origin)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, rel.MessageID, rel.TableID, rel.RecordID, rel.Type, rel.Origin).
		Scan(&rel.ID, &rel.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert relation: %w", err)
	}
	return nil
}

// ByMessage returns all relations of a message in insertion order.
func (r *RelationRepository) ByMessage(ctx context.Context, messageID string) ([]*model.Relation, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, message_id, table_id, record_id, relation_type, origin, created_at
		FROM email_relations
		WHERE message_id = $1
		ORDER BY id ASC
	`, messageID)
	if err != nil {
		return nil, fmt.Errorf("list relations: %w", err)
	}
	defer rows.Close()
	return collectRelations(rows)
}

func collectRelations(rows pgx.Rows) ([]*model.Relation, error) {
	var rels []*model.Relation
	for rows.Next() {
		var rel model.Relation
		if err := rows.Scan(&rel.ID, &rel.MessageID, &rel.TableID, &rel.RecordID,
			&rel.Type, &rel.Origin, &rel.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan relation: %w", err)
		}
		rels = append(rels, &rel)
	}
	return rels, rows.Err()
}
