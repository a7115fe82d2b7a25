package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"mailpipe/internal/model"
)

type TaskRepository struct {
	db *pgxpool.Pool
}

func NewTaskRepository(db *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create inserts a delayed-dispatch task for an outbox entry.
func (r *TaskRepository) Create(ctx context.Context, t *model.ScheduledTask) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO scheduled_tasks (not_before, outbox_entry_id)
		VALUES ($1, $2)
		RETURNING id, created_at
	`, t.NotBefore, t.OutboxEntryID).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert scheduled task: %w", err)
	}
	return nil
}

// ClaimMatured removes and returns tasks whose not_before has passed,
// oldest first. Deletion inside the claim makes tasks at-most-once: a
// dispatch failure afterwards is recorded on the outbox entry, never by
// putting the task back.
func (r *TaskRepository) ClaimMatured(ctx context.Context, now time.Time, limit int) ([]*model.ScheduledTask, error) {
	rows, err := r.db.Query(ctx, `
		DELETE FROM scheduled_tasks
		WHERE id IN (
			SELECT id FROM scheduled_tasks
			WHERE not_before <= $1
			ORDER BY created_at ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, not_before, outbox_entry_id, created_at
	`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("claim matured tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*model.ScheduledTask
	for rows.Next() {
		var t model.ScheduledTask
		if err := rows.Scan(&t.ID, &t.NotBefore, &t.OutboxEntryID, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan scheduled task: %w", err)
		}
		tasks = append(tasks, &t)
	}
	return tasks, rows.Err()
}
