package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nkarpov/todo-api/internal/model"
)

type TaskRepo struct { // Репозиторий для работы непосредственно с БД
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo { // Конструктор
	return &TaskRepo{
		pool: pool,
	}
}

// Create всегда пишет владельцем userID — user_id из payload игнорируется
func (r *TaskRepo) Create(ctx context.Context, userID string, req model.CreateTaskRequest) (model.Task, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO tasks (user_id, title, description, priority, tags, due_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+taskColumns+`
	`, userID, req.Title, req.Description, req.Priority, joinTags(req.Tags), req.DueDate)

	return scanTask(row)
}

func (r *TaskRepo) Get(ctx context.Context, userID string, id int64) (model.Task, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE id = $1 AND user_id = $2
	`, id, userID)

	t, err := scanTask(row)
	if err == pgx.ErrNoRows {
		return t, ErrorNotFound
	}
	return t, err
}

func (r *TaskRepo) List(ctx context.Context, userID string, filter model.TaskFilter) ([]model.Task, error) {
	query, args := buildListQuery(userID, filter)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]model.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Update применяет только заполненные поля patch одним UPDATE —
// частичная запись при отмене запроса невозможна
func (r *TaskRepo) Update(ctx context.Context, userID string, id int64, patch model.TaskPatch) (model.Task, error) {
	sets := []string{"updated_at = now()"}
	args := []any{id, userID}

	set := func(column string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Title != nil {
		set("title", *patch.Title)
	}
	if patch.Description != nil {
		set("description", *patch.Description)
	}
	if patch.Completed != nil {
		set("completed", *patch.Completed)
	}
	if patch.Priority != nil {
		set("priority", *patch.Priority)
	}
	if patch.Tags != nil {
		set("tags", joinTags(patch.Tags))
	}
	if patch.DueDate != nil {
		set("due_date", *patch.DueDate)
	}

	row := r.pool.QueryRow(ctx, fmt.Sprintf(`
		UPDATE tasks
		SET %s
		WHERE id = $1 AND user_id = $2
		RETURNING %s
	`, strings.Join(sets, ", "), taskColumns), args...)

	t, err := scanTask(row)
	if err == pgx.ErrNoRows {
		return t, ErrorNotFound
	}
	return t, err
}

func (r *TaskRepo) Delete(ctx context.Context, userID string, id int64) error {
	cmd, err := r.pool.Exec(ctx, "DELETE FROM tasks WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrorNotFound
	}
	return nil
}

func (r *TaskRepo) ToggleComplete(ctx context.Context, userID string, id int64) (model.Task, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE tasks
		SET completed = NOT completed, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING `+taskColumns+`
	`, id, userID)

	t, err := scanTask(row)
	if err == pgx.ErrNoRows {
		return t, ErrorNotFound
	}
	return t, err
}

func (r *TaskRepo) SaveIdempotencyKey(ctx context.Context, userID, key string, resourceID int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO idempotency_keys (user_id, key, resource_id) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, key) DO NOTHING
	`, userID, key, resourceID)
	return err
}

func (r *TaskRepo) GetIdempotencyKey(ctx context.Context, userID, key string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		SELECT resource_id FROM idempotency_keys WHERE user_id = $1 AND key = $2
	`, userID, key).Scan(&id)

	if err == pgx.ErrNoRows {
		return 0, ErrorNotFound
	}
	return id, err
}

type Stats struct {
	TotalTasks int            `json:"total_tasks"`
	Completed  int            `json:"completed"`
	Pending    int            `json:"pending"`
	ByPriority map[string]int `json:"by_priority"`
}

func (r *TaskRepo) GetStats(ctx context.Context, userID string) (Stats, error) {
	stats := Stats{ByPriority: make(map[string]int)}

	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE completed),
		       COUNT(*) FILTER (WHERE NOT completed)
		FROM tasks
		WHERE user_id = $1
	`, userID).Scan(&stats.TotalTasks, &stats.Completed, &stats.Pending)
	if err != nil {
		return stats, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT priority, COUNT(*)
		FROM tasks
		WHERE user_id = $1 AND priority IS NOT NULL
		GROUP BY priority
	`, userID)
	if err != nil {
		return stats, err
	}
	defer rows.Close()

	for rows.Next() {
		var priority string
		var count int
		if err := rows.Scan(&priority, &count); err != nil {
			return stats, err
		}
		stats.ByPriority[priority] = count
	}
	return stats, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (model.Task, error) {
	var t model.Task
	var tags string
	err := row.Scan(
		&t.ID, &t.UserID, &t.Title, &t.Description, &t.Completed,
		&t.Priority, &tags, &t.DueDate, &t.CreatedAt, &t.UpdatedAt,
	)
	t.Tags = splitTags(tags)
	return t, err
}

func joinTags(tags []string) string {
	return strings.Join(tags, ",")
}

func splitTags(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}
