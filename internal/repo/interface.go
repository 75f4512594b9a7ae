package repo

import (
	"context"

	"github.com/nkarpov/todo-api/internal/model"
)

// UserRepository определяет интерфейс для работы с пользователями
type UserRepository interface {
	Create(ctx context.Context, email, name, hashedPassword string) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id string) (model.User, error)
}

// TaskRepository определяет интерфейс для работы с задачами.
// Каждый метод ограничен задачами владельца userID.
type TaskRepository interface {
	Create(ctx context.Context, userID string, req model.CreateTaskRequest) (model.Task, error)
	Get(ctx context.Context, userID string, id int64) (model.Task, error)
	List(ctx context.Context, userID string, filter model.TaskFilter) ([]model.Task, error)
	Update(ctx context.Context, userID string, id int64, patch model.TaskPatch) (model.Task, error)
	Delete(ctx context.Context, userID string, id int64) error
	ToggleComplete(ctx context.Context, userID string, id int64) (model.Task, error)
	SaveIdempotencyKey(ctx context.Context, userID, key string, resourceID int64) error
	GetIdempotencyKey(ctx context.Context, userID, key string) (int64, error)
	GetStats(ctx context.Context, userID string) (Stats, error)
}
