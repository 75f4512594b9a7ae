package service

import (
	"context"
	"errors"
	"strings"

	"github.com/nkarpov/todo-api/internal/model"
	"github.com/nkarpov/todo-api/internal/repo"
)

var (
	ErrValidation = errors.New("validation error")
)

var validPriorities = map[string]bool{
	"high":   true,
	"medium": true,
	"low":    true,
}

type TaskService struct {
	repo repo.TaskRepository
}

func NewTaskService(repo repo.TaskRepository) *TaskService {
	return &TaskService{repo: repo}
}

func (s *TaskService) Create(ctx context.Context, userID string, req model.CreateTaskRequest, idempKey string) (model.Task, error) {
	if strings.TrimSpace(req.Title) == "" {
		return model.Task{}, ErrValidation
	}
	priority, err := normalizePriority(req.Priority)
	if err != nil {
		return model.Task{}, err
	}
	req.Priority = priority

	if idempKey != "" { // Повторный запрос с тем же ключом возвращает уже созданную задачу
		if existingID, err := s.repo.GetIdempotencyKey(ctx, userID, idempKey); err == nil {
			return s.repo.Get(ctx, userID, existingID)
		}
	}

	task, err := s.repo.Create(ctx, userID, req)
	if err != nil {
		return task, err
	}

	if idempKey != "" {
		s.repo.SaveIdempotencyKey(ctx, userID, idempKey, task.ID)
	}

	return task, nil
}

func (s *TaskService) Get(ctx context.Context, userID string, id int64) (model.Task, error) {
	return s.repo.Get(ctx, userID, id)
}

func (s *TaskService) List(ctx context.Context, userID string, filter model.TaskFilter) ([]model.Task, error) {
	return s.repo.List(ctx, userID, filter)
}

func (s *TaskService) Update(ctx context.Context, userID string, id int64, patch model.TaskPatch) (model.Task, error) {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return model.Task{}, ErrValidation
	}
	priority, err := normalizePriority(patch.Priority)
	if err != nil {
		return model.Task{}, err
	}
	patch.Priority = priority
	return s.repo.Update(ctx, userID, id, patch)
}

func (s *TaskService) Delete(ctx context.Context, userID string, id int64) error {
	return s.repo.Delete(ctx, userID, id)
}

func (s *TaskService) ToggleComplete(ctx context.Context, userID string, id int64) (model.Task, error) {
	return s.repo.ToggleComplete(ctx, userID, id)
}

func (s *TaskService) GetStats(ctx context.Context, userID string) (repo.Stats, error) {
	return s.repo.GetStats(ctx, userID)
}

// normalizePriority приводит приоритет к нижнему регистру и проверяет,
// что он из закрытого набора high/medium/low. Пустое значение допустимо.
func normalizePriority(p *string) (*string, error) {
	if p == nil {
		return nil, nil
	}
	v := strings.ToLower(strings.TrimSpace(*p))
	if v == "" {
		return nil, nil
	}
	if !validPriorities[v] {
		return nil, ErrValidation
	}
	return &v, nil
}
