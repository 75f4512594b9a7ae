package tests

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nkarpov/todo-api/internal/model"
	"github.com/nkarpov/todo-api/internal/repo"
	"github.com/nkarpov/todo-api/internal/service"
)

func TestConcurrent_IdempotencyKeys(t *testing.T) {
	pool, cleanup := SetupTestDB(t)
	defer cleanup()

	TruncateTables(t, pool)
	userID := SeedUser(t, pool, "a@x.com", "pw")

	taskService := service.NewTaskService(repo.NewTaskRepo(pool))
	ctx := context.Background()

	const goroutines = 10
	const idempKey = "concurrent-test-key"

	var wg sync.WaitGroup
	results := make([]model.Task, goroutines)
	errors := make([]error, goroutines)

	// Launch concurrent requests with same idempotency key
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			req := model.CreateTaskRequest{Title: fmt.Sprintf("Concurrent Task %d", idx)}
			results[idx], errors[idx] = taskService.Create(ctx, userID, req, idempKey)
		}(i)
	}

	wg.Wait()

	for i, err := range errors {
		require.NoError(t, err, "goroutine %d failed", i)
		assert.Equal(t, userID, results[i].UserID)
	}

	// Exactly one mapping survives the race; once it is written every
	// later request with the key resolves to that task
	var canonical int64
	err := pool.QueryRow(ctx, `
		SELECT resource_id FROM idempotency_keys WHERE user_id = $1 AND key = $2
	`, userID, idempKey).Scan(&canonical)
	require.NoError(t, err)

	again, err := taskService.Create(ctx, userID, model.CreateTaskRequest{Title: "late arrival"}, idempKey)
	require.NoError(t, err)
	assert.Equal(t, canonical, again.ID)
}

func TestConcurrent_ToggleSerializes(t *testing.T) {
	pool, cleanup := SetupTestDB(t)
	defer cleanup()

	TruncateTables(t, pool)
	userID := SeedUser(t, pool, "a@x.com", "pw")
	taskIDs := SeedTasks(t, pool, userID, 1)

	taskRepo := repo.NewTaskRepo(pool)
	ctx := context.Background()

	const toggles = 10 // even count: final state must be the initial one

	var wg sync.WaitGroup
	for i := 0; i < toggles; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := taskRepo.ToggleComplete(ctx, userID, taskIDs[0])
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Row-level locking makes every toggle atomic, so an even number of
	// flips lands back on false
	task, err := taskRepo.Get(ctx, userID, taskIDs[0])
	require.NoError(t, err)
	assert.False(t, task.Completed)
}

func TestConcurrent_UsersStayIsolated(t *testing.T) {
	pool, cleanup := SetupTestDB(t)
	defer cleanup()

	TruncateTables(t, pool)

	taskRepo := repo.NewTaskRepo(pool)
	ctx := context.Background()

	const users = 5
	const tasksPerUser = 10

	userIDs := make([]string, users)
	for i := range userIDs {
		userIDs[i] = SeedUser(t, pool, fmt.Sprintf("user%d@x.com", i), "pw")
	}

	var wg sync.WaitGroup
	for _, userID := range userIDs {
		for j := 0; j < tasksPerUser; j++ {
			wg.Add(1)
			go func(uid string, n int) {
				defer wg.Done()
				_, err := taskRepo.Create(ctx, uid, model.CreateTaskRequest{
					Title: fmt.Sprintf("Task %d", n),
				})
				assert.NoError(t, err)
			}(userID, j)
		}
	}
	wg.Wait()

	for _, userID := range userIDs {
		tasks, err := taskRepo.List(ctx, userID, model.TaskFilter{})
		require.NoError(t, err)
		assert.Len(t, tasks, tasksPerUser)

		for _, task := range tasks {
			assert.Equal(t, userID, task.UserID)
		}
	}
}
