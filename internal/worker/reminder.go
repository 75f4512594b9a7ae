package worker

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Pool рассылает напоминания о просроченных задачах. Несколько воркеров
// разбирают задачи через FOR UPDATE SKIP LOCKED, поэтому одна задача
// не может быть обработана дважды.
type Pool struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	count  int
	wg     sync.WaitGroup
	stop   chan struct{}
}

func NewPool(pool *pgxpool.Pool, logger *zap.Logger, count int) *Pool {
	return &Pool{
		pool:   pool,
		logger: logger,
		count:  count,
		stop:   make(chan struct{}),
	}
}

func (p *Pool) Start(ctx context.Context) {
	p.logger.Info("Starting reminder pool", zap.Int("workers", p.count))

	for i := 0; i < p.count; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

func (p *Pool) Stop() {
	p.logger.Info("Stopping reminder pool...")
	close(p.stop)
	p.wg.Wait()
	p.logger.Info("Reminder pool stopped")
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.remindNext(ctx, id); err != nil && err != pgx.ErrNoRows {
				p.logger.Error("worker error", zap.Int("worker", id), zap.Error(err))
			}
		}
	}
}

type dueTask struct {
	ID      int64
	UserID  string
	Title   string
	DueDate time.Time
}

// remindNext забирает одну просроченную задачу и помечает ее отправленной
func (p *Pool) remindNext(ctx context.Context, workerID int) error {
	task, err := p.claimDue(ctx)
	if err != nil {
		return err
	}

	p.logger.Info("Task overdue",
		zap.Int("worker", workerID),
		zap.Int64("task_id", task.ID),
		zap.String("user_id", task.UserID),
		zap.String("title", task.Title),
		zap.Time("due_date", task.DueDate),
	)
	return nil
}

func (p *Pool) claimDue(ctx context.Context) (dueTask, error) {
	var t dueTask

	err := p.pool.QueryRow(ctx, `
		WITH claimed AS (
			SELECT id
			FROM tasks
			WHERE completed = false
			  AND due_date <= now()
			  AND notified_at IS NULL
			ORDER BY due_date
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		UPDATE tasks
		SET notified_at = now()
		FROM claimed
		WHERE tasks.id = claimed.id
		RETURNING tasks.id, tasks.user_id, tasks.title, tasks.due_date
	`).Scan(&t.ID, &t.UserID, &t.Title, &t.DueDate)

	return t, err
}
