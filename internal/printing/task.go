package printing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/noah-isme/pharma-billing/internal/invoice"
	"github.com/noah-isme/pharma-billing/internal/obs"
	"github.com/noah-isme/pharma-billing/internal/pricing"
)

// TaskRender is the asynq task type for invoice print rendering.
const TaskRender = "invoice:render"

// DefaultQueue is used when Enqueuer.Queue is empty.
const DefaultQueue = "render"

// TaskClient is the subset of *asynq.Client used to enqueue render tasks.
type TaskClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Enqueuer schedules render tasks. It implements invoice.Renderer.
type Enqueuer struct {
	Client   TaskClient
	Queue    string
	MaxRetry int
	Timeout  time.Duration
}

var _ invoice.Renderer = Enqueuer{}

// NewTask builds the render task for a computed invoice.
func NewTask(d invoice.Draft, totals pricing.Totals) (*asynq.Task, error) {
	payload, err := json.Marshal(Build(d, totals))
	if err != nil {
		return nil, fmt.Errorf("encode render payload: %w", err)
	}
	return asynq.NewTask(TaskRender, payload), nil
}

// EnqueueRender queues one render per invoice; re-submitting the same invoice id
// while a task is retained is a no-op.
func (e Enqueuer) EnqueueRender(ctx context.Context, d invoice.Draft, totals pricing.Totals) error {
	if e.Client == nil {
		return errors.New("printing: task client not configured")
	}
	task, err := NewTask(d, totals)
	if err != nil {
		return err
	}
	queue := e.Queue
	if queue == "" {
		queue = DefaultQueue
	}
	opts := []asynq.Option{asynq.Queue(queue), asynq.TaskID(d.ID.String())}
	if e.MaxRetry > 0 {
		opts = append(opts, asynq.MaxRetry(e.MaxRetry))
	}
	if e.Timeout > 0 {
		opts = append(opts, asynq.Timeout(e.Timeout))
	}
	if _, err := e.Client.EnqueueContext(ctx, task, opts...); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			obs.CountRender("enqueue", "duplicate")
			return nil
		}
		obs.CountRender("enqueue", "error")
		return fmt.Errorf("enqueue render task: %w", err)
	}
	obs.CountRender("enqueue", "ok")
	return nil
}
