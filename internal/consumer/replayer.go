package consumer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"example.com/octofit/internal/audit"
)

// ReplayStore is the dead letter storage the Replayer drains.
type ReplayStore interface {
	Due(ctx context.Context, limit int) ([]audit.DeadLetter, error)
	Resolve(ctx context.Context, id int64) error
	Reschedule(ctx context.Context, id int64, reason string, delay time.Duration) error
	Quarantine(ctx context.Context, id int64, reason string) error
}

// Replayer feeds parked messages back through the Handler with exponential
// backoff and quarantines those that exhaust their retries.
type Replayer struct {
	store      ReplayStore
	handler    Handler
	maxRetries int
	baseDelay  time.Duration
	logger     *log.Logger
}

// NewReplayer constructs a Replayer.
func NewReplayer(store ReplayStore, handler Handler, maxRetries int, baseDelay time.Duration) *Replayer {
	if maxRetries <= 0 {
		maxRetries = 5
	}
	if baseDelay <= 0 {
		baseDelay = time.Minute
	}
	return &Replayer{
		store:      store,
		handler:    handler,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     log.New(log.Writer(), "[replay] ", log.LstdFlags),
	}
}

// RunOnce replays one batch of due messages and returns how many were recorded.
func (r *Replayer) RunOnce(ctx context.Context, batchSize int) (int, error) {
	due, err := r.store.Due(ctx, batchSize)
	if err != nil {
		return 0, err
	}

	replayed := 0
	for _, dl := range due {
		if procErr := r.replay(ctx, dl); procErr != nil {
			err = errors.Join(err, procErr)
			continue
		}
		replayed++
	}
	return replayed, err
}

func (r *Replayer) replay(ctx context.Context, dl audit.DeadLetter) error {
	if dl.Retries >= r.maxRetries {
		return errors.Join(
			fmt.Errorf("dead letter %d exhausted %d retries", dl.ID, dl.Retries),
			r.store.Quarantine(ctx, dl.ID, "retry limit reached: "+dl.Reason),
		)
	}

	msg := Message{
		Topic:     dl.Topic,
		Partition: dl.Partition,
		Offset:    dl.Offset,
		Key:       dl.Key,
		Timestamp: dl.FailedAt,
		EventType: dl.EventType,
		Payload:   dl.Payload,
	}
	if handleErr := r.handler.Handle(ctx, msg); handleErr != nil {
		delay := r.backoffDelay(dl.Retries + 1)
		return errors.Join(
			fmt.Errorf("replay dead letter %d: %w", dl.ID, handleErr),
			r.store.Reschedule(ctx, dl.ID, handleErr.Error(), delay),
		)
	}
	return r.store.Resolve(ctx, dl.ID)
}

// backoffDelay doubles per attempt, capped at one hour.
func (r *Replayer) backoffDelay(attempt int) time.Duration {
	delay := time.Duration(1<<uint(attempt-1)) * r.baseDelay
	if delay > time.Hour {
		delay = time.Hour
	}
	return delay
}

// Run replays due messages every interval until ctx is cancelled.
func (r *Replayer) Run(ctx context.Context, interval time.Duration, batchSize int) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := r.RunOnce(ctx, batchSize)
			if err != nil {
				r.logger.Printf("replay error: %v", err)
			}
			if n > 0 {
				r.logger.Printf("replayed %d dead letter(s)", n)
			}
		}
	}
}
