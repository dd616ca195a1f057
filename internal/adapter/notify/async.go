package notify

import (
	"context"
	"sync"
	"time"

	"meref-loan-engine/internal/domain/event"
	"meref-loan-engine/internal/infrastructure/metrics"

	"go.uber.org/zap"
)

var _ event.Publisher = (*Async)(nil)

type AsyncOptions struct {
	Buffer  int
	Retries int
	Backoff time.Duration
	Timeout time.Duration
	Metrics *metrics.Collector
	Log     *zap.Logger
}

// Async is an event.Publisher that queues events and delivers them from a
// single background worker. A full queue drops the event; delivery errors are
// retried, then logged and counted. Neither ever reaches the publisher's caller.
type Async struct {
	sender Sender
	opts   AsyncOptions
	queue  chan event.Event

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
	done      chan struct{}
}

func NewAsync(sender Sender, opts AsyncOptions) *Async {
	if opts.Buffer <= 0 {
		opts.Buffer = 256
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 200 * time.Millisecond
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	a := &Async{
		sender: sender,
		opts:   opts,
		queue:  make(chan event.Event, opts.Buffer),
		done:   make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *Async) Publish(_ context.Context, e event.Event) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		a.drop(e, "publisher closed")
		return
	}
	select {
	case a.queue <- e:
	default:
		a.drop(e, "queue full")
	}
}

func (a *Async) drop(e event.Event, reason string) {
	a.opts.Metrics.NotificationFailed()
	a.opts.Log.Warn("notification dropped",
		zap.String("reason", reason),
		zap.String("kind", string(e.Kind)),
		zap.String("subject_id", e.SubjectID))
}

func (a *Async) run() {
	defer close(a.done)
	for e := range a.queue {
		a.deliver(e)
	}
}

func (a *Async) deliver(e event.Event) {
	var err error
	for attempt := 0; attempt <= a.opts.Retries; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * a.opts.Backoff)
		}
		ctx, cancel := context.WithTimeout(context.Background(), a.opts.Timeout)
		err = a.sender.Send(ctx, e)
		cancel()
		if err == nil {
			return
		}
		a.opts.Log.Debug("notification attempt failed",
			zap.String("dedupe_key", e.DedupeKey()), zap.Int("attempt", attempt+1), zap.Error(err))
	}
	a.opts.Metrics.NotificationFailed()
	a.opts.Log.Error("notification delivery failed",
		zap.String("kind", string(e.Kind)),
		zap.String("subject_id", e.SubjectID),
		zap.String("status", e.Status),
		zap.Error(err))
}

// Close stops accepting events and waits for the queue to drain or ctx to end.
func (a *Async) Close(ctx context.Context) error {
	a.closeOnce.Do(func() {
		a.mu.Lock()
		a.closed = true
		close(a.queue)
		a.mu.Unlock()
	})
	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
