package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/store"
)

// ActivityConsumer is the part of the AMQP client the worker drives.
type ActivityConsumer interface {
	ConsumeActivity(ctx context.Context, handler func(context.Context, *amqp.ActivityMessage) error) error
	Reconnect(ctx context.Context) error
}

// ActivityWorker turns activity messages into notifications for the actor.
type ActivityWorker struct {
	notifications store.NotificationStore
	consumer      ActivityConsumer

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewActivityWorker(notifications store.NotificationStore, consumer ActivityConsumer) *ActivityWorker {
	return &ActivityWorker{notifications: notifications, consumer: consumer}
}

// HandleActivity stores one notification per message. Preference changes
// are skipped: they are written by provisioning, not by the user.
func (w *ActivityWorker) HandleActivity(ctx context.Context, msg *amqp.ActivityMessage) error {
	if msg.Entity == core.EntityPreference {
		slog.DebugContext(ctx, "Skipping preference activity", "actor_id", msg.ActorID)
		return nil
	}

	n := core.Notification{
		Title: notificationTitle(msg),
		Body:  msg.Message,
	}
	created, err := w.notifications.CreateNotification(ctx, msg.ActorID, n)
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}

	slog.InfoContext(ctx, "Notification created",
		"actor_id", msg.ActorID,
		"notification_id", created.ID,
		"entity", msg.Entity,
		"entity_id", msg.EntityID)
	return nil
}

func notificationTitle(msg *amqp.ActivityMessage) string {
	entity := strings.ReplaceAll(string(msg.Entity), "_", " ")
	if entity != "" {
		entity = strings.ToUpper(entity[:1]) + entity[1:]
	}
	switch msg.Action {
	case core.ActionCreate:
		return entity + " created"
	case core.ActionUpdate:
		return entity + " updated"
	case core.ActionDelete:
		return entity + " deleted"
	}
	return entity + " changed"
}

// Start consumes in the background until Stop or ctx cancellation. A broken
// connection is re-dialed with backoff.
func (w *ActivityWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("activity worker is already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		select {
		case <-w.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()
	go w.runLoop(ctx, cancel)

	slog.InfoContext(ctx, "Activity worker started")
	return nil
}

func (w *ActivityWorker) runLoop(ctx context.Context, cancel context.CancelFunc) {
	defer close(w.doneCh)
	defer cancel()

	for {
		err := w.consumer.ConsumeActivity(ctx, w.HandleActivity)
		if ctx.Err() != nil {
			return
		}
		slog.WarnContext(ctx, "Activity consumer stopped", "error", err)
		if err := w.consumer.Reconnect(ctx); err != nil {
			if !errors.Is(err, context.Canceled) {
				slog.ErrorContext(ctx, "Activity worker giving up", "error", err)
			}
			return
		}
	}
}

// Stop signals the loop and waits for it to finish or ctx to expire.
func (w *ActivityWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	stopCh, doneCh := w.stopCh, w.doneCh
	w.running = false
	w.mu.Unlock()

	close(stopCh)
	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Activity worker stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Activity worker stop timed out")
		return ctx.Err()
	}
}

func (w *ActivityWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Done is closed when the consume loop has exited.
func (w *ActivityWorker) Done() <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.doneCh
}
