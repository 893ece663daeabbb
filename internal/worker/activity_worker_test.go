package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/store/memory"
)

func TestHandleActivity(t *testing.T) {
	tests := []struct {
		name      string
		msg       amqp.ActivityMessage
		wantTitle string
	}{
		{"create", amqp.ActivityMessage{ActorID: "u1", Action: core.ActionCreate, Entity: core.EntityTransaction, EntityID: "t1", Message: "created transaction t1"}, "Transaction created"},
		{"delete", amqp.ActivityMessage{ActorID: "u1", Action: core.ActionDelete, Entity: core.EntityAccount, EntityID: "a1", Message: "deleted account a1"}, "Account deleted"},
		{"update", amqp.ActivityMessage{ActorID: "u1", Action: core.ActionUpdate, Entity: core.EntityCategory, EntityID: "c1"}, "Category updated"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := memory.New()
			w := NewActivityWorker(s, nil)
			if err := w.HandleActivity(context.Background(), &tt.msg); err != nil {
				t.Fatalf("HandleActivity: %v", err)
			}
			got, _ := s.ListNotifications(context.Background(), "u1", 10)
			if len(got) != 1 || got[0].Title != tt.wantTitle || got[0].Body != tt.msg.Message {
				t.Errorf("notifications = %+v", got)
			}
		})
	}
}

func TestHandleActivity_SkipsPreferences(t *testing.T) {
	s := memory.New()
	w := NewActivityWorker(s, nil)
	msg := &amqp.ActivityMessage{ActorID: "u1", Action: core.ActionUpdate, Entity: core.EntityPreference, EntityID: "u1"}
	if err := w.HandleActivity(context.Background(), msg); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.ListNotifications(context.Background(), "u1", 10); len(got) != 0 {
		t.Errorf("notifications = %+v", got)
	}
}

// fakeConsumer replays msgs once, then blocks until ctx ends. When fail is
// set the first consume returns an error to exercise reconnection.
type fakeConsumer struct {
	msgs       []*amqp.ActivityMessage
	fail       bool
	consumes   atomic.Int32
	reconnects atomic.Int32
}

func (c *fakeConsumer) ConsumeActivity(ctx context.Context, handler func(context.Context, *amqp.ActivityMessage) error) error {
	if c.consumes.Add(1) == 1 {
		if c.fail {
			return errors.New("channel closed")
		}
	}
	for _, m := range c.msgs {
		if err := handler(ctx, m); err != nil {
			return err
		}
	}
	c.msgs = nil
	<-ctx.Done()
	return ctx.Err()
}

func (c *fakeConsumer) Reconnect(context.Context) error {
	c.reconnects.Add(1)
	return nil
}

func TestActivityWorker_Lifecycle(t *testing.T) {
	s := memory.New()
	consumer := &fakeConsumer{
		fail: true,
		msgs: []*amqp.ActivityMessage{{ActorID: "u1", Action: core.ActionCreate, Entity: core.EntityAccount, EntityID: "a1"}},
	}
	w := NewActivityWorker(s, consumer)
	ctx := context.Background()

	if w.IsRunning() {
		t.Fatal("worker should not be running initially")
	}
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := w.Start(ctx); err == nil {
		t.Error("expected error when starting twice")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		got, _ := s.ListNotifications(ctx, "u1", 10)
		if len(got) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("notification not created")
		}
		time.Sleep(5 * time.Millisecond)
	}

	stopCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := w.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if w.IsRunning() {
		t.Error("worker still running after Stop")
	}
	if consumer.reconnects.Load() != 1 {
		t.Errorf("reconnects = %d, want 1", consumer.reconnects.Load())
	}
}

func TestActivityWorker_StopNotRunning(t *testing.T) {
	w := NewActivityWorker(memory.New(), &fakeConsumer{})
	if err := w.Stop(context.Background()); err != nil {
		t.Errorf("Stop should not error when not running: %v", err)
	}
}
