package mediator

import (
	"context"
	"errors"
	"testing"
)

type userCreated struct {
	id string
}

func (e userCreated) Tag() string { return "user/created" }

type systemEvent struct{}

func TestPublish(t *testing.T) {
	t.Run("delivers to every subscriber in order", func(t *testing.T) {
		var log []string
		p := New()

		err := p.Publish(context.Background(), userCreated{id: "1"},
			func(ctx context.Context) error { log = append(log, "first"); return nil },
			func(ctx context.Context) error { log = append(log, "second"); return nil },
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		assertOrder(t, log, []string{"first", "second"})
	})

	t.Run("tolerates zero subscribers", func(t *testing.T) {
		ran := false
		p := New()
		UseNotification(p, func() NotificationMiddlewareFunc {
			return func(ctx context.Context, notification any, next NotificationNext) error {
				ran = true
				return next(ctx)
			}
		})

		if err := p.Publish(context.Background(), userCreated{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ran {
			t.Error("middleware chain did not run without subscribers")
		}
	})

	t.Run("middleware skipping next suppresses all subscribers", func(t *testing.T) {
		delivered := false
		p := New()
		UseNotification(p, func() NotificationMiddlewareFunc {
			return func(ctx context.Context, notification any, next NotificationNext) error {
				return nil // swallow the notification
			}
		})

		err := p.Publish(context.Background(), userCreated{},
			func(ctx context.Context) error { delivered = true; return nil },
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if delivered {
			t.Error("subscriber ran despite short-circuit")
		}
	})

	t.Run("constraint-filtered middleware never runs and publish succeeds", func(t *testing.T) {
		ran := false
		delivered := false
		p := New()
		UseNotification(p, func() NotificationMiddlewareFunc {
			return func(ctx context.Context, notification any, next NotificationNext) error {
				ran = true
				return next(ctx)
			}
		}, When(Implements[taggable]()))

		// systemEvent does not implement taggable: filtering, not failure.
		err := p.Publish(context.Background(), systemEvent{},
			func(ctx context.Context) error { delivered = true; return nil },
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ran {
			t.Error("constrained middleware ran for a non-satisfying notification")
		}
		if !delivered {
			t.Error("subscriber was not reached")
		}
	})

	t.Run("typed middleware narrows by notification interface", func(t *testing.T) {
		var tags []string
		p := New()
		ForNotification(p, func(ctx context.Context, n taggable, next NotificationNext) error {
			tags = append(tags, n.Tag())
			return next(ctx)
		})

		if err := p.Publish(context.Background(), userCreated{id: "1"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := p.Publish(context.Background(), systemEvent{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		assertOrder(t, tags, []string{"user/created"})
	})

	t.Run("subscriber errors aggregate and later subscribers still run", func(t *testing.T) {
		firstErr := errors.New("first failed")
		secondRan := false
		p := New()

		err := p.Publish(context.Background(), userCreated{},
			func(ctx context.Context) error { return firstErr },
			func(ctx context.Context) error { secondRan = true; return nil },
		)
		if !errors.Is(err, firstErr) {
			t.Errorf("error = %v, want wrapped %v", err, firstErr)
		}
		if !secondRan {
			t.Error("second subscriber did not run after first failed")
		}
	})

	t.Run("middleware errors propagate unchanged and stop the chain", func(t *testing.T) {
		wantErr := errors.New("middleware failed")
		delivered := false
		p := New()
		UseNotification(p, func() NotificationMiddlewareFunc {
			return func(ctx context.Context, notification any, next NotificationNext) error {
				return wantErr
			}
		})

		err := p.Publish(context.Background(), userCreated{},
			func(ctx context.Context) error { delivered = true; return nil },
		)
		if !errors.Is(err, wantErr) {
			t.Errorf("error = %v, want %v", err, wantErr)
		}
		if delivered {
			t.Error("subscriber ran after middleware failure")
		}
	})

	t.Run("ordering is total across middleware", func(t *testing.T) {
		var log []string
		p := New()
		UseNotification(p, func() NotificationMiddlewareFunc {
			return func(ctx context.Context, notification any, next NotificationNext) error {
				log = append(log, "late")
				return next(ctx)
			}
		}, WithOrder(10))
		UseNotification(p, func() NotificationMiddlewareFunc {
			return func(ctx context.Context, notification any, next NotificationNext) error {
				log = append(log, "early")
				return next(ctx)
			}
		}, WithOrder(-10))

		err := p.Publish(context.Background(), userCreated{},
			func(ctx context.Context) error { log = append(log, "subscriber"); return nil },
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		assertOrder(t, log, []string{"early", "late", "subscriber"})
	})
}
