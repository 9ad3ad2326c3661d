package mediator

import (
	"context"
	"testing"
)

// recordingMiddleware appends its label on the way in so execution order is
// observable.
type recordingMiddleware struct {
	label string
	log   *[]string
	order int
	set   bool
}

func (m *recordingMiddleware) Order() int {
	if !m.set {
		panic("order not configured")
	}
	return m.order
}

func (m *recordingMiddleware) Run(ctx context.Context, request any, next CommandNext) error {
	*m.log = append(*m.log, m.label)
	return next(ctx)
}

// plainMiddleware has no order source at all.
type plainMiddleware struct {
	label string
	log   *[]string
}

func (m *plainMiddleware) Run(ctx context.Context, request any, next CommandNext) error {
	*m.log = append(*m.log, m.label)
	return next(ctx)
}

func TestOrderResolution(t *testing.T) {
	t.Run("explicit orders execute ascending", func(t *testing.T) {
		var log []string
		p := New()
		UseCommand(p, func() *recordingMiddleware {
			return &recordingMiddleware{label: "second", log: &log, order: 20, set: true}
		})
		UseCommand(p, func() *recordingMiddleware {
			return &recordingMiddleware{label: "first", log: &log, order: 10, set: true}
		})

		err := p.ExecuteCommand(context.Background(), "req", func(ctx context.Context) error { return nil })
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []string{"first", "second"}
		assertOrder(t, log, want)
	})

	t.Run("unordered middleware keep registration order", func(t *testing.T) {
		var log []string
		p := New()
		UseCommand(p, func() *plainMiddleware { return &plainMiddleware{label: "a", log: &log} })
		UseCommand(p, func() *plainMiddleware { return &plainMiddleware{label: "b", log: &log} })
		UseCommand(p, func() *plainMiddleware { return &plainMiddleware{label: "c", log: &log} })

		if err := p.ExecuteCommand(context.Background(), "req", noopHandler); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		assertOrder(t, log, []string{"a", "b", "c"})
	})

	t.Run("negative explicit order precedes every unordered middleware", func(t *testing.T) {
		var log []string
		p := New()
		UseCommand(p, func() *plainMiddleware { return &plainMiddleware{label: "unordered", log: &log} })
		UseCommand(p, func() *recordingMiddleware {
			return &recordingMiddleware{label: "negative", log: &log, order: -1000, set: true}
		})

		if err := p.ExecuteCommand(context.Background(), "req", noopHandler); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		assertOrder(t, log, []string{"negative", "unordered"})
	})

	t.Run("duplicate explicit orders are stable and precede unordered", func(t *testing.T) {
		var log []string
		p := New()
		UseCommand(p, func() *recordingMiddleware {
			return &recordingMiddleware{label: "dup-1", log: &log, order: 5, set: true}
		})
		UseCommand(p, func() *recordingMiddleware {
			return &recordingMiddleware{label: "dup-2", log: &log, order: 5, set: true}
		})
		UseCommand(p, func() *plainMiddleware { return &plainMiddleware{label: "tail", log: &log} })

		for range 3 {
			log = log[:0]
			if err := p.ExecuteCommand(context.Background(), "req", noopHandler); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			assertOrder(t, log, []string{"dup-1", "dup-2", "tail"})
		}
	})

	t.Run("instance accessor wins over registration option", func(t *testing.T) {
		var log []string
		p := New()
		UseCommand(p, func() *recordingMiddleware {
			return &recordingMiddleware{label: "accessor", log: &log, order: 1, set: true}
		}, WithOrder(99))
		UseCommand(p, func() *recordingMiddleware {
			return &recordingMiddleware{label: "optioned", log: &log, order: 50, set: true}
		})

		if err := p.ExecuteCommand(context.Background(), "req", noopHandler); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		assertOrder(t, log, []string{"accessor", "optioned"})
	})

	t.Run("panicking accessor falls back to registration option", func(t *testing.T) {
		var log []string
		var fallbacks []string
		p := New(WithOnOrderFallback(func(mw string, recovered any) {
			fallbacks = append(fallbacks, mw)
		}))
		// set is false, so Order panics on both the instance and the zero
		// value probe; the WithOrder option must take over.
		UseCommand(p, func() *recordingMiddleware {
			return &recordingMiddleware{label: "recovered", log: &log}
		}, WithOrder(7))
		UseCommand(p, func() *recordingMiddleware {
			return &recordingMiddleware{label: "later", log: &log, order: 8, set: true}
		})

		if err := p.ExecuteCommand(context.Background(), "req", noopHandler); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		assertOrder(t, log, []string{"recovered", "later"})
		if len(fallbacks) == 0 {
			t.Error("expected OnOrderFallback hook to fire")
		}
		if len(fallbacks) > 0 && fallbacks[0] != "*recordingMiddleware" {
			t.Errorf("fallback middleware = %q, want %q", fallbacks[0], "*recordingMiddleware")
		}
	})

	t.Run("fully panicking accessor keeps registration order", func(t *testing.T) {
		var log []string
		p := New()
		// set is false and there is no WithOrder, so every cascade step fails
		// and the registration-order fallback slot must apply.
		UseCommand(p, func() *recordingMiddleware {
			return &recordingMiddleware{label: "broken", log: &log}
		})
		UseCommand(p, func() *plainMiddleware { return &plainMiddleware{label: "plain", log: &log} })

		if err := p.ExecuteCommand(context.Background(), "req", noopHandler); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		assertOrder(t, log, []string{"broken", "plain"})
	})

	t.Run("resolution is idempotent across dispatches", func(t *testing.T) {
		p := New()
		UseCommand(p, func() *plainMiddleware { return &plainMiddleware{label: "x", log: new([]string)} })
		d := p.descriptors[0]

		first := p.resolveOrder(d, nil)
		second := p.resolveOrder(d, nil)
		if first != second {
			t.Errorf("resolved orders differ: %d vs %d", first, second)
		}
		if first < fallbackSeed {
			t.Errorf("fallback order %d below seed %d", first, fallbackSeed)
		}
	})

	t.Run("fallback counters are pipeline scoped", func(t *testing.T) {
		p1 := New()
		p2 := New()
		UseCommand(p1, func() *plainMiddleware { return &plainMiddleware{label: "x", log: new([]string)} })
		UseCommand(p2, func() *plainMiddleware { return &plainMiddleware{label: "y", log: new([]string)} })

		o1 := p1.resolveOrder(p1.descriptors[0], nil)
		o2 := p2.resolveOrder(p2.descriptors[0], nil)
		if o1 != fallbackSeed || o2 != fallbackSeed {
			t.Errorf("independent pipelines share fallback state: %d, %d", o1, o2)
		}
	})
}

func noopHandler(ctx context.Context) error { return nil }

func assertOrder(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("execution log = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("execution log = %v, want %v", got, want)
		}
	}
}
