package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/marmos91/vaultfs/pkg/catalog/models"
)

func TestHookBusDecisions(t *testing.T) {
	ctx := context.Background()
	event := &Event{Asset: &models.Asset{Filename: "a.png"}}

	t.Run("empty bus allows", func(t *testing.T) {
		bus := NewHookBus()
		allowed, err := bus.DecideBeforeSave(ctx, event)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !allowed {
			t.Error("expected an empty bus to allow")
		}
	})

	t.Run("decisions run in registration order", func(t *testing.T) {
		bus := NewHookBus()
		var order []int
		for i := 1; i <= 3; i++ {
			i := i
			bus.OnBeforeSave(func(ctx context.Context, e *Event) (bool, error) {
				order = append(order, i)
				return true, nil
			})
		}

		allowed, err := bus.DecideBeforeSave(ctx, event)
		if err != nil || !allowed {
			t.Fatalf("expected allow, got allowed=%v err=%v", allowed, err)
		}
		if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
			t.Errorf("expected order [1 2 3], got %v", order)
		}
	})

	t.Run("first veto stops the chain", func(t *testing.T) {
		bus := NewHookBus()
		called := 0
		bus.OnBeforeUpload(func(ctx context.Context, e *Event) (bool, error) {
			called++
			return false, nil
		})
		bus.OnBeforeUpload(func(ctx context.Context, e *Event) (bool, error) {
			called++
			return true, nil
		})

		allowed, err := bus.DecideBeforeUpload(ctx, event)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if allowed {
			t.Error("expected veto")
		}
		if called != 1 {
			t.Errorf("expected the chain to stop after the veto, got %d calls", called)
		}
	})

	t.Run("error stops the chain", func(t *testing.T) {
		bus := NewHookBus()
		boom := errors.New("boom")
		bus.OnBeforeSave(func(ctx context.Context, e *Event) (bool, error) {
			return true, boom
		})
		bus.OnBeforeSave(func(ctx context.Context, e *Event) (bool, error) {
			t.Error("second decision should not run")
			return true, nil
		})

		allowed, err := bus.DecideBeforeSave(ctx, event)
		if !errors.Is(err, boom) {
			t.Errorf("expected the hook error, got %v", err)
		}
		if allowed {
			t.Error("expected deny on error")
		}
	})
}

func TestHookBusNotifications(t *testing.T) {
	ctx := context.Background()
	bus := NewHookBus()
	event := &Event{Asset: &models.Asset{ID: "a1"}}

	var order []string
	bus.OnAfterSave(func(ctx context.Context, e *Event) { order = append(order, "save-1") })
	bus.OnAfterSave(func(ctx context.Context, e *Event) { order = append(order, "save-2") })
	bus.OnBeforeDelete(func(ctx context.Context, e *Event) { order = append(order, "before-delete") })
	bus.OnAfterDelete(func(ctx context.Context, e *Event) { order = append(order, "after-delete") })

	bus.NotifyAfterSave(ctx, event)
	bus.NotifyBeforeDelete(ctx, event)
	bus.NotifyAfterDelete(ctx, event)

	want := []string{"save-1", "save-2", "before-delete", "after-delete"}
	if len(order) != len(want) {
		t.Fatalf("expected %d notifications, got %d (%v)", len(want), len(order), order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("notification %d: expected %q, got %q", i, want[i], order[i])
		}
	}
}
