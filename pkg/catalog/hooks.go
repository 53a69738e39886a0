package catalog

import (
	"context"
	"sync"

	"github.com/marmos91/vaultfs/pkg/catalog/models"
)

// Event carries the entities an extension hook may inspect. Fields are
// populated as far as the firing operation has resolved them; Folder and
// Volume can be nil.
type Event struct {
	Asset  *models.Asset
	Folder *models.Folder
	Volume *models.Volume
}

// Decision is a cancellable hook callback. Returning false vetoes the
// operation; a non-nil error aborts it with that error.
type Decision func(ctx context.Context, event *Event) (bool, error)

// Notification is a fire-and-forget hook callback. Notifications cannot
// veto and run synchronously in registration order, so a slow callback
// slows the operation that fires it.
type Notification func(ctx context.Context, event *Event)

// HookBus registers extension callbacks around asset writes. Decisions
// (before-upload, before-save) can veto; notifications (after-save,
// before-delete, after-delete) cannot. Folder deletion fires no hooks;
// only asset operations do.
//
// Registration is safe for concurrent use, but callbacks themselves run
// on the calling goroutine of the operation that triggers them.
type HookBus struct {
	mu sync.RWMutex

	beforeUpload []Decision
	beforeSave   []Decision
	afterSave    []Notification
	beforeDelete []Notification
	afterDelete  []Notification
}

// NewHookBus returns an empty hook bus.
func NewHookBus() *HookBus {
	return &HookBus{}
}

// OnBeforeUpload registers a decision fired before a source file is
// written to the volume backend.
func (b *HookBus) OnBeforeUpload(d Decision) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.beforeUpload = append(b.beforeUpload, d)
}

// OnBeforeSave registers a decision fired inside the save transaction,
// after validation and before any row is written.
func (b *HookBus) OnBeforeSave(d Decision) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.beforeSave = append(b.beforeSave, d)
}

// OnAfterSave registers a notification fired after the metadata row was
// written, still inside the transactional boundary.
func (b *HookBus) OnAfterSave(n Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.afterSave = append(b.afterSave, n)
}

// OnBeforeDelete registers a notification fired before an asset is
// deleted.
func (b *HookBus) OnBeforeDelete(n Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.beforeDelete = append(b.beforeDelete, n)
}

// OnAfterDelete registers a notification fired after an asset was
// deleted.
func (b *HookBus) OnAfterDelete(n Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.afterDelete = append(b.afterDelete, n)
}

// DecideBeforeUpload runs the before-upload decisions in registration
// order. The first veto or error stops the chain.
func (b *HookBus) DecideBeforeUpload(ctx context.Context, event *Event) (bool, error) {
	return b.decide(ctx, b.snapshot(&b.beforeUpload), event)
}

// DecideBeforeSave runs the before-save decisions in registration order.
// The first veto or error stops the chain.
func (b *HookBus) DecideBeforeSave(ctx context.Context, event *Event) (bool, error) {
	return b.decide(ctx, b.snapshot(&b.beforeSave), event)
}

// NotifyAfterSave runs the after-save notifications in registration order.
func (b *HookBus) NotifyAfterSave(ctx context.Context, event *Event) {
	b.notify(ctx, b.snapshotNotifications(&b.afterSave), event)
}

// NotifyBeforeDelete runs the before-delete notifications in registration
// order.
func (b *HookBus) NotifyBeforeDelete(ctx context.Context, event *Event) {
	b.notify(ctx, b.snapshotNotifications(&b.beforeDelete), event)
}

// NotifyAfterDelete runs the after-delete notifications in registration
// order.
func (b *HookBus) NotifyAfterDelete(ctx context.Context, event *Event) {
	b.notify(ctx, b.snapshotNotifications(&b.afterDelete), event)
}

func (b *HookBus) decide(ctx context.Context, decisions []Decision, event *Event) (bool, error) {
	for _, decision := range decisions {
		allowed, err := decision(ctx, event)
		if err != nil {
			return false, err
		}
		if !allowed {
			return false, nil
		}
	}
	return true, nil
}

func (b *HookBus) notify(ctx context.Context, notifications []Notification, event *Event) {
	for _, notification := range notifications {
		notification(ctx, event)
	}
}

func (b *HookBus) snapshot(list *[]Decision) []Decision {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Decision, len(*list))
	copy(out, *list)
	return out
}

func (b *HookBus) snapshotNotifications(list *[]Notification) []Notification {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Notification, len(*list))
	copy(out, *list)
	return out
}
