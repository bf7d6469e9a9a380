package mocks

import (
	"context"
	"sync"

	"github.com/phrazzld/tasktracker-api/internal/notify"
)

// MockNotifier records every notification it receives. NotifyFn, when set,
// decides the returned error.
type MockNotifier struct {
	NotifyFn func(ctx context.Context, n notify.Notification) error

	mu   sync.Mutex
	sent []notify.Notification
}

var _ notify.Notifier = (*MockNotifier)(nil)

// Notify implements notify.Notifier.
func (m *MockNotifier) Notify(ctx context.Context, n notify.Notification) error {
	m.mu.Lock()
	m.sent = append(m.sent, n)
	m.mu.Unlock()

	if m.NotifyFn != nil {
		return m.NotifyFn(ctx, n)
	}
	return nil
}

// Sent returns a copy of the received notifications.
func (m *MockNotifier) Sent() []notify.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]notify.Notification(nil), m.sent...)
}
