// Package notify delivers owner notifications, such as the notice sent when
// a task expires. Transports implement Notifier; Dispatcher makes any of them
// asynchronous.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/phrazzld/tasktracker-api/internal/domain"
)

// ExpiredSubject is the subject of the notice sent when a task expires.
const ExpiredSubject = "Task Expired"

// ErrDelivery matches every *DeliveryError.
var ErrDelivery = errors.New("notification delivery failed")

// Notification is one message to one recipient.
type Notification struct {
	// ID identifies the notification to downstream consumers. Transports
	// assign one when empty.
	ID      string
	Address string
	Subject string
	Message string
}

// Notifier sends a notification. Failures are reported as *DeliveryError.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, n Notification) error

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// DeliveryError reports that a notification could not be handed to its
// transport. Delivery is best-effort; callers log it and move on.
type DeliveryError struct {
	Address string
	Err     error
}

// NewDeliveryError wraps err for address.
func NewDeliveryError(address string, err error) *DeliveryError {
	return &DeliveryError{Address: address, Err: err}
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s for %s: %v", ErrDelivery, e.Address, e.Err)
}

func (e *DeliveryError) Unwrap() []error {
	return []error{ErrDelivery, e.Err}
}

// ExpiredNotification builds the notice for a task that just expired.
func ExpiredNotification(task *domain.Task) Notification {
	return Notification{
		Address: task.OwnerEmail,
		Subject: ExpiredSubject,
		Message: fmt.Sprintf("Your task '%s' has expired.", task.Name),
	}
}
