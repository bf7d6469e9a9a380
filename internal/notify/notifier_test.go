package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/phrazzld/tasktracker-api/internal/domain"
	"github.com/phrazzld/tasktracker-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpiredNotification(t *testing.T) {
	t.Parallel()

	n := ExpiredNotification(&domain.Task{Name: "file taxes", OwnerEmail: "a@example.com"})

	assert.Equal(t, "a@example.com", n.Address)
	assert.Equal(t, "Task Expired", n.Subject)
	assert.Equal(t, "Your task 'file taxes' has expired.", n.Message)
}

func TestDeliveryError(t *testing.T) {
	t.Parallel()

	cause := errors.New("broker unavailable")
	err := NewDeliveryError("a@example.com", cause)

	assert.ErrorIs(t, err, ErrDelivery)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "broker unavailable")

	var de *DeliveryError
	require.True(t, errors.As(error(err), &de))
	assert.Equal(t, "a@example.com", de.Address)
}

func TestNotifierFunc(t *testing.T) {
	t.Parallel()

	var got Notification
	var n Notifier = NotifierFunc(func(_ context.Context, n Notification) error {
		got = n
		return nil
	})

	require.NoError(t, n.Notify(context.Background(), Notification{Subject: "s"}))
	assert.Equal(t, "s", got.Subject)
}

func TestLogNotifierMasksAddress(t *testing.T) {
	t.Parallel()

	buf, log := logger.NewTestLogger(t)
	n := NewLogNotifier(log)

	err := n.Notify(context.Background(), Notification{
		Address: "alice@example.com",
		Subject: ExpiredSubject,
		Message: "Your task 'x' has expired.",
	})

	require.NoError(t, err)
	entries, err := buf.GetLogEntries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a***@example.com", entries[0]["address"])
	assert.Equal(t, ExpiredSubject, entries[0]["subject"])
	assert.Equal(t, "log_notifier", entries[0]["component"])
}
