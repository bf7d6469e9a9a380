package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/phrazzld/tasktracker-api/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
)

// mockClient mocks kgo.Client for testing.
type mockClient struct {
	produceErr   error
	lastRecord   *kgo.Record
	produceCalls int
}

func (m *mockClient) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	m.produceCalls++
	if len(rs) > 0 {
		m.lastRecord = rs[0]
	}
	if m.produceErr != nil {
		return kgo.ProduceResults{{Err: m.produceErr}}
	}
	return kgo.ProduceResults{}
}

func headerMap(rec *kgo.Record) map[string]string {
	out := make(map[string]string, len(rec.Headers))
	for _, h := range rec.Headers {
		out[h.Key] = string(h.Value)
	}
	return out
}

func TestPublisherNotify_Success(t *testing.T) {
	mock := &mockClient{}
	pub := New(mock, "task-expired")
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	pub.now = func() time.Time { return fixed }

	err := pub.Notify(context.Background(), notify.Notification{
		ID:      "n-1",
		Address: "alice@example.com",
		Subject: notify.ExpiredSubject,
		Message: "Your task 'report' has expired.",
	})

	require.NoError(t, err)
	require.Equal(t, 1, mock.produceCalls)

	rec := mock.lastRecord
	assert.Equal(t, "task-expired", rec.Topic)
	assert.Equal(t, "alice@example.com", string(rec.Key))

	headers := headerMap(rec)
	assert.Equal(t, "n-1", headers[HeaderNotificationID])
	assert.Equal(t, notify.ExpiredSubject, headers[HeaderSubject])

	var body message
	require.NoError(t, json.Unmarshal(rec.Value, &body))
	assert.Equal(t, "n-1", body.ID)
	assert.Equal(t, "Your task 'report' has expired.", body.Message)
	assert.True(t, fixed.Equal(body.SentAt))
}

func TestPublisherNotify_AssignsID(t *testing.T) {
	mock := &mockClient{}
	pub := New(mock, "")

	require.NoError(t, pub.Notify(context.Background(), notify.Notification{Address: "a@example.com"}))

	assert.NotEmpty(t, headerMap(mock.lastRecord)[HeaderNotificationID])
	assert.Empty(t, mock.lastRecord.Topic, "empty topic falls back to the client default")
}

func TestPublisherNotify_Error(t *testing.T) {
	expectedErr := errors.New("kafka connection failed")
	mock := &mockClient{produceErr: expectedErr}
	pub := New(mock, "task-expired")

	err := pub.Notify(context.Background(), notify.Notification{Address: "a@example.com"})

	require.Error(t, err)
	assert.ErrorIs(t, err, expectedErr)
	assert.ErrorIs(t, err, notify.ErrDelivery)
	assert.Equal(t, 1, mock.produceCalls)
}

func TestPublisherNotify_ContextCancellation(t *testing.T) {
	mock := &mockClient{produceErr: context.Canceled}
	pub := New(mock, "task-expired")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := pub.Notify(ctx, notify.Notification{Address: "a@example.com"})
	assert.ErrorIs(t, err, context.Canceled)
}
