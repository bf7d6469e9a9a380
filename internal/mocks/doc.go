// Package mocks provides hook-based fakes for the store, service, and
// notifier interfaces.
//
// Each mock exposes one XxxFn field per method; unset hooks fall back to
// DefaultError (or a no-op for MockNotifier):
//
//	st := &mocks.MockTaskStore{
//	    GetFn: func(ctx context.Context, ownerID, taskID string) (*domain.Task, error) {
//	        return nil, store.ErrTaskNotFound
//	    },
//	}
package mocks
