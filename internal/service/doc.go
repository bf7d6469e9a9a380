// Package service contains the task use cases. It sits between the HTTP
// layer and store.TaskStore, enforcing input validation, expiry limits, and
// the status state machine defined in the domain package.
//
// Status changes are written conditionally on the status that was read, so
// an expiry sweep running concurrently can never be silently overwritten.
// A single retry absorbs a lost race; a second loss surfaces as
// ErrConcurrentUpdate.
//
// Expected failures are returned as domain errors (validation, transition,
// unauthorized) or service sentinels (ErrTaskNotFound, ErrConcurrentUpdate).
// Anything else is wrapped in a TaskServiceError.
package service
