// Package store defines the task persistence contract and the errors shared
// by every backend. Implementations live under internal/platform.
package store
