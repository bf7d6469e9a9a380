// Package sweep expires overdue Pending tasks and notifies their owners.
//
// Sweeper.Run performs one pass over the store; Scheduler repeats it on an
// interval, optionally under a distributed lease so only one replica sweeps
// at a time.
package sweep
