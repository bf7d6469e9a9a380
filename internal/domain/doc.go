// Package domain contains the task entity, its status state machine, and the
// domain errors shared by the store, service, and API layers.
package domain
