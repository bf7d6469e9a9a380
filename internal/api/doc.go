// Package api exposes the task service over HTTP. Handlers decode and
// validate JSON bodies, read the caller identity placed in the context by
// middleware.AuthMiddleware, and translate service errors into status codes
// and client-safe messages via HandleAPIError.
package api
