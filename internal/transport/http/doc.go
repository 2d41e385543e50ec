// Package http implements the HTTP handlers of the results viewer. Handlers
// stay thin: they parse the request, call a service, and render either the
// service response as JSON or the error as an RFC 7807 problem. All business
// logic lives in internal/services.
package http
