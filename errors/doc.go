// Package errors provides the structured error type shared by every layer:
// a machine-readable code, a client-safe message, the HTTP status it maps to
// and whether retrying can help.
package errors
