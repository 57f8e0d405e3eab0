// Package bootstrap runs a service through a fixed lifecycle: start the
// registered components in order, log a startup summary, wait for SIGINT or
// SIGTERM, then run stop hooks and stop the components in reverse order
// within a graceful timeout.
package bootstrap
