// Package util holds small helpers shared by the service packages: byte
// size parsing for config values, caption text cleanup and secret masking
// for logs.
package util
