// Package version exposes build metadata set with -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/captionkit/version.Version=1.4.0" ./cmd/captiond
//
// Unset fields fall back to the VCS stamps in runtime/debug build info.
package version
