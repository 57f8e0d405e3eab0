package bootstrap

import (
	"time"

	"github.com/kbukum/captionkit/logger"
)

// Option configures an App.
type Option func(*appOptions)

type appOptions struct {
	logger          *logger.Logger
	gracefulTimeout time.Duration
	signals         bool
}

// WithLogger uses l instead of initialising the global logger from config.
func WithLogger(l *logger.Logger) Option {
	return func(o *appOptions) { o.logger = l }
}

// WithGracefulTimeout bounds shutdown. The default is 15s.
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *appOptions) { o.gracefulTimeout = d }
}

// WithoutSignals makes Run wait for context cancellation only.
func WithoutSignals() Option {
	return func(o *appOptions) { o.signals = false }
}
