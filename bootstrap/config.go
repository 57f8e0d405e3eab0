package bootstrap

import (
	"github.com/kbukum/captionkit/config"
)

// Config is satisfied by any struct that embeds config.ServiceConfig and adds
// its own ApplyDefaults and Validate.
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}
