// Package interfaces
package interfaces

import (
	. "github.com/half-nothing/strip-sync/internal/interfaces/config"
)

type ConfigManagerInterface interface {
	Config() *Config
	SaveConfig() error
}
