// Package config
package config

import (
	"errors"

	"github.com/half-nothing/strip-sync/internal/interfaces/log"
)

type GeneralConfig struct {
	ServerName string `json:"server_name"`
}

func defaultGeneralConfig() *GeneralConfig {
	return &GeneralConfig{
		ServerName: "Strip-Sync",
	}
}

func (config *GeneralConfig) checkValid(_ log.LoggerInterface) *ValidResult {
	if config.ServerName == "" {
		return ValidFail(errors.New("server_name must not be empty"))
	}
	return ValidPass()
}
