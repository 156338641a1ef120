// Package config
package config

import (
	"fmt"

	"github.com/half-nothing/strip-sync/internal/interfaces/log"
)

type HttpServerConfig struct {
	Host      string     `json:"host"`
	Port      uint       `json:"port"`
	Address   string     `json:"-"`
	ProxyType int        `json:"proxy_type"`
	BodyLimit string     `json:"body_limit"`
	JWT       *JWTConfig `json:"jwt"`
}

func defaultHttpServerConfig() *HttpServerConfig {
	return &HttpServerConfig{
		Host:      "0.0.0.0",
		Port:      6820,
		ProxyType: 0,
		BodyLimit: "1MB",
		JWT:       defaultJWTConfig(),
	}
}

func (config *HttpServerConfig) checkValid(logger log.LoggerInterface) *ValidResult {
	if result := checkPort(config.Port); result.IsFail() {
		return result
	}

	config.Address = fmt.Sprintf("%s:%d", config.Host, config.Port)

	if config.BodyLimit == "" {
		logger.WarnF("body_limit is empty, where the length of the request body is not restricted. This is a very dangerous behavior")
	}

	if result := config.JWT.checkValid(logger); result.IsFail() {
		return result
	}
	return ValidPass()
}
