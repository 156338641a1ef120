// Package global
package global

import (
	"flag"
	"time"
)

var (
	DebugMode      = flag.Bool("debug", false, "Enable debug mode")
	ConfigFilePath = flag.String("config", "./config.json", "Path to configuration file")
)

const (
	AppVersion    = "0.3.0"
	ConfigVersion = "0.3.0"

	DefaultFilePermissions     = 0644
	DefaultDirectoryPermission = 0755

	HubServerName = "SERVER"

	// PendingEditTimeout bounds how long a field stays shielded when the
	// matching echo is lost. Must stay small or a dropped ack freezes the
	// field against every future broadcast.
	PendingEditTimeout = 3 * time.Second

	// DebounceDelay is the quiet period that coalesces keystrokes to one
	// outbound update per (flight, field).
	DebounceDelay = 300 * time.Millisecond

	PresenceEntryTTL = 30 * time.Second
)
