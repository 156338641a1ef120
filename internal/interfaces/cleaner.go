// Package interfaces
package interfaces

import (
	"github.com/half-nothing/strip-sync/internal/interfaces/global"
)

type CleanerInterface interface {
	Init()
	Add(callable global.Callable)
	Clean()
}
