// Package base
package base

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/half-nothing/strip-sync/internal/interfaces/global"
)

const logFilePath = "logs/strip-sync.log"

var (
	debugTag = color.New(color.FgCyan).Sprint("[DEBUG]")
	infoTag  = color.New(color.FgGreen).Sprint("[INFO ]")
	warnTag  = color.New(color.FgYellow).Sprint("[WARN ]")
	errorTag = color.New(color.FgRed).Sprint("[ERROR]")
	fatalTag = color.New(color.FgRed, color.Bold).Sprint("[FATAL]")
)

type Logger struct {
	mu      sync.Mutex
	debug   bool
	logFile *os.File
	slog    *slog.Logger
}

func NewLogger() *Logger {
	return &Logger{}
}

func (logger *Logger) Init(debug bool) {
	logger.debug = debug

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	writer := os.Stdout
	if err := os.MkdirAll(filepath.Dir(logFilePath), global.DefaultDirectoryPermission); err == nil {
		if file, err := os.OpenFile(logFilePath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, global.DefaultFilePermissions); err == nil {
			logger.logFile = file
			writer = file
		}
	}

	logger.slog = slog.New(slog.NewTextHandler(writer, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger.slog)
}

type loggerShutdownCallback struct {
	logger *Logger
}

func (lc *loggerShutdownCallback) Invoke(_ context.Context) error {
	lc.logger.mu.Lock()
	defer lc.logger.mu.Unlock()
	if lc.logger.logFile != nil {
		return lc.logger.logFile.Close()
	}
	return nil
}

func (logger *Logger) ShutdownCallback() global.Callable {
	return &loggerShutdownCallback{logger: logger}
}

func (logger *Logger) console(tag string, msg string) {
	logger.mu.Lock()
	defer logger.mu.Unlock()
	fmt.Printf("%s %s %s\n", time.Now().Format("2006-01-02 15:04:05"), tag, msg)
}

func (logger *Logger) Debug(msg string, v ...interface{}) {
	if !logger.debug {
		return
	}
	logger.console(debugTag, msg)
	logger.slog.Debug(msg, v...)
}

func (logger *Logger) DebugF(msg string, v ...interface{}) {
	logger.Debug(fmt.Sprintf(msg, v...))
}

func (logger *Logger) Info(msg string, v ...interface{}) {
	logger.console(infoTag, msg)
	logger.slog.Info(msg, v...)
}

func (logger *Logger) InfoF(msg string, v ...interface{}) {
	logger.Info(fmt.Sprintf(msg, v...))
}

func (logger *Logger) Warn(msg string, v ...interface{}) {
	logger.console(warnTag, msg)
	logger.slog.Warn(msg, v...)
}

func (logger *Logger) WarnF(msg string, v ...interface{}) {
	logger.Warn(fmt.Sprintf(msg, v...))
}

func (logger *Logger) Error(msg string, v ...interface{}) {
	logger.console(errorTag, msg)
	logger.slog.Error(msg, v...)
}

func (logger *Logger) ErrorF(msg string, v ...interface{}) {
	logger.Error(fmt.Sprintf(msg, v...))
}

func (logger *Logger) Fatal(msg string, v ...interface{}) {
	logger.console(fatalTag, msg)
	logger.slog.Error(msg, v...)
}

func (logger *Logger) FatalF(msg string, v ...interface{}) {
	logger.Fatal(fmt.Sprintf(msg, v...))
}
