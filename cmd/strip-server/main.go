package main

import (
	"flag"
	"fmt"

	"github.com/half-nothing/strip-sync/internal/base"
	"github.com/half-nothing/strip-sync/internal/database"
	"github.com/half-nothing/strip-sync/internal/hub_server"
	"github.com/half-nothing/strip-sync/internal/interfaces"
	"github.com/half-nothing/strip-sync/internal/interfaces/global"
)

func recoverFromError() {
	if r := recover(); r != nil {
		fmt.Printf("It looks like there are some serious errors, the details are as follows: %v", r)
	}
}

func main() {
	flag.Parse()

	defer recoverFromError()

	logger := base.NewLogger()
	logger.Init(*global.DebugMode)

	logger.Info("Application initializing...")

	cleaner := base.NewCleaner(logger)
	cleaner.Init()
	defer cleaner.Clean()

	configManager := base.NewManager(logger)
	config := configManager.Config()

	shutdownCallback, databaseOperation, err := database.ConnectDatabase(logger, config, *global.DebugMode)
	if err != nil {
		logger.FatalF("Error occurred while initializing operation, details: %v", err)
		return
	}

	cleaner.Add(shutdownCallback)

	applicationContent := interfaces.NewApplicationContent(configManager, cleaner, logger, databaseOperation)

	hub_server.StartHubServer(applicationContent)
}
