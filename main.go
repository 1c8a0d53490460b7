package main

import (
	"github.com/wfunc/bingoserver/config"
	"github.com/wfunc/bingoserver/logger"
	"github.com/wfunc/bingoserver/persistence"
	"github.com/wfunc/bingoserver/server"
	"github.com/wfunc/bingoserver/services"
)

func main() {
	// Initialize logger
	logger.Init()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Database. Without one the server still runs; profiles
	// and friend features stay off.
	var profiles *services.ProfileService
	db, err := persistence.NewGormPostgreSQL(
		cfg.Database.Postgres.Host,
		cfg.Database.Postgres.Port,
		cfg.Database.Postgres.User,
		cfg.Database.Postgres.Password,
		cfg.Database.Postgres.DBName,
	)
	if err != nil {
		logger.Log.Warnf("Database unavailable, running without profiles: %v", err)
		profiles = services.NewProfileService(nil)
	} else {
		logger.Log.Info("Database connection successful.")
		profiles = services.NewProfileService(db)
	}

	// Initialize Game Server
	gameServer := server.NewGameServer(cfg.Server.HTTPAddress, cfg.Server.RPCAddress, profiles)
	gameServer.ApplySettings(cfg.Game)

	// Start Server
	logger.Log.Infof("Starting bingo server on %s", cfg.Server.HTTPAddress)
	if err := gameServer.Start(); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
}
