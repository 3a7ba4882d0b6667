// @title Excel Interview Backend API
// @version 1.0
// @description Adaptive AI-driven Excel skills interview service.

// @host localhost:8080
// @BasePath /api

package main

import (
	"flag"
	"log"

	"excel_interview_backend/internal/app"
	"excel_interview_backend/internal/config"
	"excel_interview_backend/pkg/logger"
)

func main() {
	migrateOnly := flag.Bool("migrate-only", false, "run database migration and exit")
	migrate := flag.Bool("migrate", false, "force database migration on startup")
	flag.Parse()

	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	cfg.ForceMigrate = *migrate || *migrateOnly
	cfg.MigrateOnly = *migrateOnly

	application := app.NewApp(cfg)
	defer logger.Log.Sync()

	if *migrateOnly {
		log.Println("Database migration complete, exiting")
		return
	}

	application.Run()
}
