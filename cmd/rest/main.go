package main

import (
	"context"
	"log"

	"ai-speechcoach-be/internal/bootstrap"
	"ai-speechcoach-be/internal/config"
	"ai-speechcoach-be/internal/model"
	"ai-speechcoach-be/internal/server"
	"ai-speechcoach-be/internal/tracer"
	"ai-speechcoach-be/pkg/database"

	"gorm.io/gorm"
)

func main() {
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	cfg := config.Load()

	// The database is optional: without DB_CONNECTION_STRING the app runs
	// with in-memory session storage.
	var gormDB *gorm.DB
	if cfg.Database.Connection != "" {
		db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
		if err != nil {
			log.Panicf("Unable to connect to GORM DB: %v", err)
		}
		if err := db.AutoMigrate(&model.Session{}); err != nil {
			log.Panicf("Unable to migrate database schema: %v", err)
		}
		gormDB = db
	}

	container := bootstrap.NewContainer(gormDB, cfg)
	defer container.Logger.Sync()

	srv := server.New(cfg, container)
	log.Fatal(srv.Run())
}
