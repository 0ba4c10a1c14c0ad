// Package bootstrap wires the application graph: loggers, store, upstream
// client, report synthesizer, the read-side service/controller, and the live
// websocket handler.
package bootstrap

import (
	"gorm.io/gorm"

	"ai-speechcoach-be/internal/config"
	"ai-speechcoach-be/internal/controller"
	"ai-speechcoach-be/internal/handler"
	"ai-speechcoach-be/internal/pkg/logger"
	"ai-speechcoach-be/internal/report"
	"ai-speechcoach-be/internal/repository/contract"
	"ai-speechcoach-be/internal/repository/implementation"
	"ai-speechcoach-be/internal/repository/memory"
	"ai-speechcoach-be/internal/service"
	"ai-speechcoach-be/pkg/gemini"
)

type Container struct {
	Logger  logger.ILogger
	LiveLog logger.ILogger

	SessionRepository contract.SessionRepository
	GeminiClient      *gemini.Client
	ReportSynthesizer *report.Synthesizer

	SessionService    service.ISessionService
	SessionController controller.ISessionController
	LiveHandler       *handler.LiveHandler
}

// NewContainer builds the full dependency graph. db may be nil, in which
// case sessions are held in memory only.
func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	appLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// Live sessions are chatty; their logs go to a separate file so the main
	// application log stays readable.
	liveLogger := logger.NewIsolatedLogger(cfg.App.LiveLogFilePath)

	var sessionRepo contract.SessionRepository
	if db != nil {
		sessionRepo = implementation.NewSessionRepository(db)
	} else {
		appLogger.Warn("Bootstrap", "No database configured, sessions are held in memory only", nil)
		sessionRepo = memory.NewSessionRepository()
	}

	geminiClient := gemini.NewClient(cfg.Keys.GoogleGemini)
	synthesizer := report.NewSynthesizer(geminiClient, cfg.Session.ReportModel, cfg.Session.ReportTimeout, appLogger)

	sessionService := service.NewSessionService(sessionRepo)
	sessionController := controller.NewSessionController(sessionService)
	liveHandler := handler.NewLiveHandler(geminiClient, sessionRepo, synthesizer, cfg.Session, appLogger, liveLogger)

	return &Container{
		Logger:            appLogger,
		LiveLog:           liveLogger,
		SessionRepository: sessionRepo,
		GeminiClient:      geminiClient,
		ReportSynthesizer: synthesizer,
		SessionService:    sessionService,
		SessionController: sessionController,
		LiveHandler:       liveHandler,
	}
}
