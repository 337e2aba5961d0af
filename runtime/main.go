package main

import (
	"github.com/alexxvives/akademo_api/services"
	"github.com/alexxvives/akademo_api/shared"

	"github.com/alphabatem/common/context"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sirupsen/logrus"
)

// @title Akademo Viewing Session API
// @version 1.0
// @description Watch-time budgeting and single-device session enforcement for lesson videos.
// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
func main() {
	err := godotenv.Load()
	if err != nil {
		log.Warn().Err(err).Msg("No .env file loaded, using process environment")
	}

	configureLogging(shared.GetEnv("LOG_LEVEL", "INFO"))

	ctx, err := context.NewCtx(
		&services.DatabaseService{},
		&services.RedisService{},
		&services.MonitoringService{},
		&services.FingerprintService{},
		&services.GeolocationService{},
		&services.JWTService{},
		&services.SessionService{},
		&services.PlayStateService{},
		&services.AuthMiddleware{},
		&services.RateLimitService{},

		&services.HttpService{},
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure services")
		return
	}

	err = ctx.Run()
	if err != nil {
		log.Fatal().Err(err).Msg("Service exited")
		return
	}
}

func configureLogging(level string) {
	zerologLevel, err := zerolog.ParseLevel(toLowerLevel(level))
	if err != nil {
		zerologLevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(zerologLevel)

	logrusLevel, err := logrus.ParseLevel(toLowerLevel(level))
	if err != nil {
		logrusLevel = logrus.InfoLevel
	}
	logrus.SetLevel(logrusLevel)
	logrus.SetFormatter(&logrus.JSONFormatter{})
}

func toLowerLevel(level string) string {
	switch level {
	case "TRACE":
		return "trace"
	case "DEBUG":
		return "debug"
	case "WARN":
		return "warn"
	case "ERROR":
		return "error"
	}
	return "info"
}
