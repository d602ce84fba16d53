package main

import (
	"github.com/alphabatem/common/context"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/skilltrail/academy_api/services"
)

// @title Academy API
// @version 1.0
// @description Learning platform core: catalog, progress, quizzes, certificates and payment webhooks.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("no .env file loaded")
	}

	ctx, err := context.NewCtx(
		&services.PostgresService{},
		&services.RedisService{},
		&services.StorageService{},
		&services.MonitoringService{},

		&services.JWTService{},
		&services.EventLogService{},
		&services.IdempotencyService{},
		&services.EntitlementService{},
		&services.AuthService{},
		&services.ProgressService{},
		&services.QuizService{},
		&services.CertificateService{},
		&services.PaymentService{},
		&services.RateLimitService{},

		&services.HttpService{},
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build service context")
		return
	}

	if err = ctx.Run(); err != nil {
		log.Fatal().Err(err).Msg("runtime exited")
		return
	}
}
