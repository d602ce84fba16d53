package services

import (
	"errors"
	"os"

	"github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberLogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	fiberSwagger "github.com/gofiber/swagger"
	log "github.com/sirupsen/logrus"

	_ "github.com/skilltrail/academy_api/docs"
	"github.com/skilltrail/academy_api/services/handlers"
	"github.com/skilltrail/academy_api/shared"
)

// HttpService is the API surface. It owns the Fiber app, the route table and
// the error funnel; all behavior lives in the other services.
type HttpService struct {
	context.DefaultService

	app *fiber.App

	port              string
	debug             bool
	allowAnonTracking bool

	authSvc         *AuthService
	rateLimitSvc    *RateLimitService
	monitoringSvc   *MonitoringService
	catalogHandler  *handlers.CatalogHandler
	progressHandler *handlers.ProgressHandler
	quizHandler     *handlers.QuizHandler
	certHandler     *handlers.CertificateHandler
	webhookHandler  *handlers.WebhookHandler
	authHandler     *handlers.AuthHandler
	adminHandler    *handlers.AdminHandler
}

const HTTP_SVC = "http_svc"

func (svc HttpService) Id() string {
	return HTTP_SVC
}

func (svc *HttpService) Configure(ctx *context.Context) error {
	svc.port = os.Getenv("HTTP_PORT")
	if svc.port == "" {
		svc.port = "8000"
	}
	svc.debug = os.Getenv("DEBUG") == "true"
	svc.allowAnonTracking = os.Getenv("ALLOW_ANON_TRACKING") == "true"

	return svc.DefaultService.Configure(ctx)
}

func (svc *HttpService) Start() error {
	svc.authSvc = svc.Service(AUTH_SVC).(*AuthService)
	svc.rateLimitSvc = svc.Service(RATE_LIMIT_SVC).(*RateLimitService)
	svc.monitoringSvc = svc.Service(MONITORING_SVC).(*MonitoringService)

	db := svc.Service(POSTGRES_SVC).(*PostgresService)
	progressSvc := svc.Service(PROGRESS_SVC).(*ProgressService)
	entitlementSvc := svc.Service(ENTITLEMENT_SVC).(*EntitlementService)

	svc.catalogHandler = handlers.NewCatalogHandler(db)
	svc.progressHandler = handlers.NewProgressHandler(progressSvc, entitlementSvc, svc.allowAnonTracking)
	svc.quizHandler = handlers.NewQuizHandler(svc.Service(QUIZ_SVC).(*QuizService))
	svc.certHandler = handlers.NewCertificateHandler(svc.Service(CERTIFICATE_SVC).(*CertificateService))
	svc.webhookHandler = handlers.NewWebhookHandler(svc.Service(PAYMENT_SVC).(*PaymentService))
	svc.authHandler = handlers.NewAuthHandler(svc.authSvc)
	svc.adminHandler = handlers.NewAdminHandler(svc.Service(EVENT_LOG_SVC).(*EventLogService))

	svc.app = fiber.New(fiber.Config{
		AppName:      "academy_api",
		JSONEncoder:  shared.JSONEncoder,
		JSONDecoder:  shared.JSONDecoder,
		ErrorHandler: svc.errorHandler,
	})

	svc.app.Use(recover.New())
	svc.app.Use(cors.New())
	svc.app.Use(fiberLogger.New())
	svc.app.Use(svc.monitoringSvc.Middleware())

	svc.registerRoutes()

	log.WithField("port", svc.port).Info("http listener up")
	return svc.app.Listen(":" + svc.port)
}

func (svc *HttpService) Shutdown() {
	if svc.app != nil {
		_ = svc.app.Shutdown()
	}
}

func (svc *HttpService) registerRoutes() {
	svc.app.Get("/ping", func(c *fiber.Ctx) error {
		return shared.ResponseOK(c, fiber.Map{"status": "ok"})
	})
	svc.app.Get("/swagger/*", fiberSwagger.HandlerDefault)

	v1 := svc.app.Group("/api/v1")

	// Public
	v1.Get("/catalog", svc.catalogHandler.GetCatalog)
	v1.Get("/certificates/verify/:serial", svc.certHandler.VerifyBySerial)
	v1.Get("/certificates/verify", svc.certHandler.VerifyByHash)
	v1.Post("/webhooks/payment",
		svc.rateLimitSvc.Middleware("webhook"),
		svc.webhookHandler.HandlePaymentWebhook)
	v1.Post("/auth/magic_link",
		svc.rateLimitSvc.Middleware("auth"),
		svc.authHandler.RequestMagicLink)
	v1.Post("/auth/magic_link/redeem",
		svc.rateLimitSvc.Middleware("auth"),
		svc.authHandler.RedeemMagicLink)

	// Authenticated (progress PATCH stays optional-auth for anonymous pings)
	v1.Patch("/me/progress",
		svc.authSvc.OptionalAuth(),
		svc.rateLimitSvc.Middleware("tracking"),
		svc.progressHandler.ApplyProgress)
	v1.Get("/me/items",
		svc.authSvc.RequiredAuth(),
		svc.progressHandler.GetCourseItems)
	v1.Get("/me/certificates",
		svc.authSvc.RequiredAuth(),
		svc.certHandler.ListMyCertificates)
	v1.Post("/quizzes/:quizId/submit",
		svc.authSvc.RequiredAuth(),
		svc.rateLimitSvc.Middleware("quiz"),
		svc.quizHandler.SubmitQuiz)
	v1.Post("/certificates/:courseId/issue",
		svc.authSvc.RequiredAuth(),
		svc.certHandler.IssueCertificate)

	// Admin
	v1.Get("/admin/events",
		svc.authSvc.RequiredAuth(),
		svc.authSvc.RequireAdmin(),
		svc.adminHandler.ListEvents)
}

// errorHandler funnels every handler error into the response envelope.
// AppErrors keep their status and message; anything else is an opaque 500
// unless DEBUG exposes the detail.
func (svc *HttpService) errorHandler(c *fiber.Ctx, err error) error {
	if appErr, ok := shared.GetAppError(err); ok {
		if appErr.StatusCode >= 500 {
			log.WithError(appErr.Err).Error(appErr.Message)
		}
		return shared.ResponseJSON(c, appErr.StatusCode, appErr.Message, appErr.Data)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return shared.ResponseJSON(c, fiberErr.Code, fiberErr.Message, nil)
	}

	log.WithError(err).Error("unhandled error")
	if svc.debug {
		return shared.ResponseJSON(c, fiber.StatusInternalServerError, err.Error(), nil)
	}
	return shared.ResponseJSON(c, fiber.StatusInternalServerError, "Internal Server Error", nil)
}
