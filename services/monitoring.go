package services

import (
	"net/http"
	"os"
	"strconv"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// MonitoringService exposes prometheus metrics on a side port and owns the
// domain counters the other services increment.
type MonitoringService struct {
	appContext.DefaultService

	log  zerolog.Logger
	port string
	srv  *http.Server

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	paymentEvents      *prometheus.CounterVec
	quizSubmissions    *prometheus.CounterVec
	progressEvents     prometheus.Counter
	certificatesIssued prometheus.Counter
}

const MONITORING_SVC = "monitoring_svc"

func (svc MonitoringService) Id() string {
	return MONITORING_SVC
}

func (svc *MonitoringService) Configure(ctx *appContext.Context) error {
	svc.log = zerolog.New(os.Stderr).With().Timestamp().Str("svc", MONITORING_SVC).Logger()
	svc.port = os.Getenv("PROMETHEUS_PORT")

	svc.httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "academy_http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})
	svc.httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "academy_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	svc.paymentEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "academy_payment_events_total",
		Help: "Processed payment webhook events by kind.",
	}, []string{"kind"})
	svc.quizSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "academy_quiz_submissions_total",
		Help: "Graded quiz submissions by outcome.",
	}, []string{"outcome"})
	svc.progressEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "academy_progress_events_total",
		Help: "Progress events folded into the ledger.",
	})
	svc.certificatesIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "academy_certificates_issued_total",
		Help: "Certificate issue operations, re-issues included.",
	})

	return svc.DefaultService.Configure(ctx)
}

func (svc *MonitoringService) Start() error {
	if svc.port == "" {
		svc.log.Warn().Msg("PROMETHEUS_PORT not set; metrics endpoint disabled")
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	svc.srv = &http.Server{Addr: ":" + svc.port, Handler: mux}

	go func() {
		svc.log.Info().Str("port", svc.port).Msg("metrics listener up")
		if err := svc.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			svc.log.Error().Err(err).Msg("metrics listener failed")
		}
	}()
	return nil
}

func (svc *MonitoringService) Shutdown() {
	if svc.srv != nil {
		_ = svc.srv.Close()
	}
}

// Middleware records request counts and latency per route.
func (svc *MonitoringService) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		route := c.Route().Path
		svc.httpRequests.WithLabelValues(
			c.Method(), route, strconv.Itoa(c.Response().StatusCode())).Inc()
		svc.httpDuration.WithLabelValues(c.Method(), route).
			Observe(time.Since(start).Seconds())
		return err
	}
}

func (svc *MonitoringService) PaymentEventProcessed(kind string) {
	svc.paymentEvents.WithLabelValues(kind).Inc()
}

func (svc *MonitoringService) QuizSubmitted(passed bool) {
	outcome := "failed"
	if passed {
		outcome = "passed"
	}
	svc.quizSubmissions.WithLabelValues(outcome).Inc()
}

func (svc *MonitoringService) ProgressEventsApplied(n int) {
	svc.progressEvents.Add(float64(n))
}

func (svc *MonitoringService) CertificateIssued() {
	svc.certificatesIssued.Inc()
}
