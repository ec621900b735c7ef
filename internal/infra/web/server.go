package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"stripe-installments/internal/config"
	"stripe-installments/internal/usecase"
)

// Server exposes the installment endpoints, the webhook receiver and the
// operator surface.
type Server struct {
	planUC    usecase.PlanUseCase
	webhookUC usecase.WebhookUseCase
	auth      *AuthManager
	plan      config.PlanConfig

	opsKey           string
	stripeKey        string
	hasWebhookSecret bool

	log  *zerolog.Logger
	http *http.Server
}

func NewServer(cfg *config.Config, planUC usecase.PlanUseCase, webhookUC usecase.WebhookUseCase, logger *zerolog.Logger) *Server {
	return &Server{
		planUC:           planUC,
		webhookUC:        webhookUC,
		auth:             NewAuthManager(cfg.Ops.SessionSecret, !cfg.Runtime.Dev, cfg.Ops.SessionTTL),
		plan:             cfg.Plan,
		opsKey:           cfg.Ops.Key,
		stripeKey:        cfg.Stripe.SecretKey,
		hasWebhookSecret: cfg.Stripe.WebhookSecret != "",
		log:              logger,
		http: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID())
	r.Use(RequestLog(s.log))
	r.Use(Recover(s.log))
	r.Use(Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Post("/api/installments/subscribe", s.handleSubscribe)
	r.Post("/api/installments/cancel", s.handleCancel)
	r.Post("/api/stripe/webhook", s.handleWebhook)

	r.Post("/api/ops/login", s.handleOpsLogin)
	r.Group(func(gr chi.Router) {
		gr.Use(s.auth.Middleware)
		gr.Get("/api/ops/env", s.handleOpsEnv)
	})

	return r
}

func (s *Server) Start() error {
	s.http.Handler = s.Router()
	s.log.Info().Str("addr", s.http.Addr).Msg("http server listening")
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
