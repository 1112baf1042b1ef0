package api

import (
	"net/http"

	"github.com/ayo6706/cashdesk/internal/api/handler"
	"github.com/ayo6706/cashdesk/internal/api/middleware"
	"github.com/ayo6706/cashdesk/internal/api/spec"
	"github.com/ayo6706/cashdesk/internal/config"
	"github.com/ayo6706/cashdesk/internal/domain"
	"github.com/ayo6706/cashdesk/internal/idempotency"
	"github.com/ayo6706/cashdesk/internal/legacy"
	"github.com/ayo6706/cashdesk/internal/realtime"
	"github.com/ayo6706/cashdesk/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
)

// Services groups what the HTTP surface calls into.
type Services struct {
	Users         handler.UserLookup
	Redeems       *service.RedeemService
	Payments      *service.PaymentService
	Recharges     *service.RechargeService
	Assignments   *service.AssignmentService
	Locks         *service.LockService
	Verifications *service.VerificationService
	Transfers     *service.TransferService
	CompanyTags   *service.CompanyTagService
	Hub           *realtime.Hub
	Legacy        *legacy.Client
}

type Router struct {
	cfg       *config.Config
	logger    *zap.Logger
	db        handler.Pinger
	idemStore *idempotency.Store
	redis     redis.Cmdable
	svc       Services
}

func NewRouter(cfg *config.Config, logger *zap.Logger, db handler.Pinger, idemStore *idempotency.Store, redis redis.Cmdable, svc Services) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	middleware.SetJWTSecret(cfg.JWTSecret)
	middleware.SetJWTValidation(cfg.JWTIssuer, cfg.JWTAudience)
	return &Router{cfg: cfg, logger: logger, db: db, idemStore: idemStore, redis: redis, svc: svc}
}

func (api *Router) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.TraceMiddleware)
	r.Use(middleware.RecoverMiddleware(api.logger))
	r.Use(middleware.LoggingMiddleware(api.logger))
	r.Use(middleware.MetricsMiddleware)

	// Handlers
	authHandler := handler.NewAuthHandler(api.svc.Users)
	healthHandler := handler.NewHealthHandler(api.db, api.redis)
	redeemHandler := handler.NewRedeemHandler(api.svc.Redeems, api.svc.Payments)
	paymentHandler := handler.NewPaymentHandler(api.svc.Payments)
	rechargeHandler := handler.NewRechargeHandler(api.svc.Recharges, api.svc.Assignments)
	lockHandler := handler.NewLockHandler(api.svc.Locks)
	verificationHandler := handler.NewVerificationHandler(api.svc.Verifications)
	transferHandler := handler.NewTransferHandler(api.svc.Transfers)
	tagHandler := handler.NewCompanyTagHandler(api.svc.CompanyTags)
	realtimeHandler := handler.NewRealtimeHandler(api.svc.Hub)
	legacyHandler := handler.NewLegacyHandler(api.svc.Legacy)

	finance := middleware.RequireDepartment(domain.DepartmentFinance)
	assigners := middleware.RequireDepartment(domain.DepartmentFinance, domain.DepartmentSupport)
	verifiers := middleware.RequireDepartment(domain.DepartmentVerification)

	// Public Routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.PublicRateLimiter(api.cfg.PublicRateLimitRPS))
		r.Post("/v1/auth/login", authHandler.Login)
		r.Get("/healthz", healthHandler.Live)
		r.Get("/readyz", healthHandler.Ready)
		r.Handle("/metrics", promhttp.Handler())
		r.Get("/openapi.yaml", spec.OpenAPIHandler())
		r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/openapi.yaml")))
	})

	// Websocket clients may pass the token as ?access_token=
	r.With(middleware.TokenFromQuery, middleware.AuthMiddleware).Get("/v1/realtime", realtimeHandler.Subscribe)

	// Protected Routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware)
		r.Use(middleware.AuthRateLimiter(api.cfg.AuthRateLimitRPS))

		// Redeems and payments
		r.Get("/v1/legacy/redeem-requests", legacyHandler.RedeemRequests)
		r.Get("/v1/redeems", redeemHandler.List)
		r.Get("/v1/redeems/{id}", redeemHandler.Get)
		r.Group(func(r chi.Router) {
			r.Use(finance)
			r.Get("/v1/redeems/{id}/payment", redeemHandler.OpenPayment)
			r.Post("/v1/redeems/{id}/payments", paymentHandler.BeginHold)
			r.Get("/v1/payments/{opID}", paymentHandler.Get)
			r.Post("/v1/payments/{opID}/settlement", paymentHandler.SelectSettlement)
			r.With(middleware.IdempotencyMiddleware(api.idemStore, api.logger)).Post("/v1/payments/{opID}/confirm", paymentHandler.Confirm)
			r.Post("/v1/payments/{opID}/cancel", paymentHandler.Cancel)
		})

		// Recharges
		r.Get("/v1/recharges", rechargeHandler.List)
		r.Get("/v1/recharges/{id}", rechargeHandler.Get)
		r.Group(func(r chi.Router) {
			r.Use(assigners)
			r.Post("/v1/recharges/{id}/assign-redeem", rechargeHandler.AssignRedeem)
			r.Post("/v1/recharges/{id}/assign-tag", rechargeHandler.AssignTag)
			r.Post("/v1/recharges/{id}/screenshot", rechargeHandler.SubmitScreenshot)
			r.Post("/v1/recharges/{id}/process", rechargeHandler.Process)
			r.Post("/v1/recharges/{id}/reject-screenshot", rechargeHandler.RejectScreenshot)
			r.Post("/v1/recharges/{id}/requeue", rechargeHandler.Requeue)
			r.Post("/v1/recharges/{id}/dispute", rechargeHandler.Dispute)
		})

		// Locks
		r.Get("/v1/locks/mine", lockHandler.Mine)
		r.Get("/v1/locks/{entity}/{id}", lockHandler.Current)
		r.Post("/v1/locks/{entity}/{id}", lockHandler.Acquire)
		r.Delete("/v1/locks/{entity}/{id}", lockHandler.Release)
		r.With(middleware.RequireRole(domain.RoleAdmin)).Delete("/v1/admin/locks/{entity}/{id}", lockHandler.ForceRelease)

		// Verification
		r.Group(func(r chi.Router) {
			r.Use(verifiers)
			r.Get("/v1/verification", verificationHandler.List)
			r.Post("/v1/verification/{id}/approve", verificationHandler.Approve)
			r.Post("/v1/verification/{id}/reject", verificationHandler.Reject)
		})

		// Transfers
		r.Group(func(r chi.Router) {
			r.Use(assigners)
			r.Get("/v1/transfers", transferHandler.List)
			r.Get("/v1/transfers/{id}", transferHandler.Get)
			r.Post("/v1/transfers/{id}/approve", transferHandler.Approve)
			r.Post("/v1/transfers/{id}/reject", transferHandler.Reject)
		})

		// Company tags
		r.Group(func(r chi.Router) {
			r.Use(finance)
			r.Get("/v1/company-tags", tagHandler.List)
			r.Post("/v1/company-tags", tagHandler.Create)
			r.Get("/v1/company-tags/{id}", tagHandler.Get)
			r.Patch("/v1/company-tags/{id}/status", tagHandler.SetStatus)
			r.Get("/v1/company-tags/{id}/activity", tagHandler.Activity)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		handler.RespondError(w, r, http.StatusNotFound, "route/not-found", "route not found")
	})

	return r
}
