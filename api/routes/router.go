package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mercavia/tienda-backend/api/controllers"
	webhookcontrollers "github.com/mercavia/tienda-backend/api/controllers/webhooks"
	"github.com/mercavia/tienda-backend/api/middleware"
	authsvc "github.com/mercavia/tienda-backend/internal/auth"
	cartsvc "github.com/mercavia/tienda-backend/internal/cart"
	"github.com/mercavia/tienda-backend/internal/catalog"
	ordersvc "github.com/mercavia/tienda-backend/internal/orders"
	paymentsvc "github.com/mercavia/tienda-backend/internal/payments"
	"github.com/mercavia/tienda-backend/pkg/auth/session"
	"github.com/mercavia/tienda-backend/pkg/config"
	"github.com/mercavia/tienda-backend/pkg/logger"
	"github.com/mercavia/tienda-backend/pkg/metrics"
	"github.com/mercavia/tienda-backend/pkg/redis"
	"github.com/mercavia/tienda-backend/pkg/stripe"
)

// Dependencies bundles everything the router mounts.
type Dependencies struct {
	Config         *config.Config
	Logger         *logger.Logger
	DB             pinger
	Redis          *redis.Client
	SessionChecker session.AccessSessionChecker
	Metrics        *metrics.HTTPMetrics
	StripeClient   *stripe.Client

	CatalogService catalog.Service
	CartService    cartsvc.Service
	AuthService    authsvc.Service
	OrderService   ordersvc.Service
	PaymentService paymentsvc.Service
	WebhookGuard   *paymentsvc.IdempotencyGuard
}

type pinger interface {
	Ping(ctx context.Context) error
}

// NewRouter wires middleware and handlers onto a chi mux.
func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.DB, deps.Redis))
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/webhooks", func(r chi.Router) {
			r.Post("/stripe", webhookcontrollers.StripeWebhook(deps.PaymentService, deps.StripeClient, deps.WebhookGuard, logg))
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", controllers.ListCategories(deps.CatalogService, logg))
			r.Get("/{categoryID}", controllers.GetCategory(deps.CatalogService, logg))
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ListProducts(deps.CatalogService, logg))
			r.Get("/{productID}", controllers.GetProduct(deps.CatalogService, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(middleware.GuestSession(cfg.Session, deps.Redis, logg))
			r.Use(middleware.OptionalAuth(cfg.JWT, deps.SessionChecker, logg))

			r.Get("/", controllers.GetCart(deps.CartService, logg))
			r.Delete("/", controllers.ClearCart(deps.CartService, logg))
			r.Post("/items", controllers.AddCartItem(deps.CartService, logg))
			r.Patch("/items/{productID}", controllers.UpdateCartItem(deps.CartService, logg))
			r.Delete("/items/{productID}", controllers.RemoveCartItem(deps.CartService, logg))
		})

		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.GuestSession(cfg.Session, deps.Redis, logg))
				r.With(middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)).Post("/login", controllers.Login(deps.AuthService, logg))
				r.With(middleware.AuthRateLimit(registerPolicy, deps.Redis, logg)).Post("/register", controllers.Register(deps.AuthService, logg))
			})

			r.Post("/refresh", controllers.Refresh(deps.AuthService, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(cfg.JWT, deps.SessionChecker, logg))
				r.Post("/logout", controllers.Logout(deps.AuthService, logg))
				r.Get("/profile", controllers.GetProfile(deps.AuthService, logg))
				r.Patch("/profile", controllers.UpdateProfile(deps.AuthService, logg))
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, deps.SessionChecker, logg))

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", controllers.CreateOrder(deps.OrderService, logg))
				r.Get("/", controllers.ListOrders(deps.OrderService, logg))
				r.Get("/{orderID}", controllers.GetOrder(deps.OrderService, logg))
				r.Post("/{orderID}/checkout-session", controllers.CreateCheckoutSession(deps.PaymentService, logg))
			})

			r.Route("/payments", func(r chi.Router) {
				r.Post("/confirm", controllers.ConfirmPayment(deps.PaymentService, logg))
				r.Get("/confirm", controllers.ConfirmPayment(deps.PaymentService, logg))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.SessionChecker, logg))
		r.Use(middleware.RequireRole("admin", logg))

		r.Route("/categories", func(r chi.Router) {
			r.Post("/", controllers.CreateCategory(deps.CatalogService, logg))
			r.Put("/{categoryID}", controllers.UpdateCategory(deps.CatalogService, logg))
			r.Delete("/{categoryID}", controllers.DeleteCategory(deps.CatalogService, logg))
		})

		r.Route("/products", func(r chi.Router) {
			r.Post("/", controllers.CreateProduct(deps.CatalogService, logg))
			r.Put("/{productID}", controllers.UpdateProduct(deps.CatalogService, logg))
			r.Delete("/{productID}", controllers.DeleteProduct(deps.CatalogService, logg))
		})
	})

	return r
}
