package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oms-labs/oms-backend/api/controllers"
	"github.com/oms-labs/oms-backend/api/middleware"
	cartsvc "github.com/oms-labs/oms-backend/internal/cart"
	productsvc "github.com/oms-labs/oms-backend/internal/products"
	userssvc "github.com/oms-labs/oms-backend/internal/users"
	"github.com/oms-labs/oms-backend/pkg/config"
	"github.com/oms-labs/oms-backend/pkg/enums"
	"github.com/oms-labs/oms-backend/pkg/logger"
	"github.com/oms-labs/oms-backend/pkg/metrics"
)

// Deps bundles everything the router wires together.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          controllers.Pinger
	Redis       controllers.Pinger
	RateLimiter middleware.FixedWindowLimiter
	Registry    *prometheus.Registry
	HTTPMetrics *metrics.HTTPMetrics

	CartService    cartsvc.Service
	UserService    userssvc.Service
	ProductService productsvc.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, deps.HTTPMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.DB, deps.Redis, logg))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		register := controllers.Register(deps.UserService, logg)
		if deps.RateLimiter != nil {
			r.With(middleware.RegisterRateLimit(deps.RateLimiter, cfg.RateLimit, logg)).
				Post("/accounts", register)
		} else {
			r.Post("/accounts", register)
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(cfg.JWT, logg))

			r.Get("/accounts/me", controllers.GetProfile(deps.UserService, logg))
			r.Delete("/accounts/me", controllers.DeleteAccount(deps.UserService, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.GetCart(deps.CartService, logg))
				r.Put("/", controllers.ReconcileCart(deps.CartService, logg))
				r.Post("/", controllers.AddCartItems(deps.CartService, logg))
				r.Delete("/", controllers.ClearCart(deps.CartService, logg))
			})

			r.Route("/admin/products", func(r chi.Router) {
				r.Use(middleware.RequireRole(string(enums.UserRoleAdmin), logg))
				r.Get("/", controllers.ListProducts(deps.ProductService, logg))
				r.Post("/", controllers.CreateProduct(deps.ProductService, logg))
				r.Get("/{productId}", controllers.GetProduct(deps.ProductService, logg))
				r.Patch("/{productId}", controllers.UpdateProduct(deps.ProductService, logg))
				r.Delete("/{productId}", controllers.DeleteProduct(deps.ProductService, logg))
			})
		})
	})

	return r
}
