package api

import (
	"net/http"
	"time"

	"github.com/example/storefront/internal/api/middleware"
	"github.com/example/storefront/internal/auth"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type RouterConfig struct {
	Validator      middleware.TokenValidator
	Logger         *zap.Logger
	RequestTimeout time.Duration
}

func NewRouter(h *Handlers, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(withLogging(logger.Named("api")))
	r.Use(chimw.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(chimw.Timeout(cfg.RequestTimeout))
	}

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.Validator))

		// Products
		r.Get("/products", h.GetProducts)
		r.Post("/products/{id}/comments", h.AddComment)
		r.Delete("/products/{id}/comments/{commentId}", h.DeleteComment)
		r.Post("/products/{id}/ratings", h.AddRating)
		r.Delete("/products/{id}/ratings/{ratingId}", h.DeleteRating)

		// Cart
		r.Get("/cart", h.GetCart)
		r.Post("/cart/items", h.AddToCart)
		r.Delete("/cart/items/{id}", h.RemoveFromCart)

		// Checkout
		r.Get("/checkout", h.GetCheckout)
		r.Post("/orders", h.PlaceOrder)
		r.Get("/orders", h.GetOrders)

		// History
		r.Get("/deliveries", h.GetDeliveries)
		r.Get("/payments", h.GetPayments)

		// Admin
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(auth.RoleAdmin))
			r.Get("/admin/checkouts", h.GetAllCheckouts)
			r.Get("/admin/checkouts/{id}", h.GetCheckoutAttempt)
		})
	})

	return otelhttp.NewHandler(r, "storefront-api")
}

func withLogging(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("request_id", chimw.GetReqID(r.Context())),
			)
		})
	}
}
