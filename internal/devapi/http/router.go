// Package http serves the reference storefront REST API under /api.
package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/leedontbeshy/unimerch-client/internal/config"
	"github.com/leedontbeshy/unimerch-client/internal/devapi/repository"
)

type RouterConfig struct {
	Carts          CartService
	Orders         OrderService
	Products       repository.ProductRepository
	Reviews        repository.ReviewRepository
	Tokens         config.TokenTable
	Logger         *zap.Logger
	HandlerTimeout time.Duration
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.HandlerTimeout <= 0 {
		cfg.HandlerTimeout = 5 * time.Second
	}

	cartHandler := NewCartHandler(cfg.Carts, cfg.HandlerTimeout)
	ordersHandler := NewOrdersHandler(cfg.Orders, cfg.HandlerTimeout)
	productHandler := NewProductHandler(cfg.Products, cfg.HandlerTimeout)
	reviewHandler := NewReviewHandler(cfg.Reviews, cfg.HandlerTimeout)

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(cfg.Logger))
	r.Use(middleware.Timeout(2 * cfg.HandlerTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondData(w, http.StatusOK, "ok", map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", productHandler.ListProducts)
		r.Get("/products/featured", productHandler.FeaturedProducts)
		r.Get("/products/seller/{seller_id}", productHandler.SellerProducts)
		r.Get("/products/{product_id}", productHandler.GetProduct)
		r.Get("/search/products", productHandler.SearchProducts)
		r.Get("/categories", productHandler.ListCategories)
		r.Get("/reviews", reviewHandler.ListReviews)
		r.Get("/reviews/{review_id}", reviewHandler.GetReview)

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(cfg.Tokens))

			r.Post("/reviews", reviewHandler.CreateReview)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartHandler.GetCart)
				r.Delete("/", cartHandler.ClearCart)
				r.Post("/add", cartHandler.AddItem)
				r.Patch("/items/{product_id}", cartHandler.UpdateQuantity)
				r.Delete("/items/{product_id}", cartHandler.RemoveItem)
			})

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", ordersHandler.CreateOrder)
				r.Get("/", ordersHandler.ListOrders)
				r.Get("/{order_id}", ordersHandler.GetOrder)
				r.Patch("/{order_id}/cancel", ordersHandler.CancelOrder)
				r.Put("/{order_id}/status", ordersHandler.UpdateStatus)
			})
		})
	})

	return otelhttp.NewHandler(r, "devapi")
}
