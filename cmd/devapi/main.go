package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/leedontbeshy/unimerch-client/internal/config"
	"github.com/leedontbeshy/unimerch-client/internal/devapi/cache"
	devhttp "github.com/leedontbeshy/unimerch-client/internal/devapi/http"
	"github.com/leedontbeshy/unimerch-client/internal/devapi/repository"
	"github.com/leedontbeshy/unimerch-client/internal/devapi/service"
	"github.com/leedontbeshy/unimerch-client/pkg/logger"
)

func main() {
	cfg, err := config.LoadServer()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	l, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer l.Sync()

	ctx := context.Background()

	products, err := repository.NewSQLiteProductRepository(cfg.SQLitePath)
	if err != nil {
		l.Fatal("Failed to open catalog", zap.Error(err))
	}
	defer products.Close()

	var carts repository.CartRepository = repository.NewMemoryCartRepository()
	if cfg.MongoURI != "" {
		db, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			l.Fatal("Failed to connect to MongoDB", zap.Error(err))
		}
		defer db.Client().Disconnect(context.Background())

		mongoCarts := repository.NewMongoCartRepository(db)
		if err := mongoCarts.CreateIndexes(ctx); err != nil {
			l.Fatal("Failed to create cart indexes", zap.Error(err))
		}
		carts = mongoCarts
		l.Info("Carts stored in MongoDB", zap.String("database", cfg.MongoDatabase))
	}

	var orders repository.OrderRepository = repository.NewMemoryOrderRepository()
	if cfg.DatabaseURL != "" {
		pg, err := repository.NewPostgresOrderRepository(ctx, cfg.DatabaseURL)
		if err != nil {
			l.Fatal("Failed to open order database", zap.Error(err))
		}
		defer pg.Close()
		orders = pg
		l.Info("Orders stored in PostgreSQL")
	}

	var cartCache cache.CartCache
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			l.Fatal("Redis connection failed", zap.Error(err))
		}
		cartCache = cache.NewRedisCache(redisClient, cfg.CartCacheTTL)
		l.Info("Redis ping succeeded", zap.String("addr", cfg.RedisAddr))
	}

	cartService := service.NewCartService(carts, products, cartCache, l)
	orderService := service.NewOrderService(orders, products, cartService, l)

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: devhttp.NewRouter(devhttp.RouterConfig{
			Carts:          cartService,
			Orders:         orderService,
			Products:       products,
			Reviews:        products,
			Tokens:         cfg.Tokens,
			Logger:         l,
			HandlerTimeout: cfg.HandlerTimeout,
		}),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		l.Info("Storefront API starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error("server forced to shutdown", zap.Error(err))
	}
	l.Info("server exited")
}
