// Command cartwatch keeps a cart badge for one shopper and logs every count
// change. With arguments it performs one cart action instead:
//
//	cartwatch add <product-id> [quantity]
//	cartwatch remove <product-id>
//	cartwatch checkout
//
// Checkout takes delivery details from UNIMERCH_SHIPPING_ADDRESS,
// UNIMERCH_PHONE, UNIMERCH_PAYMENT_METHOD and UNIMERCH_ORDER_NOTES.
//
// Actions broadcast through the Kafka relay when brokers are configured, so
// running watchers pick them up.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/leedontbeshy/unimerch-client/internal/apiclient"
	"github.com/leedontbeshy/unimerch-client/internal/cart"
	"github.com/leedontbeshy/unimerch-client/internal/cartstate"
	"github.com/leedontbeshy/unimerch-client/internal/config"
	"github.com/leedontbeshy/unimerch-client/internal/domain"
	"github.com/leedontbeshy/unimerch-client/internal/notify"
	"github.com/leedontbeshy/unimerch-client/internal/order"
	"github.com/leedontbeshy/unimerch-client/pkg/circuitbreaker"
	"github.com/leedontbeshy/unimerch-client/pkg/logger"
)

func main() {
	cfg, err := config.LoadClient()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	l, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer l.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tokens, closeTokens, err := tokenStore(ctx, cfg)
	if err != nil {
		l.Fatal("Token store unavailable", zap.Error(err))
	}
	defer closeTokens()

	breaker := circuitbreaker.DefaultSettings("storefront-api")
	breaker.ConsecutiveFailures = cfg.BreakerFailures
	breaker.OpenTimeout = cfg.BreakerOpenTimeout

	api := apiclient.New(cfg.APIBaseURL, cfg.Timeout,
		apiclient.WithTokenStore(tokens),
		apiclient.WithLogger(l),
		apiclient.WithBreaker(breaker),
		apiclient.OnUnauthorized(func() {
			l.Warn("session expired, sign in again and set UNIMERCH_API_TOKEN")
		}))
	if cfg.Token != "" {
		if err := api.SetToken(ctx, cfg.Token); err != nil {
			l.Fatal("Failed to store token", zap.Error(err))
		}
	}

	carts := cart.NewClient(api, l)
	local := notify.New()
	var broadcaster notify.Broadcaster = local
	if len(cfg.KafkaBrokers) > 0 {
		relay := notify.NewKafkaRelay(local, cfg.KafkaBrokers, cfg.KafkaTopic, cfg.KafkaGroupID, cfg.UserID, l)
		defer relay.Close()
		go func() {
			if err := relay.Run(ctx); err != nil {
				l.Error("cart relay stopped", zap.Error(err))
			}
		}()
		broadcaster = relay
	}

	if len(os.Args) > 1 {
		store := cartstate.NewStore(carts, order.NewClient(api, l), broadcaster, l, cartstate.Options{Locale: cfg.Locale})
		details := domain.CheckoutDetails{
			ShippingAddress: cfg.ShippingAddress,
			Phone:           cfg.Phone,
			PaymentMethod:   domain.PaymentMethod(cfg.PaymentMethod),
			Notes:           cfg.OrderNotes,
		}
		if err := runAction(ctx, store, details, os.Args[1:]); err != nil {
			l.Fatal("cart action failed", zap.Error(err), zap.String("message", store.ErrMessage()))
		}
		if msg := store.SuccessMessage(); msg != "" {
			l.Info(msg)
		}
		l.Info("cart updated", zap.Int("items", store.TotalItems()), zap.String("total", store.Cart().TotalPrice.String()))
		return
	}

	badge := cartstate.NewBadge(carts, local, l, func(count int) {
		l.Info("cart badge changed", zap.Int("items", count))
	})
	l.Info("watching cart", zap.String("api", cfg.APIBaseURL), zap.Bool("relay", len(cfg.KafkaBrokers) > 0))
	badge.Run(ctx)
	local.Close()
	l.Info("cartwatch stopped")
}

func tokenStore(ctx context.Context, cfg *config.Client) (apiclient.TokenStore, func(), error) {
	if cfg.RedisAddr == "" {
		return apiclient.NewMemoryTokenStore(""), func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	store := apiclient.NewRedisTokenStore(client, cfg.TokenKeyPrefix, cfg.UserID, cfg.TokenTTL)
	return store, func() { client.Close() }, nil
}

func runAction(ctx context.Context, store *cartstate.Store, details domain.CheckoutDetails, args []string) error {
	if _, err := store.Refresh(ctx); err != nil {
		return err
	}
	switch args[0] {
	case "add":
		id, qty, err := productArgs(args[1:], 1)
		if err != nil {
			return err
		}
		_, err = store.Add(ctx, id, qty)
		return err
	case "remove":
		id, _, err := productArgs(args[1:], 0)
		if err != nil {
			return err
		}
		_, err = store.Remove(ctx, id)
		return err
	case "checkout":
		_, err := store.Checkout(ctx, details)
		return err
	}
	return fmt.Errorf("unknown action %q", args[0])
}

func productArgs(args []string, defaultQty int) (int64, int, error) {
	if len(args) == 0 {
		return 0, 0, errors.New("product id required")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("product id: %w", err)
	}
	qty := defaultQty
	if len(args) > 1 {
		if qty, err = strconv.Atoi(args[1]); err != nil {
			return 0, 0, fmt.Errorf("quantity: %w", err)
		}
	}
	return id, qty, nil
}
