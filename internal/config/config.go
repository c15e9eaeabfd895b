// Package config loads process configuration from the environment, with an
// optional .env file in the working directory.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Client configures the storefront client stack.
type Client struct {
	APIBaseURL string        `envconfig:"API_BASE_URL" default:"https://api.unimerch.space/api"`
	Timeout    time.Duration `envconfig:"API_TIMEOUT" default:"10s"`
	Token      string        `envconfig:"API_TOKEN"`
	UserID     string        `envconfig:"USER_ID"`
	Locale     string        `envconfig:"LOCALE" default:"vi"`
	LogLevel   string        `envconfig:"LOG_LEVEL" default:"info"`

	// RedisAddr enables the shared token store when set.
	RedisAddr      string        `envconfig:"REDIS_ADDR"`
	RedisPassword  string        `envconfig:"REDIS_PASSWORD"`
	TokenKeyPrefix string        `envconfig:"TOKEN_KEY_PREFIX" default:"unimerch:token"`
	TokenTTL       time.Duration `envconfig:"TOKEN_TTL" default:"24h"`

	// KafkaBrokers enables the cross-process cart notifier when set.
	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"cart-updated"`
	KafkaGroupID string   `envconfig:"KAFKA_GROUP_ID"`

	// Delivery details used by the checkout action.
	ShippingAddress string `envconfig:"SHIPPING_ADDRESS"`
	Phone           string `envconfig:"PHONE"`
	PaymentMethod   string `envconfig:"PAYMENT_METHOD" default:"cod"`
	OrderNotes      string `envconfig:"ORDER_NOTES"`

	BreakerFailures    uint32        `envconfig:"BREAKER_FAILURES" default:"5"`
	BreakerOpenTimeout time.Duration `envconfig:"BREAKER_OPEN_TIMEOUT" default:"30s"`
}

// Server configures the reference storefront API.
type Server struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"10s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"10s"`
	HandlerTimeout  time.Duration `envconfig:"HANDLER_TIMEOUT" default:"5s"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`

	// Tokens is "token:userID:role" entries separated by commas.
	Tokens TokenTable `envconfig:"API_TOKENS" default:"dev-token:1:customer,seller-token:2:seller,admin-token:3:admin"`

	MongoURI      string        `envconfig:"MONGO_URI"`
	MongoDatabase string        `envconfig:"MONGO_DATABASE" default:"unimerch"`
	RedisAddr     string        `envconfig:"REDIS_ADDR"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	CartCacheTTL  time.Duration `envconfig:"CART_CACHE_TTL" default:"5m"`
	DatabaseURL   string        `envconfig:"DATABASE_URL"`
	SQLitePath    string        `envconfig:"SQLITE_PATH" default:":memory:"`
}

type Principal struct {
	UserID int64
	Role   string
}

const (
	RoleCustomer = "customer"
	RoleSeller   = "seller"
	RoleAdmin    = "admin"
)

// IsStaff reports whether the principal may manage other users' orders.
func (p Principal) IsStaff() bool {
	return p.Role == RoleSeller || p.Role == RoleAdmin
}

// TokenTable maps bearer tokens to principals.
type TokenTable map[string]Principal

// Decode implements envconfig.Decoder.
func (t *TokenTable) Decode(value string) error {
	table := TokenTable{}
	for _, entry := range strings.Split(value, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) != 3 {
			return fmt.Errorf("token entry %q: want token:userID:role", entry)
		}
		id, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("token entry %q: invalid user id", entry)
		}
		table[parts[0]] = Principal{UserID: id, Role: parts[2]}
	}
	*t = table
	return nil
}

func LoadClient() (*Client, error) {
	_ = godotenv.Load()

	var cfg Client
	if err := envconfig.Process("UNIMERCH", &cfg); err != nil {
		return nil, fmt.Errorf("load client config: %w", err)
	}
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("load client config: timeout must be positive")
	}
	return &cfg, nil
}

func LoadServer() (*Server, error) {
	_ = godotenv.Load()

	var cfg Server
	if err := envconfig.Process("DEVAPI", &cfg); err != nil {
		return nil, fmt.Errorf("load server config: %w", err)
	}
	return &cfg, nil
}
