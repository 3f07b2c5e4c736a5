package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Storage backends for the pending payment store and the order ledger.
const (
	BackendSQLite   = "sqlite"
	BackendDynamoDB = "dynamodb"
)

// DefaultMenuRefreshInterval keeps the background catalog pass (two POS calls)
// at six calls per hour, under the vendor's ten per hour ceiling.
const DefaultMenuRefreshInterval = 20 * time.Minute

// Config is the process configuration. Values come from the environment,
// optionally seeded from a .env file.
type Config struct {
	HTTPAddr string `validate:"required"`
	RunLocal bool

	// WebAppURL is the public mini-app origin; gateway return URLs and
	// post-payment redirects are built from it.
	WebAppURL string `validate:"omitempty,url"`
	// BotSecret authenticates the chat bot on internal endpoints.
	BotSecret string
	// BotToken is the messaging platform token used for status notifications.
	BotToken        string
	MessagingAPIURL string `validate:"required,url"`

	POSBaseURL    string `validate:"required,url"`
	POSAPIKey     string
	POSShopGUID   string
	POSTimeout    time.Duration `validate:"gt=0"`
	MenuGroupName string

	MenuRefreshInterval time.Duration `validate:"gte=1m"`

	GatewayBaseURL   string `validate:"required,url"`
	GatewayShopID    string
	GatewaySecretKey string
	Currency         string `validate:"required,len=3"`

	StoreBackend string        `validate:"oneof=sqlite dynamodb"`
	SQLitePath   string        `validate:"required_if=StoreBackend sqlite"`
	PendingTable string        `validate:"required_if=StoreBackend dynamodb"`
	OrdersTable  string        `validate:"required_if=StoreBackend dynamodb"`
	PendingTTL   time.Duration `validate:"gt=0"`
	ClaimLease   time.Duration `validate:"gt=0"`

	EventsQueueURL   string
	MetricsNamespace string
}

// Load reads .env (when present) and the environment, applies defaults and
// validates the result.
func Load() (*Config, error) {
	// A missing .env is normal in containers.
	_ = godotenv.Load()

	cfg := &Config{
		HTTPAddr:         getString("HTTP_ADDR", ":8080"),
		RunLocal:         getBool("RUN_LOCAL", false),
		WebAppURL:        strings.TrimRight(getString("WEBAPP_URL", ""), "/"),
		BotSecret:        getString("BOT_INTERNAL_SECRET", ""),
		BotToken:         getString("TELEGRAM_BOT_TOKEN", ""),
		MessagingAPIURL:  getString("TELEGRAM_API_URL", "https://api.telegram.org"),
		POSBaseURL:       getString("YT_API_URL", "https://api.ytimes.ru/ex"),
		POSAPIKey:        getString("YT_API_KEY", ""),
		POSShopGUID:      getString("YT_SHOP_GUID", ""),
		MenuGroupName:    getString("MENU_GROUP_NAME", ""),
		GatewayBaseURL:   getString("YOOKASSA_API_URL", "https://api.yookassa.ru/v3"),
		GatewayShopID:    strings.TrimSpace(getString("YOOKASSA_SHOP_ID", "")),
		GatewaySecretKey: strings.TrimSpace(getString("YOOKASSA_SECRET_KEY", "")),
		Currency:         getString("PAYMENT_CURRENCY", "RUB"),
		StoreBackend:     strings.ToLower(getString("STORE_BACKEND", BackendSQLite)),
		SQLitePath:       getString("SQLITE_PATH", "data/orderflow.db"),
		PendingTable:     getString("PENDING_TABLE", ""),
		OrdersTable:      getString("ORDERS_TABLE", ""),
		EventsQueueURL:   getString("EVENTS_QUEUE_URL", ""),
		MetricsNamespace: getString("METRICS_NAMESPACE", "PosOrderflow"),
	}

	var err error
	if cfg.POSTimeout, err = getDuration("YT_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.MenuRefreshInterval, err = getDuration("MENU_REFRESH_INTERVAL", DefaultMenuRefreshInterval); err != nil {
		return nil, err
	}
	if cfg.PendingTTL, err = getDuration("PENDING_TTL", 48*time.Hour); err != nil {
		return nil, err
	}
	if cfg.ClaimLease, err = getDuration("FINALIZE_CLAIM_LEASE", 2*time.Minute); err != nil {
		return nil, err
	}

	if err := validatorv10.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// GatewayConfigured reports whether in-app gateway payments can be created.
func (c *Config) GatewayConfigured() bool {
	return c.GatewayShopID != "" && c.GatewaySecretKey != ""
}

func getString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}
