package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/imrishuroy/go-bakery-orderflow/internal/errorx"
)

// Config is the process configuration for both the API and the worker.
type Config struct {
	App     AppConfig     `mapstructure:"app"`
	AWS     AWSConfig     `mapstructure:"aws"`
	Tables  TablesConfig  `mapstructure:"tables"`
	Notify  NotifyConfig  `mapstructure:"notify"`
	Stripe  StripeConfig  `mapstructure:"stripe"`
	Mail    MailConfig    `mapstructure:"mail"`
	Admin   AdminConfig   `mapstructure:"admin"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	LogLevel string `mapstructure:"log_level"`
	Addr     string `mapstructure:"addr"`
	RunLocal bool   `mapstructure:"run_local"`
}

type AWSConfig struct {
	Region           string `mapstructure:"region"`
	EndpointOverride string `mapstructure:"endpoint_override"`
}

type TablesConfig struct {
	Orders         string        `mapstructure:"orders"`
	Settings       string        `mapstructure:"settings"`
	Idempotency    string        `mapstructure:"idempotency"`
	IdempotencyTTL time.Duration `mapstructure:"idempotency_ttl"`
}

type NotifyConfig struct {
	QueueURL string `mapstructure:"queue_url"`
}

type StripeConfig struct {
	SecretKey string `mapstructure:"secret_key"`
	Currency  string `mapstructure:"currency"`
}

type MailConfig struct {
	From            string `mapstructure:"from"`
	PickupDetails   string `mapstructure:"pickup_details"`
	DeliveryDetails string `mapstructure:"delivery_details"`
}

type AdminConfig struct {
	PasswordHash string        `mapstructure:"password_hash"`
	JWTSecret    string        `mapstructure:"jwt_secret"`
	TokenTTL     time.Duration `mapstructure:"token_ttl"`
}

type MetricsConfig struct {
	Namespace     string        `mapstructure:"namespace"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

// envKeys maps config keys to the flat environment variable names used in deployment.
var envKeys = map[string]string{
	"app.name":               "APP_NAME",
	"app.log_level":          "LOG_LEVEL",
	"app.addr":               "ADDR",
	"app.run_local":          "RUN_LOCAL",
	"aws.region":             "AWS_REGION",
	"aws.endpoint_override":  "AWS_ENDPOINT_OVERRIDE",
	"tables.orders":          "ORDERS_TABLE",
	"tables.settings":        "SETTINGS_TABLE",
	"tables.idempotency":     "IDEMPOTENCY_TABLE",
	"tables.idempotency_ttl": "IDEMPOTENCY_TTL",
	"notify.queue_url":       "NOTIFY_QUEUE_URL",
	"stripe.secret_key":      "STRIPE_SECRET_KEY",
	"stripe.currency":        "STRIPE_CURRENCY",
	"mail.from":              "MAIL_FROM",
	"mail.pickup_details":    "MAIL_PICKUP_DETAILS",
	"mail.delivery_details":  "MAIL_DELIVERY_DETAILS",
	"admin.password_hash":    "ADMIN_PASSWORD_HASH",
	"admin.jwt_secret":       "ADMIN_JWT_SECRET",
	"admin.token_ttl":        "ADMIN_TOKEN_TTL",
	"metrics.namespace":      "METRICS_NAMESPACE",
	"metrics.flush_interval": "METRICS_FLUSH_INTERVAL",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "bakery-orderflow")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.addr", ":8080")
	v.SetDefault("app.run_local", false)
	v.SetDefault("aws.region", "us-east-1")
	v.SetDefault("aws.endpoint_override", "")
	v.SetDefault("tables.orders", "orders")
	v.SetDefault("tables.settings", "settings")
	v.SetDefault("tables.idempotency", "idempotency")
	v.SetDefault("tables.idempotency_ttl", 48*time.Hour)
	v.SetDefault("notify.queue_url", "")
	v.SetDefault("stripe.secret_key", "")
	v.SetDefault("stripe.currency", "usd")
	v.SetDefault("mail.from", "")
	v.SetDefault("mail.pickup_details", "Pickup details will follow by email.")
	v.SetDefault("mail.delivery_details", "")
	v.SetDefault("admin.password_hash", "")
	v.SetDefault("admin.jwt_secret", "")
	v.SetDefault("admin.token_ttl", 12*time.Hour)
	v.SetDefault("metrics.namespace", "BakeryOrderflow")
	v.SetDefault("metrics.flush_interval", time.Minute)
}

// Load reads defaults, an optional YAML file and the environment, in that order of precedence.
// configFile may be empty.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, env := range envKeys {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config failed: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config failed: %w", err)
	}
	return &cfg, nil
}

// ValidateAPI checks everything the HTTP API needs before it starts serving.
func (c *Config) ValidateAPI() error {
	if err := c.validateTables(); err != nil {
		return err
	}
	if c.Stripe.SecretKey == "" {
		return errorx.Configuration("stripe.secret_key (STRIPE_SECRET_KEY) is required")
	}
	if c.Admin.PasswordHash == "" {
		return errorx.Configuration("admin.password_hash (ADMIN_PASSWORD_HASH) is required")
	}
	if c.Admin.JWTSecret == "" {
		return errorx.Configuration("admin.jwt_secret (ADMIN_JWT_SECRET) is required")
	}
	if c.Notify.QueueURL == "" && c.Mail.From == "" {
		return errorx.Configuration("either notify.queue_url (NOTIFY_QUEUE_URL) or mail.from (MAIL_FROM) is required")
	}
	return nil
}

// ValidateWorker checks the notification worker settings.
func (c *Config) ValidateWorker() error {
	if c.Mail.From == "" {
		return errorx.Configuration("mail.from (MAIL_FROM) is required")
	}
	return nil
}

func (c *Config) validateTables() error {
	if c.Tables.Orders == "" || c.Tables.Settings == "" || c.Tables.Idempotency == "" {
		return errorx.Configuration("orders, settings and idempotency table names are required")
	}
	return nil
}
