/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * The product-type catalog, pagination ceiling and expiry sweep schedule are
 * loaded here and handed to components at construction; nothing reads them from
 * ambient globals.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

// DefaultProductTypes is the finite catalog used when PRODUCT_TYPE_CATALOG is
// not configured.
var DefaultProductTypes = []string{"giftcard", "voucher", "coupon", "membership", "ticket"}

// Config holds all the configuration variables for the degicredit backend.
// These values are loaded from environment variables.
type Config struct {
	ServerPort               string `mapstructure:"SERVER_PORT"`
	DatabaseURL              string `mapstructure:"DATABASE_URL"`
	RedisURL                 string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix     string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL              string `mapstructure:"RABBITMQ_URL"`
	EventExchange            string `mapstructure:"EVENT_EXCHANGE"`
	JWTSecret                string `mapstructure:"JWT_SECRET"`
	InternalAPIKey           string `mapstructure:"INTERNAL_API_KEY"`
	PaymentAPIBaseURL        string `mapstructure:"PAYMENT_API_BASE_URL"`
	PaymentAPIKey            string `mapstructure:"PAYMENT_API_KEY"`
	ProductTypeCatalog       string `mapstructure:"PRODUCT_TYPE_CATALOG"`
	MaxPageLimit             int    `mapstructure:"MAX_PAGE_LIMIT"`
	ExpirySweepSchedule      string `mapstructure:"EXPIRY_SWEEP_SCHEDULE"`
	MarketRateLimitPerMinute int    `mapstructure:"MARKET_RATE_LIMIT_PER_MINUTE"`
}

// ProductTypes returns the configured product-type catalog as a slice.
func (c Config) ProductTypes() []string {
	raw := strings.TrimSpace(c.ProductTypeCatalog)
	if raw == "" {
		return append([]string(nil), DefaultProductTypes...)
	}
	parts := strings.Split(raw, ",")
	types := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			types = append(types, t)
		}
	}
	if len(types) == 0 {
		return append([]string(nil), DefaultProductTypes...)
	}
	return types
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("EVENT_EXCHANGE", "degicredit.events")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "degicredit:rate_limit")
	viper.SetDefault("MAX_PAGE_LIMIT", 100)
	viper.SetDefault("EXPIRY_SWEEP_SCHEDULE", "*/5 * * * *")
	viper.SetDefault("MARKET_RATE_LIMIT_PER_MINUTE", 120)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("EVENT_EXCHANGE")
	_ = viper.BindEnv("JWT_SECRET")
	_ = viper.BindEnv("INTERNAL_API_KEY")
	_ = viper.BindEnv("PAYMENT_API_BASE_URL")
	_ = viper.BindEnv("PAYMENT_API_KEY")
	_ = viper.BindEnv("PRODUCT_TYPE_CATALOG")
	_ = viper.BindEnv("MAX_PAGE_LIMIT")
	_ = viper.BindEnv("EXPIRY_SWEEP_SCHEDULE")
	_ = viper.BindEnv("MARKET_RATE_LIMIT_PER_MINUTE")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	config.JWTSecret = strings.TrimSpace(config.JWTSecret)
	config.InternalAPIKey = strings.TrimSpace(config.InternalAPIKey)
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "degicredit:rate_limit"
	}
	if config.MaxPageLimit <= 0 {
		log.Printf("level=warn component=config msg=\"non-positive max page limit configured; using default\" max_page_limit=%d", config.MaxPageLimit)
		config.MaxPageLimit = 100
	}
	if strings.TrimSpace(config.ExpirySweepSchedule) == "" {
		config.ExpirySweepSchedule = "*/5 * * * *"
	}
	if config.MarketRateLimitPerMinute < 0 {
		log.Printf("level=warn component=config msg=\"negative market rate limit configured; disabling\" per_minute=%d", config.MarketRateLimitPerMinute)
		config.MarketRateLimitPerMinute = 0
	}

	return
}
