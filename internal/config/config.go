package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application. Secrets that are
// absent do not fail loading; they switch off the capability that needs them.
type Config struct {
	Port                             string `mapstructure:"PORT"`
	GinMode                          string `mapstructure:"GIN_MODE"`
	ClientURL                        string `mapstructure:"CLIENT_URL"`
	SiteURL                          string `mapstructure:"SITE_URL"`
	FirebaseProjectID                string `mapstructure:"FIREBASE_PROJECT_ID"`
	GoogleApplicationCredentials     string `mapstructure:"GOOGLE_APPLICATION_CREDENTIALS"`
	FirebaseServiceAccountJSONBase64 string `mapstructure:"FIREBASE_SERVICE_ACCOUNT_JSON_BASE64"`
	FirebaseServiceAccountKey        string `mapstructure:"FIREBASE_SERVICE_ACCOUNT_KEY"` // raw JSON
	StripeSecretKey                  string `mapstructure:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret              string `mapstructure:"STRIPE_WEBHOOK_SECRET"`
	BookAPIURL                       string `mapstructure:"BOOK_API_URL"`
	RedisAddr                        string `mapstructure:"REDIS_ADDR"`
	RedisPassword                    string `mapstructure:"REDIS_PASSWORD"`
	RedisDB                          int    `mapstructure:"REDIS_DB"`
	RabbitMQURL                      string `mapstructure:"RABBITMQ_URL"`
	RabbitMQQueue                    string `mapstructure:"RABBITMQ_QUEUE"`
	SimulatedBilling                 bool   `mapstructure:"SIMULATED_BILLING"`
	ConfigFile                       string `mapstructure:"CONFIG_FILE"`
}

// fileConfig is the optional YAML file named by CONFIG_FILE. It only covers
// infrastructure endpoints; secrets come from the environment.
type fileConfig struct {
	Server struct {
		Port      string `yaml:"port"`
		ClientURL string `yaml:"client_url"`
		SiteURL   string `yaml:"site_url"`
	} `yaml:"server"`
	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	RabbitMQ struct {
		URL       string `yaml:"url"`
		QueueName string `yaml:"queue_name"`
	} `yaml:"rabbitmq"`
	Books struct {
		APIURL string `yaml:"api_url"`
	} `yaml:"books"`
}

var envKeys = []string{
	"PORT",
	"GIN_MODE",
	"CLIENT_URL",
	"SITE_URL",
	"FIREBASE_PROJECT_ID",
	"GOOGLE_APPLICATION_CREDENTIALS",
	"FIREBASE_SERVICE_ACCOUNT_JSON_BASE64",
	"FIREBASE_SERVICE_ACCOUNT_KEY",
	"STRIPE_SECRET_KEY",
	"STRIPE_WEBHOOK_SECRET",
	"BOOK_API_URL",
	"REDIS_ADDR",
	"REDIS_PASSWORD",
	"REDIS_DB",
	"RABBITMQ_URL",
	"RABBITMQ_QUEUE",
	"SIMULATED_BILLING",
	"CONFIG_FILE",
}

// LoadConfig loads configuration from environment variables using Viper,
// layered over the optional YAML file.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("CLIENT_URL", "http://localhost:3000")
	v.SetDefault("SITE_URL", "http://localhost:3000")
	v.SetDefault("RABBITMQ_QUEUE", "subscription-events")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("SIMULATED_BILLING", false)

	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if path := v.GetString("CONFIG_FILE"); path != "" {
		if err := applyFile(v, path); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.New("failed to unmarshal config: " + err.Error())
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyFile installs the YAML values as defaults so the environment still wins.
func applyFile(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setIf := func(key, value string) {
		if value != "" {
			v.SetDefault(key, value)
		}
	}
	setIf("PORT", fc.Server.Port)
	setIf("CLIENT_URL", fc.Server.ClientURL)
	setIf("SITE_URL", fc.Server.SiteURL)
	setIf("REDIS_ADDR", fc.Redis.Address)
	setIf("REDIS_PASSWORD", fc.Redis.Password)
	if fc.Redis.DB != 0 {
		v.SetDefault("REDIS_DB", fc.Redis.DB)
	}
	setIf("RABBITMQ_URL", fc.RabbitMQ.URL)
	setIf("RABBITMQ_QUEUE", fc.RabbitMQ.QueueName)
	setIf("BOOK_API_URL", fc.Books.APIURL)
	return nil
}

// Validate rejects values that are present but unusable.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	switch strings.ToLower(c.GinMode) {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("GIN_MODE must be debug, release or test, got %q", c.GinMode)
	}
	if c.RedisDB < 0 {
		return errors.New("REDIS_DB must not be negative")
	}
	return nil
}

// IsRelease reports whether gin runs in release mode.
func (c *Config) IsRelease() bool {
	return strings.EqualFold(c.GinMode, "release")
}

// FirebaseConfigured reports whether identity and profile services can start.
func (c *Config) FirebaseConfigured() bool {
	return c.FirebaseProjectID != "" ||
		c.GoogleApplicationCredentials != "" ||
		c.FirebaseServiceAccountJSONBase64 != "" ||
		c.FirebaseServiceAccountKey != ""
}

// StripeConfigured reports whether checkout sessions can be created.
func (c *Config) StripeConfigured() bool {
	return c.StripeSecretKey != ""
}

// WebhookConfigured reports whether Stripe webhooks can be verified.
func (c *Config) WebhookConfigured() bool {
	return c.StripeWebhookSecret != ""
}
