package config

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config is built once in main and passed by reference into every
// constructor. Handlers never read the environment directly.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Astria   AstriaConfig
	Paddle   PaddleConfig
	App      AppConfig
	Resend   ResendConfig
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret string
}

type AstriaConfig struct {
	APIKey        string
	BaseURL       string
	GalleryPackID int
	TestMode      bool
}

type PaddleConfig struct {
	APIKey          string
	BaseURL         string
	CheckoutBaseURL string
}

type AppConfig struct {
	WebhookSecret string
	SiteURL       string
}

type ResendConfig struct {
	APIKey string
	From   string
}

// Load reads .env plus the environment into a Config. Call once at startup.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using environment: %v", err)
	}

	viper.BindEnv("server.port", "PORT")

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("auth.jwt_secret", "JWT_SECRET_KEY")

	viper.BindEnv("astria.api_key", "ASTRIA_API_KEY")
	viper.BindEnv("astria.base_url", "ASTRIA_BASE_URL")
	viper.BindEnv("astria.gallery_pack_id", "ASTRIA_GALLERY_PACK_ID")
	viper.BindEnv("astria.test_mode", "ASTRIA_TEST_MODE")

	viper.BindEnv("paddle.api_key", "PADDLE_API_KEY")
	viper.BindEnv("paddle.base_url", "PADDLE_BASE_URL")
	viper.BindEnv("paddle.checkout_base_url", "PADDLE_CHECKOUT_BASE_URL")

	viper.BindEnv("app.webhook_secret", "APP_WEBHOOK_SECRET")
	viper.BindEnv("app.site_url", "APP_SITE_URL")

	viper.BindEnv("resend.api_key", "RESEND_API_KEY")
	viper.BindEnv("resend.from", "RESEND_FROM")

	viper.SetDefault("server.port", "8080")

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", "5432")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "password")
	viper.SetDefault("database.name", "headshotly")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", time.Minute*5)

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", "6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("astria.base_url", "https://api.astria.ai")
	viper.SetDefault("astria.gallery_pack_id", 260)
	viper.SetDefault("paddle.base_url", "https://sandbox-api.paddle.com")
	viper.SetDefault("paddle.checkout_base_url", "https://pay.paddle.com/checkout")
	viper.SetDefault("resend.from", "noreply@headshotly.app")

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetString("server.port"),
		},
		Database: DatabaseConfig{
			Host:            viper.GetString("database.host"),
			Port:            viper.GetString("database.port"),
			User:            viper.GetString("database.user"),
			Password:        viper.GetString("database.password"),
			Name:            viper.GetString("database.name"),
			SSLMode:         viper.GetString("database.ssl_mode"),
			MaxOpenConns:    viper.GetInt("database.max_open_conns"),
			MaxIdleConns:    viper.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: viper.GetDuration("database.conn_max_lifetime"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("redis.host"),
			Port:     viper.GetString("redis.port"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		Auth: AuthConfig{
			JWTSecret: viper.GetString("auth.jwt_secret"),
		},
		Astria: AstriaConfig{
			APIKey:        viper.GetString("astria.api_key"),
			BaseURL:       viper.GetString("astria.base_url"),
			GalleryPackID: viper.GetInt("astria.gallery_pack_id"),
			TestMode:      viper.GetBool("astria.test_mode"),
		},
		Paddle: PaddleConfig{
			APIKey:          viper.GetString("paddle.api_key"),
			BaseURL:         viper.GetString("paddle.base_url"),
			CheckoutBaseURL: viper.GetString("paddle.checkout_base_url"),
		},
		App: AppConfig{
			WebhookSecret: viper.GetString("app.webhook_secret"),
			SiteURL:       viper.GetString("app.site_url"),
		},
		Resend: ResendConfig{
			APIKey: viper.GetString("resend.api_key"),
			From:   viper.GetString("resend.from"),
		},
	}

	if cfg.App.WebhookSecret == "" {
		return nil, fmt.Errorf("missing APP_WEBHOOK_SECRET")
	}
	if cfg.Astria.APIKey == "" {
		return nil, fmt.Errorf("missing ASTRIA_API_KEY")
	}

	return cfg, nil
}
