package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`
	AllowedOrigins    string `mapstructure:"ALLOWED_ORIGINS"` // comma separated

	// Browser session cookie.
	SessionCookieName string `mapstructure:"SESSION_COOKIE_NAME"`
	SessionSecret     string `mapstructure:"SESSION_SECRET"`
	SessionStore      string `mapstructure:"SESSION_STORE"` // "redis" or "memory"

	// Redis configuration.
	RedisAddr      string `mapstructure:"REDIS_ADDR"`
	RedisPassword  string `mapstructure:"REDIS_PASSWORD"`
	RedisSessionDB int    `mapstructure:"REDIS_SESSION_DB"`

	// REST backend and real-time push endpoint.
	APIBaseURL       string        `mapstructure:"API_BASE_URL"`
	APITimeout       time.Duration `mapstructure:"API_TIMEOUT"`
	ProgressWSURL    string        `mapstructure:"PROGRESS_WS_URL"`
	ProgressMaxRetry int           `mapstructure:"PROGRESS_MAX_RETRY"`

	// Identity provider (Cognito user pool app client).
	CognitoRegion       string `mapstructure:"COGNITO_REGION"`
	CognitoClientID     string `mapstructure:"COGNITO_CLIENT_ID"`
	CognitoClientSecret string `mapstructure:"COGNITO_CLIENT_SECRET"`

	// Paging.
	PageSize          int           `mapstructure:"PAGE_SIZE"`
	LoaderMaxSessions int           `mapstructure:"LOADER_MAX_SESSIONS"`
	LoaderIdleTTL     time.Duration `mapstructure:"LOADER_IDLE_TTL"`

	// How often running progress widgets are checked against the session store.
	ProgressReconcile time.Duration `mapstructure:"PROGRESS_RECONCILE_INTERVAL"`
}

var AppConfig Config

func LoadConfig() {
	// A local .env is optional; real environment variables still win.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on process environment")
	}

	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	setDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MAX_REQUESTS_PER_MIN", 200)
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("SESSION_COOKIE_NAME", "furk_session")
	v.SetDefault("SESSION_SECRET", "")
	v.SetDefault("SESSION_STORE", "redis")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_SESSION_DB", 1)
	v.SetDefault("API_BASE_URL", "http://localhost:4000")
	v.SetDefault("API_TIMEOUT", 30*time.Second)
	v.SetDefault("PROGRESS_WS_URL", "ws://localhost:4001/progress")
	v.SetDefault("PROGRESS_MAX_RETRY", 5)
	v.SetDefault("COGNITO_REGION", "ap-southeast-1")
	v.SetDefault("COGNITO_CLIENT_ID", "")
	v.SetDefault("COGNITO_CLIENT_SECRET", "")
	v.SetDefault("PAGE_SIZE", 10)
	v.SetDefault("LOADER_MAX_SESSIONS", 10000)
	v.SetDefault("LOADER_IDLE_TTL", 30*time.Minute)
	v.SetDefault("PROGRESS_RECONCILE_INTERVAL", time.Minute)
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}

// Origins splits ALLOWED_ORIGINS into a list for CORS.
func Origins() []string {
	var out []string
	for _, o := range strings.Split(AppConfig.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
