package config

import (
	"log"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type HTTPConfig struct {
	Address string        `yaml:"address" env:"HTTP_SERVER_ADDRESS" env-default:"localhost:8080"`
	Timeout time.Duration `yaml:"timeout" env:"HTTP_SERVER_TIMEOUT" env-default:"5s"`
}

type StoreConfig struct {
	// Driver is one of postgres, sqlite or memory.
	Driver  string `yaml:"driver" env:"STORE_DRIVER" env-default:"sqlite"`
	Address string `yaml:"address" env:"STORE_ADDRESS" env-default:"file:memeverse.db"`
}

type CacheConfig struct {
	Enabled bool          `yaml:"enabled" env:"CACHE_ENABLED" env-default:"true"`
	MaxCost int64         `yaml:"max_cost" env:"CACHE_MAX_COST" env-default:"67108864"`
	TTL     time.Duration `yaml:"ttl" env:"CACHE_TTL" env-default:"10m"`
}

type OpenAIConfig struct {
	APIKey  string        `yaml:"api_key" env:"OPENAI_API_KEY"`
	BaseURL string        `yaml:"base_url" env:"OPENAI_BASE_URL"`
	Model   string        `yaml:"model" env:"OPENAI_MODEL" env-default:"gpt-4o-mini"`
	Timeout time.Duration `yaml:"timeout" env:"OPENAI_TIMEOUT" env-default:"10s"`
}

type Config struct {
	LogLevel   string     `yaml:"log_level" env:"LOG_LEVEL" env-default:"DEBUG"`
	HTTPConfig HTTPConfig `yaml:"http_server"`
	GRPCAddr   string     `yaml:"grpc_address" env:"GRPC_ADDRESS" env-default:"localhost:8081"`

	CatalogURL     string        `yaml:"catalog_url" env:"CATALOG_URL" env-default:"https://api.imgflip.com/get_memes"`
	CatalogTimeout time.Duration `yaml:"catalog_timeout" env:"CATALOG_TIMEOUT" env-default:"10s"`

	PageSize       int           `yaml:"page_size" env:"PAGE_SIZE" env-default:"12"`
	SessionTTL     time.Duration `yaml:"session_ttl" env:"SESSION_TTL" env-default:"30m"`
	SweepSchedule  string        `yaml:"sweep_schedule" env:"SWEEP_SCHEDULE" env-default:"@every 1m"`
	LeaderboardTTL time.Duration `yaml:"leaderboard_ttl" env:"LEADERBOARD_TTL" env-default:"1h"`

	Store StoreConfig `yaml:"store"`
	Cache CacheConfig `yaml:"cache"`

	// BrokerAddress empty runs without NATS.
	BrokerAddress string        `yaml:"broker_address" env:"BROKER_ADDRESS"`
	EventDebounce time.Duration `yaml:"event_debounce" env:"EVENT_DEBOUNCE" env-default:"10s"`

	AdminUser     string        `yaml:"admin_user" env:"ADMIN_USER" env-default:"admin"`
	AdminPassword string        `yaml:"admin_password" env:"ADMIN_PASSWORD" env-default:"password"`
	TokenTTL      time.Duration `yaml:"token_ttl" env:"TOKEN_TTL" env-default:"24h"`

	RequestConcurrency int `yaml:"request_concurrency" env:"REQUEST_CONCURRENCY" env-default:"64"`
	RequestRate        int `yaml:"request_rate" env:"REQUEST_RATE" env-default:"100"`

	OpenAI OpenAIConfig `yaml:"openai"`
}

func MustLoad(configPath string) Config {
	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config %s: %s", configPath, err)
	}
	return cfg
}
