package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Gateway GatewayConfig
	Relay   RelayConfig
	Twilio  TwilioConfig
	Batch   BatchConfig
	Trigger TriggerConfig
	Redis   RedisConfig
}

type ServerConfig struct {
	Address string
}

// StorageConfig selects the persistence engine: postgres when POSTGRES_URL
// is set, JSON files under DataDir otherwise.
type StorageConfig struct {
	DataDir     string
	PostgresURL string
}

// GatewayConfig is the primary SMS gateway. An empty URL makes the whole
// gateway path unreachable and sends go straight to the relay.
type GatewayConfig struct {
	URL   string
	Token string
}

type RelayConfig struct {
	URL   string
	Token string
}

// TwilioConfig backs the direct-send fallback; all three fields must be set
// for it to be used.
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	From       string
}

type BatchConfig struct {
	DailyCapacity int
	ContentMax    int
}

type TriggerConfig struct {
	SendHour int
}

type RedisConfig struct {
	Enabled  bool
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

func LoadAll() (*Config, error) {
	dailyCapacity, err := getEnvInt("DAILY_CAPACITY", 90)
	if err != nil {
		return nil, err
	}
	contentMax, err := getEnvInt("CONTENT_MAX", 160)
	if err != nil {
		return nil, err
	}
	sendHour, err := getEnvInt("SEND_HOUR", 7)
	if err != nil {
		return nil, err
	}

	gatewayToken := os.Getenv("GATEWAY_TOKEN")

	redisCfg, err := loadRedisConfig()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Address: getEnv("SERVER_ADDRESS", ":8080"),
		},
		Storage: StorageConfig{
			DataDir:     getEnv("DATA_DIR", "data"),
			PostgresURL: os.Getenv("POSTGRES_URL"),
		},
		Gateway: GatewayConfig{
			URL:   os.Getenv("GATEWAY_URL"),
			Token: gatewayToken,
		},
		Relay: RelayConfig{
			URL: getEnv("RELAY_URL", "https://api.smstext.app/push"),
			// Single-token deployments reuse the gateway token for the relay.
			Token: getEnv("RELAY_TOKEN", gatewayToken),
		},
		Twilio: TwilioConfig{
			AccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
			AuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
			From:       os.Getenv("TWILIO_FROM"),
		},
		Batch: BatchConfig{
			DailyCapacity: dailyCapacity,
			ContentMax:    contentMax,
		},
		Trigger: TriggerConfig{
			SendHour: sendHour,
		},
		Redis: redisCfg,
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadRedisConfig() (RedisConfig, error) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return RedisConfig{Enabled: false}, nil
	}

	db, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return RedisConfig{}, err
	}
	ttl, err := getEnvInt("REDIS_TTL_SECONDS", 86400)
	if err != nil {
		return RedisConfig{}, err
	}

	return RedisConfig{
		Enabled:  true,
		Address:  addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
		TTL:      time.Duration(ttl) * time.Second,
	}, nil
}

func validate(cfg *Config) error {
	if cfg.Batch.DailyCapacity <= 0 {
		return fmt.Errorf("DAILY_CAPACITY must be > 0, got %d", cfg.Batch.DailyCapacity)
	}
	// The message cut keeps 3 chars for the ellipsis.
	if cfg.Batch.ContentMax <= 3 {
		return fmt.Errorf("CONTENT_MAX must be > 3, got %d", cfg.Batch.ContentMax)
	}
	if cfg.Trigger.SendHour < 0 || cfg.Trigger.SendHour > 23 {
		return fmt.Errorf("SEND_HOUR must be in 0..23, got %d", cfg.Trigger.SendHour)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid int for env %s: %q", key, v)
	}
	return i, nil
}
