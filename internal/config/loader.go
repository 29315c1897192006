package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const envPrefix = "FLASHARB_"

// Load reads the TOML file at path, layering it over Defaults and then
// applying FLASHARB_* environment overrides. A missing file is not an error
// when path is empty; a named file must exist.
func Load(path string) (Config, error) {
	// Best-effort: a .env file is optional in every environment.
	_ = godotenv.Load()

	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Mode, "MODE")
	setStr(&cfg.LogLevel, "LOG_LEVEL")

	setStr(&cfg.Postgres.DSN, "POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "POSTGRES_PASSWORD")
	setBool(&cfg.Postgres.RunMigrations, "POSTGRES_RUN_MIGRATIONS")

	setStr(&cfg.Redis.Addr, "REDIS_ADDR")
	setStr(&cfg.Redis.Password, "REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "REDIS_DB")
	setBool(&cfg.Redis.TLSEnabled, "REDIS_TLS")

	setStr(&cfg.S3.Endpoint, "S3_ENDPOINT")
	setStr(&cfg.S3.Region, "S3_REGION")
	setStr(&cfg.S3.Bucket, "S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "S3_SECRET_KEY")

	setBool(&cfg.Server.Enabled, "SERVER_ENABLED")
	setStr(&cfg.Server.Addr, "SERVER_ADDR")
	setStr(&cfg.Server.APIKey, "SERVER_API_KEY")

	setBool(&cfg.Feed.Enabled, "FEED_ENABLED")
	setStr(&cfg.Feed.WsURL, "FEED_WS_URL")
	setStr(&cfg.Feed.HMACSecret, "FEED_HMAC_SECRET")
	setInt(&cfg.Feed.Workers, "FEED_WORKERS")

	setBool(&cfg.Archive.Enabled, "ARCHIVE_ENABLED")

	setStr(&cfg.Notify.TelegramToken, "NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhook, "NOTIFY_DISCORD_WEBHOOK")
}

func setStr(dst *string, key string) {
	if v, ok := os.LookupEnv(envPrefix + key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(envPrefix + key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(envPrefix + key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
