// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	configDir         = pflag.String("config-dir", ".", "Directory containing config.toml")
	validLogLevels    = []string{"debug", "info", "warn", "error", "fatal"}
	validDBDrivers    = []string{"sqlite", "postgres"}
	validOTTBackends  = []string{"db", "redis"}
	jwtSecretKeys     = []string{"jwt.access_secret", "jwt.refresh_secret", "jwt.email_secret", "jwt.reset_secret"}
	ErrMissingSecrets = errors.New("one or more jwt secrets are missing")
)

func genSecret() string {
	b := make([]byte, 64)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Setup prepares everything config-related so that the app can
// start working. Function will return an error if something
// is critically wrong and the application can't run because of
// that.
func Setup() error {
	pflag.Parse()
	v.BindPFlags(pflag.CommandLine)

	err := Load(*configDir)
	if errors.Is(err, ErrMissingSecrets) {
		fmt.Println("WARNING: You haven't set all JWT secrets. Each of " + fmt.Sprint(jwtSecretKeys) +
			" needs its own value. Here is a random one you can use:\n\n" + genSecret() +
			"\n\nPaste it into your config.toml file or set it as an environment variable.")
		os.Exit(0)
	}

	return err
}

// Load reads config.toml from dir, applies env overrides and defaults, and
// validates the result.
func Load(dir string) error {
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(dir)

	v.AutomaticEnv()

	//
	// ENVS
	//
	v.BindEnv("app.log_level", "APP_LOG_LEVEL")
	v.BindEnv("app.name", "APP_NAME")

	v.BindEnv("host.port", "HOST_PORT")
	v.BindEnv("host.domain", "HOST_DOMAIN")
	v.BindEnv("host.cors", "HOST_CORS")

	v.BindEnv("host.ssl.enabled", "HOST_SSL_ENABLED")
	v.BindEnv("host.ssl.certificate_path", "HOST_SSL_CERTIFICATE_PATH")
	v.BindEnv("host.ssl.certificate_key_path", "HOST_SSL_CERTIFICATE_KEY_PATH")

	v.BindEnv("db.driver", "DB_DRIVER")
	v.BindEnv("db.dsn", "DB_DSN")

	v.BindEnv("jwt.access_secret", "JWT_ACCESS_SECRET")
	v.BindEnv("jwt.refresh_secret", "JWT_REFRESH_SECRET")
	v.BindEnv("jwt.email_secret", "JWT_EMAIL_SECRET")
	v.BindEnv("jwt.reset_secret", "JWT_RESET_SECRET")
	v.BindEnv("jwt.access_ttl", "JWT_ACCESS_TTL")
	v.BindEnv("jwt.refresh_ttl", "JWT_REFRESH_TTL")
	v.BindEnv("jwt.email_ttl", "JWT_EMAIL_TTL")
	v.BindEnv("jwt.reset_ttl", "JWT_RESET_TTL")

	v.BindEnv("auth.max_failed_logins", "AUTH_MAX_FAILED_LOGINS")
	v.BindEnv("auth.lockout_window", "AUTH_LOCKOUT_WINDOW")
	v.BindEnv("auth.request_timeout", "AUTH_REQUEST_TIMEOUT")

	v.BindEnv("onetime.backend", "ONETIME_BACKEND")
	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.db", "REDIS_DB")

	v.BindEnv("mail.host", "MAIL_HOST")
	v.BindEnv("mail.port", "MAIL_PORT")
	v.BindEnv("mail.sender_address", "MAIL_SENDER_ADDRESS")
	v.BindEnv("mail.password", "MAIL_PASSWORD")
	v.BindEnv("mail.site_url", "MAIL_SITE_URL")

	v.BindEnv("twilio.account_sid", "TWILIO_ACCOUNT_SID")
	v.BindEnv("twilio.auth_token", "TWILIO_AUTH_TOKEN")
	v.BindEnv("twilio.phone_number", "TWILIO_PHONE_NUMBER")
	v.BindEnv("twilio.base_url", "TWILIO_BASE_URL")

	v.BindEnv("cloudflare.account_id", "CLOUDFLARE_ACCOUNT_ID")
	v.BindEnv("cloudflare.access_key_id", "CLOUDFLARE_ACCESS_KEY_ID")
	v.BindEnv("cloudflare.secret_access_key", "CLOUDFLARE_SECRET_ACCESS_KEY")
	v.BindEnv("cloudflare.bucket", "CLOUDFLARE_BUCKET")
	v.BindEnv("cloudflare.public_url", "CLOUDFLARE_PUBLIC_URL")

	v.BindEnv("cloudflare.turnstile.enabled", "CLOUDFLARE_TURNSTILE_ENABLED")
	v.BindEnv("cloudflare.turnstile.secret_token", "CLOUDFLARE_TURNSTILE_SECRET_TOKEN")

	v.BindEnv("security.rate_limit", "SECURITY_RATE_LIMIT")
	v.BindEnv("cron.cleanup_schedule", "CRON_CLEANUP_SCHEDULE")

	//
	// Defaults
	//
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.name", "Platform")

	v.SetDefault("host.port", 8080)
	v.SetDefault("host.domain", "localhost")
	v.SetDefault("host.cors", []string{"http://localhost:3000"})
	v.SetDefault("host.ssl.enabled", false)

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "database.db")

	v.SetDefault("jwt.access_ttl", "15m")
	v.SetDefault("jwt.refresh_ttl", "336h")
	v.SetDefault("jwt.email_ttl", "1h")
	v.SetDefault("jwt.reset_ttl", "30m")

	v.SetDefault("auth.max_failed_logins", 5)
	v.SetDefault("auth.lockout_window", "5m")
	v.SetDefault("auth.request_timeout", "15s")

	v.SetDefault("onetime.backend", "db")
	v.SetDefault("redis.db", 0)

	v.SetDefault("mail.port", 587)

	v.SetDefault("twilio.base_url", "https://api.twilio.com")

	v.SetDefault("cloudflare.turnstile.enabled", false)

	v.SetDefault("security.rate_limit", 10)
	v.SetDefault("cron.cleanup_schedule", "@hourly")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(v.ConfigFileNotFoundError); ok {
			return errors.New("config.toml file is missing")
		}

		return fmt.Errorf("failed to read config file, %w", err)
	}

	return validate()
}

func validate() error {
	if !slices.Contains(validLogLevels, v.GetString("app.log_level")) {
		return errors.New("invalid log level provided")
	}

	if v.GetInt("host.port") <= 0 {
		return errors.New("invalid port provided")
	}

	if v.GetBool("host.ssl.enabled") {
		if v.GetString("host.ssl.certificate_path") == "" {
			return errors.New("no ssl certificate path provided")
		}

		if v.GetString("host.ssl.certificate_key_path") == "" {
			return errors.New("no ssl certificate key path provided")
		}
	}

	if !slices.Contains(validDBDrivers, v.GetString("db.driver")) {
		return errors.New("invalid database driver provided")
	}

	if v.GetString("db.dsn") == "" {
		return errors.New("db.dsn can't be empty")
	}

	for _, k := range jwtSecretKeys {
		if v.GetString(k) == "" {
			return ErrMissingSecrets
		}
	}

	for _, k := range []string{"jwt.access_ttl", "jwt.refresh_ttl", "jwt.email_ttl", "jwt.reset_ttl", "auth.lockout_window", "auth.request_timeout"} {
		if v.GetDuration(k) <= 0 {
			return fmt.Errorf("%s must be a positive duration", k)
		}
	}

	if v.GetInt("auth.max_failed_logins") <= 0 {
		return errors.New("auth.max_failed_logins must be bigger than 0")
	}

	switch v.GetString("onetime.backend") {
	case "redis":
		if v.GetString("redis.addr") == "" {
			return errors.New("redis.addr is required when onetime.backend is redis")
		}
	case "db":
	default:
		return fmt.Errorf("invalid onetime.backend provided, expected one of %v", validOTTBackends)
	}

	if v.GetString("mail.host") == "" || v.GetString("mail.sender_address") == "" {
		zap.L().Warn("mail.host or mail.sender_address not set, verification and reset emails will fail")
	}

	if v.GetString("twilio.account_sid") == "" {
		zap.L().Warn("twilio.account_sid not set, SMS two factor logins will fail")
	}

	if v.GetString("cloudflare.bucket") != "" {
		if v.GetString("cloudflare.account_id") == "" {
			return errors.New("account id can't be empty")
		}
		if v.GetString("cloudflare.access_key_id") == "" {
			return errors.New("account access id can't be empty")
		}
		if v.GetString("cloudflare.secret_access_key") == "" {
			return errors.New("secret access key can't be empty")
		}
		if v.GetString("cloudflare.public_url") == "" {
			return errors.New("public url can't be empty")
		}
	}

	if v.GetInt("security.rate_limit") <= 0 {
		return errors.New("security.rate_limit must be bigger than 0")
	}

	if !v.GetBool("cloudflare.turnstile.enabled") {
		fmt.Println("[WARNING]: Cloudflare's turnstile is disabled. Register and login won't be guarded against bots")
	} else {
		if v.GetString("cloudflare.turnstile.secret_token") == "" {
			return errors.New("turnstile secret token is missing")
		}
	}

	return nil
}
