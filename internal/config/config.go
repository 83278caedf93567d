package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Email queue modes supported by the notification outbox.
const (
	EmailQueueInline = "inline"
	EmailQueueMemory = "memory"
	EmailQueueRedis  = "redis"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName           string
	AppEnv            string
	AppPort           string
	AppBaseURL        string
	DatabaseURL       string
	RedisURL          string
	NATSURL           string
	ChannelBase       string
	JWTSecret         string
	StrictTransitions bool
	StreamKeepAlive   time.Duration

	SMTPHost          string
	SMTPPort          int
	SMTPUser          string
	SMTPPassword      string
	SMTPFrom          string
	SMTPSkipTLSVerify bool
	SMTPTimeout       time.Duration

	EmailQueue       string
	EmailWorkers     int
	EmailBufferSize  int
	EmailSendTimeout time.Duration

	NotificationRetention time.Duration
	HousekeepingInterval  time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// SMTPEnabled reports whether enough SMTP settings are present to send real mail.
func (c Config) SMTPEnabled() bool {
	return c.SMTPHost != "" && c.SMTPFrom != ""
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("SGPTI")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "SGPTI API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.base_url", "http://localhost:5173")
	v.SetDefault("channel.base", "sgpti")
	v.SetDefault("workflow.strict_transitions", true)
	v.SetDefault("stream.keepalive", "30s")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.timeout", "10s")
	v.SetDefault("email.queue", EmailQueueMemory)
	v.SetDefault("email.workers", 2)
	v.SetDefault("email.buffer", 256)
	v.SetDefault("email.send_timeout", "15s")
	v.SetDefault("notifications.retention", "2160h")
	v.SetDefault("housekeeping.interval", "24h")

	durations := map[string]time.Duration{}
	for _, key := range []string{"stream.keepalive", "smtp.timeout", "email.send_timeout", "notifications.retention", "housekeeping.interval"} {
		raw := strings.TrimSpace(v.GetString(key))
		if raw == "" || raw == "0" {
			durations[key] = 0
			continue
		}
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid duration for %s: %w", key, err)
		}
		durations[key] = parsed
	}

	cfg := Config{
		AppName:               v.GetString("app.name"),
		AppEnv:                v.GetString("app.env"),
		AppPort:               v.GetString("app.port"),
		AppBaseURL:            strings.TrimRight(v.GetString("app.base_url"), "/"),
		DatabaseURL:           v.GetString("database.url"),
		RedisURL:              v.GetString("redis.url"),
		NATSURL:               v.GetString("nats.url"),
		ChannelBase:           v.GetString("channel.base"),
		JWTSecret:             v.GetString("jwt.secret"),
		StrictTransitions:     v.GetBool("workflow.strict_transitions"),
		StreamKeepAlive:       durations["stream.keepalive"],
		SMTPHost:              v.GetString("smtp.host"),
		SMTPPort:              v.GetInt("smtp.port"),
		SMTPUser:              v.GetString("smtp.user"),
		SMTPPassword:          v.GetString("smtp.pass"),
		SMTPFrom:              v.GetString("smtp.from"),
		SMTPSkipTLSVerify:     v.GetBool("smtp.skip_tls_verify"),
		SMTPTimeout:           durations["smtp.timeout"],
		EmailQueue:            strings.ToLower(strings.TrimSpace(v.GetString("email.queue"))),
		EmailWorkers:          v.GetInt("email.workers"),
		EmailBufferSize:       v.GetInt("email.buffer"),
		EmailSendTimeout:      durations["email.send_timeout"],
		NotificationRetention: durations["notifications.retention"],
		HousekeepingInterval:  durations["housekeeping.interval"],
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	switch cfg.EmailQueue {
	case EmailQueueInline, EmailQueueMemory:
	case EmailQueueRedis:
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("email queue %q requires redis url", cfg.EmailQueue)
		}
	default:
		return Config{}, fmt.Errorf("unsupported email queue %q", cfg.EmailQueue)
	}

	if cfg.SMTPPort <= 0 {
		cfg.SMTPPort = 587
	}

	if cfg.EmailWorkers <= 0 {
		cfg.EmailWorkers = 2
	}

	if cfg.EmailBufferSize <= 0 {
		cfg.EmailBufferSize = 256
	}

	return cfg, nil
}
