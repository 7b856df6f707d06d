package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"nfc-wallet-go/internal/models"
)

func Load() (*models.Config, error) {
	validityWindow, err := getEnvDuration("TOKEN_VALIDITY_WINDOW", 2*time.Minute)
	if err != nil {
		return nil, err
	}

	nonceRetention, err := getEnvDuration("NONCE_RETENTION", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	pruneInterval, err := getEnvDuration("NONCE_PRUNE_INTERVAL", 15*time.Minute)
	if err != nil {
		return nil, err
	}

	sessionTTL, err := getEnvDuration("SESSION_TTL", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	sweepInterval, err := getEnvDuration("SESSION_SWEEP_INTERVAL", time.Minute)
	if err != nil {
		return nil, err
	}

	readTimeout, err := getEnvDuration("HTTP_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	writeTimeout, err := getEnvDuration("HTTP_WRITE_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}

	shutdownTimeout, err := getEnvDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &models.Config{
		Environment: getEnvString("APP_ENV", "development"),
		Server: models.ServerConfig{
			Addr:            getEnvString("HTTP_ADDR", ":8080"),
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
		},
		Database: models.DatabaseConfig{
			Path:            getEnvString("DATABASE_PATH", "wallet.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: connMaxLifetime,
			ConnMaxIdleTime: connMaxIdleTime,
			PingTimeout:     pingTimeout,
		},
		Token: models.TokenConfig{
			EncryptionSecret: getEnvString("TOKEN_ENCRYPTION_SECRET", ""),
			SigningSecret:    getEnvString("TOKEN_SIGNING_SECRET", ""),
			ValidityWindow:   validityWindow,
			NonceRetention:   nonceRetention,
			PruneInterval:    pruneInterval,
		},
		Session: models.SessionConfig{
			TTL:           sessionTTL,
			SweepInterval: sweepInterval,
		},
	}

	if cfg.Token.SigningSecret == "" {
		return nil, fmt.Errorf("TOKEN_SIGNING_SECRET must be set")
	}
	if cfg.Token.NonceRetention <= cfg.Token.ValidityWindow {
		return nil, fmt.Errorf("NONCE_RETENTION (%v) must exceed TOKEN_VALIDITY_WINDOW (%v)",
			cfg.Token.NonceRetention, cfg.Token.ValidityWindow)
	}

	return cfg, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
