package models

import "time"

// Config represents the application configuration
type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	Token       TokenConfig
	Session     SessionConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// TokenConfig holds the secrets and windows of the payment token protocol.
// NonceRetention must exceed ValidityWindow so a token can never become
// replayable after its nonce record is pruned but before the token itself
// would be rejected as stale.
type TokenConfig struct {
	EncryptionSecret string
	SigningSecret    string
	ValidityWindow   time.Duration
	NonceRetention   time.Duration
	PruneInterval    time.Duration
}

// SessionConfig holds payment session settings
type SessionConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
}
