package common

import (
	"context"
	"log"
	"strings"

	"nfc-wallet-go/internal/database"
	"nfc-wallet-go/internal/models"
	"nfc-wallet-go/internal/session"
	"nfc-wallet-go/internal/settlement"
	"nfc-wallet-go/internal/token"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Environment variables can also be set via shell export, docker, etc.
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

type Services struct {
	DbService *database.Service
	Codec     *token.Codec
	Signer    *token.Signer
	Sessions  *session.Registry
	Engine    *settlement.Engine
}

func (s *Services) Close() {
	s.DbService.Close()
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// Syncing stdout/stderr is not supported on every platform; those errors
// carry no signal at shutdown.
func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "invalid argument") ||
		strings.Contains(msg, "inappropriate ioctl for device") ||
		strings.Contains(msg, "bad file descriptor")
}

func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	codec := token.NewCodec(cfg.Token.EncryptionSecret, cfg.Environment)
	signer := token.NewSigner(cfg.Token.SigningSecret)
	sessions := session.NewRegistry(cfg.Session.TTL)

	engine := settlement.NewEngine(settlement.Config{
		Store:          dbService,
		Codec:          codec,
		Signer:         signer,
		Sessions:       sessions,
		ValidityWindow: cfg.Token.ValidityWindow,
		NonceRetention: cfg.Token.NonceRetention,
	})

	return &Services{
		DbService: dbService,
		Codec:     codec,
		Signer:    signer,
		Sessions:  sessions,
		Engine:    engine,
	}, nil
}

// InitializeDatabaseOnly initializes just the database service.
// Useful for read-only operations like querying balances.
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	return database.NewService(ctx, cfg.Database)
}
