package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"nfc-wallet-go/internal/common"
	"nfc-wallet-go/internal/config"
	"nfc-wallet-go/internal/models"
	"nfc-wallet-go/internal/token"

	"go.uber.org/zap"
)

// tokengen emulates the payer device: it produces a signed, encrypted,
// single-use payment token for a wallet. Intended for demos and integration
// testing against a running server.
func main() {
	userId := flag.String("user", "", "Payer user id")
	walletId := flag.String("wallet", "", "Payer wallet id")
	amount := flag.String("amount", "", "Amount as a decimal string, e.g. 12.50")
	deviceId := flag.String("device", "tokengen-cli", "Device id embedded in the token")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	if *userId == "" || *walletId == "" || *amount == "" {
		zap.L().Fatal("Flags -user, -wallet and -amount are required")
	}

	minor, err := models.ParseAmount(*amount)
	if err != nil {
		zap.L().Fatal("Invalid amount", zap.Error(err))
	}

	codec := token.NewCodec(cfg.Token.EncryptionSecret, cfg.Environment)
	signer := token.NewSigner(cfg.Token.SigningSecret)
	generator := token.NewGenerator(codec, signer)

	tokenString, err := generator.Generate(*userId, *walletId, minor, *deviceId, time.Now())
	if err != nil {
		zap.L().Fatal("Failed to generate token", zap.Error(err))
	}

	fmt.Println(tokenString)
}
