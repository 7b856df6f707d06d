package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"nfc-wallet-go/internal/common"
	"nfc-wallet-go/internal/config"
	"nfc-wallet-go/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// seedFile describes demo users and their wallets.
type seedFile struct {
	Users []seedUser `yaml:"users"`
}

type seedUser struct {
	Id     string `yaml:"id"`
	Name   string `yaml:"name"`
	Email  string `yaml:"email"`
	Wallet struct {
		Balance  string `yaml:"balance"`
		Currency string `yaml:"currency"`
	} `yaml:"wallet"`
}

func main() {
	seedPath := flag.String("seed", "", "Optional path to a seed.yaml with demo users and wallets")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx := context.Background()

	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	zap.L().Info("Schema initialized", zap.String("database", cfg.Database.Path))

	if *seedPath == "" {
		fmt.Println("Database ready. Pass -seed seed.yaml to create demo users and wallets.")
		return
	}

	raw, err := os.ReadFile(*seedPath)
	if err != nil {
		zap.L().Fatal("Failed to read seed file", zap.String("path", *seedPath), zap.Error(err))
	}

	var seed seedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		zap.L().Fatal("Failed to parse seed file", zap.String("path", *seedPath), zap.Error(err))
	}

	common.PrintHeader("Seeding users and wallets", common.DefaultWidth)
	for i, user := range seed.Users {
		userId := user.Id
		if userId == "" {
			userId = uuid.New().String()
		}

		if err := dbService.CreateUser(ctx, userId, user.Name, user.Email); err != nil {
			zap.L().Error("Failed to create user", zap.String("name", user.Name), zap.Error(err))
			continue
		}

		currency := user.Wallet.Currency
		if currency == "" {
			currency = "USD"
		}
		balance := int64(0)
		if user.Wallet.Balance != "" {
			balance, err = models.ParseAmount(user.Wallet.Balance)
			if err != nil {
				zap.L().Error("Invalid seed balance", zap.String("name", user.Name), zap.Error(err))
				continue
			}
		}

		wallet, err := dbService.CreateWallet(ctx, userId, balance, currency)
		if err != nil {
			zap.L().Error("Failed to create wallet", zap.String("name", user.Name), zap.Error(err))
			continue
		}

		isLast := i == len(seed.Users)-1
		fmt.Printf("%s%s <%s>\n", common.BoxPrefix(isLast), user.Name, user.Email)
		fmt.Printf("   user:   %s\n", userId)
		fmt.Printf("   wallet: %s  %s %s\n", wallet.Id, models.FormatAmount(wallet.Balance), wallet.Currency)
	}
	common.PrintFooter("Seeding complete", common.DefaultWidth)
}
