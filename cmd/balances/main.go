package main

import (
	"context"
	"fmt"
	"log"

	"nfc-wallet-go/internal/common"
	"nfc-wallet-go/internal/config"
	"nfc-wallet-go/internal/models"

	"go.uber.org/zap"
)

// balances is an operator tool listing every wallet with its balance.
func main() {
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

	wallets, err := dbService.ListWallets(ctx)
	if err != nil {
		zap.L().Fatal("Failed to list wallets", zap.Error(err))
	}

	common.PrintHeader("Wallet balances", common.DefaultWidth)
	if len(wallets) == 0 {
		fmt.Println("No wallets found. Run cmd/setup with a seed file first.")
	}
	for i, wallet := range wallets {
		isLast := i == len(wallets)-1
		fmt.Printf("%s%s\n", common.BoxPrefix(isLast), wallet.Id)
		fmt.Printf("   owner:   %s\n", wallet.OwnerId)
		fmt.Printf("   balance: %s %s (%s)\n", models.FormatAmount(wallet.Balance), wallet.Currency, wallet.Status)
	}
	common.PrintFooter(fmt.Sprintf("%d wallet(s)", len(wallets)), common.DefaultWidth)
}
