// Package main seeds the tracked assets and the trader leaderboard.
// Safe to run repeatedly: everything is upserted.
package main

import (
	"context"
	"log"
	"time"

	"github.com/copiqat-backend/internal/config"
	"github.com/copiqat-backend/internal/models"
	"github.com/copiqat-backend/internal/storage"
	"github.com/copiqat-backend/internal/types"
	"github.com/shopspring/decimal"
)

var assets = []models.Asset{
	{Symbol: "BTC/USD", Name: "Bitcoin", Class: types.ClassCrypto},
	{Symbol: "ETH/USD", Name: "Ethereum", Class: types.ClassCrypto},
	{Symbol: "SOL/USD", Name: "Solana", Class: types.ClassCrypto},
	{Symbol: "XRP/USD", Name: "Ripple", Class: types.ClassCrypto},
	{Symbol: "EUR/USD", Name: "Euro / US Dollar", Class: types.ClassForex},
	{Symbol: "GBP/USD", Name: "British Pound / US Dollar", Class: types.ClassForex},
	{Symbol: "USD/JPY", Name: "US Dollar / Japanese Yen", Class: types.ClassForex},
	{Symbol: "AAPL", Name: "Apple Inc.", Class: types.ClassStock},
	{Symbol: "TSLA", Name: "Tesla Inc.", Class: types.ClassStock},
	{Symbol: "AMZN", Name: "Amazon.com Inc.", Class: types.ClassStock},
}

var traders = []models.Trader{
	{Stars: 5, Name: "Marcus Webb", Returns: decimal.NewFromFloat(312.40), WinRate: decimal.NewFromFloat(91.2), Copiers: 4820},
	{Stars: 5, Name: "Elena Petrova", Returns: decimal.NewFromFloat(287.15), WinRate: decimal.NewFromFloat(88.7), Copiers: 3914},
	{Stars: 4, Name: "Kenji Nakamura", Returns: decimal.NewFromFloat(198.60), WinRate: decimal.NewFromFloat(84.3), Copiers: 2651},
	{Stars: 4, Name: "Sofia Almeida", Returns: decimal.NewFromFloat(176.02), WinRate: decimal.NewFromFloat(82.9), Copiers: 2207},
	{Stars: 4, Name: "David Osei", Returns: decimal.NewFromFloat(154.33), WinRate: decimal.NewFromFloat(80.1), Copiers: 1983},
	{Stars: 3, Name: "Priya Raghavan", Returns: decimal.NewFromFloat(121.87), WinRate: decimal.NewFromFloat(76.4), Copiers: 1450},
	{Stars: 3, Name: "Tomas Keller", Returns: decimal.NewFromFloat(98.55), WinRate: decimal.NewFromFloat(73.8), Copiers: 1102},
	{Stars: 2, Name: "Amara Diallo", Returns: decimal.NewFromFloat(64.20), WinRate: decimal.NewFromFloat(68.5), Copiers: 603},
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer postgres.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	assetRepo := storage.NewAssetRepository(postgres)
	for i := range assets {
		if err := assetRepo.UpsertMeta(ctx, &assets[i]); err != nil {
			log.Fatalf("Failed to seed asset %s: %v", assets[i].Symbol, err)
		}
	}
	log.Printf("Seeded %d assets", len(assets))

	traderRepo := storage.NewTraderRepository(postgres)
	for i := range traders {
		if err := traderRepo.Upsert(ctx, &traders[i]); err != nil {
			log.Fatalf("Failed to seed trader %s: %v", traders[i].Name, err)
		}
	}
	log.Printf("Seeded %d traders", len(traders))
}
