// Команда seed наполняет хранилище примером данных через контракт Storage.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/example/marketplace-service/internal/adapter/cache"
	"github.com/example/marketplace-service/internal/adapter/federation"
	"github.com/example/marketplace-service/internal/adapter/fedstore"
	"github.com/example/marketplace-service/internal/adapter/repo"
	"github.com/example/marketplace-service/internal/config"
	"github.com/example/marketplace-service/internal/domain"
	"github.com/example/marketplace-service/internal/usecase"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("config", "err", err)
		os.Exit(1)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	var store domain.Storage
	if cfg.StorageMode == config.ModeActivityPub {
		if err := fedstore.EnsureSchema(ctx, pool); err != nil {
			logger.Error("federation schema", "err", err)
			os.Exit(1)
		}
		feds := fedstore.NewCached(fedstore.NewPostgres(pool), cache.NewMemory[fedstore.Record](), cfg.ObjectCacheTTL)
		store = federation.New(feds, nil, cfg.FederationBaseURL, logger)
	} else {
		store = repo.NewPostgres(pool, logger)
	}
	if err := store.Init(ctx); err != nil {
		logger.Error("storage init", "err", err)
		os.Exit(1)
	}

	register := usecase.RegisterUser{Store: store}
	dev, err := register.Execute(ctx, usecase.RegisterInput{
		Email:         "dev@example.org",
		Username:      "sampledev",
		Password:      "change-me",
		Role:          domain.RoleDeveloper,
		MoneroAddress: "44sample_dev_address",
	})
	if err != nil {
		logger.Error("seed developer", "err", err)
		os.Exit(1)
	}

	samples := []domain.NewProduct{
		{
			Title:       "Voidrunner",
			Description: "Fast-paced roguelike in a collapsing star system.",
			ProductURL:  "https://downloads.example.org/voidrunner",
			Price:       0.05,
			Category:    "action",
			Tags:        []string{"roguelike", "sci-fi"},
			Type:        domain.ProductGame,
			DeveloperID: dev.ID,
		},
		{
			Title:       "Ledgerly",
			Description: "Minimal personal bookkeeping app.",
			ProductURL:  "https://downloads.example.org/ledgerly",
			Price:       0,
			Category:    "productivity",
			Tags:        []string{"finance"},
			Type:        domain.ProductApp,
			DeveloperID: dev.ID,
		},
	}
	for _, np := range samples {
		p, err := store.CreateProduct(ctx, np)
		if err != nil {
			logger.Error("seed product", "title", np.Title, "err", err)
			os.Exit(1)
		}
		logger.Info("seeded product", "id", p.ID, "title", p.Title)
	}

	logger.Info("seed complete", "developer", dev.ID, "mode", cfg.StorageMode)
}
