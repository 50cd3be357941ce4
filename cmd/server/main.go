package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/marketplace-service/internal/adapter/cache"
	"github.com/example/marketplace-service/internal/adapter/federation"
	"github.com/example/marketplace-service/internal/adapter/fedstore"
	"github.com/example/marketplace-service/internal/adapter/httpapi"
	"github.com/example/marketplace-service/internal/adapter/natsstan"
	"github.com/example/marketplace-service/internal/adapter/repo"
	"github.com/example/marketplace-service/internal/apub"
	"github.com/example/marketplace-service/internal/config"
	"github.com/example/marketplace-service/internal/domain"
	"github.com/example/marketplace-service/internal/fees"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

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

	calc := fees.Calculator{Rate: cfg.FeeRate, PayoutAddress: cfg.PayoutAddress}
	for _, msg := range calc.ValidateConfig() {
		logger.Warn("fee configuration", "problem", msg)
	}

	// выбранный адаптер конструируется один раз и передаётся потребителям явно
	var (
		store domain.Storage
		feds  fedstore.Store
	)
	switch cfg.StorageMode {
	case config.ModeActivityPub:
		if err := fedstore.EnsureSchema(ctx, pool); err != nil {
			logger.Error("federation schema", "err", err)
			os.Exit(1)
		}
		feds = fedstore.NewCached(fedstore.NewPostgres(pool), cache.NewMemory[fedstore.Record](), cfg.ObjectCacheTTL)

		var pub federation.Publisher
		if p, err := natsstan.Connect(cfg.StanClusterID, cfg.StanClientID, cfg.StanURL, cfg.StanSubject); err != nil {
			// доставка best-effort: объекты пишутся и без неё
			logger.Warn("activity delivery disabled", "err", err)
		} else {
			defer p.Close()
			pub = p
			go subscribeInbox(ctx, cfg, feds, logger)
		}
		store = federation.New(feds, pub, cfg.FederationBaseURL, logger)
	case config.ModeDatabase:
		store = repo.NewPostgres(pool, logger)
	}

	if err := store.Init(ctx); err != nil {
		logger.Error("storage init", "err", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: httpapi.NewServer(store, calc, feds, cfg.FederationBaseURL, logger).Router,
	}
	go func() {
		logger.Info("http listening", "addr", srv.Addr, "mode", cfg.StorageMode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	_ = srv.Shutdown(shutdownCtx)
}

// subscribeInbox складывает входящие федеративные активности в коллекцию
// активностей.
func subscribeInbox(ctx context.Context, cfg config.Config, feds fedstore.Store, logger *slog.Logger) {
	sub := &natsstan.Subscriber{
		ClusterID: cfg.StanClusterID,
		URL:       cfg.StanURL,
		Subject:   cfg.StanSubject + ".inbound",
		Durable:   "market-inbox",
		Log:       logger,
	}
	err := sub.Subscribe(ctx, func(ctx context.Context, raw []byte) error {
		var act apub.Activity
		if err := json.Unmarshal(raw, &act); err != nil {
			logger.Error("invalid inbound activity", "err", err)
			return nil // битое сообщение не переотправляем
		}
		if act.ID == "" {
			logger.Error("inbound activity without id")
			return nil
		}
		return feds.Put(ctx, apub.KindActivity, fedstore.Record{ID: act.ID, Type: act.Type, Data: raw})
	})
	if err != nil {
		logger.Warn("inbox subscription failed", "err", err)
	}
}
