package app

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/vietanh2810/raffle-api/internal/api"
	"github.com/vietanh2810/raffle-api/internal/cache"
	"github.com/vietanh2810/raffle-api/internal/config"
	"github.com/vietanh2810/raffle-api/internal/cron"
	"github.com/vietanh2810/raffle-api/internal/db"
	"github.com/vietanh2810/raffle-api/internal/ledger"
	"github.com/vietanh2810/raffle-api/internal/logger"
	"github.com/vietanh2810/raffle-api/internal/treasury"
)

func Start() error {
	conf, err := config.Load("./cmd/app/config.yml")
	if err != nil {
		return fmt.Errorf("failed to initialize config -> %w", err)
	}

	if err = logger.Init(conf.API.Environment); err != nil {
		return fmt.Errorf("failed to initialize logger -> %w", err)
	}

	dbURL := os.Getenv("DATABASE_URL")
	var postgresDB *gorm.DB
	if dbURL != "" {
		postgresDB, err = db.OpenPostgresWithURL(dbURL)
	} else {
		postgresDB, err = db.OpenPostgres(conf.Postgres)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database -> %w", err)
	}

	var store cache.Cache
	if conf.Redis.Addr != "" {
		store = cache.NewRedisCache(conf.Redis)
	} else {
		store = cache.NewMemoryCache()
	}

	fetcher, err := ledger.DialFetcher(conf.Chain)
	if err != nil {
		return fmt.Errorf("failed to connect to chain RPC -> %w", err)
	}
	verifier := ledger.NewVerifier(fetcher, conf.Chain)

	sender, err := treasury.NewSender(conf.Chain)
	if err != nil {
		return fmt.Errorf("failed to initialize treasury sender -> %w", err)
	}

	s := api.NewServer(conf, postgresDB, verifier, sender, store)

	sweeper := cron.NewSweeper(s.Lifecycle, s.Payout, conf.Raffle.SweepInterval)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sweeper.Run(ctx)

	addr := ":" + s.Config.API.Port
	zap.L().Info(fmt.Sprintf("starting server at %v", addr))
	if err = s.Router.Run(addr); err != nil {
		return fmt.Errorf("failed to start the server -> %w", err)
	}

	return nil
}
