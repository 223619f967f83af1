package main

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/radieske/wingo-game-platform/internal/engine/betting"
	"github.com/radieske/wingo-game-platform/internal/engine/exposure"
	enginerepo "github.com/radieske/wingo-game-platform/internal/engine/repo"
	"github.com/radieske/wingo-game-platform/internal/engine/result"
	"github.com/radieske/wingo-game-platform/internal/engine/state"
	ghttp "github.com/radieske/wingo-game-platform/internal/game-service/http"
	"github.com/radieske/wingo-game-platform/internal/shared/cache"
	"github.com/radieske/wingo-game-platform/internal/shared/config"
	"github.com/radieske/wingo-game-platform/internal/shared/db"
	"github.com/radieske/wingo-game-platform/internal/shared/logger"
	walletrepo "github.com/radieske/wingo-game-platform/internal/wallet/repo"
)

func main() {
	cfg := config.Load()
	log, _ := logger.New(cfg.ServiceName, cfg.Env)
	defer log.Sync()

	// Postgres
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg", zap.Error(err))
	}
	defer pg.Close()

	// Redis
	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	// deps
	stateStore := state.NewStore(rdb, cfg.VioletWindowSize)
	exposureLedger := exposure.New(rdb)
	wallet := walletrepo.NewPostgres(pg)
	rounds := enginerepo.NewPostgres(pg)

	betSvc := betting.NewService(log, stateStore, wallet, exposureLedger, cfg.FeeRateBps, cfg.GracePeriod)
	selector := result.NewSelector(log, exposureLedger, stateStore, result.Config{
		VioletCap:   cfg.VioletCap,
		CountForced: cfg.CountForcedInStats,
	})

	// HTTP público
	api := ghttp.NewServer(log, betSvc, stateStore, selector, wallet, rounds)
	apiSrv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler: api.Router(),
	}

	// metrics/health
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := pg.PingContext(r.Context()); err != nil {
			http.Error(w, "pg", http.StatusServiceUnavailable)
			return
		}
		if err := rdb.Ping(r.Context()).Err(); err != nil {
			http.Error(w, "redis", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	go func() {
		addr := fmt.Sprintf(":%s", cfg.MetricsPort)
		log.Info("metrics/health", zap.String("addr", addr))
		_ = http.ListenAndServe(addr, metricsMux)
	}()

	log.Info("game-service listening", zap.String("addr", fmt.Sprintf(":%s", cfg.HTTPPort)))
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api", zap.Error(err))
	}
}
