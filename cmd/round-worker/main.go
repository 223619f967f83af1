package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/wingo-game-platform/internal/engine/exposure"
	"github.com/radieske/wingo-game-platform/internal/engine/lock"
	"github.com/radieske/wingo-game-platform/internal/engine/producer"
	enginerepo "github.com/radieske/wingo-game-platform/internal/engine/repo"
	"github.com/radieske/wingo-game-platform/internal/engine/result"
	"github.com/radieske/wingo-game-platform/internal/engine/scheduler"
	"github.com/radieske/wingo-game-platform/internal/engine/settlement"
	"github.com/radieske/wingo-game-platform/internal/engine/state"
	"github.com/radieske/wingo-game-platform/internal/engine/sweep"
	"github.com/radieske/wingo-game-platform/internal/shared/cache"
	"github.com/radieske/wingo-game-platform/internal/shared/config"
	"github.com/radieske/wingo-game-platform/internal/shared/db"
	skafka "github.com/radieske/wingo-game-platform/internal/shared/kafka"
	"github.com/radieske/wingo-game-platform/internal/shared/logger"
	"github.com/radieske/wingo-game-platform/internal/shared/metrics"
	walletrepo "github.com/radieske/wingo-game-platform/internal/wallet/repo"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Inicializa dependências: Postgres e Redis
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()

	// Writers Kafka, um por tópico de notificação
	wRoundStarted := skafka.NewWriter(cfg.KafkaBrokers, cfg.TopicRoundStarted)
	wBetsClosed := skafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetsClosed)
	wResultRevealed := skafka.NewWriter(cfg.KafkaBrokers, cfg.TopicResultRevealed)
	defer wRoundStarted.Close()
	defer wBetsClosed.Close()
	defer wResultRevealed.Close()

	publ := producer.NewKafkaPublisher(wRoundStarted, wBetsClosed, wResultRevealed)

	// Estado rápido, exposições, locks e repositórios
	stateStore := state.NewStore(rdb, cfg.VioletWindowSize)
	exposureLedger := exposure.New(rdb)
	locker := lock.New(rdb)
	wallet := walletrepo.NewPostgres(pg)
	rounds := enginerepo.NewPostgres(pg)

	selector := result.NewSelector(log, exposureLedger, stateStore, result.Config{
		VioletCap:   cfg.VioletCap,
		CountForced: cfg.CountForcedInStats,
	})
	settler := settlement.NewEngine(log, rounds, wallet, stateStore, exposureLedger)

	// Métricas Prometheus do ciclo de vida
	roundsMinted := prometheus.NewCounter(prometheus.CounterOpts{Name: "wingo_rounds_minted_total", Help: "rodadas criadas"})
	roundsRepaired := prometheus.NewCounter(prometheus.CounterOpts{Name: "wingo_rounds_repaired_total", Help: "rodadas recuperadas pelo sweep"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "wingo_worker_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(roundsMinted, roundsRepaired, errorsBy)

	sched := scheduler.New(log, locker, stateStore, rounds, selector, settler, publ, scheduler.Config{
		RoundDuration:    cfg.RoundDuration,
		GracePeriod:      cfg.GracePeriod,
		TickInterval:     cfg.TickInterval,
		SchedulerLockTTL: cfg.SchedulerLockTTL,
		PhaseLockTTL:     cfg.PhaseLockTTL,
		SettleRetryDelay: cfg.SettleRetryDelay,
	})
	sched.OnRoundMinted = func() { roundsMinted.Inc() }
	sched.OnError = func(stage string) { errorsBy.WithLabelValues(stage).Inc() }

	sweeper := sweep.New(log, locker, rounds, stateStore, settler, cfg.SweepInterval, cfg.SweepLockTTL)
	sweeper.OnRepaired = func() { roundsRepaired.Inc() }

	// metrics/health
	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return err
		}
		return rdb.Ping(ctx).Err()
	})

	go func() {
		if err := sweeper.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("sweeper stopped", zap.Error(err))
		}
	}()

	log.Info("round-worker running",
		zap.Duration("roundDuration", cfg.RoundDuration),
		zap.Duration("gracePeriod", cfg.GracePeriod),
	)
	if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("scheduler", zap.Error(err))
	}
}
