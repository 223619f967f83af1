package sweep

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/wingo-game-platform/internal/engine/state"
	"github.com/radieske/wingo-game-platform/pkg/contracts/events"
)

// Locks é a primitiva de exclusão mútua distribuída
type Locks interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// RoundRepo localiza rodadas travadas no banco durável
type RoundRepo interface {
	ListStuck(ctx context.Context) ([]string, error)
}

// StateStore lê o resultado congelado de uma rodada
type StateStore interface {
	FrozenOutcome(ctx context.Context, roundID string) (*events.Outcome, error)
}

// Settler liquida a rodada
type Settler interface {
	SettleRound(ctx context.Context, roundID string, out *events.Outcome) error
}

// Sweeper é o passe de reconciliação: acha rodadas CLOSED/REVEALED com
// apostas ainda PENDING (deixadas por um worker que morreu no meio) e
// reaplica a liquidação. Sem resultado congelado não dá pra adivinhar um
// desfecho com segurança, então só loga pra atenção do operador.
type Sweeper struct {
	log     *zap.Logger
	locks   Locks
	rounds  RoundRepo
	state   StateStore
	settler Settler

	interval time.Duration
	lockTTL  time.Duration

	OnRepaired func() // métricas
}

func New(log *zap.Logger, locks Locks, rounds RoundRepo, st StateStore, settler Settler, interval, lockTTL time.Duration) *Sweeper {
	return &Sweeper{
		log:      log,
		locks:    locks,
		rounds:   rounds,
		state:    st,
		settler:  settler,
		interval: interval,
		lockTTL:  lockTTL,
	}
}

// Run roda o sweep num intervalo grosso até o contexto cancelar
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	ok, err := s.locks.Acquire(ctx, state.LockSweep, s.lockTTL)
	if err != nil || !ok {
		return
	}

	ids, err := s.rounds.ListStuck(ctx)
	if err != nil {
		s.log.Error("sweep: list stuck rounds", zap.Error(err))
		return
	}

	for _, roundID := range ids {
		out, err := s.state.FrozenOutcome(ctx, roundID)
		if err != nil {
			s.log.Warn("sweep: read outcome", zap.String("roundId", roundID), zap.Error(err))
			continue
		}
		if out == nil {
			// não dá pra inventar resultado: intervenção manual
			s.log.Error("sweep: stuck round without frozen outcome",
				zap.String("roundId", roundID))
			continue
		}

		if err := s.settler.SettleRound(ctx, roundID, out); err != nil {
			s.log.Error("sweep: settlement failed", zap.String("roundId", roundID), zap.Error(err))
			continue
		}

		if s.OnRepaired != nil {
			s.OnRepaired()
		}
		s.log.Info("sweep: round repaired", zap.String("roundId", roundID))
	}
}
