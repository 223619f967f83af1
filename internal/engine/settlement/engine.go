package settlement

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/radieske/wingo-game-platform/internal/engine/repo"
	"github.com/radieske/wingo-game-platform/internal/engine/result"
	"github.com/radieske/wingo-game-platform/internal/engine/state"
	"github.com/radieske/wingo-game-platform/pkg/contracts/events"
)

var ErrResultNotFrozen = errors.New("result not frozen")

// RoundRepo é o que a liquidação precisa do banco durável
type RoundRepo interface {
	ListPendingByRound(ctx context.Context, roundID string) ([]repo.Wager, error)
	MarkSettled(ctx context.Context, roundID string, out events.Outcome) error
}

// Wallet liquida uma aposta de forma atômica e idempotente
type Wallet interface {
	SettleWager(ctx context.Context, w repo.Wager, payoutCents int64, won bool) error
}

// StateStore é o que a liquidação precisa do estado rápido
type StateStore interface {
	FrozenOutcome(ctx context.Context, roundID string) (*events.Outcome, error)
	SetStatus(ctx context.Context, roundID string, st state.Status) error
	ClearRound(ctx context.Context, roundID string) error
}

// ExposureCleaner descarta as exposições depois da liquidação completa
type ExposureCleaner interface {
	Clear(ctx context.Context, roundID string) error
}

// Engine aplica o resultado congelado sobre cada aposta committed da rodada:
// ganhadoras recebem payout líquido×multiplicador e liberam o bruto do
// locked; perdedoras só liberam o locked. Cada aposta é liquidada numa
// transação própria com status escrito uma vez, então reexecutar a rodada
// inteira não toca aposta já processada.
type Engine struct {
	log      *zap.Logger
	rounds   RoundRepo
	wallet   Wallet
	state    StateStore
	exposure ExposureCleaner
}

func NewEngine(log *zap.Logger, rounds RoundRepo, wallet Wallet, st StateStore, exp ExposureCleaner) *Engine {
	return &Engine{log: log, rounds: rounds, wallet: wallet, state: st, exposure: exp}
}

// SettleRound liquida todas as apostas PENDING da rodada contra o resultado.
// Com out nil, lê o resultado congelado no estado rápido. Rodada sem
// PENDING restante é um no-op seguro.
func (e *Engine) SettleRound(ctx context.Context, roundID string, out *events.Outcome) error {
	if out == nil {
		frozen, err := e.state.FrozenOutcome(ctx, roundID)
		if err != nil {
			return err
		}
		if frozen == nil {
			return ErrResultNotFrozen
		}
		out = frozen
	}

	pending, err := e.rounds.ListPendingByRound(ctx, roundID)
	if err != nil {
		return fmt.Errorf("load pending wagers: %w", err)
	}

	var won, lost int
	for _, w := range pending {
		mult, isWin := result.Multiplier(w.Category, w.Option, *out)
		var payout int64
		if isWin {
			payout = result.Payout(w.NetAmountCents, mult)
			won++
		} else {
			lost++
		}
		if err := e.wallet.SettleWager(ctx, w, payout, isWin); err != nil {
			// falha transiente: aborta aqui; apostas já liquidadas não
			// serão revisitadas no retry nem no guard sweep
			return fmt.Errorf("settle wager %s: %w", w.ID, err)
		}
	}

	if err := e.rounds.MarkSettled(ctx, roundID, *out); err != nil {
		return fmt.Errorf("mark round settled: %w", err)
	}
	if err := e.state.SetStatus(ctx, roundID, state.StatusSettled); err != nil {
		e.log.Warn("redis status update failed", zap.String("roundId", roundID), zap.Error(err))
	}

	// exposições e chaves rápidas da rodada morrem aqui
	if err := e.exposure.Clear(ctx, roundID); err != nil {
		e.log.Warn("exposure cleanup failed", zap.String("roundId", roundID), zap.Error(err))
	}
	if err := e.state.ClearRound(ctx, roundID); err != nil {
		e.log.Warn("round keys cleanup failed", zap.String("roundId", roundID), zap.Error(err))
	}

	e.log.Info("round settled",
		zap.String("roundId", roundID),
		zap.Int("won", won),
		zap.Int("lost", lost),
		zap.Int("number", out.Number),
	)
	return nil
}
