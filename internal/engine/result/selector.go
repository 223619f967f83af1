package result

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/wingo-game-platform/internal/engine/exposure"
	"github.com/radieske/wingo-game-platform/pkg/contracts/events"
)

// ExposureSource lê as exposições correntes de uma rodada
type ExposureSource interface {
	Snapshot(ctx context.Context, roundID string) (exposure.Snapshot, error)
}

// Store é o que o selector precisa do estado rápido: modo, janela violet,
// freeze condicional e contadores
type Store interface {
	Mode(ctx context.Context) (string, error)
	VioletWindowCount(ctx context.Context) (int, error)
	FreezeOutcome(ctx context.Context, roundID string, out events.Outcome) (bool, error)
	ForceOutcome(ctx context.Context, roundID string, out events.Outcome) error
	FrozenOutcome(ctx context.Context, roundID string) (*events.Outcome, error)
	PushVioletWindow(ctx context.Context, violet bool) error
	IncrRoundCount(ctx context.Context) error
}

// Config são os guardrails de seleção
type Config struct {
	VioletCap   int  // máximo de violets dentro da janela deslizante
	CountForced bool // resultado forçado atualiza janela/contador?
}

// Selector computa o resultado ótimo pra casa a partir das exposições,
// sob o modo vigente (MAX_PROFIT/MAX_LOSS) e os guardrails.
type Selector struct {
	log   *zap.Logger
	exp   ExposureSource
	store Store
	cfg   Config

	randIntn func(int) int // injetável nos testes
}

func NewSelector(log *zap.Logger, exp ExposureSource, store Store, cfg Config) *Selector {
	return &Selector{
		log:      log,
		exp:      exp,
		store:    store,
		cfg:      cfg,
		randIntn: rand.Intn,
	}
}

// Freeze computa e congela o resultado da rodada. O freeze é um SET NX:
// sob N tentativas concorrentes só a primeira escreve, e as demais recebem
// o resultado já congelado. Um forced pré-existente é retornado na hora,
// sem consultar a tabela.
func (s *Selector) Freeze(ctx context.Context, roundID string) (events.Outcome, error) {
	if existing, err := s.store.FrozenOutcome(ctx, roundID); err != nil {
		return events.Outcome{}, err
	} else if existing != nil {
		return *existing, nil
	}

	out, err := s.compute(ctx, roundID)
	if err != nil {
		return events.Outcome{}, err
	}

	won, err := s.store.FreezeOutcome(ctx, roundID, out)
	if err != nil {
		return events.Outcome{}, err
	}
	if !won {
		// outro worker congelou primeiro; o dele vale
		existing, err := s.store.FrozenOutcome(ctx, roundID)
		if err != nil {
			return events.Outcome{}, err
		}
		if existing == nil {
			return events.Outcome{}, fmt.Errorf("freeze lost but no outcome stored for round %s", roundID)
		}
		return *existing, nil
	}

	// freeze venceu: janela violet e contador avançam exatamente uma vez
	if err := s.store.PushVioletWindow(ctx, out.IncludesViolet); err != nil {
		s.log.Warn("violet window push failed", zap.String("roundId", roundID), zap.Error(err))
	}
	if err := s.store.IncrRoundCount(ctx); err != nil {
		s.log.Warn("round count incr failed", zap.String("roundId", roundID), zap.Error(err))
	}

	s.log.Info("result frozen",
		zap.String("roundId", roundID),
		zap.Int("number", out.Number),
		zap.Int64("payoutCents", out.PayoutCents),
	)
	return out, nil
}

// compute monta a tabela de candidatos, aplica guardrails e escolhe pelo modo
func (s *Selector) compute(ctx context.Context, roundID string) (events.Outcome, error) {
	snap, err := s.exp.Snapshot(ctx, roundID)
	if err != nil {
		return events.Outcome{}, err
	}
	mode, err := s.store.Mode(ctx)
	if err != nil {
		return events.Outcome{}, err
	}
	violetCount, err := s.store.VioletWindowCount(ctx)
	if err != nil {
		return events.Outcome{}, err
	}

	candidates := Candidates()

	// Guardrail: com a janela no teto, candidatos violet saem da seleção.
	// Se o filtro esvaziar o conjunto, a exclusão é levantada.
	if violetCount >= s.cfg.VioletCap {
		filtered := candidates[:0:0]
		for _, c := range candidates {
			if !c.IncludesViolet {
				filtered = append(filtered, c)
			}
		}
		if len(filtered) > 0 {
			candidates = filtered
		}
	}

	// Rodada sem apostas: sorteio uniforme, independente do modo
	if snap.Total() == 0 {
		c := candidates[s.randIntn(len(candidates))]
		return outcomeFrom(c, 0, false), nil
	}

	// Seleção por modo; iteração ascendente com comparação estrita
	// desempata pelo menor número
	best := candidates[0]
	bestPayout := PayoutFor(best, snap)
	for _, c := range candidates[1:] {
		p := PayoutFor(c, snap)
		if (mode == ModeMaxLoss && p > bestPayout) || (mode != ModeMaxLoss && p < bestPayout) {
			best = c
			bestPayout = p
		}
	}

	return outcomeFrom(best, bestPayout, false), nil
}

// Force grava um resultado administrativo pro número dado, ignorando toda a
// seleção. Color/size/violet são recomputados deterministicamente do número.
func (s *Selector) Force(ctx context.Context, roundID string, number int) (events.Outcome, error) {
	if number < 0 || number > 9 {
		return events.Outcome{}, fmt.Errorf("number out of range: %d", number)
	}

	out := outcomeFrom(CandidateFor(number), 0, true)
	if err := s.store.ForceOutcome(ctx, roundID, out); err != nil {
		return events.Outcome{}, err
	}

	if s.cfg.CountForced {
		if err := s.store.PushVioletWindow(ctx, out.IncludesViolet); err != nil {
			s.log.Warn("violet window push failed", zap.String("roundId", roundID), zap.Error(err))
		}
		if err := s.store.IncrRoundCount(ctx); err != nil {
			s.log.Warn("round count incr failed", zap.String("roundId", roundID), zap.Error(err))
		}
	}

	s.log.Info("result forced", zap.String("roundId", roundID), zap.Int("number", number))
	return out, nil
}

func outcomeFrom(c Candidate, payoutCents int64, forced bool) events.Outcome {
	return events.Outcome{
		Number:         c.Number,
		Color:          c.Color,
		Size:           c.Size,
		IncludesViolet: c.IncludesViolet,
		PayoutCents:    payoutCents,
		FreezeTsUnixMs: time.Now().UnixMilli(),
		Forced:         forced,
	}
}
