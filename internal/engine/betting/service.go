package betting

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/wingo-game-platform/internal/engine/repo"
	"github.com/radieske/wingo-game-platform/internal/engine/result"
	"github.com/radieske/wingo-game-platform/internal/engine/state"
	walletrepo "github.com/radieske/wingo-game-platform/internal/wallet/repo"
)

var (
	ErrInvalidPayload      = errors.New("invalid payload")
	ErrNoActiveRound       = errors.New("no active round")
	ErrRoundMismatch       = errors.New("round mismatch")
	ErrBettingClosed       = errors.New("betting closed")
	ErrInsideGracePeriod   = errors.New("inside grace period")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// RoundSource lê a rodada corrente do estado rápido
type RoundSource interface {
	Current(ctx context.Context) (state.Round, error)
	PushWager(ctx context.Context, roundID string, wagerJSON []byte) error
}

// Wallet debita o lote inteiro atomicamente, inserindo as apostas junto
type Wallet interface {
	DebitForWagers(ctx context.Context, userID, roundID string, wagers []repo.Wager, feeCents int64) error
}

// ExposureWriter incrementa os buckets de exposição da rodada
type ExposureWriter interface {
	AddColor(ctx context.Context, roundID, color string, netCents int64) error
	AddSize(ctx context.Context, roundID, size string, netCents int64) error
	AddNumber(ctx context.Context, roundID, number string, netCents int64) error
}

// Input é uma aposta individual dentro do lote
type Input struct {
	Category    repo.Category
	Option      string
	AmountCents int64
}

// Service valida e admite lotes de apostas contra a rodada ativa.
// É a única operação serializada por carteira: o débito do lote roda com
// FOR UPDATE na linha do usuário, dentro do repositório de wallet.
type Service struct {
	log      *zap.Logger
	rounds   RoundSource
	wallet   Wallet
	exposure ExposureWriter

	feeRateBps  int64
	gracePeriod time.Duration
	now         func() time.Time // relógio injetável; uma leitura por chamada
}

func NewService(log *zap.Logger, rounds RoundSource, wallet Wallet, exposure ExposureWriter, feeRateBps int64, gracePeriod time.Duration) *Service {
	return &Service{
		log:         log,
		rounds:      rounds,
		wallet:      wallet,
		exposure:    exposure,
		feeRateBps:  feeRateBps,
		gracePeriod: gracePeriod,
		now:         time.Now,
	}
}

// PlaceWagers admite um lote de apostas e retorna os ids criados.
// Gates, na ordem: payload válido, rodada corrente, status BETTING e fora da
// janela de graça. Uma única leitura de relógio decide o gate de tempo:
// apostas são recusadas dentro da graça mesmo com status ainda BETTING,
// porque a transição de fechamento é assíncrona.
func (s *Service) PlaceWagers(ctx context.Context, userID, roundID string, inputs []Input) ([]string, error) {
	if userID == "" || roundID == "" || len(inputs) == 0 {
		return nil, ErrInvalidPayload
	}
	for _, in := range inputs {
		if err := validate(in); err != nil {
			return nil, err
		}
	}

	now := s.now()

	cur, err := s.rounds.Current(ctx)
	if errors.Is(err, state.ErrNoActiveRound) {
		return nil, ErrNoActiveRound
	}
	if err != nil {
		return nil, err
	}
	if cur.ID != roundID {
		return nil, ErrRoundMismatch
	}
	if cur.Status != state.StatusBetting {
		return nil, ErrBettingClosed
	}
	if cur.Remaining(now) <= s.gracePeriod {
		return nil, ErrInsideGracePeriod
	}

	// Taxa por aposta, somada no lote; net = bruto - taxa
	var feeTotal int64
	wagers := make([]repo.Wager, 0, len(inputs))
	for _, in := range inputs {
		fee := in.AmountCents * s.feeRateBps / 10000
		feeTotal += fee
		wagers = append(wagers, repo.Wager{
			ID:             uuid.NewString(),
			UserID:         userID,
			RoundID:        roundID,
			Category:       in.Category,
			Option:         in.Option,
			AmountCents:    in.AmountCents,
			NetAmountCents: in.AmountCents - fee,
			Status:         repo.WagerPending,
		})
	}

	// Débito atômico do lote: available -= bruto+taxa, locked += bruto,
	// DEBIT+FEE no ledger e apostas PENDING, tudo ou nada
	if err := s.wallet.DebitForWagers(ctx, userID, roundID, wagers, feeTotal); err != nil {
		if errors.Is(err, walletrepo.ErrInsufficientFunds) {
			return nil, ErrInsufficientBalance
		}
		return nil, err
	}

	ids := make([]string, 0, len(wagers))
	for _, w := range wagers {
		if err := s.addExposure(ctx, w); err != nil {
			// o débito já commitou; exposição perdida só enviesa a seleção,
			// nunca a liquidação, que lê as apostas do banco
			s.log.Error("exposure incr failed", zap.String("wagerId", w.ID), zap.Error(err))
		}
		if b, err := json.Marshal(w); err == nil {
			if err := s.rounds.PushWager(ctx, roundID, b); err != nil {
				s.log.Warn("wager snapshot push failed", zap.String("wagerId", w.ID), zap.Error(err))
			}
		}
		ids = append(ids, w.ID)
	}

	s.log.Info("wagers admitted",
		zap.String("userId", userID),
		zap.String("roundId", roundID),
		zap.Int("count", len(ids)),
	)
	return ids, nil
}

// addExposure incrementa o bucket certo pro tipo da aposta.
// VIOLET entra no slot violet do hash de cor.
func (s *Service) addExposure(ctx context.Context, w repo.Wager) error {
	switch w.Category {
	case repo.CategoryColor:
		return s.exposure.AddColor(ctx, w.RoundID, w.Option, w.NetAmountCents)
	case repo.CategorySize:
		return s.exposure.AddSize(ctx, w.RoundID, w.Option, w.NetAmountCents)
	case repo.CategoryNumber:
		return s.exposure.AddNumber(ctx, w.RoundID, w.Option, w.NetAmountCents)
	case repo.CategoryViolet:
		return s.exposure.AddColor(ctx, w.RoundID, "VIOLET", w.NetAmountCents)
	}
	return nil
}

// validate rejeita aposta malformada antes de qualquer mutação
func validate(in Input) error {
	if in.AmountCents <= 0 {
		return ErrInvalidPayload
	}
	switch in.Category {
	case repo.CategoryColor:
		if in.Option != result.ColorRed && in.Option != result.ColorGreen {
			return ErrInvalidPayload
		}
	case repo.CategorySize:
		if in.Option != result.SizeBig && in.Option != result.SizeSmall {
			return ErrInvalidPayload
		}
	case repo.CategoryNumber:
		n, err := strconv.Atoi(in.Option)
		if err != nil || n < 0 || n > 9 {
			return ErrInvalidPayload
		}
	case repo.CategoryViolet:
		if in.Option != "" && in.Option != "VIOLET" {
			return ErrInvalidPayload
		}
	default:
		return ErrInvalidPayload
	}
	return nil
}
