package scheduler

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
	Release(ctx context.Context, key string)
}

// StateStore é o que o scheduler precisa do estado rápido
type StateStore interface {
	NextSequence(ctx context.Context, day time.Time) (int64, error)
	CreateRound(ctx context.Context, r state.Round) error
	Get(ctx context.Context, roundID string) (state.Round, error)
	SetStatus(ctx context.Context, roundID string, st state.Status) error
	IsForced(ctx context.Context, roundID string) (bool, error)
	ClearForced(ctx context.Context, roundID string) error
	FrozenOutcome(ctx context.Context, roundID string) (*events.Outcome, error)
}

// RoundRepo mantém o registro durável em paralelo ao estado rápido
type RoundRepo interface {
	InsertRound(ctx context.Context, id string, startTs, endTs time.Time) error
	UpdateStatus(ctx context.Context, id string, status string) error
}

// Selector congela o resultado da rodada
type Selector interface {
	Freeze(ctx context.Context, roundID string) (events.Outcome, error)
}

// Settler liquida a rodada contra o resultado congelado
type Settler interface {
	SettleRound(ctx context.Context, roundID string, out *events.Outcome) error
}

// Publisher emite as notificações de ciclo de vida
type Publisher interface {
	PublishRoundStarted(ctx context.Context, e events.RoundStarted) error
	PublishBetsClosed(ctx context.Context, e events.BetsClosed) error
	PublishResultRevealed(ctx context.Context, e events.ResultRevealed) error
}

// Config são os tempos do ciclo de vida
type Config struct {
	RoundDuration    time.Duration
	GracePeriod      time.Duration
	TickInterval     time.Duration
	SchedulerLockTTL time.Duration
	PhaseLockTTL     time.Duration
	SettleRetryDelay time.Duration
}

// Scheduler cunha rodadas num tick fixo e agenda os boundaries de close e
// reveal contra deadlines de relógio. Cada fase é protegida por um lock
// expirante: vários workers podem rodar em paralelo e no máximo um executa
// cada transição. Os timers disparam em qualquer worker vivo; rodada órfã
// de um worker morto é recuperada pelo guard sweep.
type Scheduler struct {
	log      *zap.Logger
	locks    Locks
	state    StateStore
	rounds   RoundRepo
	selector Selector
	settler  Settler
	publ     Publisher
	cfg      Config

	OnRoundMinted func()       // métricas
	OnError       func(string) // métricas por estágio
}

func New(log *zap.Logger, locks Locks, st StateStore, rounds RoundRepo, sel Selector, settler Settler, publ Publisher, cfg Config) *Scheduler {
	return &Scheduler{
		log:      log,
		locks:    locks,
		state:    st,
		rounds:   rounds,
		selector: sel,
		settler:  settler,
		publ:     publ,
		cfg:      cfg,
	}
}

// Run é o loop principal do worker de rodadas.
// O primeiro tick espera o próximo múltiplo de TickInterval no relógio de
// parede: workers iniciados em momentos diferentes cunham no mesmo boundary,
// e o lock do scheduler decide qual deles executa. Sem esse alinhamento um
// worker atrasado tica depois do TTL do lock e cunha uma segunda rodada no
// meio da janela de apostas da primeira.
func (s *Scheduler) Run(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(untilNextBoundary(time.Now(), s.cfg.TickInterval)):
	}

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// untilNextBoundary retorna quanto falta até o próximo múltiplo exato do
// intervalo. Num boundary exato, espera o intervalo inteiro.
func untilNextBoundary(now time.Time, interval time.Duration) time.Duration {
	return now.Truncate(interval).Add(interval).Sub(now)
}

// tick tenta cunhar uma rodada. Quem perde o lock não faz nada:
// outra instância está cuidando do ciclo.
func (s *Scheduler) tick(ctx context.Context) {
	ok, err := s.locks.Acquire(ctx, state.LockScheduler, s.cfg.SchedulerLockTTL)
	if err != nil {
		s.log.Warn("scheduler lock", zap.Error(err))
		s.fail("lock")
		return
	}
	if !ok {
		return
	}

	now := time.Now()
	seq, err := s.state.NextSequence(ctx, now)
	if err != nil {
		s.log.Error("round sequence", zap.Error(err))
		s.fail("sequence")
		return
	}

	roundID := state.RoundID(now, seq)
	start := now
	end := now.Add(s.cfg.RoundDuration)

	r := state.Round{
		ID:            roundID,
		StartTsUnixMs: start.UnixMilli(),
		EndTsUnixMs:   end.UnixMilli(),
		Status:        state.StatusBetting,
	}
	if err := s.state.CreateRound(ctx, r); err != nil {
		s.log.Error("create round state", zap.String("roundId", roundID), zap.Error(err))
		s.fail("state")
		return
	}
	if err := s.rounds.InsertRound(ctx, roundID, start, end); err != nil {
		s.log.Error("insert round record", zap.String("roundId", roundID), zap.Error(err))
		s.fail("db")
	}

	if err := s.publ.PublishRoundStarted(ctx, events.RoundStarted{
		RoundID:       roundID,
		StartTsUnixMs: r.StartTsUnixMs,
		EndTsUnixMs:   r.EndTsUnixMs,
	}); err != nil {
		s.log.Warn("publish round_started", zap.String("roundId", roundID), zap.Error(err))
		s.fail("publish")
	}

	// Boundaries agendados contra o relógio; não é garantido que rodem no
	// worker que criou a rodada, os locks por rodada decidem quem executa
	time.AfterFunc(s.cfg.RoundDuration-s.cfg.GracePeriod, func() {
		s.closeBoundary(roundID)
	})
	time.AfterFunc(s.cfg.RoundDuration, func() {
		s.endBoundary(roundID)
	})

	if s.OnRoundMinted != nil {
		s.OnRoundMinted()
	}
	s.log.Info("round created", zap.String("roundId", roundID), zap.Time("endTs", end))
}

// closeBoundary fecha as apostas e dispara o freeze do resultado.
// O freeze é desacoplado do reveal: o resultado pode existir antes da
// rodada terminar visualmente.
func (s *Scheduler) closeBoundary(roundID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	ok, err := s.locks.Acquire(ctx, state.LockClose(roundID), s.cfg.PhaseLockTTL)
	if err != nil || !ok {
		return
	}

	cur, err := s.state.Get(ctx, roundID)
	if err != nil {
		s.log.Warn("close: round state missing", zap.String("roundId", roundID), zap.Error(err))
		return
	}
	if cur.Status != state.StatusBetting {
		return // já fechada
	}

	if err := s.state.SetStatus(ctx, roundID, state.StatusClosed); err != nil {
		s.log.Error("close: status update", zap.String("roundId", roundID), zap.Error(err))
		s.fail("close")
		return
	}
	if err := s.rounds.UpdateStatus(ctx, roundID, string(state.StatusClosed)); err != nil {
		s.log.Warn("close: durable status update", zap.String("roundId", roundID), zap.Error(err))
	}

	if err := s.publ.PublishBetsClosed(ctx, events.BetsClosed{
		RoundID:  roundID,
		TsUnixMs: time.Now().UnixMilli(),
	}); err != nil {
		s.log.Warn("publish bets_closed", zap.String("roundId", roundID), zap.Error(err))
	}

	// Rodada forçada pelo admin não passa pelo selector
	forced, err := s.state.IsForced(ctx, roundID)
	if err != nil {
		s.log.Warn("close: forced check", zap.String("roundId", roundID), zap.Error(err))
	}
	if !forced {
		if _, err := s.selector.Freeze(ctx, roundID); err != nil {
			s.log.Error("close: freeze", zap.String("roundId", roundID), zap.Error(err))
			s.fail("freeze")
		}
	}

	// fase concluída: soltar o lock poupa o TTL de quem vier depois
	s.locks.Release(ctx, state.LockClose(roundID))
	s.log.Info("betting closed", zap.String("roundId", roundID))
}

// endBoundary revela o resultado e dispara a liquidação.
// Sem resultado congelado, computa na hora como fallback.
func (s *Scheduler) endBoundary(roundID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ok, err := s.locks.Acquire(ctx, state.LockReveal(roundID), s.cfg.PhaseLockTTL)
	if err != nil || !ok {
		return
	}

	out, err := s.state.FrozenOutcome(ctx, roundID)
	if err != nil {
		s.log.Error("reveal: read outcome", zap.String("roundId", roundID), zap.Error(err))
		s.fail("reveal")
		return
	}
	if out == nil {
		// fallback síncrono: o freeze agendado não rodou
		frozen, err := s.selector.Freeze(ctx, roundID)
		if err != nil {
			s.log.Error("reveal: fallback freeze", zap.String("roundId", roundID), zap.Error(err))
			s.fail("reveal")
			return
		}
		out = &frozen
	}

	if err := s.publ.PublishResultRevealed(ctx, events.ResultRevealed{
		RoundID:  roundID,
		Outcome:  *out,
		TsUnixMs: time.Now().UnixMilli(),
	}); err != nil {
		s.log.Warn("publish result_revealed", zap.String("roundId", roundID), zap.Error(err))
	}

	if err := s.state.SetStatus(ctx, roundID, state.StatusRevealed); err != nil {
		s.log.Error("reveal: status update", zap.String("roundId", roundID), zap.Error(err))
	}
	if err := s.rounds.UpdateStatus(ctx, roundID, string(state.StatusRevealed)); err != nil {
		s.log.Warn("reveal: durable status update", zap.String("roundId", roundID), zap.Error(err))
	}
	if err := s.state.ClearForced(ctx, roundID); err != nil {
		s.log.Warn("reveal: clear forced", zap.String("roundId", roundID), zap.Error(err))
	}

	s.log.Info("result revealed", zap.String("roundId", roundID), zap.Int("number", out.Number))

	// Liquidação com um retry; falha persistente fica pro guard sweep
	if err := s.settler.SettleRound(ctx, roundID, out); err != nil {
		s.log.Warn("settlement failed, retrying once", zap.String("roundId", roundID), zap.Error(err))
		s.fail("settle")
		time.Sleep(s.cfg.SettleRetryDelay)
		if err := s.settler.SettleRound(ctx, roundID, out); err != nil {
			s.log.Error("settlement failed after retry, left for sweep",
				zap.String("roundId", roundID), zap.Error(err))
			s.fail("settle_retry")
		}
	}

	// fase concluída: soltar o lock poupa o TTL de quem vier depois
	s.locks.Release(ctx, state.LockReveal(roundID))
}

func (s *Scheduler) fail(stage string) {
	if s.OnError != nil {
		s.OnError(stage)
	}
}
