package state

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/wingo-game-platform/pkg/contracts/events"
)

var ErrNoActiveRound = errors.New("no active round")

// Store guarda o estado rápido do jogo no Redis: ponteiro da rodada corrente,
// hash de estado por rodada, resultado congelado, marcador de forced,
// contadores e a janela deslizante de violet.
// O estado mora no Redis (não na memória do worker) porque o worker que cria
// a rodada não é necessariamente o que executa close/reveal.
type Store struct {
	rdb        *redis.Client
	windowSize int // tamanho da janela deslizante de violet
}

func NewStore(rdb *redis.Client, windowSize int) *Store {
	return &Store{rdb: rdb, windowSize: windowSize}
}

// CreateRound grava o hash de estado e avança o ponteiro da rodada corrente
func (s *Store) CreateRound(ctx context.Context, r Round) error {
	sk := keyState(r.ID)
	if err := s.rdb.HSet(ctx, sk, map[string]interface{}{
		"id":       r.ID,
		"start_ts": r.StartTsUnixMs,
		"end_ts":   r.EndTsUnixMs,
		"status":   string(r.Status),
	}).Err(); err != nil {
		return err
	}
	return s.rdb.Set(ctx, keyCurrent, sk, 0).Err()
}

// Current retorna a rodada apontada pelo ponteiro corrente
func (s *Store) Current(ctx context.Context) (Round, error) {
	sk, err := s.rdb.Get(ctx, keyCurrent).Result()
	if err == redis.Nil {
		return Round{}, ErrNoActiveRound
	}
	if err != nil {
		return Round{}, err
	}
	return s.readState(ctx, sk)
}

// Get retorna o estado rápido de uma rodada pelo id
func (s *Store) Get(ctx context.Context, roundID string) (Round, error) {
	return s.readState(ctx, keyState(roundID))
}

func (s *Store) readState(ctx context.Context, stateKey string) (Round, error) {
	m, err := s.rdb.HGetAll(ctx, stateKey).Result()
	if err != nil {
		return Round{}, err
	}
	if len(m) == 0 || m["id"] == "" {
		return Round{}, ErrNoActiveRound
	}
	start, _ := strconv.ParseInt(m["start_ts"], 10, 64)
	end, _ := strconv.ParseInt(m["end_ts"], 10, 64)
	return Round{
		ID:            m["id"],
		StartTsUnixMs: start,
		EndTsUnixMs:   end,
		Status:        Status(m["status"]),
	}, nil
}

// SetStatus grava o novo status no hash da rodada. O status é monotônico:
// escrita que regrediria (retry atrasado, boundary duplicado) é descartada.
func (s *Store) SetStatus(ctx context.Context, roundID string, st Status) error {
	cur, err := s.rdb.HGet(ctx, keyState(roundID), "status").Result()
	if err != nil && err != redis.Nil {
		return err
	}
	if err == nil && !Status(cur).CanAdvance(st) {
		return nil
	}
	return s.rdb.HSet(ctx, keyState(roundID), "status", string(st)).Err()
}

// NextSequence incrementa o contador diário de rodadas (INCR atômico).
// O contador expira em 24h pra sequência recomeçar a cada dia.
func (s *Store) NextSequence(ctx context.Context, day time.Time) (int64, error) {
	k := keySequence(day.Format("20060102"))
	seq, err := s.rdb.Incr(ctx, k).Result()
	if err != nil {
		return 0, err
	}
	_ = s.rdb.Expire(ctx, k, 24*time.Hour).Err()
	return seq, nil
}

// Mode retorna o modo de seleção vigente (MAX_PROFIT por default)
func (s *Store) Mode(ctx context.Context) (string, error) {
	v, err := s.rdb.Get(ctx, keyMode).Result()
	if err == redis.Nil {
		return "MAX_PROFIT", nil
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

func (s *Store) SetMode(ctx context.Context, mode string) error {
	return s.rdb.Set(ctx, keyMode, mode, 0).Err()
}

// FreezeOutcome congela o resultado via SET NX: primeiro a escrever ganha,
// então a corrida entre o freeze agendado e o fallback do reveal nunca
// sobrescreve um resultado já congelado.
func (s *Store) FreezeOutcome(ctx context.Context, roundID string, out events.Outcome) (bool, error) {
	b, err := json.Marshal(out)
	if err != nil {
		return false, err
	}
	return s.rdb.SetNX(ctx, keyResult(roundID), b, 0).Result()
}

// ForceOutcome grava um resultado administrativo. SET simples: forced sempre
// pode preemptar um resultado calculado. Marca também o flag forced da rodada.
func (s *Store) ForceOutcome(ctx context.Context, roundID string, out events.Outcome) error {
	b, err := json.Marshal(out)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, keyResult(roundID), b, 0).Err(); err != nil {
		return err
	}
	return s.rdb.Set(ctx, keyForced(roundID), "1", 0).Err()
}

// FrozenOutcome lê o resultado congelado; nil quando ainda não existe
func (s *Store) FrozenOutcome(ctx context.Context, roundID string) (*events.Outcome, error) {
	v, err := s.rdb.Get(ctx, keyResult(roundID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out events.Outcome
	if err := json.Unmarshal([]byte(v), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// IsForced reporta se a rodada tem resultado forçado pelo admin
func (s *Store) IsForced(ctx context.Context, roundID string) (bool, error) {
	n, err := s.rdb.Exists(ctx, keyForced(roundID)).Result()
	return n > 0, err
}

func (s *Store) ClearForced(ctx context.Context, roundID string) error {
	return s.rdb.Del(ctx, keyForced(roundID)).Err()
}

// PushWager anexa o snapshot de uma aposta na lista da rodada
func (s *Store) PushWager(ctx context.Context, roundID string, wagerJSON []byte) error {
	return s.rdb.LPush(ctx, keyWagers(roundID), wagerJSON).Err()
}

// PushVioletWindow registra na janela deslizante se a rodada saiu violet.
// LPUSH + LTRIM mantém só as últimas windowSize rodadas.
func (s *Store) PushVioletWindow(ctx context.Context, violet bool) error {
	v := "0"
	if violet {
		v = "1"
	}
	if err := s.rdb.LPush(ctx, keyVioletWindow, v).Err(); err != nil {
		return err
	}
	return s.rdb.LTrim(ctx, keyVioletWindow, 0, int64(s.windowSize-1)).Err()
}

// VioletWindowCount conta quantas rodadas da janela saíram violet
func (s *Store) VioletWindowCount(ctx context.Context) (int, error) {
	vals, err := s.rdb.LRange(ctx, keyVioletWindow, 0, int64(s.windowSize-1)).Result()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, v := range vals {
		if v == "1" {
			n++
		}
	}
	return n, nil
}

// IncrRoundCount incrementa o contador global de rodadas concluídas
func (s *Store) IncrRoundCount(ctx context.Context) error {
	return s.rdb.Incr(ctx, keyRoundCount).Err()
}

// RoundCount retorna o contador global de rodadas (dashboard)
func (s *Store) RoundCount(ctx context.Context) (int64, error) {
	v, err := s.rdb.Get(ctx, keyRoundCount).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(v, 10, 64)
}

// ClearRound descarta as chaves rápidas da rodada depois da liquidação.
// O registro durável fica no Postgres para auditoria.
func (s *Store) ClearRound(ctx context.Context, roundID string) error {
	return s.rdb.Del(ctx,
		keyWagers(roundID),
		keyForced(roundID),
		keyResult(roundID),
		keyState(roundID),
	).Err()
}
