package exposure

import (
	"context"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Ledger acumula a exposição líquida por rodada em três hashes Redis
// (color/size/number). Incrementos são HINCRBY atômicos em centavos:
// apostas concorrentes nunca fazem read-modify-write. Os contadores só
// crescem enquanto a rodada vive e são descartados na liquidação.
type Ledger struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Ledger { return &Ledger{rdb: rdb} }

func keyColor(roundID string) string  { return "wingo:round:" + roundID + ":exposure:color" }
func keySize(roundID string) string   { return "wingo:round:" + roundID + ":exposure:size" }
func keyNumber(roundID string) string { return "wingo:round:" + roundID + ":exposure:number" }

// Snapshot é a leitura pontual das exposições de uma rodada.
// Campos em minúsculo como no hash: "red", "green", "violet", "big",
// "small", "0".."9". Valores em centavos.
type Snapshot struct {
	Color  map[string]int64
	Size   map[string]int64
	Number map[string]int64
}

// Violet retorna a exposição do adjunto violet (slot do hash de cor)
func (s Snapshot) Violet() int64 { return s.Color["violet"] }

// Total soma todas as exposições; zero significa rodada sem apostas
func (s Snapshot) Total() int64 {
	var t int64
	for _, v := range s.Color {
		t += v
	}
	for _, v := range s.Size {
		t += v
	}
	for _, v := range s.Number {
		t += v
	}
	return t
}

// AddColor incrementa a exposição de uma cor ("RED"/"GREEN"/"VIOLET")
func (l *Ledger) AddColor(ctx context.Context, roundID, color string, netCents int64) error {
	return l.rdb.HIncrBy(ctx, keyColor(roundID), strings.ToLower(color), netCents).Err()
}

// AddSize incrementa a exposição de um tamanho ("BIG"/"SMALL")
func (l *Ledger) AddSize(ctx context.Context, roundID, size string, netCents int64) error {
	return l.rdb.HIncrBy(ctx, keySize(roundID), strings.ToLower(size), netCents).Err()
}

// AddNumber incrementa a exposição de um número ("0".."9")
func (l *Ledger) AddNumber(ctx context.Context, roundID, number string, netCents int64) error {
	return l.rdb.HIncrBy(ctx, keyNumber(roundID), number, netCents).Err()
}

// Snapshot lê as três exposições da rodada
func (l *Ledger) Snapshot(ctx context.Context, roundID string) (Snapshot, error) {
	snap := Snapshot{}
	var err error
	if snap.Color, err = l.readHash(ctx, keyColor(roundID)); err != nil {
		return Snapshot{}, err
	}
	if snap.Size, err = l.readHash(ctx, keySize(roundID)); err != nil {
		return Snapshot{}, err
	}
	if snap.Number, err = l.readHash(ctx, keyNumber(roundID)); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func (l *Ledger) readHash(ctx context.Context, key string) (map[string]int64, error) {
	raw, err := l.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	m := make(map[string]int64, len(raw))
	for k, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue // campo corrompido não derruba a seleção
		}
		m[k] = n
	}
	return m, nil
}

// Clear descarta as exposições depois da liquidação completa da rodada
func (l *Ledger) Clear(ctx context.Context, roundID string) error {
	return l.rdb.Del(ctx, keyColor(roundID), keySize(roundID), keyNumber(roundID)).Err()
}
