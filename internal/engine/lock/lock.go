package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker implementa exclusão mútua distribuída com chaves expirantes no Redis.
// Aquisição é um único SET NX com TTL; quem não consegue o lock simplesmente
// pula o ciclo. Não há renovação: o TTL curto é a garantia de recuperação
// quando o dono morre no meio.
type Locker struct {
	rdb   *redis.Client
	owner string // token do processo, gravado como valor do lock
}

func New(rdb *redis.Client) *Locker {
	return &Locker{rdb: rdb, owner: uuid.NewString()}
}

// Acquire tenta obter o lock da chave pelo TTL dado.
// Retorna false quando outro worker já o detém.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.rdb.SetNX(ctx, key, l.owner, ttl).Result()
}

// Release solta o lock se ainda for nosso. Best-effort: a expiração do TTL
// é quem garante a correção, o release só reduz a latência do próximo dono.
func (l *Locker) Release(ctx context.Context, key string) {
	const script = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`
	_ = l.rdb.Eval(ctx, script, []string{key}, l.owner).Err()
}
