package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/radieske/wingo-game-platform/pkg/contracts/events"
)

var ErrRoundNotFound = errors.New("round not found")

// Postgres persiste rodadas e apostas no banco durável.
// Rodadas ficam pra sempre (auditoria); a inserção das apostas acontece na
// mesma transação do débito da carteira, no repositório de wallet.
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// RoundRecord é o registro durável de uma rodada
type RoundRecord struct {
	ID        string
	Status    string
	StartTs   time.Time
	EndTs     time.Time
	Outcome   *events.Outcome
	CreatedAt time.Time
}

// InsertRound cria o registro durável da rodada com status BETTING
func (p *Postgres) InsertRound(ctx context.Context, id string, startTs, endTs time.Time) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO rounds (id, status, start_ts, end_ts)
		VALUES ($1, 'BETTING', $2, $3)`,
		id, startTs, endTs,
	)
	return err
}

// UpdateStatus avança o status durável da rodada
func (p *Postgres) UpdateStatus(ctx context.Context, id string, status string) error {
	res, err := p.db.ExecContext(ctx, `UPDATE rounds SET status=$1 WHERE id=$2`, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRoundNotFound
	}
	return nil
}

// MarkSettled grava o resultado final e fecha a rodada em SETTLED
func (p *Postgres) MarkSettled(ctx context.Context, id string, out events.Outcome) error {
	b, err := json.Marshal(out)
	if err != nil {
		return err
	}
	res, err := p.db.ExecContext(ctx, `
		UPDATE rounds SET status='SETTLED', result=$1 WHERE id=$2`,
		b, id,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRoundNotFound
	}
	return nil
}

// GetRound retorna o registro durável de uma rodada (trilha de auditoria)
func (p *Postgres) GetRound(ctx context.Context, id string) (RoundRecord, error) {
	var r RoundRecord
	var result sql.NullString
	err := p.db.QueryRowContext(ctx, `
		SELECT id, status, start_ts, end_ts, result, created_at
		FROM rounds WHERE id=$1`, id,
	).Scan(&r.ID, &r.Status, &r.StartTs, &r.EndTs, &result, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return RoundRecord{}, ErrRoundNotFound
	}
	if err != nil {
		return RoundRecord{}, err
	}
	if result.Valid {
		var out events.Outcome
		if err := json.Unmarshal([]byte(result.String), &out); err == nil {
			r.Outcome = &out
		}
	}
	return r, nil
}

// ListPendingByRound carrega as apostas ainda PENDING de uma rodada.
// É o guarda de idempotência da liquidação: aposta já processada nunca volta.
func (p *Postgres) ListPendingByRound(ctx context.Context, roundID string) ([]Wager, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, user_id, round_id, category, option, amount_cents, net_amount_cents, status, created_at
		FROM wagers WHERE round_id=$1 AND status='PENDING'
		ORDER BY created_at`, roundID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Wager
	for rows.Next() {
		var w Wager
		if err := rows.Scan(&w.ID, &w.UserID, &w.RoundID, &w.Category, &w.Option,
			&w.AmountCents, &w.NetAmountCents, &w.Status, &w.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// ListStuck devolve rodadas CLOSED/REVEALED que ainda têm apostas PENDING.
// Alvo do guard sweep: rodadas deixadas pra trás por um worker que morreu.
func (p *Postgres) ListStuck(ctx context.Context) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT DISTINCT r.id
		FROM rounds r
		WHERE r.status IN ('CLOSED','REVEALED')
		  AND EXISTS (SELECT 1 FROM wagers w WHERE w.round_id = r.id AND w.status='PENDING')
		ORDER BY r.id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListWagersByUser retorna as apostas de um usuário, mais recentes primeiro
func (p *Postgres) ListWagersByUser(ctx context.Context, userID string, limit int) ([]Wager, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, user_id, round_id, category, option, amount_cents, net_amount_cents, status, created_at
		FROM wagers WHERE user_id=$1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Wager
	for rows.Next() {
		var w Wager
		if err := rows.Scan(&w.ID, &w.UserID, &w.RoundID, &w.Category, &w.Option,
			&w.AmountCents, &w.NetAmountCents, &w.Status, &w.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
