package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	enginerepo "github.com/radieske/wingo-game-platform/internal/engine/repo"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotFound          = errors.New("not found")
)

// Postgres implementa carteira e ledger no banco.
// Toda mutação de saldo roda numa transação com FOR UPDATE na linha da
// carteira: é isso que serializa lotes concorrentes do mesmo usuário.
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// Wallet é o saldo corrente de um usuário
type Wallet struct {
	ID             string
	UserID         string
	AvailableCents int64
	LockedCents    int64
}

// LedgerEntry é um registro imutável da trilha de auditoria
type LedgerEntry struct {
	ID               int64
	UserID           string
	RoundID          string
	Kind             string // DEBIT | CREDIT | FEE
	AmountCents      int64
	BalanceAfterCent int64
	Meta             string
	CreatedAt        time.Time
}

// GetOrCreate retorna a carteira do usuário, criando-a zerada se não existir
func (p *Postgres) GetOrCreate(ctx context.Context, userID string) (Wallet, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return Wallet{}, err
	}
	defer tx.Rollback()

	w, err := getOrCreateTx(ctx, tx, userID, false)
	if err != nil {
		return Wallet{}, err
	}
	if err := tx.Commit(); err != nil {
		return Wallet{}, err
	}
	return w, nil
}

// getOrCreateTx busca a carteira dentro da transação; forUpdate trava a linha
func getOrCreateTx(ctx context.Context, tx *sql.Tx, userID string, forUpdate bool) (Wallet, error) {
	q := `SELECT id, available_cents, locked_cents FROM wallets WHERE user_id=$1`
	if forUpdate {
		q += ` FOR UPDATE`
	}

	var w Wallet
	w.UserID = userID
	err := tx.QueryRowContext(ctx, q, userID).Scan(&w.ID, &w.AvailableCents, &w.LockedCents)
	if err == sql.ErrNoRows {
		w.ID = uuid.NewString()
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO wallets(id, user_id, available_cents, locked_cents) VALUES($1,$2,0,0)`,
			w.ID, userID); err != nil {
			return Wallet{}, err
		}
		return w, nil
	}
	if err != nil {
		return Wallet{}, err
	}
	return w, nil
}

// Deposit credita saldo disponível e registra no ledger
func (p *Postgres) Deposit(ctx context.Context, userID string, amountCents int64, externalRef string) (int64, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	w, err := getOrCreateTx(ctx, tx, userID, true)
	if err != nil {
		return 0, err
	}

	newBal := w.AvailableCents + amountCents
	if _, err := tx.ExecContext(ctx,
		`UPDATE wallets SET available_cents=$1 WHERE id=$2`, newBal, w.ID); err != nil {
		return 0, err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO wallet_ledger(user_id, round_id, kind, amount_cents, balance_after_cents, meta)
		VALUES($1, '', 'CREDIT', $2, $3, $4)`,
		userID, amountCents, newBal, "deposit:"+externalRef); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return newBal, nil
}

// DebitForWagers aplica o débito do lote de apostas numa transação única:
// available -= bruto+taxa, locked += bruto, uma entrada DEBIT e uma FEE no
// ledger, e as próprias apostas inseridas como PENDING. Ou tudo commita ou
// nada commita: nenhuma leitura intercalada observa lote pela metade.
func (p *Postgres) DebitForWagers(ctx context.Context, userID, roundID string, wagers []enginerepo.Wager, feeCents int64) error {
	var grossCents int64
	for _, w := range wagers {
		grossCents += w.AmountCents
	}
	totalDebit := grossCents + feeCents

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	w, err := getOrCreateTx(ctx, tx, userID, true)
	if err != nil {
		return err
	}

	if w.AvailableCents < totalDebit {
		return ErrInsufficientFunds
	}

	newAvailable := w.AvailableCents - totalDebit
	newLocked := w.LockedCents + grossCents
	if _, err := tx.ExecContext(ctx,
		`UPDATE wallets SET available_cents=$1, locked_cents=$2 WHERE id=$3`,
		newAvailable, newLocked, w.ID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO wallet_ledger(user_id, round_id, kind, amount_cents, balance_after_cents, meta)
		VALUES($1, $2, 'DEBIT', $3, $4, $5)`,
		userID, roundID, grossCents, newAvailable, "bets:"+roundID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO wallet_ledger(user_id, round_id, kind, amount_cents, balance_after_cents, meta)
		VALUES($1, $2, 'FEE', $3, $4, $5)`,
		userID, roundID, feeCents, newAvailable, "fee:"+roundID); err != nil {
		return err
	}

	for _, wg := range wagers {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO wagers(id, user_id, round_id, category, option, amount_cents, net_amount_cents, status)
			VALUES($1,$2,$3,$4,$5,$6,$7,'PENDING')`,
			wg.ID, wg.UserID, wg.RoundID, wg.Category, wg.Option, wg.AmountCents, wg.NetAmountCents); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SettleWager liquida uma aposta: libera o bruto do locked e, se ganhou,
// credita o payout com entrada CREDIT, marcando WON/LOST na mesma transação.
// Idempotente: aposta que já saiu de PENDING não é tocada de novo.
func (p *Postgres) SettleWager(ctx context.Context, wg enginerepo.Wager, payoutCents int64, won bool) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var status string
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM wagers WHERE id=$1 FOR UPDATE`, wg.ID).Scan(&status)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if status != enginerepo.WagerPending {
		return nil // já liquidada
	}

	w, err := getOrCreateTx(ctx, tx, wg.UserID, true)
	if err != nil {
		return err
	}

	newLocked := w.LockedCents - wg.AmountCents
	newAvailable := w.AvailableCents
	finalStatus := enginerepo.WagerLost

	if won {
		newAvailable += payoutCents
		finalStatus = enginerepo.WagerWon
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE wallets SET available_cents=$1, locked_cents=$2 WHERE id=$3`,
		newAvailable, newLocked, w.ID); err != nil {
		return err
	}

	if won {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO wallet_ledger(user_id, round_id, kind, amount_cents, balance_after_cents, meta)
			VALUES($1, $2, 'CREDIT', $3, $4, $5)`,
			wg.UserID, wg.RoundID, payoutCents, newAvailable, "payout:"+wg.ID); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE wagers SET status=$1 WHERE id=$2`, finalStatus, wg.ID); err != nil {
		return err
	}

	return tx.Commit()
}

// History retorna as últimas entradas do ledger do usuário
func (p *Postgres) History(ctx context.Context, userID string, limit int) ([]LedgerEntry, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, user_id, round_id, kind, amount_cents, balance_after_cents, meta, created_at
		FROM wallet_ledger WHERE user_id=$1
		ORDER BY id DESC
		LIMIT $2`, userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.RoundID, &e.Kind,
			&e.AmountCents, &e.BalanceAfterCent, &e.Meta, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
