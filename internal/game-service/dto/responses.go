package dto

import (
	"time"

	"github.com/radieske/wingo-game-platform/pkg/contracts/events"
)

type PlaceWagersResponse struct {
	RoundID string   `json:"roundId"`
	BetIDs  []string `json:"betIds"`
}

type ModeResponse struct {
	Mode string `json:"mode"`
}

type ForceResultResponse struct {
	RoundID string         `json:"roundId"`
	Outcome events.Outcome `json:"outcome"`
}

type CurrentRoundResponse struct {
	RoundID       string `json:"roundId"`
	Status        string `json:"status"`
	StartTsUnixMs int64  `json:"start_ts_unix_ms"`
	EndTsUnixMs   int64  `json:"end_ts_unix_ms"`
	RemainingMs   int64  `json:"remaining_ms"`
}

type DashboardResponse struct {
	Round             *CurrentRoundResponse `json:"round"`
	Mode              string                `json:"mode"`
	VioletWindowCount int                   `json:"violetWindowCount"`
	RoundCount        int64                 `json:"roundCount"`
}

type WalletResponse struct {
	UserID         string `json:"userId"`
	AvailableCents int64  `json:"available_cents"`
	LockedCents    int64  `json:"locked_cents"`
}

type LedgerEntryResponse struct {
	Kind              string    `json:"kind"`
	RoundID           string    `json:"roundId"`
	AmountCents       int64     `json:"amount_cents"`
	BalanceAfterCents int64     `json:"balance_after_cents"`
	Meta              string    `json:"meta"`
	CreatedAt         time.Time `json:"created_at"`
}

type WagerResponse struct {
	BetID          string    `json:"betId"`
	RoundID        string    `json:"roundId"`
	Category       string    `json:"type"`
	Option         string    `json:"option"`
	AmountCents    int64     `json:"amount_cents"`
	NetAmountCents int64     `json:"net_amount_cents"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}

type AuditResponse struct {
	RoundID string          `json:"roundId"`
	Status  string          `json:"status"`
	StartTs time.Time       `json:"start_ts"`
	EndTs   time.Time       `json:"end_ts"`
	Outcome *events.Outcome `json:"outcome,omitempty"`
}
