package repo

import "time"

// Category é o tipo fechado de aposta. VIOLET é o adjunto de cor:
// não tem option própria e conta no slot violet da exposição de cor.
type Category string

const (
	CategoryColor  Category = "COLOR"
	CategorySize   Category = "SIZE"
	CategoryNumber Category = "NUMBER"
	CategoryViolet Category = "VIOLET"
)

// Status da aposta. Escrito uma única vez pela liquidação.
const (
	WagerPending = "PENDING"
	WagerWon     = "WON"
	WagerLost    = "LOST"
)

// Wager é uma aposta committed contra uma rodada.
// Imutável depois de criada, exceto o status.
type Wager struct {
	ID             string    `json:"betId"`
	UserID         string    `json:"userId"`
	RoundID        string    `json:"roundId"`
	Category       Category  `json:"type"`
	Option         string    `json:"option"` // "RED"/"GREEN" | "BIG"/"SMALL" | "0".."9" | "" pra VIOLET
	AmountCents    int64     `json:"amount_cents"`     // valor bruto
	NetAmountCents int64     `json:"net_amount_cents"` // bruto menos taxa; base dos multiplicadores
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at"`
}
