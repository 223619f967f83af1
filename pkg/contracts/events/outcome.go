package events

// Outcome é o resultado congelado de uma rodada.
// Number decide tudo: color por paridade, size pela faixa, violet em 0 e 5.
type Outcome struct {
	Number         int    `json:"number"`
	Color          string `json:"color"` // "RED" | "GREEN"
	Size           string `json:"size"`  // "BIG" | "SMALL"
	IncludesViolet bool   `json:"includesViolet"`
	PayoutCents    int64  `json:"payout_cents"` // exposição teórica paga pela casa nesse resultado
	FreezeTsUnixMs int64  `json:"freeze_ts_unix_ms"`
	Forced         bool   `json:"forced"`
}
