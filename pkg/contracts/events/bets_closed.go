package events

// Evento publicado no boundary de fechamento, antes do freeze do resultado.
type BetsClosed struct {
	RoundID  string `json:"round_id"`
	TsUnixMs int64  `json:"ts_unix_ms"`
}
