package events

// Evento publicado quando o scheduler cria uma rodada nova.
type RoundStarted struct {
	RoundID       string `json:"round_id"`
	StartTsUnixMs int64  `json:"start_ts_unix_ms"`
	EndTsUnixMs   int64  `json:"end_ts_unix_ms"`
}
