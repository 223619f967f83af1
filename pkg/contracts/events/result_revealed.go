package events

// Evento publicado no boundary final da rodada, com o resultado congelado.
type ResultRevealed struct {
	RoundID  string  `json:"round_id"`
	Outcome  Outcome `json:"outcome"`
	TsUnixMs int64   `json:"ts_unix_ms"`
}
