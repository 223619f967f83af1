package topics

const (
	// Ciclo de vida da rodada
	RoundStarted   = "round_started"
	BetsClosed     = "bets_closed"
	ResultRevealed = "result_revealed"
)
