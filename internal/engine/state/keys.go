package state

// Chaves Redis do jogo. Mesmo namespace "wingo:" em todos os serviços.

const (
	keyCurrent      = "wingo:round:current"
	keyMode         = "wingo:admin:mode"
	keyRoundCount   = "wingo:counters:round:count"
	keyVioletWindow = "wingo:counters:violet:window"
)

func keyState(roundID string) string  { return "wingo:round:" + roundID + ":state" }
func keyResult(roundID string) string { return "wingo:round:" + roundID + ":result" }
func keyForced(roundID string) string { return "wingo:round:" + roundID + ":forced" }
func keyWagers(roundID string) string { return "wingo:round:" + roundID + ":bets" }
func keySequence(dateKey string) string {
	return "wingo:roundCounter:" + dateKey
}

// Chaves de lock, uma por fase protegida
const (
	LockScheduler = "wingo:locks:scheduler"
	LockSweep     = "wingo:locks:sweep"
)

func LockClose(roundID string) string  { return "wingo:locks:close:" + roundID }
func LockReveal(roundID string) string { return "wingo:locks:reveal:" + roundID }
