package state

import (
	"fmt"
	"time"
)

// Status da rodada. Monotônico: nunca regride.
type Status string

const (
	StatusBetting  Status = "BETTING"
	StatusClosed   Status = "CLOSED"
	StatusRevealed Status = "REVEALED"
	StatusSettled  Status = "SETTLED"
)

// rank ordena os status para validar transições
func (s Status) rank() int {
	switch s {
	case StatusBetting:
		return 0
	case StatusClosed:
		return 1
	case StatusRevealed:
		return 2
	case StatusSettled:
		return 3
	}
	return -1
}

// CanAdvance reporta se a transição s -> to respeita a máquina de estados
func (s Status) CanAdvance(to Status) bool {
	return to.rank() > s.rank()
}

// Round é o estado rápido de uma rodada, espelhado no hash Redis
type Round struct {
	ID            string
	StartTsUnixMs int64
	EndTsUnixMs   int64
	Status        Status
}

// Remaining retorna quanto falta até o fim da rodada no instante dado
func (r Round) Remaining(now time.Time) time.Duration {
	return time.Duration(r.EndTsUnixMs-now.UnixMilli()) * time.Millisecond
}

// RoundID monta o identificador data+sequência: YYYYMMDD + seq com 5 dígitos.
// Único por construção e ordenável lexicamente.
func RoundID(t time.Time, seq int64) string {
	return fmt.Sprintf("%s%05d", t.Format("20060102"), seq)
}
