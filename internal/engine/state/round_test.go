package state

import (
	"testing"
	"time"
)

func TestRoundID(t *testing.T) {
	day := time.Date(2026, 1, 3, 10, 30, 0, 0, time.UTC)

	if got := RoundID(day, 1); got != "2026010300001" {
		t.Fatalf("RoundID = %s, want 2026010300001", got)
	}
	if got := RoundID(day, 180); got != "2026010300180" {
		t.Fatalf("RoundID = %s, want 2026010300180", got)
	}

	// ids do mesmo dia ordenam lexicamente por sequência
	if RoundID(day, 9) >= RoundID(day, 10) {
		t.Fatal("round ids not lexically sortable")
	}
	// e dias diferentes ordenam por data
	next := day.AddDate(0, 0, 1)
	if RoundID(day, 99999) >= RoundID(next, 1) {
		t.Fatal("round ids not sortable across days")
	}
}

func TestStatusCanAdvance(t *testing.T) {
	order := []Status{StatusBetting, StatusClosed, StatusRevealed, StatusSettled}
	for i, from := range order {
		for j, to := range order {
			want := j > i
			if got := from.CanAdvance(to); got != want {
				t.Errorf("%s -> %s = %v, want %v", from, to, got, want)
			}
		}
	}

	// status desconhecido (hash vazio ou corrompido) nunca bloqueia a escrita
	for _, to := range order {
		if !Status("").CanAdvance(to) {
			t.Errorf("unknown status should not block advance to %s", to)
		}
	}
}

func TestRoundRemaining(t *testing.T) {
	now := time.Now()
	r := Round{EndTsUnixMs: now.Add(12 * time.Second).UnixMilli()}

	got := r.Remaining(now)
	if got < 11900*time.Millisecond || got > 12*time.Second {
		t.Fatalf("remaining = %v, want ~12s", got)
	}

	past := Round{EndTsUnixMs: now.Add(-time.Second).UnixMilli()}
	if past.Remaining(now) > 0 {
		t.Fatal("remaining should be negative after end")
	}
}
