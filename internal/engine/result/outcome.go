package result

import (
	"strconv"
	"strings"

	"github.com/radieske/wingo-game-platform/internal/engine/exposure"
	"github.com/radieske/wingo-game-platform/internal/engine/repo"
	"github.com/radieske/wingo-game-platform/pkg/contracts/events"
)

const (
	ColorRed   = "RED"
	ColorGreen = "GREEN"
	SizeBig    = "BIG"
	SizeSmall  = "SMALL"

	ModeMaxProfit = "MAX_PROFIT"
	ModeMaxLoss   = "MAX_LOSS"
)

// Multiplicadores de payout, em centésimos (200 = 2.0x)
const (
	multColor        int64 = 200
	multSize         int64 = 200
	multNumber       int64 = 900
	multViolet       int64 = 450
	multColorPartial int64 = 150 // bônus parcial de cor quando sai violet
)

// Candidate é um dos dez resultados possíveis (0–9).
// Color, size e violet derivam deterministicamente do número.
type Candidate struct {
	Number         int
	Color          string
	Size           string
	IncludesViolet bool
}

// CandidateFor mapeia um número no seu candidato:
// ímpar = GREEN, par = RED; 0–4 = SMALL, 5–9 = BIG; violet em 0 e 5.
func CandidateFor(n int) Candidate {
	c := Candidate{Number: n, Color: ColorRed, Size: SizeBig}
	if n%2 == 1 {
		c.Color = ColorGreen
	}
	if n <= 4 {
		c.Size = SizeSmall
	}
	c.IncludesViolet = n == 0 || n == 5
	return c
}

// Candidates retorna a tabela fixa dos dez resultados possíveis
func Candidates() []Candidate {
	out := make([]Candidate, 10)
	for n := 0; n <= 9; n++ {
		out[n] = CandidateFor(n)
	}
	return out
}

// PayoutFor calcula o payout teórico da casa se o candidato for revelado:
// cor ×2, tamanho ×2, número ×9, mais violet ×4.5 e o bônus parcial ×1.5
// da cor do candidato quando ele carrega o adjunto. Tudo em centavos.
func PayoutFor(c Candidate, snap exposure.Snapshot) int64 {
	total := snap.Color[strings.ToLower(c.Color)] * multColor / 100
	total += snap.Size[strings.ToLower(c.Size)] * multSize / 100
	total += snap.Number[strconv.Itoa(c.Number)] * multNumber / 100

	if c.IncludesViolet {
		total += snap.Violet() * multViolet / 100
		total += snap.Color[strings.ToLower(c.Color)] * multColorPartial / 100
	}
	return total
}

// Multiplier é a função total categoria+resultado → multiplicador.
// Retorna o multiplicador em centésimos e se a aposta ganhou.
func Multiplier(cat repo.Category, option string, out events.Outcome) (int64, bool) {
	switch cat {
	case repo.CategoryColor:
		if option == out.Color {
			return multColor, true
		}
		// bônus parcial: cor base ganha 1.5x quando o resultado carrega violet
		if out.IncludesViolet && (option == ColorRed || option == ColorGreen) {
			return multColorPartial, true
		}
	case repo.CategorySize:
		if option == out.Size {
			return multSize, true
		}
	case repo.CategoryNumber:
		if option == strconv.Itoa(out.Number) {
			return multNumber, true
		}
	case repo.CategoryViolet:
		if out.IncludesViolet {
			return multViolet, true
		}
	}
	return 0, false
}

// Payout aplica o multiplicador sobre o valor líquido da aposta
func Payout(netCents int64, multHundredths int64) int64 {
	return netCents * multHundredths / 100
}
