package dto

// WagerInput é uma aposta individual do lote
type WagerInput struct {
	Category    string `json:"type"`   // COLOR | SIZE | NUMBER | VIOLET
	Option      string `json:"option"` // RED/GREEN | BIG/SMALL | "0".."9" | vazio pra VIOLET
	AmountCents int64  `json:"amount_cents"`
}

type PlaceWagersRequest struct {
	UserID  string       `json:"userId"`
	RoundID string       `json:"roundId"`
	Bets    []WagerInput `json:"bets"`
}

type SetModeRequest struct {
	Mode string `json:"mode"` // MAX_PROFIT | MAX_LOSS
}

type ForceResultRequest struct {
	RoundID string `json:"roundId"`
	Number  *int   `json:"number"` // 0–9; ponteiro pra distinguir 0 de ausente
}

type DepositRequest struct {
	UserID      string `json:"userId"`
	AmountCents int64  `json:"amount_cents"`
	ExternalRef string `json:"externalRef"`
}
