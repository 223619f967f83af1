package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/wingo-game-platform/internal/engine/betting"
	enginerepo "github.com/radieske/wingo-game-platform/internal/engine/repo"
	"github.com/radieske/wingo-game-platform/internal/engine/result"
	"github.com/radieske/wingo-game-platform/internal/engine/state"
	"github.com/radieske/wingo-game-platform/internal/game-service/dto"
	walletrepo "github.com/radieske/wingo-game-platform/internal/wallet/repo"
	"github.com/radieske/wingo-game-platform/pkg/contracts/events"
)

// Betting admite lotes de apostas
type Betting interface {
	PlaceWagers(ctx context.Context, userID, roundID string, inputs []betting.Input) ([]string, error)
}

// StateStore é o que os handlers leem/escrevem do estado rápido
type StateStore interface {
	Current(ctx context.Context) (state.Round, error)
	Mode(ctx context.Context) (string, error)
	SetMode(ctx context.Context, mode string) error
	VioletWindowCount(ctx context.Context) (int, error)
	RoundCount(ctx context.Context) (int64, error)
}

// Selector aplica o resultado forçado do admin
type Selector interface {
	Force(ctx context.Context, roundID string, number int) (events.Outcome, error)
}

// WalletRepo expõe saldo, depósito e histórico
type WalletRepo interface {
	GetOrCreate(ctx context.Context, userID string) (walletrepo.Wallet, error)
	Deposit(ctx context.Context, userID string, amountCents int64, externalRef string) (int64, error)
	History(ctx context.Context, userID string, limit int) ([]walletrepo.LedgerEntry, error)
}

// RoundRepo lê o registro durável pra auditoria e histórico
type RoundRepo interface {
	GetRound(ctx context.Context, id string) (enginerepo.RoundRecord, error)
	ListWagersByUser(ctx context.Context, userID string, limit int) ([]enginerepo.Wager, error)
}

// Server expõe os comandos do jogo por HTTP: apostas, admin e carteira
type Server struct {
	log      *zap.Logger
	betting  Betting
	state    StateStore
	selector Selector
	wallet   WalletRepo
	rounds   RoundRepo
}

func NewServer(log *zap.Logger, b Betting, st StateStore, sel Selector, w WalletRepo, r RoundRepo) *Server {
	return &Server{log: log, betting: b, state: st, selector: sel, wallet: w, rounds: r}
}

// Router retorna o mux HTTP com as rotas da API do jogo
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/bets", s.bets)                    // POST lote, GET ?userId=...
	mux.HandleFunc("/admin/mode", s.mode)                  // GET/POST
	mux.HandleFunc("/admin/force-result", s.forceResult)   // POST
	mux.HandleFunc("/admin/round/current", s.currentRound) // GET
	mux.HandleFunc("/admin/dashboard", s.dashboard)        // GET
	mux.HandleFunc("/admin/audit/", s.audit)               // GET /admin/audit/{roundId}
	mux.HandleFunc("/wallet", s.getWallet)                 // GET ?userId=...
	mux.HandleFunc("/wallet/deposit", s.deposit)           // POST
	mux.HandleFunc("/wallet/ledger", s.ledger)             // GET ?userId=...
	return mux
}

// bets despacha entre admissão de lote (POST) e histórico do usuário (GET)
func (s *Server) bets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.placeWagers(w, r)
	case http.MethodGet:
		s.listWagers(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// placeWagers admite um lote de apostas contra a rodada ativa
func (s *Server) placeWagers(w http.ResponseWriter, r *http.Request) {
	var req dto.PlaceWagersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.RoundID == "" || len(req.Bets) == 0 {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	inputs := make([]betting.Input, 0, len(req.Bets))
	for _, b := range req.Bets {
		inputs = append(inputs, betting.Input{
			Category:    enginerepo.Category(b.Category),
			Option:      b.Option,
			AmountCents: b.AmountCents,
		})
	}

	ids, err := s.betting.PlaceWagers(r.Context(), req.UserID, req.RoundID, inputs)
	if err != nil {
		status := http.StatusConflict
		switch {
		case errors.Is(err, betting.ErrInvalidPayload):
			status = http.StatusBadRequest
		case errors.Is(err, betting.ErrInsufficientBalance):
			status = http.StatusPaymentRequired
		case errors.Is(err, betting.ErrNoActiveRound),
			errors.Is(err, betting.ErrRoundMismatch),
			errors.Is(err, betting.ErrBettingClosed),
			errors.Is(err, betting.ErrInsideGracePeriod):
			status = http.StatusConflict
		default:
			status = http.StatusInternalServerError
			s.log.Error("place wagers", zap.Error(err))
		}
		http.Error(w, err.Error(), status)
		return
	}

	writeJSON(w, dto.PlaceWagersResponse{RoundID: req.RoundID, BetIDs: ids})
}

// listWagers retorna as apostas do usuário, mais recentes primeiro
func (s *Server) listWagers(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId required", http.StatusBadRequest)
		return
	}
	wagers, err := s.rounds.ListWagersByUser(r.Context(), userID, 50)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	out := make([]dto.WagerResponse, 0, len(wagers))
	for _, wg := range wagers {
		out = append(out, dto.WagerResponse{
			BetID:          wg.ID,
			RoundID:        wg.RoundID,
			Category:       string(wg.Category),
			Option:         wg.Option,
			AmountCents:    wg.AmountCents,
			NetAmountCents: wg.NetAmountCents,
			Status:         wg.Status,
			CreatedAt:      wg.CreatedAt,
		})
	}
	writeJSON(w, out)
}

// mode lê ou troca o modo de seleção (processo inteiro)
func (s *Server) mode(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		m, err := s.state.Mode(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, dto.ModeResponse{Mode: m})
	case http.MethodPost:
		var req dto.SetModeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.Mode != result.ModeMaxProfit && req.Mode != result.ModeMaxLoss {
			http.Error(w, "invalid mode", http.StatusBadRequest)
			return
		}
		if err := s.state.SetMode(r.Context(), req.Mode); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, dto.ModeResponse{Mode: req.Mode})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// forceResult grava um resultado administrativo pra rodada ativa.
// Só a rodada corrente aceita força; o selector nunca é consultado.
func (s *Server) forceResult(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.ForceResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.RoundID == "" || req.Number == nil || *req.Number < 0 || *req.Number > 9 {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	cur, err := s.state.Current(r.Context())
	if errors.Is(err, state.ErrNoActiveRound) {
		http.Error(w, "no active round", http.StatusConflict)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if cur.ID != req.RoundID {
		http.Error(w, "round is not current", http.StatusConflict)
		return
	}

	out, err := s.selector.Force(r.Context(), req.RoundID, *req.Number)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, dto.ForceResultResponse{RoundID: req.RoundID, Outcome: out})
}

// currentRound retorna o snapshot da rodada ativa
func (s *Server) currentRound(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	cur, err := s.state.Current(r.Context())
	if errors.Is(err, state.ErrNoActiveRound) {
		http.Error(w, "no active round", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, roundSnapshot(cur))
}

// dashboard retorna estado corrente, modo e contadores num snapshot único
func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	resp := dto.DashboardResponse{}

	if cur, err := s.state.Current(r.Context()); err == nil {
		snap := roundSnapshot(cur)
		resp.Round = &snap
	}
	if m, err := s.state.Mode(r.Context()); err == nil {
		resp.Mode = m
	}
	if n, err := s.state.VioletWindowCount(r.Context()); err == nil {
		resp.VioletWindowCount = n
	}
	if n, err := s.state.RoundCount(r.Context()); err == nil {
		resp.RoundCount = n
	}

	writeJSON(w, resp)
}

// audit retorna o registro durável de uma rodada
func (s *Server) audit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	// path: /admin/audit/{roundId}
	id := r.URL.Path[len("/admin/audit/"):]
	if id == "" {
		http.Error(w, "roundId required", http.StatusBadRequest)
		return
	}

	rec, err := s.rounds.GetRound(r.Context(), id)
	if errors.Is(err, enginerepo.ErrRoundNotFound) {
		http.Error(w, "round not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, dto.AuditResponse{
		RoundID: rec.ID,
		Status:  rec.Status,
		StartTs: rec.StartTs,
		EndTs:   rec.EndTs,
		Outcome: rec.Outcome,
	})
}

// getWallet retorna (ou cria) a carteira do usuário
func (s *Server) getWallet(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId required", http.StatusBadRequest)
		return
	}
	wal, err := s.wallet.GetOrCreate(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, dto.WalletResponse{
		UserID:         userID,
		AvailableCents: wal.AvailableCents,
		LockedCents:    wal.LockedCents,
	})
}

// deposit adiciona saldo à carteira do usuário
func (s *Server) deposit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.AmountCents <= 0 {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	newBal, err := s.wallet.Deposit(r.Context(), req.UserID, req.AmountCents, req.ExternalRef)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, dto.WalletResponse{UserID: req.UserID, AvailableCents: newBal})
}

// ledger retorna o histórico de movimentações do usuário
func (s *Server) ledger(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId required", http.StatusBadRequest)
		return
	}
	entries, err := s.wallet.History(r.Context(), userID, 50)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	out := make([]dto.LedgerEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, dto.LedgerEntryResponse{
			Kind:              e.Kind,
			RoundID:           e.RoundID,
			AmountCents:       e.AmountCents,
			BalanceAfterCents: e.BalanceAfterCent,
			Meta:              e.Meta,
			CreatedAt:         e.CreatedAt,
		})
	}
	writeJSON(w, out)
}

func roundSnapshot(cur state.Round) dto.CurrentRoundResponse {
	remaining := cur.Remaining(time.Now())
	if remaining < 0 {
		remaining = 0
	}
	return dto.CurrentRoundResponse{
		RoundID:       cur.ID,
		Status:        string(cur.Status),
		StartTsUnixMs: cur.StartTsUnixMs,
		EndTsUnixMs:   cur.EndTsUnixMs,
		RemainingMs:   remaining.Milliseconds(),
	}
}

// writeJSON serializa e envia resposta JSON
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
