package betting

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/wingo-game-platform/internal/engine/repo"
	"github.com/radieske/wingo-game-platform/internal/engine/state"
	walletrepo "github.com/radieske/wingo-game-platform/internal/wallet/repo"
)

type fakeRounds struct {
	cur    state.Round
	curErr error
	pushed int
}

func (f *fakeRounds) Current(ctx context.Context) (state.Round, error) {
	return f.cur, f.curErr
}

func (f *fakeRounds) PushWager(ctx context.Context, roundID string, wagerJSON []byte) error {
	f.pushed++
	return nil
}

type fakeWallet struct {
	err error

	userID  string
	roundID string
	wagers  []repo.Wager
	fee     int64
	calls   int
}

func (f *fakeWallet) DebitForWagers(ctx context.Context, userID, roundID string, wagers []repo.Wager, feeCents int64) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.userID = userID
	f.roundID = roundID
	f.wagers = wagers
	f.fee = feeCents
	return nil
}

type fakeExposure struct {
	color  map[string]int64
	size   map[string]int64
	number map[string]int64
}

func newFakeExposure() *fakeExposure {
	return &fakeExposure{
		color:  map[string]int64{},
		size:   map[string]int64{},
		number: map[string]int64{},
	}
}

func (f *fakeExposure) AddColor(ctx context.Context, roundID, color string, netCents int64) error {
	f.color[color] += netCents
	return nil
}

func (f *fakeExposure) AddSize(ctx context.Context, roundID, size string, netCents int64) error {
	f.size[size] += netCents
	return nil
}

func (f *fakeExposure) AddNumber(ctx context.Context, roundID, number string, netCents int64) error {
	f.number[number] += netCents
	return nil
}

const (
	feeRateBps  = 200
	gracePeriod = 5 * time.Second
)

func newTestService(rounds *fakeRounds, wallet *fakeWallet, exp *fakeExposure, now time.Time) *Service {
	s := NewService(zap.NewNop(), rounds, wallet, exp, feeRateBps, gracePeriod)
	s.now = func() time.Time { return now }
	return s
}

func openRound(id string, now time.Time, remaining time.Duration) state.Round {
	return state.Round{
		ID:            id,
		StartTsUnixMs: now.Add(remaining - 30*time.Second).UnixMilli(),
		EndTsUnixMs:   now.Add(remaining).UnixMilli(),
		Status:        state.StatusBetting,
	}
}

func TestPlaceWagersDebitsBatchAtomically(t *testing.T) {
	now := time.Now()
	rounds := &fakeRounds{cur: openRound("r1", now, 20*time.Second)}
	wallet := &fakeWallet{}
	exp := newFakeExposure()
	svc := newTestService(rounds, wallet, exp, now)

	ids, err := svc.PlaceWagers(context.Background(), "u1", "r1", []Input{
		{Category: repo.CategoryColor, Option: "RED", AmountCents: 10000},
		{Category: repo.CategoryNumber, Option: "7", AmountCents: 5000},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 {
		t.Fatalf("ids = %d, want 2", len(ids))
	}

	// um único débito pro lote inteiro: bruto 150.00, taxa 2% = 3.00
	if wallet.calls != 1 {
		t.Fatalf("wallet calls = %d, want 1", wallet.calls)
	}
	if wallet.fee != 300 {
		t.Fatalf("fee = %d, want 300", wallet.fee)
	}
	var gross int64
	for _, w := range wallet.wagers {
		gross += w.AmountCents
	}
	if gross != 15000 {
		t.Fatalf("gross = %d, want 15000", gross)
	}

	// net = bruto - taxa, base dos multiplicadores
	if wallet.wagers[0].NetAmountCents != 9800 {
		t.Fatalf("net[0] = %d, want 9800", wallet.wagers[0].NetAmountCents)
	}
	if wallet.wagers[1].NetAmountCents != 4900 {
		t.Fatalf("net[1] = %d, want 4900", wallet.wagers[1].NetAmountCents)
	}
	for _, w := range wallet.wagers {
		if w.Status != repo.WagerPending {
			t.Fatalf("wager status = %s, want PENDING", w.Status)
		}
	}

	// exposições incrementadas pelo net
	if exp.color["RED"] != 9800 {
		t.Fatalf("color exposure = %d, want 9800", exp.color["RED"])
	}
	if exp.number["7"] != 4900 {
		t.Fatalf("number exposure = %d, want 4900", exp.number["7"])
	}
	if rounds.pushed != 2 {
		t.Fatalf("snapshots pushed = %d, want 2", rounds.pushed)
	}
}

func TestPlaceWagersVioletGoesToColorBucket(t *testing.T) {
	now := time.Now()
	rounds := &fakeRounds{cur: openRound("r1", now, 20*time.Second)}
	exp := newFakeExposure()
	svc := newTestService(rounds, &fakeWallet{}, exp, now)

	if _, err := svc.PlaceWagers(context.Background(), "u1", "r1", []Input{
		{Category: repo.CategoryViolet, AmountCents: 10000},
	}); err != nil {
		t.Fatal(err)
	}
	if exp.color["VIOLET"] != 9800 {
		t.Fatalf("violet exposure = %d, want 9800", exp.color["VIOLET"])
	}
}

func TestPlaceWagersGates(t *testing.T) {
	now := time.Now()

	cases := []struct {
		name    string
		rounds  *fakeRounds
		roundID string
		want    error
	}{
		{
			"no active round",
			&fakeRounds{curErr: state.ErrNoActiveRound},
			"r1", ErrNoActiveRound,
		},
		{
			"round mismatch",
			&fakeRounds{cur: openRound("r2", now, 20*time.Second)},
			"r1", ErrRoundMismatch,
		},
		{
			"betting closed",
			&fakeRounds{cur: func() state.Round {
				r := openRound("r1", now, 20*time.Second)
				r.Status = state.StatusClosed
				return r
			}()},
			"r1", ErrBettingClosed,
		},
		{
			"inside grace period",
			&fakeRounds{cur: openRound("r1", now, 4*time.Second)},
			"r1", ErrInsideGracePeriod,
		},
		{
			"grace boundary is inclusive",
			&fakeRounds{cur: openRound("r1", now, 5*time.Second)},
			"r1", ErrInsideGracePeriod,
		},
	}

	for _, tc := range cases {
		wallet := &fakeWallet{}
		svc := newTestService(tc.rounds, wallet, newFakeExposure(), now)
		_, err := svc.PlaceWagers(context.Background(), "u1", tc.roundID, []Input{
			{Category: repo.CategoryColor, Option: "RED", AmountCents: 1000},
		})
		if !errors.Is(err, tc.want) {
			t.Errorf("%s: err = %v, want %v", tc.name, err, tc.want)
		}
		if wallet.calls != 0 {
			t.Errorf("%s: wallet touched on rejection", tc.name)
		}
	}
}

func TestPlaceWagersInvalidPayload(t *testing.T) {
	now := time.Now()
	rounds := &fakeRounds{cur: openRound("r1", now, 20*time.Second)}

	cases := []struct {
		name   string
		inputs []Input
	}{
		{"empty batch", nil},
		{"zero amount", []Input{{Category: repo.CategoryColor, Option: "RED"}}},
		{"negative amount", []Input{{Category: repo.CategoryColor, Option: "RED", AmountCents: -100}}},
		{"bad category", []Input{{Category: "SHAPE", Option: "X", AmountCents: 1000}}},
		{"bad color", []Input{{Category: repo.CategoryColor, Option: "BLUE", AmountCents: 1000}}},
		{"violet is not a color option", []Input{{Category: repo.CategoryColor, Option: "VIOLET", AmountCents: 1000}}},
		{"bad size", []Input{{Category: repo.CategorySize, Option: "MEDIUM", AmountCents: 1000}}},
		{"bad number", []Input{{Category: repo.CategoryNumber, Option: "10", AmountCents: 1000}}},
	}

	for _, tc := range cases {
		wallet := &fakeWallet{}
		svc := newTestService(rounds, wallet, newFakeExposure(), now)
		_, err := svc.PlaceWagers(context.Background(), "u1", "r1", tc.inputs)
		if !errors.Is(err, ErrInvalidPayload) {
			t.Errorf("%s: err = %v, want ErrInvalidPayload", tc.name, err)
		}
		if wallet.calls != 0 {
			t.Errorf("%s: wallet touched on invalid payload", tc.name)
		}
	}
}

func TestPlaceWagersInsufficientBalance(t *testing.T) {
	now := time.Now()
	rounds := &fakeRounds{cur: openRound("r1", now, 20*time.Second)}
	wallet := &fakeWallet{err: walletrepo.ErrInsufficientFunds}
	exp := newFakeExposure()
	svc := newTestService(rounds, wallet, exp, now)

	_, err := svc.PlaceWagers(context.Background(), "u1", "r1", []Input{
		{Category: repo.CategoryColor, Option: "RED", AmountCents: 1000},
	})
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}
	// nada de exposição quando o débito falha
	if len(exp.color) != 0 || len(exp.size) != 0 || len(exp.number) != 0 {
		t.Fatal("exposure mutated after rejected debit")
	}
	if rounds.pushed != 0 {
		t.Fatal("wager snapshot pushed after rejected debit")
	}
}
