package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/wingo-game-platform/internal/engine/state"
	"github.com/radieske/wingo-game-platform/pkg/contracts/events"
)

type fakeLocks struct {
	denied   map[string]bool
	held     []string
	released []string
}

func (f *fakeLocks) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if f.denied[key] {
		return false, nil
	}
	f.held = append(f.held, key)
	return true, nil
}

func (f *fakeLocks) Release(ctx context.Context, key string) {
	f.released = append(f.released, key)
}

type fakeState struct {
	rounds   map[string]*state.Round
	seq      int64
	forced   map[string]bool
	frozen   map[string]*events.Outcome
	statuses []state.Status
}

func newFakeState() *fakeState {
	return &fakeState{
		rounds: map[string]*state.Round{},
		forced: map[string]bool{},
		frozen: map[string]*events.Outcome{},
	}
}

func (f *fakeState) NextSequence(ctx context.Context, day time.Time) (int64, error) {
	f.seq++
	return f.seq, nil
}

func (f *fakeState) CreateRound(ctx context.Context, r state.Round) error {
	f.rounds[r.ID] = &r
	return nil
}

func (f *fakeState) Get(ctx context.Context, roundID string) (state.Round, error) {
	r, ok := f.rounds[roundID]
	if !ok {
		return state.Round{}, state.ErrNoActiveRound
	}
	return *r, nil
}

func (f *fakeState) SetStatus(ctx context.Context, roundID string, st state.Status) error {
	f.rounds[roundID].Status = st
	f.statuses = append(f.statuses, st)
	return nil
}

func (f *fakeState) IsForced(ctx context.Context, roundID string) (bool, error) {
	return f.forced[roundID], nil
}

func (f *fakeState) ClearForced(ctx context.Context, roundID string) error {
	delete(f.forced, roundID)
	return nil
}

func (f *fakeState) FrozenOutcome(ctx context.Context, roundID string) (*events.Outcome, error) {
	return f.frozen[roundID], nil
}

type fakeRoundRepo struct {
	inserted []string
	statuses map[string][]string
}

func (f *fakeRoundRepo) InsertRound(ctx context.Context, id string, startTs, endTs time.Time) error {
	f.inserted = append(f.inserted, id)
	return nil
}

func (f *fakeRoundRepo) UpdateStatus(ctx context.Context, id string, status string) error {
	if f.statuses == nil {
		f.statuses = map[string][]string{}
	}
	f.statuses[id] = append(f.statuses[id], status)
	return nil
}

type fakeSelector struct {
	st      *fakeState
	freezes int
}

func (f *fakeSelector) Freeze(ctx context.Context, roundID string) (events.Outcome, error) {
	f.freezes++
	out := events.Outcome{Number: 7, Color: "GREEN", Size: "BIG"}
	f.st.frozen[roundID] = &out
	return out, nil
}

type fakeSettler struct {
	failures int // quantas chamadas falham antes de passar
	calls    int
}

func (f *fakeSettler) SettleRound(ctx context.Context, roundID string, out *events.Outcome) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("transient")
	}
	return nil
}

type fakePublisher struct {
	started  []events.RoundStarted
	closed   []events.BetsClosed
	revealed []events.ResultRevealed
}

func (f *fakePublisher) PublishRoundStarted(ctx context.Context, e events.RoundStarted) error {
	f.started = append(f.started, e)
	return nil
}

func (f *fakePublisher) PublishBetsClosed(ctx context.Context, e events.BetsClosed) error {
	f.closed = append(f.closed, e)
	return nil
}

func (f *fakePublisher) PublishResultRevealed(ctx context.Context, e events.ResultRevealed) error {
	f.revealed = append(f.revealed, e)
	return nil
}

func testConfig() Config {
	return Config{
		RoundDuration:    30 * time.Second,
		GracePeriod:      5 * time.Second,
		TickInterval:     30 * time.Second,
		SchedulerLockTTL: 10 * time.Second,
		PhaseLockTTL:     10 * time.Second,
		SettleRetryDelay: 0, // sem espera nos testes
	}
}

func newTestScheduler(locks *fakeLocks, st *fakeState, rounds *fakeRoundRepo, sel *fakeSelector, settler *fakeSettler, publ *fakePublisher) *Scheduler {
	return New(zap.NewNop(), locks, st, rounds, sel, settler, publ, testConfig())
}

func TestTickMintsRoundAndPublishes(t *testing.T) {
	locks := &fakeLocks{}
	st := newFakeState()
	rounds := &fakeRoundRepo{}
	sel := &fakeSelector{st: st}
	publ := &fakePublisher{}
	s := newTestScheduler(locks, st, rounds, sel, &fakeSettler{}, publ)

	s.tick(context.Background())

	if len(st.rounds) != 1 {
		t.Fatalf("rounds minted = %d, want 1", len(st.rounds))
	}
	if len(rounds.inserted) != 1 {
		t.Fatalf("durable inserts = %d, want 1", len(rounds.inserted))
	}
	if len(publ.started) != 1 {
		t.Fatalf("round_started events = %d, want 1", len(publ.started))
	}

	e := publ.started[0]
	r := st.rounds[e.RoundID]
	if r == nil || r.Status != state.StatusBetting {
		t.Fatalf("minted round = %+v, want BETTING", r)
	}
	if e.EndTsUnixMs-e.StartTsUnixMs != (30 * time.Second).Milliseconds() {
		t.Fatalf("round span = %dms, want 30000", e.EndTsUnixMs-e.StartTsUnixMs)
	}
}

func TestUntilNextBoundaryAlignsWorkers(t *testing.T) {
	interval := 30 * time.Second

	// dois workers iniciados com 15s de diferença miram o mesmo boundary;
	// sem o alinhamento o segundo ticaria depois do TTL do lock e cunharia
	// uma segunda rodada no meio da janela de apostas da primeira
	a := time.Date(2026, 9, 1, 10, 0, 3, 0, time.UTC)
	b := a.Add(15 * time.Second)

	boundaryA := a.Add(untilNextBoundary(a, interval))
	boundaryB := b.Add(untilNextBoundary(b, interval))
	if !boundaryA.Equal(boundaryB) {
		t.Fatalf("workers aim at different boundaries: %v vs %v", boundaryA, boundaryB)
	}
	if boundaryA.Second()%30 != 0 || boundaryA.Nanosecond() != 0 {
		t.Fatalf("boundary %v not on an interval multiple", boundaryA)
	}

	// num boundary exato, a espera é o intervalo inteiro, nunca zero
	if d := untilNextBoundary(boundaryA, interval); d != interval {
		t.Fatalf("delay at exact boundary = %v, want %v", d, interval)
	}

	// worker iniciado logo depois do boundary espera quase o intervalo todo
	late := boundaryA.Add(time.Second)
	if d := untilNextBoundary(late, interval); d != 29*time.Second {
		t.Fatalf("delay 1s past boundary = %v, want 29s", d)
	}
}

func TestTickSkipsWhenLockDenied(t *testing.T) {
	locks := &fakeLocks{denied: map[string]bool{state.LockScheduler: true}}
	st := newFakeState()
	publ := &fakePublisher{}
	s := newTestScheduler(locks, st, &fakeRoundRepo{}, &fakeSelector{st: st}, &fakeSettler{}, publ)

	s.tick(context.Background())

	if len(st.rounds) != 0 || len(publ.started) != 0 {
		t.Fatal("round minted without holding the scheduler lock")
	}
}

func TestCloseBoundaryClosesAndFreezes(t *testing.T) {
	locks := &fakeLocks{}
	st := newFakeState()
	rounds := &fakeRoundRepo{}
	sel := &fakeSelector{st: st}
	publ := &fakePublisher{}
	s := newTestScheduler(locks, st, rounds, sel, &fakeSettler{}, publ)

	s.tick(context.Background())
	roundID := publ.started[0].RoundID

	s.closeBoundary(roundID)

	if st.rounds[roundID].Status != state.StatusClosed {
		t.Fatalf("status = %s, want CLOSED", st.rounds[roundID].Status)
	}
	if len(publ.closed) != 1 {
		t.Fatalf("bets_closed events = %d, want 1", len(publ.closed))
	}
	if sel.freezes != 1 {
		t.Fatalf("freezes = %d, want 1", sel.freezes)
	}
	if len(locks.released) != 1 || locks.released[0] != state.LockClose(roundID) {
		t.Fatalf("released = %v, want close lock released after completion", locks.released)
	}

	// segunda execução do boundary é no-op: rodada já saiu de BETTING
	s.closeBoundary(roundID)
	if len(publ.closed) != 1 || sel.freezes != 1 {
		t.Fatal("close boundary ran twice")
	}
}

func TestCloseBoundarySkipsFreezeWhenForced(t *testing.T) {
	locks := &fakeLocks{}
	st := newFakeState()
	sel := &fakeSelector{st: st}
	publ := &fakePublisher{}
	s := newTestScheduler(locks, st, &fakeRoundRepo{}, sel, &fakeSettler{}, publ)

	s.tick(context.Background())
	roundID := publ.started[0].RoundID
	st.forced[roundID] = true

	s.closeBoundary(roundID)

	if sel.freezes != 0 {
		t.Fatal("selector consulted for a forced round")
	}
	// apostas fecham mesmo assim
	if st.rounds[roundID].Status != state.StatusClosed {
		t.Fatalf("status = %s, want CLOSED", st.rounds[roundID].Status)
	}
}

func TestEndBoundaryRevealsAndSettles(t *testing.T) {
	locks := &fakeLocks{}
	st := newFakeState()
	sel := &fakeSelector{st: st}
	settler := &fakeSettler{}
	publ := &fakePublisher{}
	s := newTestScheduler(locks, st, &fakeRoundRepo{}, sel, settler, publ)

	s.tick(context.Background())
	roundID := publ.started[0].RoundID
	s.closeBoundary(roundID)
	s.endBoundary(roundID)

	if len(publ.revealed) != 1 {
		t.Fatalf("result_revealed events = %d, want 1", len(publ.revealed))
	}
	if publ.revealed[0].Outcome.Number != 7 {
		t.Fatalf("revealed number = %d, want the frozen 7", publ.revealed[0].Outcome.Number)
	}
	if st.rounds[roundID].Status != state.StatusRevealed {
		t.Fatalf("status = %s, want REVEALED", st.rounds[roundID].Status)
	}
	if settler.calls != 1 {
		t.Fatalf("settle calls = %d, want 1", settler.calls)
	}
	// freeze aconteceu no close, não no reveal
	if sel.freezes != 1 {
		t.Fatalf("freezes = %d, want 1", sel.freezes)
	}
	want := state.LockReveal(roundID)
	found := false
	for _, k := range locks.released {
		if k == want {
			found = true
		}
	}
	if !found {
		t.Fatalf("released = %v, want reveal lock released after completion", locks.released)
	}
}

func TestEndBoundaryFallbackFreeze(t *testing.T) {
	locks := &fakeLocks{}
	st := newFakeState()
	sel := &fakeSelector{st: st}
	publ := &fakePublisher{}
	s := newTestScheduler(locks, st, &fakeRoundRepo{}, sel, &fakeSettler{}, publ)

	s.tick(context.Background())
	roundID := publ.started[0].RoundID

	// reveal sem close: nada congelado ainda, computa na hora
	s.endBoundary(roundID)

	if sel.freezes != 1 {
		t.Fatalf("fallback freezes = %d, want 1", sel.freezes)
	}
	if len(publ.revealed) != 1 {
		t.Fatal("reveal not published after fallback freeze")
	}
}

func TestEndBoundaryRetriesSettlementOnce(t *testing.T) {
	locks := &fakeLocks{}
	st := newFakeState()
	sel := &fakeSelector{st: st}
	settler := &fakeSettler{failures: 1}
	publ := &fakePublisher{}
	s := newTestScheduler(locks, st, &fakeRoundRepo{}, sel, settler, publ)

	s.tick(context.Background())
	roundID := publ.started[0].RoundID
	s.closeBoundary(roundID)
	s.endBoundary(roundID)

	if settler.calls != 2 {
		t.Fatalf("settle calls = %d, want 2 (one retry)", settler.calls)
	}
}

func TestEndBoundaryLeavesPersistentFailureForSweep(t *testing.T) {
	locks := &fakeLocks{}
	st := newFakeState()
	sel := &fakeSelector{st: st}
	settler := &fakeSettler{failures: 10}
	publ := &fakePublisher{}
	s := newTestScheduler(locks, st, &fakeRoundRepo{}, sel, settler, publ)

	s.tick(context.Background())
	roundID := publ.started[0].RoundID
	s.closeBoundary(roundID)
	s.endBoundary(roundID)

	// exatamente uma tentativa + um retry, depois desiste pro sweep
	if settler.calls != 2 {
		t.Fatalf("settle calls = %d, want 2", settler.calls)
	}
	if st.rounds[roundID].Status != state.StatusRevealed {
		t.Fatalf("status = %s, want REVEALED left for sweep", st.rounds[roundID].Status)
	}
}
