package etl

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tickerpulse/tickerpulse/internal/domain/models"
)

func ptr(f float64) *float64 { return &f }

type fakeProvider struct {
	mu        sync.Mutex
	quotes    map[string]float64
	histories map[string][]models.Bar
	failQuote map[string]bool
	failHist  map[string]bool
	calls     int
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) LatestQuote(_ context.Context, symbol string) (models.Observation, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.failQuote[symbol] {
		return models.Observation{}, errors.New("quote unavailable")
	}
	p := f.quotes[symbol]
	return models.Observation{Symbol: symbol, Price: &p, AsOf: time.Now()}, nil
}

func (f *fakeProvider) DailyHistory(_ context.Context, symbol string) ([]models.Bar, error) {
	if f.failHist[symbol] {
		return nil, errors.New("history unavailable")
	}
	return f.histories[symbol], nil
}

type fakeRepo struct {
	mu       sync.Mutex
	latest   map[string]*models.Snapshot
	upserted [][]models.Snapshot
	batchErr error
	writeErr error
}

func (f *fakeRepo) UpsertSnapshots(snaps []models.Snapshot) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	f.upserted = append(f.upserted, append([]models.Snapshot(nil), snaps...))
	return len(snaps), nil
}

func (f *fakeRepo) GetLatest(symbol string) (*models.Snapshot, error) {
	return f.latest[symbol], nil
}

func (f *fakeRepo) GetLatestBatch(symbols []string) (map[string]*models.Snapshot, error) {
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	out := map[string]*models.Snapshot{}
	for _, s := range symbols {
		if snap, ok := f.latest[s]; ok {
			out[s] = snap
		}
	}
	return out, nil
}

func (f *fakeRepo) ListLatest() ([]models.Snapshot, error) { return nil, nil }

func TestRunIncrementalSync(t *testing.T) {
	prior := &models.Snapshot{
		Symbol: "AAPL", LastPrice: 185, SMA150: ptr(165.0), Hi52W: ptr(190.0),
		UpdatedAt: time.Now().Add(-24 * time.Hour),
	}
	repo := &fakeRepo{latest: map[string]*models.Snapshot{"AAPL": prior}}
	prov := &fakeProvider{
		quotes:    map[string]float64{"AAPL": 180, "NEWCO": 12},
		failQuote: map[string]bool{"BROKEN": true},
	}

	r := NewRunner(repo, prov, 2)
	res, err := r.RunIncrementalSync(context.Background(), []string{"AAPL", "NEWCO", "BROKEN"})
	if err != nil {
		t.Fatalf("RunIncrementalSync: %v", err)
	}
	if res.Succeeded != 2 || res.Failed != 1 || res.Skipped != 0 {
		t.Fatalf("unexpected result %+v", res)
	}

	if len(repo.upserted) != 1 {
		t.Fatalf("want one upsert batch got %d", len(repo.upserted))
	}
	bySymbol := map[string]models.Snapshot{}
	for _, s := range repo.upserted[0] {
		bySymbol[s.Symbol] = s
	}

	aapl := bySymbol["AAPL"]
	if aapl.Hi52W == nil || *aapl.Hi52W != 190 {
		t.Fatalf("ratchet must hold below prior high: %+v", aapl)
	}
	if aapl.SMA150 == nil || *aapl.SMA150 != 165 {
		t.Fatalf("sma150 must be carried forward: %+v", aapl)
	}

	newco := bySymbol["NEWCO"]
	if newco.Hi52W == nil || *newco.Hi52W != 12 || newco.SMA150 != nil {
		t.Fatalf("untracked symbol seeded from price: %+v", newco)
	}
}

func TestRunIncrementalSync_StoreReadFailureAborts(t *testing.T) {
	repo := &fakeRepo{batchErr: errors.New("store down")}
	prov := &fakeProvider{quotes: map[string]float64{"AAPL": 1}}

	if _, err := NewRunner(repo, prov, 1).RunIncrementalSync(context.Background(), []string{"AAPL"}); err == nil {
		t.Fatalf("expected store read error to surface")
	}
}

func TestRunIncrementalSync_StoreWriteFailureAborts(t *testing.T) {
	repo := &fakeRepo{writeErr: errors.New("store down")}
	prov := &fakeProvider{quotes: map[string]float64{"AAPL": 1}}

	if _, err := NewRunner(repo, prov, 1).RunIncrementalSync(context.Background(), []string{"AAPL"}); err == nil {
		t.Fatalf("expected store write error to surface")
	}
}

func TestRunFullDerivation(t *testing.T) {
	day := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	history := make([]models.Bar, 260)
	for i := range history {
		history[i] = models.Bar{Date: day.AddDate(0, 0, i), Close: 100, High: 110}
	}

	repo := &fakeRepo{latest: map[string]*models.Snapshot{}}
	prov := &fakeProvider{
		quotes: map[string]float64{"AAPL": 105, "EMPTY": 10, "BROKEN": 1},
		histories: map[string][]models.Bar{
			"AAPL":  history,
			"EMPTY": nil, // no history → derivation skipped
		},
		failHist: map[string]bool{"BROKEN": true},
	}

	res, err := NewRunner(repo, prov, 3).RunFullDerivation(context.Background(), []string{"AAPL", "EMPTY", "BROKEN"})
	if err != nil {
		t.Fatalf("RunFullDerivation: %v", err)
	}
	if res.Succeeded != 1 || res.Skipped != 1 || res.Failed != 1 {
		t.Fatalf("unexpected result %+v", res)
	}

	snap := repo.upserted[0][0]
	if snap.Symbol != "AAPL" || snap.UpdatedAt.IsZero() {
		t.Fatalf("derived snapshot not stamped: %+v", snap)
	}
	if snap.SMA150 == nil || *snap.SMA150 != 100 {
		t.Fatalf("sma150: want 100 got %v", snap.SMA150)
	}
	if snap.Hi52W == nil || *snap.Hi52W != 110 {
		t.Fatalf("hi52w: want 110 got %v", snap.Hi52W)
	}
}

func TestRunIncrementalSync_CanceledContext(t *testing.T) {
	repo := &fakeRepo{latest: map[string]*models.Snapshot{}}
	prov := &fakeProvider{quotes: map[string]float64{"AAPL": 1}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewRunner(repo, prov, 1).RunIncrementalSync(ctx, []string{"AAPL"}); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestNewRunner_ClampsWorkers(t *testing.T) {
	r := NewRunner(&fakeRepo{}, &fakeProvider{}, 0)
	if r.workers < 1 || r.workers > maxWorkers {
		t.Fatalf("workers out of range: %d", r.workers)
	}
	r = NewRunner(&fakeRepo{}, &fakeProvider{}, 100)
	if r.workers > maxWorkers {
		t.Fatalf("workers must be clamped: %d", r.workers)
	}
}
