// Package etl drives the two batch entry points of the pipeline: full
// derivation from history and incremental price sync against stored snapshots.
package etl

import (
	"context"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tickerpulse/tickerpulse/internal/domain/models"
	"github.com/tickerpulse/tickerpulse/internal/indicator"
	"github.com/tickerpulse/tickerpulse/internal/logger"
	"github.com/tickerpulse/tickerpulse/internal/provider"
	"github.com/tickerpulse/tickerpulse/internal/reconcile"
	"github.com/tickerpulse/tickerpulse/internal/storage"
)

const maxWorkers = 8

// Result summarizes one batch invocation.
//
//   - Succeeded: snapshots written to the store.
//   - Skipped:   symbols dropped per-item (invalid observation, malformed or
//     empty history); the batch continues past them.
//   - Failed:    symbols whose provider fetch failed after retries.
//
// A store failure aborts the batch and surfaces as the returned error instead.
type Result struct {
	Succeeded int
	Skipped   int
	Failed    int
}

// Runner wires the provider, the store, and the fetch concurrency limit.
//
// Fetches fan out across workers; reconciliation and the upsert are
// single-threaded, so each batch performs exactly one read-modify-write
// against the store and the hi52w ratchet cannot lose updates within a batch.
// Concurrent batches over the same symbols are the caller's responsibility to
// serialize.
type Runner struct {
	repo     storage.MetricsRepository
	provider provider.Provider
	workers  int
	now      func() time.Time
}

func NewRunner(repo storage.MetricsRepository, p provider.Provider, workers int) *Runner {
	if workers < 1 || workers > maxWorkers {
		workers = runtime.NumCPU()
		if workers > maxWorkers {
			workers = maxWorkers
		}
	}
	return &Runner{repo: repo, provider: p, workers: workers, now: time.Now}
}

// RunIncrementalSync fetches one latest-price observation per symbol,
// reconciles each against the most recent stored snapshot, and upserts the
// resulting rows. Per-symbol fetch failures are counted and skipped; a store
// failure aborts the batch.
func (r *Runner) RunIncrementalSync(ctx context.Context, symbols []string) (Result, error) {
	var res Result
	start := time.Now()
	logger.L().Info().Int("symbols", len(symbols)).Str("provider", r.provider.Name()).Msg("incremental sync start")

	observations, failed := r.fetchObservations(ctx, symbols)
	res.Failed = failed
	if err := ctx.Err(); err != nil {
		return res, err
	}

	priors, err := r.repo.GetLatestBatch(symbols)
	if err != nil {
		return res, err
	}

	snapshots, invalid := reconcile.Reconcile(priors, observations, r.now().UTC())
	res.Skipped = invalid

	written, err := r.repo.UpsertSnapshots(snapshots)
	if err != nil {
		return res, err
	}
	res.Succeeded = written

	logger.L().Info().
		Int("written", res.Succeeded).
		Int("skipped", res.Skipped).
		Int("failed", res.Failed).
		Dur("elapsed", time.Since(start)).
		Msg("incremental sync done")
	return res, nil
}

// RunFullDerivation fetches the daily history plus the latest price for each
// symbol, derives a complete snapshot, and upserts the batch. Symbols whose
// history is empty or malformed are skipped; fetch failures are counted.
func (r *Runner) RunFullDerivation(ctx context.Context, symbols []string) (Result, error) {
	var res Result
	start := time.Now()
	logger.L().Info().Int("symbols", len(symbols)).Str("provider", r.provider.Name()).Msg("full derivation start")

	var (
		mu        sync.Mutex
		snapshots []models.Snapshot
	)
	now := r.now().UTC()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for _, symbol := range symbols {
		g.Go(func() error {
			history, err := r.provider.DailyHistory(gctx, symbol)
			if err != nil {
				logger.L().Warn().Str("symbol", symbol).Err(err).Msg("history fetch failed")
				mu.Lock()
				res.Failed++
				mu.Unlock()
				return nil
			}
			obs, err := r.provider.LatestQuote(gctx, symbol)
			if err != nil {
				logger.L().Warn().Str("symbol", symbol).Err(err).Msg("quote fetch failed")
				mu.Lock()
				res.Failed++
				mu.Unlock()
				return nil
			}
			if !obs.Valid() {
				mu.Lock()
				res.Skipped++
				mu.Unlock()
				return nil
			}

			snap := indicator.Derive(history, *obs.Price)
			if snap == nil {
				logger.L().Warn().Str("symbol", symbol).Msg("history unusable, derivation skipped")
				mu.Lock()
				res.Skipped++
				mu.Unlock()
				return nil
			}
			snap.Symbol = symbol
			snap.UpdatedAt = now

			mu.Lock()
			snapshots = append(snapshots, *snap)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	written, err := r.repo.UpsertSnapshots(snapshots)
	if err != nil {
		return res, err
	}
	res.Succeeded = written

	logger.L().Info().
		Int("written", res.Succeeded).
		Int("skipped", res.Skipped).
		Int("failed", res.Failed).
		Dur("elapsed", time.Since(start)).
		Msg("full derivation done")
	return res, nil
}

// fetchObservations fans out latest-quote fetches across the worker limit.
// Individual failures are logged and counted, never fatal.
func (r *Runner) fetchObservations(ctx context.Context, symbols []string) ([]models.Observation, int) {
	var (
		mu           sync.Mutex
		observations []models.Observation
		failed       int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for _, symbol := range symbols {
		g.Go(func() error {
			obs, err := r.provider.LatestQuote(gctx, symbol)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.L().Warn().Str("symbol", symbol).Err(err).Msg("quote fetch failed")
				failed++
				return nil
			}
			observations = append(observations, obs)
			return nil
		})
	}
	_ = g.Wait()

	return observations, failed
}
