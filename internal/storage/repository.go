package storage

import (
	"database/sql"
	"fmt"

	pq "github.com/lib/pq"

	"github.com/tickerpulse/tickerpulse/internal/domain/models"
)

// MetricsRepository defines the contract for the ticker_metrics store.
//
// The table is append-only and keyed by (updated_at, symbol); the "current"
// state of a symbol is always the row with the maximal updated_at. Upserts are
// last-write-wins on the full key. The repository only persists candidate rows
// handed to it and never derives or patches metric values itself.
type MetricsRepository interface {
	UpsertSnapshots(snapshots []models.Snapshot) (int, error)
	GetLatest(symbol string) (*models.Snapshot, error)
	GetLatestBatch(symbols []string) (map[string]*models.Snapshot, error)
	ListLatest() ([]models.Snapshot, error)
}

type metricsRepository struct {
	db *sql.DB
}

func NewMetricsRepository(db *sql.DB) MetricsRepository {
	return &metricsRepository{db: db}
}

const snapshotColumns = "symbol, last_price, sma150, hi52w, pct_vs_sma150, pct_vs_52w, updated_at"

// UpsertSnapshots writes all snapshots in a single transaction and returns the
// number of rows written. Conflicts on (updated_at, symbol) overwrite every
// metric column with the incoming values.
func (r *metricsRepository) UpsertSnapshots(snapshots []models.Snapshot) (int, error) {
	if len(snapshots) == 0 {
		return 0, nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO ticker_metrics (updated_at, symbol, last_price, sma150, hi52w, pct_vs_sma150, pct_vs_52w)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (updated_at, symbol) DO UPDATE SET
			last_price    = EXCLUDED.last_price,
			sma150        = EXCLUDED.sma150,
			hi52w         = EXCLUDED.hi52w,
			pct_vs_sma150 = EXCLUDED.pct_vs_sma150,
			pct_vs_52w    = EXCLUDED.pct_vs_52w
	`)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}

	// nil metric pointers become SQL NULLs
	toNull := func(v *float64) interface{} {
		if v == nil {
			return nil
		}
		return *v
	}

	for _, s := range snapshots {
		if _, err := stmt.Exec(
			s.UpdatedAt,
			s.Symbol,
			s.LastPrice,
			toNull(s.SMA150),
			toNull(s.Hi52W),
			toNull(s.PctVsSMA150),
			toNull(s.PctVs52W),
		); err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			return 0, fmt.Errorf("upsert %s: %w", s.Symbol, err)
		}
	}

	if err := stmt.Close(); err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(snapshots), nil
}

// GetLatest returns the most recent snapshot for a symbol, or nil when the
// symbol has never been tracked.
func (r *metricsRepository) GetLatest(symbol string) (*models.Snapshot, error) {
	row := r.db.QueryRow(fmt.Sprintf(`
		SELECT %s
		FROM ticker_metrics
		WHERE symbol = $1
		ORDER BY updated_at DESC
		LIMIT 1
	`, snapshotColumns), symbol)

	snap, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// GetLatestBatch returns the most recent snapshot per requested symbol.
// Symbols without any stored snapshot are simply absent from the result map.
func (r *metricsRepository) GetLatestBatch(symbols []string) (map[string]*models.Snapshot, error) {
	out := make(map[string]*models.Snapshot, len(symbols))
	if len(symbols) == 0 {
		return out, nil
	}

	rows, err := r.db.Query(fmt.Sprintf(`
		SELECT DISTINCT ON (symbol) %s
		FROM ticker_metrics
		WHERE symbol = ANY($1)
		ORDER BY symbol, updated_at DESC
	`, snapshotColumns), pq.Array(symbols))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out[snap.Symbol] = snap
	}
	return out, rows.Err()
}

// ListLatest returns the current snapshot of every tracked symbol.
func (r *metricsRepository) ListLatest() ([]models.Snapshot, error) {
	rows, err := r.db.Query(fmt.Sprintf(`
		SELECT DISTINCT ON (symbol) %s
		FROM ticker_metrics
		ORDER BY symbol, updated_at DESC
	`, snapshotColumns))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []models.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *snap)
	}
	return out, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSnapshot(sc scanner) (*models.Snapshot, error) {
	var (
		snap                 models.Snapshot
		sma, hi, pctSMA, pct sql.NullFloat64
	)
	if err := sc.Scan(&snap.Symbol, &snap.LastPrice, &sma, &hi, &pctSMA, &pct, &snap.UpdatedAt); err != nil {
		return nil, err
	}
	snap.SMA150 = fromNull(sma)
	snap.Hi52W = fromNull(hi)
	snap.PctVsSMA150 = fromNull(pctSMA)
	snap.PctVs52W = fromNull(pct)
	return &snap, nil
}

func fromNull(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
