package outcomes

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"github.com/fd1az/swap-aggregator/business/routing/domain"
	"github.com/fd1az/swap-aggregator/internal/asset"
)

// SQLiteLog persists outcomes in a single table. The database file is owned
// by one process at a time through an adjacent lock file.
type SQLiteLog struct {
	db       *sql.DB
	lock     *flock.Flock
	registry *asset.Registry
}

// OpenSQLite opens or creates the outcome database at path. Tokens are
// resolved through registry when outcomes are loaded back.
func OpenSQLite(path string, registry *asset.Registry) (*SQLiteLog, error) {
	if registry == nil {
		registry = asset.DefaultRegistry()
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create outcome store directory: %w", err)
		}
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock outcome store: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("lock outcome store: %s is in use by another process", path)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open outcome sqlite: %w", err)
	}

	queries := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		`CREATE TABLE IF NOT EXISTS outcomes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			from_chain INTEGER NOT NULL,
			from_address TEXT NOT NULL,
			from_symbol TEXT NOT NULL,
			from_decimals INTEGER NOT NULL,
			to_chain INTEGER NOT NULL,
			to_address TEXT NOT NULL,
			to_symbol TEXT NOT NULL,
			to_decimals INTEGER NOT NULL,
			amount TEXT NOT NULL,
			route_path TEXT NOT NULL,
			duration_ms INTEGER NOT NULL,
			gas_cost INTEGER NOT NULL,
			slippage REAL NOT NULL,
			success INTEGER NOT NULL,
			recorded_at INTEGER NOT NULL
		);`,
		"CREATE INDEX IF NOT EXISTS idx_outcomes_recorded ON outcomes(recorded_at);",
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return nil, fmt.Errorf("init outcome schema: %w", err)
		}
	}

	return &SQLiteLog{db: db, lock: lock, registry: registry}, nil
}

// Append inserts o.
func (s *SQLiteLog) Append(ctx context.Context, o domain.TransactionOutcome) error {
	if o.From == nil || o.To == nil {
		return fmt.Errorf("append outcome: missing tokens")
	}
	path, err := json.Marshal(o.RoutePath)
	if err != nil {
		return fmt.Errorf("marshal route path: %w", err)
	}

	success := 0
	if o.Success {
		success = 1
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO outcomes (
			from_chain, from_address, from_symbol, from_decimals,
			to_chain, to_address, to_symbol, to_decimals,
			amount, route_path, duration_ms, gas_cost, slippage, success, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		int64(o.From.ChainID()), asset.LowerHex(o.From.Address()), o.From.Symbol(), int(o.From.Decimals()),
		int64(o.To.ChainID()), asset.LowerHex(o.To.Address()), o.To.Symbol(), int(o.To.Decimals()),
		o.Amount, string(path), o.Duration.Milliseconds(), int64(o.GasCost), o.Slippage, success,
		o.RecordedAt.UTC().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}

// Load returns up to limit of the newest outcomes, oldest first.
func (s *SQLiteLog) Load(ctx context.Context, limit int) ([]domain.TransactionOutcome, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT from_chain, from_address, from_symbol, from_decimals,
			to_chain, to_address, to_symbol, to_decimals,
			amount, route_path, duration_ms, gas_cost, slippage, success, recorded_at
		FROM (SELECT * FROM outcomes ORDER BY id DESC LIMIT ?)
		ORDER BY id ASC`, limit)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var out []domain.TransactionOutcome
	for rows.Next() {
		var (
			fromChain, toChain         int64
			fromAddr, toAddr           string
			fromSymbol, toSymbol       string
			fromDecimals, toDecimals   int
			amount, path               string
			durationMs, gasCost, recAt int64
			slippage                   float64
			success                    int
		)
		if err := rows.Scan(
			&fromChain, &fromAddr, &fromSymbol, &fromDecimals,
			&toChain, &toAddr, &toSymbol, &toDecimals,
			&amount, &path, &durationMs, &gasCost, &slippage, &success, &recAt,
		); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}

		var routePath []string
		if err := json.Unmarshal([]byte(path), &routePath); err != nil {
			return nil, fmt.Errorf("decode route path: %w", err)
		}

		out = append(out, domain.TransactionOutcome{
			From:       s.registry.ResolveOrPlaceholder(uint64(fromChain), fromAddr, fromSymbol, uint8(fromDecimals)),
			To:         s.registry.ResolveOrPlaceholder(uint64(toChain), toAddr, toSymbol, uint8(toDecimals)),
			Amount:     amount,
			RoutePath:  routePath,
			Duration:   time.Duration(durationMs) * time.Millisecond,
			GasCost:    uint64(gasCost),
			Slippage:   slippage,
			Success:    success == 1,
			RecordedAt: time.Unix(0, recAt).UTC(),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}
	return out, nil
}

// Close closes the database and releases the lock file.
func (s *SQLiteLog) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	if uerr := s.lock.Unlock(); err == nil {
		err = uerr
	}
	return err
}
