package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/AngelCh415/amazon-ppc-etl/internal/models"
)

type SQLiteLedger struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (or creates) the ledger database at path.
func OpenSQLite(path string) (*SQLiteLedger, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS cost_entries (
  sku          TEXT PRIMARY KEY,
  sale_price   REAL NOT NULL DEFAULT 0 CHECK (sale_price >= 0),
  amazon_fees  REAL NOT NULL DEFAULT 0 CHECK (amazon_fees >= 0),
  cogs         REAL NOT NULL DEFAULT 0 CHECK (cogs >= 0),
  last_updated DATETIME NOT NULL
);`); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteLedger{db: db, now: time.Now}, nil
}

func (l *SQLiteLedger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

func (l *SQLiteLedger) All(ctx context.Context) ([]models.CostEntry, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT sku, sale_price, amazon_fees, cogs, last_updated FROM cost_entries ORDER BY sku`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.CostEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (l *SQLiteLedger) Get(ctx context.Context, sku string) (models.CostEntry, error) {
	sku = strings.TrimSpace(sku)
	row := l.db.QueryRowContext(ctx, `SELECT sku, sale_price, amazon_fees, cogs, last_updated FROM cost_entries WHERE sku = ?`, sku)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.CostEntry{}, fmt.Errorf("sku %q: %w", sku, ErrNotFound)
	}
	return e, err
}

func (l *SQLiteLedger) Upsert(ctx context.Context, e models.CostEntry) (models.CostEntry, error) {
	e, err := Validate(e)
	if err != nil {
		return e, err
	}
	e.LastUpdated = l.now().UTC()
	_, err = l.db.ExecContext(ctx, upsertSQL, e.SKU, e.SalePrice, e.AmazonFees, e.COGS, e.LastUpdated)
	return e, err
}

const upsertSQL = `INSERT INTO cost_entries(sku, sale_price, amazon_fees, cogs, last_updated) VALUES(?,?,?,?,?)
ON CONFLICT(sku) DO UPDATE SET sale_price=excluded.sale_price, amazon_fees=excluded.amazon_fees, cogs=excluded.cogs, last_updated=excluded.last_updated`

func (l *SQLiteLedger) Replace(ctx context.Context, entries []models.CostEntry) (err error) {
	ts := l.now().UTC()
	valid := make([]models.CostEntry, 0, len(entries))
	for _, e := range entries {
		e, err := Validate(e)
		if err != nil {
			return err
		}
		if e.LastUpdated.IsZero() {
			e.LastUpdated = ts
		}
		valid = append(valid, e)
	}

	tx, err := l.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err = tx.ExecContext(ctx, `DELETE FROM cost_entries`); err != nil {
		return err
	}
	for _, e := range valid {
		if _, err = tx.ExecContext(ctx, upsertSQL, e.SKU, e.SalePrice, e.AmazonFees, e.COGS, e.LastUpdated); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (l *SQLiteLedger) Delete(ctx context.Context, sku string) error {
	sku = strings.TrimSpace(sku)
	res, err := l.db.ExecContext(ctx, `DELETE FROM cost_entries WHERE sku = ?`, sku)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("sku %q: %w", sku, ErrNotFound)
	}
	return nil
}

func (l *SQLiteLedger) EnsureSKUs(ctx context.Context, skus []string) (added int, err error) {
	ts := l.now().UTC()
	tx, err := l.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	for _, sku := range skus {
		sku = strings.TrimSpace(sku)
		if sku == "" {
			continue
		}
		var res sql.Result
		res, err = tx.ExecContext(ctx, `INSERT INTO cost_entries(sku, last_updated) VALUES(?, ?) ON CONFLICT(sku) DO NOTHING`, sku, ts)
		if err != nil {
			return 0, err
		}
		var n int64
		if n, err = res.RowsAffected(); err != nil {
			return 0, err
		}
		added += int(n)
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return added, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (models.CostEntry, error) {
	var e models.CostEntry
	err := s.Scan(&e.SKU, &e.SalePrice, &e.AmazonFees, &e.COGS, &e.LastUpdated)
	return e, err
}
