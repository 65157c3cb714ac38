package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"tracker/internal/core"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// ErrUnavailable marks failures to reach or set up the backing database.
var ErrUnavailable = errors.New("storage unavailable")

const (
	insertTransactionSQL = `INSERT INTO transactions (date, type, category, amount, description)
VALUES (?, ?, ?, ?, ?) RETURNING id`
	listTransactionsSQL = `SELECT id, date, type, category, amount, description
FROM transactions ORDER BY date DESC, id DESC`
	deleteTransactionSQL = `DELETE FROM transactions WHERE id = ?`
)

// TransactionStore owns the transactions table. Every method runs a single
// statement, so each call is its own transaction.
type TransactionStore struct {
	db      *sql.DB
	dialect Dialect
	dsn     string

	schemaMu    sync.Mutex
	schemaReady bool
}

// Open connects to the database named by a DATABASE_URL. The schema is not
// touched; call EnsureSchema once the store is open.
func Open(ctx context.Context, databaseURL string) (*TransactionStore, error) {
	dialect, dsn, err := ParseURL(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	if dialect == SQLite {
		if dir := filepath.Dir(sqlitePath(dsn)); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("%w: create db directory: %w", ErrUnavailable, err)
			}
		}
	}

	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s database: %w", ErrUnavailable, dialect, err)
	}

	switch dialect {
	case SQLite:
		// A single writer avoids SQLITE_BUSY between pooled connections.
		db.SetMaxOpenConns(1)
	case Postgres:
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping database: %w", ErrUnavailable, err)
	}

	return &TransactionStore{db: db, dialect: dialect, dsn: dsn}, nil
}

// EnsureSchema creates the transactions table when it is missing. After the
// first success further calls return immediately.
func (s *TransactionStore) EnsureSchema(ctx context.Context) error {
	s.schemaMu.Lock()
	defer s.schemaMu.Unlock()

	if s.schemaReady {
		return nil
	}
	if err := RunMigrations(s.dialect, s.dsn); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	s.schemaReady = true

	slog.InfoContext(ctx, "Transaction schema ready", "dialect", s.dialect.String())
	return nil
}

// Insert appends a row and returns the identifier assigned by the database.
// The caller is expected to have validated tx; only the type is normalised.
func (s *TransactionStore) Insert(ctx context.Context, tx core.NewTransaction) (int64, error) {
	typ := strings.ToLower(string(tx.Type))

	var id int64
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(insertTransactionSQL),
		tx.Date.Format(core.DateLayout),
		typ,
		tx.Category,
		tx.Amount.StringFixed(2),
		tx.Description,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%w: insert transaction: %w", ErrUnavailable, err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", id,
		"type", typ,
		"category", tx.Category,
		"amount", tx.Amount.StringFixed(2),
		"date", tx.Date.Format(core.DateLayout))

	return id, nil
}

// List returns a fresh snapshot of every row, newest date first. Rows sharing
// a date are ordered by descending id.
func (s *TransactionStore) List(ctx context.Context) ([]core.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, listTransactionsSQL)
	if err != nil {
		return nil, fmt.Errorf("%w: list transactions: %w", ErrUnavailable, err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		var (
			t           core.Transaction
			rawDate     any
			typ         string
			category    sql.NullString
			amount      decimal.NullDecimal
			description sql.NullString
		)
		if err := rows.Scan(&t.ID, &rawDate, &typ, &category, &amount, &description); err != nil {
			return nil, fmt.Errorf("%w: scan transaction: %w", ErrUnavailable, err)
		}
		date, err := scanDate(rawDate)
		if err != nil {
			return nil, fmt.Errorf("%w: transaction %d: %w", ErrUnavailable, t.ID, err)
		}
		t.Date = date
		t.Type = core.TransactionType(strings.ToLower(typ))
		t.Category = category.String
		t.Amount = amount.Decimal
		t.Description = description.String
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate transactions: %w", ErrUnavailable, err)
	}

	return txs, nil
}

// Delete removes the row with the given id. Deleting an id that does not
// exist is not an error.
func (s *TransactionStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.dialect.rebind(deleteTransactionSQL), id)
	if err != nil {
		return fmt.Errorf("%w: delete transaction %d: %w", ErrUnavailable, id, err)
	}

	affected, _ := res.RowsAffected()
	slog.InfoContext(ctx, "Transaction delete executed", "id", id, "rows_affected", affected)
	return nil
}

// Ping reports whether the database is reachable.
func (s *TransactionStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

// Dialect returns the engine the store is connected to.
func (s *TransactionStore) Dialect() Dialect {
	return s.dialect
}

func (s *TransactionStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// scanDate accepts the representations drivers use for a date column:
// time.Time from lib/pq, text or bytes from SQLite.
func scanDate(v any) (time.Time, error) {
	switch d := v.(type) {
	case time.Time:
		return core.CalendarDate(d), nil
	case string:
		return parseStoredDate(d)
	case []byte:
		return parseStoredDate(string(d))
	case nil:
		return time.Time{}, fmt.Errorf("null date")
	default:
		return time.Time{}, fmt.Errorf("unsupported date type %T", v)
	}
}

func parseStoredDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) >= len(core.DateLayout) {
		if d, err := time.Parse(core.DateLayout, s[:len(core.DateLayout)]); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("malformed date %q", s)
}

// sqlitePath strips a file: prefix and query string from a SQLite DSN.
func sqlitePath(dsn string) string {
	p := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	return p
}
