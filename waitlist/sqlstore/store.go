package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/waitgate/waitlist"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite3"

	pgUniqueViolation = "23505"
)

var ErrUnsupportedDialect = errors.New("unsupported sql dialect")

// Store keeps waitlist entries in a SQL table.
type Store struct {
	db      *sql.DB
	dialect string
	now     func() time.Time
}

// Open opens a database for driver ("postgres" or "sqlite3") and wraps it.
func Open(driver, dsn string) (*Store, error) {
	if err := checkDialect(driver); err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DialectSQLite {
		// Each sqlite connection to :memory: is its own database.
		db.SetMaxOpenConns(1)
	}
	return New(db, driver)
}

func New(db *sql.DB, dialect string) (*Store, error) {
	if err := checkDialect(dialect); err != nil {
		return nil, err
	}
	return &Store{db: db, dialect: dialect, now: time.Now}, nil
}

func checkDialect(d string) error {
	switch d {
	case DialectPostgres, DialectSQLite:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedDialect, d)
	}
}

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

// Migrate creates the entries table when missing.
func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS waitlist_entries (
			id VARCHAR(36) PRIMARY KEY,
			email VARCHAR(254) NOT NULL UNIQUE,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS waitlist_entries_created_at_idx ON waitlist_entries (created_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate waitlist_entries: %w", err)
		}
	}
	return nil
}

// Insert adds email as a pending entry. An existing email yields Created=false and the
// stored entry's id.
func (s *Store) Insert(ctx context.Context, email string) (waitlist.InsertResult, error) {
	email = waitlist.CanonicalEmail(email)
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		s.rebind(`INSERT INTO waitlist_entries (id, email, status, created_at) VALUES (?, ?, ?, ?)`),
		id, email, string(waitlist.StatusPending), s.now().UTC(),
	)
	if err == nil {
		return waitlist.InsertResult{ID: id, Created: true}, nil
	}
	if !isUniqueViolation(err) {
		return waitlist.InsertResult{}, fmt.Errorf("insert entry: %w", err)
	}

	existing, ferr := s.FindByEmail(ctx, email)
	if ferr != nil {
		return waitlist.InsertResult{}, fmt.Errorf("lookup existing entry: %w", ferr)
	}
	return waitlist.InsertResult{ID: existing.ID, Created: false}, nil
}

// FindByEmail returns the entry for email or waitlist.ErrNotFound.
func (s *Store) FindByEmail(ctx context.Context, email string) (waitlist.Entry, error) {
	var (
		e      waitlist.Entry
		status string
	)
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT id, email, status, created_at FROM waitlist_entries WHERE email = ?`),
		waitlist.CanonicalEmail(email),
	).Scan(&e.ID, &e.Email, &status, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return waitlist.Entry{}, waitlist.ErrNotFound
	}
	if err != nil {
		return waitlist.Entry{}, err
	}
	e.Status = waitlist.Status(status)
	return e, nil
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM waitlist_entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// rebind rewrites ? placeholders to $N for postgres.
func (s *Store) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pgUniqueViolation
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
