package loader

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"math"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/quantfold/pipeline/internal/calendar"
	"github.com/quantfold/pipeline/internal/dataset"
)

//go:embed schema.sql
var schemaSQL string

// Store is a SQLite-backed column store implementing Loader.
// Uses WAL mode for concurrent read access during writes.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite column store at the given path, applying
// pragmas and the embedded schema. Idempotent: safe to call on an
// existing database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open column store: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to column store: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply column store schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

// Cell is one stored value for WriteBatch.
type Cell struct {
	Session time.Time
	Sid     int64
	Value   float64
}

// WriteBatch upserts a batch of cells for one column inside a single
// transaction. The column may be passed in any specialization; values are
// stored under the underlying generic identity.
func (s *Store) WriteBatch(ctx context.Context, col *dataset.Column, cells []Cell) error {
	underlying := col.Unspecialize()
	family := underlying.DataSet().Name()
	name := underlying.Name()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin write batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO column_values (family_name, column_name, session, sid, value)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (family_name, column_name, session, sid)
		DO UPDATE SET value = excluded.value
	`)
	if err != nil {
		return fmt.Errorf("prepare write batch: %w", err)
	}
	defer stmt.Close()

	for _, cell := range cells {
		session := calendar.Date(cell.Session).Format(calendar.DateLayout)
		if _, err := stmt.ExecContext(ctx, family, name, session, cell.Sid, cell.Value); err != nil {
			return fmt.Errorf("write %s.%s@%s sid=%d: %w", family, name, session, cell.Sid, err)
		}
	}
	return tx.Commit()
}

// Sids implements Loader, returning every asset that appears anywhere in
// the store.
func (s *Store) Sids(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT sid FROM column_values ORDER BY sid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sids: %w", err)
	}
	defer rows.Close()

	var sids []int64
	for rows.Next() {
		var sid int64
		if err := rows.Scan(&sid); err != nil {
			return nil, fmt.Errorf("scan sid: %w", err)
		}
		sids = append(sids, sid)
	}
	return sids, rows.Err()
}

// Load implements Loader. Cells without stored values are filled with the
// column's missing value (NaN for float columns without an explicit
// sentinel).
func (s *Store) Load(ctx context.Context, col *dataset.Column, sessions []time.Time) ([][]float64, error) {
	sids, err := s.Sids(ctx)
	if err != nil {
		return nil, err
	}
	sidIndex := make(map[int64]int, len(sids))
	for i, sid := range sids {
		sidIndex[sid] = i
	}

	underlying := col.Unspecialize()
	missing := missingValue(underlying)

	out := make([][]float64, len(sessions))
	rowIndex := make(map[string]int, len(sessions))
	for i, session := range sessions {
		row := make([]float64, len(sids))
		for a := range row {
			row[a] = missing
		}
		out[i] = row
		rowIndex[calendar.Date(session).Format(calendar.DateLayout)] = i
	}
	if len(sessions) == 0 {
		return out, nil
	}

	first := calendar.Date(sessions[0]).Format(calendar.DateLayout)
	last := calendar.Date(sessions[len(sessions)-1]).Format(calendar.DateLayout)

	rows, err := s.db.QueryContext(ctx, `
		SELECT session, sid, value
		FROM column_values
		WHERE family_name = ? AND column_name = ? AND session >= ? AND session <= ?
		ORDER BY session ASC, sid ASC
	`, underlying.DataSet().Name(), underlying.Name(), first, last)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", underlying.QualifiedName(), err)
	}
	defer rows.Close()

	for rows.Next() {
		var session string
		var sid int64
		var value float64
		if err := rows.Scan(&session, &sid, &value); err != nil {
			return nil, fmt.Errorf("scan %s: %w", underlying.QualifiedName(), err)
		}
		i, ok := rowIndex[session]
		if !ok {
			continue // date inside the span but not a requested session
		}
		if a, ok := sidIndex[sid]; ok {
			out[i][a] = value
		}
	}
	return out, rows.Err()
}

// missingValue maps a column's missing sentinel onto the float64 plane
// the kernels compute over.
func missingValue(col *dataset.Column) float64 {
	if v, ok := col.Missing().(float64); ok {
		return v
	}
	return math.NaN()
}
