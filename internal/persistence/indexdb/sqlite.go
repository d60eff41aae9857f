package indexdb

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite"

	"mcrs.dev/internal/block"
	"mcrs.dev/internal/grid"
)

var ErrNotIndexed = errors.New("file not indexed")

// Fixed-width so recorded_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteIndex is a read-model of grid files written or inspected by the
// tooling. The .mcrs files stay the source of truth.
type SQLiteIndex struct {
	db *sql.DB
}

// FileRow describes one indexed grid file.
type FileRow struct {
	Path       string
	X, Y, Z    uint32
	Cells      int
	Bytes      int64
	Compressed bool
	Digest     string
	RecordedAt time.Time
	Counts     map[string]int
}

// RowFromGrid builds the row for g stored at path. size is the on-disk size.
func RowFromGrid(path string, g *grid.Grid, size int64, compressed bool) FileRow {
	x, y, z := g.Dims()
	d := g.Digest()
	counts := map[string]int{}
	for v, n := range g.Histogram() {
		counts[v.String()] = n
	}
	return FileRow{
		Path:       path,
		X:          x,
		Y:          y,
		Z:          z,
		Cells:      g.Len(),
		Bytes:      size,
		Compressed: compressed,
		Digest:     hex.EncodeToString(d[:]),
		RecordedAt: time.Now().UTC(),
		Counts:     counts,
	}
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteIndex{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS files (
			path TEXT PRIMARY KEY,
			x_len INTEGER NOT NULL,
			y_len INTEGER NOT NULL,
			z_len INTEGER NOT NULL,
			cells INTEGER NOT NULL,
			bytes INTEGER NOT NULL,
			compressed INTEGER NOT NULL,
			digest TEXT NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS file_variants (
			path TEXT NOT NULL REFERENCES files(path) ON DELETE CASCADE,
			variant TEXT NOT NULL,
			count INTEGER NOT NULL,
			PRIMARY KEY (path, variant)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_files_digest ON files(digest);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordFile inserts or replaces the row for r.Path together with its
// per-variant counts.
func (s *SQLiteIndex) RecordFile(ctx context.Context, r FileRow) error {
	if s == nil {
		return nil
	}
	if r.Path == "" {
		return fmt.Errorf("record file: empty path")
	}
	if r.RecordedAt.IsZero() {
		r.RecordedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM file_variants WHERE path=?`, r.Path); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO files(path,x_len,y_len,z_len,cells,bytes,compressed,digest,recorded_at) VALUES(?,?,?,?,?,?,?,?,?)`,
		r.Path, r.X, r.Y, r.Z, r.Cells, r.Bytes, boolToInt(r.Compressed), r.Digest, r.RecordedAt.UTC().Format(timeLayout))
	if err != nil {
		return err
	}

	names := make([]string, 0, len(r.Counts))
	for k := range r.Counts {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := block.ParseVariant(name); err != nil {
			return fmt.Errorf("record file %s: %w", r.Path, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO file_variants(path,variant,count) VALUES(?,?,?)`, r.Path, name, r.Counts[name]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Files lists indexed files, most recently recorded first. limit <= 0 means
// no limit.
func (s *SQLiteIndex) Files(ctx context.Context, limit int) ([]FileRow, error) {
	q := `SELECT path,x_len,y_len,z_len,cells,bytes,compressed,digest,recorded_at FROM files ORDER BY recorded_at DESC, path ASC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FileRow
	for rows.Next() {
		r, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Counts, err = s.counts(ctx, out[i].Path); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *SQLiteIndex) Lookup(ctx context.Context, path string) (FileRow, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT path,x_len,y_len,z_len,cells,bytes,compressed,digest,recorded_at FROM files WHERE path=?`, path)
	r, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return FileRow{}, fmt.Errorf("%w: %s", ErrNotIndexed, path)
	}
	if err != nil {
		return FileRow{}, err
	}
	r.Counts, err = s.counts(ctx, path)
	return r, err
}

func (s *SQLiteIndex) counts(ctx context.Context, path string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT variant,count FROM file_variants WHERE path=?`, path)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var (
			name string
			n    int
		)
		if err := rows.Scan(&name, &n); err != nil {
			return nil, err
		}
		out[name] = n
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFile(sc scanner) (FileRow, error) {
	var (
		r          FileRow
		compressed int
		recorded   string
	)
	if err := sc.Scan(&r.Path, &r.X, &r.Y, &r.Z, &r.Cells, &r.Bytes, &compressed, &r.Digest, &recorded); err != nil {
		return FileRow{}, err
	}
	r.Compressed = compressed != 0
	if t, err := time.Parse(timeLayout, recorded); err == nil {
		r.RecordedAt = t
	}
	return r, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
