package index

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite"

	"github.com/JohnDeved/otrkey-cli/internal/catalog"
)

// DB wraps the SQLite database holding the cached catalog.
type DB struct {
	db *sql.DB
}

// OpenDB opens or creates the SQLite database at the given path.
func OpenDB(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

func migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS mirrors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		search_url TEXT NOT NULL DEFAULT '',
		list_url TEXT NOT NULL DEFAULT '',
		position INTEGER NOT NULL DEFAULT 0,
		last_fetched DATETIME
	);

	-- Older caches deduplicated rows per mirror; the catalog is refetched on sync.
	DROP TABLE IF EXISTS files;

	CREATE TABLE IF NOT EXISTS entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		mirror_name TEXT NOT NULL,
		file_name TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_entries_mirror ON entries(mirror_name);
	`
	_, err := db.Exec(schema)
	return err
}

// ReplaceMirrors stores the mirror list. Known mirrors keep their fetch
// timestamp; mirrors missing from the list are removed.
func (d *DB) ReplaceMirrors(mirrors []catalog.Mirror) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := replaceMirrors(tx, mirrors); err != nil {
		return err
	}
	return tx.Commit()
}

func replaceMirrors(tx *sql.Tx, mirrors []catalog.Mirror) error {
	if _, err := tx.Exec("UPDATE mirrors SET position = -1"); err != nil {
		return err
	}

	stmt, err := tx.Prepare(
		`INSERT INTO mirrors (name, search_url, list_url, position) VALUES (?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET search_url=excluded.search_url, list_url=excluded.list_url, position=excluded.position`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	seen := map[string]bool{}
	for i, m := range mirrors {
		// First entry for a name wins, matching catalog.NewMirrorMap.
		if m.Name == "" || seen[m.Name] {
			continue
		}
		seen[m.Name] = true
		if _, err := stmt.Exec(m.Name, m.SearchURL, m.ListURL, i); err != nil {
			return err
		}
	}

	_, err = tx.Exec("DELETE FROM mirrors WHERE position = -1")
	return err
}

// Mirrors returns the stored mirror list in its original order.
func (d *DB) Mirrors() ([]catalog.Mirror, error) {
	rows, err := d.db.Query("SELECT name, search_url, list_url FROM mirrors ORDER BY position, name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mirrors []catalog.Mirror
	for rows.Next() {
		var m catalog.Mirror
		if err := rows.Scan(&m.Name, &m.SearchURL, &m.ListURL); err != nil {
			return nil, err
		}
		mirrors = append(mirrors, m)
	}
	return mirrors, rows.Err()
}

// ReplaceCatalog swaps the whole file list for rows in a single transaction.
func (d *DB) ReplaceCatalog(rows []catalog.Row) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := replaceCatalog(tx, rows); err != nil {
		return err
	}
	return tx.Commit()
}

// ReplaceAll stores a freshly synced mirror list and catalog together, so a
// failure leaves the previous cache untouched.
func (d *DB) ReplaceAll(mirrors []catalog.Mirror, rows []catalog.Row) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := replaceMirrors(tx, mirrors); err != nil {
		return err
	}
	if err := replaceCatalog(tx, rows); err != nil {
		return err
	}
	return tx.Commit()
}

func replaceCatalog(tx *sql.Tx, rows []catalog.Row) error {
	if _, err := tx.Exec("DELETE FROM entries"); err != nil {
		return err
	}
	return insertRows(tx, rows)
}

// ReplaceMirrorFiles swaps the files of one mirror.
func (d *DB) ReplaceMirrorFiles(mirror string, fileNames []string) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM entries WHERE mirror_name = ?", mirror); err != nil {
		return err
	}
	rows := make([]catalog.Row, 0, len(fileNames))
	for _, name := range fileNames {
		rows = append(rows, catalog.Row{Mirror: mirror, FileName: name})
	}
	if err := insertRows(tx, rows); err != nil {
		return err
	}
	return tx.Commit()
}

func insertRows(tx *sql.Tx, rows []catalog.Row) error {
	stmt, err := tx.Prepare(`INSERT INTO entries (mirror_name, file_name) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.Exec(r.Mirror, r.FileName); err != nil {
			return err
		}
	}
	return nil
}

// Rows returns every cached catalog row ordered by mirror and filename.
func (d *DB) Rows() ([]catalog.Row, error) {
	rows, err := d.db.Query("SELECT mirror_name, file_name FROM entries ORDER BY mirror_name, file_name, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []catalog.Row
	for rows.Next() {
		var r catalog.Row
		if err := rows.Scan(&r.Mirror, &r.FileName); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// MirrorFileCount returns how many files are cached for a mirror.
func (d *DB) MirrorFileCount(mirror string) (int, error) {
	var n int
	err := d.db.QueryRow("SELECT COUNT(*) FROM entries WHERE mirror_name = ?", mirror).Scan(&n)
	return n, err
}

// MarkMirrorFetched updates the last_fetched timestamp.
func (d *DB) MarkMirrorFetched(mirror string) error {
	_, err := d.db.Exec(
		"UPDATE mirrors SET last_fetched = ? WHERE name = ?",
		time.Now().UTC(), mirror,
	)
	return err
}

// IsMirrorStale checks whether a mirror listing needs fetching again.
func (d *DB) IsMirrorStale(mirror string, staleAfter time.Duration) (bool, error) {
	var lastFetched sql.NullTime
	err := d.db.QueryRow("SELECT last_fetched FROM mirrors WHERE name = ?", mirror).Scan(&lastFetched)
	if err == sql.ErrNoRows {
		return true, nil
	}
	if err != nil {
		return true, err
	}
	if !lastFetched.Valid {
		return true, nil
	}
	return time.Since(lastFetched.Time) > staleAfter, nil
}

// MirrorStat describes a cached mirror.
type MirrorStat struct {
	Name        string
	SearchURL   string
	Files       int
	LastFetched time.Time
}

// MirrorStats returns per-mirror file counts, including mirrors that only
// appear in the file list.
func (d *DB) MirrorStats() ([]MirrorStat, error) {
	counts := map[string]int{}
	rows, err := d.db.Query("SELECT mirror_name, COUNT(*) FROM entries GROUP BY mirror_name")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			rows.Close()
			return nil, err
		}
		counts[name] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = d.db.Query("SELECT name, search_url, last_fetched FROM mirrors ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MirrorStat
	for rows.Next() {
		var s MirrorStat
		var last sql.NullTime
		if err := rows.Scan(&s.Name, &s.SearchURL, &last); err != nil {
			return nil, err
		}
		if last.Valid {
			s.LastFetched = last.Time
		}
		s.Files = counts[s.Name]
		delete(counts, s.Name)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for name, n := range counts {
		out = append(out, MirrorStat{Name: name, Files: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Stats returns cache statistics.
type Stats struct {
	Mirrors int
	Files   int
}

// GetStats returns statistics about the cache.
func (d *DB) GetStats() (Stats, error) {
	var s Stats
	if err := d.db.QueryRow("SELECT COUNT(*) FROM mirrors").Scan(&s.Mirrors); err != nil {
		return s, err
	}
	if err := d.db.QueryRow("SELECT COUNT(*) FROM entries").Scan(&s.Files); err != nil {
		return s, err
	}
	return s, nil
}

// LoadIndex builds a search index from the cached catalog.
func (d *DB) LoadIndex() (*catalog.Index, error) {
	mirrors, err := d.Mirrors()
	if err != nil {
		return nil, fmt.Errorf("loading mirrors: %w", err)
	}
	rows, err := d.Rows()
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	return catalog.BuildIndex(rows, mirrors), nil
}
