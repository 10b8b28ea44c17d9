// Package store provides a SQLite-backed cache of parsed session logs. It is
// only a shortcut around reparsing unchanged files; deleting it loses nothing.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite" // register sqlite driver

	"github.com/melonicecream/cc-enhanced/internal/model"
	"github.com/melonicecream/cc-enhanced/internal/source"
)

// DBName is the cache file name inside the cache directory.
const DBName = "records.db"

// Cache provides SQLite-backed parse caching.
type Cache struct {
	db *sql.DB
}

// Open opens or creates the cache database at the given path. A database
// written by an older schema is dropped and recreated.
func Open(dbPath string) (*Cache, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening cache db: %w", err)
	}
	// Workers save concurrently; one connection serializes the writes.
	db.SetMaxOpenConns(1)

	c := &Cache{db: db}
	if err := c.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Cache) migrate() error {
	if _, err := c.db.Exec("CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT NOT NULL)"); err != nil {
		return fmt.Errorf("creating meta table: %w", err)
	}
	var v string
	err := c.db.QueryRow("SELECT value FROM meta WHERE key = 'schema_version'").Scan(&v)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("reading schema version: %w", err)
	}
	if v != strconv.Itoa(schemaVersion) {
		if _, err := c.db.Exec("DROP TABLE IF EXISTS records; DROP TABLE IF EXISTS files;"); err != nil {
			return fmt.Errorf("resetting cache: %w", err)
		}
	}
	if _, err := c.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	_, err = c.db.Exec("INSERT OR REPLACE INTO meta (key, value) VALUES ('schema_version', ?)", strconv.Itoa(schemaVersion))
	if err != nil {
		return fmt.Errorf("writing schema version: %w", err)
	}
	return nil
}

// Close closes the cache database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// FileInfo holds the tracked mtime and size for a file.
type FileInfo struct {
	MtimeNs   int64
	SizeBytes int64
}

// Matches reports whether the tracked info still describes a file on disk.
func (fi FileInfo) Matches(modTime time.Time, size int64) bool {
	return fi.MtimeNs == modTime.UnixNano() && fi.SizeBytes == size
}

// TrackedFiles returns file_path -> FileInfo for all cached files.
func (c *Cache) TrackedFiles() (map[string]FileInfo, error) {
	rows, err := c.db.Query("SELECT file_path, mtime_ns, size_bytes FROM files")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	result := make(map[string]FileInfo)
	for rows.Next() {
		var path string
		var fi FileInfo
		if err := rows.Scan(&path, &fi.MtimeNs, &fi.SizeBytes); err != nil {
			return nil, err
		}
		result[path] = fi
	}
	return result, rows.Err()
}

// SaveFile stores a parse result, replacing any previous one for the path.
func (c *Cache) SaveFile(res source.FileResult) error {
	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM files WHERE file_path = ?", res.Path); err != nil {
		return err
	}
	_, err = tx.Exec(`INSERT INTO files
		(file_path, mtime_ns, size_bytes, lines, prompts, parse_errors, last_cwd, start_ns, end_ns, parsed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.Path, res.ModTime.UnixNano(), res.Size, res.Lines, res.Prompts, res.ParseErrors,
		res.LastCwd, nanos(res.Start), nanos(res.End), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO records
		(file_path, seq, ts_ns, model, input_tokens, output_tokens, cache_creation, cache_read, cost_usd)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for i, r := range res.Records {
		_, err = stmt.Exec(res.Path, i, r.Timestamp.UnixNano(), r.Model,
			r.Usage.Input, r.Usage.Output, r.Usage.CacheCreation, r.Usage.CacheRead, r.CostUSD)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadFile reads a cached parse result. ok is false when the path is not cached.
func (c *Cache) LoadFile(path string) (source.FileResult, bool, error) {
	res := source.FileResult{Path: path}
	var mtime, startNs, endNs int64
	var cwd sql.NullString
	err := c.db.QueryRow(`SELECT mtime_ns, size_bytes, lines, prompts, parse_errors, last_cwd, start_ns, end_ns
		FROM files WHERE file_path = ?`, path).
		Scan(&mtime, &res.Size, &res.Lines, &res.Prompts, &res.ParseErrors, &cwd, &startNs, &endNs)
	if errors.Is(err, sql.ErrNoRows) {
		return source.FileResult{}, false, nil
	}
	if err != nil {
		return source.FileResult{}, false, err
	}
	res.ModTime = time.Unix(0, mtime)
	res.LastCwd = cwd.String
	res.Start = fromNanos(startNs)
	res.End = fromNanos(endNs)

	rows, err := c.db.Query(`SELECT ts_ns, model, input_tokens, output_tokens, cache_creation, cache_read, cost_usd
		FROM records WHERE file_path = ? ORDER BY seq`, path)
	if err != nil {
		return source.FileResult{}, false, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var r source.Record
		var ts int64
		var mdl sql.NullString
		var u model.TokenUsage
		if err := rows.Scan(&ts, &mdl, &u.Input, &u.Output, &u.CacheCreation, &u.CacheRead, &r.CostUSD); err != nil {
			return source.FileResult{}, false, err
		}
		r.Timestamp = time.Unix(0, ts)
		r.Model = mdl.String
		r.Usage = u
		res.Records = append(res.Records, r)
	}
	return res, true, rows.Err()
}

// DeleteFile removes a cached file and its records.
func (c *Cache) DeleteFile(path string) error {
	_, err := c.db.Exec("DELETE FROM files WHERE file_path = ?", path)
	return err
}

// Prune drops cached files that are not in keep and returns how many went.
func (c *Cache) Prune(keep map[string]bool) (int, error) {
	tracked, err := c.TrackedFiles()
	if err != nil {
		return 0, err
	}
	n := 0
	for path := range tracked {
		if keep[path] {
			continue
		}
		if err := c.DeleteFile(path); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func nanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
