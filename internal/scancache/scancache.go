// Package scancache persists raw detector output in SQLite so repeated
// runs over an unchanged file skip the expensive ffmpeg scans. Entries are
// keyed by file identity (path, size, modification time) plus the detector
// and its parameters; any change invalidates the entry naturally.
package scancache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"episplit/internal/detect"
)

// Store is the SQLite-backed scan cache.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the cache database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) applyMigrations(ctx context.Context) error {
	const schema = `CREATE TABLE IF NOT EXISTS scans (
        source_path TEXT NOT NULL,
        source_size INTEGER NOT NULL,
        source_mtime TEXT NOT NULL,
        detector TEXT NOT NULL,
        params TEXT NOT NULL,
        detections_json TEXT NOT NULL,
        created_at TEXT NOT NULL,
        PRIMARY KEY (source_path, source_size, source_mtime, detector, params)
    )`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Key identifies one scan result.
type Key struct {
	Path     string
	Size     int64
	ModTime  time.Time
	Detector string
	// Params is the detector's parameter fingerprint, typically the
	// threshold values joined into a short string.
	Params string
}

// KeyFor builds a Key from the file at path.
func KeyFor(path, detector, params string) (Key, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Key{}, fmt.Errorf("stat source: %w", err)
	}
	return Key{
		Path:     path,
		Size:     info.Size(),
		ModTime:  info.ModTime().UTC(),
		Detector: detector,
		Params:   params,
	}, nil
}

// Get returns the cached detections for the key, or ok=false on a miss.
func (s *Store) Get(ctx context.Context, key Key) ([]detect.Raw, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT detections_json FROM scans
         WHERE source_path = ? AND source_size = ? AND source_mtime = ? AND detector = ? AND params = ?`,
		key.Path, key.Size, key.ModTime.Format(time.RFC3339Nano), key.Detector, key.Params)

	var payload string
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get scan: %w", err)
	}

	var raws []detect.Raw
	if err := json.Unmarshal([]byte(payload), &raws); err != nil {
		return nil, false, fmt.Errorf("decode scan: %w", err)
	}
	for _, raw := range raws {
		// An entry written by an older build may carry a kind this one no
		// longer knows; treat it as a miss so the scan reruns.
		if !raw.Kind.Valid() {
			return nil, false, nil
		}
	}
	return raws, true, nil
}

// Put stores the detections under the key, replacing any previous entry.
func (s *Store) Put(ctx context.Context, key Key, raws []detect.Raw) error {
	payload, err := json.Marshal(raws)
	if err != nil {
		return fmt.Errorf("encode scan: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO scans (
            source_path, source_size, source_mtime, detector, params, detections_json, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		key.Path,
		key.Size,
		key.ModTime.Format(time.RFC3339Nano),
		key.Detector,
		key.Params,
		string(payload),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("put scan: %w", err)
	}
	return nil
}

// Prune removes entries older than the cutoff and returns how many went.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM scans WHERE created_at < ?`, cutoff.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("prune scans: %w", err)
	}
	return res.RowsAffected()
}
