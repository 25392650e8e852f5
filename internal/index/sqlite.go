package index

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// indexFile is the live index file inside the configured directory.
const indexFile = "index.db"

// nextFile is the staging file a rebuild writes into before the atomic
// rename over indexFile. Readers never see it.
const nextFile = "index.db.next"

// SQLiteIndex is an Index persisted as a single SQLite file in a directory.
// The corpus is small, so search is an exact scan over all stored vectors —
// no approximate-NN structure is needed and scores stay fully explainable.
//
// A rebuild writes a complete staging file and renames it over the live
// file, so concurrent readers observe either the old index or the new one,
// never a mix.
type SQLiteIndex struct {
	// dir is the index directory; contents are private to this type.
	dir string

	// mu guards db and dims. Search and Count hold the read lock for the
	// full duration of a query, so the swap at the end of Replace (which
	// closes the handle under the write lock) can never pull the database
	// out from under an in-flight read.
	mu   sync.RWMutex
	db   *sql.DB
	dims int

	// buildMu serializes rebuilds. TryLock keeps a second concurrent
	// Replace from running instead of queueing behind the first.
	buildMu sync.Mutex
}

// NewSQLiteIndex returns an index rooted at dir, creating the directory if
// needed. An existing persisted index is opened lazily on first read; a
// missing one only surfaces as ErrIndexNotFound when a read is attempted.
func NewSQLiteIndex(dir string) (*SQLiteIndex, error) {
	if dir == "" {
		return nil, fmt.Errorf("index: directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("index: create %s: %w", dir, err)
	}
	return &SQLiteIndex{dir: dir}, nil
}

// Replace implements Index. It builds the staging file, then swaps it in.
func (s *SQLiteIndex) Replace(ctx context.Context, entries []Entry) error {
	if !s.buildMu.TryLock() {
		return ErrBuildInProgress
	}
	defer s.buildMu.Unlock()

	if len(entries) == 0 {
		return fmt.Errorf("index: refusing to build an empty index")
	}
	dims := len(entries[0].Vector)
	if dims == 0 {
		return fmt.Errorf("index: entry %s has an empty vector", entries[0].ID)
	}
	for _, e := range entries {
		if len(e.Vector) != dims {
			return fmt.Errorf("index: entry %s has %d dimensions, expected %d", e.ID, len(e.Vector), dims)
		}
	}

	staging := filepath.Join(s.dir, nextFile)
	_ = os.Remove(staging) // leftover from an interrupted build

	if err := writeStaging(ctx, staging, entries, dims); err != nil {
		_ = os.Remove(staging)
		return err
	}

	live := filepath.Join(s.dir, indexFile)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		_ = s.db.Close()
		s.db = nil
	}
	if err := os.Rename(staging, live); err != nil {
		return fmt.Errorf("index: swap in rebuilt index: %w", err)
	}
	db, dims, err := openIndexDB(live)
	if err != nil {
		return err
	}
	s.db = db
	s.dims = dims
	return nil
}

// writeStaging creates the staging database and writes all entries in one
// transaction. Vectors are unit-normalized before storage so that the dot
// product at search time equals cosine similarity.
func writeStaging(ctx context.Context, path string, entries []Entry, dims int) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("index: create staging db: %w", err)
	}
	defer db.Close()

	const ddl = `
CREATE TABLE meta (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
CREATE TABLE nodes (
    seq       INTEGER PRIMARY KEY AUTOINCREMENT,
    id        TEXT    NOT NULL UNIQUE,
    record_id TEXT    NOT NULL,
    content   TEXT    NOT NULL,
    metadata  TEXT    NOT NULL,
    vector    BLOB    NOT NULL
);
`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("index: staging schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("index: staging tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES ('dims', ?)`, fmt.Sprint(dims)); err != nil {
		return fmt.Errorf("index: write meta: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO nodes (id, record_id, content, metadata, vector) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		meta, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("index: marshal metadata for %s: %w", e.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, e.ID, e.RecordID, e.Content, string(meta),
			encodeVector(normalize(e.Vector))); err != nil {
			return fmt.Errorf("index: insert %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("index: commit staging: %w", err)
	}
	return nil
}

// Search implements Index.
func (s *SQLiteIndex) Search(ctx context.Context, queryVector []float32, topK int) ([]Hit, error) {
	if topK < 1 {
		return nil, fmt.Errorf("index: topK must be >= 1, got %d", topK)
	}

	if err := s.ensureOpen(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, ErrIndexNotFound
	}
	if len(queryVector) != s.dims {
		return nil, fmt.Errorf("index: query vector has %d dimensions, index has %d", len(queryVector), s.dims)
	}
	query := normalize(queryVector)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, record_id, content, metadata, vector FROM nodes ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("index: search query: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		var metaJSON string
		var blob []byte
		if err := rows.Scan(&h.ID, &h.RecordID, &h.Content, &metaJSON, &blob); err != nil {
			return nil, fmt.Errorf("index: scan row: %w", err)
		}
		if err := json.Unmarshal([]byte(metaJSON), &h.Metadata); err != nil {
			return nil, fmt.Errorf("index: decode metadata for %s: %w", h.ID, err)
		}
		h.Score = dot(query, decodeVector(blob))
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("index: iterate rows: %w", err)
	}

	// Stable sort keeps insertion order for equal scores.
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// Count implements Index.
func (s *SQLiteIndex) Count(ctx context.Context) (int, error) {
	if err := s.ensureOpen(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return 0, ErrIndexNotFound
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM nodes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("index: count: %w", err)
	}
	return n, nil
}

// Ping implements Index. The directory being accessible is the only
// dependency a file-backed index has.
func (s *SQLiteIndex) Ping(_ context.Context) error {
	if _, err := os.Stat(s.dir); err != nil {
		return fmt.Errorf("index directory unreachable: %w", err)
	}
	return nil
}

// Close implements Index.
func (s *SQLiteIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	if err != nil {
		return fmt.Errorf("index: close: %w", err)
	}
	return nil
}

// ensureOpen lazily opens a persisted index on first use. Fails with
// ErrIndexNotFound when no index file exists yet.
func (s *SQLiteIndex) ensureOpen() error {
	s.mu.RLock()
	open := s.db != nil
	s.mu.RUnlock()
	if open {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return nil
	}

	live := filepath.Join(s.dir, indexFile)
	if _, err := os.Stat(live); err != nil {
		return ErrIndexNotFound
	}
	db, dims, err := openIndexDB(live)
	if err != nil {
		return err
	}
	s.db = db
	s.dims = dims
	return nil
}

// openIndexDB opens a persisted index file and reads its dimensionality.
func openIndexDB(path string) (*sql.DB, int, error) {
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, 0, fmt.Errorf("index: open %s: %w", path, err)
	}
	var dimsStr string
	if err := db.QueryRow(`SELECT value FROM meta WHERE key = 'dims'`).Scan(&dimsStr); err != nil {
		_ = db.Close()
		return nil, 0, fmt.Errorf("index: read dims from %s: %w", path, err)
	}
	var dims int
	if _, err := fmt.Sscanf(dimsStr, "%d", &dims); err != nil || dims <= 0 {
		_ = db.Close()
		return nil, 0, fmt.Errorf("index: corrupt dims value %q in %s", dimsStr, path)
	}
	return db, dims, nil
}

// encodeVector serializes a vector as little-endian float32 bits.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeVector is the inverse of encodeVector.
func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

// normalize returns v scaled to unit length. A zero vector is returned as-is
// rather than dividing by zero; it will score 0 against everything.
func normalize(v []float32) []float32 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	if sum == 0 {
		return v
	}
	inv := 1 / math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(float64(f) * inv)
	}
	return out
}

// dot returns the inner product of two equal-length vectors.
func dot(a, b []float32) float32 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return float32(sum)
}
