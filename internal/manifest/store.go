// Package manifest persists the outcome of dependency collection passes
// so a submission can be audited or re-uploaded without re-opening the
// scene. One manifest row per pass, with its file list and the archive
// reference edges that produced it.
package manifest

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/zync/zync-maya/internal/archive"
	"github.com/zync/zync-maya/internal/handlers"
)

// Manifest is one recorded collection pass.
type Manifest struct {
	ID         int64
	Scene      string
	Created    time.Time
	FrameCount int
	Cancelled  bool
	Files      []string
	Edges      []archive.Edge
}

// Store is a SQLite-backed manifest archive. Safe for one writer; reads
// see committed manifests only.
type Store struct {
	db *sql.DB
}

// Open creates or opens the store at dbPath and ensures the schema.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS manifests (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		scene TEXT NOT NULL,
		created INTEGER NOT NULL,
		frame_count INTEGER NOT NULL,
		cancelled INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_manifests_scene ON manifests(scene, created);

	CREATE TABLE IF NOT EXISTS manifest_files (
		manifest_id INTEGER NOT NULL,
		path TEXT NOT NULL,
		PRIMARY KEY (manifest_id, path)
	) WITHOUT ROWID;

	CREATE TABLE IF NOT EXISTS manifest_edges (
		manifest_id INTEGER NOT NULL,
		source TEXT NOT NULL,
		target TEXT NOT NULL,
		kind TEXT NOT NULL DEFAULT ''
	);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Write records a manifest and returns its assigned id.
func (s *Store) Write(m Manifest) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	created := m.Created
	if created.IsZero() {
		created = time.Now()
	}
	cancelled := 0
	if m.Cancelled {
		cancelled = 1
	}
	res, err := tx.Exec(
		`INSERT INTO manifests (scene, created, frame_count, cancelled) VALUES (?, ?, ?, ?)`,
		m.Scene, created.UnixNano(), m.FrameCount, cancelled,
	)
	if err != nil {
		return 0, fmt.Errorf("insert manifest: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmtFile, err := tx.Prepare(`INSERT OR IGNORE INTO manifest_files (manifest_id, path) VALUES (?, ?)`)
	if err != nil {
		return 0, err
	}
	defer func() { _ = stmtFile.Close() }()
	for _, p := range m.Files {
		if _, err := stmtFile.Exec(id, p); err != nil {
			return 0, fmt.Errorf("insert file %s: %w", p, err)
		}
	}

	stmtEdge, err := tx.Prepare(`INSERT INTO manifest_edges (manifest_id, source, target, kind) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer func() { _ = stmtEdge.Close() }()
	for _, e := range m.Edges {
		if _, err := stmtEdge.Exec(id, e.Source, e.Target, string(e.Kind)); err != nil {
			return 0, fmt.Errorf("insert edge %s -> %s: %w", e.Source, e.Target, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// Read loads a manifest by id.
func (s *Store) Read(id int64) (*Manifest, error) {
	m := &Manifest{ID: id}
	var createdNano int64
	var cancelled int
	err := s.db.QueryRow(
		`SELECT scene, created, frame_count, cancelled FROM manifests WHERE id = ?`, id,
	).Scan(&m.Scene, &createdNano, &m.FrameCount, &cancelled)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("manifest %d: not found", id)
	}
	if err != nil {
		return nil, err
	}
	m.Created = time.Unix(0, createdNano)
	m.Cancelled = cancelled != 0

	rows, err := s.db.Query(`SELECT path FROM manifest_files WHERE manifest_id = ? ORDER BY path`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		m.Files = append(m.Files, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	erows, err := s.db.Query(`SELECT source, target, kind FROM manifest_edges WHERE manifest_id = ?`, id)
	if err != nil {
		return nil, err
	}
	defer erows.Close()
	for erows.Next() {
		var e archive.Edge
		var kind string
		if err := erows.Scan(&e.Source, &e.Target, &kind); err != nil {
			return nil, err
		}
		e.Kind = handlers.Kind(kind)
		m.Edges = append(m.Edges, e)
	}
	return m, erows.Err()
}

// Latest returns the most recent manifest recorded for a scene.
func (s *Store) Latest(scene string) (*Manifest, error) {
	var id int64
	err := s.db.QueryRow(
		`SELECT id FROM manifests WHERE scene = ? ORDER BY created DESC, id DESC LIMIT 1`, scene,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no manifest for scene %s", scene)
	}
	if err != nil {
		return nil, err
	}
	return s.Read(id)
}

func (s *Store) Close() error {
	return s.db.Close()
}
