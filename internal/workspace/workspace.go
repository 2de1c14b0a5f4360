// Package workspace implements the isolated staging area each pipeline run
// operates against: a throwaway SQLite database (via pocketbase/dbx) that
// holds the trail network at every stage of construction, from raw input
// trails through to the final edge/node graph.
package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pocketbase/dbx"

	_ "github.com/mattn/go-sqlite3"

	"trailnet/internal/config"
)

// Workspace is the staging database backing a single pipeline run. It is
// created empty, populated with input trails, mutated in place by each
// pipeline stage, and destroyed once the caller has read out the result.
type Workspace struct {
	ID  string
	dir string
	db  *dbx.DB
}

// Create allocates a fresh workspace directory under cfg.WorkspaceDir and
// opens a new SQLite database in it with the staging schema applied. The
// workspace is not usable by concurrent goroutines until Populate has run;
// after that, stage-local writes are serialized through the database's own
// transaction handling.
func Create(ctx context.Context, cfg *config.Config) (*Workspace, error) {
	id := uuid.NewString()
	dir := filepath.Join(cfg.WorkspaceDir, "run-"+id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("workspace: create dir: %w", err)
	}

	dbPath := filepath.Join(dir, "staging.sqlite")
	db, err := dbx.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("workspace: open staging db: %w", err)
	}

	ws := &Workspace{ID: id, dir: dir, db: db}
	if err := ws.migrate(ctx); err != nil {
		db.Close()
		os.RemoveAll(dir)
		return nil, fmt.Errorf("workspace: migrate schema: %w", err)
	}
	return ws, nil
}

// Destroy closes the staging database and removes its backing directory.
// It is safe to call more than once.
func (w *Workspace) Destroy() error {
	if w.db != nil {
		if err := w.db.Close(); err != nil {
			return fmt.Errorf("workspace: close staging db: %w", err)
		}
		w.db = nil
	}
	if err := os.RemoveAll(w.dir); err != nil {
		return fmt.Errorf("workspace: remove dir %s: %w", w.dir, err)
	}
	return nil
}

// DB exposes the underlying dbx handle for stage packages that need query
// forms this package doesn't wrap directly.
func (w *Workspace) DB() *dbx.DB {
	return w.db
}

// Transactional runs fn inside a database transaction, rolling back on any
// returned error. Pipeline stages use this to make a stage's writes atomic
// with respect to a crash mid-stage.
func (w *Workspace) Transactional(fn func(tx *dbx.Tx) error) error {
	return w.db.Transactional(fn)
}

func (w *Workspace) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE trails (
			source_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			surface TEXT NOT NULL,
			difficulty TEXT NOT NULL,
			trail_type TEXT NOT NULL,
			source TEXT NOT NULL,
			geometry_wkt TEXT NOT NULL,
			length_m REAL NOT NULL,
			min_lon REAL NOT NULL, min_lat REAL NOT NULL,
			max_lon REAL NOT NULL, max_lat REAL NOT NULL
		)`,
		`CREATE TABLE intersection_points (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			lon REAL NOT NULL, lat REAL NOT NULL, elev REAL NOT NULL,
			kind TEXT NOT NULL,
			connected_source_ids TEXT NOT NULL,
			distance_m REAL NOT NULL
		)`,
		`CREATE TABLE split_segments (
			id TEXT PRIMARY KEY,
			origin_id TEXT NOT NULL REFERENCES trails(source_id),
			segment_index INTEGER NOT NULL,
			geometry_wkt TEXT NOT NULL,
			length_m REAL NOT NULL,
			name TEXT NOT NULL,
			surface TEXT NOT NULL,
			difficulty TEXT NOT NULL,
			trail_type TEXT NOT NULL
		)`,
		`CREATE TABLE nodes (
			id INTEGER PRIMARY KEY,
			lon REAL NOT NULL, lat REAL NOT NULL, elev REAL NOT NULL,
			degree INTEGER NOT NULL
		)`,
		`CREATE TABLE edges (
			id INTEGER PRIMARY KEY,
			source_node INTEGER NOT NULL REFERENCES nodes(id),
			target_node INTEGER NOT NULL REFERENCES nodes(id),
			geometry_wkt TEXT NOT NULL,
			length_m REAL NOT NULL,
			elev_gain REAL NOT NULL,
			elev_loss REAL NOT NULL,
			name TEXT NOT NULL,
			surface TEXT NOT NULL,
			difficulty TEXT NOT NULL,
			trail_type TEXT NOT NULL
		)`,
		`CREATE TABLE composition (
			edge_id INTEGER NOT NULL REFERENCES edges(id),
			segment_seq INTEGER NOT NULL,
			split_segment_id TEXT NOT NULL REFERENCES split_segments(id),
			origin_id TEXT NOT NULL,
			start_ratio REAL NOT NULL,
			end_ratio REAL NOT NULL,
			length_m REAL NOT NULL,
			PRIMARY KEY (edge_id, segment_seq)
		)`,
		`CREATE INDEX idx_split_segments_origin ON split_segments(origin_id)`,
		`CREATE INDEX idx_edges_source ON edges(source_node)`,
		`CREATE INDEX idx_edges_target ON edges(target_node)`,
		`CREATE INDEX idx_composition_edge ON composition(edge_id)`,
	}
	for _, stmt := range stmts {
		if _, err := w.db.NewQuery(stmt).WithContext(ctx).Execute(); err != nil {
			return err
		}
	}
	return nil
}
