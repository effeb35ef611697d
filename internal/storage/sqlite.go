// Package storage persists exported heatmap point sets ("layouts") in SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"rssi-heatmap.klederson.com/internal/heatmap"
)

var (
	// ErrLayoutNotFound is returned when a named layout does not exist.
	ErrLayoutNotFound = errors.New("layout not found")
	// ErrEmptyLayoutName is returned when saving without a name.
	ErrEmptyLayoutName = errors.New("layout name is empty")
)

const schema = `
CREATE TABLE IF NOT EXISTS layouts (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS layout_points (
	layout_id TEXT NOT NULL REFERENCES layouts(id) ON DELETE CASCADE,
	seq       INTEGER NOT NULL,
	lat       REAL NOT NULL,
	lng       REAL NOT NULL,
	rssi      REAL NOT NULL,
	beacon_id TEXT,
	PRIMARY KEY (layout_id, seq)
);
`

// Layout describes a saved point set.
type Layout struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	PointCount int       `json:"point_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// LayoutStore provides persistence for heatmap layouts.
type LayoutStore struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path and applies the
// schema. Use ":memory:" for a throwaway database.
func Open(path string) (*LayoutStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// A single connection keeps ":memory:" databases alive and serializes
	// writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &LayoutStore{db: db}, nil
}

// Close closes the database.
func (s *LayoutStore) Close() error {
	return s.db.Close()
}

// Save stores points under name, replacing any existing layout with the
// same name. It returns the layout id.
func (s *LayoutStore) Save(ctx context.Context, name string, points []heatmap.ExportedSample) (string, error) {
	if name == "" {
		return "", ErrEmptyLayoutName
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UnixNano()

	var id string
	err = tx.QueryRowContext(ctx, `SELECT id FROM layouts WHERE name = ?`, name).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		id = uuid.New().String()
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO layouts (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)`,
			id, name, now, now); err != nil {
			return "", fmt.Errorf("insert layout: %w", err)
		}
	case err != nil:
		return "", fmt.Errorf("lookup layout: %w", err)
	default:
		if _, err := tx.ExecContext(ctx, `UPDATE layouts SET updated_at = ? WHERE id = ?`, now, id); err != nil {
			return "", fmt.Errorf("update layout: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM layout_points WHERE layout_id = ?`, id); err != nil {
			return "", fmt.Errorf("clear layout points: %w", err)
		}
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO layout_points (layout_id, seq, lat, lng, rssi, beacon_id) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare point insert: %w", err)
	}
	defer stmt.Close()

	for i, p := range points {
		if _, err := stmt.ExecContext(ctx, id, i, p.Lat, p.Lng, p.RSSI, nullString(p.Beacon)); err != nil {
			return "", fmt.Errorf("insert point %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit save: %w", err)
	}
	return id, nil
}

// Load returns the points of the named layout in saved order.
func (s *LayoutStore) Load(ctx context.Context, name string) ([]heatmap.ExportedSample, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM layouts WHERE name = ?`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrLayoutNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup layout: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT lat, lng, rssi, beacon_id FROM layout_points WHERE layout_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("list layout points: %w", err)
	}
	defer rows.Close()

	points := []heatmap.ExportedSample{}
	for rows.Next() {
		var p heatmap.ExportedSample
		var beaconID sql.NullString
		if err := rows.Scan(&p.Lat, &p.Lng, &p.RSSI, &beaconID); err != nil {
			return nil, fmt.Errorf("scan layout point: %w", err)
		}
		if beaconID.Valid {
			p.Beacon = beaconID.String
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// List returns every saved layout ordered by name.
func (s *LayoutStore) List(ctx context.Context) ([]Layout, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT l.id, l.name, l.created_at, l.updated_at, COUNT(p.seq)
		FROM layouts l
		LEFT JOIN layout_points p ON p.layout_id = l.id
		GROUP BY l.id
		ORDER BY l.name
	`)
	if err != nil {
		return nil, fmt.Errorf("list layouts: %w", err)
	}
	defer rows.Close()

	layouts := []Layout{}
	for rows.Next() {
		var l Layout
		var created, updated int64
		if err := rows.Scan(&l.ID, &l.Name, &created, &updated, &l.PointCount); err != nil {
			return nil, fmt.Errorf("scan layout: %w", err)
		}
		l.CreatedAt = time.Unix(0, created)
		l.UpdatedAt = time.Unix(0, updated)
		layouts = append(layouts, l)
	}
	return layouts, rows.Err()
}

// Delete removes the named layout and its points.
func (s *LayoutStore) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM layouts WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete layout: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete layout: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrLayoutNotFound, name)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
