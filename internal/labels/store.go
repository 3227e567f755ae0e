package labels

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/noahgolmant/label-tiles/internal/tiles"
)

// ErrNotFound is returned when a label id does not exist.
var ErrNotFound = errors.New("label not found")

// Label is one bounding-box annotation anchored to a tile's pixel frame.
// PixelBBox is [x, y, w, h]; GeoBounds is [west, south, east, north].
type Label struct {
	ID         string     `json:"id"`
	TileZ      int        `json:"tile_z"`
	TileX      int        `json:"tile_x"`
	TileY      int        `json:"tile_y"`
	PixelBBox  [4]float64 `json:"pixel_bbox"`
	NounPhrase string     `json:"noun_phrase,omitempty"`
	IsNegative bool       `json:"is_negative"`
	GeoBounds  [4]float64 `json:"geo_bounds"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Tile returns the tile address the label is anchored to.
func (l Label) Tile() tiles.Tile {
	return tiles.Tile{Z: l.TileZ, X: l.TileX, Y: l.TileY}
}

// Update carries the mutable label fields; nil fields are left unchanged.
type Update struct {
	PixelBBox  *[4]float64
	NounPhrase *string
	IsNegative *bool
	GeoBounds  *[4]float64
}

// Store persists labels in a SQLite database keyed by tile address.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the label database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create label directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open label database: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS labels (
		id          TEXT PRIMARY KEY,
		tile_z      INTEGER NOT NULL,
		tile_x      INTEGER NOT NULL,
		tile_y      INTEGER NOT NULL,
		pixel_bbox  TEXT NOT NULL,
		noun_phrase TEXT NOT NULL DEFAULT '',
		is_negative INTEGER NOT NULL DEFAULT 0,
		geo_bounds  TEXT NOT NULL,
		created_at  TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create labels table: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_labels_tile
		ON labels (tile_z, tile_x, tile_y)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tile index: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Create inserts a new label with a freshly minted id.
func (s *Store) Create(l Label) (Label, error) {
	l.ID = uuid.NewString()
	l.CreatedAt = time.Now().UTC()

	bbox, geo, err := encodeBounds(l.PixelBBox, l.GeoBounds)
	if err != nil {
		return Label{}, err
	}

	_, err = s.db.Exec(`INSERT INTO labels
		(id, tile_z, tile_x, tile_y, pixel_bbox, noun_phrase, is_negative, geo_bounds, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.TileZ, l.TileX, l.TileY, bbox, l.NounPhrase, boolToInt(l.IsNegative), geo,
		l.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return Label{}, fmt.Errorf("failed to insert label: %w", err)
	}
	return l, nil
}

// Get returns a single label by id.
func (s *Store) Get(id string) (Label, error) {
	row := s.db.QueryRow(`SELECT id, tile_z, tile_x, tile_y, pixel_bbox,
		noun_phrase, is_negative, geo_bounds, created_at
		FROM labels WHERE id = ?`, id)
	return scanLabel(row)
}

// Apply merges an update into an existing label and persists it.
func (s *Store) Apply(id string, u Update) (Label, error) {
	l, err := s.Get(id)
	if err != nil {
		return Label{}, err
	}

	if u.PixelBBox != nil {
		l.PixelBBox = *u.PixelBBox
	}
	if u.NounPhrase != nil {
		l.NounPhrase = *u.NounPhrase
	}
	if u.IsNegative != nil {
		l.IsNegative = *u.IsNegative
	}
	if u.GeoBounds != nil {
		l.GeoBounds = *u.GeoBounds
	}

	bbox, geo, err := encodeBounds(l.PixelBBox, l.GeoBounds)
	if err != nil {
		return Label{}, err
	}
	_, err = s.db.Exec(`UPDATE labels SET pixel_bbox = ?, noun_phrase = ?,
		is_negative = ?, geo_bounds = ? WHERE id = ?`,
		bbox, l.NounPhrase, boolToInt(l.IsNegative), geo, id)
	if err != nil {
		return Label{}, fmt.Errorf("failed to update label: %w", err)
	}
	return l, nil
}

// Delete removes a label by id.
func (s *Store) Delete(id string) error {
	res, err := s.db.Exec(`DELETE FROM labels WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete label: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// All returns every label, oldest first.
func (s *Store) All() ([]Label, error) {
	return s.queryLabels(`SELECT id, tile_z, tile_x, tile_y, pixel_bbox,
		noun_phrase, is_negative, geo_bounds, created_at
		FROM labels ORDER BY created_at`)
}

// ForTile returns the labels anchored to a specific tile.
func (s *Store) ForTile(z, x, y int) ([]Label, error) {
	return s.queryLabels(`SELECT id, tile_z, tile_x, tile_y, pixel_bbox,
		noun_phrase, is_negative, geo_bounds, created_at
		FROM labels WHERE tile_z = ? AND tile_x = ? AND tile_y = ?
		ORDER BY created_at`, z, x, y)
}

// DeleteForTile removes all labels anchored to a tile, returning the count.
func (s *Store) DeleteForTile(z, x, y int) (int, error) {
	res, err := s.db.Exec(`DELETE FROM labels
		WHERE tile_z = ? AND tile_x = ? AND tile_y = ?`, z, x, y)
	if err != nil {
		return 0, fmt.Errorf("failed to delete tile labels: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// LabeledTiles enumerates the distinct tiles that carry at least one label,
// in row-major order.
func (s *Store) LabeledTiles() ([]tiles.Tile, error) {
	rows, err := s.db.Query(`SELECT DISTINCT tile_z, tile_x, tile_y
		FROM labels ORDER BY tile_z, tile_y, tile_x`)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate labeled tiles: %w", err)
	}
	defer rows.Close()

	var result []tiles.Tile
	for rows.Next() {
		var t tiles.Tile
		if err := rows.Scan(&t.Z, &t.X, &t.Y); err != nil {
			return nil, fmt.Errorf("failed to scan tile: %w", err)
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func (s *Store) queryLabels(query string, args ...interface{}) ([]Label, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query labels: %w", err)
	}
	defer rows.Close()

	var result []Label
	for rows.Next() {
		l, err := scanLabel(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, l)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanLabel(row rowScanner) (Label, error) {
	var l Label
	var bbox, geo, created string
	var negative int
	err := row.Scan(&l.ID, &l.TileZ, &l.TileX, &l.TileY, &bbox,
		&l.NounPhrase, &negative, &geo, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Label{}, ErrNotFound
	}
	if err != nil {
		return Label{}, fmt.Errorf("failed to scan label: %w", err)
	}

	if err := json.Unmarshal([]byte(bbox), &l.PixelBBox); err != nil {
		return Label{}, fmt.Errorf("failed to decode pixel bbox: %w", err)
	}
	if err := json.Unmarshal([]byte(geo), &l.GeoBounds); err != nil {
		return Label{}, fmt.Errorf("failed to decode geo bounds: %w", err)
	}
	l.IsNegative = negative != 0
	if l.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return Label{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	return l, nil
}

func encodeBounds(bbox, geo [4]float64) (string, string, error) {
	b, err := json.Marshal(bbox)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode pixel bbox: %w", err)
	}
	g, err := json.Marshal(geo)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode geo bounds: %w", err)
	}
	return string(b), string(g), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
