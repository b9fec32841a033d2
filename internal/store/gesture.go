package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/gesture"
)

// Gesture is a stored gesture definition.
type Gesture struct {
	ID         string
	Definition gesture.Definition
	Builtin    bool
	Enabled    bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Name returns the gesture name from its definition.
func (g *Gesture) Name() string {
	return g.Definition.Name
}

// GestureRepository provides CRUD operations for gestures.
type GestureRepository struct {
	db *sql.DB
}

// Gestures returns the gesture repository for this store.
func (s *Store) Gestures() *GestureRepository {
	return &GestureRepository{db: s.db}
}

const gestureColumns = `id, name, definition, builtin, enabled, created_at, updated_at`

// Create inserts a new gesture. The definition is validated first.
func (r *GestureRepository) Create(g *Gesture) error {
	def, err := encodeDefinition(g.Definition)
	if err != nil {
		return err
	}

	now := time.Now()
	g.CreatedAt = now
	g.UpdatedAt = now

	_, err = r.db.Exec(
		`INSERT INTO gestures (id, name, description, definition, builtin, enabled, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.Definition.Name, g.Definition.Description, def, g.Builtin, g.Enabled, g.CreatedAt, g.UpdatedAt,
	)
	return err
}

// GetByID retrieves a gesture by its ID.
func (r *GestureRepository) GetByID(id string) (*Gesture, error) {
	return scanGesture(r.db.QueryRow(`SELECT `+gestureColumns+` FROM gestures WHERE id = ?`, id))
}

// GetByName retrieves a gesture by its name.
func (r *GestureRepository) GetByName(name string) (*Gesture, error) {
	return scanGesture(r.db.QueryRow(`SELECT `+gestureColumns+` FROM gestures WHERE name = ?`, name))
}

// List retrieves all gestures ordered by name.
func (r *GestureRepository) List() ([]*Gesture, error) {
	return r.list(`SELECT ` + gestureColumns + ` FROM gestures ORDER BY name`)
}

// ListEnabled retrieves the gestures that should be loaded into the engine.
func (r *GestureRepository) ListEnabled() ([]*Gesture, error) {
	return r.list(`SELECT ` + gestureColumns + ` FROM gestures WHERE enabled = 1 ORDER BY name`)
}

func (r *GestureRepository) list(query string) ([]*Gesture, error) {
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var gestures []*Gesture
	for rows.Next() {
		g, err := scanGesture(rows)
		if err != nil {
			return nil, err
		}
		gestures = append(gestures, g)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return gestures, nil
}

// Update replaces the definition and flags of an existing gesture.
func (r *GestureRepository) Update(g *Gesture) error {
	def, err := encodeDefinition(g.Definition)
	if err != nil {
		return err
	}
	g.UpdatedAt = time.Now()

	result, err := r.db.Exec(
		`UPDATE gestures SET name = ?, description = ?, definition = ?, builtin = ?, enabled = ?, updated_at = ?
		 WHERE id = ?`,
		g.Definition.Name, g.Definition.Description, def, g.Builtin, g.Enabled, g.UpdatedAt, g.ID,
	)
	if err != nil {
		return err
	}
	return affected(result)
}

// Delete removes a gesture and its actions.
func (r *GestureRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM gestures WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affected(result)
}

// Upsert creates the gesture with a new ID, or replaces the definition of the
// gesture with the same name keeping its ID and flags.
func (r *GestureRepository) Upsert(def gesture.Definition) (*Gesture, error) {
	existing, err := r.GetByName(def.Name)
	switch {
	case errors.Is(err, ErrNotFound):
		g := &Gesture{ID: uuid.NewString(), Definition: def, Enabled: true}
		if err := r.Create(g); err != nil {
			return nil, err
		}
		return g, nil
	case err != nil:
		return nil, err
	}

	existing.Definition = def
	if err := r.Update(existing); err != nil {
		return nil, err
	}
	return existing, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGesture(row rowScanner) (*Gesture, error) {
	g := &Gesture{}
	var name, def string

	err := row.Scan(&g.ID, &name, &def, &g.Builtin, &g.Enabled, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal([]byte(def), &g.Definition); err != nil {
		return nil, fmt.Errorf("decode definition of gesture %q: %w", name, err)
	}
	return g, nil
}

func encodeDefinition(d gesture.Definition) (string, error) {
	if err := d.Validate(); err != nil {
		return "", err
	}
	data, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("encode definition: %w", err)
	}
	return string(data), nil
}
