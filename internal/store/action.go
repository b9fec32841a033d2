package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// Action binds a recognized gesture to a plugin action.
type Action struct {
	ID         string
	GestureID  string
	PluginName string
	ActionName string
	Config     json.RawMessage
	Enabled    bool
	CreatedAt  time.Time
}

// ActionRepository provides CRUD operations for actions.
type ActionRepository struct {
	db *sql.DB
}

// Actions returns the action repository for this store.
func (s *Store) Actions() *ActionRepository {
	return &ActionRepository{db: s.db}
}

const actionColumns = `id, gesture_id, plugin_name, action_name, config, enabled, created_at`

// Create inserts a new action. The gesture must exist.
func (r *ActionRepository) Create(a *Action) error {
	a.CreatedAt = time.Now()

	_, err := r.db.Exec(
		`INSERT INTO actions (`+actionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.GestureID, a.PluginName, a.ActionName, configText(a.Config), a.Enabled, a.CreatedAt,
	)
	return err
}

// GetByID retrieves an action by its ID.
func (r *ActionRepository) GetByID(id string) (*Action, error) {
	return scanAction(r.db.QueryRow(`SELECT `+actionColumns+` FROM actions WHERE id = ?`, id))
}

// ListByGesture retrieves the enabled actions bound to a gesture, oldest
// first. A gesture without actions yields an empty list.
func (r *ActionRepository) ListByGesture(gestureID string) ([]*Action, error) {
	return r.list(`SELECT `+actionColumns+` FROM actions
		WHERE gesture_id = ? AND enabled = 1 ORDER BY created_at`, gestureID)
}

// List retrieves all actions.
func (r *ActionRepository) List() ([]*Action, error) {
	return r.list(`SELECT ` + actionColumns + ` FROM actions ORDER BY created_at`)
}

func (r *ActionRepository) list(query string, args ...any) ([]*Action, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions []*Action
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return actions, nil
}

// Update updates an existing action.
func (r *ActionRepository) Update(a *Action) error {
	result, err := r.db.Exec(
		`UPDATE actions SET gesture_id = ?, plugin_name = ?, action_name = ?, config = ?, enabled = ?
		 WHERE id = ?`,
		a.GestureID, a.PluginName, a.ActionName, configText(a.Config), a.Enabled, a.ID,
	)
	if err != nil {
		return err
	}
	return affected(result)
}

// Delete removes an action by its ID.
func (r *ActionRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM actions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affected(result)
}

func scanAction(row rowScanner) (*Action, error) {
	a := &Action{}
	var config string

	err := row.Scan(&a.ID, &a.GestureID, &a.PluginName, &a.ActionName, &config, &a.Enabled, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	a.Config = json.RawMessage(config)
	return a, nil
}

func configText(c json.RawMessage) string {
	if len(c) == 0 {
		return "{}"
	}
	return string(c)
}
