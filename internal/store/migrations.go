package store

import "fmt"

// runMigrations creates the schema. Every statement is idempotent.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Gesture definitions. definition holds the JSON encoded segment list.
		`CREATE TABLE IF NOT EXISTS gestures (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT '',
			definition TEXT NOT NULL,
			builtin INTEGER NOT NULL DEFAULT 0,
			enabled INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Plugin actions run when a gesture is recognized.
		`CREATE TABLE IF NOT EXISTS actions (
			id TEXT PRIMARY KEY,
			gesture_id TEXT NOT NULL REFERENCES gestures(id) ON DELETE CASCADE,
			plugin_name TEXT NOT NULL,
			action_name TEXT NOT NULL,
			config TEXT NOT NULL DEFAULT '{}',
			enabled INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Key-value application settings.
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		// Recognition log. Gesture names are kept as text so entries survive
		// gesture deletion.
		`CREATE TABLE IF NOT EXISTS recognitions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			gesture TEXT NOT NULL,
			body_id INTEGER NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			seq INTEGER NOT NULL,
			recognized_at DATETIME NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_actions_gesture_id ON actions(gesture_id)`,
		`CREATE INDEX IF NOT EXISTS idx_recognitions_gesture ON recognitions(gesture)`,
		`CREATE INDEX IF NOT EXISTS idx_recognitions_recognized_at ON recognitions(recognized_at)`,
	}

	for i, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}

	return nil
}
