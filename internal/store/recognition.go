package store

import (
	"database/sql"
	"time"
)

// Recognition is one entry of the recognition log.
type Recognition struct {
	ID           int64     `json:"id"`
	Gesture      string    `json:"gesture"`
	BodyID       uint64    `json:"body_id"`
	Source       string    `json:"source"`
	Seq          uint64    `json:"seq"`
	RecognizedAt time.Time `json:"recognized_at"`
}

// RecognitionRepository appends to and reads the recognition log.
type RecognitionRepository struct {
	db *sql.DB
}

// Recognitions returns the recognition log for this store.
func (s *Store) Recognitions() *RecognitionRepository {
	return &RecognitionRepository{db: s.db}
}

// Add appends an entry and sets its ID.
func (r *RecognitionRepository) Add(rec *Recognition) error {
	if rec.RecognizedAt.IsZero() {
		rec.RecognizedAt = time.Now()
	}
	result, err := r.db.Exec(
		`INSERT INTO recognitions (gesture, body_id, source, seq, recognized_at) VALUES (?, ?, ?, ?, ?)`,
		rec.Gesture, int64(rec.BodyID), rec.Source, int64(rec.Seq), rec.RecognizedAt.UTC(),
	)
	if err != nil {
		return err
	}
	rec.ID, err = result.LastInsertId()
	return err
}

// Recent returns up to limit entries, newest first. A non-empty gesture
// restricts the result to that gesture.
func (r *RecognitionRepository) Recent(limit int, gesture string) ([]*Recognition, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, gesture, body_id, source, seq, recognized_at FROM recognitions`
	args := []any{}
	if gesture != "" {
		query += ` WHERE gesture = ?`
		args = append(args, gesture)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*Recognition
	for rows.Next() {
		rec := &Recognition{}
		var bodyID, seq int64
		if err := rows.Scan(&rec.ID, &rec.Gesture, &bodyID, &rec.Source, &seq, &rec.RecognizedAt); err != nil {
			return nil, err
		}
		rec.BodyID = uint64(bodyID)
		rec.Seq = uint64(seq)
		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return recs, nil
}

// Prune deletes entries recorded before cutoff and returns how many were
// removed.
func (r *RecognitionRepository) Prune(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM recognitions WHERE recognized_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
