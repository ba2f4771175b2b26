package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Calibration is a captured neutral pose. Eye baselines are nil when no
// eye sample existed at capture time.
type Calibration struct {
	ID        string    `json:"id"`
	Pitch     float64   `json:"pitch"`
	Yaw       float64   `json:"yaw"`
	Roll      float64   `json:"roll"`
	EyeLeft   *float64  `json:"eye_left"`
	EyeRight  *float64  `json:"eye_right"`
	CreatedAt time.Time `json:"created_at"`
}

// CalibrationRepository stores calibration history.
type CalibrationRepository struct {
	db *sql.DB
}

// Calibrations returns the calibration repository for this store.
func (s *Store) Calibrations() *CalibrationRepository {
	return &CalibrationRepository{db: s.db}
}

// Create inserts c, assigning an ID and timestamp when missing.
func (r *CalibrationRepository) Create(c *Calibration) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	_, err := r.db.Exec(
		`INSERT INTO calibrations (id, pitch, yaw, roll, eye_left, eye_right, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Pitch, c.Yaw, c.Roll, nullFloat(c.EyeLeft), nullFloat(c.EyeRight), c.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert calibration: %w", err)
	}
	return nil
}

// Latest returns the most recent calibration.
func (r *CalibrationRepository) Latest() (*Calibration, error) {
	list, err := r.List(1)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return list[0], nil
}

// List returns up to limit calibrations, most recent first. A limit of
// zero or less returns all of them.
func (r *CalibrationRepository) List(limit int) ([]*Calibration, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.Query(
		`SELECT id, pitch, yaw, roll, eye_left, eye_right, created_at
		 FROM calibrations ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Calibration
	for rows.Next() {
		c := &Calibration{}
		var left, right sql.NullFloat64
		if err := rows.Scan(&c.ID, &c.Pitch, &c.Yaw, &c.Roll, &left, &right, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.EyeLeft = floatPtr(left)
		c.EyeRight = floatPtr(right)
		out = append(out, c)
	}
	return out, rows.Err()
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}
