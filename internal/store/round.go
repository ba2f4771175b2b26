package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Round is a finished game.
type Round struct {
	ID         string    `json:"id"`
	Difficulty string    `json:"difficulty"`
	Winner     string    `json:"winner"`
	HumanMoves int       `json:"human_moves"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
}

// RoundStats aggregates round outcomes.
type RoundStats struct {
	Total  int            `json:"total"`
	Wins   int            `json:"wins"`
	Losses int            `json:"losses"`
	Draws  int            `json:"draws"`
	ByMode map[string]int `json:"by_difficulty"`
}

// RoundRepository stores finished rounds.
type RoundRepository struct {
	db *sql.DB
}

// Rounds returns the round repository for this store.
func (s *Store) Rounds() *RoundRepository {
	return &RoundRepository{db: s.db}
}

// Create inserts r, assigning an ID if it has none.
func (r *RoundRepository) Create(round *Round) error {
	if round.ID == "" {
		round.ID = uuid.NewString()
	}
	_, err := r.db.Exec(
		`INSERT INTO rounds (id, difficulty, winner, human_moves, started_at, ended_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		round.ID, round.Difficulty, round.Winner, round.HumanMoves, round.StartedAt.UTC(), round.EndedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert round: %w", err)
	}
	return nil
}

// Get retrieves a round by ID.
func (r *RoundRepository) Get(id string) (*Round, error) {
	round := &Round{}
	err := r.db.QueryRow(
		`SELECT id, difficulty, winner, human_moves, started_at, ended_at
		 FROM rounds WHERE id = ?`,
		id,
	).Scan(&round.ID, &round.Difficulty, &round.Winner, &round.HumanMoves, &round.StartedAt, &round.EndedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return round, nil
}

// List returns up to limit rounds, most recent first. A limit of zero or
// less returns every round.
func (r *RoundRepository) List(limit int) ([]*Round, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.Query(
		`SELECT id, difficulty, winner, human_moves, started_at, ended_at
		 FROM rounds ORDER BY ended_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rounds []*Round
	for rows.Next() {
		round := &Round{}
		if err := rows.Scan(&round.ID, &round.Difficulty, &round.Winner, &round.HumanMoves, &round.StartedAt, &round.EndedAt); err != nil {
			return nil, err
		}
		rounds = append(rounds, round)
	}
	return rounds, rows.Err()
}

// Stats counts outcomes from the human player's point of view.
func (r *RoundRepository) Stats() (*RoundStats, error) {
	rows, err := r.db.Query(`SELECT difficulty, winner, COUNT(*) FROM rounds GROUP BY difficulty, winner`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	st := &RoundStats{ByMode: map[string]int{}}
	for rows.Next() {
		var difficulty, winner string
		var n int
		if err := rows.Scan(&difficulty, &winner, &n); err != nil {
			return nil, err
		}
		st.Total += n
		st.ByMode[difficulty] += n
		switch winner {
		case "X":
			st.Wins += n
		case "O":
			st.Losses += n
		case "DRAW":
			st.Draws += n
		}
	}
	return st, rows.Err()
}
