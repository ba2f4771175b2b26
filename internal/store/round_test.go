package store

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundRepository_CreateAndGet(t *testing.T) {
	s := newTestStore(t)
	repo := s.Rounds()

	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	r := &Round{
		Difficulty: "HARD",
		Winner:     "DRAW",
		HumanMoves: 5,
		StartedAt:  start,
		EndedAt:    start.Add(40 * time.Second),
	}
	require.NoError(t, repo.Create(r))
	require.NotEmpty(t, r.ID)

	got, err := repo.Get(r.ID)
	require.NoError(t, err)
	assert.Equal(t, "HARD", got.Difficulty)
	assert.Equal(t, "DRAW", got.Winner)
	assert.Equal(t, 5, got.HumanMoves)
	assert.True(t, got.StartedAt.Equal(r.StartedAt))
	assert.True(t, got.EndedAt.Equal(r.EndedAt))
}

func TestRoundRepository_GetMissing(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Rounds().Get("nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

func TestRoundRepository_RejectsUnknownValues(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	tests := []struct {
		name  string
		round Round
	}{
		{"difficulty", Round{Difficulty: "MEDIUM", Winner: "X", StartedAt: now, EndedAt: now}},
		{"winner", Round{Difficulty: "EASY", Winner: "NONE", StartedAt: now, EndedAt: now}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.round
			if err := s.Rounds().Create(&r); err == nil {
				t.Error("expected constraint error")
			}
		})
	}
}

func TestRoundRepository_ListAndStats(t *testing.T) {
	s := newTestStore(t)
	repo := s.Rounds()

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	rounds := []Round{
		{Difficulty: "EASY", Winner: "X"},
		{Difficulty: "EASY", Winner: "O"},
		{Difficulty: "HARD", Winner: "DRAW"},
		{Difficulty: "HARD", Winner: "DRAW"},
	}
	for i := range rounds {
		rounds[i].StartedAt = base.Add(time.Duration(i) * time.Minute)
		rounds[i].EndedAt = rounds[i].StartedAt.Add(30 * time.Second)
		require.NoError(t, repo.Create(&rounds[i]))
	}

	list, err := repo.List(0)
	require.NoError(t, err)
	require.Len(t, list, 4)
	assert.Equal(t, rounds[3].ID, list[0].ID, "most recent first")

	limited, err := repo.List(2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	st, err := repo.Stats()
	require.NoError(t, err)
	assert.Equal(t, 4, st.Total)
	assert.Equal(t, 1, st.Wins)
	assert.Equal(t, 1, st.Losses)
	assert.Equal(t, 2, st.Draws)
	assert.Equal(t, map[string]int{"EASY": 2, "HARD": 2}, st.ByMode)
}

func TestRoundRepository_StatsEmpty(t *testing.T) {
	s := newTestStore(t)

	st, err := s.Rounds().Stats()
	require.NoError(t, err)
	assert.Zero(t, st.Total)
	assert.NotNil(t, st.ByMode)
}
