package app

import (
	"time"

	"github.com/ayusman/abhinaya/internal/controller"
	"github.com/ayusman/abhinaya/internal/game"
	"github.com/ayusman/abhinaya/internal/session"
	"github.com/ayusman/abhinaya/internal/store"
)

// storeHistory persists session milestones to SQLite.
type storeHistory struct {
	store *store.Store
}

func (h *storeHistory) RoundEnded(r session.Round) error {
	return h.store.Rounds().Create(&store.Round{
		Difficulty: r.Difficulty.String(),
		Winner:     r.Winner.String(),
		HumanMoves: r.HumanMoves,
		StartedAt:  r.StartedAt,
		EndedAt:    r.EndedAt,
	})
}

func (h *storeHistory) Calibrated(b controller.Baseline, at time.Time) error {
	c := &store.Calibration{
		Pitch:     b.Pitch,
		Yaw:       b.Yaw,
		Roll:      b.Roll,
		CreatedAt: at,
	}
	if b.EyeLeftSet {
		v := b.EyeLeft
		c.EyeLeft = &v
	}
	if b.EyeRightSet {
		v := b.EyeRight
		c.EyeRight = &v
	}
	return h.store.Calibrations().Create(c)
}

func (h *storeHistory) DifficultyLocked(d game.Difficulty) error {
	return h.store.Settings().Set(store.SettingDifficulty, d.String())
}

func baselineFromStore(c *store.Calibration) controller.Baseline {
	b := controller.Baseline{Pitch: c.Pitch, Yaw: c.Yaw, Roll: c.Roll}
	if c.EyeLeft != nil {
		b.EyeLeft, b.EyeLeftSet = *c.EyeLeft, true
	}
	if c.EyeRight != nil {
		b.EyeRight, b.EyeRightSet = *c.EyeRight, true
	}
	return b
}
