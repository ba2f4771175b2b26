package session

import (
	"time"

	"github.com/ayusman/abhinaya/internal/controller"
	"github.com/ayusman/abhinaya/internal/game"
)

// Snapshot is the observable state after one frame.
type Snapshot struct {
	At     time.Time         `json:"at"`
	Action controller.Action `json:"action"`

	Board      [3][3]game.Mark `json:"board"`
	Cursor     game.Cell       `json:"cursor"`
	Winner     game.Winner     `json:"winner"`
	WinLine    []game.Cell     `json:"win_line,omitempty"`
	Difficulty game.Difficulty `json:"difficulty"`
	HumanMoves int             `json:"human_moves"`

	Status     string `json:"status"`
	Calibrated bool   `json:"calibrated"`
	FaceLost   bool   `json:"face_lost"`

	Selecting bool            `json:"selecting"`
	Selected  game.Difficulty `json:"selected"`
	// LockIn is the whole seconds left before the selection locks.
	LockIn int `json:"lock_in,omitempty"`

	PlaceHold     string  `json:"place_hold"`
	ResetHold     string  `json:"reset_hold"`
	ResetProgress float64 `json:"reset_progress"`
}

func (s *Session) snapshot(now time.Time, a controller.Action) Snapshot {
	snap := Snapshot{
		At:            now,
		Action:        a,
		Board:         s.game.Board(),
		Cursor:        s.game.Cursor(),
		Winner:        s.game.Winner(),
		WinLine:       s.game.WinLine(),
		Difficulty:    s.game.Difficulty,
		HumanMoves:    s.game.HumanMoves(),
		Status:        s.status,
		Calibrated:    s.ctrl.Calibrated(),
		Selecting:     s.selecting,
		Selected:      s.selected,
		PlaceHold:     s.input.PlaceState().String(),
		ResetHold:     s.input.ResetState().String(),
		ResetProgress: s.input.ResetProgress(now),
	}
	if s.selecting && !s.selectFrom.IsZero() {
		if left := s.tuning.SelectTimeout.Duration - now.Sub(s.selectFrom); left > 0 {
			snap.LockIn = countdown(left)
		}
	}
	s.last = snap
	return snap
}
