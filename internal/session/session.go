// Package session runs the per-frame game loop on top of controller
// actions: face-loss grace, calibration, difficulty selection, the
// place/reset holds, automatic round reset and cursor movement.
package session

import (
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/abhinaya/internal/controller"
	"github.com/ayusman/abhinaya/internal/game"
	"github.com/ayusman/abhinaya/internal/input"
	"github.com/ayusman/abhinaya/internal/landmark"
	"github.com/ayusman/abhinaya/internal/logging"
	"github.com/ayusman/abhinaya/internal/publish"
)

// Status lines shown to the player.
const (
	StatusPressCalibrate = "Press C to calibrate (eyes open, face forward)."
	StatusCalibrated     = "Calibrated. Head moves (1 step/gesture). BOTH eyes=PLACE. Right-only 3s=RESET."
	StatusRestored       = "Calibration restored. Select difficulty (head left/right)."
	StatusReadFailed     = "Webcam read failed."
	StatusNoFace         = "No face detected. Center yourself."
	StatusNeedCalibrate  = "Face detected. Press C to calibrate."
	StatusReset          = "Reset! Re-select difficulty (head left/right)."
	StatusNewRound       = "New round. Re-select difficulty (head left/right)."
	StatusPlaced         = "Placed X. Your turn."
	StatusCellTaken      = "Cell taken. Move cursor then hold BOTH eyes."
	StatusPaused         = "Tracking paused."
)

// Round is a finished round as reported to History.
type Round struct {
	Difficulty game.Difficulty
	Winner     game.Winner
	HumanMoves int
	StartedAt  time.Time
	EndedAt    time.Time
}

// History persists session milestones. Errors are logged and otherwise
// ignored; the frame loop never stops for storage.
type History interface {
	RoundEnded(r Round) error
	Calibrated(b controller.Baseline, at time.Time) error
	DifficultyLocked(d game.Difficulty) error
}

// Options configures a Session. Zero values use no-op collaborators.
type Options struct {
	Publisher publish.Publisher
	History   History
	Logger    logrus.FieldLogger
}

// Session owns the controller, input state and game for one player. It is
// driven by a single goroutine and is not safe for concurrent use;
// Snapshots it returns are independent copies.
type Session struct {
	ctrl   *controller.Controller
	tuning controller.Tuning
	game   *game.Game
	input  *input.State

	pub  publish.Publisher
	hist History
	log  logrus.FieldLogger

	status     string
	selecting  bool
	selectFrom time.Time
	selected   game.Difficulty
	roundStart time.Time
	gameEnd    time.Time

	last Snapshot
}

// New creates a session. The game's difficulty is the initial selection.
func New(c *controller.Controller, g *game.Game, opts Options) *Session {
	t := c.Tuning()
	s := &Session{
		ctrl:      c,
		tuning:    t,
		game:      g,
		input:     input.New(t.PlaceHold.Duration, t.ResetHold.Duration),
		pub:       opts.Publisher,
		hist:      opts.History,
		log:       opts.Logger,
		status:    StatusPressCalibrate,
		selecting: true,
		selected:  g.Difficulty,
	}
	if s.pub == nil {
		s.pub = publish.Nop{}
	}
	if s.hist == nil {
		s.hist = nopHistory{}
	}
	if s.log == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		s.log = l
	}
	s.log = logging.Component(s.log, "session")
	return s
}

// Calibrate captures the current smoothed pose and eye ratios as the
// baseline and starts difficulty selection.
func (s *Session) Calibrate(now time.Time) controller.Baseline {
	b := s.ctrl.Calibrate()
	s.status = StatusCalibrated
	s.input.OnCalibrate()
	s.beginSelect(now)

	s.log.WithFields(logrus.Fields{
		"pitch": b.Pitch,
		"yaw":   b.Yaw,
		"roll":  b.Roll,
	}).Info("calibrated")
	if err := s.hist.Calibrated(b, now); err != nil {
		s.log.WithError(err).Warn("failed to save calibration")
	}
	s.emit(now, publish.KindCalibrated, b)
	return b
}

// Restore applies a previously saved baseline. Selection starts on the
// next frame with a face.
func (s *Session) Restore(b controller.Baseline) {
	s.ctrl.SetBaseline(b)
	s.status = StatusRestored
	s.input.OnCalibrate()
	s.selecting = true
	s.selectFrom = time.Time{}
}

// Idle reports a frame where no detection ran, for example when the camera
// read failed or tracking is paused. status overrides the snapshot's status
// line only; the session's own status is kept for the next Step.
func (s *Session) Idle(now time.Time, status string) Snapshot {
	snap := s.snapshot(now, controller.Action{})
	snap.Status = status
	s.last = snap
	return snap
}

// Step processes one landmark frame; f is nil when no face was detected.
func (s *Session) Step(now time.Time, f *landmark.Frame) Snapshot {
	a := s.ctrl.Process(f)
	if a.FaceFound {
		s.input.SawFace(now)
	}

	if s.input.FaceLost(now, s.tuning.FaceLossGrace.Duration) {
		s.status = StatusNoFace
		snap := s.snapshot(now, a)
		snap.FaceLost = true
		return snap
	}
	if !a.FaceFound {
		return s.snapshot(now, a)
	}
	if !s.ctrl.Calibrated() {
		s.status = StatusNeedCalibrate
		return s.snapshot(now, a)
	}

	if s.selecting && !s.stepSelect(now, a) {
		return s.snapshot(now, a)
	}

	if s.input.Reset(now, a.LeftEyeClosed, a.RightEyeClosed) {
		s.log.Info("manual reset")
		s.emit(now, publish.KindReset, nil)
		s.newRound(now, StatusReset)
	}

	if s.game.Over() {
		if s.gameEnd.IsZero() {
			s.gameEnd = now
		}
		remaining := s.tuning.AutoResetDelay.Duration - now.Sub(s.gameEnd)
		if remaining > 0 {
			s.status = fmt.Sprintf("Game over: %s. Auto reset in %ds.", s.game.Winner(), countdown(remaining))
		} else {
			s.newRound(now, StatusNewRound)
			return s.snapshot(now, a)
		}
	}

	if s.input.Place(now, a.LeftEyeClosed, a.RightEyeClosed, s.game.Over()) {
		s.place(now)
	}

	if !s.game.Over() {
		s.move(a)
	}
	return s.snapshot(now, a)
}

// Last returns the most recent snapshot.
func (s *Session) Last() Snapshot { return s.last }

// stepSelect advances difficulty selection and reports whether play may
// continue this frame.
func (s *Session) stepSelect(now time.Time, a controller.Action) bool {
	if s.selectFrom.IsZero() {
		s.selectFrom = now
	}

	s.input.UpdateNeutral(a.MoveX, 0, s.tuning.NeutralFrames)
	if s.input.MoveArmed() && a.MoveX != 0 {
		if a.MoveX < 0 {
			s.selected = game.Easy
		} else {
			s.selected = game.Hard
		}
		s.input.ConsumeMove(true)
	}

	if s.tuning.SelectTimeout.Duration-now.Sub(s.selectFrom) > 0 {
		return false
	}

	s.game.Difficulty = s.selected
	s.selecting = false
	s.roundStart = now
	s.status = fmt.Sprintf("Difficulty locked: %s. Start playing!", s.selected)
	s.input.OnCalibrate()

	s.log.WithField("difficulty", s.selected.String()).Info("difficulty locked")
	if err := s.hist.DifficultyLocked(s.selected); err != nil {
		s.log.WithError(err).Warn("failed to save difficulty")
	}
	s.emit(now, publish.KindDifficulty, s.selected)
	return true
}

func (s *Session) place(now time.Time) {
	if !s.game.PlaceX() {
		s.status = StatusCellTaken
		return
	}
	cur := s.game.Cursor()
	s.emit(now, publish.KindPlace, cur)
	s.game.MaybeAITurn()

	delay := int(s.tuning.AutoResetDelay.Seconds())
	switch s.game.Winner() {
	case game.WinnerX:
		s.status = fmt.Sprintf("You win! Auto reset in %ds", delay)
	case game.WinnerO:
		s.status = fmt.Sprintf("AI wins! Auto reset in %ds", delay)
	case game.Draw:
		s.status = fmt.Sprintf("Draw! Auto reset in %ds", delay)
	default:
		s.status = StatusPlaced
		return
	}
	s.gameEnd = now
	s.endRound(now)
}

func (s *Session) endRound(now time.Time) {
	r := Round{
		Difficulty: s.game.Difficulty,
		Winner:     s.game.Winner(),
		HumanMoves: s.game.HumanMoves(),
		StartedAt:  s.roundStart,
		EndedAt:    now,
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = now
	}
	s.log.WithFields(logrus.Fields{
		"winner":     r.Winner.String(),
		"difficulty": r.Difficulty.String(),
		"moves":      r.HumanMoves,
	}).Info("round ended")
	if err := s.hist.RoundEnded(r); err != nil {
		s.log.WithError(err).Warn("failed to save round")
	}
	s.emit(now, publish.KindRoundEnd, map[string]any{
		"winner":      r.Winner,
		"difficulty":  r.Difficulty,
		"human_moves": r.HumanMoves,
		"duration_ms": r.EndedAt.Sub(r.StartedAt).Milliseconds(),
	})
}

func (s *Session) move(a controller.Action) {
	mx, my := input.ChooseAxis(a.MoveX, a.MoveY, a.Yaw, a.Pitch)
	s.input.UpdateNeutral(mx, my, s.tuning.NeutralFrames)

	moved := false
	if s.input.MoveArmed() {
		switch {
		case mx != 0:
			s.game.MoveCursor(mx, 0)
			moved = true
		case my != 0:
			s.game.MoveCursor(0, my)
			moved = true
		}
	}
	s.input.ConsumeMove(moved)
}

func (s *Session) newRound(now time.Time, status string) {
	s.game.Reset()
	s.input.OnCalibrate()
	s.gameEnd = time.Time{}
	s.selected = s.game.Difficulty
	s.beginSelect(now)
	s.status = status
}

func (s *Session) beginSelect(now time.Time) {
	s.selecting = true
	s.selectFrom = now
}

func (s *Session) emit(now time.Time, kind string, data any) {
	if err := s.pub.Publish(publish.Event{Kind: kind, At: now, Data: data}); err != nil {
		s.log.WithError(err).WithField("kind", kind).Warn("publish failed")
	}
}

// countdown rounds a remaining duration up to whole seconds for display.
func countdown(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}

type nopHistory struct{}

func (nopHistory) RoundEnded(Round) error                          { return nil }
func (nopHistory) Calibrated(controller.Baseline, time.Time) error { return nil }
func (nopHistory) DifficultyLocked(game.Difficulty) error          { return nil }
