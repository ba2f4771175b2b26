package controller

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ayusman/abhinaya/internal/intent"
	"github.com/go-playground/validator/v10"
)

// Duration is a time.Duration that reads and writes JSON as a duration
// string such as "350ms".
type Duration struct {
	time.Duration
}

// MarshalJSON writes the duration as a string such as "350ms".
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON parses a duration string such as "3s".
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = v
	return nil
}

// Tuning holds every threshold and timing constant of the gesture
// pipeline and the session loop built on it.
type Tuning struct {
	intent.Thresholds

	AngleWindow  int     `json:"angle_window" validate:"min=1,max=120"`
	EyeWindow    int     `json:"eye_window" validate:"min=1,max=120"`
	IntentFrames int     `json:"intent_frames" validate:"min=1"`
	BlinkDrop    float64 `json:"blink_drop" validate:"gt=0,lt=1"`

	PlaceHold      Duration `json:"place_hold"`
	ResetHold      Duration `json:"reset_hold"`
	FaceLossGrace  Duration `json:"face_loss_grace"`
	NeutralFrames  int      `json:"neutral_frames" validate:"min=1"`
	SelectTimeout  Duration `json:"select_timeout"`
	AutoResetDelay Duration `json:"auto_reset_delay"`
}

// DefaultTuning returns the values the pipeline was tuned with at 30 fps.
func DefaultTuning() Tuning {
	return Tuning{
		Thresholds:     intent.DefaultThresholds(),
		AngleWindow:    9,
		EyeWindow:      5,
		IntentFrames:   3,
		BlinkDrop:      0.72,
		PlaceHold:      Duration{350 * time.Millisecond},
		ResetHold:      Duration{3 * time.Second},
		FaceLossGrace:  Duration{800 * time.Millisecond},
		NeutralFrames:  2,
		SelectTimeout:  Duration{5 * time.Second},
		AutoResetDelay: Duration{5 * time.Second},
	}
}

var validate = validator.New()

// Validate checks field ranges.
func (t Tuning) Validate() error {
	if err := validate.Struct(t); err != nil {
		return fmt.Errorf("invalid tuning: %w", err)
	}
	for name, d := range map[string]Duration{
		"place_hold":       t.PlaceHold,
		"reset_hold":       t.ResetHold,
		"select_timeout":   t.SelectTimeout,
		"auto_reset_delay": t.AutoResetDelay,
	} {
		if d.Duration <= 0 {
			return fmt.Errorf("invalid tuning: %s must be positive, got %v", name, d.Duration)
		}
	}
	if t.FaceLossGrace.Duration < 0 {
		return fmt.Errorf("invalid tuning: face_loss_grace must be non-negative, got %v", t.FaceLossGrace.Duration)
	}
	return nil
}

// LoadTuning reads a JSON tuning file. Fields omitted from the file keep
// their DefaultTuning values.
func LoadTuning(path string) (Tuning, error) {
	clean := filepath.Clean(path)
	if ext := filepath.Ext(clean); ext != ".json" {
		return Tuning{}, fmt.Errorf("tuning file must have .json extension, got %q", ext)
	}

	data, err := os.ReadFile(clean)
	if err != nil {
		return Tuning{}, fmt.Errorf("failed to read tuning file: %w", err)
	}

	t := DefaultTuning()
	if err := json.Unmarshal(data, &t); err != nil {
		return Tuning{}, fmt.Errorf("failed to parse tuning JSON: %w", err)
	}
	if err := t.Validate(); err != nil {
		return Tuning{}, err
	}
	return t, nil
}
