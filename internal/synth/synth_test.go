package synth

import (
	"math"
	"testing"

	"github.com/ayusman/abhinaya/internal/eye"
	"github.com/ayusman/abhinaya/internal/pose"
)

func TestFace_Frame(t *testing.T) {
	f := Face{Angles: pose.Angles{Yaw: 20}, EyeLeft: EyeOpen, EyeRight: EyeClosed}
	fr := f.Frame()
	if fr == nil {
		t.Fatal("expected a frame")
	}
	if fr.Width != 640 || fr.Height != 480 {
		t.Errorf("size = %dx%d, want 640x480", fr.Width, fr.Height)
	}

	left, right, ok := eye.Ratios(fr)
	if !ok {
		t.Fatal("expected eye ratios")
	}
	if math.Abs(left-EyeOpen) > 0.01 || math.Abs(right-EyeClosed) > 0.01 {
		t.Errorf("ratios = (%.3f, %.3f), want (%.2f, %.2f)", left, right, EyeOpen, EyeClosed)
	}

	got, ok := pose.NewEstimator().Estimate(fr)
	if !ok {
		t.Fatal("expected pose solve to succeed")
	}
	if math.Abs(got.Yaw-20) > 0.5 {
		t.Errorf("yaw = %.2f, want 20", got.Yaw)
	}
}

func TestFace_BehindCamera(t *testing.T) {
	if fr := (Face{Distance: -100}).Frame(); fr != nil {
		t.Error("expected nil frame for a head behind the camera")
	}
}
