package tray

import (
	"strings"
	"testing"

	"github.com/ayusman/abhinaya/internal/game"
	"github.com/ayusman/abhinaya/internal/session"
)

func TestTray_Callbacks(t *testing.T) {
	tr := New()

	var toggled []bool
	calibrated, opened := 0, 0
	tr.OnToggle(func(enabled bool) { toggled = append(toggled, enabled) })
	tr.OnCalibrate(func() { calibrated++ })
	tr.OnOpenBoard(func() { opened++ })

	if !tr.IsEnabled() {
		t.Fatal("new tray should be enabled")
	}

	tr.handleToggle()
	tr.handleToggle()
	tr.handleCalibrate()
	tr.handleOpenBoard()

	if len(toggled) != 2 || toggled[0] || !toggled[1] {
		t.Errorf("toggle callbacks = %v, want [false true]", toggled)
	}
	if calibrated != 1 || opened != 1 {
		t.Errorf("calibrate = %d, open = %d, want 1 each", calibrated, opened)
	}
}

func TestTray_Follow(t *testing.T) {
	tr := New()
	snaps := make(chan session.Snapshot, 2)
	snaps <- session.Snapshot{Status: session.StatusNeedCalibrate}
	snaps <- session.Snapshot{Status: session.StatusPlaced}
	close(snaps)

	tr.Follow(snaps, make(chan struct{}))

	if tr.Status() != session.StatusPlaced {
		t.Errorf("Status() = %q, want %q", tr.Status(), session.StatusPlaced)
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		snap session.Snapshot
		want string
	}{
		{
			name: "status",
			snap: session.Snapshot{Status: session.StatusNoFace, FaceLost: true, Selecting: true, Calibrated: true, LockIn: 3},
			want: session.StatusNoFace,
		},
		{
			name: "selecting",
			snap: session.Snapshot{Status: session.StatusCalibrated, Selecting: true, Calibrated: true, Selected: game.Easy, LockIn: 4},
			want: "Selecting EASY (4s)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Describe(tt.snap); got != tt.want {
				t.Errorf("Describe() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStatusTitle(t *testing.T) {
	if got := statusTitle(""); got != "Status: starting" {
		t.Errorf("statusTitle(\"\") = %q", got)
	}
	long := statusTitle(session.StatusCalibrated)
	if !strings.HasSuffix(long, "…") || len([]rune(long)) != len("Status: ")+48 {
		t.Errorf("statusTitle(long) = %q", long)
	}
}
