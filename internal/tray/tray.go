// Package tray provides the system tray menu for abhinaya.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/abhinaya/internal/session"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle    func(enabled bool)
	onCalibrate func()
	onOpenBoard func()
	onQuit      func()
	enabled     bool
	status      string
	mu          sync.RWMutex

	// Menu items stored for later updates
	menuToggle *systray.MenuItem
	menuStatus *systray.MenuItem
}

// New creates a new Tray instance with tracking enabled.
func New() *Tray {
	return &Tray{
		enabled: true,
	}
}

// OnToggle sets the callback invoked when tracking is toggled.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnCalibrate sets the callback invoked by the Calibrate item.
func (t *Tray) OnCalibrate(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onCalibrate = fn
}

// OnOpenBoard sets the callback invoked by the Open Board item.
func (t *Tray) OnOpenBoard(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpenBoard = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until Quit is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray, making Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("Abhinaya")
	systray.SetTooltip("Abhinaya face-gesture tic-tac-toe")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Pause or resume face tracking")
	systray.AddSeparator()
	menuCalibrate := systray.AddMenuItem("Calibrate", "Capture neutral pose (eyes open, face forward)")
	t.menuStatus = systray.AddMenuItem(statusTitle(t.status), "Current game status")
	t.menuStatus.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuBoard := systray.AddMenuItem("Open Board...", "Open the board in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Abhinaya")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuCalibrate.ClickedCh:
				t.handleCalibrate()
			case <-menuBoard.ClickedCh:
				t.handleOpenBoard()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

// handleToggle handles the toggle menu item click.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) handleCalibrate() {
	t.mu.RLock()
	callback := t.onCalibrate
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleOpenBoard() {
	t.mu.RLock()
	callback := t.onOpenBoard
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
	systray.Quit()
}

// SetStatus updates the status line in the menu.
func (t *Tray) SetStatus(status string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if status == t.status {
		return
	}
	t.status = status
	if t.menuStatus != nil {
		t.menuStatus.SetTitle(statusTitle(status))
	}
}

// Status returns the status line last set.
func (t *Tray) Status() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// Follow updates the status line from snaps until the channel closes or
// done is closed.
func (t *Tray) Follow(snaps <-chan session.Snapshot, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case snap, ok := <-snaps:
			if !ok {
				return
			}
			t.SetStatus(Describe(snap))
		}
	}
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// Describe summarises a snapshot in one menu line.
func Describe(s session.Snapshot) string {
	if s.Selecting && s.Calibrated && !s.FaceLost && s.LockIn > 0 {
		return fmt.Sprintf("Selecting %s (%ds)", s.Selected, s.LockIn)
	}
	return s.Status
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Tracking"
	}
	return "○ Paused"
}

func statusTitle(status string) string {
	if status == "" {
		return "Status: starting"
	}
	const max = 48
	if r := []rune(status); len(r) > max {
		status = string(r[:max-1]) + "…"
	}
	return "Status: " + status
}
