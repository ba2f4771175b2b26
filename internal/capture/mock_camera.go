package capture

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// MockCamera plays back frames, or produces blank frames of a fixed size
// when it has none. It backs demo mode and tests.
type MockCamera struct {
	frames        []*gocv.Mat
	width, height int
	index         int
	loop          bool
	fps           int
	mu            sync.Mutex
	running       bool
	failNext      int
}

// NewMockCamera plays back frames in order, looping if requested.
func NewMockCamera(frames []*gocv.Mat, loop bool) *MockCamera {
	return &MockCamera{frames: frames, loop: loop, fps: DefaultFPS}
}

// NewBlankCamera produces an endless stream of black frames.
func NewBlankCamera(width, height int) *MockCamera {
	return &MockCamera{width: width, height: height, loop: true, fps: DefaultFPS}
}

// Open marks the camera open and rewinds to the first frame.
func (c *MockCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = true
	c.index = 0
	return nil
}

// Close marks the camera closed.
func (c *MockCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	return nil
}

// ReadFrame returns a clone of the next frame, or a blank frame when none
// were loaded.
func (c *MockCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil, ErrCameraNotOpen
	}
	if c.failNext > 0 {
		c.failNext--
		return nil, ErrReadFailed
	}

	if len(c.frames) == 0 {
		if c.width <= 0 || c.height <= 0 {
			return nil, fmt.Errorf("no frames available")
		}
		m := gocv.NewMatWithSize(c.height, c.width, gocv.MatTypeCV8UC3)
		return &m, nil
	}

	if c.index >= len(c.frames) {
		if !c.loop {
			return nil, fmt.Errorf("no more frames")
		}
		c.index = 0
	}

	// Clone the frame so the original isn't modified
	frame := c.frames[c.index].Clone()
	c.index++

	return &frame, nil
}

// SetFPS sets the reported frame rate.
func (c *MockCamera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fps = fps
}

// FPS returns the configured frame rate.
func (c *MockCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

// IsOpen reports whether Open has been called without Close.
func (c *MockCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// FailReads makes the next n reads return ErrReadFailed.
func (c *MockCamera) FailReads(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failNext = n
}

// Reset restarts playback from the beginning
func (c *MockCamera) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = 0
}
