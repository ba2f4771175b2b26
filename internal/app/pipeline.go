package app

import (
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/abhinaya/internal/session"
)

// runPipeline is the frame loop. Each tick:
//  1. applies a pending calibration request
//  2. reads a frame, or reports the read failure
//  3. detects landmarks and steps the session
//  4. fans the snapshot out to subscribers and the publisher
func (a *App) runPipeline(ticker Ticker, stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C():
			a.tick(a.clock.Now())
		}
	}
}

func (a *App) tick(now time.Time) {
	select {
	case <-a.calibrate:
		a.session.Calibrate(now)
	default:
	}

	if !a.IsEnabled() {
		a.emit(a.session.Idle(now, session.StatusPaused))
		return
	}

	frame, err := a.camera.ReadFrame()
	if err != nil {
		a.log.WithError(err).Debug("frame read failed")
		a.emit(a.session.Idle(now, session.StatusReadFailed))
		return
	}
	defer frame.Close()

	face, err := a.detector.Detect(frame)
	if err != nil {
		a.log.WithError(err).Debug("detection failed")
		face = nil
	}
	a.preview.update(frame)

	a.emit(a.session.Step(now, face))
}

// emit stores snap as the latest snapshot and delivers it to subscribers.
// The broker only sees snapshots whose visible state changed.
func (a *App) emit(snap session.Snapshot) {
	a.mu.Lock()
	prev := a.last
	a.last = snap
	for _, ch := range a.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
	a.mu.Unlock()

	if visiblyChanged(prev, snap) {
		if err := a.pub.Status(snap); err != nil {
			a.log.WithError(err).Debug("status publish failed")
		}
	}
}

func visiblyChanged(prev, cur session.Snapshot) bool {
	return prev.Status != cur.Status ||
		prev.Board != cur.Board ||
		prev.Cursor != cur.Cursor ||
		prev.Selecting != cur.Selecting ||
		prev.Selected != cur.Selected ||
		prev.FaceLost != cur.FaceLost ||
		prev.Calibrated != cur.Calibrated
}

// preview holds the latest JPEG-encoded camera frame.
type preview struct {
	mu      sync.RWMutex
	jpeg    []byte
	seq     uint64
	viewers int
}

func newPreview() *preview {
	return &preview{}
}

func (p *preview) watch() func() {
	p.mu.Lock()
	p.viewers++
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			p.viewers--
			p.mu.Unlock()
		})
	}
}

func (p *preview) update(frame *gocv.Mat) {
	p.mu.RLock()
	watched := p.viewers > 0
	p.mu.RUnlock()
	if !watched || frame == nil || frame.Empty() {
		return
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return
	}
	data := append([]byte(nil), buf.GetBytes()...)
	buf.Close()

	p.mu.Lock()
	p.jpeg = data
	p.seq++
	p.mu.Unlock()
}

func (p *preview) latest() ([]byte, uint64) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.jpeg, p.seq
}
