// Package app runs the face-tracking frame loop: camera capture, landmark
// detection and the game session, publishing a snapshot after every frame.
package app

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/abhinaya/internal/capture"
	"github.com/ayusman/abhinaya/internal/controller"
	"github.com/ayusman/abhinaya/internal/detector"
	"github.com/ayusman/abhinaya/internal/game"
	"github.com/ayusman/abhinaya/internal/logging"
	"github.com/ayusman/abhinaya/internal/publish"
	"github.com/ayusman/abhinaya/internal/session"
	"github.com/ayusman/abhinaya/internal/store"
)

// Config holds configuration options for the application.
type Config struct {
	Camera    capture.Camera
	Detector  detector.Detector
	Store     *store.Store
	Publisher publish.Publisher
	Tuning    controller.Tuning
	FPS       int
	// RestoreCalibration applies the most recent stored baseline at
	// startup.
	RestoreCalibration bool
	Logger             logrus.FieldLogger
	Clock              Clock
}

// App owns the frame loop. Its exported methods are safe for concurrent
// use; the session itself is only touched by the loop goroutine.
type App struct {
	config   Config
	camera   capture.Camera
	detector detector.Detector
	session  *session.Session
	pub      publish.Publisher
	log      logrus.FieldLogger
	clock    Clock

	enabled   atomic.Bool
	calibrate chan struct{}

	mu     sync.RWMutex
	stopCh chan struct{}
	done   chan struct{}
	last   session.Snapshot
	subs   map[int]chan session.Snapshot
	nextID int

	preview *preview
}

// New creates an App. Camera and Detector are required.
func New(config Config) (*App, error) {
	if config.Camera == nil || config.Detector == nil {
		return nil, errors.New("app: camera and detector are required")
	}
	if config.FPS <= 0 {
		config.FPS = capture.DefaultFPS
	}
	if config.Publisher == nil {
		config.Publisher = publish.Nop{}
	}
	if config.Logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		config.Logger = l
	}
	if config.Clock == nil {
		config.Clock = RealClock{}
	}

	a := &App{
		config:    config,
		camera:    config.Camera,
		detector:  config.Detector,
		pub:       config.Publisher,
		log:       logging.Component(config.Logger, "app"),
		clock:     config.Clock,
		calibrate: make(chan struct{}, 1),
		subs:      make(map[int]chan session.Snapshot),
		preview:   newPreview(),
	}
	a.enabled.Store(true)

	g := game.New(a.initialDifficulty(), nil)
	opts := session.Options{Publisher: a.pub, Logger: config.Logger}
	if config.Store != nil {
		opts.History = &storeHistory{store: config.Store}
	}
	a.session = session.New(controller.New(config.Tuning), g, opts)

	if config.RestoreCalibration {
		a.restoreCalibration()
	}
	a.last = a.session.Last()
	return a, nil
}

func (a *App) initialDifficulty() game.Difficulty {
	if a.config.Store == nil {
		return game.Hard
	}
	v, err := a.config.Store.Settings().Get(store.SettingDifficulty)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			a.log.WithError(err).Warn("failed to read saved difficulty")
		}
		return game.Hard
	}
	d, ok := game.ParseDifficulty(v)
	if !ok {
		a.log.WithField("value", v).Warn("ignoring unknown saved difficulty")
	}
	return d
}

func (a *App) restoreCalibration() {
	if a.config.Store == nil {
		return
	}
	c, err := a.config.Store.Calibrations().Latest()
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			a.log.WithError(err).Warn("failed to load calibration")
		}
		return
	}
	a.session.Restore(baselineFromStore(c))
	a.log.WithField("id", c.ID).Info("restored calibration")
}

// SetEnabled pauses or resumes tracking.
func (a *App) SetEnabled(enabled bool) {
	if a.enabled.Swap(enabled) != enabled {
		a.log.WithField("enabled", enabled).Info("tracking toggled")
	}
}

// IsEnabled returns whether tracking is currently enabled.
func (a *App) IsEnabled() bool {
	return a.enabled.Load()
}

// RequestCalibrate asks the loop to calibrate on its next frame. Repeated
// requests before that frame collapse into one.
func (a *App) RequestCalibrate() {
	select {
	case a.calibrate <- struct{}{}:
	default:
	}
}

// Snapshot returns the most recent session snapshot.
func (a *App) Snapshot() session.Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.last
}

// Subscribe registers for snapshots. Slow subscribers only see the latest
// snapshot. The returned cancel func must be called to unsubscribe.
func (a *App) Subscribe() (<-chan session.Snapshot, func()) {
	ch := make(chan session.Snapshot, 1)

	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.subs[id] = ch
	a.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			a.mu.Lock()
			delete(a.subs, id)
			a.mu.Unlock()
		})
	}
}

// Preview returns the latest preview JPEG and its sequence number. Frames
// are only encoded while at least one viewer is watching.
func (a *App) Preview() ([]byte, uint64) {
	return a.preview.latest()
}

// WatchPreview registers a preview viewer; call the returned func when done.
func (a *App) WatchPreview() func() {
	return a.preview.watch()
}

// Start opens the camera and begins the frame loop.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil
	}
	if err := a.camera.Open(); err != nil {
		return err
	}
	a.camera.SetFPS(a.config.FPS)

	a.stopCh = make(chan struct{})
	a.done = make(chan struct{})
	ticker := a.clock.NewTicker(time.Second / time.Duration(a.config.FPS))
	go a.runPipeline(ticker, a.stopCh, a.done)

	a.log.WithField("fps", a.config.FPS).Info("frame loop started")
	return nil
}

// Stop halts the frame loop and releases the camera and detector.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh, done := a.stopCh, a.done
	a.stopCh, a.done = nil, nil
	a.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
		<-done
	}

	if err := a.camera.Close(); err != nil {
		a.log.WithError(err).Warn("error closing camera")
	}
	if err := a.detector.Close(); err != nil {
		a.log.WithError(err).Warn("error closing detector")
	}
	a.log.Info("frame loop stopped")
}
