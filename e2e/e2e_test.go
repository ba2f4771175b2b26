package e2e

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/abhinaya/internal/app"
	"github.com/ayusman/abhinaya/internal/capture"
	"github.com/ayusman/abhinaya/internal/controller"
	"github.com/ayusman/abhinaya/internal/detector"
	"github.com/ayusman/abhinaya/internal/logging"
	"github.com/ayusman/abhinaya/internal/publish"
	"github.com/ayusman/abhinaya/internal/server"
	"github.com/ayusman/abhinaya/internal/session"
	"github.com/ayusman/abhinaya/internal/store"
	"github.com/ayusman/abhinaya/internal/synth"
)

const frame = 33 * time.Millisecond

// stepClock hands out ticks only when the test asks for them.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
	ch  chan time.Time
}

func newStepClock() *stepClock {
	return &stepClock{
		now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		ch:  make(chan time.Time),
	}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) NewTicker(time.Duration) app.Ticker { return c }
func (c *stepClock) C() <-chan time.Time                { return c.ch }
func (c *stepClock) Stop()                              {}

// run delivers ticks covering d. Each send blocks until the loop takes
// it, and the final empty send waits for the last frame to finish.
func (c *stepClock) run(d time.Duration) {
	for elapsed := time.Duration(0); elapsed < d; elapsed += frame {
		c.mu.Lock()
		c.now = c.now.Add(frame)
		now := c.now
		c.mu.Unlock()
		c.ch <- now
	}
	c.ch <- c.Now()
}

func getJSON(t *testing.T, client *http.Client, url string, v any) {
	t.Helper()
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("GET %s: decode: %v", url, err)
	}
}

func TestE2E_CompleteWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	s, err := store.New(filepath.Join(t.TempDir(), "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	tuning := controller.DefaultTuning()
	tuning.AngleWindow = 1
	tuning.EyeWindow = 1

	clock := newStepClock()
	det := detector.NewMockDetector()
	rec := &publish.Recorder{}
	application, err := app.New(app.Config{
		Camera:    capture.NewBlankCamera(640, 480),
		Detector:  det,
		Store:     s,
		Publisher: rec,
		Tuning:    tuning,
		Logger:    logging.Discard(),
		Clock:     clock,
	})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	if err := application.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer application.Stop()

	srv := server.New(server.Config{Store: s, Source: application, Logger: logging.Discard()})
	ts := httptest.NewServer(srv)
	defer ts.Close()
	client := ts.Client()

	det.SetFace(synth.Neutral().Frame())
	clock.run(200 * time.Millisecond)

	t.Run("NeedsCalibration", func(t *testing.T) {
		var snap session.Snapshot
		getJSON(t, client, ts.URL+"/api/session", &snap)
		if snap.Status != session.StatusNeedCalibrate {
			t.Errorf("status = %q, want %q", snap.Status, session.StatusNeedCalibrate)
		}
	})

	t.Run("Calibrate", func(t *testing.T) {
		resp, err := client.Post(ts.URL+"/api/calibrate", "application/json", nil)
		if err != nil {
			t.Fatalf("POST /api/calibrate: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusAccepted {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusAccepted)
		}

		clock.run(100 * time.Millisecond)
		var snap session.Snapshot
		getJSON(t, client, ts.URL+"/api/session", &snap)
		if !snap.Calibrated || !snap.Selecting {
			t.Errorf("snapshot = {Calibrated:%v Selecting:%v}, want both", snap.Calibrated, snap.Selecting)
		}

		var cals struct {
			Calibrations []store.Calibration `json:"calibrations"`
		}
		getJSON(t, client, ts.URL+"/api/calibrations", &cals)
		if len(cals.Calibrations) != 1 {
			t.Errorf("calibrations = %d, want 1", len(cals.Calibrations))
		}
	})

	t.Run("PlaceOverWebSocket", func(t *testing.T) {
		clock.run(5500 * time.Millisecond)

		url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws"
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			t.Fatalf("dial: %v", err)
		}
		defer conn.Close()
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))

		var first session.Snapshot
		if err := conn.ReadJSON(&first); err != nil {
			t.Fatalf("read: %v", err)
		}
		if first.Selecting {
			t.Fatal("difficulty selection should have locked")
		}

		closed := synth.Neutral()
		closed.EyeLeft, closed.EyeRight = synth.EyeClosed, synth.EyeClosed
		det.SetFace(closed.Frame())
		clock.run(500 * time.Millisecond)
		det.SetFace(synth.Neutral().Frame())
		clock.run(100 * time.Millisecond)

		var snap session.Snapshot
		getJSON(t, client, ts.URL+"/api/session", &snap)
		if snap.Board[1][1].String() != "X" {
			t.Errorf("centre = %q, want X", snap.Board[1][1])
		}
		if snap.Status != session.StatusPlaced {
			t.Errorf("status = %q, want %q", snap.Status, session.StatusPlaced)
		}

		for {
			var s session.Snapshot
			if err := conn.ReadJSON(&s); err != nil {
				t.Fatalf("websocket never showed the placed X: %v", err)
			}
			if s.Board[1][1].String() == "X" {
				break
			}
		}
	})

	t.Run("PauseTracking", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/enabled", bytes.NewBufferString(`{"enabled":false}`))
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("PUT /api/enabled: %v", err)
		}
		resp.Body.Close()

		calls := det.Calls()
		clock.run(100 * time.Millisecond)
		if det.Calls() != calls {
			t.Error("detector ran while paused")
		}

		var snap session.Snapshot
		getJSON(t, client, ts.URL+"/api/session", &snap)
		if snap.Status != session.StatusPaused {
			t.Errorf("status = %q, want %q", snap.Status, session.StatusPaused)
		}
	})

	t.Run("Events", func(t *testing.T) {
		kinds := strings.Join(rec.Kinds(), ",")
		for _, want := range []string{publish.KindCalibrated, publish.KindDifficulty, publish.KindPlace} {
			if !strings.Contains(kinds, want) {
				t.Errorf("events %q missing %q", kinds, want)
			}
		}
	})
}
