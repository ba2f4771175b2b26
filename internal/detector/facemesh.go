package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/ayusman/abhinaya/internal/geom"
	"github.com/ayusman/abhinaya/internal/landmark"
	"gocv.io/x/gocv"
)

// ErrScriptNotFound is returned when facemesh_service.py cannot be located.
var ErrScriptNotFound = errors.New("facemesh_service.py not found")

// FaceMeshDetector implements Detector using a Python MediaPipe Face Mesh
// subprocess. Frames are sent as a 4-byte big-endian length followed by
// JPEG bytes; each reply is one JSON line.
type FaceMeshDetector struct {
	config    Config
	command   func() *exec.Cmd
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	mu        sync.Mutex
	started   bool
	idleTimer *time.Timer
}

// NewFaceMeshDetector creates a detector. The Python process is started
// lazily on first detection.
func NewFaceMeshDetector(config Config) (*FaceMeshDetector, error) {
	scriptPath := config.ScriptPath
	if scriptPath == "" {
		scriptPath = findFaceMeshScript()
	}
	if scriptPath == "" {
		return nil, ErrScriptNotFound
	}

	d := &FaceMeshDetector{config: config}
	d.command = func() *exec.Cmd {
		python := findVenvPython()
		if python == "" {
			python = "python3"
		}
		return exec.Command(python, scriptPath,
			"--min-detection", strconv.FormatFloat(config.MinConfidence, 'f', 2, 64),
			"--min-tracking", strconv.FormatFloat(config.MinTrackingConf, 'f', 2, 64),
		)
	}
	return d, nil
}

// Detect encodes the frame and asks the helper for landmarks.
func (d *FaceMeshDetector) Detect(frame *gocv.Mat) (*landmark.Frame, error) {
	if frame == nil || frame.Empty() {
		return nil, errors.New("empty frame")
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	return d.roundTrip(buf.GetBytes(), frame.Cols(), frame.Rows())
}

func (d *FaceMeshDetector) roundTrip(data []byte, width, height int) (*landmark.Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureStarted(); err != nil {
		return nil, err
	}

	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))

	if _, err := d.stdin.Write(length); err != nil {
		d.shutdown()
		return nil, fmt.Errorf("write length: %w", err)
	}
	if _, err := d.stdin.Write(data); err != nil {
		d.shutdown()
		return nil, fmt.Errorf("write data: %w", err)
	}

	line, err := d.stdout.ReadString('\n')
	if err != nil {
		d.shutdown()
		return nil, fmt.Errorf("read response: %w", err)
	}

	d.resetIdleTimer()
	return decodeResponse([]byte(line), width, height)
}

// Close shuts down the Python process.
func (d *FaceMeshDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

func (d *FaceMeshDetector) ensureStarted() error {
	if d.started {
		return nil
	}

	d.cmd = d.command()

	stdin, err := d.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}

	stdout, err := d.cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	// Capture stderr for debugging
	d.cmd.Stderr = os.Stderr

	if err := d.cmd.Start(); err != nil {
		return fmt.Errorf("start facemesh service: %w", err)
	}

	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	d.started = true

	return nil
}

func (d *FaceMeshDetector) shutdown() error {
	if !d.started {
		return nil
	}

	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}

	if d.stdin != nil {
		d.stdin.Close()
	}

	err := d.cmd.Wait()
	d.started = false
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil

	return err
}

func (d *FaceMeshDetector) resetIdleTimer() {
	if d.config.IdleTimeout <= 0 {
		return
	}
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(d.config.IdleTimeout, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.shutdown()
	})
}

// response is the JSON line written by the helper. Coordinates are
// normalised to [0, 1] of the frame size.
type response struct {
	Faces []struct {
		Points []struct {
			X float64 `json:"x"`
			Y float64 `json:"y"`
		} `json:"points"`
	} `json:"faces"`
	Error string `json:"error,omitempty"`
}

// decodeResponse converts a helper reply into a pixel-space frame for the
// first face. It returns nil when no face was reported.
func decodeResponse(line []byte, width, height int) (*landmark.Frame, error) {
	var r response
	if err := json.Unmarshal(line, &r); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if r.Error != "" {
		return nil, fmt.Errorf("facemesh service: %s", r.Error)
	}
	if len(r.Faces) == 0 {
		return nil, nil
	}

	src := r.Faces[0].Points
	f := &landmark.Frame{
		Points: make([]geom.Point, len(src)),
		Width:  width,
		Height: height,
	}
	for i, p := range src {
		f.Points[i] = geom.Point{X: p.X * float64(width), Y: p.Y * float64(height)}
	}
	return f, nil
}

func findFaceMeshScript() string {
	execPath, err := os.Executable()
	var execDir string
	if err == nil {
		execDir = filepath.Dir(execPath)
	}

	candidates := []string{
		"scripts/facemesh_service.py",
		"../scripts/facemesh_service.py",
		filepath.Join(execDir, "scripts/facemesh_service.py"),
		filepath.Join(os.Getenv("HOME"), ".abhinaya/scripts/facemesh_service.py"),
	}
	return firstExisting(candidates)
}

// findVenvPython looks for a Python interpreter in a virtual environment.
func findVenvPython() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	execDir := filepath.Dir(execPath)

	candidates := []string{
		"venv/bin/python",
		"../venv/bin/python",
		filepath.Join(execDir, "venv/bin/python"),
		filepath.Join(os.Getenv("HOME"), ".abhinaya/venv/bin/python"),
	}
	return firstExisting(candidates)
}

func firstExisting(paths []string) string {
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if abs, err := filepath.Abs(path); err == nil {
				return abs
			}
			return path
		}
	}
	return ""
}
