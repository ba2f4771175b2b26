// Package detector locates face-mesh landmarks in camera frames.
package detector

import (
	"time"

	"github.com/ayusman/abhinaya/internal/landmark"
	"gocv.io/x/gocv"
)

// Detector defines the interface for face landmark detection.
type Detector interface {
	// Detect analyzes a video frame and returns the landmarks of the most
	// prominent face in pixel coordinates, or nil if no face was found.
	Detect(frame *gocv.Mat) (*landmark.Frame, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for face detection.
type Config struct {
	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// ScriptPath overrides the location of facemesh_service.py.
	ScriptPath string

	// IdleTimeout stops the helper process after this long without a
	// request. It is restarted on the next Detect.
	IdleTimeout time.Duration
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MinConfidence:   0.6,
		MinTrackingConf: 0.6,
		IdleTimeout:     30 * time.Second,
	}
}
