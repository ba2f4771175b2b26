// abhinaya plays tic-tac-toe with head turns and eye closures tracked by
// the webcam. It serves the board and controls over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ayusman/abhinaya/internal/app"
	"github.com/ayusman/abhinaya/internal/capture"
	"github.com/ayusman/abhinaya/internal/config"
	"github.com/ayusman/abhinaya/internal/detector"
	"github.com/ayusman/abhinaya/internal/logging"
	"github.com/ayusman/abhinaya/internal/plugin"
	"github.com/ayusman/abhinaya/internal/publish"
	"github.com/ayusman/abhinaya/internal/server"
	"github.com/ayusman/abhinaya/internal/store"
	"github.com/ayusman/abhinaya/internal/tray"
)

var version = "dev"

// The tray menu must run on the main OS thread.
func init() {
	runtime.LockOSThread()
}

type flags struct {
	envFile string
	demo    bool
}

func main() {
	var f flags
	cfg, err := config.Load(envFileFromArgs(os.Args[1:]))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cmd := &cobra.Command{
		Use:   "abhinaya",
		Short: "Hands-free tic-tac-toe driven by head pose and eye closure",
		Long: `abhinaya tracks your face through the webcam. Turn your head to move
the cursor, hold both eyes closed to place an X and hold only your right
eye closed for three seconds to reset the round.

Open the board in a browser at the HTTP address and press Calibrate while
looking straight at the camera with your eyes open.`,
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Finalize(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg, f)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.envFile, "env-file", ".env", "dotenv file with ABHINAYA_* settings")
	fl.BoolVar(&f.demo, "demo", false, "replay a scripted face instead of using the camera")
	fl.IntVar(&cfg.CameraID, "camera", cfg.CameraID, "camera device index")
	fl.BoolVar(&cfg.Mirror, "mirror", cfg.Mirror, "flip frames horizontally")
	fl.IntVar(&cfg.FPS, "fps", cfg.FPS, "frame rate of the tracking loop")
	fl.StringVar(&cfg.HTTPAddr, "addr", cfg.HTTPAddr, "HTTP listen address")
	fl.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory for the database")
	fl.StringVar(&cfg.WebDir, "web-dir", cfg.WebDir, "static board UI directory (searched for when empty)")
	fl.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	fl.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "rotated log file")
	fl.StringVar(&cfg.MQTTBroker, "mqtt-broker", cfg.MQTTBroker, "MQTT broker URL, e.g. tcp://localhost:1883")
	fl.StringVar(&cfg.MQTTClientID, "mqtt-client-id", cfg.MQTTClientID, "MQTT client id")
	fl.StringVar(&cfg.MQTTPrefix, "mqtt-prefix", cfg.MQTTPrefix, "MQTT topic prefix")
	fl.StringVar(&cfg.PluginDir, "plugin-dir", cfg.PluginDir, "event plugin directory (default <data-dir>/plugins)")
	fl.DurationVar(&cfg.PluginTimeout, "plugin-timeout", cfg.PluginTimeout, "maximum run time of one plugin call")
	fl.BoolVar(&cfg.Tray, "tray", cfg.Tray, "show the system tray menu")
	fl.BoolVar(&cfg.RestoreCalibration, "restore-calibration", cfg.RestoreCalibration, "reuse the last saved calibration")
	fl.StringVar(&cfg.TuningFile, "tuning", cfg.TuningFile, "JSON file overriding gesture tuning")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if err := cmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// envFileFromArgs finds --env-file before flag parsing so the file can
// seed flag defaults.
func envFileFromArgs(args []string) string {
	for i, a := range args {
		switch {
		case a == "--env-file" && i+1 < len(args):
			return args[i+1]
		case len(a) > len("--env-file=") && a[:len("--env-file=")] == "--env-file=":
			return a[len("--env-file="):]
		}
	}
	return ".env"
}

func run(ctx context.Context, cfg config.Config, f flags) error {
	log, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return err
	}
	log.WithField("version", version).Info("abhinaya starting")

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	st, err := store.New(cfg.DBPath(), store.WithLogger(log))
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	pub, err := newPublisher(cfg, log)
	if err != nil {
		return err
	}
	defer pub.Close()

	cam, det, err := newInput(cfg, f.demo, log)
	if err != nil {
		return err
	}
	a, err := app.New(app.Config{
		Camera:             cam,
		Detector:           det,
		Store:              st,
		Publisher:          pub,
		Tuning:             cfg.Tuning,
		FPS:                cfg.FPS,
		RestoreCalibration: cfg.RestoreCalibration,
		Logger:             log,
	})
	if err != nil {
		det.Close()
		return err
	}
	if err := a.Start(); err != nil {
		return fmt.Errorf("failed to start tracking: %w", err)
	}
	defer a.Stop()
	if f.demo && !cfg.RestoreCalibration {
		go func() {
			time.Sleep(2 * time.Second)
			a.RequestCalibrate()
		}()
	}

	webDir := cfg.WebDir
	if webDir == "" {
		webDir = findWebDir()
	}
	if webDir != "" {
		log.WithField("dir", webDir).Info("serving board UI")
	}
	srv := server.New(server.Config{StaticDir: webDir, Store: st, Source: a, Logger: log})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe(ctx, cfg.HTTPAddr)
		cancel()
	}()

	if cfg.Tray {
		runTray(ctx, cancel, a, "http://"+cfg.HTTPAddr, log)
	}

	select {
	case <-ctx.Done():
		log.Info("shutting down")
		return <-errCh
	case err := <-errCh:
		return err
	}
}

// newPublisher fans events out to the MQTT broker, when one is set, and to
// any plugins installed under the plugin directory.
func newPublisher(cfg config.Config, log logrus.FieldLogger) (publish.Publisher, error) {
	var pubs publish.Multi
	if cfg.MQTTBroker != "" {
		m, err := publish.NewMQTT(publish.MQTTOptions{
			Broker:   cfg.MQTTBroker,
			ClientID: cfg.MQTTClientID,
			Prefix:   cfg.MQTTPrefix,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
		}
		pubs = append(pubs, m)
	}

	plugins := plugin.NewManager(cfg.PluginsPath())
	if err := plugins.Discover(); err != nil {
		log.WithError(err).Warn("failed to discover plugins")
	}
	if found := plugins.List(); len(found) > 0 {
		for _, p := range found {
			log.WithFields(logrus.Fields{
				"plugin": p.Manifest.Name,
				"events": p.Manifest.Events,
			}).Info("plugin loaded")
		}
		pubs = append(pubs, plugin.NewDispatcher(plugins, plugin.NewExecutor(cfg.PluginTimeout), log))
	}

	if len(pubs) == 0 {
		return publish.Nop{}, nil
	}
	return pubs, nil
}

// faceMesh starts the MediaPipe helper. Tests replace it.
var faceMesh = func() (detector.Detector, error) {
	return detector.NewFaceMeshDetector(detector.DefaultConfig())
}

// newInput picks the camera and detector. The scripted face is only used
// in demo mode; a missing face-mesh helper is fatal otherwise.
func newInput(cfg config.Config, demo bool, log logrus.FieldLogger) (capture.Camera, detector.Detector, error) {
	if demo {
		log.Info("demo mode: scripted face, no camera")
		return capture.NewBlankCamera(640, 480), detector.NewScriptedDetector(detector.DemoScript(), nil), nil
	}

	det, err := faceMesh()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start face-mesh helper (use --demo to play without it): %w", err)
	}
	log.Info("using MediaPipe face mesh")
	return capture.NewCamera(capture.Options{DeviceID: cfg.CameraID, FPS: cfg.FPS, Mirror: cfg.Mirror}), det, nil
}

// runTray blocks on the tray menu until it quits or ctx ends.
func runTray(ctx context.Context, cancel context.CancelFunc, a *app.App, boardURL string, log logrus.FieldLogger) {
	t := tray.New()
	t.OnToggle(a.SetEnabled)
	t.OnCalibrate(a.RequestCalibrate)
	t.OnOpenBoard(func() {
		if err := openBrowser(boardURL); err != nil {
			log.WithError(err).Warn("failed to open browser")
		}
	})
	t.OnQuit(cancel)

	snaps, unsubscribe := a.Subscribe()
	defer unsubscribe()
	go t.Follow(snaps, ctx.Done())
	go func() {
		<-ctx.Done()
		t.Quit()
	}()
	t.Run()
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.abhinaya/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	for _, p := range []string{"web", "../web", "../../web"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	homeWebDir := filepath.Join(homeDir, ".abhinaya", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}
	return ""
}
