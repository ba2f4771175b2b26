package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/abhinaya/internal/logging"
	"github.com/ayusman/abhinaya/internal/publish"
)

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("plugin dispatcher closed")

// Dispatcher delivers events to subscribed plugins on a background worker.
// It implements publish.Publisher; when the queue is full new events are
// dropped rather than stalling the frame loop.
type Dispatcher struct {
	manager  *Manager
	executor *Executor
	log      logrus.FieldLogger

	queue  chan publish.Event
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewDispatcher starts a dispatcher over the plugins known to m.
func NewDispatcher(m *Manager, e *Executor, log logrus.FieldLogger) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		manager:  m,
		executor: e,
		log:      logging.Component(log, "plugin"),
		queue:    make(chan publish.Event, 32),
		ctx:      ctx,
		cancel:   cancel,
	}
	d.wg.Add(1)
	go d.run()
	return d
}

// Publish queues e for delivery.
func (d *Dispatcher) Publish(e publish.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	select {
	case d.queue <- e:
	default:
		d.log.WithField("kind", e.Kind).Warn("plugin queue full, dropping event")
	}
	return nil
}

// Status is not forwarded to plugins.
func (d *Dispatcher) Status(any) error { return nil }

// Close delivers queued events and stops the worker. Running plugins are
// cancelled if they outlive the executor timeout.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
	d.cancel()
	return nil
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for e := range d.queue {
		d.deliver(e)
	}
}

func (d *Dispatcher) deliver(e publish.Event) {
	subs := d.manager.Subscribers(e.Kind)
	if len(subs) == 0 {
		return
	}

	data, err := json.Marshal(e.Data)
	if err != nil {
		d.log.WithError(err).WithField("kind", e.Kind).Warn("failed to encode event")
		return
	}

	for _, p := range subs {
		req := &Request{
			Event:  e.Kind,
			At:     e.At.UTC().Format(time.RFC3339Nano),
			Data:   data,
			Config: p.Manifest.Config,
		}
		log := d.log.WithFields(logrus.Fields{"plugin": p.Manifest.Name, "kind": e.Kind})

		resp, err := d.executor.Execute(d.ctx, p, req)
		switch {
		case err != nil:
			log.WithError(err).Warn("plugin failed")
		case !resp.Success:
			log.WithField("error", resp.Error).Warn("plugin reported failure")
		default:
			log.Debug("plugin ran")
		}
	}
}
