package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/ayusman/abhinaya/internal/session"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

const writeWait = 2 * time.Second

// snapshotSource supplies session snapshots.
type snapshotSource interface {
	Snapshot() session.Snapshot
	Subscribe() (<-chan session.Snapshot, func())
}

// SnapshotHandler streams session snapshots over WebSocket, one JSON
// message per frame. Clients that fall behind only see the latest.
type SnapshotHandler struct {
	source snapshotSource
	log    logrus.FieldLogger
}

// NewSnapshotHandler creates a SnapshotHandler over source.
func NewSnapshotHandler(source snapshotSource, log logrus.FieldLogger) *SnapshotHandler {
	return &SnapshotHandler{source: source, log: log}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *SnapshotHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Debug("websocket upgrade failed")
		return
	}
	defer conn.Close()

	snaps, cancel := h.source.Subscribe()
	defer cancel()

	// Reads only detect the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := h.write(conn, h.source.Snapshot()); err != nil {
		return
	}
	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case snap := <-snaps:
			if err := h.write(conn, snap); err != nil {
				h.log.WithError(err).Debug("websocket write failed")
				return
			}
		}
	}
}

func (h *SnapshotHandler) write(conn *websocket.Conn, snap session.Snapshot) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(snap)
}
