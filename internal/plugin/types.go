// Package plugin runs user-installed executables when gameplay events
// happen. Each plugin lives in its own directory under the plugin root
// with a plugin.json manifest naming the executable and the event kinds
// it wants.
package plugin

import "encoding/json"

// Manifest describes a plugin's metadata and subscriptions.
type Manifest struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
	Executable  string `json:"executable"`
	// Events lists the event kinds delivered to the plugin. Empty means
	// every kind.
	Events []string        `json:"events"`
	Config json.RawMessage `json:"config,omitempty"`
}

// Request is written to the plugin's stdin as JSON.
type Request struct {
	Event  string          `json:"event"`
	At     string          `json:"at"`
	Data   json.RawMessage `json:"data,omitempty"`
	Config json.RawMessage `json:"config,omitempty"`
}

// Response is read from the plugin's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// Wants reports whether the plugin subscribes to kind.
func (p *Plugin) Wants(kind string) bool {
	if len(p.Manifest.Events) == 0 {
		return true
	}
	for _, k := range p.Manifest.Events {
		if k == kind {
			return true
		}
	}
	return false
}
