package plugin

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, root string, m Manifest) string {
	t.Helper()
	dir := filepath.Join(root, m.Name)
	require.NoError(t, os.MkdirAll(dir, 0755))
	data, err := json.Marshal(m)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plugin.json"), data, 0644))
	return dir
}

func TestManager_Discover(t *testing.T) {
	root := t.TempDir()
	dir := writeManifest(t, root, Manifest{
		Name:        "lights",
		Version:     "1.0.0",
		Description: "Flash the desk lamp on a win",
		Executable:  "lights.sh",
		Events:      []string{"round_end"},
	})

	m := NewManager(root)
	require.NoError(t, m.Discover())

	plugins := m.List()
	require.Len(t, plugins, 1)
	p := plugins[0]
	assert.Equal(t, "lights", p.Manifest.Name)
	assert.Equal(t, "1.0.0", p.Manifest.Version)
	assert.Equal(t, []string{"round_end"}, p.Manifest.Events)
	assert.Equal(t, dir, p.Path)
	assert.Equal(t, filepath.Join(dir, "lights.sh"), p.Executable)
}

func TestManager_ListIsSorted(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		writeManifest(t, root, Manifest{Name: name, Executable: name})
	}

	m := NewManager(root)
	require.NoError(t, m.Discover())

	var names []string
	for _, p := range m.List() {
		names = append(names, p.Manifest.Name)
	}
	assert.Equal(t, []string{"alpha", "mid", "zeta"}, names)
}

func TestManager_Discover_Skips(t *testing.T) {
	root := t.TempDir()

	bad := filepath.Join(root, "bad")
	require.NoError(t, os.MkdirAll(bad, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(bad, "plugin.json"), []byte("not valid json"), 0644))

	require.NoError(t, os.MkdirAll(filepath.Join(root, "no-manifest"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "stray.txt"), []byte("x"), 0644))
	writeManifest(t, root, Manifest{Name: "no-exec"})

	m := NewManager(root)
	require.NoError(t, m.Discover())
	assert.Empty(t, m.List())
}

func TestManager_Discover_MissingDir(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, m.Discover())
	assert.Empty(t, m.List())
}

func TestManager_Get(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, Manifest{Name: "logger", Version: "2.0.0", Executable: "run"})

	m := NewManager(root)
	require.NoError(t, m.Discover())

	p, err := m.Get("logger")
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", p.Manifest.Version)

	_, err = m.Get("missing")
	assert.ErrorIs(t, err, ErrPluginNotFound)
}

func TestManager_Subscribers(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, Manifest{Name: "all", Executable: "run"})
	writeManifest(t, root, Manifest{Name: "places", Executable: "run", Events: []string{"place"}})
	writeManifest(t, root, Manifest{Name: "ends", Executable: "run", Events: []string{"round_end", "reset"}})

	m := NewManager(root)
	require.NoError(t, m.Discover())

	names := func(ps []*Plugin) []string {
		var out []string
		for _, p := range ps {
			out = append(out, p.Manifest.Name)
		}
		return out
	}
	assert.Equal(t, []string{"all", "places"}, names(m.Subscribers("place")))
	assert.Equal(t, []string{"all", "ends"}, names(m.Subscribers("reset")))
	assert.Equal(t, []string{"all"}, names(m.Subscribers("calibrated")))
}

func TestManager_PluginDir(t *testing.T) {
	assert.Equal(t, "/path/to/plugins", NewManager("/path/to/plugins").PluginDir())
}
