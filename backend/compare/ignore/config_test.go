package ignore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseYAMLAndJSON(t *testing.T) {
	yamlCfg, err := Parse([]byte("ignoreFields:\n  - metadata.labels\n  - \"*.uid\"\n"))
	require.NoError(t, err)
	require.Equal(t, []string{"metadata.labels", "*.uid"}, yamlCfg.IgnoreFields)

	jsonCfg, err := Parse([]byte(`{"ignoreFields":["status"],"includeDefaults":true}`))
	require.NoError(t, err)
	require.True(t, jsonCfg.IncludeDefaults)

	m := jsonCfg.Matcher()
	require.True(t, m.ShouldIgnore("status.phase"))
	require.True(t, m.ShouldIgnore("metadata.managedFields[0].manager"))
	require.Equal(t, len(DefaultPatterns)+1, m.Len())
}

func TestParseRejectsMalformedDocument(t *testing.T) {
	_, err := Parse([]byte("ignoreFields: [unterminated"))
	require.Error(t, err)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestMarshalRoundTripsOrder(t *testing.T) {
	cfg := &FileConfig{IgnoreFields: []string{"b", "a", "c"}}
	data, err := cfg.Marshal()
	require.NoError(t, err)

	parsed, err := Parse(data)
	require.NoError(t, err)
	require.Equal(t, cfg.IgnoreFields, parsed.IgnoreFields)
}

func TestNilConfigMatcherIgnoresNothing(t *testing.T) {
	var cfg *FileConfig
	require.False(t, cfg.Matcher().ShouldIgnore("spec"))
}

func TestStoreReplaceKeepsSnapshots(t *testing.T) {
	store := NewStore(nil)
	before := store.Load()
	require.NotNil(t, before)

	prev := store.Replace(New([]string{"spec"}))
	require.Same(t, before, prev)
	require.False(t, before.ShouldIgnore("spec.replicas"))
	require.True(t, store.Load().ShouldIgnore("spec.replicas"))

	store.Replace(nil)
	require.Equal(t, 0, store.Load().Len())
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ignore.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ignoreFields: [spec.replicas]\n"), 0o600))

	store := NewStore(nil)
	reloaded := make(chan *Matcher, 4)
	w, err := newWatcher(path, store, nil, 20*time.Millisecond, func(m *Matcher) { reloaded <- m })
	require.NoError(t, err)
	defer w.Close()

	require.True(t, store.Load().ShouldIgnore("spec.replicas"))

	require.NoError(t, os.WriteFile(path, []byte("ignoreFields: [metadata.labels]\n"), 0o600))

	select {
	case m := <-reloaded:
		require.True(t, m.ShouldIgnore("metadata.labels.app"))
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not reload")
	}
	require.False(t, store.Load().ShouldIgnore("spec.replicas"))
}

func TestWatcherKeepsPreviousOnParseError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ignore.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ignoreFields: [status]\n"), 0o600))

	store := NewStore(nil)
	w, err := newWatcher(path, store, nil, time.Millisecond, nil)
	require.NoError(t, err)
	defer w.Close()

	w.reload()
	require.NoError(t, os.WriteFile(path, []byte("ignoreFields: [broken"), 0o600))
	w.reload()
	require.True(t, store.Load().ShouldIgnore("status"))
}

func TestWatchFileRequiresStore(t *testing.T) {
	_, err := WatchFile("ignore.yaml", nil, nil)
	require.Error(t, err)
}
