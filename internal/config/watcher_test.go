package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// writeSettings writes a settings file and returns its path.
func writeSettings(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "settings.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write settings: %v", err)
	}
	return path
}

func TestWatcherInitialLoad(t *testing.T) {
	path := writeSettings(t, t.TempDir(), "log_level: warn\n")

	w, err := NewWatcher(path, nil, WithInterval(time.Hour))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	if got := w.Current().LogLevel; got != LogWarn {
		t.Errorf("initial log_level = %q, want warn", got)
	}
}

func TestWatcherInitialLoadFailsOnInvalidSettings(t *testing.T) {
	path := writeSettings(t, t.TempDir(), "log_level: loud\n")

	if _, err := NewWatcher(path, nil, WithInterval(time.Hour)); err == nil {
		t.Error("NewWatcher should fail on invalid settings")
	}
}

func TestWatcherDetectsChange(t *testing.T) {
	dir := t.TempDir()
	path := writeSettings(t, dir, "log_level: info\n")

	var mu sync.Mutex
	var gotNew *Config
	onChange := func(old, new *Config) {
		mu.Lock()
		gotNew = new
		mu.Unlock()
	}

	w, err := NewWatcher(path, onChange, WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	// Rewrite with a different mtime and content.
	time.Sleep(20 * time.Millisecond)
	writeSettings(t, dir, "log_level: debug\n")
	// Force a distinct mtime on filesystems with coarse timestamps.
	future := time.Now().Add(time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		done := gotNew != nil
		mu.Unlock()
		if done {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if gotNew == nil {
		t.Fatal("onChange was not called")
	}
	if gotNew.LogLevel != LogDebug {
		t.Errorf("new log_level = %q, want debug", gotNew.LogLevel)
	}
	if w.Current().LogLevel != LogDebug {
		t.Errorf("Current() log_level = %q, want debug", w.Current().LogLevel)
	}
}

func TestWatcherKeepsOldSettingsOnInvalidRewrite(t *testing.T) {
	dir := t.TempDir()
	path := writeSettings(t, dir, "log_level: info\n")

	w, err := NewWatcher(path, nil, WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Stop()

	writeSettings(t, dir, "log_level: loud\n")
	future := time.Now().Add(time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	if got := w.Current().LogLevel; got != LogInfo {
		t.Errorf("Current() log_level = %q, want the previous valid value info", got)
	}
}

func TestWatcherStopIsIdempotent(t *testing.T) {
	path := writeSettings(t, t.TempDir(), "")

	w, err := NewWatcher(path, nil, WithInterval(time.Hour))
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	w.Stop()
	w.Stop()
}
