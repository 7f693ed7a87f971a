package filestore

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingInvalidator struct {
	calls atomic.Int64
}

func (c *countingInvalidator) Invalidate() { c.calls.Add(1) }

func TestWatcher_Relevant(t *testing.T) {
	dir := t.TempDir()
	other := t.TempDir()
	file := writeFile(t, other, "PRSA_Data_A_x.csv", "year,month,day,hour\n")

	w, err := NewWatcher([]string{dir, file}, &countingInvalidator{}, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	tests := []struct {
		name     string
		event    fsnotify.Event
		expected bool
	}{
		{"csv written in watched dir", fsnotify.Event{Name: filepath.Join(dir, "x.csv"), Op: fsnotify.Write}, true},
		{"csv removed in watched dir", fsnotify.Event{Name: filepath.Join(dir, "x.csv"), Op: fsnotify.Remove}, true},
		{"non-csv in watched dir", fsnotify.Event{Name: filepath.Join(dir, "x.txt"), Op: fsnotify.Write}, false},
		{"chmod only", fsnotify.Event{Name: filepath.Join(dir, "x.csv"), Op: fsnotify.Chmod}, false},
		{"explicit file renamed", fsnotify.Event{Name: file, Op: fsnotify.Rename}, true},
		{"sibling of explicit file", fsnotify.Event{Name: filepath.Join(other, "y.csv"), Op: fsnotify.Write}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, w.relevant(tt.event))
		})
	}
}

func TestWatcher_MissingPath(t *testing.T) {
	_, err := NewWatcher([]string{filepath.Join(t.TempDir(), "missing")}, &countingInvalidator{}, discardLogger())
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestWatcher_Run_InvalidatesOnWrite(t *testing.T) {
	dir := t.TempDir()
	target := &countingInvalidator{}

	w, err := NewWatcher([]string{dir}, target, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "PRSA_Data_A_x.csv"), []byte("year\n"), 0o644))

	assert.Eventually(t, func() bool { return target.calls.Load() > 0 }, 5*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
