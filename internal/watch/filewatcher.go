// Package watch follows a rig's export directory and analyzes session records
// as they appear.
package watch

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/harrison/dynrouting/internal/session"
)

// FileOp is the kind of change that made a session file ready.
type FileOp int

const (
	// FileCreated indicates a new session file
	FileCreated FileOp = iota
	// FileWritten indicates an existing session file was rewritten
	FileWritten
)

// String returns a human-readable representation of the file operation
func (op FileOp) String() string {
	switch op {
	case FileCreated:
		return "created"
	case FileWritten:
		return "written"
	default:
		return "unknown"
	}
}

// FileEvent reports a session file that has settled after its last write.
type FileEvent struct {
	Path      string
	Op        FileOp
	Timestamp time.Time
}

// DefaultDebounceDelay is how long a file must stay quiet before it is reported.
// Rigs write session files in several chunks.
const DefaultDebounceDelay = 500 * time.Millisecond

// FileWatcher watches a directory tree for session record files.
type FileWatcher struct {
	watcher *fsnotify.Watcher
	events  chan FileEvent
	errors  chan error
	done    chan struct{}
	rootDir string
	pattern string // glob on the base name, e.g. "DynamicRouting1_*"

	mu            sync.Mutex
	debounceDelay time.Duration
	pending       map[string]*pendingEvent
	closed        bool
}

type pendingEvent struct {
	timer *time.Timer
	op    FileOp
}

// NewFileWatcher watches rootDir and its subdirectories. An empty pattern
// accepts every file with a session record extension.
func NewFileWatcher(rootDir, pattern string, debounce time.Duration) (*FileWatcher, error) {
	if strings.HasPrefix(rootDir, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		rootDir = filepath.Join(home, rootDir[1:])
	}
	rootDir = filepath.Clean(rootDir)

	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounceDelay
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	fw := &FileWatcher{
		watcher:       watcher,
		events:        make(chan FileEvent, 100),
		errors:        make(chan error, 10),
		done:          make(chan struct{}),
		rootDir:       rootDir,
		pattern:       pattern,
		debounceDelay: debounce,
		pending:       make(map[string]*pendingEvent),
	}

	if err := fw.addRecursive(rootDir); err != nil {
		watcher.Close()
		return nil, err
	}

	go fw.processEvents()

	return fw, nil
}

// addRecursive watches dir and every directory below it. Directories that
// vanish or cannot be read during the walk are skipped.
func (fw *FileWatcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return nil
		case errors.Is(err, fs.ErrPermission):
			return filepath.SkipDir
		case err != nil:
			return err
		case !d.IsDir():
			return nil
		}
		if err := fw.watcher.Add(path); err != nil && !errors.Is(err, fs.ErrPermission) {
			return err
		}
		return nil
	})
}

func (fw *FileWatcher) processEvents() {
	for {
		select {
		case <-fw.done:
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleEvent(event)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.sendError(err)
		}
	}
}

func (fw *FileWatcher) handleEvent(event fsnotify.Event) {
	path := event.Name

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := fw.addRecursive(path); err != nil {
				fw.sendError(err)
			}
			return
		}
	}

	if !fw.Matches(path) {
		return
	}

	switch {
	case event.Has(fsnotify.Create):
		fw.debounce(path, FileCreated)
	case event.Has(fsnotify.Write):
		fw.debounce(path, FileWritten)
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		fw.cancel(path)
	}
}

// Matches reports whether path is a session record accepted by the pattern.
func (fw *FileWatcher) Matches(path string) bool {
	if !session.IsSessionFile(path) {
		return false
	}
	if fw.pattern == "" {
		return true
	}
	matched, err := filepath.Match(fw.pattern, filepath.Base(path))
	return err == nil && matched
}

// debounce restarts the quiet period for path. A create followed by writes
// is still reported as a create.
func (fw *FileWatcher) debounce(path string, op FileOp) {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.closed {
		return
	}

	if p, exists := fw.pending[path]; exists {
		p.timer.Stop()
		if p.op == FileCreated {
			op = FileCreated
		}
	}

	fw.pending[path] = &pendingEvent{
		op: op,
		timer: time.AfterFunc(fw.debounceDelay, func() {
			fw.mu.Lock()
			p, ok := fw.pending[path]
			if ok {
				delete(fw.pending, path)
			}
			fw.mu.Unlock()

			if ok {
				fw.sendEvent(path, p.op)
			}
		}),
	}
}

func (fw *FileWatcher) cancel(path string) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if p, exists := fw.pending[path]; exists {
		p.timer.Stop()
		delete(fw.pending, path)
	}
}

func (fw *FileWatcher) sendEvent(path string, op FileOp) {
	event := FileEvent{
		Path:      path,
		Op:        op,
		Timestamp: time.Now(),
	}

	// Runs on the debounce timer's goroutine: wait for the consumer rather
	// than lose a settled session.
	select {
	case fw.events <- event:
	case <-fw.done:
	}
}

func (fw *FileWatcher) sendError(err error) {
	select {
	case fw.errors <- err:
	default:
	}
}

// Events returns the channel of settled session files.
func (fw *FileWatcher) Events() <-chan FileEvent {
	return fw.events
}

// Errors returns the channel of watcher errors.
func (fw *FileWatcher) Errors() <-chan error {
	return fw.errors
}

// Done is closed when the watcher is closed.
func (fw *FileWatcher) Done() <-chan struct{} {
	return fw.done
}

// Close stops the watcher and drops pending events.
func (fw *FileWatcher) Close() error {
	fw.mu.Lock()
	if fw.closed {
		fw.mu.Unlock()
		return nil
	}
	fw.closed = true
	for _, p := range fw.pending {
		p.timer.Stop()
	}
	fw.pending = nil
	fw.mu.Unlock()

	close(fw.done)
	return fw.watcher.Close()
}

// RootDir returns the watched directory.
func (fw *FileWatcher) RootDir() string {
	return fw.rootDir
}

// Pattern returns the file name pattern.
func (fw *FileWatcher) Pattern() string {
	return fw.pattern
}
