package server

import (
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"resumeforge/internal/errors"

	"github.com/fsnotify/fsnotify"
)

// CertWatcher calls onChange, debounced, whenever one of the watched PEM files is written,
// created or renamed into place.
type CertWatcher struct {
	mu sync.Mutex

	files    []string
	debounce time.Duration
	onChange func()
	logger   *errors.Logger

	fsWatcher *fsnotify.Watcher
	timer     *time.Timer
	stop      chan struct{}
	running   bool
}

// NewCertWatcher creates a watcher for the non-empty paths in files
func NewCertWatcher(files []string, debounce time.Duration, onChange func(), logger *errors.Logger) *CertWatcher {
	if debounce <= 0 {
		debounce = time.Second
	}
	var cleaned []string
	for _, f := range files {
		if f != "" {
			cleaned = append(cleaned, filepath.Clean(f))
		}
	}
	return &CertWatcher{
		files:    cleaned,
		debounce: debounce,
		onChange: onChange,
		logger:   logger,
	}
}

// Start begins watching. Directories are watched rather than files so that atomic
// replacement (write to temp, rename) is seen.
func (cw *CertWatcher) Start() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.running {
		return fmt.Errorf("certificate watcher is already running")
	}
	if len(cw.files) == 0 {
		return fmt.Errorf("no certificate files to watch")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	var dirs []string
	for _, f := range cw.files {
		if dir := filepath.Dir(f); !slices.Contains(dirs, dir) {
			dirs = append(dirs, dir)
		}
	}
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
	}

	cw.fsWatcher = watcher
	cw.stop = make(chan struct{})
	cw.running = true
	go cw.watchLoop(watcher, cw.stop)

	if cw.logger != nil {
		cw.logger.Info("Certificate file watcher started", "files", cw.files, "debounce_delay", cw.debounce)
	}
	return nil
}

// Stop ends watching; pending debounced reloads are cancelled
func (cw *CertWatcher) Stop() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if !cw.running {
		return nil
	}
	close(cw.stop)
	if cw.timer != nil {
		cw.timer.Stop()
	}
	cw.running = false

	if err := cw.fsWatcher.Close(); err != nil {
		return fmt.Errorf("failed to close file watcher: %w", err)
	}
	if cw.logger != nil {
		cw.logger.Info("Certificate file watcher stopped")
	}
	return nil
}

// IsRunning returns whether the watcher is currently running
func (cw *CertWatcher) IsRunning() bool {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	return cw.running
}

func (cw *CertWatcher) watchLoop(watcher *fsnotify.Watcher, stop <-chan struct{}) {
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if cw.relevant(event) {
				cw.schedule()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			if cw.logger != nil {
				cw.logger.LogError(err, "File watcher error")
			}
		case <-stop:
			return
		}
	}
}

func (cw *CertWatcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	return slices.Contains(cw.files, filepath.Clean(event.Name))
}

// schedule restarts the debounce timer so a burst of events causes one reload
func (cw *CertWatcher) schedule() {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if !cw.running {
		return
	}
	if cw.timer != nil {
		cw.timer.Stop()
	}
	stop := cw.stop
	cw.timer = time.AfterFunc(cw.debounce, func() {
		select {
		case <-stop:
		default:
			cw.onChange()
		}
	})
}
