package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/anima-assets/engine/core"
)

type EventKind int

const (
	EventCreated EventKind = iota
	EventModified
	EventRemoved
	// EventRenamed carries the old path; the new path arrives as EventCreated.
	EventRenamed
)

func (k EventKind) String() string {
	switch k {
	case EventCreated:
		return "created"
	case EventModified:
		return "modified"
	case EventRemoved:
		return "removed"
	case EventRenamed:
		return "renamed"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// FileChangeListener receives slash-separated paths relative to the watched
// root. It is called on the notifier's goroutine.
type FileChangeListener func(path string, kind EventKind)

type FileChangeNotifier interface {
	RegisterListener(fn FileChangeListener)
	Start() error
	Close() error
}

// FSNotifier watches a directory tree with fsnotify. Directories created
// after Start are picked up as they appear.
type FSNotifier struct {
	root    string
	watcher *fsnotify.Watcher

	mu        sync.Mutex
	listeners []FileChangeListener
	started   bool
	closed    bool

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func NewFSNotifier(root string) (*FSNotifier, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &FSNotifier{
		root:    abs,
		watcher: w,
		done:    make(chan struct{}),
	}, nil
}

func (n *FSNotifier) RegisterListener(fn FileChangeListener) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.listeners = append(n.listeners, fn)
}

func (n *FSNotifier) Start() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return errors.New("file notifier already closed")
	}
	if n.started {
		n.mu.Unlock()
		return nil
	}
	n.started = true
	n.mu.Unlock()

	if err := n.watchRecursive(n.root, false); err != nil {
		return err
	}

	n.wg.Add(1)
	go n.loop()
	core.LogInfo("watching %s for asset changes", n.root)
	return nil
}

func (n *FSNotifier) Close() error {
	var err error
	n.closeOnce.Do(func() {
		n.mu.Lock()
		n.closed = true
		n.mu.Unlock()

		close(n.done)
		n.wg.Wait()
		err = n.watcher.Close()
	})
	return err
}

func (n *FSNotifier) loop() {
	defer n.wg.Done()
	for {
		select {
		case e, ok := <-n.watcher.Events:
			if !ok {
				return
			}
			n.handle(e)

		case err, ok := <-n.watcher.Errors:
			if !ok {
				return
			}
			core.LogError("file watcher: %s", err)

		case <-n.done:
			return
		}
	}
}

func (n *FSNotifier) handle(e fsnotify.Event) {
	if e.Has(fsnotify.Create) {
		if s, err := os.Stat(e.Name); err == nil && s.IsDir() {
			// files may land in the new directory before the watch is added
			if err := n.watchRecursive(e.Name, true); err != nil {
				core.LogWarn("failed to watch new directory %s: %s", e.Name, err)
			}
			return
		}
		n.dispatch(e.Name, EventCreated)
	}
	if e.Has(fsnotify.Write) {
		n.dispatch(e.Name, EventModified)
	}
	// Can't stat a deleted path, so always try to drop it from the watch list.
	if e.Has(fsnotify.Remove) {
		_ = n.watcher.Remove(e.Name)
		n.dispatch(e.Name, EventRemoved)
	}
	if e.Has(fsnotify.Rename) {
		_ = n.watcher.Remove(e.Name)
		n.dispatch(e.Name, EventRenamed)
	}
}

// watchRecursive adds dir and all of its sub-directories to the watch list.
// With announce set, files already inside are reported as created.
func (n *FSNotifier) watchRecursive(dir string, announce bool) error {
	return filepath.WalkDir(dir, func(walkPath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return n.watcher.Add(walkPath)
		}
		if announce {
			n.dispatch(walkPath, EventCreated)
		}
		return nil
	})
}

func (n *FSNotifier) dispatch(osPath string, kind EventKind) {
	rel, err := filepath.Rel(n.root, osPath)
	if err != nil {
		core.LogWarn("file watcher: %s is outside %s", osPath, n.root)
		return
	}
	rel = filepath.ToSlash(rel)

	n.mu.Lock()
	listeners := make([]FileChangeListener, len(n.listeners))
	copy(listeners, n.listeners)
	n.mu.Unlock()

	for _, fn := range listeners {
		fn(rel, kind)
	}
}
