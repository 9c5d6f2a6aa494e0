// Package devicewatcher detects the arrival and removal of the
// removable backup disk by watching /dev (or a configurable directory)
// with fsnotify. It replaces the original daemon's devices.cpp/udev
// integration and the raw I/O-port polling style seen in other example
// monitors with the idiomatic Go equivalent: a filesystem watch plus a
// channel of booleans, rather than a polling ticker.
//
// It answers exactly the question the Main Supervisor needs answered --
// "is the backup disk present, and is the copy destination available" --
// and deliberately does not attempt mount-point discovery or mount
// policy, which remain out of scope per the original spec.
package devicewatcher

import (
	"log"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// State is a snapshot of what the watcher currently believes.
type State struct {
	DiskPresent   bool
	CopyAvailable bool
}

// Watcher watches devDir for device nodes matching diskName and posts a
// State on every change.
type Watcher struct {
	fsw      *fsnotify.Watcher
	devDir   string
	diskName string
	events   chan State
	state    State
}

// New starts watching devDir (typically "/dev") for nodes whose name
// contains diskName (e.g. "sda1"). CopyAvailable mirrors DiskPresent
// today; it is a separate field because a future destination-path check
// (e.g. a marker file on the disk) can be added without changing the
// Supervisor's wiring.
func New(devDir, diskName string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(devDir); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		fsw:      fsw,
		devDir:   devDir,
		diskName: diskName,
		events:   make(chan State, 1),
	}
	go w.run()
	return w, nil
}

// Events delivers a State after every filesystem event on a matching
// node. Unlike the Notifier, which keeps the pending value and drops the
// new one, only the latest state is kept if the consumer falls behind.
func (w *Watcher) Events() <-chan State {
	return w.events
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) run() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.matches(ev.Name) {
				continue
			}
			present := ev.Op&(fsnotify.Create|fsnotify.Write) != 0 && ev.Op&fsnotify.Remove == 0
			if ev.Op&fsnotify.Remove != 0 || ev.Op&fsnotify.Rename != 0 {
				present = false
			}
			w.publish(State{DiskPresent: present, CopyAvailable: present})
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("devicewatcher: %v", err)
		}
	}
}

func (w *Watcher) matches(name string) bool {
	return strings.Contains(filepath.Base(name), w.diskName)
}

func (w *Watcher) publish(s State) {
	w.state = s
	select {
	case w.events <- s:
	default:
		select {
		case <-w.events:
		default:
		}
		w.events <- s
	}
}
