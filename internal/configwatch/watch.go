// Package configwatch hot-reloads the kernel's non-structural config
// fields (ShowProgress, ProgressInterval) from disk while a run is in progress,
// using fsnotify the way the teacher's modular framework favors
// filesystem-driven reconfiguration over polling. Structural fields
// (Lookahead, Formalism, the quantum-manager endpoint) cannot safely
// change mid-run — a ParallelTimeline has already committed to a
// lookahead-based window schedule and a quantum-manager connection by
// the time it starts — so a reload that touches them is rejected rather
// than partially applied.
package configwatch

import (
	"context"
	"fmt"

	"github.com/fsnotify/fsnotify"

	"github.com/qsequence/pdeskernel/internal/kernelerr"
)

// Decoder parses a config file's bytes into a value of type T. Callers
// supply one of the kernel's YAML/TOML loaders bound to T.
type Decoder[T any] func(path string) (T, error)

// StructuralDiff reports whether two decoded configs differ in a field
// that cannot be changed after a Timeline has started. Returning true
// causes Watcher to reject the reload and keep running with the old
// config.
type StructuralDiff[T any] func(oldCfg, newCfg T) bool

// Watcher watches a config file for writes and decodes+validates each
// change, delivering accepted reloads on Changes and structural
// rejections on Rejected.
type Watcher[T any] struct {
	path       string
	decode     Decoder[T]
	structural StructuralDiff[T]
	current    T

	watcher  *fsnotify.Watcher
	Changes  chan T
	Rejected chan error
}

// New starts watching path, seeding Watcher.current with initial (the
// config already validated and in use by the running kernel).
func New[T any](path string, initial T, decode Decoder[T], structural StructuralDiff[T]) (*Watcher[T], error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("configwatch: %w", err)
	}
	if err := fw.Add(path); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("configwatch: watch %s: %w", path, err)
	}
	w := &Watcher[T]{
		path:       path,
		decode:     decode,
		structural: structural,
		current:    initial,
		watcher:    fw,
		Changes:    make(chan T, 1),
		Rejected:   make(chan error, 1),
	}
	return w, nil
}

// Run blocks processing filesystem events until ctx is cancelled or the
// underlying watcher errors unrecoverably. Run is meant to be launched
// in its own goroutine alongside the timeline it is configuring.
func (w *Watcher[T]) Run(ctx context.Context) error {
	defer w.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.handleChange()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			select {
			case w.Rejected <- fmt.Errorf("configwatch: %w", err):
			default:
			}
		}
	}
}

func (w *Watcher[T]) handleChange() {
	next, err := w.decode(w.path)
	if err != nil {
		select {
		case w.Rejected <- fmt.Errorf("configwatch: decode %s: %w", w.path, err):
		default:
		}
		return
	}
	if w.structural(w.current, next) {
		select {
		case w.Rejected <- kernelerr.ErrStructuralReload:
		default:
		}
		return
	}
	w.current = next
	select {
	case w.Changes <- next:
	default:
	}
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher[T]) Close() error {
	return w.watcher.Close()
}
