package kernel

import (
	"context"

	"github.com/qsequence/pdeskernel/internal/configwatch"
)

// configWatcherAdapter binds the generic internal/configwatch.Watcher to
// Config and manages the background goroutine's lifetime, so
// WatchConfig in config_provider.go can expose plain channels without
// its callers needing to import internal/configwatch themselves.
type configWatcherAdapter struct {
	w      *configwatch.Watcher[Config]
	ctx    context.Context
	cancel context.CancelFunc
}

func newConfigWatcher(
	path string,
	current Config,
	decode configwatch.Decoder[Config],
	structural configwatch.StructuralDiff[Config],
) (*configWatcherAdapter, error) {
	w, err := configwatch.New(path, current, decode, structural)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &configWatcherAdapter{w: w, ctx: ctx, cancel: cancel}, nil
}

func (a *configWatcherAdapter) run() error {
	return a.w.Run(a.ctx)
}

func (a *configWatcherAdapter) changesCh() <-chan Config { return a.w.Changes }
func (a *configWatcherAdapter) rejectedCh() <-chan error { return a.w.Rejected }

func (a *configWatcherAdapter) stop() error {
	a.cancel()
	return a.w.Close()
}
