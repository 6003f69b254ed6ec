package config

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"deskstream/internal/constants"
)

// Watch reloads the configuration whenever the .env file changes and hands
// the result to onChange. Bursts of writes are collapsed into one reload.
// It blocks until ctx is done.
func (l *Loader) Watch(ctx context.Context, onChange func(*Config, error)) error {
	if l.path == "" {
		<-ctx.Done()
		return nil
	}

	target, err := filepath.Abs(l.path)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		_ = w.Close()
	}()

	// Watch the directory: editors often replace the file instead of
	// writing it in place.
	if err := w.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(target), err)
	}

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(constants.ConfigReloadDebounce)
			} else {
				timer.Reset(constants.ConfigReloadDebounce)
			}
			timerCh = timer.C
		case <-timerCh:
			timerCh = nil
			cfg, err := l.Load()
			onChange(cfg, err)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Printf("⚠️  Config watcher: %v", err)
		}
	}
}
