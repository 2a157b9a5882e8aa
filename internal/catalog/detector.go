package catalog

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultPollInterval is used by PollWatch when given a non-positive interval.
const DefaultPollInterval = 2 * time.Second

// Signal identifies a version of the backing data without reading it.
type Signal struct {
	ModTime int64
	Size    int64
}

type Detector interface {
	CurrentSignal(ctx context.Context) (Signal, error)
}

type FileDetector struct {
	Path string
	Log  *zap.Logger
}

func NewFileDetector(path string, log *zap.Logger) *FileDetector {
	if log == nil {
		log = zap.NewNop()
	}
	return &FileDetector{Path: path, Log: log}
}

func (d *FileDetector) CurrentSignal(_ context.Context) (Signal, error) {
	fi, err := os.Stat(d.Path)
	if err != nil {
		return Signal{}, storageErr("stat", d.Path, err)
	}
	return Signal{ModTime: fi.ModTime().UnixNano(), Size: fi.Size()}, nil
}

// Watch calls onChange whenever the backing file is written, created or
// replaced, until ctx is done. The parent directory is watched because an
// atomic replace swaps the inode under a plain file watch.
func (d *FileDetector) Watch(ctx context.Context, onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	dir := filepath.Dir(d.Path)
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return err
	}

	go func() {
		defer w.Close()

		name := filepath.Clean(d.Path)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != name {
					continue
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) ||
					ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Remove) {
					onChange()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				d.Log.Warn("file watch error", zap.Error(err), zap.String("path", d.Path))
			}
		}
	}()

	return nil
}

// PollWatch compares signals every interval and calls onChange when they
// differ. It is the push fallback where inotify-style events are missing.
func PollWatch(ctx context.Context, d Detector, interval time.Duration, onChange func(), log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}

	if interval <= 0 {
		log.Warn("poll watch interval not positive, using default",
			zap.Duration("interval", interval), zap.Duration("default", DefaultPollInterval))
		interval = DefaultPollInterval
	}

	last, lastErr := d.CurrentSignal(ctx)

	t := time.NewTicker(interval)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}

			sig, err := d.CurrentSignal(ctx)
			if err != nil {
				if lastErr == nil {
					log.Warn("poll watch signal failed", zap.Error(err))
				}
				lastErr = err
				continue
			}
			if lastErr != nil || sig != last {
				onChange()
			}
			last, lastErr = sig, nil
		}
	}()
}
