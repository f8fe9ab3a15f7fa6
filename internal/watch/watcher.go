package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"homestream/internal/media"
)

// Watcher follows the media tree and invalidates the catalog snapshot when it
// changes, so clients never see a stale listing for longer than one event.
// Newly created media files are additionally handed to the onNewFile hook so
// their derived assets can be warmed without a full preprocessing pass.
type Watcher struct {
	root      string
	cache     *media.SnapshotCache
	onNewFile func(media.Entry)
	log       zerolog.Logger
	fw        *fsnotify.Watcher
}

func New(root string, cache *media.SnapshotCache, onNewFile func(media.Entry), log zerolog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	w := &Watcher{root: root, cache: cache, onNewFile: onNewFile, log: log, fw: fw}
	if err := w.addRecursive(root); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

// addRecursive registers the directory and every subdirectory; fsnotify
// watches are not recursive on their own.
func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			w.log.Warn().Err(err).Str("dir", path).Msg("watch skip")
			return nil
		}
		if d.IsDir() {
			if err := w.fw.Add(path); err != nil {
				w.log.Warn().Err(err).Str("dir", path).Msg("watch add failed")
			}
		}
		return nil
	})
}

// Run processes events until the context is canceled.
func (w *Watcher) Run(ctx context.Context) {
	defer w.fw.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("watcher error")
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	w.cache.Invalidate()

	if event.Op&fsnotify.Create == 0 {
		return
	}
	info, err := os.Stat(event.Name)
	if err != nil {
		return
	}
	if info.IsDir() {
		if err := w.addRecursive(event.Name); err != nil {
			w.log.Warn().Err(err).Str("dir", event.Name).Msg("watch new directory failed")
		}
		return
	}
	kind, ok := media.ClassifyPath(event.Name)
	if !ok || w.onNewFile == nil {
		return
	}
	w.log.Info().Str("file", event.Name).Str("kind", string(kind)).Msg("new media file")
	w.onNewFile(media.Entry{
		Name: filepath.Base(event.Name),
		Path: event.Name,
		Kind: kind,
		Size: info.Size(),
	})
}
