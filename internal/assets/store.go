package assets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"homestream/internal/media"
)

// Store manages every derived asset: poster-frame thumbnails, audio cover
// art, single-file MP4 re-encodes and segmented adaptive renditions. The
// presence of an output path on disk is the cache entry; no index exists
// beside the filesystem. A changed source keeps its stale asset until the
// asset file is deleted by hand.
type Store struct {
	dir     string
	runner  Runner
	bg      Runner
	timeout time.Duration
	log     zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithRunners overrides the interactive and background command runners.
func WithRunners(interactive, background Runner) Option {
	return func(s *Store) {
		s.runner = interactive
		s.bg = background
	}
}

// WithTimeout bounds each external-tool invocation.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) { s.timeout = d }
}

// NewStore roots the asset directories under dataDir, creating them as
// needed.
func NewStore(dataDir, ffmpegPath string, log zerolog.Logger, opts ...Option) (*Store, error) {
	s := &Store{
		dir:     dataDir,
		runner:  FFmpeg{Path: ffmpegPath},
		bg:      FFmpeg{Path: ffmpegPath, Nice: true},
		timeout: 30 * time.Minute,
		log:     log,
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, sub := range []string{"thumbnails", "covers", "transcoded", "adaptive"} {
		if err := os.MkdirAll(filepath.Join(dataDir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create asset dir %s: %w", sub, err)
		}
	}
	return s, nil
}

func (s *Store) ThumbnailDir() string { return filepath.Join(s.dir, "thumbnails") }
func (s *Store) CoverDir() string     { return filepath.Join(s.dir, "covers") }
func (s *Store) TranscodeDir() string { return filepath.Join(s.dir, "transcoded") }
func (s *Store) AdaptiveDir() string  { return filepath.Join(s.dir, "adaptive") }

func baseName(name string) string {
	return strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
}

// exists reports whether path is present and non-empty. Zero-length files do
// not count as cache hits: producers write to a temp path and rename, so a
// complete asset is never empty.
func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}

// Thumbnail returns the filesystem path of the entry's thumbnail image.
// For video the poster frame is produced on first demand; for audio the cover
// is looked up by convention and never generated here. An empty path with a
// nil error means the entry has no thumbnail, which is common and expected.
func (s *Store) Thumbnail(ctx context.Context, entry media.Entry) (string, error) {
	switch entry.Kind {
	case media.KindVideo:
		return s.posterFrame(ctx, entry.Path)
	case media.KindAudio:
		cover := filepath.Join(s.CoverDir(), baseName(entry.Name)+".jpg")
		if exists(cover) {
			return cover, nil
		}
		return "", nil
	default:
		return "", nil
	}
}

// posterFrame extracts a single downscaled frame at a fixed offset past the
// opening titles. Concurrent callers for the same source may race and run
// ffmpeg twice; both target the same final path via rename, so the result is
// correct either way.
func (s *Store) posterFrame(ctx context.Context, srcPath string) (string, error) {
	out := filepath.Join(s.ThumbnailDir(), baseName(srcPath)+".jpg")
	if exists(out) {
		return out, nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	// Racing producers each write a private temp file; the rename decides
	// which complete output wins.
	tmpf, err := os.CreateTemp(s.ThumbnailDir(), baseName(srcPath)+".*.tmp")
	if err != nil {
		return "", &TranscodeError{Source: srcPath, Err: err}
	}
	tmp := tmpf.Name()
	tmpf.Close()
	err = s.runner.Run(ctx,
		"-ss", "00:00:59",
		"-i", srcPath,
		"-vframes", "1",
		"-vf", "scale=200:-1",
		"-q:v", "2",
		"-f", "image2",
		"-y", tmp,
	)
	if err != nil {
		_ = os.Remove(tmp)
		return "", &TranscodeError{Source: srcPath, Err: err}
	}
	if !exists(tmp) {
		_ = os.Remove(tmp)
		return "", &TranscodeError{Source: srcPath, Err: fmt.Errorf("output missing or empty")}
	}
	if err := os.Rename(tmp, out); err != nil {
		return "", &TranscodeError{Source: srcPath, Err: err}
	}
	return out, nil
}
