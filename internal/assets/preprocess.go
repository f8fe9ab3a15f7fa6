package assets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"homestream/internal/media"
)

// Container formats browsers already play progressively; no rendition work is
// scheduled for them.
var browserCompatible = map[string]bool{
	".mp4":  true,
	".webm": true,
}

// Preprocess opportunistically warms the derived-asset cache for the whole
// catalog: covers for audio, an MP4 re-encode plus an HLS rendition for every
// video in a non-compatible container. Work runs on a bounded pool at reduced
// OS priority; every job is idempotent by output existence, and failures are
// logged, not retried, and never block other entries. The cache is
// best-effort only — nothing guarantees an asset exists by the time a client
// asks for it.
func (s *Store) Preprocess(ctx context.Context, entries []media.Entry, workers int) {
	if workers < 1 {
		workers = 2
	}
	s.log.Info().Int("files", len(entries)).Int("workers", workers).Msg("starting background preprocessing")

	var g errgroup.Group
	g.SetLimit(workers)
	for _, entry := range entries {
		entry := entry
		switch entry.Kind {
		case media.KindAudio:
			g.Go(func() error {
				if err := s.ExtractCover(entry); err != nil {
					// Not all audio files have embedded artwork.
					s.log.Debug().Err(err).Str("file", entry.Name).Msg("cover extraction skipped")
				}
				return nil
			})
		case media.KindVideo:
			if browserCompatible[strings.ToLower(filepath.Ext(entry.Name))] {
				continue
			}
			g.Go(func() error {
				if err := s.TranscodeMP4(ctx, entry); err != nil {
					s.log.Error().Err(err).Str("file", entry.Name).Msg("transcode failed")
				}
				return nil
			})
			g.Go(func() error {
				if err := s.BuildHLS(ctx, entry); err != nil {
					s.log.Error().Err(err).Str("file", entry.Name).Msg("hls build failed")
				}
				return nil
			})
		}
	}
	_ = g.Wait()
	s.log.Info().Msg("background preprocessing finished")
}

// TranscodeMP4 produces the single-file browser-compatible rendition at
// transcoded/<base>.mp4. A present, non-empty output short-circuits without
// invoking the external tool.
func (s *Store) TranscodeMP4(ctx context.Context, entry media.Entry) error {
	out := filepath.Join(s.TranscodeDir(), baseName(entry.Name)+".mp4")
	if exists(out) {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	s.log.Info().Str("file", entry.Name).Msg("background transcoding")
	tmpf, err := os.CreateTemp(s.TranscodeDir(), baseName(entry.Name)+".*.tmp")
	if err != nil {
		return &TranscodeError{Source: entry.Path, Err: err}
	}
	tmp := tmpf.Name()
	tmpf.Close()
	err = s.bg.Run(ctx,
		"-i", entry.Path,
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "22",
		"-c:a", "aac",
		"-b:a", "128k",
		"-f", "mp4",
		"-y", tmp,
	)
	if err != nil {
		_ = os.Remove(tmp)
		return &TranscodeError{Source: entry.Path, Err: err}
	}
	if !exists(tmp) {
		_ = os.Remove(tmp)
		return &TranscodeError{Source: entry.Path, Err: fmt.Errorf("output missing or empty")}
	}
	return os.Rename(tmp, out)
}

// BuildHLS produces the segmented adaptive rendition under adaptive/<base>/:
// a playlist plus numbered transport-stream segments. A present, non-empty
// playlist short-circuits the build. ffmpeg rewrites the playlist as segments
// land, so a killed job can leave a partial rendition that short-circuits too;
// recovery is deleting the playlist, the same as any other stale asset.
func (s *Store) BuildHLS(ctx context.Context, entry media.Entry) error {
	dir := filepath.Join(s.AdaptiveDir(), baseName(entry.Name))
	playlist := filepath.Join(dir, "playlist.m3u8")
	if exists(playlist) {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create adaptive dir: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	s.log.Info().Str("file", entry.Name).Msg("building adaptive rendition")
	err := s.bg.Run(ctx,
		"-i", entry.Path,
		"-c:v", "libx264",
		"-crf", "22",
		"-c:a", "aac",
		"-b:a", "128k",
		"-f", "hls",
		"-hls_time", "10",
		"-hls_list_size", "0",
		"-hls_segment_filename", filepath.Join(dir, "segment%03d.ts"),
		playlist,
	)
	if err != nil {
		return &TranscodeError{Source: entry.Path, Err: err}
	}
	return nil
}
