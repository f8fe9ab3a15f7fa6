package stream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"homestream/internal/media"
)

// Engine streams resolved files to HTTP clients, honoring byte-range requests
// and remuxing containers browsers cannot play progressively.
type Engine struct {
	remuxer Remuxer
	log     zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithRemuxer overrides the subprocess-backed remuxer.
func WithRemuxer(rm Remuxer) Option {
	return func(e *Engine) { e.remuxer = rm }
}

func NewEngine(ffmpegPath string, log zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{remuxer: ffmpegRemuxer{path: ffmpegPath}, log: log}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Remuxer starts the repackaging process for one source file and exposes its
// output stream plus a wait function reporting the process result. The seam
// keeps the remux branch testable without ffmpeg installed.
type Remuxer interface {
	Start(ctx context.Context, path string) (io.ReadCloser, func() error, error)
}

// ffmpegRemuxer copies the video stream, transcodes audio to AAC and emits a
// fragmented MP4 on stdout. The context bounds the subprocess lifetime.
type ffmpegRemuxer struct {
	path string
}

func (f ffmpegRemuxer) Start(ctx context.Context, path string) (io.ReadCloser, func() error, error) {
	bin := f.path
	if bin == "" {
		bin = "ffmpeg"
	}
	cmd := exec.CommandContext(ctx, bin,
		"-i", path,
		"-movflags", "frag_keyframe+empty_moov",
		"-c:v", "copy",
		"-c:a", "aac",
		"-f", "mp4",
		"pipe:1",
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, err
	}
	return stdout, cmd.Wait, nil
}

// Containers that need an on-the-fly remux instead of byte serving.
var remuxFormats = map[string]bool{
	".mkv": true,
}

// ServeFile is the per-request state machine: remux for incompatible
// containers, 206 for a satisfiable Range header, 200 full-body otherwise.
func (e *Engine) ServeFile(w http.ResponseWriter, r *http.Request, path string) {
	ext := strings.ToLower(filepath.Ext(path))
	if remuxFormats[ext] {
		e.remux(w, r, path)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		http.Error(w, "file not found", http.StatusNotFound)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	size := info.Size()
	contentType := media.ContentType(path)

	rangeHeader := r.Header.Get("Range")
	if rangeHeader == "" {
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
		_, _ = io.Copy(w, f)
		return
	}

	start, end, ok := parseRange(rangeHeader, size)
	if !ok {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		http.Error(w, "range not satisfiable", http.StatusRequestedRangeNotSatisfiable)
		return
	}
	if _, err := f.Seek(start, io.SeekStart); err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, size))
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Length", strconv.FormatInt(end-start+1, 10))
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusPartialContent)
	_, _ = io.CopyN(w, f, end-start+1)
}

// parseRange handles the single-span form "bytes=start-end" with an optional
// end defaulting to the last byte.
func parseRange(header string, size int64) (start, end int64, ok bool) {
	spec, found := strings.CutPrefix(header, "bytes=")
	if !found {
		return 0, 0, false
	}
	first, last, found := strings.Cut(spec, "-")
	if !found {
		return 0, 0, false
	}
	start, err := strconv.ParseInt(strings.TrimSpace(first), 10, 64)
	if err != nil || start < 0 {
		return 0, 0, false
	}
	end = size - 1
	if trimmed := strings.TrimSpace(last); trimmed != "" {
		end, err = strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			return 0, 0, false
		}
	}
	if start > end || start >= size {
		return 0, 0, false
	}
	if end >= size {
		end = size - 1
	}
	return start, end, true
}

// remux repackages the container during the response, streamed chunked as the
// remuxer produces it. Range semantics are bypassed entirely on this path,
// trading seek support for playability. The remuxer inherits the request
// context, so a client abort kills the subprocess instead of letting it run
// to completion unconsumed.
func (e *Engine) remux(w http.ResponseWriter, r *http.Request, path string) {
	stdout, wait, err := e.remuxer.Start(r.Context(), path)
	if err != nil {
		e.log.Error().Err(err).Str("file", path).Msg("remux start failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	defer stdout.Close()

	w.Header().Set("Content-Type", "video/mp4")
	w.WriteHeader(http.StatusOK)
	_, copyErr := io.Copy(flushWriter{w}, stdout)
	waitErr := wait()
	if copyErr != nil || waitErr != nil {
		// Mid-stream failure: the response is simply terminated and the
		// client sees a truncated download.
		e.log.Warn().AnErr("copy", copyErr).AnErr("wait", waitErr).
			Str("file", path).Msg("remux stream aborted")
	}
}

type flushWriter struct {
	w http.ResponseWriter
}

func (fw flushWriter) Write(p []byte) (int, error) {
	n, err := fw.w.Write(p)
	if f, ok := fw.w.(http.Flusher); ok {
		f.Flush()
	}
	return n, err
}
