package stream

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFile(t *testing.T, name string, size int) string {
	t.Helper()
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func serve(t *testing.T, path, rangeHeader string) *httptest.ResponseRecorder {
	t.Helper()
	engine := NewEngine("ffmpeg", zerolog.Nop())
	req := httptest.NewRequest(http.MethodGet, "/stream/x", nil)
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}
	rec := httptest.NewRecorder()
	engine.ServeFile(rec, req, path)
	return rec
}

func TestServeFileFullBody(t *testing.T) {
	path := testFile(t, "movie.mp4", 1000)
	rec := serve(t, path, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "video/mp4", rec.Header().Get("Content-Type"))
	assert.Equal(t, "1000", rec.Header().Get("Content-Length"))
	assert.Equal(t, 1000, rec.Body.Len())
}

func TestServeFilePartialContent(t *testing.T) {
	path := testFile(t, "movie.mp4", 1000)
	rec := serve(t, path, "bytes=0-99")

	assert.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, "bytes 0-99/1000", rec.Header().Get("Content-Range"))
	assert.Equal(t, "bytes", rec.Header().Get("Accept-Ranges"))
	assert.Equal(t, "100", rec.Header().Get("Content-Length"))
	assert.Equal(t, 100, rec.Body.Len())

	full, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(full[:100], rec.Body.Bytes()))
}

func TestServeFileOpenEndedRange(t *testing.T) {
	path := testFile(t, "movie.mp4", 1000)
	rec := serve(t, path, "bytes=900-")

	assert.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, "bytes 900-999/1000", rec.Header().Get("Content-Range"))
	assert.Equal(t, "100", rec.Header().Get("Content-Length"))
}

func TestServeFileClampsOverlongRange(t *testing.T) {
	path := testFile(t, "movie.mp4", 1000)
	rec := serve(t, path, "bytes=500-5000")

	assert.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, "bytes 500-999/1000", rec.Header().Get("Content-Range"))
}

func TestServeFileUnsatisfiableRange(t *testing.T) {
	path := testFile(t, "movie.mp4", 1000)
	rec := serve(t, path, "bytes=1000-")

	assert.Equal(t, http.StatusRequestedRangeNotSatisfiable, rec.Code)
	assert.Equal(t, "bytes */1000", rec.Header().Get("Content-Range"))
}

type fakeRemuxer struct {
	output   string
	startErr error
	waitErr  error
	lastPath string
}

func (f *fakeRemuxer) Start(ctx context.Context, path string) (io.ReadCloser, func() error, error) {
	f.lastPath = path
	if f.startErr != nil {
		return nil, nil, f.startErr
	}
	return io.NopCloser(strings.NewReader(f.output)), func() error { return f.waitErr }, nil
}

func TestServeFileRemuxesMKV(t *testing.T) {
	path := testFile(t, "movie.mkv", 1000)
	rm := &fakeRemuxer{output: "remuxed-bytes"}
	engine := NewEngine("ffmpeg", zerolog.Nop(), WithRemuxer(rm))

	// The Range header is ignored on this path.
	req := httptest.NewRequest(http.MethodGet, "/stream/movie.mkv", nil)
	req.Header.Set("Range", "bytes=0-99")
	rec := httptest.NewRecorder()
	engine.ServeFile(rec, req, path)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "video/mp4", rec.Header().Get("Content-Type"))
	assert.Empty(t, rec.Header().Get("Content-Range"))
	assert.Equal(t, "remuxed-bytes", rec.Body.String())
	assert.Equal(t, path, rm.lastPath)
}

func TestServeFileRemuxStartFailure(t *testing.T) {
	path := testFile(t, "movie.mkv", 1000)
	engine := NewEngine("ffmpeg", zerolog.Nop(),
		WithRemuxer(&fakeRemuxer{startErr: errors.New("exec failed")}))

	rec := httptest.NewRecorder()
	engine.ServeFile(rec, httptest.NewRequest(http.MethodGet, "/stream/movie.mkv", nil), path)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestServeFileRemuxMidStreamFailure(t *testing.T) {
	path := testFile(t, "movie.mkv", 1000)
	rm := &fakeRemuxer{output: "partial", waitErr: errors.New("killed")}
	engine := NewEngine("ffmpeg", zerolog.Nop(), WithRemuxer(rm))

	rec := httptest.NewRecorder()
	engine.ServeFile(rec, httptest.NewRequest(http.MethodGet, "/stream/movie.mkv", nil), path)

	// Headers were already sent; the client just sees a truncated body.
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "partial", rec.Body.String())
}

func TestServeFileMissing(t *testing.T) {
	rec := serve(t, filepath.Join(t.TempDir(), "gone.mp4"), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		header     string
		size       int64
		start, end int64
		ok         bool
	}{
		{"bytes=0-99", 1000, 0, 99, true},
		{"bytes=500-", 1000, 500, 999, true},
		{"bytes=999-999", 1000, 999, 999, true},
		{"bytes=0-5000", 1000, 0, 999, true},
		{"bytes=1000-", 1000, 0, 0, false},
		{"bytes=200-100", 1000, 0, 0, false},
		{"bytes=-100", 1000, 0, 0, false},
		{"bytes=abc-", 1000, 0, 0, false},
		{"chunks=0-99", 1000, 0, 0, false},
		{"bytes=0", 1000, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.header+"/"+strconv.FormatInt(tt.size, 10), func(t *testing.T) {
			start, end, ok := parseRange(tt.header, tt.size)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.start, start)
				assert.Equal(t, tt.end, end)
			}
		})
	}
}
