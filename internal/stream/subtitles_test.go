package stream

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSRT = "1\r\n00:00:01,000 --> 00:00:02,500\r\nHello there\r\n\r\n2\r\n00:01:10,250 --> 00:01:12,000\r\nGeneral greeting\r\n"

func TestConvertSRT(t *testing.T) {
	out := ConvertSRT(sampleSRT)

	assert.True(t, len(out) > 7 && out[:8] == "WEBVTT\n\n")
	assert.Contains(t, out, "00:00:01.000 --> 00:00:02.500")
	assert.Contains(t, out, "00:01:10.250 --> 00:01:12.000")
	assert.NotContains(t, out, "\r\n")
	// Commas in cue text survive; only timestamp separators are rewritten.
	assert.NotContains(t, out, ",000")
}

func TestConvertSRTLeavesTextCommas(t *testing.T) {
	out := ConvertSRT("1\n00:00:01,000 --> 00:00:02,000\nWell, hello\n")
	assert.Contains(t, out, "Well, hello")
}

func serveSubs(t *testing.T, mediaPath string) *httptest.ResponseRecorder {
	t.Helper()
	engine := NewEngine("ffmpeg", zerolog.Nop())
	req := httptest.NewRequest(http.MethodGet, "/subtitles/x", nil)
	rec := httptest.NewRecorder()
	engine.ServeSubtitles(rec, req, mediaPath)
	return rec
}

func TestServeSubtitlesPrefersVTT(t *testing.T) {
	dir := t.TempDir()
	media := filepath.Join(dir, "movie.mkv")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "movie.vtt"), []byte("WEBVTT\n\nnative"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "movie.srt"), []byte(sampleSRT), 0o644))

	rec := serveSubs(t, media)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/vtt", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "native")
}

func TestServeSubtitlesConvertsSRT(t *testing.T) {
	dir := t.TempDir()
	media := filepath.Join(dir, "movie.mkv")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "movie.srt"), []byte(sampleSRT), 0o644))

	rec := serveSubs(t, media)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/vtt", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "WEBVTT")
	assert.Contains(t, rec.Body.String(), "00:00:01.000 --> 00:00:02.500")
}

func TestServeSubtitlesNotFound(t *testing.T) {
	rec := serveSubs(t, filepath.Join(t.TempDir(), "movie.mkv"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
