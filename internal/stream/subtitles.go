package stream

import (
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var srtTimestamp = regexp.MustCompile(`(\d\d:\d\d:\d\d),(\d\d\d)`)

// ConvertSRT rewrites SubRip text into WebVTT: dots instead of commas in
// timestamp millisecond separators, normalized line endings, and the WEBVTT
// header line.
func ConvertSRT(srt string) string {
	converted := srtTimestamp.ReplaceAllString(srt, "$1.$2")
	converted = strings.ReplaceAll(converted, "\r\n", "\n")
	return "WEBVTT\n\n" + converted
}

// ServeSubtitles looks for a sidecar subtitle next to the media file: a .vtt
// is served verbatim, a .srt is converted on the fly, and 404 otherwise.
func (e *Engine) ServeSubtitles(w http.ResponseWriter, r *http.Request, mediaPath string) {
	base := strings.TrimSuffix(mediaPath, filepath.Ext(mediaPath))

	vttPath := base + ".vtt"
	if _, err := os.Stat(vttPath); err == nil {
		w.Header().Set("Content-Type", "text/vtt")
		http.ServeFile(w, r, vttPath)
		return
	}

	srtPath := base + ".srt"
	data, err := os.ReadFile(srtPath)
	if err != nil {
		http.Error(w, "subtitle file not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/vtt")
	_, _ = w.Write([]byte(ConvertSRT(string(data))))
}
