package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		ext  string
		kind Kind
		ok   bool
	}{
		{".mp4", KindVideo, true},
		{".mkv", KindVideo, true},
		{".webm", KindVideo, true},
		{".mp3", KindAudio, true},
		{".flac", KindAudio, true},
		{".jpg", KindImage, true},
		{".webp", KindImage, true},
		{".MKV", KindVideo, true},
		{".Mp3", KindAudio, true},
		{".txt", "", false},
		{".exe", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		kind, ok := Classify(tt.ext)
		assert.Equal(t, tt.ok, ok, "ext %q", tt.ext)
		if tt.ok {
			assert.Equal(t, tt.kind, kind, "ext %q", tt.ext)
		}
	}
}

func TestClassifyPath(t *testing.T) {
	kind, ok := ClassifyPath("/media/movies/Some Movie (2019).mkv")
	assert.True(t, ok)
	assert.Equal(t, KindVideo, kind)

	_, ok = ClassifyPath("/media/movies/notes.txt")
	assert.False(t, ok)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "video/mp4", ContentType("a.mp4"))
	assert.Equal(t, "video/x-matroska", ContentType("a.MKV"))
	assert.Equal(t, "audio/mpeg", ContentType("song.mp3"))
	assert.Equal(t, "image/jpeg", ContentType("pic.jpeg"))
	assert.Equal(t, "application/octet-stream", ContentType("file.xyz"))
}
