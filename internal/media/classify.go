package media

import (
	"path/filepath"
	"strings"
)

// Kind is the broad media family a file belongs to.
type Kind string

const (
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
	KindImage Kind = "image"
)

// Supported extension sets. These are configuration-level data: the sets are
// fixed and disjoint, and classification is nothing but a lookup.
var supportedFormats = map[Kind][]string{
	KindVideo: {".mp4", ".mkv", ".avi", ".mov", ".wmv", ".flv", ".webm"},
	KindAudio: {".mp3", ".flac", ".wav", ".aac", ".ogg"},
	KindImage: {".jpg", ".jpeg", ".png", ".gif", ".webp"},
}

var extKind = func() map[string]Kind {
	m := make(map[string]Kind)
	for kind, exts := range supportedFormats {
		for _, ext := range exts {
			m[ext] = kind
		}
	}
	return m
}()

// Classify maps a file extension (with leading dot, any case) to its media
// kind. The second return is false for unsupported extensions.
func Classify(ext string) (Kind, bool) {
	kind, ok := extKind[strings.ToLower(ext)]
	return kind, ok
}

// ClassifyPath classifies by the path's extension.
func ClassifyPath(path string) (Kind, bool) {
	return Classify(filepath.Ext(path))
}

var mimeTypes = map[string]string{
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".wmv":  "video/x-ms-wmv",
	".flv":  "video/x-flv",
	".mp3":  "audio/mpeg",
	".flac": "audio/flac",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".aac":  "audio/aac",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// ContentType resolves the MIME type for a path from a fixed extension table,
// falling back to application/octet-stream.
func ContentType(path string) string {
	if ct, ok := mimeTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return ct
	}
	return "application/octet-stream"
}
