package media

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Entry is one media file discovered on disk. Name is the external identifier;
// Path stays server-side and is never serialized.
type Entry struct {
	Name            string `json:"name"`
	Path            string `json:"-"`
	Kind            Kind   `json:"type"`
	Size            int64  `json:"size"`
	Category        string `json:"category,omitempty"`
	CategoryDisplay string `json:"categoryDisplay,omitempty"`
	SeriesName      string `json:"seriesName,omitempty"`
	Thumbnail       string `json:"thumbnail,omitempty"`
}

// Scanner walks directory trees and classifies regular files.
type Scanner struct {
	log zerolog.Logger
}

func NewScanner(log zerolog.Logger) *Scanner {
	return &Scanner{log: log}
}

// Scan recursively walks root and returns one Entry per file with a supported
// extension, in deterministic directory order. Unreadable files or
// subdirectories are skipped with a warning; only an unreadable root fails the
// whole scan.
func (s *Scanner) Scan(root string) ([]Entry, error) {
	items, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", root, err)
	}
	var entries []Entry
	for _, item := range items {
		full := filepath.Join(root, item.Name())
		if item.IsDir() {
			sub, err := s.Scan(full)
			if err != nil {
				s.log.Warn().Err(err).Str("dir", full).Msg("skipping unreadable directory")
				continue
			}
			entries = append(entries, sub...)
			continue
		}
		kind, ok := Classify(filepath.Ext(item.Name()))
		if !ok {
			continue
		}
		info, err := item.Info()
		if err != nil {
			s.log.Warn().Err(err).Str("file", full).Msg("skipping unreadable file")
			continue
		}
		entries = append(entries, Entry{
			Name: item.Name(),
			Path: full,
			Kind: kind,
			Size: info.Size(),
		})
	}
	return entries, nil
}
