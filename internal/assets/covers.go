package assets

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dhowden/tag"
	"github.com/google/renameio/v2"

	"homestream/internal/media"
)

// ExtractCover pulls embedded artwork out of an audio file and stores it
// under the covers directory, keyed by the source base name. Most audio files
// carry no artwork; that case returns nil without writing anything. The write
// is atomic, so a reader can never observe a half-written cover.
func (s *Store) ExtractCover(entry media.Entry) error {
	out := filepath.Join(s.CoverDir(), baseName(entry.Name)+".jpg")
	if exists(out) {
		return nil
	}
	f, err := os.Open(entry.Path)
	if err != nil {
		return fmt.Errorf("open %s: %w", entry.Path, err)
	}
	defer f.Close()

	meta, err := tag.ReadFrom(f)
	if err != nil {
		return fmt.Errorf("read tags %s: %w", entry.Name, err)
	}
	pic := meta.Picture()
	if pic == nil || len(pic.Data) == 0 {
		s.log.Debug().Str("file", entry.Name).Msg("no embedded cover art")
		return nil
	}
	if err := renameio.WriteFile(out, pic.Data, 0o644); err != nil {
		return fmt.Errorf("write cover %s: %w", out, err)
	}
	s.log.Info().Str("file", entry.Name).Msg("cover art extracted")
	return nil
}
