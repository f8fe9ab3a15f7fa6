package media

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// Category keys in their fixed presentation order.
const (
	CategoryMovies  = "movies"
	CategoryTVShows = "tv_shows"
	CategoryImages  = "images"
	CategoryAudio   = "audio"
)

var categoryDisplay = map[string]string{
	CategoryMovies:  "Movies",
	CategoryTVShows: "TV Shows",
	CategoryImages:  "Images",
	CategoryAudio:   "Audio",
}

// Category holds the entries of one top-level library directory. For tv_shows
// the flat Files list is kept alongside the grouped Series structure.
type Category struct {
	Name   string             `json:"name"`
	Files  []Entry            `json:"files"`
	Series map[string]*Series `json:"series,omitempty"`
}

// Catalog is one consistent point-in-time read of the media tree. Field order
// fixes the serialized category order: movies, tv_shows, images, audio.
// Missing category directories leave their field nil.
type Catalog struct {
	Movies  *Category `json:"movies,omitempty"`
	TVShows *Category `json:"tv_shows,omitempty"`
	Images  *Category `json:"images,omitempty"`
	Audio   *Category `json:"audio,omitempty"`
}

// Entries returns every entry across all categories, in category order.
func (c *Catalog) Entries() []Entry {
	var out []Entry
	for _, cat := range []*Category{c.Movies, c.TVShows, c.Images, c.Audio} {
		if cat != nil {
			out = append(out, cat.Files...)
		}
	}
	return out
}

// Find resolves an entry by its external name across all categories.
func (c *Catalog) Find(name string) (Entry, bool) {
	for _, entry := range c.Entries() {
		if entry.Name == name {
			return entry, true
		}
	}
	return Entry{}, false
}

// FindSeries resolves a series by name, case-insensitively.
func (c *Catalog) FindSeries(name string) (*Series, bool) {
	if c.TVShows == nil {
		return nil, false
	}
	for _, s := range c.TVShows.Series {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return nil, false
}

// Builder recomputes the catalog from the filesystem. It performs no caching
// itself; callers hold the returned snapshot for the span of one operation.
type Builder struct {
	root    string
	scanner *Scanner
	log     zerolog.Logger
}

func NewBuilder(root string, log zerolog.Logger) *Builder {
	return &Builder{root: root, scanner: NewScanner(log), log: log}
}

// Build scans the four fixed category directories under the media root.
// Missing category directories are omitted, not errors; an unreadable root is.
func (b *Builder) Build() (*Catalog, error) {
	if _, err := os.Stat(b.root); err != nil {
		return nil, fmt.Errorf("media root: %w", err)
	}
	catalog := &Catalog{}
	for _, key := range []string{CategoryMovies, CategoryTVShows, CategoryImages, CategoryAudio} {
		dir := filepath.Join(b.root, key)
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			continue
		}
		var cat *Category
		var err error
		if key == CategoryTVShows {
			cat, err = b.buildTVShows(dir)
		} else {
			cat, err = b.buildCategory(key, dir)
		}
		if err != nil {
			return nil, err
		}
		switch key {
		case CategoryMovies:
			catalog.Movies = cat
		case CategoryTVShows:
			catalog.TVShows = cat
		case CategoryImages:
			catalog.Images = cat
		case CategoryAudio:
			catalog.Audio = cat
		}
	}
	return catalog, nil
}

func (b *Builder) buildCategory(key, dir string) (*Category, error) {
	entries, err := b.scanner.Scan(dir)
	if err != nil {
		return nil, err
	}
	files := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		entry.Category = key
		entry.CategoryDisplay = categoryDisplay[key]
		files = append(files, entry)
	}
	return &Category{Name: categoryDisplay[key], Files: files}, nil
}

// buildTVShows groups episodes into series. A sub-directory per show is
// authoritative: its name becomes the series name and filename extraction is
// skipped. Video files lying directly in tv_shows are grouped by the name
// inferred from their filenames.
func (b *Builder) buildTVShows(dir string) (*Category, error) {
	items, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}
	series := make(map[string]*Series)
	var loose []Entry
	for _, item := range items {
		full := filepath.Join(dir, item.Name())
		if item.IsDir() {
			episodes, err := b.scanner.Scan(full)
			if err != nil {
				b.log.Warn().Err(err).Str("dir", full).Msg("skipping unreadable series directory")
				continue
			}
			if len(episodes) == 0 {
				continue
			}
			s := &Series{Name: item.Name()}
			for _, ep := range episodes {
				ep.SeriesName = s.Name
				s.Episodes = append(s.Episodes, ep)
			}
			SortEpisodes(s.Episodes)
			series[s.Name] = s
			continue
		}
		if kind, ok := Classify(filepath.Ext(item.Name())); ok && kind == KindVideo {
			info, err := item.Info()
			if err != nil {
				b.log.Warn().Err(err).Str("file", full).Msg("skipping unreadable file")
				continue
			}
			loose = append(loose, Entry{
				Name: item.Name(),
				Path: full,
				Kind: KindVideo,
				Size: info.Size(),
			})
		}
	}
	for name, s := range GroupSeries(loose) {
		if existing, ok := series[name]; ok {
			existing.Episodes = append(existing.Episodes, s.Episodes...)
			SortEpisodes(existing.Episodes)
			continue
		}
		series[name] = s
	}

	// Flatten in sorted series order so the per-episode list is deterministic
	// across scans of an unchanged tree.
	names := make([]string, 0, len(series))
	for name := range series {
		names = append(names, name)
	}
	sort.Strings(names)
	var files []Entry
	for _, name := range names {
		s := series[name]
		for i := range s.Episodes {
			s.Episodes[i].Category = CategoryTVShows
			s.Episodes[i].CategoryDisplay = categoryDisplay[CategoryTVShows]
			s.Episodes[i].SeriesName = s.Name
		}
		files = append(files, s.Episodes...)
	}
	return &Category{Name: categoryDisplay[CategoryTVShows], Files: files, Series: series}, nil
}
