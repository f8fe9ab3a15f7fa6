package media

import (
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Series is a derived grouping of video entries that share an inferred name.
// It is recomputed on every catalog build and never mutated in place.
type Series struct {
	Name      string  `json:"name"`
	Episodes  []Entry `json:"episodes"`
	Thumbnail string  `json:"thumbnail,omitempty"`
}

// Naming-scheme matchers tried in priority order; first match wins. Kept as an
// ordered list so each pattern stays independently testable.
var seriesPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(.+?)\s+S\d+E\d+`),      // "Series Name S01E01"
	regexp.MustCompile(`(?i)^(.+?)\s+Season\s+\d+`),  // "Series Name Season 1"
	regexp.MustCompile(`(?i)^(.+?)\s+\d+x\d+`),       // "Series Name 1x01"
	regexp.MustCompile(`(?i)^(.+?)\s+-\s+S\d+E\d+`),  // "Series Name - S01E01"
	regexp.MustCompile(`(?i)^(.+?)\s+\[\d+x\d+\]`),   // "Series Name [1x01]"
	regexp.MustCompile(`(?i)^(.+?)\s+\(\d{4}\)`),     // "Series Name (2023)"
}

var seriesFallback = regexp.MustCompile(`(?i)^(.+?)(?:\s+\d+|\s+S\d+|\s+-|\s+\[|\s+\()`)

// ExtractSeriesName infers a series name from an episode filename. The result
// is trimmed but otherwise verbatim: casing is preserved, so "Show" and "show"
// are distinct series keys.
func ExtractSeriesName(filename string) string {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))

	for _, pattern := range seriesPatterns {
		if m := pattern.FindStringSubmatch(base); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	if m := seriesFallback.FindStringSubmatch(base); m != nil {
		return strings.TrimSpace(m[1])
	}
	words := regexp.MustCompile(`[\s\-._]+`).Split(base, -1)
	if len(words) > 3 {
		words = words[:3]
	}
	return strings.Join(words, " ")
}

var (
	seasonEpisodeRe = regexp.MustCompile(`(?i)S(\d+)E(\d+)`)
	crossNumberRe   = regexp.MustCompile(`(?i)(\d+)x(\d+)`)
)

// episodeKey extracts the (season, episode) pair from a filename. ok is false
// when neither convention matches.
func episodeKey(name string) (season, episode int, ok bool) {
	m := seasonEpisodeRe.FindStringSubmatch(name)
	if m == nil {
		m = crossNumberRe.FindStringSubmatch(name)
	}
	if m == nil {
		return 0, 0, false
	}
	season, _ = strconv.Atoi(m[1])
	episode, _ = strconv.Atoi(m[2])
	return season, episode, true
}

// SortEpisodes orders episodes season-major, episode-minor when the pair is
// parseable from the filename. Unparseable names sort after all parseable
// ones, lexicographically. The sort is total and stable.
func SortEpisodes(episodes []Entry) {
	sort.SliceStable(episodes, func(i, j int) bool {
		si, ei, iOK := episodeKey(episodes[i].Name)
		sj, ej, jOK := episodeKey(episodes[j].Name)
		switch {
		case iOK && jOK:
			if si != sj {
				return si < sj
			}
			if ei != ej {
				return ei < ej
			}
			return episodes[i].Name < episodes[j].Name
		case iOK:
			return true
		case jOK:
			return false
		default:
			return episodes[i].Name < episodes[j].Name
		}
	})
}

// GroupSeries partitions loose video entries into series keyed by the
// extracted name. Two files that extract to the identical key always merge,
// even across unrelated shows with coincidentally identical leading tokens.
func GroupSeries(entries []Entry) map[string]*Series {
	series := make(map[string]*Series)
	for _, entry := range entries {
		name := ExtractSeriesName(entry.Name)
		entry.SeriesName = name
		s, ok := series[name]
		if !ok {
			s = &Series{Name: name}
			series[name] = s
		}
		s.Episodes = append(s.Episodes, entry)
	}
	for _, s := range series {
		SortEpisodes(s.Episodes)
	}
	return series
}
