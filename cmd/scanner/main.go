package main

import (
	"encoding/json"
	"flag"
	"os"

	"homestream/internal/media"
	"homestream/pkg/logger"
)

// scanner prints the catalog computed from a media root as JSON. Useful for
// checking what the server would serve without starting it.
func main() {
	log := logger.New()

	root := flag.String("root", envDefault("MEDIA_ROOT", "media"), "media root directory")
	category := flag.String("category", "", "limit output to one category (movies, tv_shows, images, audio)")
	flag.Parse()

	catalog, err := media.NewBuilder(*root, log).Build()
	if err != nil {
		log.Fatal().Err(err).Str("root", *root).Msg("scan failed")
	}

	var out interface{} = catalog
	switch *category {
	case "":
	case media.CategoryMovies:
		out = catalog.Movies
	case media.CategoryTVShows:
		out = catalog.TVShows
	case media.CategoryImages:
		out = catalog.Images
	case media.CategoryAudio:
		out = catalog.Audio
	default:
		log.Fatal().Str("category", *category).Msg("unknown category")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatal().Err(err).Msg("encode failed")
	}
}

func envDefault(key, val string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return val
}
