package metadata

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/mozillazg/go-unidecode"
)

// ImageContext carries the title facts used to name and describe artwork.
type ImageContext struct {
	Title    string
	Type     string // poster, backdrop, profile
	Category string
	Year     int
	Actors   []string
	Genre    string
}

var (
	slugStrip     = regexp.MustCompile(`[^a-z0-9\s_-]`)
	slugSeparator = regexp.MustCompile(`[\s_-]+`)
)

// Slugify lowercases text, transliterates it to ASCII and joins words with
// hyphens.
func Slugify(text string) string {
	s := strings.ToLower(unidecode.Unidecode(text))
	s = slugStrip.ReplaceAllString(s, "")
	s = slugSeparator.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// SEOFileName builds a descriptive file name stem such as
// "spirited-away-poster-anime-2001". When ctx has nothing usable the
// original name, without its extension, is slugified instead.
func SEOFileName(original string, ctx ImageContext) string {
	var b strings.Builder
	if ctx.Title != "" {
		b.WriteString(Slugify(ctx.Title))
	}
	if ctx.Type != "" {
		b.WriteString("-" + ctx.Type)
	}
	if ctx.Category != "" {
		b.WriteString("-" + Slugify(ctx.Category))
	}
	if ctx.Year > 0 {
		fmt.Fprintf(&b, "-%d", ctx.Year)
	}
	if stem := strings.Trim(b.String(), "-"); stem != "" {
		return stem
	}
	return Slugify(strings.TrimSuffix(original, path.Ext(original)))
}

// AltText describes an image for screen readers and crawlers.
func AltText(ctx ImageContext) string {
	var b strings.Builder
	b.WriteString(ctx.Title)
	switch ctx.Type {
	case "poster":
		b.WriteString(" movie poster")
	case "backdrop":
		b.WriteString(" movie scene")
	}
	if ctx.Year > 0 {
		fmt.Fprintf(&b, " (%d)", ctx.Year)
	}
	if len(ctx.Actors) > 0 {
		actors := ctx.Actors
		if len(actors) > 2 {
			actors = actors[:2]
		}
		b.WriteString(" starring " + strings.Join(actors, " and "))
	}
	if ctx.Genre != "" {
		b.WriteString(" - " + ctx.Genre + " film")
	}
	return strings.TrimSpace(b.String())
}
