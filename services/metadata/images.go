package metadata

import (
	"fmt"
	"math"
	"path"
	"regexp"
	"strings"

	"novafront/models"
)

const tmdbImageBaseURL = "https://image.tmdb.org/t/p"

// TMDB image size segments used across the catalog.
const (
	tmdbPosterSize   = "w780"
	tmdbBackdropSize = "w1280"
	tmdbProfileSize  = "w185"

	// GridPosterSize is what poster rows and grids render at.
	GridPosterSize = "w500"
	// HeroBackdropSize is the face-cropped banner used by the hero carousel
	// and detail pages.
	HeroBackdropSize = "w1920_and_h800_multi_faces"
)

// optimalWidths are the poster widths TMDB serves that the responsive image
// picker chooses from.
var optimalWidths = []int{200, 300, 500, 780, 1280}

// DefaultSrcSetWidths are the breakpoints used when building a srcset.
var DefaultSrcSetWidths = []int{320, 640, 768, 1024, 1280, 1920}

var tmdbSizeSegment = regexp.MustCompile(`w\d+`)

// ImageURL joins a raw TMDB file path with a size segment. Absolute URLs are
// returned untouched and an empty path yields "".
func ImageURL(filePath, size string) string {
	filePath = strings.TrimSpace(filePath)
	if filePath == "" {
		return ""
	}
	if strings.HasPrefix(filePath, "http://") || strings.HasPrefix(filePath, "https://") {
		return filePath
	}
	if !strings.HasPrefix(filePath, "/") {
		filePath = "/" + filePath
	}
	if size == "" {
		size = "original"
	}
	return fmt.Sprintf("%s/%s%s", tmdbImageBaseURL, size, filePath)
}

func buildTMDBImage(filePath, size, imageType string) *models.Image {
	url := ImageURL(filePath, size)
	if url == "" {
		return nil
	}
	return &models.Image{URL: url, Type: imageType}
}

// describeImage fills the responsive and accessibility fields of img from the
// title it belongs to.
func describeImage(img *models.Image, t models.Title) {
	if img == nil {
		return
	}
	ctx := ImageContext{Title: t.Name, Type: img.Type, Category: string(t.MediaType), Year: t.Year}
	if len(t.Genres) > 0 {
		ctx.Genre = t.Genres[0]
	}
	img.Format = FormatForURL(img.URL)
	img.SrcSet = SrcSet(img.URL, nil)
	img.WebP = WebPVariant(img.URL)
	img.Alt = AltText(ctx)
	img.FileName = SEOFileName(path.Base(img.URL), ctx) + path.Ext(img.URL)
}

// OptimalSize picks the TMDB width segment closest to containerWidth scaled by
// the device pixel ratio. Ties resolve to the smaller width.
func OptimalSize(containerWidth int, devicePixelRatio float64) string {
	if devicePixelRatio <= 0 || math.IsNaN(devicePixelRatio) || math.IsInf(devicePixelRatio, 0) {
		devicePixelRatio = 1
	}
	target := int(math.Ceil(float64(containerWidth) * devicePixelRatio))
	best := optimalWidths[0]
	for _, w := range optimalWidths[1:] {
		if abs(w-target) < abs(best-target) {
			best = w
		}
	}
	return fmt.Sprintf("w%d", best)
}

// OptimizedImageURL is ImageURL with the size chosen by OptimalSize.
func OptimizedImageURL(filePath string, containerWidth int, devicePixelRatio float64) string {
	return ImageURL(filePath, OptimalSize(containerWidth, devicePixelRatio))
}

// SrcSet builds a srcset attribute for src. TMDB URLs get their size segment
// swapped per width; other URLs are assumed to have "-<w>w" variants next to
// the original file.
func SrcSet(src string, widths []int) string {
	if src == "" {
		return ""
	}
	if len(widths) == 0 {
		widths = DefaultSrcSetWidths
	}
	parts := make([]string, 0, len(widths))
	if isTMDBImage(src) {
		for _, w := range widths {
			variant := replaceFirst(src, tmdbSizeSegment, fmt.Sprintf("w%d", w))
			parts = append(parts, fmt.Sprintf("%s %dw", variant, w))
		}
		return strings.Join(parts, ", ")
	}

	ext := path.Ext(src)
	base := strings.TrimSuffix(src, ext)
	for _, w := range widths {
		parts = append(parts, fmt.Sprintf("%s-%dw%s %dw", base, w, ext, w))
	}
	return strings.Join(parts, ", ")
}

// WebPVariant swaps a jpeg/png extension for .webp. Other URLs are returned
// as-is.
func WebPVariant(src string) string {
	ext := strings.ToLower(path.Ext(src))
	switch ext {
	case ".jpg", ".jpeg", ".png":
		return src[:len(src)-len(ext)] + ".webp"
	}
	return src
}

var formatByExtension = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".avif": "image/avif",
	".svg":  "image/svg+xml",
	".gif":  "image/gif",
}

// FormatForURL guesses an image MIME type from the URL's extension, falling
// back to image/jpeg.
func FormatForURL(src string) string {
	if i := strings.IndexAny(src, "?#"); i >= 0 {
		src = src[:i]
	}
	if format, ok := formatByExtension[strings.ToLower(path.Ext(src))]; ok {
		return format
	}
	return "image/jpeg"
}

func isTMDBImage(src string) bool {
	return strings.Contains(src, "image.tmdb.org") || strings.Contains(src, "themoviedb.org")
}

func replaceFirst(s string, re *regexp.Regexp, repl string) string {
	loc := re.FindStringIndex(s)
	if loc == nil {
		return s
	}
	return s[:loc[0]] + repl + s[loc[1]:]
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
