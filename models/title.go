package models

// MediaType distinguishes movies from series in catalog rows.
type MediaType string

const (
	MediaTypeMovie  MediaType = "movie"
	MediaTypeSeries MediaType = "series"
	MediaTypePerson MediaType = "person"
)

// Image is a resolved artwork URL for a title or person.
type Image struct {
	URL      string `json:"url"`
	Type     string `json:"type"` // poster, backdrop, profile
	Format   string `json:"format,omitempty"`
	SrcSet   string `json:"srcSet,omitempty"`
	WebP     string `json:"webp,omitempty"`
	Alt      string `json:"alt,omitempty"`
	FileName string `json:"fileName,omitempty"`
}

// Title is a single catalog entry as returned to the front end.
type Title struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Overview     string    `json:"overview,omitempty"`
	MediaType    MediaType `json:"mediaType"`
	Year         int       `json:"year,omitempty"`
	Popularity   float64   `json:"popularity,omitempty"`
	VoteAverage  float64   `json:"voteAverage,omitempty"`
	Genres       []string  `json:"genres,omitempty"`
	PosterPath   string    `json:"posterPath,omitempty"`   // raw TMDB path, e.g. /abc.jpg
	BackdropPath string    `json:"backdropPath,omitempty"` // raw TMDB path
	ProfilePath  string    `json:"profilePath,omitempty"`  // people only
	Poster       *Image    `json:"poster,omitempty"`
	Backdrop     *Image    `json:"backdrop,omitempty"`
}

// TrendingItem wraps a title with its rank inside a catalog row.
type TrendingItem struct {
	Rank  int   `json:"rank"`
	Title Title `json:"title"`
}

// CatalogRow is one horizontal row on the home page.
type CatalogRow struct {
	ID    string         `json:"id"`   // trending-movies, trending-series, top-rated, upcoming
	Name  string         `json:"name"` // display name
	Items []TrendingItem `json:"items"`
	Error string         `json:"error,omitempty"`
}

// MovieDetails bundles a movie with the titles shown beneath it.
type MovieDetails struct {
	Title   Title   `json:"title"`
	Similar []Title `json:"similar,omitempty"`
}

// Titles unwraps a row's items into plain titles, preserving order.
func Titles(items []TrendingItem) []Title {
	out := make([]Title, 0, len(items))
	for _, item := range items {
		out = append(out, item.Title)
	}
	return out
}
