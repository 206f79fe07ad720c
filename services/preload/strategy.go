package preload

import (
	"novafront/models"
	"novafront/services/metadata"
)

// batchPreloader is the part of Queue the page strategies drive.
type batchPreloader interface {
	PreloadCritical(urls []string) []*Future
	PreloadNextPage(urls []string) []*Future
	Stats() Stats
}

// Batch groups the futures a page strategy produced.
type Batch struct {
	Critical  []*Future
	Lookahead []*Future
}

// All returns every future in the batch, critical first.
func (b Batch) All() []*Future {
	out := make([]*Future, 0, len(b.Critical)+len(b.Lookahead))
	out = append(out, b.Critical...)
	return append(out, b.Lookahead...)
}

// Strategy decides which images each page warms before it renders.
type Strategy struct {
	queue batchPreloader
}

// NewStrategy wraps queue with the per-page selection rules.
func NewStrategy(queue batchPreloader) *Strategy {
	return &Strategy{queue: queue}
}

// Homepage warms the hero backdrop of the first featured title and the
// posters of the first row.
func (s *Strategy) Homepage(featured []models.Title) Batch {
	var urls []string
	if len(featured) > 0 && featured[0].BackdropPath != "" {
		urls = append(urls, metadata.ImageURL(featured[0].BackdropPath, metadata.HeroBackdropSize))
	}
	for _, item := range firstN(featured, 6) {
		if item.PosterPath != "" {
			urls = append(urls, metadata.ImageURL(item.PosterPath, metadata.GridPosterSize))
		}
	}
	return Batch{Critical: s.queue.PreloadCritical(urls)}
}

// MovieDetail warms the movie's backdrop and poster now and the posters of
// similar titles as lookahead for the next navigation.
func (s *Strategy) MovieDetail(movie models.Title, similar []models.Title) Batch {
	var critical []string
	if movie.BackdropPath != "" {
		critical = append(critical, metadata.ImageURL(movie.BackdropPath, metadata.HeroBackdropSize))
	}
	if movie.PosterPath != "" {
		critical = append(critical, metadata.ImageURL(movie.PosterPath, metadata.GridPosterSize))
	}

	var lookahead []string
	for _, item := range firstN(similar, 6) {
		if item.PosterPath != "" {
			lookahead = append(lookahead, metadata.ImageURL(item.PosterPath, metadata.GridPosterSize))
		}
	}

	return Batch{
		Critical:  s.queue.PreloadCritical(critical),
		Lookahead: s.queue.PreloadNextPage(lookahead),
	}
}

// SearchResults warms the first results, using the profile picture for people.
func (s *Strategy) SearchResults(results []models.Title) Batch {
	var urls []string
	for _, item := range firstN(results, 8) {
		switch {
		case item.PosterPath != "":
			urls = append(urls, metadata.ImageURL(item.PosterPath, metadata.GridPosterSize))
		case item.ProfilePath != "":
			urls = append(urls, metadata.ImageURL(item.ProfilePath, metadata.GridPosterSize))
		}
	}
	return Batch{Critical: s.queue.PreloadCritical(urls)}
}

// ContentGrid warms the top of a poster grid (trending, top rated, upcoming).
func (s *Strategy) ContentGrid(items []models.Title) Batch {
	var urls []string
	for _, item := range firstN(items, 12) {
		if item.PosterPath != "" {
			urls = append(urls, metadata.ImageURL(item.PosterPath, metadata.GridPosterSize))
		}
	}
	return Batch{Critical: s.queue.PreloadCritical(urls)}
}

// Stats passes through the queue snapshot.
func (s *Strategy) Stats() Stats {
	return s.queue.Stats()
}

func firstN(items []models.Title, n int) []models.Title {
	if len(items) > n {
		return items[:n]
	}
	return items
}
