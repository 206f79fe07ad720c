package metadata

import (
	"context"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/spf13/afero"

	"novafront/models"
)

func newTestService(t *testing.T, rt roundTripFunc) *Service {
	t.Helper()
	return NewService(afero.NewMemMapFs(), Config{
		APIKey:     "key",
		Language:   "en",
		CacheDir:   "cache",
		HTTPClient: &http.Client{Transport: rt},
	})
}

func TestHomeRowsToleratesFailedRow(t *testing.T) {
	svc := newTestService(t, func(req *http.Request) (*http.Response, error) {
		switch req.URL.Path {
		case "/3/trending/movie/week":
			return jsonResponse(http.StatusOK, `{"results":[{"id":1,"title":"Dune","poster_path":"/dune.jpg","backdrop_path":"/dune-bg.jpg","release_date":"2021-09-15"}]}`), nil
		case "/3/trending/tv/week":
			return jsonResponse(http.StatusOK, `{"results":[{"id":2,"name":"Severance","first_air_date":"2022-02-18"}]}`), nil
		case "/3/movie/top_rated":
			return jsonResponse(http.StatusOK, `{"results":[{"id":3,"title":"Heat"},{"id":4,"title":"Ran"}]}`), nil
		default:
			return jsonResponse(http.StatusNotFound, `{"status_message":"not found"}`), nil
		}
	})

	rows := svc.HomeRows(context.Background())
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}
	wantIDs := []string{"trending-movies", "trending-series", "top-rated", "upcoming"}
	for i, id := range wantIDs {
		if rows[i].ID != id {
			t.Fatalf("row %d = %s, want %s", i, rows[i].ID, id)
		}
	}

	movie := rows[0].Items[0]
	if movie.Rank != 1 || movie.Title.Name != "Dune" || movie.Title.Year != 2021 || movie.Title.MediaType != models.MediaTypeMovie {
		t.Fatalf("unexpected movie item %+v", movie)
	}
	if movie.Title.Poster == nil || movie.Title.Poster.URL != "https://image.tmdb.org/t/p/w780/dune.jpg" {
		t.Fatalf("unexpected poster %+v", movie.Title.Poster)
	}
	if movie.Title.Backdrop == nil || movie.Title.Backdrop.Alt == "" {
		t.Fatalf("expected described backdrop, got %+v", movie.Title.Backdrop)
	}
	if rows[1].Items[0].Title.MediaType != models.MediaTypeSeries || rows[1].Items[0].Title.Year != 2022 {
		t.Fatalf("unexpected series item %+v", rows[1].Items[0])
	}
	if len(rows[2].Items) != 2 || rows[2].Items[1].Rank != 2 {
		t.Fatalf("unexpected top rated row %+v", rows[2])
	}
	if rows[3].Error == "" || len(rows[3].Items) != 0 {
		t.Fatalf("expected upcoming row to carry an error, got %+v", rows[3])
	}
}

func TestSearchKeepsSupportedMediaTypes(t *testing.T) {
	svc := newTestService(t, func(req *http.Request) (*http.Response, error) {
		if got := req.URL.Query().Get("query"); got != "nolan" {
			t.Errorf("unexpected query %q", got)
		}
		return jsonResponse(http.StatusOK, `{"results":[
			{"id":1,"media_type":"movie","title":"Tenet"},
			{"id":2,"media_type":"person","name":"Christopher Nolan","profile_path":"/nolan.jpg"},
			{"id":3,"media_type":"collection","name":"Dark Knight Collection"},
			{"id":4,"media_type":"tv","name":"Memento TV"}
		]}`), nil
	})

	results, err := svc.Search(context.Background(), "  nolan ")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	person := results[1]
	if person.MediaType != models.MediaTypePerson || person.Poster == nil || !strings.Contains(person.Poster.URL, "/w185/nolan.jpg") {
		t.Fatalf("unexpected person result %+v", person)
	}
	if person.Backdrop != nil {
		t.Fatal("people should not carry a backdrop")
	}

	if _, err := svc.Search(context.Background(), "   "); err == nil {
		t.Fatal("expected error for empty query")
	}
}

func TestMovieDetailsSurvivesSimilarFailure(t *testing.T) {
	svc := newTestService(t, func(req *http.Request) (*http.Response, error) {
		switch req.URL.Path {
		case "/3/movie/550":
			return jsonResponse(http.StatusOK, `{"id":550,"title":"Fight Club","genres":[{"id":18,"name":"Drama"}]}`), nil
		default:
			return jsonResponse(http.StatusNotFound, `{}`), nil
		}
	})

	details, err := svc.MovieDetails(context.Background(), 550)
	if err != nil {
		t.Fatalf("movie details: %v", err)
	}
	if details.Title.Name != "Fight Club" || len(details.Title.Genres) != 1 || details.Title.Genres[0] != "Drama" {
		t.Fatalf("unexpected title %+v", details.Title)
	}
	if len(details.Similar) != 0 {
		t.Fatalf("expected no similar titles, got %d", len(details.Similar))
	}

	if _, err := svc.MovieDetails(context.Background(), 0); err == nil {
		t.Fatal("expected error for invalid id")
	}
}

func TestTrendingRejectsUnknownMediaType(t *testing.T) {
	svc := newTestService(t, func(req *http.Request) (*http.Response, error) {
		t.Fatal("no request expected")
		return nil, nil
	})
	if _, err := svc.Trending(context.Background(), "podcasts"); err == nil {
		t.Fatal("expected unsupported media type error")
	}
}

func TestUpdateAPIKeyDropsCachedResponses(t *testing.T) {
	var calls atomic.Int32
	svc := newTestService(t, func(req *http.Request) (*http.Response, error) {
		calls.Add(1)
		return jsonResponse(http.StatusOK, `{"results":[{"id":9,"title":"Alien"}]}`), nil
	})

	ctx := context.Background()
	if _, err := svc.TopRated(ctx); err != nil {
		t.Fatalf("top rated: %v", err)
	}
	if _, err := svc.TopRated(ctx); err != nil {
		t.Fatalf("top rated (cached): %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected cached second call, got %d requests", calls.Load())
	}

	svc.UpdateAPIKey("other-key", "de")
	if _, err := svc.TopRated(ctx); err != nil {
		t.Fatalf("top rated after key change: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected a fresh request after key change, got %d", calls.Load())
	}
}
