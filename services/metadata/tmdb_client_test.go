package metadata

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/spf13/afero"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func newTestTMDBClient(apiKey string, rt roundTripFunc) *tmdbClient {
	c := newTMDBClient(apiKey, "en-US", &http.Client{Transport: rt}, newFileCache(afero.NewMemMapFs(), "metadata", 24))
	c.retryDelay = 0
	return c
}

func TestNormalizeLanguage(t *testing.T) {
	tests := map[string]string{
		"":      "en-US",
		"en":    "en-US",
		"en_US": "en-US",
		"pt-br": "pt-BR",
		"fr-FR": "fr-FR",
		"es":    "es-US",
		"???":   "en-US",
	}
	for input, expect := range tests {
		if got := normalizeLanguage(input); got != expect {
			t.Fatalf("normalizeLanguage(%q) = %q, want %q", input, got, expect)
		}
	}
}

func TestBuildTMDBImage(t *testing.T) {
	if img := buildTMDBImage("", tmdbPosterSize, "poster"); img != nil {
		t.Fatal("expected nil image when path empty")
	}
	img := buildTMDBImage("/poster.png", tmdbPosterSize, "poster")
	if img == nil {
		t.Fatal("expected image for valid path")
	}
	if img.URL != "https://image.tmdb.org/t/p/w780/poster.png" {
		t.Fatalf("unexpected image url: %s", img.URL)
	}
	if img.Type != "poster" {
		t.Fatalf("unexpected image type: %s", img.Type)
	}
}

func TestParseTMDBYear(t *testing.T) {
	if year := parseTMDBYear("2024-05-01", ""); year != 2024 {
		t.Fatalf("expected 2024, got %d", year)
	}
	if year := parseTMDBYear("", "2019-01-01"); year != 2019 {
		t.Fatalf("expected 2019, got %d", year)
	}
	if year := parseTMDBYear("199", ""); year != 0 {
		t.Fatalf("expected 0 for invalid date, got %d", year)
	}
}

func TestTMDBClientAuthAndCaching(t *testing.T) {
	var calls atomic.Int32
	client := newTestTMDBClient("plain-key", func(req *http.Request) (*http.Response, error) {
		calls.Add(1)
		if got := req.URL.Query().Get("api_key"); got != "plain-key" {
			t.Errorf("expected api_key query param, got %q", got)
		}
		if got := req.URL.Query().Get("language"); got != "en-US" {
			t.Errorf("expected language en-US, got %q", got)
		}
		if req.URL.Path != "/3/trending/movie/week" {
			t.Errorf("unexpected path %s", req.URL.Path)
		}
		return jsonResponse(http.StatusOK, `{"page":1,"results":[{"id":1,"title":"Dune","poster_path":"/dune.jpg"}]}`), nil
	})

	for i := 0; i < 2; i++ {
		results, err := client.trending(context.Background(), "movie")
		if err != nil {
			t.Fatalf("trending: %v", err)
		}
		if len(results) != 1 || results[0].Title != "Dune" {
			t.Fatalf("unexpected results: %+v", results)
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("expected second call to hit the cache, got %d requests", calls.Load())
	}
}

func TestTMDBClientBearerToken(t *testing.T) {
	client := newTestTMDBClient("eyJhbGciOiJIUzI1NiJ9.token", func(req *http.Request) (*http.Response, error) {
		if got := req.Header.Get("Authorization"); got != "Bearer eyJhbGciOiJIUzI1NiJ9.token" {
			t.Errorf("unexpected authorization header %q", got)
		}
		if req.URL.Query().Has("api_key") {
			t.Error("api_key should not be sent with a bearer token")
		}
		return jsonResponse(http.StatusOK, `{"results":[]}`), nil
	})
	if _, err := client.topRated(context.Background()); err != nil {
		t.Fatalf("topRated: %v", err)
	}
}

func TestTMDBClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestTMDBClient("key", func(req *http.Request) (*http.Response, error) {
		if calls.Add(1) < 3 {
			return jsonResponse(http.StatusServiceUnavailable, `{"status_message":"busy"}`), nil
		}
		return jsonResponse(http.StatusOK, `{"results":[{"id":2,"title":"Arrival"}]}`), nil
	})

	results, err := client.upcoming(context.Background())
	if err != nil {
		t.Fatalf("upcoming: %v", err)
	}
	if len(results) != 1 || calls.Load() != 3 {
		t.Fatalf("expected success on third attempt, got %d results after %d calls", len(results), calls.Load())
	}
}

func TestTMDBClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestTMDBClient("bad-key", func(req *http.Request) (*http.Response, error) {
		calls.Add(1)
		return jsonResponse(http.StatusUnauthorized, `{"status_message":"Invalid API key"}`), nil
	})

	_, err := client.search(context.Background(), "alien")
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("expected 401 error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
}

func TestTMDBClientDoesNotRetryDecodeErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestTMDBClient("key", func(req *http.Request) (*http.Response, error) {
		calls.Add(1)
		return jsonResponse(http.StatusOK, `{not json`), nil
	})

	if _, err := client.movieDetails(context.Background(), 42); err == nil {
		t.Fatal("expected decode error")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
}

func TestTMDBClientRequiresKey(t *testing.T) {
	client := newTestTMDBClient("", func(req *http.Request) (*http.Response, error) {
		t.Fatal("no request expected without a key")
		return nil, nil
	})
	if _, err := client.trending(context.Background(), "tv"); err == nil {
		t.Fatal("expected error without api key")
	}
}
