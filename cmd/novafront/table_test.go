package main

import (
	"errors"
	"strings"
	"testing"

	"novafront/services/preload"
)

func TestRenderResults(t *testing.T) {
	out := renderResults([]preload.Result{
		{URL: "https://image.tmdb.org/t/p/w500/a.jpg", Resource: &preload.Resource{Size: 2048, Width: 500, Height: 750}},
		{URL: "https://image.tmdb.org/t/p/w500/b.jpg", Cached: true},
		{URL: "https://image.tmdb.org/t/p/w500/c.jpg", Err: errors.New("unexpected status 404")},
	})

	for _, want := range []string{"URL", "loaded", "500x750", "2048", "cached", "unexpected status 404"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	header := strings.ToLower(strings.SplitN(out, "\n", 3)[1])
	for _, want := range []string{"dimensions", "bytes"} {
		if !strings.Contains(header, want) {
			t.Fatalf("expected %q column in header %q", want, header)
		}
	}
	if strings.Contains(header, "size") {
		t.Fatalf("unexpected size column in header %q", header)
	}
}

func TestRenderTableEmptyHeaders(t *testing.T) {
	if out := renderTable(nil, [][]string{{"x"}}, nil); out != "" {
		t.Fatalf("expected empty output, got %q", out)
	}
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCommand()
	for _, name := range []string{"serve", "warm", "config"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Fatalf("expected %s subcommand, got %v (%v)", name, cmd, err)
		}
	}
	if root.PersistentFlags().Lookup("config") == nil {
		t.Fatal("expected --config flag")
	}
}
