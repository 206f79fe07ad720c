package utils

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// NormalizeImageURL resolves raw against base (when raw is relative) and
// returns an absolute http(s) URL with spaces encoded. Some catalog sources
// hand out file paths with raw spaces.
func NormalizeImageURL(raw, base string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("empty url")
	}
	ref, err := url.Parse(strings.ReplaceAll(raw, " ", "%20"))
	if err != nil {
		return "", err
	}
	if !ref.IsAbs() {
		if base == "" {
			return "", fmt.Errorf("relative url %q without a base", raw)
		}
		baseURL, err := url.Parse(base)
		if err != nil {
			return "", fmt.Errorf("invalid base url: %w", err)
		}
		if !strings.HasSuffix(baseURL.Path, "/") {
			baseURL.Path += "/"
		}
		ref = baseURL.ResolveReference(&url.URL{Path: strings.TrimPrefix(ref.Path, "/"), RawQuery: ref.RawQuery})
	}

	switch strings.ToLower(ref.Scheme) {
	case "http", "https":
	default:
		return "", fmt.Errorf("unsupported url scheme %q", ref.Scheme)
	}
	if ref.Host == "" {
		return "", fmt.Errorf("url %q has no host", raw)
	}

	encoded := strings.ToLower(ref.Scheme) + "://" + ref.Host + ref.EscapedPath()
	if ref.RawQuery != "" {
		encoded += "?" + strings.ReplaceAll(ref.RawQuery, " ", "%20")
	}
	return encoded, nil
}
