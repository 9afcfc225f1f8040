package repository

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const (
	scrapersPrefix = "scrapers/"
	metadataPrefix = "metadata/"
)

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// DomainKey converts a domain (possibly carrying a port or a pipeline
// suffix) into a storage key segment: characters outside [a-zA-Z0-9_-] are
// replaced with underscores, so "news.example.org" becomes
// "news_example_org".
func DomainKey(domain string) string {
	return unsafeKeyChars.ReplaceAllString(domain, "_")
}

// KeyFor builds the key for a domain and scraper type. The list and content
// halves of a pipeline carry a type suffix so both can coexist under one
// domain without colliding.
func KeyFor(domain string, t ScraperType) string {
	key := DomainKey(domain)
	if t == TypeList || t == TypeContent {
		key = key + "_" + string(t)
	}
	return key
}

// ArtifactPath is the logical storage path of a code blob.
func ArtifactPath(key string) string {
	return scrapersPrefix + key + ".py"
}

// MetadataPath is the logical storage path of a metadata object.
func MetadataPath(key string) string {
	return metadataPrefix + key + ".json"
}

// DomainFromURL extracts the host (netloc, including any port) from a URL.
func DomainFromURL(raw string) (string, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", raw, err)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("url %q has no host", raw)
	}
	return parsed.Host, nil
}

// PatternForHost builds the default url_pattern for a host: any path under
// that host over http or https.
func PatternForHost(host string) string {
	return "https?://" + regexp.QuoteMeta(host) + "/.*"
}

// IsMetadataObject reports whether a listed path names a metadata record.
func IsMetadataObject(path string) bool {
	return strings.HasPrefix(path, metadataPrefix) && strings.HasSuffix(path, ".json")
}
