package domain

import "net/url"

// ExtractOrigin derives the scheme://host origin from a page URL. The origin
// is the unit of access control for collection: tracker origin whitelists and
// the global policy allow-list both match against it.
func ExtractOrigin(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", NewValidationError("invalid URL: %s", rawURL)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", NewValidationError("URL must be absolute: %s", rawURL)
	}
	return u.Scheme + "://" + u.Host, nil
}

// Truncate bounds s to max bytes. Stored page URLs, paths and referrers are
// capped at 1024 regardless of what validation admitted.
func Truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
