package tileapi

import (
	"regexp"
	"strings"
)

// cookieBoundary matches a comma that starts a new cookie entry in a coalesced
// Set-Cookie value. Commas inside date-valued attributes ("Expires=Wed, 21
// Oct ...") are not followed by a key= token and are left alone.
var cookieBoundary = regexp.MustCompile(`,\s*[^;,\s=]+=`)

// ParseSetCookies turns raw Set-Cookie header material into a single Cookie
// header value of the form "k1=v1; k2=v2". Attributes (Path, Expires,
// HttpOnly, ...) are stripped and encounter order is preserved. Some
// transports coalesce multiple Set-Cookie lines into one comma-joined string;
// a single-element input is therefore split at entry boundaries, while a
// multi-element input is taken one entry per element. Empty input yields an
// empty string.
func ParseSetCookies(values []string) string {
	var entries []string
	switch len(values) {
	case 0:
		return ""
	case 1:
		entries = splitCoalesced(values[0])
	default:
		entries = values
	}

	pairs := make([]string, 0, len(entries))
	for _, entry := range entries {
		pair := entry
		if idx := strings.IndexByte(pair, ';'); idx >= 0 {
			pair = pair[:idx]
		}
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		pairs = append(pairs, pair)
	}
	return strings.Join(pairs, "; ")
}

func splitCoalesced(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	boundaries := cookieBoundary.FindAllStringIndex(raw, -1)
	if len(boundaries) == 0 {
		return []string{raw}
	}

	parts := make([]string, 0, len(boundaries)+1)
	prev := 0
	for _, loc := range boundaries {
		parts = append(parts, raw[prev:loc[0]])
		// Skip the comma, keep the key= token that follows it.
		prev = loc[0] + 1
	}
	parts = append(parts, raw[prev:])
	return parts
}
