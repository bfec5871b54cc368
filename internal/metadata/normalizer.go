package metadata

import (
	"regexp"
	"strings"
)

var spaceRun = regexp.MustCompile(`\s+`)

// Leading four-digit year of a date tag such as "2008-11-26" or "2008".
var yearPrefix = regexp.MustCompile(`^\s*(\d{4})`)

// cleanTag trims a tag value and collapses runs of whitespace, so values
// read from files and from the backend compare and render the same way.
func cleanTag(s string) string {
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}

// yearOf extracts the year from a date tag. Values without a leading year
// are returned cleaned but otherwise unchanged.
func yearOf(date string) string {
	if m := yearPrefix.FindStringSubmatch(date); m != nil {
		return m[1]
	}
	return cleanTag(date)
}

// firstTag returns the first non-empty value stored under key.
func firstTag(tags map[string][]string, key string) string {
	for _, v := range tags[key] {
		if v = cleanTag(v); v != "" {
			return v
		}
	}
	return ""
}

// joinTag joins multi-valued tags (several artists or genres) for display.
func joinTag(tags map[string][]string, key string) string {
	var vals []string
	for _, v := range tags[key] {
		if v = cleanTag(v); v != "" {
			vals = append(vals, v)
		}
	}
	return strings.Join(vals, ", ")
}
