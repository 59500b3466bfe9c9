package stages

import "strings"

// normalizeText lowercases s, strips everything but letters and digits, and
// collapses the result to single spaces at token boundaries. Used to build
// content hashes and similarity keys that are insensitive to punctuation and
// casing differences between providers.
func normalizeText(s string) string {
	var b strings.Builder
	lastWasSpace := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastWasSpace = false
		default:
			if !lastWasSpace {
				b.WriteByte(' ')
				lastWasSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// tokens splits normalized text on whitespace.
func tokens(s string) []string {
	norm := normalizeText(s)
	if norm == "" {
		return nil
	}
	return strings.Fields(norm)
}

// cityOf returns the last comma-separated segment of a location string,
// normalized. Empty input yields an empty city.
func cityOf(locationText string) string {
	if locationText == "" {
		return ""
	}
	parts := strings.Split(locationText, ",")
	last := parts[len(parts)-1]
	return normalizeText(last)
}
