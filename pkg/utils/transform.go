package utils

import (
	"strconv"
	"strings"
)

// Dedup trims trailing slashes and drops repeated endpoints, keeping order.
func Dedup(in []string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, e := range in {
		e = strings.TrimRight(e, "/")
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

// PadHeight renders a height as a fixed-width decimal so that lexicographic
// order matches numeric order.
func PadHeight(height int64) string {
	s := strconv.FormatInt(height, 10)
	if len(s) >= heightWidth {
		return s
	}
	return strings.Repeat("0", heightWidth-len(s)) + s
}

const heightWidth = 20
