// Package version compares release versions and checks GitHub for newer pymusic releases.
package version

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/exp/slices"
)

// release is a parsed tag such as v1.2.3 or 1.3.0-rc.1.
type release struct {
	core       [3]int
	prerelease string
}

func parseRelease(tag string) (release, error) {
	var r release

	s := strings.TrimPrefix(strings.TrimSpace(tag), "v")
	s, _, _ = strings.Cut(s, "+")
	s, r.prerelease, _ = strings.Cut(s, "-")

	parts := strings.Split(s, ".")
	if len(parts) > len(r.core) {
		return release{}, fmt.Errorf("malformed version %q", tag)
	}
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return release{}, fmt.Errorf("malformed version %q", tag)
		}
		r.core[i] = n
	}
	return r, nil
}

// Newer reports whether latest is a later release than current.
// A pre-release ranks below the release it leads up to.
func Newer(latest, current string) (bool, error) {
	l, err := parseRelease(latest)
	if err != nil {
		return false, err
	}
	c, err := parseRelease(current)
	if err != nil {
		return false, err
	}

	if cmp := slices.Compare(l.core[:], c.core[:]); cmp != 0 {
		return cmp > 0, nil
	}
	return l.prerelease == "" && c.prerelease != "", nil
}
