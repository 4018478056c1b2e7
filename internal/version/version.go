// Package version models the project version. Versions are parsed once and
// compared structurally, never as raw strings.
package version

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// Default is the version used when neither the command line nor the project
// file names one.
const Default = "1.0.0-SNAPSHOT"

// Version is an immutable, comparable project version. The zero value is not
// a valid version; use Parse.
type Version struct {
	raw       string
	canonical string
}

// Parse accepts "1", "1.2", "1.2.3" and "1.2.3-pre", with or without a
// leading "v". The text is kept verbatim for archive names.
func Parse(s string) (Version, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(s), "v")
	if raw == "" {
		return Version{}, fmt.Errorf("invalid version %q: empty", s)
	}
	v := "v" + raw
	if !semver.IsValid(v) {
		return Version{}, fmt.Errorf("invalid version %q", s)
	}
	return Version{raw: raw, canonical: semver.Canonical(v)}, nil
}

// MustParse is like Parse but panics on malformed input. Intended for
// constants and tests.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the version as it was written, minus any leading "v".
func (v Version) String() string {
	return v.raw
}

// IsZero reports whether v is the zero value.
func (v Version) IsZero() bool {
	return v.canonical == ""
}

// Compare returns -1, 0 or +1 following semantic version precedence.
func (v Version) Compare(other Version) int {
	return semver.Compare(v.canonical, other.canonical)
}

// Major returns the major component.
func (v Version) Major() int {
	n, _ := strconv.Atoi(strings.TrimPrefix(semver.Major(v.canonical), "v"))
	return n
}

// Prerelease returns the pre-release suffix including its leading hyphen, or
// the empty string.
func (v Version) Prerelease() string {
	return semver.Prerelease(v.canonical)
}
