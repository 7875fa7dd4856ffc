package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a document version number in "major.minor" form.
type Version struct {
	Major int
	Minor int
}

// InitialVersion is the version assigned to newly created documents.
var InitialVersion = Version{Major: 1, Minor: 0}

// ParseVersion parses a "major.minor" version string.
func ParseVersion(s string) (Version, error) {
	parts := strings.SplitN(s, ".", 2)
	if len(parts) != 2 {
		return Version{}, fmt.Errorf("invalid version format: %q", s)
	}

	major, err := strconv.Atoi(parts[0])
	if err != nil || major < 0 {
		return Version{}, fmt.Errorf("invalid major version in %q", s)
	}
	minor, err := strconv.Atoi(parts[1])
	if err != nil || minor < 0 {
		return Version{}, fmt.Errorf("invalid minor version in %q", s)
	}

	return Version{Major: major, Minor: minor}, nil
}

// String returns the "major.minor" representation.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// BumpMinor returns the version with the minor component incremented.
func (v Version) BumpMinor() Version {
	return Version{Major: v.Major, Minor: v.Minor + 1}
}

// BumpMajor returns the version with the major component incremented
// and the minor component reset to zero.
func (v Version) BumpMajor() Version {
	return Version{Major: v.Major + 1, Minor: 0}
}
