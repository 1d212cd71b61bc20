// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package semver

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/bureau-foundation/webeid/lib/eiderr"
)

// pattern is the semver.org 2.0.0 grammar. Submatches: major, minor,
// patch, pre-release, build.
var pattern = regexp.MustCompile(`^(0|[1-9]\d*)\.(0|[1-9]\d*)\.(0|[1-9]\d*)` +
	`(?:-((?:0|[1-9]\d*|\d*[a-zA-Z-][0-9a-zA-Z-]*)(?:\.(?:0|[1-9]\d*|\d*[a-zA-Z-][0-9a-zA-Z-]*))*))?` +
	`(?:\+([0-9a-zA-Z-]+(?:\.[0-9a-zA-Z-]+)*))?$`)

// Version is a parsed semantic version.
type Version struct {
	Major uint64
	Minor uint64
	Patch uint64

	// PreRelease is the dot-separated identifier after "-", without
	// the dash. Empty when absent.
	PreRelease string

	// Build is the metadata after "+", without the plus. Empty when
	// absent.
	Build string

	// Original is the string Parse was called with.
	Original string
}

func (v Version) String() string {
	return v.Original
}

// Parse parses s. The returned error is an *eiderr.Error with code
// ERR_WEBEID_VERSION_INVALID.
func Parse(s string) (Version, error) {
	match := pattern.FindStringSubmatch(s)
	if match == nil {
		return Version{}, invalid(s)
	}

	var numbers [3]uint64
	for i := range numbers {
		// The grammar guarantees digits; ParseUint only fails on
		// overflow.
		n, err := strconv.ParseUint(match[i+1], 10, 64)
		if err != nil {
			return Version{}, invalid(s)
		}
		numbers[i] = n
	}

	return Version{
		Major:      numbers[0],
		Minor:      numbers[1],
		Patch:      numbers[2],
		PreRelease: match[4],
		Build:      match[5],
		Original:   s,
	}, nil
}

// MustParse is Parse for compile-time constants. Panics on error.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

func invalid(s string) error {
	return eiderr.New(eiderr.CodeVersionInvalid, fmt.Sprintf("invalid SemVer string %q", s))
}
