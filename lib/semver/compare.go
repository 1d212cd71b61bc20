// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package semver

// Sign is the result of comparing one version component.
type Sign int

const (
	Older Sign = -1
	Same  Sign = 0
	Newer Sign = 1
)

func (s Sign) String() string {
	switch s {
	case Older:
		return "older"
	case Same:
		return "same"
	case Newer:
		return "newer"
	default:
		return "invalid"
	}
}

// Diff holds the per-component comparison of two versions. Components
// are compared independently: a Diff of {Same, Older, Newer} is
// possible and means only that the minor of a is lower and the patch
// of a is higher.
type Diff struct {
	Major Sign
	Minor Sign
	Patch Sign
}

// Compare reports how a relates to b for each of major, minor and
// patch. Pre-release and build metadata are ignored.
func Compare(a, b Version) Diff {
	return Diff{
		Major: sign(a.Major, b.Major),
		Minor: sign(a.Minor, b.Minor),
		Patch: sign(a.Patch, b.Patch),
	}
}

func sign(a, b uint64) Sign {
	switch {
	case a < b:
		return Older
	case a > b:
		return Newer
	default:
		return Same
	}
}
