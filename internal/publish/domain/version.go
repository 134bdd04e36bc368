package domain

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// CompareVersions orders two chart version strings by precedence and
// returns -1, 0 or +1.
//
// Both valid semver: semantic comparison ("2.10.0" > "2.9.0").
// Neither valid: plain string comparison.
// Mixed: the valid semantic version is the newer one.
func CompareVersions(a, b string) int {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)

	switch {
	case errA == nil && errB == nil:
		return va.Compare(vb)
	case errA != nil && errB != nil:
		return strings.Compare(a, b)
	case errA == nil:
		return 1
	default:
		return -1
	}
}
