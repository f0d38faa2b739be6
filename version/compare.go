package version

import (
	"strconv"
	"strings"

	"github.com/melodeck/melodeck/fault"
)

type semver struct {
	parts      [3]int
	prerelease string
}

func parseSemver(s string) (semver, error) {
	var v semver

	core := strings.TrimPrefix(strings.TrimSpace(s), "v")
	core, v.prerelease, _ = strings.Cut(core, "-")
	core, _, _ = strings.Cut(core, "+")

	fields := strings.Split(core, ".")
	if len(fields) != 3 {
		return v, fault.Newf(fault.ValidationError, "version.compare", "%q is not a semantic version", s)
	}

	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 {
			return v, fault.Newf(fault.ValidationError, "version.compare", "%q is not a semantic version", s)
		}
		v.parts[i] = n
	}

	return v, nil
}

// Compare orders two semantic versions, returning 1 if a > b, -1 if a < b and 0 if equal.
// A pre-release sorts before the release it precedes. Build metadata is ignored.
func Compare(a, b string) (int, error) {
	av, err := parseSemver(a)
	if err != nil {
		return 0, err
	}

	bv, err := parseSemver(b)
	if err != nil {
		return 0, err
	}

	for i := range av.parts {
		switch {
		case av.parts[i] > bv.parts[i]:
			return 1, nil
		case av.parts[i] < bv.parts[i]:
			return -1, nil
		}
	}

	switch {
	case av.prerelease == bv.prerelease:
		return 0, nil
	case av.prerelease == "":
		return 1, nil
	case bv.prerelease == "":
		return -1, nil
	default:
		return strings.Compare(av.prerelease, bv.prerelease), nil
	}
}
