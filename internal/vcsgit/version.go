package vcsgit

import (
	"regexp"
	"strconv"

	"golang.org/x/mod/semver"
)

var versionRE = regexp.MustCompile(`(\d+)\.(\d+)(?:\.(\d+))?`)

// AtLeast reports whether versionString (as returned by Client.Version,
// e.g. "git version 2.39.2") is at least major.minor. Used by the
// checkout strategy to decide between the minimal partial-clone path
// and the full clone + checkout fallback required for git < 2.5.
func AtLeast(versionString string, major, minor int) bool {
	m := versionRE.FindStringSubmatch(versionString)
	if m == nil {
		// Can't parse: assume modern git rather than force the
		// expensive fallback path on every invocation.
		return true
	}
	patch := m[3]
	if patch == "" {
		patch = "0"
	}
	got := "v" + m[1] + "." + m[2] + "." + patch
	want := "v" + strconv.Itoa(major) + "." + strconv.Itoa(minor) + ".0"
	return semver.Compare(got, want) >= 0
}
