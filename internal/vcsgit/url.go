package vcsgit

import (
	"fmt"
	"regexp"

	"github.com/r3store/r3/internal/rerr"
)

// urlPatterns maps a remote URL form to (host, user, repo). Extending
// the recognizer to another host is a matter of adding a pattern here;
// the function stays pure and is exercised purely by CachePath's tests.
var urlPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^https://github\.com/([^/]+)/([^/]+?)(\.git)?/?$`),
	regexp.MustCompile(`^git@github\.com:([^/]+)/([^/]+?)(\.git)?/?$`),
}

// CachePath returns the canonical on-disk location, relative to the
// repository root's git/ directory, for the bare clone of remote:
// git/<host>/<user>/<repo>. Only github.com URLs (https and the SSH
// shorthand) are recognized at spec time.
func CachePath(remote string) (string, error) {
	for _, re := range urlPatterns {
		m := re.FindStringSubmatch(remote)
		if m == nil {
			continue
		}
		return fmt.Sprintf("github.com/%s/%s", m[1], m[2]), nil
	}
	return "", rerr.Newf(rerr.Invalid, "unrecognized git remote URL: %s", remote)
}
