// Package flavor maps raw platform identifiers onto the canonical
// platform names the generators and condition expressions work with.
package flavor

import "strings"

// Canonical flavors. Resolve may return other values: an explicit
// override is passed through verbatim, and unknown platforms resolve
// to themselves.
const (
	Linux   = "linux"
	FreeBSD = "freebsd"
	OpenBSD = "openbsd"
	Solaris = "solaris"
	Mac     = "mac"
	Windows = "windows"
	Android = "android"
)

// prefixFlavors maps platform identifier prefixes to flavors. Versioned
// identifiers like "freebsd10" or "linux2" collapse onto one flavor;
// identifiers that miss the table are already canonical.
var prefixFlavors = []struct {
	prefix string
	flavor string
}{
	{"freebsd", FreeBSD},
	{"openbsd", OpenBSD},
	{"sunos", Solaris},
	{"linux", Linux},
}

// Resolve returns the flavor for a raw platform identifier. A non-empty
// override wins unconditionally and is not validated, so callers can
// introduce flavors this package does not know about.
func Resolve(platform, override string) string {
	if override != "" {
		return override
	}
	for _, e := range prefixFlavors {
		if strings.HasPrefix(platform, e.prefix) {
			return e.flavor
		}
	}
	return platform
}
