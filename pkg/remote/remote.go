// Package remote checks URLs before the server fetches them or hands them
// to a third-party backend.
package remote

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ErrPrivateURL reports a URL that is not a public HTTP(S) address.
var ErrPrivateURL = errors.New("url is not publicly reachable")

// CheckPublic rejects data URIs, non-HTTP schemes, and loopback, private,
// link-local, or unspecified hosts.
func CheckPublic(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPrivateURL, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q", ErrPrivateURL, u.Scheme)
	}

	host := u.Hostname()
	if host == "" || strings.EqualFold(host, "localhost") || strings.HasSuffix(strings.ToLower(host), ".localhost") {
		return fmt.Errorf("%w: host %q", ErrPrivateURL, host)
	}

	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
			return fmt.Errorf("%w: host %s", ErrPrivateURL, host)
		}
	}

	return nil
}
