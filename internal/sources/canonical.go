package sources

import (
	"errors"
	"net/url"
	"path"
	"strings"
)

// trackingParams are dropped from article links so the same story shared
// through different feeds maps to one URL.
var trackingParams = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"utm_term":     {},
	"utm_content":  {},
	"utm_id":       {},
	"at_medium":    {},
	"at_campaign":  {},
	"at_link_id":   {},
	"at_ptr_name":  {},
	"gclid":        {},
	"fbclid":       {},
	"ocid":         {},
}

var errNotAbsolute = errors.New("url must be absolute http or https")

// CanonicalURL normalises an absolute http(s) article URL: lowercase scheme and
// host, no default port, no fragment, a clean path and no tracking parameters.
// Remaining query parameters are re-encoded in sorted order.
func CanonicalURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", errNotAbsolute
	}

	host := strings.ToLower(u.Hostname())
	if port := u.Port(); port != "" && !(u.Scheme == "http" && port == "80") && !(u.Scheme == "https" && port == "443") {
		host += ":" + port
	}
	u.Host = host

	trailing := strings.HasSuffix(u.Path, "/")
	p := path.Clean("/" + u.Path)
	if trailing && p != "/" {
		p += "/"
	}
	u.Path = p
	u.RawPath = ""
	u.Fragment = ""

	q := u.Query()
	for k := range q {
		if _, drop := trackingParams[strings.ToLower(k)]; drop {
			q.Del(k)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
