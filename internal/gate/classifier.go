package gate

import "strings"

// RouteClass is the coarse category a request path falls into before any
// identity is consulted.
type RouteClass int

const (
	Public RouteClass = iota
	AuthEndpoint
	Protected
)

func (rc RouteClass) String() string {
	switch rc {
	case Public:
		return "public"
	case AuthEndpoint:
		return "auth"
	default:
		return "protected"
	}
}

// publicPrefixes is evaluated in order, first match wins. Keep overlapping
// entries most-specific-first; appending here never changes the outcome for
// paths already matched by an earlier prefix.
var publicPrefixes = []string{
	"/login",
	"/register",
	"/privacy",
	"/terms",
	"/ping",
	"/static/",
	"/favicon.ico",
	"/robots.txt",
	"/sitemap.xml",
}

// authEndpointPrefix is the identity provider's namespace. It is never gated
// so the guest-bootstrap redirect cannot loop.
const authEndpointPrefix = "/api/auth"

// Classify buckets a path by case-sensitive prefix match. Pure.
func Classify(path string) RouteClass {
	for _, p := range publicPrefixes {
		if strings.HasPrefix(path, p) {
			return Public
		}
	}
	if strings.HasPrefix(path, authEndpointPrefix) {
		return AuthEndpoint
	}
	return Protected
}
