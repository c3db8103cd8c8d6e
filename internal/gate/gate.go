// Package gate decides, per inbound request, whether to let the request
// through or redirect it. The decision function is pure so it can be tested
// without HTTP plumbing; a thin middleware adapter applies the outcome.
package gate

import (
	"net/url"
	"strings"

	"github.com/redflaghq/redflag-platform/internal/auth"
)

// GuestBootstrapPath provisions an anonymous identity and bounces the user
// back to the URL they originally asked for. It sits under /api/auth on
// purpose: Classify marks it AuthEndpoint, which the gate never redirects.
const GuestBootstrapPath = "/api/auth/guest"

type DecisionKind int

const (
	Allow DecisionKind = iota
	Redirect
)

// Decision is the gate's verdict: pass the request through, or send the
// client to Location instead.
type Decision struct {
	Kind     DecisionKind
	Location string
}

func Allowed() Decision { return Decision{Kind: Allow} }

func RedirectTo(loc string) Decision { return Decision{Kind: Redirect, Location: loc} }

type Gate struct {
	resolver *auth.Resolver
}

func New(resolver *auth.Resolver) *Gate {
	return &Gate{resolver: resolver}
}

// authPages are exact paths where an already-registered account gets bounced
// home while guests may still sign in or register properly.
func isAuthPage(path string) bool {
	return path == "/login" || path == "/register"
}

// Decide maps (request target, credential) to a verdict. target is the path
// with its raw query, so the original destination survives the guest
// bootstrap round-trip. The outcome is deterministic for a fixed pair; an
// unresolvable credential is indistinguishable from no credential at all.
func (g *Gate) Decide(target, credential string) Decision {
	path := target
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}

	// Auth pages are checked against the resolved identity before the
	// generic public allow, otherwise the bounce-home rule would be dead
	// code (/login and /register are also in the public list).
	if isAuthPage(path) {
		if ident := g.resolver.Resolve(credential); ident != nil && !ident.IsGuest() {
			return RedirectTo("/")
		}
		return Allowed()
	}

	switch Classify(path) {
	case Public, AuthEndpoint:
		return Allowed()
	}

	if g.resolver.Resolve(credential) == nil {
		return RedirectTo(GuestBootstrapPath + "?redirectUrl=" + url.QueryEscape(target))
	}
	return Allowed()
}
