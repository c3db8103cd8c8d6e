package gate

import (
	"net/url"
	"testing"
	"time"

	"github.com/redflaghq/redflag-platform/internal/auth"
)

const testSecret = "test-secret"

func signedToken(t *testing.T, userID uint64, email string, ttl time.Duration) string {
	t.Helper()
	tok, err := auth.SignJWT(userID, email, testSecret, ttl)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

func newTestGate() *Gate {
	return New(auth.NewResolver(testSecret))
}

func TestDecide_PublicPathsAlwaysAllowed(t *testing.T) {
	g := newTestGate()

	paths := []string{"/privacy", "/terms", "/ping", "/static/app.css", "/favicon.ico"}
	credentials := map[string]string{
		"no credential":      "",
		"garbage credential": "not-a-jwt",
		"expired credential": signedToken(t, 1, "alice@example.com", -time.Hour),
		"valid registered":   signedToken(t, 1, "alice@example.com", time.Hour),
		"valid guest":        signedToken(t, 2, "guest-123456789012", time.Hour),
	}

	for name, cred := range credentials {
		for _, p := range paths {
			if d := g.Decide(p, cred); d.Kind != Allow {
				t.Fatalf("%s: expected allow for %s, got redirect to %q", name, p, d.Location)
			}
		}
	}
}

func TestDecide_ProtectedWithoutIdentityRedirectsToGuestBootstrap(t *testing.T) {
	g := newTestGate()

	d := g.Decide("/chat/42", "")
	if d.Kind != Redirect {
		t.Fatalf("expected redirect, got allow")
	}
	loc, err := url.Parse(d.Location)
	if err != nil {
		t.Fatalf("parse location: %v", err)
	}
	if loc.Path != GuestBootstrapPath {
		t.Fatalf("expected redirect to %s, got %s", GuestBootstrapPath, loc.Path)
	}
	if got := loc.Query().Get("redirectUrl"); got != "/chat/42" {
		t.Fatalf("expected redirectUrl=/chat/42, got %q", got)
	}
}

func TestDecide_RedirectPreservesQuery(t *testing.T) {
	g := newTestGate()

	d := g.Decide("/conversations?category=dating", "")
	if d.Kind != Redirect {
		t.Fatalf("expected redirect, got allow")
	}
	loc, _ := url.Parse(d.Location)
	if got := loc.Query().Get("redirectUrl"); got != "/conversations?category=dating" {
		t.Fatalf("original target not preserved, got %q", got)
	}
}

func TestDecide_InvalidCredentialTreatedAsAnonymous(t *testing.T) {
	g := newTestGate()

	for _, cred := range []string{"garbage", signedToken(t, 1, "alice@example.com", -time.Hour)} {
		d := g.Decide("/chat/1", cred)
		if d.Kind != Redirect {
			t.Fatalf("expected redirect for credential %q", cred)
		}
	}
}

func TestDecide_RegisteredUserBouncedFromAuthPages(t *testing.T) {
	g := newTestGate()
	tok := signedToken(t, 1, "alice@example.com", time.Hour)

	for _, p := range []string{"/login", "/register"} {
		d := g.Decide(p, tok)
		if d.Kind != Redirect || d.Location != "/" {
			t.Fatalf("expected redirect to / for %s, got kind=%d loc=%q", p, d.Kind, d.Location)
		}
	}
}

func TestDecide_GuestAllowedOnAuthPages(t *testing.T) {
	g := newTestGate()
	tok := signedToken(t, 2, "guest-123456789012", time.Hour)

	for _, p := range []string{"/login", "/register"} {
		if d := g.Decide(p, tok); d.Kind != Allow {
			t.Fatalf("expected allow for guest on %s, got redirect to %q", p, d.Location)
		}
	}
}

func TestDecide_AnonymousAllowedOnAuthPages(t *testing.T) {
	g := newTestGate()

	for _, p := range []string{"/login", "/register"} {
		if d := g.Decide(p, ""); d.Kind != Allow {
			t.Fatalf("expected allow for anonymous on %s, got redirect to %q", p, d.Location)
		}
	}
}

func TestDecide_GuestBootstrapNeverRedirected(t *testing.T) {
	g := newTestGate()

	// the exact scenario that would loop if the bootstrap endpoint were gated
	target := "/api/auth/guest?redirectUrl=%2Fchat%2F42"
	if d := g.Decide(target, ""); d.Kind != Allow {
		t.Fatalf("guest bootstrap must never be gated, got redirect to %q", d.Location)
	}
}

func TestDecide_ProtectedWithIdentityAllowed(t *testing.T) {
	g := newTestGate()

	for name, cred := range map[string]string{
		"registered": signedToken(t, 1, "alice@example.com", time.Hour),
		"guest":      signedToken(t, 2, "guest-123456789012", time.Hour),
	} {
		if d := g.Decide("/chat/42", cred); d.Kind != Allow {
			t.Fatalf("%s: expected allow, got redirect to %q", name, d.Location)
		}
	}
}

func TestDecide_Deterministic(t *testing.T) {
	g := newTestGate()
	tok := signedToken(t, 1, "alice@example.com", time.Hour)

	first := g.Decide("/chat/42", tok)
	for i := 0; i < 10; i++ {
		if got := g.Decide("/chat/42", tok); got != first {
			t.Fatalf("decision changed between calls: %+v vs %+v", first, got)
		}
	}
}
