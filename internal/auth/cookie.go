// Cookie transport policy for identity tokens.
//
// The policy is built once from configuration and produces the exact
// attribute set for both setting and clearing the cookie. Browsers silently
// ignore a clear whose attributes (Path, Domain, Secure, SameSite) do not
// match the original set, so Clear reuses the same attribute builder with an
// expired Max-Age instead of constructing a second, slightly different
// cookie. Getting this wrong does not error anywhere; logout just stops
// working. The policy therefore owns both halves.
package auth

import (
	"net/http"
	"time"
)

// CookiePolicy decides how identity tokens travel as cookies.
//
// HttpOnly is not configurable: the token must never be readable from page
// scripts. Secure tracks the deployment mode and SameSite=None is only legal
// when Secure is set (config validation enforces the pairing before a policy
// is ever constructed).
type CookiePolicy struct {
	Name     string
	Domain   string        // optional host scoping; empty means host-only
	Secure   bool          // true in production-like deployments
	SameSite http.SameSite // strict for same-site UIs, none for cross-site
	MaxAge   time.Duration // matches the token TTL
}

// ParseSameSite maps the config string to the net/http constant.
// Unknown values fall back to strict, the most conservative mode.
func ParseSameSite(s string) http.SameSite {
	switch s {
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteStrictMode
	}
}

// cookie builds the cookie with the policy's full attribute set. Set and
// Clear differ only in value and Max-Age so the attribute sets always match.
func (p CookiePolicy) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     p.Name,
		Value:    value,
		Path:     "/",
		Domain:   p.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: p.SameSite,
	}
}

// Set writes the identity cookie carrying token.
func (p CookiePolicy) Set(w http.ResponseWriter, token string) {
	http.SetCookie(w, p.cookie(token, int(p.MaxAge.Seconds())))
}

// Clear expires the identity cookie using the same attribute set it was set
// with. It does not (and cannot) invalidate the token itself.
func (p CookiePolicy) Clear(w http.ResponseWriter) {
	http.SetCookie(w, p.cookie("", -1))
}
