// Package routes decides which view a navigation may reach based on whether a session token is present.
//
// The decision never contacts the server. An expired but present token is allowed through and
// corrected on the first 401 by the gateway's response interceptor.
package routes

import (
	"net/url"
	"strings"
	"sync"
)

const (
	RootPath      = "/"
	LoginPath     = "/auth/login"
	RegisterPath  = "/auth/register"
	DashboardPath = "/dashboard"
	PlaylistPath  = "/playlist"
	SongsPath     = "/songs"
)

// Protected lists the prefixes that require a token.
var Protected = []string{DashboardPath, PlaylistPath, SongsPath}

// Public lists the auth-only prefixes a signed-in user is sent away from.
var Public = []string{LoginPath, RegisterPath}

// Action is the outcome of a guard check.
type Action int

const (
	Allow Action = iota
	RedirectLogin
	RedirectDashboard
)

func (a Action) String() string {
	switch a {
	case RedirectLogin:
		return "redirect-login"
	case RedirectDashboard:
		return "redirect-dashboard"
	default:
		return "allow"
	}
}

// Decision carries the action and, for redirects, where to go.
type Decision struct {
	Action   Action
	Location string
}

func matches(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// LoginLocation builds the login path recording from as the return target.
func LoginLocation(from string) string {
	if from == "" {
		return LoginPath
	}
	return LoginPath + "?redirect=" + strings.ReplaceAll(url.QueryEscape(from), "%2F", "/")
}

// Decide applies the guard rules in order: protected without token, auth page with token, root, otherwise allow.
func Decide(path string, hasToken bool) Decision {
	switch {
	case matches(path, Protected) && !hasToken:
		return Decision{Action: RedirectLogin, Location: LoginLocation(path)}
	case matches(path, Public) && hasToken:
		return Decision{Action: RedirectDashboard, Location: DashboardPath}
	case path == RootPath && hasToken:
		return Decision{Action: RedirectDashboard, Location: DashboardPath}
	case path == RootPath:
		return Decision{Action: RedirectLogin, Location: LoginPath}
	}
	return Decision{Action: Allow, Location: path}
}

// ReturnTarget extracts the redirect parameter recorded by [LoginLocation], falling back to the dashboard.
//
// Only local protected paths are honoured.
func ReturnTarget(query url.Values) string {
	target := query.Get("redirect")
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || !matches(target, Protected) {
		return DashboardPath
	}
	return target
}

// Relay is a navigator whose destination is installed by the active front-end.
//
// Until a destination is set, navigations are remembered and the latest can be read with [Relay.Last].
type Relay struct {
	mu   sync.Mutex
	to   func(path string)
	last string
}

// Set installs the navigation target.
func (r *Relay) Set(fn func(path string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.to = fn
}

// Navigate forwards path to the installed target.
func (r *Relay) Navigate(path string) {
	r.mu.Lock()
	r.last = path
	fn := r.to
	r.mu.Unlock()

	if fn != nil {
		fn(path)
	}
}

// Last returns the most recent navigation, or "" if none happened.
func (r *Relay) Last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}
