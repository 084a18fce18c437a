// Package guard decides, for a session, whether a route renders or where the browser goes instead.
//
// Decisions rely on token.IsExpired, which does not verify signatures: guards only shape
// navigation. Data behind the console is protected by the backend on every request.
package guard

import (
	"sync"

	"github.com/edutracks/console/core/role"
	"github.com/edutracks/console/core/session"
	"github.com/edutracks/console/core/token"
)

// LoginPath is where sessions that are not live are sent.
const LoginPath = "/Account/login"

type Kind int

const (
	// Protected wraps authenticated areas, optionally restricted to one role.
	Protected Kind = iota
	// PublicAuth wraps the login, register and forgot-password pages.
	PublicAuth
	// Root dispatches the root URL and never renders anything itself.
	Root
)

func (k Kind) String() string {
	switch k {
	case Protected:
		return "protected"
	case PublicAuth:
		return "public_auth"
	case Root:
		return "root"
	}
	return "unknown"
}

type State int

const (
	Checking State = iota
	RenderChildren
	RedirectToLogin
	RedirectToRoleHome
)

func (s State) String() string {
	switch s {
	case Checking:
		return "checking"
	case RenderChildren:
		return "render"
	case RedirectToLogin:
		return "redirect_login"
	case RedirectToRoleHome:
		return "redirect_role_home"
	}
	return "unknown"
}

// Decision is the outcome of one evaluation. Target is set for redirects only.
type Decision struct {
	State  State
	Target string
}

func (d Decision) IsRedirect() bool {
	return d.State == RedirectToLogin || d.State == RedirectToRoleHome
}

type Guard struct {
	Kind         Kind
	RequiredRole role.Role // Protected only; "" allows any live session
}

func NewProtected(required ...role.Role) Guard {
	g := Guard{Kind: Protected}
	if len(required) > 0 {
		g.RequiredRole = required[0]
	}
	return g
}

func NewPublicAuth() Guard { return Guard{Kind: PublicAuth} }
func NewRoot() Guard       { return Guard{Kind: Root} }

// IsLive reports whether sess holds a token that has not expired.
func IsLive(sess session.Session) bool {
	return sess.HasToken() && !token.IsExpired(sess.Token)
}

// Evaluate maps a session to a final decision. It never returns Checking.
func (g Guard) Evaluate(sess session.Session) Decision {
	live := IsLive(sess)

	switch g.Kind {
	case PublicAuth:
		if live && sess.Role != "" {
			return Decision{State: RedirectToRoleHome, Target: role.LandingPath(sess.Role)}
		}
		return Decision{State: RenderChildren}
	case Root:
		if !live {
			return Decision{State: RedirectToLogin, Target: LoginPath}
		}
		return Decision{State: RedirectToRoleHome, Target: role.LandingPath(sess.Role)}
	default:
		if !live {
			return Decision{State: RedirectToLogin, Target: LoginPath}
		}
		if g.RequiredRole != "" && sess.Role != g.RequiredRole {
			return Decision{State: RedirectToRoleHome, Target: role.LandingPath(sess.Role)}
		}
		return Decision{State: RenderChildren}
	}
}

// Latch is one mounted guard. Protected and PublicAuth latches start in Checking, which
// only exists so the first paint is a loading placeholder rather than protected content.
// Settle flips the latch once; from then on every State call evaluates the session it is
// given. Root latches have no Checking phase.
type Latch struct {
	guard Guard

	mu      sync.Mutex
	settled bool
}

func (g Guard) Mount() *Latch {
	return &Latch{guard: g}
}

func (l *Latch) Guard() Guard { return l.guard }

// State returns Checking until the latch settles, the evaluation of sess afterwards.
func (l *Latch) State(sess session.Session) Decision {
	if l.guard.Kind != Root {
		l.mu.Lock()
		settled := l.settled
		l.mu.Unlock()
		if !settled {
			return Decision{State: Checking}
		}
	}
	return l.guard.Evaluate(sess)
}

// Settle leaves Checking and evaluates sess. It is idempotent.
func (l *Latch) Settle(sess session.Session) Decision {
	l.mu.Lock()
	l.settled = true
	l.mu.Unlock()
	return l.guard.Evaluate(sess)
}
