// Package nav declares the console's route hierarchy and the guard that wraps each branch.
package nav

import (
	"path"
	"strings"

	"github.com/edutracks/console/core/guard"
	"github.com/edutracks/console/core/role"
)

// Page names the view a route renders.
type Page string

const (
	NoPage    Page = ""
	Login     Page = "login"
	Register  Page = "register"
	Forgot    Page = "forgot"
	Dashboard Page = "dashboard"
	List      Page = "list" // CRUD screen placeholder
	Profile   Page = "profile"
	Reset     Page = "reset"
)

// Node is one route. A nil Guard inherits the guard of the closest ancestor.
// CatchAll branches own every path below them: paths without a page render the not-found
// view once their guard lets them through.
type Node struct {
	Path     string
	Title    string
	Page     Page
	Guard    *guard.Guard
	CatchAll bool
	Children []*Node
}

// Route is the result of matching a request path.
type Route struct {
	Node  *Node // nil when the path has no page
	Area  *Node // top-level branch the path belongs to
	Guard guard.Guard
}

func (r Route) Found() bool { return r.Node != nil }

var tree = build()

// Tree returns the top-level routes in declaration order. The tree is shared and must not
// be modified.
func Tree() []*Node {
	return tree
}

func build() []*Node {
	g := func(gd guard.Guard) *guard.Guard { return &gd }

	areas := []*Node{
		{Path: "/", Title: "Home", Guard: g(guard.NewRoot())},
		{
			Path:  "/Account",
			Guard: g(guard.NewPublicAuth()),
			Children: []*Node{
				{Path: "/Account/login", Title: "Sign in", Page: Login},
				{Path: "/Account/register", Title: "Create an account", Page: Register},
				{Path: "/Account/forgot", Title: "Forgot password", Page: Forgot},
				{Path: "/Account/reset", Title: "Choose a new password", Page: Reset},
			},
		},
		roleArea(role.Admin, "Students", "Teachers", "Classes", "Courses", "Buses", "Schedules"),
		roleArea(role.Teacher, "Classes", "Courses", "Schedules", "Students"),
		roleArea(role.Student, "Courses", "Schedules", "Bus"),
		roleArea(role.Parent, "Children", "Schedules", "Bus"),
		{
			Path:     "/",
			Guard:    g(guard.NewProtected()),
			CatchAll: true,
			Children: []*Node{
				{Path: "/Profile", Title: "Profile", Page: Profile},
			},
		},
	}
	return areas
}

func roleArea(r role.Role, pages ...string) *Node {
	gd := guard.NewProtected(r)
	n := &Node{
		Path:     r.Prefix(),
		Title:    r.String(),
		Guard:    &gd,
		CatchAll: true,
		Children: []*Node{{Path: role.LandingPath(r), Title: "Dashboard", Page: Dashboard}},
	}
	for _, p := range pages {
		n.Children = append(n.Children, &Node{Path: n.Path + "/" + p, Title: p, Page: List})
	}
	return n
}

// Area returns the branch owned by r, or nil for an unknown role.
func Area(r role.Role) *Node {
	prefix := r.Prefix()
	if prefix == "" {
		return nil
	}
	for _, n := range tree {
		if n.Path == prefix {
			return n
		}
	}
	return nil
}

// Walk calls fn for every node, depth first, with the guard in effect at that node.
func Walk(fn func(n *Node, g guard.Guard)) {
	for _, n := range tree {
		walk(n, *n.Guard, fn)
	}
}

func walk(n *Node, inherited guard.Guard, fn func(*Node, guard.Guard)) {
	g := inherited
	if n.Guard != nil {
		g = *n.Guard
	}
	fn(n, g)
	for _, c := range n.Children {
		walk(c, g, fn)
	}
}

// Match resolves a request path. Exact pages win; otherwise the path falls to the deepest
// catch-all branch containing it, whose guard runs before the not-found view.
func Match(p string) Route {
	p = clean(p)

	var exact, area Route
	var found bool
	areaLen := -1
	for _, top := range tree {
		curArea := top
		walk(top, *top.Guard, func(n *Node, g guard.Guard) {
			if found {
				return
			}
			if n.Path == p && (n.Page != NoPage || n.Guard != nil && n.Guard.Kind == guard.Root) {
				exact, found = Route{Node: n, Area: curArea, Guard: g}, true
				return
			}
			if n.CatchAll && within(p, n.Path) && len(n.Path) > areaLen {
				area, areaLen = Route{Area: n, Guard: g}, len(n.Path)
			}
		})
		if found {
			return exact
		}
	}
	return area
}

func within(p, prefix string) bool {
	if prefix == "/" {
		return true
	}
	return p == prefix || strings.HasPrefix(p, prefix+"/")
}

func clean(p string) string {
	if p == "" {
		return "/"
	}
	return path.Clean("/" + p)
}
