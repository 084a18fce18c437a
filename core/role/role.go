// Package role holds the console roles and the landing page each one is sent to.
package role

// Role is one of the closed set of console roles. The zero value means "no role".
type Role string

// Roles
const (
	Admin   Role = "Admin"
	Teacher Role = "Teacher"
	Student Role = "Student"
	Parent  Role = "Parent"
)

// FallbackRole is the role whose landing page is used for unknown or absent roles.
// Changing it here changes where every unrecognised session lands.
const FallbackRole = Parent

var (
	All = []Role{Admin, Teacher, Student, Parent}

	prefixes = map[Role]string{
		Admin:   "/Admin",
		Teacher: "/Teacher",
		Student: "/Student",
		Parent:  "/Parents",
	}
)

// Parse returns the Role named by s. The match is exact, as stored by the sign-in flow.
func Parse(s string) (Role, bool) {
	r := Role(s)
	return r, r.Valid()
}

func (r Role) Valid() bool {
	_, ok := prefixes[r]
	return ok
}

func (r Role) String() string { return string(r) }

// Prefix returns the path of the route subtree owned by r, or "" for an unknown role.
func (r Role) Prefix() string {
	return prefixes[r]
}

// LandingPath returns the default route of r. It never fails: unknown and absent roles
// get the landing path of FallbackRole.
func LandingPath(r Role) string {
	prefix, ok := prefixes[r]
	if !ok {
		prefix = prefixes[FallbackRole]
	}
	return prefix + "/Dashboard"
}
