package role

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLandingPath(t *testing.T) {
	tests := []struct {
		name string
		role Role
		want string
	}{
		{name: "admin", role: Admin, want: "/Admin/Dashboard"},
		{name: "teacher", role: Teacher, want: "/Teacher/Dashboard"},
		{name: "student", role: Student, want: "/Student/Dashboard"},
		{name: "parent", role: Parent, want: "/Parents/Dashboard"},
		{name: "absent role", role: "", want: "/Parents/Dashboard"},
		{name: "unknown role", role: "Janitor", want: "/Parents/Dashboard"},
		{name: "case matters", role: "admin", want: "/Parents/Dashboard"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LandingPath(tt.role))
		})
	}
}

func TestLandingPathsAreDistinct(t *testing.T) {
	seen := make(map[string]Role, len(All))
	for _, r := range All {
		p := LandingPath(r)
		if other, ok := seen[p]; ok {
			t.Errorf("LandingPath(%s) = %s; already used by %s", r, p, other)
		}
		seen[p] = r
	}
}

func TestParse(t *testing.T) {
	for _, r := range All {
		got, ok := Parse(string(r))
		assert.True(t, ok, r)
		assert.Equal(t, r, got)
	}
	_, ok := Parse("Parents")
	assert.False(t, ok)
	_, ok = Parse("")
	assert.False(t, ok)
}
