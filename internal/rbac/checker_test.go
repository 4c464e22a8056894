package rbac

import (
	"context"
	"testing"
)

func TestDefaultGrants(t *testing.T) {
	c := NewChecker(nil)

	cases := []struct {
		role Role
		perm string
		want bool
	}{
		{RoleStudent, "attempt:create", true},
		{RoleStudent, "attempt:grade", false},
		{RoleStudent, "assessment:author", false},
		{RoleLecturer, "assessment:create", true},
		{RoleLecturer, "attempt:grade", true},
		{RoleDean, "assessment:create", false},
		{RoleDean, "attempt:view-all", true},
		{RoleAdmin, "anything:at_all", true},
		{Role("visitor"), "assessment:view", false},
		{Role(""), "assessment:view", false},
	}
	for _, tc := range cases {
		if got := c.Has(tc.role, tc.perm); got != tc.want {
			t.Fatalf("Has(%q, %q) = %v, want %v", tc.role, tc.perm, got, tc.want)
		}
	}
}

func TestWildcardGrants(t *testing.T) {
	c := NewChecker(map[Role][]string{
		"auditor": {"grade:*"},
	})
	if !c.Has("auditor", "grade:view-all") {
		t.Fatalf("prefix wildcard should match")
	}
	if c.Has("auditor", "attempt:view-all") {
		t.Fatalf("wildcard must stay within its prefix")
	}
}

func TestAny(t *testing.T) {
	c := NewChecker(nil)
	if !c.Any(RoleStudent, "attempt:view-own", "attempt:view-all") {
		t.Fatalf("student holds view-own")
	}
	if c.Any(RoleStudent, "attempt:view-all", "grade:view-all") {
		t.Fatalf("student holds neither staff grant")
	}
}

func TestRoleContextRoundTrip(t *testing.T) {
	ctx := WithRole(context.Background(), RoleLecturer)
	if got := RoleFromContext(ctx); got != RoleLecturer {
		t.Fatalf("role = %q, want lecturer", got)
	}
	if got := RoleFromContext(context.Background()); got != "" {
		t.Fatalf("bare context role = %q, want empty", got)
	}
}
