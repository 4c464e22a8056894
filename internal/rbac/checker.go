package rbac

import (
	"context"
	"strings"
)

// Checker answers whether a role holds a permission under a grant table.
type Checker struct {
	grants map[Role][]string
}

// NewChecker builds a Checker; nil means the default RolePermissions.
func NewChecker(grants map[Role][]string) *Checker {
	if grants == nil {
		grants = RolePermissions
	}
	return &Checker{grants: grants}
}

func (c *Checker) Has(role Role, perm string) bool {
	for _, g := range c.grants[role] {
		if permMatches(g, perm) {
			return true
		}
	}
	return false
}

func (c *Checker) Any(role Role, perms ...string) bool {
	for _, p := range perms {
		if c.Has(role, p) {
			return true
		}
	}
	return false
}

func permMatches(grant, perm string) bool {
	if grant == "*" || grant == perm {
		return true
	}
	if prefix, ok := strings.CutSuffix(grant, "*"); ok {
		return strings.HasPrefix(perm, prefix)
	}
	return false
}

type roleCtxKey struct{}

func WithRole(ctx context.Context, r Role) context.Context {
	return context.WithValue(ctx, roleCtxKey{}, r)
}

func RoleFromContext(ctx context.Context) Role {
	r, _ := ctx.Value(roleCtxKey{}).(Role)
	return r
}
