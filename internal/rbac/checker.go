package rbac

import (
	"context"
	"strings"
)

// Checker answers permission questions for a role table. A grant ending in
// "*" covers every permission with that prefix; a bare "*" covers all.
type Checker struct {
	grants map[string][]string
}

func NewChecker(rp map[string][]string) *Checker {
	if rp == nil {
		rp = RolePermissions
	}
	grants := make(map[string][]string, len(rp))
	for role, perms := range rp {
		grants[strings.ToLower(role)] = append([]string(nil), perms...)
	}
	return &Checker{grants: grants}
}

func (c *Checker) Has(role, perm string) bool {
	for _, g := range c.grants[strings.ToLower(role)] {
		if g == perm || g == "*" || (strings.HasSuffix(g, "*") && strings.HasPrefix(perm, strings.TrimSuffix(g, "*"))) {
			return true
		}
	}
	return false
}

func (c *Checker) Any(role string, perms ...string) bool {
	for _, p := range perms {
		if c.Has(role, p) {
			return true
		}
	}
	return false
}

func (c *Checker) All(role string, perms ...string) bool {
	for _, p := range perms {
		if !c.Has(role, p) {
			return false
		}
	}
	return len(perms) > 0
}

// Known reports whether the role appears in the table.
func (c *Checker) Known(role string) bool {
	_, ok := c.grants[strings.ToLower(role)]
	return ok
}

// Can checks perm against the role stored on ctx by the auth middleware.
func Can(ctx context.Context, perm string) bool {
	return defaultChecker.Has(RoleFromContext(ctx), perm)
}

type ctxKey struct{}

func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, ctxKey{}, role)
}

func RoleFromContext(ctx context.Context) string {
	s, _ := ctx.Value(ctxKey{}).(string)
	return s
}
