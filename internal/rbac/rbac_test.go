package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChecker(t *testing.T) {
	c := NewChecker(nil)
	tests := []struct {
		role, perm string
		want       bool
	}{
		{"student", "problem:view", true},
		{"student", "problem:create", false},
		{"student", "submission:view-all", false},
		{"teacher", "problem:create", true},
		{"teacher", "problem:import", true},
		{"teacher", "submission:view-all", true},
		{"admin", "anything:at-all", true},
		{"ghost", "problem:view", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.Has(tt.role, tt.perm), "%s %s", tt.role, tt.perm)
	}
	assert.True(t, c.Any("student", "problem:create", "problem:view"))
	assert.False(t, c.All("student", "problem:create", "problem:view"))
}

func TestRequire(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	h := Require("problem:create")(ok)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req.WithContext(WithRole(context.Background(), "student")))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req.WithContext(WithRole(context.Background(), "teacher")))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	RequireAny("submission:view-own", "submission:view-all")(ok).ServeHTTP(rec, req.WithContext(WithRole(context.Background(), "student")))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code, "no role")
}

func TestCanAndKnown(t *testing.T) {
	ctx := WithRole(context.Background(), "Teacher")
	assert.True(t, Can(ctx, "problem:view-answers"))
	assert.False(t, Can(WithRole(context.Background(), "student"), "problem:view-answers"))
	assert.False(t, Can(context.Background(), "problem:view"))

	c := NewChecker(nil)
	assert.True(t, c.Known("admin"))
	assert.False(t, c.Known("parent"))
	assert.False(t, c.All("admin"), "no permissions asked is not a grant")
}
