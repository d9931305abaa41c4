package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/taskforge/internal/apperr"
	"github.com/monocle-dev/taskforge/internal/middleware"
	"github.com/monocle-dev/taskforge/internal/types"
)

func newContext(params gin.Params) *gin.Context {
	gin.SetMode(gin.TestMode)
	ctx, _ := gin.CreateTestContext(httptest.NewRecorder())
	ctx.Params = params
	return ctx
}

func TestGetIDParam(t *testing.T) {
	cases := []struct {
		raw     string
		want    uint
		invalid bool
	}{
		{"42", 42, false},
		{"", 0, true},
		{"0", 0, true},
		{"-1", 0, true},
		{"abc", 0, true},
	}

	for _, tc := range cases {
		ctx := newContext(gin.Params{{Key: "project_id", Value: tc.raw}})
		got, err := GetProjectID(ctx)

		if tc.invalid {
			if !apperr.Is(err, apperr.CodeInvalid) {
				t.Fatalf("%q: expected invalid, got %v", tc.raw, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("%q: got (%d, %v)", tc.raw, got, err)
		}
	}
}

func TestGetCurrentUser(t *testing.T) {
	ctx := newContext(nil)

	if _, err := GetCurrentUserID(ctx); !apperr.Is(err, apperr.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}

	ctx.Set(types.ContextUserKey, middleware.AuthenticatedUser{ID: 9})
	id, err := GetCurrentUserID(ctx)
	if err != nil || id != 9 {
		t.Fatalf("got (%d, %v)", id, err)
	}
}
