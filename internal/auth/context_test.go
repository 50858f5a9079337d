package auth

import (
	"context"
	"testing"

	"github.com/numberadder/numberadder/internal/model"
)

func TestPrincipalContext(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if PrincipalFromContext(ctx) != nil {
		t.Error("empty context should carry no principal")
	}
	if _, ok := UserIDFromContext(ctx); ok {
		t.Error("empty context should carry no user id")
	}

	ctx = ContextWithPrincipal(ctx, &model.AuthContext{UserID: 9, Method: model.MethodBearer})
	id, ok := UserIDFromContext(ctx)
	if !ok || id != 9 {
		t.Errorf("UserIDFromContext() = %d, %v; want 9, true", id, ok)
	}
	if PrincipalFromContext(ctx).Method != model.MethodBearer {
		t.Error("method not preserved")
	}
}
