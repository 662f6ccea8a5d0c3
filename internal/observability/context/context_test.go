package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestAndUserRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), " req-1 ")
	ctx = WithUser(ctx, "u-9", "dealer")

	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	userID, role := UserFromContext(ctx)
	assert.Equal(t, "u-9", userID)
	assert.Equal(t, "dealer", role)

	userID, role = UserFromContext(context.Background())
	assert.Empty(t, userID)
	assert.Empty(t, role)
}
