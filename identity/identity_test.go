package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/logger"
	"storefront/models"
)

type fakeSessions struct {
	userId string
	role   models.Role
	err    error
}

func (f fakeSessions) GetUserSessionInfo(_ context.Context, sessionId string) (string, models.Role, bool, error) {
	if f.err != nil {
		return "", "", false, f.err
	}
	if sessionId != "good" {
		return "", "", false, nil
	}
	return f.userId, f.role, true, nil
}

func TestNew_EmptyIdIsAnonymous(t *testing.T) {
	id := New("", models.RoleAdmin)
	assert.False(t, id.Authenticated())
	assert.False(t, id.IsAdmin())
}

func TestNew_UnknownRoleFallsBackToCustomer(t *testing.T) {
	id := New("u1", models.Role("ROOT"))
	assert.True(t, id.Authenticated())
	assert.Equal(t, models.RoleCustomer, id.Role)
}

func TestFromContext_DefaultsToAnonymous(t *testing.T) {
	assert.False(t, FromContext(context.Background()).Authenticated())

	ctx := WithIdentity(context.Background(), New("u1", models.RoleAdmin))
	assert.True(t, FromContext(ctx).IsAdmin())
}

func TestResolver(t *testing.T) {
	tokens := NewTokenIssuer([]byte("secret"), time.Hour)
	good, err := tokens.Issue("u1", models.RoleAdmin)
	require.NoError(t, err)
	other, err := NewTokenIssuer([]byte("other"), time.Hour).Issue("u1", models.RoleAdmin)
	require.NoError(t, err)
	expired, err := NewTokenIssuer([]byte("secret"), -time.Minute).Issue("u1", models.RoleAdmin)
	require.NoError(t, err)

	r := NewResolver(fakeSessions{userId: "u2", role: models.RoleCustomer}, tokens, logger.NewNop())

	tests := []struct {
		name   string
		header string
		cookie string
		wantId string
	}{
		{"no credentials", "", "", ""},
		{"valid bearer", "Bearer " + good, "", "u1"},
		{"wrong key", "Bearer " + other, "", ""},
		{"expired", "Bearer " + expired, "", ""},
		{"garbage", "Bearer abc", "", ""},
		{"session cookie", "", "good", "u2"},
		{"unknown session", "", "stale", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: SessionCookie, Value: tt.cookie})
			}
			id := r.Resolve(req)
			assert.Equal(t, tt.wantId, id.ID)
			assert.Equal(t, tt.wantId != "", id.Authenticated())
		})
	}
}

func TestResolver_StoreFailureIsAnonymous(t *testing.T) {
	r := NewResolver(fakeSessions{err: errors.New("redis down")}, NewTokenIssuer([]byte("s"), time.Hour), logger.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "good"})
	assert.False(t, r.Resolve(req).Authenticated())
}
