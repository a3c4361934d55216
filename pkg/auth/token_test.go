package auth

import (
	"testing"
	"time"

	"github.com/paperloop/paperloop-backend/pkg/actor"
	"github.com/paperloop/paperloop-backend/pkg/config"
	"github.com/paperloop/paperloop-backend/pkg/errors"
	"github.com/paperloop/paperloop-backend/pkg/permissions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.JWTConfig {
	return &config.JWTConfig{Secret: "test-secret", AccessExpiry: time.Hour, Issuer: "paperloop"}
}

func TestManager_IssueAndValidate(t *testing.T) {
	m := NewManager(testConfig())
	a := actor.Actor{ID: "u-1", Name: "Ada", Email: "ada@paperloop.test", Role: permissions.RoleCoordinator}

	token, expiresAt, err := m.Issue(a)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)

	got := claims.Actor()
	assert.Equal(t, "Ada", got.Name)
	assert.Equal(t, permissions.ForRole(permissions.RoleCoordinator), got.Permissions)
}

func TestManager_ExplicitPermissionsWin(t *testing.T) {
	m := NewManager(testConfig())
	token, _, err := m.Issue(actor.Actor{ID: "u-2", Role: permissions.RoleViewer, Permissions: []string{"comments.write"}})
	require.NoError(t, err)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, []string{"comments.write"}, claims.Actor().Permissions)
}

func TestManager_Validate_Rejects(t *testing.T) {
	good := NewManager(testConfig())
	token, _, err := good.Issue(actor.Actor{ID: "u-1"})
	require.NoError(t, err)

	expiredCfg := testConfig()
	expiredCfg.AccessExpiry = -time.Minute
	expired, _, err := NewManager(expiredCfg).Issue(actor.Actor{ID: "u-1"})
	require.NoError(t, err)

	otherSecret := testConfig()
	otherSecret.Secret = "another-secret"

	otherIssuer := testConfig()
	otherIssuer.Issuer = "someone-else"

	tests := []struct {
		name     string
		manager  *Manager
		token    string
		wantCode string
	}{
		{"expired", good, expired, "TOKEN_EXPIRED"},
		{"wrong secret", NewManager(otherSecret), token, "TOKEN_INVALID"},
		{"wrong issuer", NewManager(otherIssuer), token, "TOKEN_INVALID"},
		{"garbage", good, "not-a-token", "TOKEN_INVALID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.manager.Validate(tt.token)
			var appErr *errors.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.wantCode, appErr.Code)
		})
	}
}
