package services

import (
	"testing"

	"pressroom/internal/apperr"
	"pressroom/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestRequireOwnerOrRole(t *testing.T) {
	const owner = 7
	for _, tc := range []struct {
		name  string
		actor models.Identity
		roles []models.Role
		ok    bool
	}{
		{"owner", models.Identity{UserID: owner, Role: models.RoleUser}, models.PrivilegedRoles, true},
		{"moderator", models.Identity{UserID: 1, Role: models.RoleModerator}, models.PrivilegedRoles, true},
		{"admin", models.Identity{UserID: 2, Role: models.RoleAdmin}, models.PrivilegedRoles, true},
		{"stranger", models.Identity{UserID: 3, Role: models.RoleUser}, models.PrivilegedRoles, false},
		{"moderator not allowed", models.Identity{UserID: 1, Role: models.RoleModerator}, []models.Role{models.RoleAdmin}, false},
		{"anonymous", models.Identity{}, models.PrivilegedRoles, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := RequireOwnerOrRole(owner, tc.actor, tc.roles...)
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, apperr.ErrAuthorization)
		})
	}
}

func TestRequireOwnerIgnoresRoles(t *testing.T) {
	assert.NoError(t, RequireOwner(5, models.Identity{UserID: 5}))
	assert.ErrorIs(t, RequireOwner(5, models.Identity{UserID: 6, Role: models.RoleAdmin}), apperr.ErrAuthorization)
	// An anonymous actor never owns an unowned resource.
	assert.ErrorIs(t, RequireOwner(0, models.Identity{}), apperr.ErrAuthorization)
}

func TestRequireActive(t *testing.T) {
	assert.NoError(t, RequireActive(models.Identity{UserID: 1}))
	assert.ErrorIs(t, RequireActive(models.Identity{}), apperr.ErrAuthentication)
	assert.ErrorIs(t, RequireActive(models.Identity{UserID: 1, Blocked: true}), apperr.ErrAuthorization)
}
