package services

import (
	"pressroom/internal/apperr"
	"pressroom/internal/models"
)

// RequireOwnerOrRole passes if actor owns the resource or holds one of roles.
func RequireOwnerOrRole(owner uint, actor models.Identity, roles ...models.Role) error {
	if actor.UserID != 0 && actor.UserID == owner {
		return nil
	}
	if actor.HasRole(roles...) {
		return nil
	}
	return apperr.Forbidden("not allowed to modify this resource")
}

// RequireOwner passes only for the resource owner.
func RequireOwner(owner uint, actor models.Identity) error {
	return RequireOwnerOrRole(owner, actor)
}

func RequireRole(actor models.Identity, roles ...models.Role) error {
	if actor.HasRole(roles...) {
		return nil
	}
	return apperr.Forbidden("requires role %v", roles)
}

// RequireActive rejects blocked accounts from creating content.
func RequireActive(actor models.Identity) error {
	if actor.UserID == 0 {
		return apperr.Unauthenticated("no current user")
	}
	if actor.Blocked {
		return apperr.Forbidden("account is blocked")
	}
	return nil
}
