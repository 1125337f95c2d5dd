// Package permissions derives broadcast console capabilities from user roles.
package permissions

import (
	"context"
	"log"

	"github.com/openairwaves/onair-go/internal/database/models"
	"github.com/openairwaves/onair-go/internal/database/repositories"
)

// Capabilities is the set of console actions a user's roles permit.
// The zero value grants nothing, which is also the fail-closed result
// when roles cannot be read.
type Capabilities struct {
	CanGoLive            bool `json:"canGoLive"`
	CanControlMicrophone bool `json:"canControlMicrophone"`
	CanControlMusic      bool `json:"canControlMusic"`
	CanTriggerJingles    bool `json:"canTriggerJingles"`
	CanSwitchModes       bool `json:"canSwitchModes"`
	CanEmergencyOverride bool `json:"canEmergencyOverride"`
	CanManageAudio       bool `json:"canManageAudio"`
	CanViewAnalytics     bool `json:"canViewAnalytics"`
}

// ResolveRoles computes the capability set for a role list. Pure function;
// capabilities from multiple roles are unioned. Unknown roles grant nothing.
func ResolveRoles(roles []models.Role) Capabilities {
	var caps Capabilities
	for _, role := range roles {
		switch role {
		case models.RoleAdmin:
			caps = Capabilities{
				CanGoLive:            true,
				CanControlMicrophone: true,
				CanControlMusic:      true,
				CanTriggerJingles:    true,
				CanSwitchModes:       true,
				CanEmergencyOverride: true,
				CanManageAudio:       true,
				CanViewAnalytics:     true,
			}
			// Admin implies everything; no further roles can add to it.
			return caps
		case models.RoleDJ:
			caps.CanGoLive = true
			caps.CanControlMicrophone = true
			caps.CanControlMusic = true
			caps.CanTriggerJingles = true
			caps.CanSwitchModes = true
		case models.RolePresenter:
			caps.CanGoLive = true
			caps.CanControlMicrophone = true
			caps.CanTriggerJingles = true
		}
	}
	return caps
}

// HasRole reports whether a role list contains the given role.
func HasRole(roles []models.Role, role models.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// Resolver resolves capabilities for a user from stored role assignments.
type Resolver struct {
	roles *repositories.RoleRepository
}

// NewResolver creates a new Resolver.
func NewResolver(roles *repositories.RoleRepository) *Resolver {
	return &Resolver{roles: roles}
}

// Roles returns the user's stored roles. A read error resolves to an empty
// list so every capability check fails closed.
func (r *Resolver) Roles(ctx context.Context, userID string) []models.Role {
	if userID == "" {
		return nil
	}
	roles, err := r.roles.FindRolesByUser(ctx, userID)
	if err != nil {
		log.Printf("permissions: role lookup failed for %s: %v", userID, err)
		return nil
	}
	return roles
}

// Resolve returns the capability set for a user, recomputed from the role
// rows on every call.
func (r *Resolver) Resolve(ctx context.Context, userID string) Capabilities {
	return ResolveRoles(r.Roles(ctx, userID))
}

// IsAdmin reports whether the user holds the admin role.
func (r *Resolver) IsAdmin(ctx context.Context, userID string) bool {
	return HasRole(r.Roles(ctx, userID), models.RoleAdmin)
}
