// Package permissions checks actor permissions against the permission a
// route or command requires, with support for wildcards.
//
// Permission Format:
//   - "*" - Full access (all permissions)
//   - "resource.*" - All actions on a resource (e.g., "sessions.*")
//   - "resource.action" - Specific action (e.g., "sessions.read")
package permissions

import (
	"strings"
)

// Collection service permissions
const (
	SessionsRead       = "sessions.read"
	SessionsWrite      = "sessions.write"
	SessionsTransition = "sessions.transition"
	SessionsDelete     = "sessions.delete"
	ProblemsReport     = "problems.report"
	ProblemsResolve    = "problems.resolve"
	CommentsWrite      = "comments.write"
)

// Roles
const (
	RoleAdmin       = "admin"
	RoleManager     = "manager"
	RoleCoordinator = "coordinator"
	RoleMarketer    = "marketer"
	RoleViewer      = "viewer"
)

// HasPermission checks if the user's permissions include the required permission.
// Supports wildcard matching:
//   - "*" matches everything
//   - "sessions.*" matches "sessions.read", "sessions.write", etc.
//   - Exact match for specific permissions
func HasPermission(userPerms []string, required string) bool {
	if required == "" {
		return true
	}

	for _, p := range userPerms {
		if p == "*" || p == required {
			return true
		}
		if strings.HasSuffix(p, ".*") {
			prefix := strings.TrimSuffix(p, ".*")
			if strings.HasPrefix(required, prefix+".") {
				return true
			}
		}
	}
	return false
}

// HasAnyPermission checks if the user has any of the required permissions.
func HasAnyPermission(userPerms []string, required []string) bool {
	for _, req := range required {
		if HasPermission(userPerms, req) {
			return true
		}
	}
	return false
}

// RolePermissions is the default permission set per role, used when a
// token carries a role but no explicit permission list.
var RolePermissions = map[string][]string{
	RoleAdmin:       {"*"},
	RoleManager:     {"sessions.*", "problems.*", "comments.*"},
	RoleCoordinator: {SessionsRead, SessionsWrite, SessionsTransition, ProblemsReport, ProblemsResolve, CommentsWrite},
	RoleMarketer:    {SessionsRead, ProblemsReport, CommentsWrite},
	RoleViewer:      {SessionsRead},
}

// ForRole returns the default permissions of a role (nil if unknown).
func ForRole(role string) []string {
	return RolePermissions[strings.ToLower(role)]
}
