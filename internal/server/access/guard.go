// Package access holds the tenant-isolation guard and the role and
// permission checks layered on top of it. Every function here is pure.
package access

import "github.com/dmitrijs2005/tenantdrive/internal/server/models"

// Actions a user may request on a resource.
const (
	ActionView  = "view"
	ActionEdit  = "edit"
	ActionAdmin = "admin"
)

var roleRank = map[string]int{
	models.RoleViewer: 1,
	models.RoleMember: 2,
	models.RoleAdmin:  3,
	models.RoleOwner:  4,
}

// Resource is anything tenant scoped that may carry an owner and grants.
type Resource struct {
	TenantID    string
	OwnerID     string
	Permissions []models.Permission
}

// FileResource describes f for CanPerformAction.
func FileResource(f *models.File) Resource {
	return Resource{TenantID: f.TenantID, OwnerID: f.UploadedBy, Permissions: f.Permissions}
}

// FolderResource describes f for CanPerformAction.
func FolderResource(f *models.Folder) Resource {
	return Resource{TenantID: f.TenantID, OwnerID: f.CreatedBy}
}

// Authorize reports whether user may touch data of resourceTenantID.
func Authorize(user *models.User, resourceTenantID string) bool {
	return user != nil && user.TenantID == resourceTenantID
}

// Rank returns the rank of role, 0 for unknown roles.
func Rank(role string) int {
	return roleRank[role]
}

// HasRole reports whether user's role ranks at least as high as required.
// Unknown roles rank 0, so they only meet an unknown requirement.
func HasRole(user *models.User, required string) bool {
	if user == nil {
		return false
	}
	return Rank(user.Role) >= Rank(required)
}

// CanPerformAction evaluates owner and per-user grants. A tenant mismatch
// always denies.
func CanPerformAction(user *models.User, res Resource, action string) bool {
	if !Authorize(user, res.TenantID) {
		return false
	}
	if res.OwnerID != "" && res.OwnerID == user.ID {
		return true
	}
	for _, p := range res.Permissions {
		if p.UserID == user.ID && levelAllows(p.Level, action) {
			return true
		}
	}
	return false
}

func levelAllows(level, action string) bool {
	switch action {
	case ActionView:
		return level == models.LevelView || level == models.LevelEdit || level == models.LevelAdmin
	case ActionEdit:
		return level == models.LevelEdit || level == models.LevelAdmin
	case ActionAdmin:
		return level == models.LevelAdmin
	}
	return false
}

// CanModify gates trash mutations: same tenant, then member role or an edit grant.
func CanModify(user *models.User, res Resource) bool {
	return Authorize(user, res.TenantID) &&
		(HasRole(user, models.RoleMember) || CanPerformAction(user, res, ActionEdit))
}

// CanView gates reads such as download authorization.
func CanView(user *models.User, res Resource) bool {
	return Authorize(user, res.TenantID) &&
		(HasRole(user, models.RoleViewer) || CanPerformAction(user, res, ActionView))
}
