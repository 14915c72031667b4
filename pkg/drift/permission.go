package drift

import "fmt"

// Permission represents a repository permission level. Levels form a
// total order used to compute effective permissions when several
// grants apply to the same principal.
type Permission string

const (
	PermissionNone     Permission = "none"
	PermissionRead     Permission = "read"
	PermissionTriage   Permission = "triage"
	PermissionWrite    Permission = "write"
	PermissionMaintain Permission = "maintain"
	PermissionAdmin    Permission = "admin"
)

// permissionLevels orders permissions from weakest to strongest
var permissionLevels = map[Permission]int{
	PermissionNone:     0,
	PermissionRead:     1,
	PermissionTriage:   2,
	PermissionWrite:    3,
	PermissionMaintain: 4,
	PermissionAdmin:    5,
}

// ParsePermission parses a permission level from its string form.
// Only the fixed set of levels is valid; "pull" and "push" are
// accepted as aliases because the API reports them for read and write.
func ParsePermission(s string) (Permission, error) {
	switch s {
	case "pull":
		return PermissionRead, nil
	case "push":
		return PermissionWrite, nil
	}

	p := Permission(s)
	if _, ok := permissionLevels[p]; !ok || p == PermissionNone {
		return PermissionNone, fmt.Errorf("invalid permission level '%s': must be one of: read, triage, write, maintain, admin", s)
	}
	return p, nil
}

// Compare returns -1, 0 or 1 as p is weaker than, equal to or
// stronger than other.
func (p Permission) Compare(other Permission) int {
	a, b := permissionLevels[p], permissionLevels[other]
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Max returns the stronger of the two permission levels
func (p Permission) Max(other Permission) Permission {
	if p.Compare(other) >= 0 {
		return p
	}
	return other
}

// String returns the permission level in its configuration form
func (p Permission) String() string {
	return string(p)
}

// OrgRole represents a member's role at the organization level
type OrgRole string

const (
	RoleOwner  OrgRole = "owner"
	RoleMember OrgRole = "member"
)

// ParseOrgRole parses an organization role. The API reports owners as
// "admin"; both spellings canonicalize to owner.
func ParseOrgRole(s string) (OrgRole, error) {
	switch s {
	case "owner", "admin":
		return RoleOwner, nil
	case "member", "":
		return RoleMember, nil
	}
	return RoleMember, fmt.Errorf("invalid organization role '%s': must be one of: owner, member", s)
}

// TeamRole represents a member's role within a team
type TeamRole string

const (
	TeamRoleMaintainer TeamRole = "maintainer"
	TeamRoleMember     TeamRole = "member"
)
