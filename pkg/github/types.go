package github

// OrgSettings represents organization-wide settings
type OrgSettings struct {
	Login                        string `json:"login"`
	DefaultRepositoryPermission  string `json:"default_repository_permission"`
	TwoFactorRequired            bool   `json:"two_factor_required"`
	MembersCanCreateRepositories bool   `json:"members_can_create_repositories"`
}

// OrgSummary identifies an organization the authenticated user belongs to
type OrgSummary struct {
	Login       string `json:"login"`
	Description string `json:"description,omitempty"`
}

// OrgMember represents an organization member and their org-level role
type OrgMember struct {
	Login string `json:"login"`
	Role  string `json:"role"` // owner, member
}

// TeamInfo represents an organization team
type TeamInfo struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ParentSlug  string `json:"parent_slug,omitempty"`
}

// RepoInfo represents a repository's settings
type RepoInfo struct {
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	Visibility    string `json:"visibility"` // public, private, internal
	DefaultBranch string `json:"default_branch"`
	HasIssues     bool   `json:"has_issues"`
	HasWiki       bool   `json:"has_wiki"`
	HasProjects   bool   `json:"has_projects"`
	Archived      bool   `json:"archived"`
}

// Collaborator represents a repository collaborator with a direct grant
type Collaborator struct {
	Username   string `json:"username"`
	Permission string `json:"permission"` // read, triage, write, maintain, admin
}

// TeamAccess represents team access to a repository
type TeamAccess struct {
	TeamSlug   string `json:"team_slug"`
	Permission string `json:"permission"` // pull, triage, push, maintain, admin
}
