package manifest

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Org is the raw organization tree parsed from an org.toml manifest.
// The same shape is produced by the live-state fetcher so that both
// sides of a comparison enter normalization identically.
type Org struct {
	Organization Organization `toml:"organization"`
	Teams        []Team       `toml:"team,omitempty"`
	Members      []Member     `toml:"member,omitempty"`
	Repositories []Repository `toml:"repository,omitempty"`
}

// Organization holds organization-level identity and settings
type Organization struct {
	Name                         string `toml:"name"`
	DefaultRepositoryPermission  string `toml:"default_repository_permission,omitempty"`
	TwoFactorRequired            *bool  `toml:"two_factor_required,omitempty"`
	MembersCanCreateRepositories *bool  `toml:"members_can_create_repositories,omitempty"`
}

// Team declares one team. Membership may be declared here (the shape
// the fetcher produces) or on the member side via Member.Teams and
// Member.MaintainerOf; both are merged during normalization.
type Team struct {
	Name        string   `toml:"name"`
	Slug        string   `toml:"slug,omitempty"`
	Description string   `toml:"description,omitempty"`
	Parent      string   `toml:"parent,omitempty"`
	Maintainers []string `toml:"maintainers,omitempty"`
	Members     []string `toml:"members,omitempty"`
}

// Member declares one organization member
type Member struct {
	Username     string   `toml:"username"`
	Role         string   `toml:"role,omitempty"` // owner, admin or member
	Teams        []string `toml:"teams,omitempty"`
	MaintainerOf []string `toml:"maintainer_of,omitempty"`
}

// Repository declares one repository and its access grants
type Repository struct {
	Name          string  `toml:"name"`
	Description   string  `toml:"description,omitempty"`
	Visibility    string  `toml:"visibility,omitempty"`
	DefaultBranch string  `toml:"default_branch,omitempty"`
	HasIssues     *bool   `toml:"has_issues,omitempty"`
	HasWiki       *bool   `toml:"has_wiki,omitempty"`
	HasProjects   *bool   `toml:"has_projects,omitempty"`
	Archived      *bool   `toml:"archived,omitempty"`
	Grants        []Grant `toml:"grant,omitempty"`
}

// Grant gives one principal a permission level on the enclosing
// repository. Exactly one of Team or User must be set.
type Grant struct {
	Team       string `toml:"team,omitempty"`
	User       string `toml:"user,omitempty"`
	Permission string `toml:"permission"`
}

// Load parses an org manifest from TOML data
func Load(data []byte) (*Org, error) {
	var org Org

	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&org); err != nil {
		return nil, wrapDecodeError(err)
	}

	if err := org.validate(); err != nil {
		return nil, err
	}

	return &org, nil
}

// LoadFile parses an org manifest from a file on disk
func LoadFile(filename string) (*Org, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, &ParseError{File: filename, Message: "failed to read manifest", Cause: err}
	}

	org, err := Load(data)
	if err != nil {
		if perr, ok := err.(*ParseError); ok {
			perr.File = filename
		}
		return nil, err
	}

	return org, nil
}

// validate checks required fields and structural shape. Value-domain
// rules (permission order, reference resolution) are the normalizer's
// business, not the parser's.
func (o *Org) validate() error {
	var problems []string

	if strings.TrimSpace(o.Organization.Name) == "" {
		problems = append(problems, "organization: name is required")
	}

	for i, team := range o.Teams {
		if strings.TrimSpace(team.Name) == "" {
			problems = append(problems, fmt.Sprintf("team %d: name is required", i+1))
		}
	}

	for i, member := range o.Members {
		if strings.TrimSpace(member.Username) == "" {
			problems = append(problems, fmt.Sprintf("member %d: username is required", i+1))
			continue
		}
		if err := validateUsername(member.Username); err != nil {
			problems = append(problems, fmt.Sprintf("member %d: %v", i+1, err))
		}
	}

	for i, repo := range o.Repositories {
		if strings.TrimSpace(repo.Name) == "" {
			problems = append(problems, fmt.Sprintf("repository %d: name is required", i+1))
		}
		for j, grant := range repo.Grants {
			hasTeam := strings.TrimSpace(grant.Team) != ""
			hasUser := strings.TrimSpace(grant.User) != ""
			switch {
			case hasTeam && hasUser:
				problems = append(problems, fmt.Sprintf("repository %d, grant %d: team and user are mutually exclusive", i+1, j+1))
			case !hasTeam && !hasUser:
				problems = append(problems, fmt.Sprintf("repository %d, grant %d: either team or user is required", i+1, j+1))
			}
			if strings.TrimSpace(grant.Permission) == "" {
				problems = append(problems, fmt.Sprintf("repository %d, grant %d: permission is required", i+1, j+1))
			}
		}
	}

	if len(problems) > 0 {
		return &ParseError{Message: strings.Join(problems, "; ")}
	}

	return nil
}

// validateUsername validates a GitHub username according to GitHub's rules
func validateUsername(username string) error {
	if len(username) > 39 {
		return fmt.Errorf("username must be 39 characters or less")
	}

	// Alphanumeric with single hyphens, no hyphen at either end
	validUsername := regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]*[a-zA-Z0-9])?$`)
	if !validUsername.MatchString(username) {
		return fmt.Errorf("username '%s' is invalid: must contain only alphanumeric characters and single hyphens, cannot start or end with hyphen", username)
	}

	if strings.Contains(username, "--") {
		return fmt.Errorf("username '%s' is invalid: cannot contain consecutive hyphens", username)
	}

	return nil
}
