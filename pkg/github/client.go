package github

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"
)

// Client provides read access to the GitHub REST API
type Client struct {
	client  *github.Client
	limiter RateLimiter
}

// NewClient creates a new GitHub API client with the provided token
func NewClient(token string) *Client {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(context.Background(), ts)

	return &Client{
		client:  github.NewClient(tc),
		limiter: NewRateLimiter(nil),
	}
}

// NewEnterpriseClient creates a GitHub API client for a GitHub Enterprise instance
func NewEnterpriseClient(token, baseURL string) (*Client, error) {
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(context.Background(), ts)

	ghClient, err := github.NewClient(tc).WithEnterpriseURLs(baseURL, baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to configure enterprise API URL: %w", err)
	}

	return &Client{
		client:  ghClient,
		limiter: NewRateLimiter(nil),
	}, nil
}

// updateLimits records rate limit information from an API response
func (c *Client) updateLimits(resp *github.Response) {
	if resp != nil && resp.Rate.Remaining != 0 {
		c.limiter.UpdateLimits(resp.Rate.Remaining, int(resp.Rate.Reset.Unix()))
	}
}

// GetOrganization retrieves organization-wide settings
func (c *Client) GetOrganization(ctx context.Context, org string) (*OrgSettings, error) {
	var settings *OrgSettings

	err := WithRetry(func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		o, resp, err := c.client.Organizations.Get(ctx, org)
		c.updateLimits(resp)
		if err != nil {
			return WrapFetchError(err, fmt.Sprintf("organization %s", org))
		}

		settings = &OrgSettings{
			Login:                        o.GetLogin(),
			DefaultRepositoryPermission:  o.GetDefaultRepoPermission(),
			TwoFactorRequired:            o.GetTwoFactorRequirementEnabled(),
			MembersCanCreateRepositories: o.GetMembersCanCreateRepos(),
		}
		return nil
	}, DefaultRetryConfig())

	if err != nil {
		return nil, err
	}

	return settings, nil
}

// ListUserOrgs lists the organizations the authenticated user belongs to
func (c *Client) ListUserOrgs(ctx context.Context) ([]OrgSummary, error) {
	opts := &github.ListOptions{PerPage: 100}

	var allOrgs []OrgSummary

	err := WithRetry(func() error {
		allOrgs = nil // Reset on retry
		opts.Page = 0 // Reset pagination on retry

		for {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}

			orgs, resp, err := c.client.Organizations.List(ctx, "", opts)
			c.updateLimits(resp)
			if err != nil {
				return WrapFetchError(err, "organization memberships")
			}

			for _, org := range orgs {
				allOrgs = append(allOrgs, OrgSummary{
					Login:       org.GetLogin(),
					Description: org.GetDescription(),
				})
			}

			if resp.NextPage == 0 {
				break
			}
			opts.Page = resp.NextPage
		}
		return nil
	}, DefaultRetryConfig())

	return allOrgs, err
}

// ListMembers lists all organization members with their org-level role
func (c *Client) ListMembers(ctx context.Context, org string) ([]OrgMember, error) {
	owners, err := c.listMembersByRole(ctx, org, "admin")
	if err != nil {
		return nil, err
	}

	members, err := c.listMembersByRole(ctx, org, "member")
	if err != nil {
		return nil, err
	}

	all := make([]OrgMember, 0, len(owners)+len(members))
	for _, login := range owners {
		all = append(all, OrgMember{Login: login, Role: "owner"})
	}
	for _, login := range members {
		all = append(all, OrgMember{Login: login, Role: "member"})
	}

	return all, nil
}

// listMembersByRole lists organization member logins filtered by role
func (c *Client) listMembersByRole(ctx context.Context, org, role string) ([]string, error) {
	opts := &github.ListMembersOptions{
		Role:        role,
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var logins []string

	err := WithRetry(func() error {
		logins = nil  // Reset on retry
		opts.Page = 0 // Reset pagination on retry

		for {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}

			users, resp, err := c.client.Organizations.ListMembers(ctx, org, opts)
			c.updateLimits(resp)
			if err != nil {
				return WrapFetchError(err, fmt.Sprintf("members of organization %s", org))
			}

			for _, user := range users {
				logins = append(logins, user.GetLogin())
			}

			if resp.NextPage == 0 {
				break
			}
			opts.Page = resp.NextPage
		}
		return nil
	}, DefaultRetryConfig())

	return logins, err
}

// ListTeams lists all teams in the organization
func (c *Client) ListTeams(ctx context.Context, org string) ([]TeamInfo, error) {
	opts := &github.ListOptions{PerPage: 100}

	var allTeams []TeamInfo

	err := WithRetry(func() error {
		allTeams = nil // Reset on retry
		opts.Page = 0  // Reset pagination on retry

		for {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}

			teams, resp, err := c.client.Teams.ListTeams(ctx, org, opts)
			c.updateLimits(resp)
			if err != nil {
				return WrapFetchError(err, fmt.Sprintf("teams of organization %s", org))
			}

			for _, team := range teams {
				info := TeamInfo{
					Slug:        team.GetSlug(),
					Name:        team.GetName(),
					Description: team.GetDescription(),
				}
				if parent := team.GetParent(); parent != nil {
					info.ParentSlug = parent.GetSlug()
				}
				allTeams = append(allTeams, info)
			}

			if resp.NextPage == 0 {
				break
			}
			opts.Page = resp.NextPage
		}
		return nil
	}, DefaultRetryConfig())

	return allTeams, err
}

// ListTeamMembers lists team member logins filtered by role (member or maintainer)
func (c *Client) ListTeamMembers(ctx context.Context, org, slug, role string) ([]string, error) {
	opts := &github.TeamListTeamMembersOptions{
		Role:        role,
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var logins []string

	err := WithRetry(func() error {
		logins = nil  // Reset on retry
		opts.Page = 0 // Reset pagination on retry

		for {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}

			users, resp, err := c.client.Teams.ListTeamMembersBySlug(ctx, org, slug, opts)
			c.updateLimits(resp)
			if err != nil {
				return WrapFetchError(err, fmt.Sprintf("members of team %s", slug))
			}

			for _, user := range users {
				logins = append(logins, user.GetLogin())
			}

			if resp.NextPage == 0 {
				break
			}
			opts.Page = resp.NextPage
		}
		return nil
	}, DefaultRetryConfig())

	return logins, err
}

// ListRepositories lists all repositories in the organization
func (c *Client) ListRepositories(ctx context.Context, org string) ([]RepoInfo, error) {
	opts := &github.RepositoryListByOrgOptions{
		Type:        "all",
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var allRepos []RepoInfo

	err := WithRetry(func() error {
		allRepos = nil // Reset on retry
		opts.Page = 0  // Reset pagination on retry

		for {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}

			repos, resp, err := c.client.Repositories.ListByOrg(ctx, org, opts)
			c.updateLimits(resp)
			if err != nil {
				return WrapFetchError(err, fmt.Sprintf("repositories of organization %s", org))
			}

			for _, repo := range repos {
				allRepos = append(allRepos, RepoInfo{
					Name:          repo.GetName(),
					Description:   repo.GetDescription(),
					Visibility:    repo.GetVisibility(),
					DefaultBranch: repo.GetDefaultBranch(),
					HasIssues:     repo.GetHasIssues(),
					HasWiki:       repo.GetHasWiki(),
					HasProjects:   repo.GetHasProjects(),
					Archived:      repo.GetArchived(),
				})
			}

			if resp.NextPage == 0 {
				break
			}
			opts.Page = resp.NextPage
		}
		return nil
	}, DefaultRetryConfig())

	return allRepos, err
}

// ListRepoTeams lists all teams with access to a repository
func (c *Client) ListRepoTeams(ctx context.Context, org, repo string) ([]TeamAccess, error) {
	opts := &github.ListOptions{PerPage: 100}

	var allTeams []TeamAccess

	err := WithRetry(func() error {
		allTeams = nil // Reset on retry
		opts.Page = 0  // Reset pagination on retry

		for {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}

			teams, resp, err := c.client.Repositories.ListTeams(ctx, org, repo, opts)
			c.updateLimits(resp)
			if err != nil {
				return WrapFetchError(err, fmt.Sprintf("teams for repository %s/%s", org, repo))
			}

			for _, team := range teams {
				allTeams = append(allTeams, TeamAccess{
					TeamSlug:   team.GetSlug(),
					Permission: strings.ToLower(team.GetPermission()),
				})
			}

			if resp.NextPage == 0 {
				break
			}
			opts.Page = resp.NextPage
		}
		return nil
	}, DefaultRetryConfig())

	return allTeams, err
}

// ListRepoCollaborators lists collaborators holding a direct grant on a repository
func (c *Client) ListRepoCollaborators(ctx context.Context, org, repo string) ([]Collaborator, error) {
	opts := &github.ListCollaboratorsOptions{
		Affiliation: "direct",
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var allCollaborators []Collaborator

	err := WithRetry(func() error {
		allCollaborators = nil // Reset on retry
		opts.Page = 0          // Reset pagination on retry

		for {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}

			collaborators, resp, err := c.client.Repositories.ListCollaborators(ctx, org, repo, opts)
			c.updateLimits(resp)
			if err != nil {
				return WrapFetchError(err, fmt.Sprintf("collaborators for repository %s/%s", org, repo))
			}

			for _, collab := range collaborators {
				allCollaborators = append(allCollaborators, Collaborator{
					Username:   collab.GetLogin(),
					Permission: strings.ToLower(collab.GetRoleName()),
				})
			}

			if resp.NextPage == 0 {
				break
			}
			opts.Page = resp.NextPage
		}
		return nil
	}, DefaultRetryConfig())

	return allCollaborators, err
}
