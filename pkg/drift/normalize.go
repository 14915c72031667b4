package drift

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"orgdrift/pkg/manifest"
)

// Org-level setting keys in the canonical model
const (
	settingDefaultRepoPermission = "default_repository_permission"
	settingTwoFactorRequired     = "two_factor_required"
	settingMembersCanCreateRepos = "members_can_create_repositories"
)

// Repository-level setting keys in the canonical model
const (
	settingDescription   = "description"
	settingVisibility    = "visibility"
	settingDefaultBranch = "default_branch"
	settingHasIssues     = "has_issues"
	settingHasWiki       = "has_wiki"
	settingHasProjects   = "has_projects"
	settingArchived      = "archived"
)

// Normalize builds the canonical comparison model from a raw org tree.
// It canonicalizes identifiers, fills implicit defaults, resolves all
// cross-references into handles and verifies structural invariants.
// Violations (duplicate identifiers, dangling references, cyclic
// parent chains, invalid permission levels) are collected and returned
// as ValidationErrors; no partial tree is returned.
func Normalize(raw *manifest.Org) (*State, error) {
	n := &normalizer{raw: raw}
	return n.run()
}

// NormalizePair normalizes the declared and the observed tree for one
// comparison, labeling failures with the side they came from.
func NormalizePair(target, observed *manifest.Org) (*State, *State, error) {
	canonicalTarget, err := Normalize(target)
	if err != nil {
		return nil, nil, fmt.Errorf("declared state: %w", err)
	}

	canonicalObserved, err := Normalize(observed)
	if err != nil {
		return nil, nil, fmt.Errorf("observed state: %w", err)
	}

	return canonicalTarget, canonicalObserved, nil
}

type normalizer struct {
	raw    *manifest.Org
	state  *State
	errors ValidationErrors

	// First raw entry per canonical identifier. Later passes resolve
	// raw entries through these so a reported duplicate cannot write
	// over the entry that owns the identifier.
	teamOwner   map[string]int
	memberOwner map[string]int
	repoOwner   map[string]int
}

func (n *normalizer) run() (*State, error) {
	n.state = &State{
		teamIndex:   make(map[string]TeamHandle),
		memberIndex: make(map[string]MemberHandle),
		repoIndex:   make(map[string]RepoHandle),
	}

	n.normalizeOrganization()
	n.buildTeams()
	n.buildMembers()
	n.buildRepositories()
	n.resolveParents()
	n.checkParentCycles()
	n.resolveMemberships()
	n.resolveGrants()

	if n.errors.HasErrors() {
		return nil, n.errors
	}

	return n.state, nil
}

func (n *normalizer) normalizeOrganization() {
	org := n.raw.Organization

	n.state.Org = canonicalID(org.Name)
	if n.state.Org == "" {
		n.errors.Add("organization", "", "name is empty")
	}

	defaultPermission := PermissionRead
	if raw := canonicalID(org.DefaultRepositoryPermission); raw != "" {
		parsed, err := parseSettingPermission(raw)
		if err != nil {
			n.errors.Add("organization", n.state.Org, err.Error())
		} else {
			defaultPermission = parsed
		}
	}

	twoFactor := false
	if org.TwoFactorRequired != nil {
		twoFactor = *org.TwoFactorRequired
	}

	canCreate := true
	if org.MembersCanCreateRepositories != nil {
		canCreate = *org.MembersCanCreateRepositories
	}

	n.state.Settings = map[string]string{
		settingDefaultRepoPermission: defaultPermission.String(),
		settingTwoFactorRequired:     strconv.FormatBool(twoFactor),
		settingMembersCanCreateRepos: strconv.FormatBool(canCreate),
	}
}

func (n *normalizer) buildTeams() {
	n.teamOwner = make(map[string]int)

	for i, raw := range n.raw.Teams {
		slug := canonicalID(raw.Slug)
		if slug == "" {
			slug = slugify(raw.Name)
		}

		if _, ok := n.teamOwner[slug]; ok {
			n.errors.Add("team", slug, "duplicate team")
			continue
		}
		n.teamOwner[slug] = i

		n.state.Teams = append(n.state.Teams, Team{
			Slug:        slug,
			Name:        strings.TrimSpace(raw.Name),
			Description: strings.TrimSpace(raw.Description),
			Parent:      NoTeam,
			Members:     make(map[MemberHandle]TeamRole),
		})
	}

	sort.Slice(n.state.Teams, func(i, j int) bool {
		return n.state.Teams[i].Slug < n.state.Teams[j].Slug
	})
	for i := range n.state.Teams {
		n.state.teamIndex[n.state.Teams[i].Slug] = TeamHandle(i)
	}
}

func (n *normalizer) buildMembers() {
	n.memberOwner = make(map[string]int)

	for i, raw := range n.raw.Members {
		login := canonicalID(raw.Username)

		if _, ok := n.memberOwner[login]; ok {
			n.errors.Add("member", login, "duplicate member")
			continue
		}
		n.memberOwner[login] = i

		role, err := ParseOrgRole(canonicalID(raw.Role))
		if err != nil {
			n.errors.Add("member", login, err.Error())
			continue
		}

		n.state.Members = append(n.state.Members, Member{
			Login: login,
			Role:  role,
		})
	}

	sort.Slice(n.state.Members, func(i, j int) bool {
		return n.state.Members[i].Login < n.state.Members[j].Login
	})
	for i := range n.state.Members {
		n.state.memberIndex[n.state.Members[i].Login] = MemberHandle(i)
	}
}

func (n *normalizer) buildRepositories() {
	n.repoOwner = make(map[string]int)
	base := Permission(n.state.Settings[settingDefaultRepoPermission])

	for i, raw := range n.raw.Repositories {
		name := canonicalID(raw.Name)

		if _, ok := n.repoOwner[name]; ok {
			n.errors.Add("repository", name, "duplicate repository")
			continue
		}
		n.repoOwner[name] = i

		visibility := canonicalID(raw.Visibility)
		if visibility == "" {
			visibility = "private"
		} else if visibility != "public" && visibility != "private" && visibility != "internal" {
			n.errors.Add("repository", name, fmt.Sprintf("invalid visibility '%s': must be one of: public, private, internal", visibility))
			continue
		}

		branch := strings.TrimSpace(raw.DefaultBranch)
		if branch == "" {
			branch = "main"
		}

		n.state.Repos = append(n.state.Repos, Repository{
			Name: name,
			Settings: map[string]string{
				settingDescription:   strings.TrimSpace(raw.Description),
				settingVisibility:    visibility,
				settingDefaultBranch: branch,
				settingHasIssues:     strconv.FormatBool(boolOrDefault(raw.HasIssues, true)),
				settingHasWiki:       strconv.FormatBool(boolOrDefault(raw.HasWiki, true)),
				settingHasProjects:   strconv.FormatBool(boolOrDefault(raw.HasProjects, true)),
				settingArchived:      strconv.FormatBool(boolOrDefault(raw.Archived, false)),
			},
			Base:       base,
			TeamGrants: make(map[TeamHandle]Permission),
			UserGrants: make(map[MemberHandle]Permission),
		})
	}

	sort.Slice(n.state.Repos, func(i, j int) bool {
		return n.state.Repos[i].Name < n.state.Repos[j].Name
	})
	for i := range n.state.Repos {
		n.state.repoIndex[n.state.Repos[i].Name] = RepoHandle(i)
	}
}

// resolveParents links each team to its parent handle. The raw parent
// value may be a team name or a slug; both resolve through slugify.
func (n *normalizer) resolveParents() {
	for i, raw := range n.raw.Teams {
		parent := strings.TrimSpace(raw.Parent)
		if parent == "" {
			continue
		}

		slug := canonicalID(raw.Slug)
		if slug == "" {
			slug = slugify(raw.Name)
		}
		if n.teamOwner[slug] != i {
			continue
		}
		team, ok := n.state.teamIndex[slug]
		if !ok {
			continue
		}

		parentHandle, ok := n.state.teamIndex[slugify(parent)]
		if !ok {
			n.errors.Add("team", slug, fmt.Sprintf("parent team '%s' does not exist", parent))
			continue
		}

		n.state.Teams[team].Parent = parentHandle
	}
}

// checkParentCycles rejects cyclic parent chains. Each team is walked
// at most once across all chains.
func (n *normalizer) checkParentCycles() {
	const (
		unvisited = 0
		walking   = 1
		done      = 2
	)
	marks := make([]int, len(n.state.Teams))

	for start := range n.state.Teams {
		if marks[start] != unvisited {
			continue
		}

		var chain []TeamHandle
		cur := TeamHandle(start)
		for cur != NoTeam && marks[cur] == unvisited {
			marks[cur] = walking
			chain = append(chain, cur)
			cur = n.state.Teams[cur].Parent
		}

		if cur != NoTeam && marks[cur] == walking {
			// Closed a loop within this walk. Name the cycle from its
			// entry point so the message is deterministic.
			var names []string
			inCycle := false
			for _, h := range chain {
				if h == cur {
					inCycle = true
				}
				if inCycle {
					names = append(names, n.state.Teams[h].Slug)
				}
			}
			names = append(names, n.state.Teams[cur].Slug)
			n.errors.Add("team", n.state.Teams[cur].Slug,
				fmt.Sprintf("parent chain forms a cycle: %s", strings.Join(names, " -> ")))

			// Break the cycle so later passes terminate.
			n.state.Teams[chain[len(chain)-1]].Parent = NoTeam
		}

		for _, h := range chain {
			marks[h] = done
		}
	}
}

// resolveMemberships merges the two membership spellings (per-team
// member lists and per-member team lists) into one canonical role map
// per team. When the same pair is declared with both roles, maintainer
// wins.
func (n *normalizer) resolveMemberships() {
	assign := func(team TeamHandle, member MemberHandle, role TeamRole) {
		existing, ok := n.state.Teams[team].Members[member]
		if !ok || (existing == TeamRoleMember && role == TeamRoleMaintainer) {
			n.state.Teams[team].Members[member] = role
		}
	}

	for i, raw := range n.raw.Teams {
		slug := canonicalID(raw.Slug)
		if slug == "" {
			slug = slugify(raw.Name)
		}
		if n.teamOwner[slug] != i {
			continue
		}
		team, ok := n.state.teamIndex[slug]
		if !ok {
			continue
		}

		for _, login := range raw.Maintainers {
			member, ok := n.state.memberIndex[canonicalID(login)]
			if !ok {
				n.errors.Add("team", slug, fmt.Sprintf("maintainer '%s' is not a declared member", canonicalID(login)))
				continue
			}
			assign(team, member, TeamRoleMaintainer)
		}
		for _, login := range raw.Members {
			member, ok := n.state.memberIndex[canonicalID(login)]
			if !ok {
				n.errors.Add("team", slug, fmt.Sprintf("member '%s' is not a declared member", canonicalID(login)))
				continue
			}
			assign(team, member, TeamRoleMember)
		}
	}

	for i, raw := range n.raw.Members {
		login := canonicalID(raw.Username)
		if n.memberOwner[login] != i {
			continue
		}
		member, ok := n.state.memberIndex[login]
		if !ok {
			continue
		}

		for _, name := range raw.Teams {
			team, ok := n.state.teamIndex[slugify(name)]
			if !ok {
				n.errors.Add("member", n.state.Members[member].Login, fmt.Sprintf("team '%s' does not exist", name))
				continue
			}
			assign(team, member, TeamRoleMember)
		}
		for _, name := range raw.MaintainerOf {
			team, ok := n.state.teamIndex[slugify(name)]
			if !ok {
				n.errors.Add("member", n.state.Members[member].Login, fmt.Sprintf("team '%s' does not exist", name))
				continue
			}
			assign(team, member, TeamRoleMaintainer)
		}
	}

	// Derive each member's direct team list for effective-level walks.
	for team := range n.state.Teams {
		for member := range n.state.Teams[team].Members {
			n.state.Members[member].Teams = append(n.state.Members[member].Teams, TeamHandle(team))
		}
	}
	for i := range n.state.Members {
		teams := n.state.Members[i].Teams
		sort.Slice(teams, func(a, b int) bool { return teams[a] < teams[b] })
	}
}

// resolveGrants resolves grant principals to handles and parses
// permission levels. Duplicate grants for the same principal collapse
// to the strongest level.
func (n *normalizer) resolveGrants() {
	for i, raw := range n.raw.Repositories {
		name := canonicalID(raw.Name)
		if n.repoOwner[name] != i {
			continue
		}
		repo, ok := n.state.repoIndex[name]
		if !ok {
			continue
		}

		for _, grant := range raw.Grants {
			level, err := ParsePermission(canonicalID(grant.Permission))
			if err != nil {
				n.errors.Add("repository", name, err.Error())
				continue
			}

			switch {
			case strings.TrimSpace(grant.Team) != "":
				team, ok := n.state.teamIndex[slugify(grant.Team)]
				if !ok {
					n.errors.Add("repository", name, fmt.Sprintf("grant references team '%s' which does not exist", grant.Team))
					continue
				}
				n.state.Repos[repo].TeamGrants[team] = level.Max(n.state.Repos[repo].TeamGrants[team])

			case strings.TrimSpace(grant.User) != "":
				member, ok := n.state.memberIndex[canonicalID(grant.User)]
				if !ok {
					n.errors.Add("repository", name, fmt.Sprintf("grant references user '%s' who is not a declared member", grant.User))
					continue
				}
				n.state.Repos[repo].UserGrants[member] = level.Max(n.state.Repos[repo].UserGrants[member])
			}
		}
	}
}

// canonicalID canonicalizes an identifier: trimmed and lowercased so
// value-equal identifiers written differently compare equal.
func canonicalID(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// slugify derives a team slug from a team name the way GitHub does
// for simple names: lowercased with whitespace runs collapsed to
// single dashes.
func slugify(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "-")
}

// parseSettingPermission parses the org default repository permission,
// which unlike a grant may be "none".
func parseSettingPermission(s string) (Permission, error) {
	if s == "none" {
		return PermissionNone, nil
	}
	return ParsePermission(s)
}

func boolOrDefault(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}
