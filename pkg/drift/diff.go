package drift

import "sort"

// Diff compares a declared and an observed canonical tree and returns
// every discrepancy between them in stable report order. It is a pure
// function: both trees are read-only, the output depends only on the
// inputs and discrepancies are always enumerated exhaustively.
//
// Entities present in only one tree surface as a single Missing or
// Unexpected entry with no attribute-level entries. Matched entities
// are compared attribute by attribute; repository access is compared
// per principal by effective permission level, so a grant rearranged
// between direct and team-inherited forms without changing anyone's
// access is not drift.
func Diff(target, observed *State) []Discrepancy {
	d := &differ{target: target, observed: observed}

	var out []Discrepancy
	out = append(out, d.diffOrganization()...)
	out = append(out, d.diffTeams()...)
	out = append(out, d.diffRepositories()...)
	out = append(out, d.diffMembers()...)

	sortDiscrepancies(out)
	return out
}

type differ struct {
	target   *State
	observed *State
}

func (d *differ) diffOrganization() []Discrepancy {
	var out []Discrepancy
	id := d.target.Org

	if d.target.Org != d.observed.Org {
		out = append(out, Discrepancy{
			Kind:     KindDrifted,
			Entity:   EntityOrganization,
			ID:       id,
			Field:    "name",
			Expected: d.target.Org,
			Actual:   d.observed.Org,
		})
	}

	for _, key := range unionKeys(d.target.Settings, d.observed.Settings) {
		expected := d.target.Settings[key]
		actual := d.observed.Settings[key]
		if expected != actual {
			out = append(out, Discrepancy{
				Kind:     KindDrifted,
				Entity:   EntityOrganization,
				ID:       id,
				Field:    key,
				Expected: expected,
				Actual:   actual,
			})
		}
	}

	return out
}

func (d *differ) diffTeams() []Discrepancy {
	var out []Discrepancy

	for _, slug := range unionIDs(teamSlugs(d.target), teamSlugs(d.observed)) {
		targetHandle, inTarget := d.target.TeamBySlug(slug)
		observedHandle, inObserved := d.observed.TeamBySlug(slug)

		switch {
		case inTarget && !inObserved:
			out = append(out, Discrepancy{Kind: KindMissing, Entity: EntityTeam, ID: slug})
		case !inTarget && inObserved:
			out = append(out, Discrepancy{Kind: KindUnexpected, Entity: EntityTeam, ID: slug})
		default:
			out = append(out, d.diffMatchedTeam(slug, targetHandle, observedHandle)...)
		}
	}

	return out
}

func (d *differ) diffMatchedTeam(slug string, targetHandle, observedHandle TeamHandle) []Discrepancy {
	var out []Discrepancy
	targetTeam := d.target.Team(targetHandle)
	observedTeam := d.observed.Team(observedHandle)

	if targetTeam.Description != observedTeam.Description {
		out = append(out, Discrepancy{
			Kind:     KindDrifted,
			Entity:   EntityTeam,
			ID:       slug,
			Field:    "description",
			Expected: targetTeam.Description,
			Actual:   observedTeam.Description,
		})
	}

	// Membership drift is reported on the team, one entry per member
	targetRoles := d.target.teamRolesByLogin(targetHandle)
	observedRoles := d.observed.teamRolesByLogin(observedHandle)
	for _, login := range unionIDs(loginSet(targetRoles), loginSet(observedRoles)) {
		expectedRole, inTarget := targetRoles[login]
		actualRole, inObserved := observedRoles[login]

		switch {
		case inTarget && !inObserved:
			out = append(out, Discrepancy{
				Kind:          KindMissing,
				Entity:        EntityTeam,
				ID:            slug,
				Principal:     login,
				PrincipalKind: EntityMember,
				Expected:      string(expectedRole),
			})
		case !inTarget && inObserved:
			out = append(out, Discrepancy{
				Kind:          KindUnexpected,
				Entity:        EntityTeam,
				ID:            slug,
				Principal:     login,
				PrincipalKind: EntityMember,
				Actual:        string(actualRole),
			})
		case expectedRole != actualRole:
			out = append(out, Discrepancy{
				Kind:          KindDrifted,
				Entity:        EntityTeam,
				ID:            slug,
				Principal:     login,
				PrincipalKind: EntityMember,
				Expected:      string(expectedRole),
				Actual:        string(actualRole),
			})
		}
	}

	// Parent drift is its own kind: reconciling hierarchy is a
	// different manual action than reconciling membership.
	expectedParent := d.target.parentSlug(targetHandle)
	actualParent := d.observed.parentSlug(observedHandle)
	if expectedParent != actualParent {
		out = append(out, Discrepancy{
			Kind:     KindHierarchyDrift,
			Entity:   EntityTeam,
			ID:       slug,
			Field:    "parent",
			Expected: orNone(expectedParent),
			Actual:   orNone(actualParent),
		})
	}

	return out
}

func (d *differ) diffRepositories() []Discrepancy {
	var out []Discrepancy

	for _, name := range unionIDs(repoNames(d.target), repoNames(d.observed)) {
		targetHandle, inTarget := d.target.RepoByName(name)
		observedHandle, inObserved := d.observed.RepoByName(name)

		switch {
		case inTarget && !inObserved:
			out = append(out, Discrepancy{Kind: KindMissing, Entity: EntityRepository, ID: name})
		case !inTarget && inObserved:
			out = append(out, Discrepancy{Kind: KindUnexpected, Entity: EntityRepository, ID: name})
		default:
			out = append(out, d.diffMatchedRepo(name, targetHandle, observedHandle)...)
		}
	}

	return out
}

func (d *differ) diffMatchedRepo(name string, targetHandle, observedHandle RepoHandle) []Discrepancy {
	var out []Discrepancy
	targetRepo := d.target.Repo(targetHandle)
	observedRepo := d.observed.Repo(observedHandle)

	for _, key := range unionKeys(targetRepo.Settings, observedRepo.Settings) {
		expected := targetRepo.Settings[key]
		actual := observedRepo.Settings[key]
		if expected != actual {
			out = append(out, Discrepancy{
				Kind:     KindDrifted,
				Entity:   EntityRepository,
				ID:       name,
				Field:    key,
				Expected: expected,
				Actual:   actual,
			})
		}
	}

	// Compare access per principal with a direct grant in either tree.
	// Levels are effective: direct grant, ancestor-team inheritance and
	// the organization default all count.
	for _, slug := range unionIDs(d.target.grantedTeamSlugs(targetHandle), d.observed.grantedTeamSlugs(observedHandle)) {
		expected := d.target.effectiveTeamLevelBySlug(targetHandle, slug)
		actual := d.observed.effectiveTeamLevelBySlug(observedHandle, slug)
		if privilege := privilegeDiscrepancy(name, EntityTeam, slug, expected, actual); privilege != nil {
			out = append(out, *privilege)
		}
	}

	for _, login := range unionIDs(d.target.grantedUserLogins(targetHandle), d.observed.grantedUserLogins(observedHandle)) {
		expected := d.target.effectiveMemberLevelByLogin(targetHandle, login)
		actual := d.observed.effectiveMemberLevelByLogin(observedHandle, login)
		if privilege := privilegeDiscrepancy(name, EntityMember, login, expected, actual); privilege != nil {
			out = append(out, *privilege)
		}
	}

	return out
}

// privilegeDiscrepancy emits exactly one entry per (repository,
// principal) pair whose effective levels differ, or nil when they
// agree.
func privilegeDiscrepancy(repo string, principalKind EntityKind, principal string, expected, actual Permission) *Discrepancy {
	cmp := actual.Compare(expected)
	if cmp == 0 {
		return nil
	}

	kind := KindUnderPrivileged
	if cmp > 0 {
		kind = KindOverPrivileged
	}

	return &Discrepancy{
		Kind:          kind,
		Entity:        EntityRepository,
		ID:            repo,
		Principal:     principal,
		PrincipalKind: principalKind,
		Expected:      expected.String(),
		Actual:        actual.String(),
	}
}

func (d *differ) diffMembers() []Discrepancy {
	var out []Discrepancy

	for _, login := range unionIDs(memberLogins(d.target), memberLogins(d.observed)) {
		targetHandle, inTarget := d.target.MemberByLogin(login)
		observedHandle, inObserved := d.observed.MemberByLogin(login)

		switch {
		case inTarget && !inObserved:
			out = append(out, Discrepancy{Kind: KindMissing, Entity: EntityMember, ID: login})
		case !inTarget && inObserved:
			out = append(out, Discrepancy{Kind: KindUnexpected, Entity: EntityMember, ID: login})
		default:
			expected := d.target.Member(targetHandle).Role
			actual := d.observed.Member(observedHandle).Role
			if expected != actual {
				out = append(out, Discrepancy{
					Kind:     KindDrifted,
					Entity:   EntityMember,
					ID:       login,
					Field:    "role",
					Expected: string(expected),
					Actual:   string(actual),
				})
			}
		}
	}

	return out
}

// Lookup helpers on State used only by the diff engine

func (s *State) parentSlug(h TeamHandle) string {
	parent := s.Teams[h].Parent
	if parent == NoTeam {
		return ""
	}
	return s.Teams[parent].Slug
}

func (s *State) teamRolesByLogin(h TeamHandle) map[string]TeamRole {
	roles := make(map[string]TeamRole, len(s.Teams[h].Members))
	for member, role := range s.Teams[h].Members {
		roles[s.Members[member].Login] = role
	}
	return roles
}

func (s *State) grantedTeamSlugs(h RepoHandle) map[string]bool {
	slugs := make(map[string]bool, len(s.Repos[h].TeamGrants))
	for team := range s.Repos[h].TeamGrants {
		slugs[s.Teams[team].Slug] = true
	}
	return slugs
}

func (s *State) grantedUserLogins(h RepoHandle) map[string]bool {
	logins := make(map[string]bool, len(s.Repos[h].UserGrants))
	for member := range s.Repos[h].UserGrants {
		logins[s.Members[member].Login] = true
	}
	return logins
}

func (s *State) effectiveTeamLevelBySlug(h RepoHandle, slug string) Permission {
	team, ok := s.teamIndex[slug]
	if !ok {
		return PermissionNone
	}
	return s.EffectiveTeamLevel(h, team)
}

func (s *State) effectiveMemberLevelByLogin(h RepoHandle, login string) Permission {
	member, ok := s.memberIndex[login]
	if !ok {
		return PermissionNone
	}
	return s.EffectiveMemberLevel(h, member)
}

// Set helpers

func teamSlugs(s *State) map[string]bool {
	set := make(map[string]bool, len(s.Teams))
	for i := range s.Teams {
		set[s.Teams[i].Slug] = true
	}
	return set
}

func memberLogins(s *State) map[string]bool {
	set := make(map[string]bool, len(s.Members))
	for i := range s.Members {
		set[s.Members[i].Login] = true
	}
	return set
}

func repoNames(s *State) map[string]bool {
	set := make(map[string]bool, len(s.Repos))
	for i := range s.Repos {
		set[s.Repos[i].Name] = true
	}
	return set
}

func loginSet(roles map[string]TeamRole) map[string]bool {
	set := make(map[string]bool, len(roles))
	for login := range roles {
		set[login] = true
	}
	return set
}

func unionIDs(a, b map[string]bool) []string {
	union := make(map[string]bool, len(a)+len(b))
	for id := range a {
		union[id] = true
	}
	for id := range b {
		union[id] = true
	}

	out := make([]string, 0, len(union))
	for id := range union {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func unionKeys(a, b map[string]string) []string {
	union := make(map[string]bool, len(a)+len(b))
	for key := range a {
		union[key] = true
	}
	for key := range b {
		union[key] = true
	}

	out := make([]string, 0, len(union))
	for key := range union {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

func orNone(slug string) string {
	if slug == "" {
		return "none"
	}
	return slug
}
