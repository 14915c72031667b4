package drift

// TeamHandle is a validated index into a canonical tree's team arena
type TeamHandle int

// MemberHandle is a validated index into a canonical tree's member arena
type MemberHandle int

// RepoHandle is a validated index into a canonical tree's repository arena
type RepoHandle int

// NoTeam marks the absence of a parent team
const NoTeam TeamHandle = -1

// State is the canonical comparison model for one organization. Both
// the declared and the observed tree are normalized into this shape
// before diffing. All cross-references are resolved handles, all
// defaults are filled in and all identifiers are canonicalized, so the
// diff engine can compare structurally without special cases.
//
// A State is read-only once produced by the normalizer.
type State struct {
	Org      string
	Settings map[string]string

	// Arenas, sorted by identifier. Handles are indices into these.
	Teams   []Team
	Members []Member
	Repos   []Repository

	teamIndex   map[string]TeamHandle
	memberIndex map[string]MemberHandle
	repoIndex   map[string]RepoHandle
}

// Team is a canonical team with resolved references
type Team struct {
	Slug        string
	Name        string
	Description string
	Parent      TeamHandle
	Members     map[MemberHandle]TeamRole
}

// Member is a canonical organization member
type Member struct {
	Login string
	Role  OrgRole

	// Teams lists direct memberships, derived from the team arena.
	// Not compared on the member itself; membership drift is reported
	// on teams.
	Teams []TeamHandle
}

// Repository is a canonical repository with resolved grants. Base is
// the organization's default repository permission, which applies to
// every organization member.
type Repository struct {
	Name       string
	Settings   map[string]string
	Base       Permission
	TeamGrants map[TeamHandle]Permission
	UserGrants map[MemberHandle]Permission
}

// TeamBySlug resolves a canonical team slug to its handle
func (s *State) TeamBySlug(slug string) (TeamHandle, bool) {
	h, ok := s.teamIndex[slug]
	return h, ok
}

// MemberByLogin resolves a canonical login to its handle
func (s *State) MemberByLogin(login string) (MemberHandle, bool) {
	h, ok := s.memberIndex[login]
	return h, ok
}

// RepoByName resolves a canonical repository name to its handle
func (s *State) RepoByName(name string) (RepoHandle, bool) {
	h, ok := s.repoIndex[name]
	return h, ok
}

// Team returns the team for a handle issued by this tree
func (s *State) Team(h TeamHandle) *Team {
	return &s.Teams[h]
}

// Member returns the member for a handle issued by this tree
func (s *State) Member(h MemberHandle) *Member {
	return &s.Members[h]
}

// Repo returns the repository for a handle issued by this tree
func (s *State) Repo(h RepoHandle) *Repository {
	return &s.Repos[h]
}

// EffectiveTeamLevel returns the strongest permission a team holds on
// a repository, combining its direct grant with grants inherited from
// ancestor teams. Parent chains are acyclic after normalization.
func (s *State) EffectiveTeamLevel(r RepoHandle, t TeamHandle) Permission {
	repo := &s.Repos[r]
	level := PermissionNone
	for cur := t; cur != NoTeam; cur = s.Teams[cur].Parent {
		if grant, ok := repo.TeamGrants[cur]; ok {
			level = level.Max(grant)
		}
	}
	return level
}

// EffectiveMemberLevel returns the strongest permission a member holds
// on a repository through the organization default, a direct grant or
// team membership.
func (s *State) EffectiveMemberLevel(r RepoHandle, m MemberHandle) Permission {
	repo := &s.Repos[r]
	level := repo.Base
	if grant, ok := repo.UserGrants[m]; ok {
		level = level.Max(grant)
	}
	for _, t := range s.Members[m].Teams {
		level = level.Max(s.EffectiveTeamLevel(r, t))
	}
	return level
}
