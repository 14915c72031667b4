package manifest

import (
	"fmt"
	"sort"

	"github.com/pelletier/go-toml/v2"
)

// Render serializes an org tree as TOML with stable entity ordering,
// so repeated renders of the same tree are byte-identical. The input
// is not mutated.
func Render(org *Org) ([]byte, error) {
	sorted := sortedCopy(org)

	data, err := toml.Marshal(sorted)
	if err != nil {
		return nil, fmt.Errorf("failed to render manifest: %w", err)
	}

	return data, nil
}

// sortedCopy returns a copy of the tree with all entity lists and
// reference lists in lexicographic order.
func sortedCopy(org *Org) *Org {
	out := &Org{Organization: org.Organization}

	out.Teams = make([]Team, len(org.Teams))
	copy(out.Teams, org.Teams)
	for i := range out.Teams {
		out.Teams[i].Maintainers = sortedStrings(out.Teams[i].Maintainers)
		out.Teams[i].Members = sortedStrings(out.Teams[i].Members)
	}
	sort.Slice(out.Teams, func(i, j int) bool {
		return out.Teams[i].Name < out.Teams[j].Name
	})

	out.Members = make([]Member, len(org.Members))
	copy(out.Members, org.Members)
	for i := range out.Members {
		out.Members[i].Teams = sortedStrings(out.Members[i].Teams)
		out.Members[i].MaintainerOf = sortedStrings(out.Members[i].MaintainerOf)
	}
	sort.Slice(out.Members, func(i, j int) bool {
		return out.Members[i].Username < out.Members[j].Username
	})

	out.Repositories = make([]Repository, len(org.Repositories))
	copy(out.Repositories, org.Repositories)
	for i := range out.Repositories {
		grants := make([]Grant, len(out.Repositories[i].Grants))
		copy(grants, out.Repositories[i].Grants)
		sort.Slice(grants, func(a, b int) bool {
			// Team grants come before user grants
			if (grants[a].Team == "") != (grants[b].Team == "") {
				return grants[a].Team != ""
			}
			if grants[a].Team != grants[b].Team {
				return grants[a].Team < grants[b].Team
			}
			if grants[a].User != grants[b].User {
				return grants[a].User < grants[b].User
			}
			return grants[a].Permission < grants[b].Permission
		})
		out.Repositories[i].Grants = grants
	}
	sort.Slice(out.Repositories, func(i, j int) bool {
		return out.Repositories[i].Name < out.Repositories[j].Name
	})

	return out
}

func sortedStrings(values []string) []string {
	if len(values) == 0 {
		return values
	}
	out := make([]string, len(values))
	copy(out, values)
	sort.Strings(out)
	return out
}
