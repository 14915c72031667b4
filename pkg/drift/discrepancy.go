package drift

import (
	"fmt"
	"sort"
)

// Kind represents the category of a detected discrepancy
type Kind string

const (
	// KindMissing marks something declared that does not exist
	KindMissing Kind = "missing"
	// KindUnexpected marks something that exists but is not declared
	KindUnexpected Kind = "unexpected"
	// KindDrifted marks an attribute whose value differs from the declared one
	KindDrifted Kind = "drifted"
	// KindUnderPrivileged marks a principal whose effective permission is weaker than declared
	KindUnderPrivileged Kind = "under_privileged"
	// KindOverPrivileged marks a principal whose effective permission is stronger than declared
	KindOverPrivileged Kind = "over_privileged"
	// KindHierarchyDrift marks a team whose parent link differs from the declared one
	KindHierarchyDrift Kind = "hierarchy_drift"
)

// kindOrder fixes the report position of each kind within one entity
var kindOrder = map[Kind]int{
	KindMissing:         0,
	KindUnexpected:      1,
	KindDrifted:         2,
	KindUnderPrivileged: 3,
	KindOverPrivileged:  4,
	KindHierarchyDrift:  5,
}

// EntityKind represents the kind of entity a discrepancy is about
type EntityKind string

const (
	EntityOrganization EntityKind = "organization"
	EntityTeam         EntityKind = "team"
	EntityRepository   EntityKind = "repository"
	EntityMember       EntityKind = "member"
)

// entityOrder fixes the report position of each entity kind
var entityOrder = map[EntityKind]int{
	EntityOrganization: 0,
	EntityTeam:         1,
	EntityRepository:   2,
	EntityMember:       3,
}

// Discrepancy represents one detected difference between declared and
// observed state. Field is set for attribute-level drift; Principal
// and PrincipalKind are set for grant and membership entries.
type Discrepancy struct {
	Kind          Kind       `json:"kind"`
	Entity        EntityKind `json:"entity"`
	ID            string     `json:"id"`
	Field         string     `json:"field,omitempty"`
	Principal     string     `json:"principal,omitempty"`
	PrincipalKind EntityKind `json:"principal_kind,omitempty"`
	Expected      string     `json:"expected,omitempty"`
	Actual        string     `json:"actual,omitempty"`
	Severity      Severity   `json:"severity,omitempty"`
}

// String renders the discrepancy as one human-readable sentence
func (d Discrepancy) String() string {
	subject := fmt.Sprintf("%s '%s'", d.Entity, d.ID)

	switch d.Kind {
	case KindMissing:
		if d.Principal != "" {
			return fmt.Sprintf("%s: %s '%s' is declared (role %s) but missing", subject, d.PrincipalKind, d.Principal, d.Expected)
		}
		return fmt.Sprintf("%s is declared but does not exist", subject)

	case KindUnexpected:
		if d.Principal != "" {
			return fmt.Sprintf("%s: %s '%s' is present (role %s) but not declared", subject, d.PrincipalKind, d.Principal, d.Actual)
		}
		return fmt.Sprintf("%s exists but is not declared", subject)

	case KindDrifted:
		if d.Principal != "" {
			return fmt.Sprintf("%s: role of %s '%s' should be %s but is %s", subject, d.PrincipalKind, d.Principal, d.Expected, d.Actual)
		}
		return fmt.Sprintf("%s: %s should be '%s' but is '%s'", subject, d.Field, d.Expected, d.Actual)

	case KindUnderPrivileged:
		return fmt.Sprintf("%s: %s '%s' should have %s but has %s", subject, d.PrincipalKind, d.Principal, d.Expected, d.Actual)

	case KindOverPrivileged:
		return fmt.Sprintf("%s: %s '%s' has %s but should have %s", subject, d.PrincipalKind, d.Principal, d.Actual, d.Expected)

	case KindHierarchyDrift:
		return fmt.Sprintf("%s: parent should be %s but is %s", subject, d.Expected, d.Actual)
	}

	return fmt.Sprintf("%s: %s", subject, d.Kind)
}

// sortDiscrepancies fixes the report order: entity kind, then entity
// identifier, then discrepancy kind, with field and principal as final
// tie-breakers. The order is total, so runs over unchanged state
// produce byte-identical reports.
func sortDiscrepancies(list []Discrepancy) {
	sort.SliceStable(list, func(i, j int) bool {
		return discrepancyLess(list[i], list[j])
	})
}

func discrepancyLess(a, b Discrepancy) bool {
	if entityOrder[a.Entity] != entityOrder[b.Entity] {
		return entityOrder[a.Entity] < entityOrder[b.Entity]
	}
	if a.ID != b.ID {
		return a.ID < b.ID
	}
	if kindOrder[a.Kind] != kindOrder[b.Kind] {
		return kindOrder[a.Kind] < kindOrder[b.Kind]
	}
	if a.Field != b.Field {
		return a.Field < b.Field
	}
	if a.PrincipalKind != b.PrincipalKind {
		return entityOrder[a.PrincipalKind] < entityOrder[b.PrincipalKind]
	}
	return a.Principal < b.Principal
}
