package model

import "sort"

// APIScope is one entry in the fixed catalog of permissions an API key can be
// granted. The catalog is immutable at runtime; keys reference entries by the
// Scope string.
type APIScope struct {
	Scope       string `json:"scope" db:"scope"`
	Category    string `json:"category" db:"category"`
	Description string `json:"description" db:"description"`
}

// GroupScopesByCategory organizes a catalog into category → scopes, preserving
// the catalog's order within each category.
func GroupScopesByCategory(catalog []APIScope) map[string][]APIScope {
	grouped := make(map[string][]APIScope)
	for _, s := range catalog {
		grouped[s.Category] = append(grouped[s.Category], s)
	}
	return grouped
}

// ToggleCategory implements the "select all in category" operation as pure
// set algebra: if every scope in the category is already selected, all of
// them are deselected; otherwise the category's scopes are unioned into the
// selection. Applying it twice returns the selection to its original state.
// The input slice is not modified; the result is sorted.
func ToggleCategory(selected []string, catalog []APIScope, category string) []string {
	inCategory := make(map[string]bool)
	for _, s := range catalog {
		if s.Category == category {
			inCategory[s.Scope] = true
		}
	}

	set := make(map[string]bool, len(selected))
	for _, s := range selected {
		set[s] = true
	}

	allSelected := len(inCategory) > 0
	for scope := range inCategory {
		if !set[scope] {
			allSelected = false
			break
		}
	}

	if allSelected {
		for scope := range inCategory {
			delete(set, scope)
		}
	} else {
		for scope := range inCategory {
			set[scope] = true
		}
	}

	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
