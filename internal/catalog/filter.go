package catalog

import "sort"

// DefaultCategoryIDs are the coffee categories processed when no allow-list
// is configured.
var DefaultCategoryIDs = []string{"74035", "74033", "261120"}

// AllowList is the set of category ids whose records are eligible.
type AllowList struct {
	ids map[string]struct{}
}

// NewAllowList builds an allow-list from category ids. Empty ids are ignored.
func NewAllowList(ids ...string) *AllowList {
	a := &AllowList{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		if id != "" {
			a.ids[id] = struct{}{}
		}
	}
	return a
}

// Contains reports whether id is allowed.
func (a *AllowList) Contains(id string) bool {
	_, ok := a.ids[id]
	return ok
}

// IDs returns the allowed ids in sorted order.
func (a *AllowList) IDs() []string {
	out := make([]string, 0, len(a.ids))
	for id := range a.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// IsEligible reports whether raw.category.id is a string in the allow-list.
// A missing or malformed category is simply not eligible.
func (a *AllowList) IsEligible(raw RawRecord) bool {
	category, ok := raw["category"].(map[string]any)
	if !ok {
		return false
	}
	id, ok := category["id"].(string)
	if !ok {
		return false
	}
	return a.Contains(id)
}
