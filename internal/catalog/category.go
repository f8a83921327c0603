package catalog

import (
	"encoding/json"
	"fmt"
	"io"
)

type categoryDocument struct {
	Categories []struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Parent *struct {
			ID string `json:"id"`
		} `json:"parent"`
	} `json:"categories"`
}

// ParseCategories decodes a {"categories": [...]} document and links every
// category to its parent by id. Categories are returned in document order.
func ParseCategories(r io.Reader) ([]*Category, error) {
	var doc categoryDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode categories: %w", err)
	}

	byID := make(map[string]*Category, len(doc.Categories))
	out := make([]*Category, 0, len(doc.Categories))
	for i, c := range doc.Categories {
		if c.ID == "" {
			return nil, fmt.Errorf("category %d: missing id", i)
		}
		cat := &Category{ID: c.ID, Name: c.Name}
		byID[c.ID] = cat
		out = append(out, cat)
	}

	for i, c := range doc.Categories {
		if c.Parent == nil || c.Parent.ID == "" {
			continue
		}
		parent, ok := byID[c.Parent.ID]
		if !ok {
			return nil, fmt.Errorf("category %s: unknown parent %s", c.ID, c.Parent.ID)
		}
		out[i].Parent = parent
	}

	for _, c := range out {
		if err := checkAcyclic(c); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func checkAcyclic(c *Category) error {
	seen := map[string]bool{}
	for n := c; n != nil; n = n.Parent {
		if seen[n.ID] {
			return fmt.Errorf("category %s: parent cycle through %s", c.ID, n.ID)
		}
		seen[n.ID] = true
	}
	return nil
}
