package catalog

// RawRecord is one product entry as decoded from a catalog export.
// Nothing about its shape is trusted until Normalize has run.
type RawRecord map[string]any

// RawParameter is a product parameter with its parallel value arrays.
type RawParameter struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Unit              string `json:"unit,omitempty"`
	IdentifiesProduct bool   `json:"identifies_product"`

	ValueIDs    []any `json:"valuesIds,omitempty"`
	ValueLabels []any `json:"valuesLabels,omitempty"`
	Values      []any `json:"values,omitempty"`

	// Key presence is tracked separately from emptiness: only parameters
	// that carry a valuesIds key enumerate discrete values.
	HasValueIDs bool `json:"-"`
}

// Mappable reports whether the parameter enumerates discrete values and
// should be written to the relational model.
func (p RawParameter) Mappable() bool {
	return p.HasValueIDs
}

// NormalizedProduct is the canonical flat representation of a product.
type NormalizedProduct struct {
	ID                string         `json:"id"`
	Name              string         `json:"name"`
	CategoryID        string         `json:"category_id"`
	PublicationStatus *string        `json:"publication_status"`
	Description       string         `json:"description"` // JSON object text
	Images            string         `json:"images"`      // JSON array of URLs
	EAN               *string        `json:"ean"`
	Parameters        []RawParameter `json:"parameters"`
}

// ParameterValueTriple is one reconciled (value_id, label, value) entry.
type ParameterValueTriple struct {
	ValueID string  `json:"value_id"`
	Label   *string `json:"label"`
	Value   *string `json:"value"`
}

// Category is a node in the self-referential category tree.
type Category struct {
	ID     string    `json:"id"`
	Name   string    `json:"name"`
	Parent *Category `json:"parent,omitempty"`
}

// ParentID returns the parent's id or nil for a root category.
func (c *Category) ParentID() *string {
	if c.Parent == nil {
		return nil
	}
	id := c.Parent.ID
	return &id
}
