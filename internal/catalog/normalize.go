package catalog

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// EANParameterName is the parameter label that carries a product's GTIN.
const EANParameterName = "EAN (GTIN)"

// Normalize validates raw and reshapes it into a NormalizedProduct.
// A missing or malformed id, name or category yields a *ValidationError.
func Normalize(raw RawRecord) (*NormalizedProduct, error) {
	id, err := requiredString(raw, "id")
	if err != nil {
		return nil, err
	}
	name, err := requiredString(raw, "name")
	if err != nil {
		return nil, err
	}

	categoryRaw, ok := raw["category"]
	if !ok || categoryRaw == nil {
		return nil, missingField("category")
	}
	category, ok := categoryRaw.(map[string]any)
	if !ok {
		return nil, wrongType("category", "an object")
	}

	params, err := parseParameters(raw["parameters"])
	if err != nil {
		return nil, err
	}

	description, err := descriptionJSON(raw["description"])
	if err != nil {
		return nil, err
	}
	images, err := imagesJSON(raw["images"])
	if err != nil {
		return nil, err
	}

	product := &NormalizedProduct{
		ID:          id,
		Name:        name,
		Description: description,
		Images:      images,
		EAN:         ExtractEAN(params),
		Parameters:  params,
	}
	if categoryID := scalarString(category["id"]); categoryID != nil {
		product.CategoryID = *categoryID
	}
	if publication, ok := raw["publication"].(map[string]any); ok {
		product.PublicationStatus = scalarString(publication["status"])
	}

	return product, nil
}

// ExtractEAN returns the GTIN carried by the first parameter named
// EANParameterName: its first value, or its first label when it has no
// values. A null first value yields nil. Later matches are never consulted.
func ExtractEAN(params []RawParameter) *string {
	for _, p := range params {
		if p.Name != EANParameterName {
			continue
		}
		if len(p.Values) > 0 {
			return scalarString(p.Values[0])
		}
		if len(p.ValueLabels) > 0 {
			return scalarString(p.ValueLabels[0])
		}
		return nil
	}
	return nil
}

func requiredString(raw RawRecord, field string) (string, error) {
	v, ok := raw[field]
	if !ok || v == nil {
		return "", missingField(field)
	}
	s, ok := v.(string)
	if !ok {
		return "", wrongType(field, "a string")
	}
	if s == "" {
		return "", &ValidationError{Field: field, Reason: "must not be empty"}
	}
	return s, nil
}

func parseParameters(v any) ([]RawParameter, error) {
	if v == nil {
		return []RawParameter{}, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, wrongType("parameters", "an array")
	}

	params := make([]RawParameter, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		params = append(params, parseParameter(m))
	}
	return params, nil
}

func parseParameter(m map[string]any) RawParameter {
	p := RawParameter{}
	if id := scalarString(m["id"]); id != nil {
		p.ID = *id
	}
	p.Name, _ = m["name"].(string)
	p.Unit, _ = m["unit"].(string)
	if options, ok := m["options"].(map[string]any); ok {
		p.IdentifiesProduct, _ = options["identifiesProduct"].(bool)
	}

	p.ValueIDs, p.HasValueIDs = arrayField(m, "valuesIds")
	p.ValueLabels, _ = arrayField(m, "valuesLabels")
	p.Values, _ = arrayField(m, "values")
	return p
}

// arrayField returns the array stored under key and whether the key was
// present at all. A present key holding a non-array yields an empty slice.
func arrayField(m map[string]any, key string) ([]any, bool) {
	v, ok := m[key]
	if !ok {
		return nil, false
	}
	arr, _ := v.([]any)
	return arr, true
}

func descriptionJSON(v any) (string, error) {
	if v == nil {
		return "{}", nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return "", wrongType("description", "an object")
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to marshal description: %w", err)
	}
	return string(b), nil
}

func imagesJSON(v any) (string, error) {
	if v == nil {
		return "[]", nil
	}
	items, ok := v.([]any)
	if !ok {
		return "", wrongType("images", "an array")
	}

	urls := make([]string, 0, len(items))
	for _, item := range items {
		img, ok := item.(map[string]any)
		if !ok {
			return "", wrongType("images", "an array of objects")
		}
		if url, ok := img["url"].(string); ok && url != "" {
			urls = append(urls, url)
		}
	}
	b, err := json.Marshal(urls)
	if err != nil {
		return "", fmt.Errorf("failed to marshal images: %w", err)
	}
	return string(b), nil
}

// scalarString renders a decoded JSON scalar as text. Null yields nil;
// objects and arrays are rendered as compact JSON.
func scalarString(v any) *string {
	var s string
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		s = t
	case json.Number:
		s = t.String()
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(t)
	case int:
		s = strconv.Itoa(t)
	case int64:
		s = strconv.FormatInt(t, 10)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return nil
		}
		s = string(b)
	}
	return &s
}
