package catalog

import "fmt"

// Reconcile aligns a parameter's value ids, labels and raw values into
// triples, in label order.
//
// Values fall back to the labels when absent or empty. Ids fall back to
// "{param.ID}_{index}" per label position. The three arrays are then zipped
// to the shortest length, so trailing entries of longer arrays are dropped.
func Reconcile(p RawParameter) []ParameterValueTriple {
	labels := p.ValueLabels

	values := p.Values
	if len(values) == 0 {
		values = make([]any, len(labels))
		copy(values, labels)
	}

	ids := make([]string, 0, len(labels))
	if len(p.ValueIDs) > 0 {
		for i, v := range p.ValueIDs {
			// A null id keeps its slot so positions stay aligned.
			if id := scalarString(v); id != nil && *id != "" {
				ids = append(ids, *id)
			} else {
				ids = append(ids, SyntheticValueID(p.ID, i))
			}
		}
	} else {
		for i := range labels {
			ids = append(ids, SyntheticValueID(p.ID, i))
		}
	}

	n := min(len(ids), len(labels), len(values))
	triples := make([]ParameterValueTriple, 0, n)
	for i := 0; i < n; i++ {
		triples = append(triples, ParameterValueTriple{
			ValueID: ids[i],
			Label:   scalarString(labels[i]),
			Value:   scalarString(values[i]),
		})
	}
	return triples
}

// SyntheticValueID is the identifier given to the value at position index of
// a parameter that ships no value ids.
func SyntheticValueID(parameterID string, index int) string {
	return fmt.Sprintf("%s_%d", parameterID, index)
}
