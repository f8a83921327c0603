package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"catalog-ingest/internal/catalog"
)

// DecodeBatch reads one catalog export document and returns its products
// array. A document without a products key is an empty batch.
func DecodeBatch(r io.Reader) ([]catalog.RawRecord, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode batch: %w", err)
	}

	raw, ok := doc["products"]
	if !ok || raw == nil {
		return []catalog.RawRecord{}, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("failed to decode batch: products must be an array, got %T", raw)
	}

	records := make([]catalog.RawRecord, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			// Non-object entries carry no category and are never eligible.
			m = map[string]any{}
		}
		records = append(records, catalog.RawRecord(m))
	}
	return records, nil
}

// DecodeBatchFile opens path and decodes it with DecodeBatch.
func DecodeBatchFile(path string) ([]catalog.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open batch file: %w", err)
	}
	defer f.Close()

	return DecodeBatch(f)
}
