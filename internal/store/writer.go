package store

import (
	"context"
	"database/sql"
	"fmt"

	"catalog-ingest/internal/catalog"
)

// Execer is the write session the Writer issues statements on.
// Both *sqlx.DB and *sqlx.Tx satisfy it.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	Rebind(query string) string
}

// Statements are written with '?' placeholders and rebound per driver.
// ON CONFLICT DO NOTHING makes every insert a no-op on an existing key.
const (
	insertCategorySQL = `INSERT INTO categories (id, name, parent_id)
	         VALUES (?, ?, ?)
	         ON CONFLICT DO NOTHING`

	insertProductSQL = `INSERT INTO products (id, name, category_id, publication_status, description, images, ean)
	         VALUES (?, ?, ?, ?, ?, ?, ?)
	         ON CONFLICT DO NOTHING`

	insertParameterSQL = `INSERT INTO parameters (id, name, unit, identifies_product)
	         VALUES (?, ?, ?, ?)
	         ON CONFLICT DO NOTHING`

	insertParameterValueSQL = `INSERT INTO parameter_values (id, parameter_id, label, value)
	         VALUES (?, ?, ?, ?)
	         ON CONFLICT DO NOTHING`

	insertProductParameterValueSQL = `INSERT INTO product_parameter_values (product_id, value_id)
	         VALUES (?, ?)
	         ON CONFLICT DO NOTHING`
)

// MappedParameter is a parameter together with its reconciled values.
type MappedParameter struct {
	Parameter catalog.RawParameter
	Values    []catalog.ParameterValueTriple
}

// Writer issues idempotent inserts for the catalog tables. Existing rows are
// never updated: the first write of a key wins.
type Writer struct {
	exec Execer
}

// NewWriter returns a Writer over exec.
func NewWriter(exec Execer) *Writer {
	return &Writer{exec: exec}
}

// WriteProduct writes a product and its parameters in foreign-key order:
// the product, then per parameter the parameter row followed by each value
// row and its association to the product.
func (w *Writer) WriteProduct(ctx context.Context, p *catalog.NormalizedProduct, params []MappedParameter) error {
	if err := w.InsertProduct(ctx, p); err != nil {
		return err
	}

	for _, mp := range params {
		if err := w.InsertParameter(ctx, mp.Parameter); err != nil {
			return err
		}
		for _, v := range mp.Values {
			if err := w.InsertParameterValue(ctx, mp.Parameter.ID, v); err != nil {
				return err
			}
			if err := w.MapProductParameterValue(ctx, p.ID, v.ValueID); err != nil {
				return err
			}
		}
	}
	return nil
}

// InsertProduct inserts the product row.
func (w *Writer) InsertProduct(ctx context.Context, p *catalog.NormalizedProduct) error {
	return w.insert(ctx, "products", p.ID, insertProductSQL,
		p.ID, p.Name, nullString(p.CategoryID), p.PublicationStatus, p.Description, p.Images, p.EAN)
}

// InsertParameter inserts the parameter row.
func (w *Writer) InsertParameter(ctx context.Context, p catalog.RawParameter) error {
	return w.insert(ctx, "parameters", p.ID, insertParameterSQL,
		p.ID, nullString(p.Name), nullString(p.Unit), p.IdentifiesProduct)
}

// InsertParameterValue inserts one value of parameterID.
func (w *Writer) InsertParameterValue(ctx context.Context, parameterID string, v catalog.ParameterValueTriple) error {
	return w.insert(ctx, "parameter_values", v.ValueID, insertParameterValueSQL,
		v.ValueID, parameterID, v.Label, v.Value)
}

// MapProductParameterValue associates a product with a parameter value.
func (w *Writer) MapProductParameterValue(ctx context.Context, productID, valueID string) error {
	return w.insert(ctx, "product_parameter_values", productID+"/"+valueID, insertProductParameterValueSQL,
		productID, valueID)
}

// InsertCategories inserts every category, each ancestor chain root first.
// A category shared by several chains is written once.
func (w *Writer) InsertCategories(ctx context.Context, cats []*catalog.Category) error {
	seen := map[string]bool{}
	for _, c := range cats {
		if err := w.insertCategory(ctx, c, seen); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) insertCategory(ctx context.Context, c *catalog.Category, seen map[string]bool) error {
	if c == nil || seen[c.ID] {
		return nil
	}
	seen[c.ID] = true

	if err := w.insertCategory(ctx, c.Parent, seen); err != nil {
		return err
	}
	return w.insert(ctx, "categories", c.ID, insertCategorySQL,
		c.ID, nullString(c.Name), c.ParentID())
}

func (w *Writer) insert(ctx context.Context, table, key, query string, args ...any) error {
	if _, err := w.exec.ExecContext(ctx, w.exec.Rebind(query), args...); err != nil {
		return &WriteError{Table: table, Key: key, Err: err}
	}
	return nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// WriteError is a failed statement against the store. It is fatal to the
// batch it occurred in.
type WriteError struct {
	Table string
	Key   string
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to insert into %s (key %s): %v", e.Table, e.Key, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
