package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"catalog-ingest/internal/catalog"
	"catalog-ingest/internal/store"
)

// ProductWriter persists one normalized product with its mapped parameters.
type ProductWriter interface {
	WriteProduct(ctx context.Context, p *catalog.NormalizedProduct, params []store.MappedParameter) error
}

// TxRunner opens the transaction a batch is written in.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(w *store.Writer) error) error
}

// Rejection describes a record skipped because it failed validation.
type Rejection struct {
	Index     int    `json:"index"`
	ProductID string `json:"product_id,omitempty"`
	Field     string `json:"field"`
	Reason    string `json:"reason"`
}

// Summary aggregates the per-record outcomes of one batch.
type Summary struct {
	RunID      string      `json:"run_id"`
	Received   int         `json:"received"`
	Ineligible int         `json:"ineligible"`
	Invalid    int         `json:"invalid"`
	Written    int         `json:"written"`
	Parameters int         `json:"parameters"`
	Values     int         `json:"values"`
	Rejected   []Rejection `json:"rejected"`
}

// Pipeline filters, normalizes, reconciles and writes catalog batches.
type Pipeline struct {
	allow  *catalog.AllowList
	logger logrus.FieldLogger
}

// New creates a Pipeline that admits records from the allow-listed categories.
func New(allow *catalog.AllowList, logger logrus.FieldLogger) *Pipeline {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Pipeline{allow: allow, logger: logger}
}

// Process runs records as one batch inside a single store transaction.
// Any write fault rolls back the whole batch.
func (p *Pipeline) Process(ctx context.Context, s TxRunner, records []catalog.RawRecord) (*Summary, error) {
	runID := uuid.New().String()
	log := p.logger.WithField("run_id", runID)
	log.WithField("records", len(records)).Info("Processing batch")

	var summary *Summary
	err := s.WithTx(ctx, func(w *store.Writer) error {
		var runErr error
		summary, runErr = p.run(ctx, runID, records, w)
		return runErr
	})
	if err != nil {
		log.WithError(err).Error("Batch rolled back")
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"written":    summary.Written,
		"ineligible": summary.Ineligible,
		"invalid":    summary.Invalid,
	}).Info("Batch committed")
	return summary, nil
}

// Run processes records sequentially through w. Ineligible and invalid
// records are skipped; the first write fault ends the batch.
func (p *Pipeline) Run(ctx context.Context, records []catalog.RawRecord, w ProductWriter) (*Summary, error) {
	return p.run(ctx, uuid.New().String(), records, w)
}

func (p *Pipeline) run(ctx context.Context, runID string, records []catalog.RawRecord, w ProductWriter) (*Summary, error) {
	log := p.logger.WithField("run_id", runID)
	summary := &Summary{RunID: runID, Received: len(records), Rejected: []Rejection{}}

	for i, raw := range records {
		if !p.allow.IsEligible(raw) {
			summary.Ineligible++
			log.WithField("index", i).Debug("Skipping record outside allowed categories")
			continue
		}

		product, err := catalog.Normalize(raw)
		if err != nil {
			var vErr *catalog.ValidationError
			if !errors.As(err, &vErr) {
				return nil, fmt.Errorf("record %d: %w", i, err)
			}
			id, _ := raw["id"].(string)
			summary.Invalid++
			summary.Rejected = append(summary.Rejected, Rejection{
				Index: i, ProductID: id, Field: vErr.Field, Reason: vErr.Reason,
			})
			log.WithFields(logrus.Fields{"index": i, "field": vErr.Field}).Info("Skipping invalid record")
			continue
		}

		params := p.mapParameters(log, product)
		if err := w.WriteProduct(ctx, product, params); err != nil {
			return nil, fmt.Errorf("failed to write product %s: %w", product.ID, err)
		}

		summary.Written++
		summary.Parameters += len(params)
		for _, mp := range params {
			summary.Values += len(mp.Values)
		}
		log.WithField("product_id", product.ID).Info("Inserted product")
	}

	return summary, nil
}

// mapParameters reconciles every parameter that enumerates values.
func (p *Pipeline) mapParameters(log logrus.FieldLogger, product *catalog.NormalizedProduct) []store.MappedParameter {
	var params []store.MappedParameter
	for _, param := range product.Parameters {
		if !param.Mappable() {
			continue
		}
		if param.ID == "" {
			log.WithField("product_id", product.ID).Warn("Skipping parameter without id")
			continue
		}
		params = append(params, store.MappedParameter{
			Parameter: param,
			Values:    catalog.Reconcile(param),
		})
	}
	return params
}
