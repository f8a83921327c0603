package pipeline

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog-ingest/internal/catalog"
	"catalog-ingest/internal/store"
)

// recordingExec captures every statement the Writer issues.
type recordingExec struct {
	calls  []execCall
	failOn string
}

type execCall struct {
	table string
	args  []any
}

func (r *recordingExec) ExecContext(_ context.Context, query string, args ...any) (sql.Result, error) {
	table := strings.Fields(query)[2]
	if r.failOn != "" && table == r.failOn {
		return nil, errors.New("connection lost")
	}
	r.calls = append(r.calls, execCall{table: table, args: args})
	return nil, nil
}

func (r *recordingExec) Rebind(query string) string { return query }

func (r *recordingExec) tables() []string {
	out := make([]string, 0, len(r.calls))
	for _, c := range r.calls {
		out = append(out, c.table)
	}
	return out
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func decodeRecords(t *testing.T, src string) []catalog.RawRecord {
	t.Helper()
	dec := json.NewDecoder(bytes.NewBufferString(src))
	dec.UseNumber()
	var records []catalog.RawRecord
	require.NoError(t, dec.Decode(&records))
	return records
}

func newTestPipeline() *Pipeline {
	return New(catalog.NewAllowList(catalog.DefaultCategoryIDs...), quietLogger())
}

func TestRun_ScenarioWritesFourRows(t *testing.T) {
	records := decodeRecords(t, `[{
		"category": {"id": "74035"},
		"id": "p1",
		"name": "Coffee A",
		"parameters": [{"id": "c1", "valuesIds": ["c1_0"], "valuesLabels": ["Dark"]}]
	}]`)

	exec := &recordingExec{}
	summary, err := newTestPipeline().Run(context.Background(), records, store.NewWriter(exec))
	require.NoError(t, err)

	assert.Equal(t, []string{"products", "parameters", "parameter_values", "product_parameter_values"}, exec.tables())
	assert.Equal(t, "p1", exec.calls[0].args[0])
	assert.Equal(t, "c1", exec.calls[1].args[0])
	assert.Equal(t, "c1_0", exec.calls[2].args[0])
	assert.Equal(t, []any{"p1", "c1_0"}, exec.calls[3].args)

	assert.Equal(t, 1, summary.Received)
	assert.Equal(t, 1, summary.Written)
	assert.Equal(t, 1, summary.Parameters)
	assert.Equal(t, 1, summary.Values)
	assert.NotEmpty(t, summary.RunID)
}

func TestRun_IneligibleRecordsProduceNoWrites(t *testing.T) {
	records := decodeRecords(t, `[
		{"category": {"id": "1"}, "id": "p1", "name": "Tea", "parameters": [{"id": "c1", "valuesIds": ["c1_0"], "valuesLabels": ["x"]}]},
		{"id": "p2", "name": "No category"},
		{"category": "74035", "id": "p3", "name": "Malformed category"}
	]`)

	exec := &recordingExec{}
	summary, err := newTestPipeline().Run(context.Background(), records, store.NewWriter(exec))
	require.NoError(t, err)

	assert.Empty(t, exec.calls)
	assert.Equal(t, 3, summary.Ineligible)
	assert.Zero(t, summary.Written)
}

func TestRun_InvalidRecordIsSkipped(t *testing.T) {
	records := decodeRecords(t, `[
		{"category": {"id": "74035"}, "id": "bad"},
		{"category": {"id": "74033"}, "id": "good", "name": "Coffee B"}
	]`)

	exec := &recordingExec{}
	summary, err := newTestPipeline().Run(context.Background(), records, store.NewWriter(exec))
	require.NoError(t, err)

	assert.Equal(t, []string{"products"}, exec.tables())
	assert.Equal(t, "good", exec.calls[0].args[0])
	assert.Equal(t, 1, summary.Invalid)
	assert.Equal(t, 1, summary.Written)
	require.Len(t, summary.Rejected, 1)
	assert.Equal(t, Rejection{Index: 0, ProductID: "bad", Field: "name", Reason: "is required"}, summary.Rejected[0])
}

func TestRun_SkipsParametersWithoutValueIDs(t *testing.T) {
	records := decodeRecords(t, `[{
		"category": {"id": "74035"}, "id": "p1", "name": "Coffee A",
		"parameters": [
			{"id": "225693", "name": "EAN (GTIN)", "values": ["590"]},
			{"name": "no id", "valuesIds": ["x"], "valuesLabels": ["X"]},
			{"id": "c2", "name": "Grind", "valuesIds": [], "valuesLabels": ["Fine", "Coarse"]}
		]
	}]`)

	exec := &recordingExec{}
	summary, err := newTestPipeline().Run(context.Background(), records, store.NewWriter(exec))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"products",
		"parameters",
		"parameter_values", "product_parameter_values",
		"parameter_values", "product_parameter_values",
	}, exec.tables())
	assert.Equal(t, "590", *(exec.calls[0].args[6].(*string)))
	assert.Equal(t, "c2_0", exec.calls[2].args[0])
	assert.Equal(t, "c2_1", exec.calls[4].args[0])
	assert.Equal(t, 2, summary.Values)
}

func TestRun_WriteFaultEndsBatch(t *testing.T) {
	records := decodeRecords(t, `[
		{"category": {"id": "74035"}, "id": "p1", "name": "A", "parameters": [{"id": "c1", "valuesIds": ["c1_0"], "valuesLabels": ["x"]}]},
		{"category": {"id": "74035"}, "id": "p2", "name": "B"}
	]`)

	exec := &recordingExec{failOn: "parameter_values"}
	summary, err := newTestPipeline().Run(context.Background(), records, store.NewWriter(exec))
	require.Error(t, err)
	assert.Nil(t, summary)

	var wErr *store.WriteError
	require.True(t, errors.As(err, &wErr))
	assert.Equal(t, "parameter_values", wErr.Table)
	// p2 is never reached.
	assert.Equal(t, []string{"products", "parameters"}, exec.tables())
}
