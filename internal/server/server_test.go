package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog-ingest/internal/catalog"
	"catalog-ingest/internal/datastore"
	"catalog-ingest/internal/pipeline"
	"catalog-ingest/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type failingStore struct{}

func (failingStore) WithTx(context.Context, func(w *store.Writer) error) error {
	return errors.New("failed to begin transaction: connection refused")
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newEngine(t *testing.T, s pipeline.TxRunner) *gin.Engine {
	t.Helper()
	return newEngineWithLimit(t, s, 0)
}

func newEngineWithLimit(t *testing.T, s pipeline.TxRunner, limit int64) *gin.Engine {
	t.Helper()
	p := pipeline.New(catalog.NewAllowList(catalog.DefaultCategoryIDs...), quietLogger())
	return New(p, s, quietLogger(), limit)
}

func post(r http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/batches", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r := newEngine(t, failingStore{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "ok"}`, w.Body.String())
}

func TestPostBatch_Commits(t *testing.T) {
	ctx := context.Background()
	s, err := datastore.Open(ctx, datastore.Config{Type: datastore.SQLiteStore, SQLitePath: datastore.MemoryPath})
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.InitDB(ctx))

	w := post(newEngine(t, s), `{"products": [
		{"id": "p1", "name": "Coffee A", "category": {"id": "74035"},
		 "parameters": [{"id": "c1", "valuesIds": ["c1_0"], "valuesLabels": ["Dark"]}]},
		{"id": "p2", "category": {"id": "74035"}}
	]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var summary pipeline.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, 2, summary.Received)
	assert.Equal(t, 1, summary.Written)
	assert.Equal(t, 1, summary.Invalid)

	counts, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.ProductParameterValues)
}

func TestPostBatch_BadDocument(t *testing.T) {
	w := post(newEngine(t, failingStore{}), `{"products": "nope"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostBatch_StoreFault(t *testing.T) {
	w := post(newEngine(t, failingStore{}), `{"products": []}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "rolled back")
}

func TestPostBatch_BodyTooLarge(t *testing.T) {
	body := `{"products": [` + strings.Repeat(`{"id": "p", "name": "n"},`, 100) + `{}]}`
	w := post(newEngineWithLimit(t, failingStore{}, 256), body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "exceeds limit")
}
