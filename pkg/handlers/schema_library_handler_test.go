package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/scanbench/scanbench-engine/pkg/apperrors"
	"github.com/scanbench/scanbench-engine/pkg/models"
	"github.com/scanbench/scanbench-engine/pkg/services"
	"github.com/scanbench/scanbench-engine/pkg/testhelpers"
)

// mockSchemaRepo implements repositories.SchemaRepository in memory.
type mockSchemaRepo struct {
	docs map[uuid.UUID]*models.SchemaDocument
}

func newMockSchemaRepo() *mockSchemaRepo {
	return &mockSchemaRepo{docs: make(map[uuid.UUID]*models.SchemaDocument)}
}

func (m *mockSchemaRepo) Create(_ context.Context, doc *models.SchemaDocument) error {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	m.docs[doc.ID] = doc
	return nil
}

func (m *mockSchemaRepo) Get(_ context.Context, id uuid.UUID) (*models.SchemaDocument, error) {
	doc, ok := m.docs[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return doc, nil
}

func (m *mockSchemaRepo) GetContent(_ context.Context, id uuid.UUID) (string, error) {
	doc, ok := m.docs[id]
	if !ok {
		return "", apperrors.ErrNotFound
	}
	return doc.Content, nil
}

func (m *mockSchemaRepo) List(_ context.Context) ([]*models.SchemaDocument, error) {
	var out []*models.SchemaDocument
	for _, doc := range m.docs {
		out = append(out, doc)
	}
	return out, nil
}

func (m *mockSchemaRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.docs[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(m.docs, id)
	return nil
}

func newSchemaTestMux(repo *mockSchemaRepo) *http.ServeMux {
	logger := zap.NewNop()
	mux := http.NewServeMux()
	NewSchemaLibraryHandler(repo, services.NewAcquisitionResolver(logger), logger).RegisterRoutes(mux)
	return mux
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestSchemaLibraryHandler_UploadJSON(t *testing.T) {
	repo := newMockSchemaRepo()
	mux := newSchemaTestMux(repo)

	content := testhelpers.SchemaContent("Site Protocol",
		testhelpers.MakeAcquisition("T1w", nil))
	rec := doJSON(t, mux, http.MethodPost, "/api/schemas", map[string]string{"content": content})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Data models.SchemaDocument `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Site Protocol", resp.Data.Name)
	assert.Equal(t, "json", resp.Data.Format)
	assert.Len(t, repo.docs, 1)
}

func TestSchemaLibraryHandler_UploadYAML(t *testing.T) {
	repo := newMockSchemaRepo()
	mux := newSchemaTestMux(repo)

	content := "name: YAML Protocol\nacquisitions:\n  - protocol_name: T2w\n"
	rec := doJSON(t, mux, http.MethodPost, "/api/schemas", map[string]string{"content": content})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Data models.SchemaDocument `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "yaml", resp.Data.Format)
}

func TestSchemaLibraryHandler_UploadRejectsBadInput(t *testing.T) {
	mux := newSchemaTestMux(newMockSchemaRepo())

	// Unparseable content.
	rec := doJSON(t, mux, http.MethodPost, "/api/schemas", map[string]string{"content": "{not json: ["})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// No acquisitions.
	rec = doJSON(t, mux, http.MethodPost, "/api/schemas", map[string]string{
		"content": `{"name":"empty","acquisitions":[]}`,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// No name anywhere.
	rec = doJSON(t, mux, http.MethodPost, "/api/schemas", map[string]string{
		"content": `{"acquisitions":[{"protocol_name":"T1w"}]}`,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, mux, http.MethodPost, "/api/schemas", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSchemaLibraryHandler_GetIncludesAcquisitionNames(t *testing.T) {
	repo := newMockSchemaRepo()
	mux := newSchemaTestMux(repo)

	doc := &models.SchemaDocument{
		Name: "Site Protocol",
		Content: testhelpers.SchemaContent("Site Protocol",
			testhelpers.MakeAcquisition("T1w_MPRAGE", nil),
			testhelpers.MakeAcquisition("BOLD_rest", nil)),
	}
	require.NoError(t, repo.Create(context.Background(), doc))

	rec := doJSON(t, mux, http.MethodGet, fmt.Sprintf("/api/schemas/%s", doc.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			Name             string   `json:"name"`
			AcquisitionNames []string `json:"acquisition_names"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"T1w_MPRAGE", "BOLD_rest"}, resp.Data.AcquisitionNames)
}

func TestSchemaLibraryHandler_GetAndDeleteNotFound(t *testing.T) {
	mux := newSchemaTestMux(newMockSchemaRepo())

	rec := doJSON(t, mux, http.MethodGet, fmt.Sprintf("/api/schemas/%s", uuid.New()), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, mux, http.MethodDelete, fmt.Sprintf("/api/schemas/%s", uuid.New()), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, mux, http.MethodGet, "/api/schemas/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
