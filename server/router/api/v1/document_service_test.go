package v1

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddDocument(t *testing.T) {
	driver := newMemDriver()
	s := newTestService(driver, &fakeEmbedder{})

	rec, err := doRequest(s, s.addDocument, http.MethodPost, "/documents",
		`{"text":"Vector databases are used for similarity search","metadata":{"source":"test"}}`, nil, nil)
	require.NoError(t, err)

	var resp AddDocumentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "added", resp.Status)
	assert.Equal(t, "Vector databases are used for similarity search", resp.Text)
	_, parseErr := uuid.Parse(resp.ID)
	assert.NoError(t, parseErr, "id should be a generated UUID")

	require.Len(t, driver.docs, 1)
	assert.Equal(t, resp.ID, driver.docs[0].doc.ID)
	assert.Equal(t, "test", driver.docs[0].doc.Metadata["source"])
}

func TestAddDocumentValidation(t *testing.T) {
	s := newTestService(newMemDriver(), &fakeEmbedder{})

	_, err := doRequest(s, s.addDocument, http.MethodPost, "/documents", `{"text":""}`, nil, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, httpStatus(err))

	_, err = doRequest(s, s.addDocument, http.MethodPost, "/documents", `{not json`, nil, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, httpStatus(err))
}

func TestAddDocumentEmbeddingFailure(t *testing.T) {
	s := newTestService(newMemDriver(), &fakeEmbedder{err: assert.AnError})

	_, err := doRequest(s, s.addDocument, http.MethodPost, "/documents", `{"text":"hello"}`, nil, nil)
	assert.Equal(t, http.StatusInternalServerError, httpStatus(err))
}

func TestAddDocumentBatch(t *testing.T) {
	driver := newMemDriver()
	s := newTestService(driver, &fakeEmbedder{})

	rec, err := doRequest(s, s.addDocumentBatch, http.MethodPost, "/documents/batch",
		`{"documents":[{"text":"first"},{"text":"second","metadata":{"k":"v"}}]}`, nil, nil)
	require.NoError(t, err)

	var resp AddDocumentBatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	require.Len(t, resp.Documents, 2)
	for _, d := range resp.Documents {
		assert.Equal(t, "added", d.Status)
	}
	assert.Len(t, driver.docs, 2)

	_, err = doRequest(s, s.addDocumentBatch, http.MethodPost, "/documents/batch", `{"documents":[]}`, nil, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, httpStatus(err))

	_, err = doRequest(s, s.addDocumentBatch, http.MethodPost, "/documents/batch",
		`{"documents":[{"text":""}]}`, nil, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, httpStatus(err))
}

func TestSearchDocumentsRanking(t *testing.T) {
	driver := newMemDriver()
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"Vector databases are used for similarity search": {1, 0, 0},
		"recipe for bread": {0, 1, 0},
		"similarity search databases": {0.9, 0, 0},
	}}
	s := newTestService(driver, embedder)

	for _, text := range []string{"Vector databases are used for similarity search", "recipe for bread"} {
		_, err := doRequest(s, s.addDocument, http.MethodPost, "/documents", `{"text":"`+text+`"}`, nil, nil)
		require.NoError(t, err)
	}

	rec, err := doRequest(s, s.searchDocuments, http.MethodPost, "/search",
		`{"query":"similarity search databases","limit":3}`, nil, nil)
	require.NoError(t, err)

	var resp SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "similarity search databases", resp.Query)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "Vector databases are used for similarity search", resp.Results[0].Text)
	assert.Greater(t, resp.Results[0].Score, resp.Results[1].Score,
		"related document should outrank the unrelated one")
}

func TestSearchDocumentsDefaults(t *testing.T) {
	driver := newMemDriver()
	s := newTestService(driver, &fakeEmbedder{})

	rec, err := doRequest(s, s.searchDocuments, http.MethodPost, "/search", `{"query":"anything"}`, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(defaultSearchLimit), driver.lastSearchLimit)

	var resp SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotNil(t, resp.Results)
}

func TestSearchDocumentsValidation(t *testing.T) {
	s := newTestService(newMemDriver(), &fakeEmbedder{})

	_, err := doRequest(s, s.searchDocuments, http.MethodPost, "/search", `{"query":""}`, nil, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, httpStatus(err))

	_, err = doRequest(s, s.searchDocuments, http.MethodPost, "/search", `{"query":"q","limit":-1}`, nil, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, httpStatus(err))

	_, err = doRequest(s, s.searchDocuments, http.MethodPost, "/search", `{"query": 5}`, nil, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, httpStatus(err))
}

func TestListDocumentsPagination(t *testing.T) {
	driver := newMemDriver()
	s := newTestService(driver, &fakeEmbedder{})

	const total = 5
	for i := 0; i < total; i++ {
		_, err := doRequest(s, s.addDocument, http.MethodPost, "/documents", `{"text":"doc `+itoa(i)+`"}`, nil, nil)
		require.NoError(t, err)
	}

	seen := make(map[string]bool)
	offset := ""
	pages := 0
	for {
		query := map[string]string{"limit": "2"}
		if offset != "" {
			query["offset"] = offset
		}
		rec, err := doRequest(s, s.listDocuments, http.MethodGet, "/documents", "", nil, query)
		require.NoError(t, err)

		var resp ListDocumentsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.LessOrEqual(t, len(resp.Documents), 2)
		assert.Equal(t, len(resp.Documents), resp.Total)
		for _, d := range resp.Documents {
			assert.False(t, seen[d.ID], "document %s returned twice", d.ID)
			seen[d.ID] = true
		}

		pages++
		require.Less(t, pages, 10, "pagination did not terminate")
		if resp.NextOffset == nil {
			break
		}
		offset = *resp.NextOffset
	}
	assert.Len(t, seen, total, "pagination should enumerate every document exactly once")
}

func TestListDocumentsZeroOffset(t *testing.T) {
	s := newTestService(newMemDriver(), &fakeEmbedder{})

	rec, err := doRequest(s, s.listDocuments, http.MethodGet, "/documents", "", nil,
		map[string]string{"offset": "0"})
	require.NoError(t, err)

	var resp ListDocumentsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Total)
	assert.Nil(t, resp.NextOffset)
}

func TestDeleteDocument(t *testing.T) {
	driver := newMemDriver()
	s := newTestService(driver, &fakeEmbedder{})

	rec, err := doRequest(s, s.addDocument, http.MethodPost, "/documents", `{"text":"to be deleted"}`, nil, nil)
	require.NoError(t, err)
	var added AddDocumentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &added))

	rec, err = doRequest(s, s.deleteDocument, http.MethodDelete, "/documents/:id", "",
		map[string]string{"id": added.ID}, nil)
	require.NoError(t, err)

	var resp DeleteDocumentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "deleted", resp.Status)
	assert.Equal(t, added.ID, resp.ID)
	assert.Empty(t, driver.docs)
}

func TestDeleteDocumentNonExistent(t *testing.T) {
	s := newTestService(newMemDriver(), &fakeEmbedder{})

	// Deleting an id that was never added is an idempotent success.
	_, err := doRequest(s, s.deleteDocument, http.MethodDelete, "/documents/:id", "",
		map[string]string{"id": uuid.NewString()}, nil)
	assert.Equal(t, http.StatusOK, httpStatus(err))
}
