package v1

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/vectorsmith/vectorsmith/store"
)

type AddDocumentRequest struct {
	Metadata map[string]any `json:"metadata"`
	Text     string         `json:"text"`
}

type AddDocumentResponse struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Status string `json:"status"`
}

func (s *APIV1Service) addDocument(c echo.Context) error {
	ctx := c.Request().Context()

	var req AddDocumentRequest
	if err := c.Bind(&req); err != nil {
		return badRequestBody("malformed request body")
	}
	if req.Text == "" {
		return badRequestBody("text must not be empty")
	}

	vector, err := s.Embedding.Embed(ctx, req.Text)
	if err != nil {
		return toHTTPError(err)
	}

	doc := &store.Document{
		ID:       uuid.NewString(),
		Text:     req.Text,
		Metadata: req.Metadata,
	}
	if err := s.Store.AddDocuments(ctx, []*store.Document{doc}, [][]float32{vector}); err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, AddDocumentResponse{
		ID:     doc.ID,
		Text:   doc.Text,
		Status: "added",
	})
}

type AddDocumentBatchRequest struct {
	Documents []AddDocumentRequest `json:"documents"`
}

type AddDocumentBatchResponse struct {
	Documents []AddDocumentResponse `json:"documents"`
	Total     int                   `json:"total"`
}

func (s *APIV1Service) addDocumentBatch(c echo.Context) error {
	ctx := c.Request().Context()

	var req AddDocumentBatchRequest
	if err := c.Bind(&req); err != nil {
		return badRequestBody("malformed request body")
	}
	if len(req.Documents) == 0 {
		return badRequestBody("documents must not be empty")
	}

	texts := make([]string, len(req.Documents))
	for i, d := range req.Documents {
		if d.Text == "" {
			return badRequestBody("text must not be empty")
		}
		texts[i] = d.Text
	}

	vectors, err := s.Embedding.EmbedBatch(ctx, texts)
	if err != nil {
		return toHTTPError(err)
	}

	docs := make([]*store.Document, len(req.Documents))
	results := make([]AddDocumentResponse, len(req.Documents))
	for i, d := range req.Documents {
		docs[i] = &store.Document{
			ID:       uuid.NewString(),
			Text:     d.Text,
			Metadata: d.Metadata,
		}
		results[i] = AddDocumentResponse{ID: docs[i].ID, Text: d.Text, Status: "added"}
	}
	if err := s.Store.AddDocuments(ctx, docs, vectors); err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, AddDocumentBatchResponse{
		Documents: results,
		Total:     len(results),
	})
}

type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type SearchResponse struct {
	Query   string                `json:"query"`
	Results []*store.SearchResult `json:"results"`
}

func (s *APIV1Service) searchDocuments(c echo.Context) error {
	ctx := c.Request().Context()

	var req SearchRequest
	if err := c.Bind(&req); err != nil {
		return badRequestBody("malformed request body")
	}
	if req.Query == "" {
		return badRequestBody("query must not be empty")
	}
	if req.Limit < 0 {
		return badRequestBody("limit must be positive")
	}
	if req.Limit == 0 {
		req.Limit = defaultSearchLimit
	}

	vector, err := s.Embedding.Embed(ctx, req.Query)
	if err != nil {
		return toHTTPError(err)
	}

	results, err := s.Store.SearchDocuments(ctx, vector, uint64(req.Limit))
	if err != nil {
		return toHTTPError(err)
	}
	if results == nil {
		results = []*store.SearchResult{}
	}

	return c.JSON(http.StatusOK, SearchResponse{
		Query:   req.Query,
		Results: results,
	})
}

type ListDocumentsResponse struct {
	Documents  []*store.Document `json:"documents"`
	Total      int               `json:"total"`
	Offset     string            `json:"offset"`
	NextOffset *string           `json:"next_offset"`
}

func (s *APIV1Service) listDocuments(c echo.Context) error {
	ctx := c.Request().Context()

	limit := defaultListLimit
	if err := echo.QueryParamsBinder(c).Int("limit", &limit).BindError(); err != nil {
		return badRequestBody("limit must be an integer")
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	offset := c.QueryParam("offset")
	if offset == "0" {
		// Accepted for parity with numeric-offset clients; scanning
		// numeric ids from zero is the same as scanning from the start.
		offset = ""
	}

	docs, next, err := s.Store.ListDocuments(ctx, uint32(limit), offset)
	if err != nil {
		return toHTTPError(err)
	}
	if docs == nil {
		docs = []*store.Document{}
	}

	resp := ListDocumentsResponse{
		Documents: docs,
		Total:     len(docs),
		Offset:    offset,
	}
	if next != "" {
		resp.NextOffset = &next
	}
	return c.JSON(http.StatusOK, resp)
}

type DeleteDocumentResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (s *APIV1Service) deleteDocument(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	if err := s.Store.DeleteDocument(ctx, id); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, DeleteDocumentResponse{
		ID:     id,
		Status: "deleted",
	})
}
