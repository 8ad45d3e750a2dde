// Package v1 implements the HTTP API: stateless handlers translating JSON
// requests into embedding and vector store calls. Status codes are
// assigned here and nowhere deeper in the stack.
package v1

import (
	"github.com/labstack/echo/v4"

	"github.com/vectorsmith/vectorsmith/ai"
	"github.com/vectorsmith/vectorsmith/internal/profile"
	"github.com/vectorsmith/vectorsmith/store"
)

const (
	defaultSearchLimit = 5
	defaultListLimit   = 100
)

// APIV1Service bundles the handlers' collaborators. Handlers hold no other
// state; everything persistent lives in the vector store.
type APIV1Service struct {
	Profile   *profile.Profile
	Store     *store.Store
	Embedding ai.EmbeddingService
}

// NewAPIV1Service creates the API service.
func NewAPIV1Service(profile *profile.Profile, store *store.Store, embedding ai.EmbeddingService) *APIV1Service {
	return &APIV1Service{
		Profile:   profile,
		Store:     store,
		Embedding: embedding,
	}
}

// Register mounts all routes on the echo instance.
func (s *APIV1Service) Register(e *echo.Echo) {
	e.POST("/documents", s.addDocument)
	e.POST("/documents/batch", s.addDocumentBatch)
	e.GET("/documents", s.listDocuments)
	e.DELETE("/documents/:id", s.deleteDocument)
	e.POST("/search", s.searchDocuments)

	e.GET("/collections", s.listCollections)
	e.POST("/collections", s.createCollection)
	e.GET("/collections/:name/info", s.collectionInfo)
	e.DELETE("/collections/:name", s.deleteCollection)
}
