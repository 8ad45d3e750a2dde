// Package store holds the domain model for documents and collections and
// wraps a vector database driver behind domain-level operations. All
// persistent state lives in the vector database; the store itself keeps no
// cross-request state.
package store

import (
	"context"
	"log/slog"
	"strings"

	"github.com/pkg/errors"
)

const (
	// DefaultCollection is the collection documents are written to.
	DefaultCollection = "documents"

	// DefaultVectorSize is the embedding dimension of the default
	// collection and the default for newly created collections.
	DefaultVectorSize = 384
)

// Sentinel errors drivers translate backend failures into. Everything else
// is surfaced as-is and treated as an upstream failure.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// Distance is the similarity metric used to rank nearest neighbors.
type Distance string

const (
	DistanceCosine Distance = "Cosine"
	DistanceEuclid Distance = "Euclid"
	DistanceDot    Distance = "Dot"
)

// ParseDistance maps a distance string to a Distance, defaulting to Cosine
// for unrecognized values.
func ParseDistance(s string) Distance {
	switch strings.ToLower(s) {
	case "euclid", "euclidean":
		return DistanceEuclid
	case "dot":
		return DistanceDot
	case "cosine":
		return DistanceCosine
	default:
		return DistanceCosine
	}
}

// Document is a stored text with arbitrary metadata. The vector derived
// from Text lives only in the vector database.
type Document struct {
	Metadata map[string]any `json:"metadata"`
	ID       string         `json:"id"`
	Text     string         `json:"text"`
}

// SearchResult is a ranked similarity search hit.
type SearchResult struct {
	Metadata map[string]any `json:"metadata"`
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Score    float32        `json:"score"`
}

// CollectionInfo describes a collection's state as reported by the store.
type CollectionInfo struct {
	Name         string `json:"name"`
	Status       string `json:"status"`
	VectorsCount uint64 `json:"vectors_count"`
	PointsCount  uint64 `json:"points_count"`
}

// Driver is the vector database access interface. Implementations must be
// safe for concurrent use. The scroll cursor is an opaque string owned by
// the driver; an empty cursor means "from the start" and an empty returned
// cursor means the scan is exhausted.
type Driver interface {
	CreateCollection(ctx context.Context, name string, vectorSize uint64, distance Distance) error
	DeleteCollection(ctx context.Context, name string) error
	ListCollections(ctx context.Context) ([]string, error)
	CollectionExists(ctx context.Context, name string) (bool, error)
	CollectionInfo(ctx context.Context, name string) (*CollectionInfo, error)

	Upsert(ctx context.Context, collection string, docs []*Document, vectors [][]float32) error
	Search(ctx context.Context, collection string, vector []float32, limit uint64) ([]*SearchResult, error)
	Scroll(ctx context.Context, collection string, limit uint32, offset string) ([]*Document, string, error)
	DeletePoints(ctx context.Context, collection string, ids []string) error

	Close() error
}

// Store provides domain-level access to documents and collections.
type Store struct {
	driver Driver
}

// New creates a new Store with the given driver.
func New(driver Driver) *Store {
	return &Store{driver: driver}
}

// Close closes the underlying driver connection.
func (s *Store) Close() error {
	return s.driver.Close()
}

// EnsureDefaultCollection creates the default collection if it does not
// exist. The existence check and the create are two calls; a concurrently
// starting instance can race on creation, in which case the duplicate
// create error is ignored.
func (s *Store) EnsureDefaultCollection(ctx context.Context) error {
	exists, err := s.driver.CollectionExists(ctx, DefaultCollection)
	if err != nil {
		return errors.Wrap(err, "check default collection")
	}
	if exists {
		return nil
	}

	err = s.driver.CreateCollection(ctx, DefaultCollection, DefaultVectorSize, DistanceCosine)
	if errors.Is(err, ErrAlreadyExists) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "create collection %s", DefaultCollection)
	}
	slog.Info("created collection", "collection", DefaultCollection, "vector_size", DefaultVectorSize)
	return nil
}

// AddDocuments writes documents with their precomputed vectors to the
// default collection. len(vectors) must equal len(docs).
func (s *Store) AddDocuments(ctx context.Context, docs []*Document, vectors [][]float32) error {
	if len(docs) != len(vectors) {
		return errors.Errorf("got %d documents but %d vectors", len(docs), len(vectors))
	}
	return s.driver.Upsert(ctx, DefaultCollection, docs, vectors)
}

// SearchDocuments returns the top-limit nearest neighbors of vector in the
// default collection, highest similarity first. Ordering is entirely the
// store's ranking; no re-ranking happens here.
func (s *Store) SearchDocuments(ctx context.Context, vector []float32, limit uint64) ([]*SearchResult, error) {
	return s.driver.Search(ctx, DefaultCollection, vector, limit)
}

// ListDocuments returns up to limit documents from the default collection
// plus the cursor for the next page ("" when exhausted).
func (s *Store) ListDocuments(ctx context.Context, limit uint32, offset string) ([]*Document, string, error) {
	return s.driver.Scroll(ctx, DefaultCollection, limit, offset)
}

// DeleteDocument removes a document by id from the default collection.
// Deleting an id that does not exist is a no-op success.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	return s.driver.DeletePoints(ctx, DefaultCollection, []string{id})
}

// ListCollections returns all collection names known to the store.
func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	return s.driver.ListCollections(ctx)
}

// CreateCollection creates a named collection. Returns ErrAlreadyExists if
// the name is taken. The existence pre-check and the create are not atomic;
// a duplicate create slipping through the race is still reported as
// ErrAlreadyExists by the driver.
func (s *Store) CreateCollection(ctx context.Context, name string, vectorSize uint64, distance Distance) error {
	exists, err := s.driver.CollectionExists(ctx, name)
	if err != nil {
		return errors.Wrapf(err, "check collection %s", name)
	}
	if exists {
		return errors.Wrapf(ErrAlreadyExists, "collection %q", name)
	}
	return s.driver.CreateCollection(ctx, name, vectorSize, distance)
}

// CollectionInfo returns counts and status for a named collection.
// Returns ErrNotFound if the collection does not exist.
func (s *Store) CollectionInfo(ctx context.Context, name string) (*CollectionInfo, error) {
	return s.driver.CollectionInfo(ctx, name)
}

// DeleteCollection deletes a named collection. Returns ErrNotFound if the
// collection does not exist.
func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	return s.driver.DeleteCollection(ctx, name)
}
