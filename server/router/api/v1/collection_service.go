package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vectorsmith/vectorsmith/store"
)

type CollectionName struct {
	Name string `json:"name"`
}

type ListCollectionsResponse struct {
	Collections []CollectionName `json:"collections"`
}

func (s *APIV1Service) listCollections(c echo.Context) error {
	names, err := s.Store.ListCollections(c.Request().Context())
	if err != nil {
		return toHTTPError(err)
	}

	collections := make([]CollectionName, len(names))
	for i, name := range names {
		collections[i] = CollectionName{Name: name}
	}
	return c.JSON(http.StatusOK, ListCollectionsResponse{Collections: collections})
}

type CreateCollectionRequest struct {
	Name       string `json:"name"`
	Distance   string `json:"distance"`
	VectorSize uint64 `json:"vector_size"`
}

type CreateCollectionResponse struct {
	Name       string `json:"name"`
	Distance   string `json:"distance"`
	Status     string `json:"status"`
	VectorSize uint64 `json:"vector_size"`
}

func (s *APIV1Service) createCollection(c echo.Context) error {
	ctx := c.Request().Context()

	var req CreateCollectionRequest
	if err := c.Bind(&req); err != nil {
		return badRequestBody("malformed request body")
	}
	if req.Name == "" {
		return badRequestBody("name must not be empty")
	}
	if req.VectorSize == 0 {
		req.VectorSize = store.DefaultVectorSize
	}

	// Unrecognized distance strings fall back to Cosine.
	distance := store.ParseDistance(req.Distance)

	if err := s.Store.CreateCollection(ctx, req.Name, req.VectorSize, distance); err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, CreateCollectionResponse{
		Name:       req.Name,
		VectorSize: req.VectorSize,
		Distance:   string(distance),
		Status:     "created",
	})
}

func (s *APIV1Service) collectionInfo(c echo.Context) error {
	info, err := s.Store.CollectionInfo(c.Request().Context(), c.Param("name"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, info)
}

type DeleteCollectionResponse struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

func (s *APIV1Service) deleteCollection(c echo.Context) error {
	name := c.Param("name")
	if err := s.Store.DeleteCollection(c.Request().Context(), name); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, DeleteCollectionResponse{
		Name:   name,
		Status: "deleted",
	})
}
