// Package qdrant implements store.Driver against a Qdrant server using the
// official gRPC client.
package qdrant

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vectorsmith/vectorsmith/store"
)

// payloadTextKey is the payload field holding the document text; every
// other payload field is document metadata.
const payloadTextKey = "text"

// Driver talks to a single Qdrant instance.
type Driver struct {
	client *qdrant.Client
}

// NewDriver connects to Qdrant at host:port (gRPC).
func NewDriver(host string, port int) (*Driver, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "connect qdrant %s:%d", host, port)
	}
	return &Driver{client: client}, nil
}

func (d *Driver) Close() error {
	return d.client.Close()
}

func (d *Driver) CreateCollection(ctx context.Context, name string, vectorSize uint64, distance store.Distance) error {
	err := d.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     vectorSize,
			Distance: toQdrantDistance(distance),
		}),
	})
	return classify(err)
}

func (d *Driver) DeleteCollection(ctx context.Context, name string) error {
	// Qdrant deletes collections idempotently; the explicit existence
	// check gives missing collections a distinguishable error.
	exists, err := d.client.CollectionExists(ctx, name)
	if err != nil {
		return classify(err)
	}
	if !exists {
		return errors.Wrapf(store.ErrNotFound, "collection %q", name)
	}
	return classify(d.client.DeleteCollection(ctx, name))
}

func (d *Driver) ListCollections(ctx context.Context) ([]string, error) {
	names, err := d.client.ListCollections(ctx)
	if err != nil {
		return nil, classify(err)
	}
	return names, nil
}

func (d *Driver) CollectionExists(ctx context.Context, name string) (bool, error) {
	exists, err := d.client.CollectionExists(ctx, name)
	if err != nil {
		return false, classify(err)
	}
	return exists, nil
}

func (d *Driver) CollectionInfo(ctx context.Context, name string) (*store.CollectionInfo, error) {
	info, err := d.client.GetCollectionInfo(ctx, name)
	if err != nil {
		return nil, classify(err)
	}
	return &store.CollectionInfo{
		Name:         name,
		Status:       info.GetStatus().String(),
		VectorsCount: info.GetVectorsCount(),
		PointsCount:  info.GetPointsCount(),
	}, nil
}

func (d *Driver) Upsert(ctx context.Context, collection string, docs []*store.Document, vectors [][]float32) error {
	points := make([]*qdrant.PointStruct, len(docs))
	for i, doc := range docs {
		payload := map[string]any{payloadTextKey: doc.Text}
		for k, v := range doc.Metadata {
			payload[k] = v
		}
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(doc.ID),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(payload),
		}
	}
	_, err := d.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		// Wait so the write is visible to an immediately following
		// search or scroll.
		Wait:   qdrant.PtrOf(true),
		Points: points,
	})
	return classify(err)
}

func (d *Driver) Search(ctx context.Context, collection string, vector []float32, limit uint64) ([]*store.SearchResult, error) {
	hits, err := d.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(limit),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, classify(err)
	}

	results := make([]*store.SearchResult, len(hits))
	for i, hit := range hits {
		text, metadata := splitPayload(hit.GetPayload())
		results[i] = &store.SearchResult{
			ID:       pointIDString(hit.GetId()),
			Score:    hit.GetScore(),
			Text:     text,
			Metadata: metadata,
		}
	}
	return results, nil
}

func (d *Driver) Scroll(ctx context.Context, collection string, limit uint32, offset string) ([]*store.Document, string, error) {
	req := &qdrant.ScrollPoints{
		CollectionName: collection,
		Limit:          qdrant.PtrOf(limit),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	}
	if offset != "" {
		id, ok := parsePointID(offset)
		if !ok {
			return nil, "", errors.Errorf("invalid scroll cursor %q", offset)
		}
		req.Offset = id
	}

	// The wrapped Scroll drops the next-page cursor, so use the points
	// client directly.
	resp, err := d.client.GetPointsClient().Scroll(ctx, req)
	if err != nil {
		return nil, "", classify(err)
	}

	docs := make([]*store.Document, len(resp.GetResult()))
	for i, point := range resp.GetResult() {
		text, metadata := splitPayload(point.GetPayload())
		docs[i] = &store.Document{
			ID:       pointIDString(point.GetId()),
			Text:     text,
			Metadata: metadata,
		}
	}

	next := ""
	if resp.GetNextPageOffset() != nil {
		next = pointIDString(resp.GetNextPageOffset())
	}
	return docs, next, nil
}

func (d *Driver) DeletePoints(ctx context.Context, collection string, ids []string) error {
	selector := make([]*qdrant.PointId, 0, len(ids))
	for _, raw := range ids {
		// An id that is neither numeric nor a UUID cannot exist in
		// Qdrant; skip it rather than fail the whole delete.
		if id, ok := parsePointID(raw); ok {
			selector = append(selector, id)
		}
	}
	if len(selector) == 0 {
		return nil
	}
	_, err := d.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelector(selector...),
	})
	return classify(err)
}

// parsePointID maps an opaque id/cursor string to a Qdrant point id.
// Unsigned integers become numeric ids, UUIDs become UUID ids.
func parsePointID(s string) (*qdrant.PointId, bool) {
	if n, err := strconv.ParseUint(s, 10, 64); err == nil {
		return qdrant.NewIDNum(n), true
	}
	if _, err := uuid.Parse(s); err == nil {
		return qdrant.NewID(s), true
	}
	return nil, false
}

func pointIDString(id *qdrant.PointId) string {
	if u := id.GetUuid(); u != "" {
		return u
	}
	return strconv.FormatUint(id.GetNum(), 10)
}

// splitPayload separates the document text from the rest of the payload.
func splitPayload(payload map[string]*qdrant.Value) (string, map[string]any) {
	text := payload[payloadTextKey].GetStringValue()
	metadata := make(map[string]any, len(payload))
	for k, v := range payload {
		if k == payloadTextKey {
			continue
		}
		metadata[k] = valueToAny(v)
	}
	return text, metadata
}

func valueToAny(v *qdrant.Value) any {
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_NullValue:
		return nil
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_ListValue:
		values := kind.ListValue.GetValues()
		list := make([]any, len(values))
		for i, item := range values {
			list[i] = valueToAny(item)
		}
		return list
	case *qdrant.Value_StructValue:
		fields := kind.StructValue.GetFields()
		m := make(map[string]any, len(fields))
		for k, item := range fields {
			m[k] = valueToAny(item)
		}
		return m
	default:
		return nil
	}
}

func toQdrantDistance(distance store.Distance) qdrant.Distance {
	switch distance {
	case store.DistanceEuclid:
		return qdrant.Distance_Euclid
	case store.DistanceDot:
		return qdrant.Distance_Dot
	default:
		return qdrant.Distance_Cosine
	}
}

// classify maps backend errors onto the store's sentinel errors. Anything
// unrecognized passes through as an upstream failure.
func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if s, ok := status.FromError(errors.Cause(err)); ok {
		switch s.Code() {
		case codes.NotFound:
			return errors.Wrap(store.ErrNotFound, msg)
		case codes.AlreadyExists:
			return errors.Wrap(store.ErrAlreadyExists, msg)
		}
		msg = s.Message()
	}
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "doesn't exist") || strings.Contains(lower, "not found"):
		return errors.Wrap(store.ErrNotFound, msg)
	case strings.Contains(lower, "already exists"):
		return errors.Wrap(store.ErrAlreadyExists, msg)
	}
	return err
}
