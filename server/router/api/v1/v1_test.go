package v1

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/vectorsmith/vectorsmith/internal/profile"
	"github.com/vectorsmith/vectorsmith/store"
)

// fakeEmbedder returns canned vectors per text, or a unit vector for
// anything unknown.
type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{1, 0, 0}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int { return 3 }

type storedDoc struct {
	doc    *store.Document
	vector []float32
}

// memDriver is an in-memory store.Driver with dot-product ranking, enough
// to exercise every handler path.
type memDriver struct {
	collections map[string]store.Distance
	docs        []storedDoc

	lastSearchLimit uint64
	failWith        error
}

func newMemDriver() *memDriver {
	return &memDriver{collections: map[string]store.Distance{store.DefaultCollection: store.DistanceCosine}}
}

func (m *memDriver) CreateCollection(_ context.Context, name string, _ uint64, distance store.Distance) error {
	if m.failWith != nil {
		return m.failWith
	}
	if _, ok := m.collections[name]; ok {
		return errors.Wrapf(store.ErrAlreadyExists, "collection %q", name)
	}
	m.collections[name] = distance
	return nil
}

func (m *memDriver) DeleteCollection(_ context.Context, name string) error {
	if _, ok := m.collections[name]; !ok {
		return errors.Wrapf(store.ErrNotFound, "collection %q", name)
	}
	delete(m.collections, name)
	return nil
}

func (m *memDriver) ListCollections(_ context.Context) ([]string, error) {
	if m.failWith != nil {
		return nil, m.failWith
	}
	names := make([]string, 0, len(m.collections))
	for name := range m.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *memDriver) CollectionExists(_ context.Context, name string) (bool, error) {
	_, ok := m.collections[name]
	return ok, nil
}

func (m *memDriver) CollectionInfo(_ context.Context, name string) (*store.CollectionInfo, error) {
	if _, ok := m.collections[name]; !ok {
		return nil, errors.Wrapf(store.ErrNotFound, "collection %q", name)
	}
	count := uint64(len(m.docs))
	return &store.CollectionInfo{Name: name, Status: "Green", VectorsCount: count, PointsCount: count}, nil
}

func (m *memDriver) Upsert(_ context.Context, _ string, docs []*store.Document, vectors [][]float32) error {
	if m.failWith != nil {
		return m.failWith
	}
	for i, doc := range docs {
		m.docs = append(m.docs, storedDoc{doc: doc, vector: vectors[i]})
	}
	return nil
}

func (m *memDriver) Search(_ context.Context, _ string, vector []float32, limit uint64) ([]*store.SearchResult, error) {
	m.lastSearchLimit = limit
	results := make([]*store.SearchResult, 0, len(m.docs))
	for _, sd := range m.docs {
		var score float32
		for i := range vector {
			if i < len(sd.vector) {
				score += vector[i] * sd.vector[i]
			}
		}
		results = append(results, &store.SearchResult{
			ID:       sd.doc.ID,
			Score:    score,
			Text:     sd.doc.Text,
			Metadata: sd.doc.Metadata,
		})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if uint64(len(results)) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (m *memDriver) Scroll(_ context.Context, _ string, limit uint32, offset string) ([]*store.Document, string, error) {
	start := 0
	if offset != "" {
		for i, sd := range m.docs {
			if sd.doc.ID == offset {
				start = i
				break
			}
		}
	}
	end := start + int(limit)
	next := ""
	if end < len(m.docs) {
		next = m.docs[end].doc.ID
	} else {
		end = len(m.docs)
	}
	docs := make([]*store.Document, 0, end-start)
	for _, sd := range m.docs[start:end] {
		docs = append(docs, sd.doc)
	}
	return docs, next, nil
}

func (m *memDriver) DeletePoints(_ context.Context, _ string, ids []string) error {
	for _, id := range ids {
		for i, sd := range m.docs {
			if sd.doc.ID == id {
				m.docs = append(m.docs[:i], m.docs[i+1:]...)
				break
			}
		}
	}
	return nil
}

func (m *memDriver) Close() error { return nil }

func newTestService(driver store.Driver, embedder *fakeEmbedder) *APIV1Service {
	return NewAPIV1Service(
		&profile.Profile{Mode: "dev", Version: "test"},
		store.New(driver),
		embedder,
	)
}

// doRequest runs a handler directly with an echo context built from the
// given request parts. Path params are colon-prefixed in pathPattern.
func doRequest(s *APIV1Service, handler func(echo.Context) error, method, pathPattern, body string, params map[string]string, query map[string]string) (*httptest.ResponseRecorder, error) {
	e := echo.New()
	target := "/"
	if len(query) > 0 {
		pairs := make([]string, 0, len(query))
		for k, v := range query {
			pairs = append(pairs, k+"="+v)
		}
		target += "?" + strings.Join(pairs, "&")
	}
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath(pathPattern)
	names := make([]string, 0, len(params))
	values := make([]string, 0, len(params))
	for k, v := range params {
		names = append(names, k)
		values = append(values, v)
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)
	return rec, handler(c)
}

func httpStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if httpErr, ok := err.(*echo.HTTPError); ok {
		return httpErr.Code
	}
	return http.StatusInternalServerError
}

func itoa(n int) string { return strconv.Itoa(n) }
