package controller_test

import (
	"context"
	"errors"
	"iter"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/unclebandit/customer-service/internal/controller"
	"github.com/unclebandit/customer-service/internal/model"
	"github.com/unclebandit/customer-service/internal/repository"
	"github.com/unclebandit/customer-service/internal/service"
)

// --- Mock store ---

type MockStore struct {
	CreateFn   func(ctx context.Context, c model.Customer) (*model.Customer, error)
	FindByIDFn func(ctx context.Context, id string) (*model.Customer, error)
	FindAllFn  func(ctx context.Context) iter.Seq2[*model.Customer, error]
	UpdateFn   func(ctx context.Context, id string, c model.Customer) (*model.Customer, error)
	DeleteFn   func(ctx context.Context, id string) (*model.Customer, error)
}

func (m *MockStore) Create(ctx context.Context, c model.Customer) (*model.Customer, error) {
	return m.CreateFn(ctx, c)
}
func (m *MockStore) FindByID(ctx context.Context, id string) (*model.Customer, error) {
	return m.FindByIDFn(ctx, id)
}
func (m *MockStore) FindAll(ctx context.Context) iter.Seq2[*model.Customer, error] {
	return m.FindAllFn(ctx)
}
func (m *MockStore) Update(ctx context.Context, id string, c model.Customer) (*model.Customer, error) {
	return m.UpdateFn(ctx, id, c)
}
func (m *MockStore) Delete(ctx context.Context, id string) (*model.Customer, error) {
	return m.DeleteFn(ctx, id)
}

func newRouter(store controller.CustomerStore) http.Handler {
	r := chi.NewRouter()
	controller.NewCustomerController(store, zap.NewNop()).Register(r)
	return r
}

func newServiceRouter() http.Handler {
	svc := service.NewCustomerService(repository.NewMemoryCustomerRepository(), nil, zap.NewNop())
	return newRouter(svc)
}

func do(t *testing.T, h http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

// --- Tests ---

func TestCustomerLifecycle(t *testing.T) {
	h := newServiceRouter()

	created := do(t, h, http.MethodPost, "/api/v1/customer", `{"name":"Ana"}`)
	require.Equal(t, http.StatusCreated, created.Code)
	assert.Equal(t, "application/json", created.Header().Get("Content-Type"))

	body := decode(t, created)
	id, ok := body["id"].(string)
	require.True(t, ok)
	require.NotEmpty(t, id)
	assert.Equal(t, "Ana", body["name"])

	found := do(t, h, http.MethodGet, "/api/v1/customer/"+id, "")
	require.Equal(t, http.StatusOK, found.Code)
	assert.JSONEq(t, `{"id":"`+id+`","name":"Ana"}`, found.Body.String())

	deleted := do(t, h, http.MethodDelete, "/api/v1/customer/"+id, "")
	require.Equal(t, http.StatusOK, deleted.Code)
	assert.JSONEq(t, `{"id":"`+id+`","name":"Ana"}`, deleted.Body.String())

	gone := do(t, h, http.MethodGet, "/api/v1/customer/"+id, "")
	assert.Equal(t, http.StatusNotFound, gone.Code)
	assert.Empty(t, gone.Body.String())
}

func TestCreateKeepsUnknownFields(t *testing.T) {
	h := newServiceRouter()

	payload := `{"name":"Ana","address":{"city":"Lima","lines":["a","b"]},"vip":true,"score":4.5}`
	created := do(t, h, http.MethodPost, "/api/v1/customer", payload)
	require.Equal(t, http.StatusCreated, created.Code)

	id := decode(t, created)["id"].(string)
	found := do(t, h, http.MethodGet, "/api/v1/customer/"+id, "")
	assert.JSONEq(t, `{"id":"`+id+`",`+payload[1:], found.Body.String())
}

func TestCreateFailuresAreBadRequest(t *testing.T) {
	store := &MockStore{
		CreateFn: func(context.Context, model.Customer) (*model.Customer, error) {
			return nil, errors.New("connection refused")
		},
	}

	tests := []struct {
		name string
		h    http.Handler
		body string
	}{
		{name: "store failure", h: newRouter(store), body: `{"name":"Ana"}`},
		{name: "malformed json", h: newServiceRouter(), body: `{"name":`},
		{name: "not an object", h: newServiceRouter(), body: `["Ana"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, tt.h, http.MethodPost, "/api/v1/customer", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Empty(t, w.Body.String())
		})
	}
}

func TestCreateDuplicateIDIsBadRequest(t *testing.T) {
	h := newServiceRouter()

	first := do(t, h, http.MethodPost, "/api/v1/customer", `{"id":"c-1","name":"Ana"}`)
	require.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, "c-1", decode(t, first)["id"])

	second := do(t, h, http.MethodPost, "/api/v1/customer", `{"id":"c-1","name":"Bruno"}`)
	assert.Equal(t, http.StatusBadRequest, second.Code)

	found := do(t, h, http.MethodGet, "/api/v1/customer/c-1", "")
	assert.Equal(t, "Ana", decode(t, found)["name"])
}

func TestUpdate(t *testing.T) {
	h := newServiceRouter()

	created := do(t, h, http.MethodPost, "/api/v1/customer", `{"id":"c-1","name":"Ana","city":"Lima"}`)
	require.Equal(t, http.StatusCreated, created.Code)

	updated := do(t, h, http.MethodPut, "/api/v1/customer/c-1", `{"id":"ignored","name":"Ana Maria"}`)
	require.Equal(t, http.StatusOK, updated.Code)
	assert.JSONEq(t, `{"id":"c-1","name":"Ana Maria"}`, updated.Body.String())

	found := do(t, h, http.MethodGet, "/api/v1/customer/c-1", "")
	assert.JSONEq(t, `{"id":"c-1","name":"Ana Maria"}`, found.Body.String())

	missing := do(t, h, http.MethodPut, "/api/v1/customer/nope", `{"name":"Bruno"}`)
	assert.Equal(t, http.StatusNotFound, missing.Code)
	assert.Empty(t, missing.Body.String())

	stillMissing := do(t, h, http.MethodGet, "/api/v1/customer/nope", "")
	assert.Equal(t, http.StatusNotFound, stillMissing.Code)

	malformed := do(t, h, http.MethodPut, "/api/v1/customer/c-1", `nope`)
	assert.Equal(t, http.StatusBadRequest, malformed.Code)
}

func TestDeleteMissingLeavesStoreUnchanged(t *testing.T) {
	h := newServiceRouter()

	created := do(t, h, http.MethodPost, "/api/v1/customer", `{"id":"c-1","name":"Ana"}`)
	require.Equal(t, http.StatusCreated, created.Code)

	w := do(t, h, http.MethodDelete, "/api/v1/customer/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, w.Body.String())

	list := do(t, h, http.MethodGet, "/api/v1/customer", "")
	assert.JSONEq(t, `[{"id":"c-1","name":"Ana"}]`, list.Body.String())
}

func TestStoreFailuresAreServerErrors(t *testing.T) {
	boom := errors.New("boom")
	store := &MockStore{
		FindByIDFn: func(context.Context, string) (*model.Customer, error) { return nil, boom },
		UpdateFn:   func(context.Context, string, model.Customer) (*model.Customer, error) { return nil, boom },
		DeleteFn:   func(context.Context, string) (*model.Customer, error) { return nil, boom },
		FindAllFn: func(context.Context) iter.Seq2[*model.Customer, error] {
			return func(yield func(*model.Customer, error) bool) { yield(nil, boom) }
		},
	}
	h := newRouter(store)

	tests := []struct {
		method string
		path   string
		body   string
	}{
		{method: http.MethodGet, path: "/api/v1/customer/c-1"},
		{method: http.MethodPut, path: "/api/v1/customer/c-1", body: `{"name":"Ana"}`},
		{method: http.MethodDelete, path: "/api/v1/customer/c-1"},
		{method: http.MethodGet, path: "/api/v1/customer"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := do(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.Empty(t, w.Body.String())
		})
	}
}

func TestPathIDIsForwarded(t *testing.T) {
	var got []string
	record := func(id string) (*model.Customer, error) {
		got = append(got, id)
		return &model.Customer{ID: id}, nil
	}
	store := &MockStore{
		FindByIDFn: func(_ context.Context, id string) (*model.Customer, error) { return record(id) },
		UpdateFn:   func(_ context.Context, id string, _ model.Customer) (*model.Customer, error) { return record(id) },
		DeleteFn:   func(_ context.Context, id string) (*model.Customer, error) { return record(id) },
	}
	h := newRouter(store)

	do(t, h, http.MethodGet, "/api/v1/customer/a-1", "")
	do(t, h, http.MethodPut, "/api/v1/customer/b-2", `{}`)
	do(t, h, http.MethodDelete, "/api/v1/customer/c-3", "")

	assert.Equal(t, []string{"a-1", "b-2", "c-3"}, got)
}

func TestFindAll(t *testing.T) {
	h := newServiceRouter()

	empty := do(t, h, http.MethodGet, "/api/v1/customer", "")
	require.Equal(t, http.StatusOK, empty.Code)
	assert.JSONEq(t, `[]`, empty.Body.String())

	for _, name := range []string{"Ana", "Bruno", "Carla"} {
		w := do(t, h, http.MethodPost, "/api/v1/customer", `{"id":"`+strings.ToLower(name)+`","name":"`+name+`"}`)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	list := do(t, h, http.MethodGet, "/api/v1/customer", "")
	require.Equal(t, http.StatusOK, list.Code)
	assert.Equal(t, "application/json", list.Header().Get("Content-Type"))
	assert.JSONEq(t,
		`[{"id":"ana","name":"Ana"},{"id":"bruno","name":"Bruno"},{"id":"carla","name":"Carla"}]`,
		list.Body.String())
}

func TestFindAllNDJSON(t *testing.T) {
	h := newServiceRouter()

	for _, id := range []string{"a", "b"} {
		w := do(t, h, http.MethodPost, "/api/v1/customer", `{"id":"`+id+`"}`)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := do(t, h, http.MethodGet, "/api/v1/customer", "", "Accept", "application/x-ndjson")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/x-ndjson", w.Header().Get("Content-Type"))

	lines := strings.Split(strings.TrimSuffix(w.Body.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"id":"a"}`, lines[0])
	assert.JSONEq(t, `{"id":"b"}`, lines[1])

	empty := do(t, newServiceRouter(), http.MethodGet, "/api/v1/customer", "", "Accept", "application/x-ndjson")
	assert.Equal(t, http.StatusOK, empty.Code)
	assert.Empty(t, empty.Body.String())
}

func TestRoutesTable(t *testing.T) {
	routes := controller.NewCustomerController(&MockStore{}, zap.NewNop()).Routes()

	var got []string
	for _, r := range routes {
		got = append(got, r.Method+" "+r.Pattern)
	}

	assert.ElementsMatch(t, []string{
		"POST /api/v1/customer",
		"GET /api/v1/customer",
		"GET /api/v1/customer/{id}",
		"PUT /api/v1/customer/{id}",
		"DELETE /api/v1/customer/{id}",
	}, got)
}

func TestCreateRejectsPayloadsThatCannotBeWrittenBack(t *testing.T) {
	h := newServiceRouter()

	created := do(t, h, http.MethodPost, "/api/v1/customer", `{"id":"ok","name":"Ana"}`)
	require.Equal(t, http.StatusCreated, created.Code)

	for _, body := range []string{
		`{"id":"big","n":1e400}`,
		"{\"id\":\"utf\",\"name\":\"\xff\"}",
	} {
		w := do(t, h, http.MethodPost, "/api/v1/customer", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, w.Body.String())
	}

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/v1/customer/big", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/v1/customer/utf", "").Code)

	list := do(t, h, http.MethodGet, "/api/v1/customer", "")
	require.Equal(t, http.StatusOK, list.Code)
	assert.JSONEq(t, `[{"id":"ok","name":"Ana"}]`, list.Body.String())

	update := do(t, h, http.MethodPut, "/api/v1/customer/ok", `{"n":1e400}`)
	assert.Equal(t, http.StatusBadRequest, update.Code)

	found := do(t, h, http.MethodGet, "/api/v1/customer/ok", "")
	assert.JSONEq(t, `{"id":"ok","name":"Ana"}`, found.Body.String())
}

func TestTrailingDataIsRejected(t *testing.T) {
	h := newServiceRouter()

	w := do(t, h, http.MethodPost, "/api/v1/customer", `{"id":"c-1","a":1} garbage`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodPost, "/api/v1/customer", `{"id":"c-1","a":1} {"id":"c-2"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/v1/customer/c-1", "").Code)

	w = do(t, h, http.MethodPost, "/api/v1/customer", "{\"id\":\"c-1\",\"a\":1}\n  ")
	require.Equal(t, http.StatusCreated, w.Code)

	w = do(t, h, http.MethodPut, "/api/v1/customer/c-1", `{"a":2} trailing`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	found := do(t, h, http.MethodGet, "/api/v1/customer/c-1", "")
	assert.JSONEq(t, `{"id":"c-1","a":1}`, found.Body.String())
}

func TestCreateRejectsIDsThatAreNotOnePathSegment(t *testing.T) {
	h := newServiceRouter()

	w := do(t, h, http.MethodPost, "/api/v1/customer", `{"id":"a/b","name":"Ana"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	list := do(t, h, http.MethodGet, "/api/v1/customer", "")
	assert.JSONEq(t, `[]`, list.Body.String())
}
