package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/marketplace-service/internal/adapter/federation"
	"github.com/example/marketplace-service/internal/adapter/fedstore"
	"github.com/example/marketplace-service/internal/domain"
	"github.com/example/marketplace-service/internal/fees"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBase = "https://market.test"

func newTestServer(t *testing.T) (*Server, domain.Storage) {
	t.Helper()
	feds := fedstore.NewMemoryStore()
	store := federation.New(feds, nil, testBase, nil)
	calc := fees.Calculator{Rate: 0.30, PayoutAddress: "addrO"}
	return NewServer(store, calc, feds, testBase, nil), store
}

func doGet(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	return w
}

func TestHandleFees(t *testing.T) {
	s, _ := newTestServer(t)
	w := doGet(t, s, "/api/fees")
	require.Equal(t, http.StatusOK, w.Code)

	var info fees.Info
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, 0.30, info.Rate)
	assert.Equal(t, "30.0%", info.RatePercent)
	assert.Equal(t, "addrO", info.PayoutAddress)
}

func TestHandleProducts(t *testing.T) {
	s, store := newTestServer(t)
	ctx := context.Background()

	dev, err := store.CreateUser(ctx, domain.NewUser{Email: "d@x.y", Username: "dev", Role: domain.RoleDeveloper})
	require.NoError(t, err)
	_, err = store.CreateProduct(ctx, domain.NewProduct{
		Title: "Voidrunner", Price: 0.05, Category: "action",
		Type: domain.ProductGame, DeveloperID: dev.ID,
	})
	require.NoError(t, err)

	w := doGet(t, s, "/api/products?developerId="+dev.ID)
	require.Equal(t, http.StatusOK, w.Code)

	var products []domain.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &products))
	require.Len(t, products, 1)
	assert.Equal(t, "Voidrunner", products[0].Title)

	w = doGet(t, s, "/api/products?category=puzzle")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &products))
	assert.Empty(t, products)
}

func TestHandleFederationRecords(t *testing.T) {
	s, store := newTestServer(t)
	ctx := context.Background()

	_, err := store.CreateUser(ctx, domain.NewUser{Email: "a@x.y", Username: "alice", Role: domain.RoleUser})
	require.NoError(t, err)

	w := doGet(t, s, "/ap/u/alice")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/activity+json", w.Header().Get("Content-Type"))

	var actor map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &actor))
	assert.Equal(t, "alice", actor["preferredUsername"])

	w = doGet(t, s, "/ap/o/no-such-object")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFederationRoutesDisabledInDatabaseMode(t *testing.T) {
	store := federation.New(fedstore.NewMemoryStore(), nil, testBase, nil)
	s := NewServer(store, fees.Calculator{Rate: 0.1}, nil, testBase, nil)

	w := doGet(t, s, "/ap/u/alice")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
