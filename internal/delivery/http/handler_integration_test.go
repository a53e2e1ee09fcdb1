package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/motospec/backend/config"
	"github.com/motospec/backend/internal/domain"
	"github.com/motospec/backend/internal/infrastructure/cache"
	"github.com/motospec/backend/internal/infrastructure/catalog"
	"github.com/motospec/backend/internal/usecase"
	"github.com/rs/zerolog"
)

// TestMain sets up test environment before running tests
func TestMain(m *testing.M) {
	// Set Gin to test mode once for all tests
	gin.SetMode(gin.TestMode)

	os.Exit(m.Run())
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:           "8080",
			Environment:    "test",
			AllowedOrigins: []string{"http://localhost:*"},
		},
		Catalog: config.CatalogConfig{Type: "memory"},
		Cache:   config.CacheConfig{Type: "memory"},
	}
}

// setupTestRouter creates a test router without a similarity service
func setupTestRouter() *gin.Engine {
	handler := NewHandler(nil, zerolog.Nop())
	return SetupRouter(testConfig(), handler, zerolog.Nop())
}

// mockFetcher is a mock implementation of domain.RecordFetcher
type mockFetcher struct {
	record domain.Record
	err    error
	calls  int
}

func (m *mockFetcher) FetchRecord(ctx context.Context, model, variant string) (domain.Record, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.record.Clone(), nil
}

func bike(name string, cc float64, power string) domain.Record {
	return domain.Record{
		domain.FieldModels:  name,
		"Displacement (cc)": cc,
		"Maximum Power":     power,
		"Engine Layout":     "Parallel Twin",
		"ABS":               "Dual Channel",
	}
}

func testCatalog() *domain.Catalog {
	c := domain.NewCatalog()
	c.Append(bike("Interceptor 650", 648, "47 PS @ 7250 rpm"))
	c.Append(bike("Continental GT 650", 649, "47 PS @ 7250 rpm"))
	c.Append(bike("Speed Twin 900", 900, "65 PS @ 7500 rpm"))
	return c
}

// setupTestRouterWithService creates a test router with a real SimilarityService over an in-memory catalog
func setupTestRouterWithService(t *testing.T, store domain.CatalogStore, fetcher domain.RecordFetcher) *gin.Engine {
	t.Helper()

	memCache := cache.NewMemoryCache(0)
	t.Cleanup(func() { memCache.Close() })

	service := usecase.NewSimilarityService(store, memCache, fetcher, zerolog.Nop(), usecase.SimilarityServiceConfig{
		TopN:          5,
		QuerySnapping: true,
	})
	handler := NewHandler(service, zerolog.Nop())
	return SetupRouter(testConfig(), handler, zerolog.Nop())
}

func doJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req, _ = http.NewRequest(method, path, nil)
	} else {
		req, _ = http.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// TestHealthCheckEndpoint tests the health check endpoint
func TestHealthCheckEndpoint(t *testing.T) {
	t.Run("returns healthy status", func(t *testing.T) {
		w := doJSON(setupTestRouter(), "GET", "/health", "")

		if w.Code != http.StatusOK {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		var response map[string]interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if response["status"] != "healthy" {
			t.Errorf("status = %v, want healthy", response["status"])
		}
		if response["service"] != "motospec-backend" {
			t.Errorf("service = %v, want motospec-backend", response["service"])
		}
	})

	t.Run("accepts GET requests only", func(t *testing.T) {
		router := setupTestRouter()
		for _, method := range []string{"POST", "PUT", "DELETE", "PATCH"} {
			w := doJSON(router, method, "/health", "")
			if w.Code != http.StatusNotFound {
				t.Errorf("Method %s: Status = %d, want %d", method, w.Code, http.StatusNotFound)
			}
		}
	})
}

// TestEndpointsWithoutService tests that every API route reports a missing service
func TestEndpointsWithoutService(t *testing.T) {
	endpoints := []struct {
		method string
		path   string
		body   string
	}{
		{"GET", "/api/v1/models/similar?name=x", ""},
		{"POST", "/api/v1/models/fetch", `{"model":"x"}`},
		{"POST", "/api/v1/similarity/compare", `{"Models":"x"}`},
		{"GET", "/api/v1/similarity/matrix", ""},
		{"POST", "/api/v1/catalog/records", `{"Models":"x"}`},
	}

	router := setupTestRouter()
	for _, ep := range endpoints {
		t.Run(ep.method+" "+ep.path, func(t *testing.T) {
			w := doJSON(router, ep.method, ep.path, ep.body)

			if w.Code != http.StatusServiceUnavailable {
				t.Errorf("Status = %d, want %d", w.Code, http.StatusServiceUnavailable)
			}
			if got := w.Header().Get("Content-Type"); got != "application/json; charset=utf-8" {
				t.Errorf("Content-Type = %q, want application/json", got)
			}
			if !strings.Contains(w.Body.String(), "not configured") {
				t.Errorf("body = %s, want to contain 'not configured'", w.Body.String())
			}
		})
	}
}

// TestSimilarModelsEndpoint tests ranking a catalog model against the catalog
func TestSimilarModelsEndpoint(t *testing.T) {
	t.Run("ranks the nearest model first", func(t *testing.T) {
		router := setupTestRouterWithService(t, catalog.NewMemoryStore(testCatalog()), nil)

		w := doJSON(router, "GET", "/api/v1/models/similar?name=Interceptor%20650&snapping=true", "")
		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d; body %s", w.Code, http.StatusOK, w.Body.String())
		}

		var result domain.SimilarityResult
		if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if !result.Found || !result.Snapping {
			t.Errorf("Found = %v, Snapping = %v, want true, true", result.Found, result.Snapping)
		}
		if len(result.Matches) != 2 {
			t.Fatalf("len(Matches) = %d, want 2", len(result.Matches))
		}
		if result.Matches[0].Model != "Continental GT 650" {
			t.Errorf("Matches[0].Model = %s, want Continental GT 650", result.Matches[0].Model)
		}
		for _, m := range result.Matches {
			if m.Model == "Interceptor 650" {
				t.Errorf("reference model returned in its own matches")
			}
		}
	})

	t.Run("top_n truncates", func(t *testing.T) {
		router := setupTestRouterWithService(t, catalog.NewMemoryStore(testCatalog()), nil)

		w := doJSON(router, "GET", "/api/v1/models/similar?name=Interceptor%20650&top_n=1", "")
		var result domain.SimilarityResult
		if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if len(result.Matches) != 1 {
			t.Errorf("len(Matches) = %d, want 1", len(result.Matches))
		}
	})

	t.Run("unknown model returns 404", func(t *testing.T) {
		router := setupTestRouterWithService(t, catalog.NewMemoryStore(testCatalog()), nil)

		w := doJSON(router, "GET", "/api/v1/models/similar?name=Unknown", "")
		if w.Code != http.StatusNotFound {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusNotFound)
		}
	})

	t.Run("invalid query parameters return 400", func(t *testing.T) {
		router := setupTestRouterWithService(t, catalog.NewMemoryStore(testCatalog()), nil)

		paths := []string{
			"/api/v1/models/similar",
			"/api/v1/models/similar?name=Interceptor%20650&top_n=abc",
			"/api/v1/models/similar?name=Interceptor%20650&snapping=maybe",
			"/api/v1/models/similar?name=Interceptor%20650&tolerance=2",
		}
		for _, path := range paths {
			w := doJSON(router, "GET", path, "")
			if w.Code != http.StatusBadRequest {
				t.Errorf("%s: Status = %d, want %d", path, w.Code, http.StatusBadRequest)
			}
		}
	})

	t.Run("catalog without feature columns returns 422", func(t *testing.T) {
		bare := &domain.Catalog{Columns: []string{domain.FieldModels}}
		bare.Append(domain.Record{domain.FieldModels: "Interceptor 650"})
		router := setupTestRouterWithService(t, catalog.NewMemoryStore(bare), nil)

		w := doJSON(router, "GET", "/api/v1/models/similar?name=Interceptor%20650", "")
		if w.Code != http.StatusUnprocessableEntity {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusUnprocessableEntity)
		}
	})
}

// TestCompareRecordEndpoint tests ranking an external record against the catalog
func TestCompareRecordEndpoint(t *testing.T) {
	t.Run("compares without storing", func(t *testing.T) {
		store := catalog.NewMemoryStore(testCatalog())
		router := setupTestRouterWithService(t, store, nil)

		body := `{"Models":"Shotgun 650","Displacement (cc)":648.5,"Maximum Power":"46.4 PS @ 7250 rpm","Engine Layout":"Parallel Twin","ABS":"Dual Channel"}`
		w := doJSON(router, "POST", "/api/v1/similarity/compare", body)
		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d; body %s", w.Code, http.StatusOK, w.Body.String())
		}

		var result domain.SimilarityResult
		if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if len(result.Matches) != 3 {
			t.Errorf("len(Matches) = %d, want 3", len(result.Matches))
		}
		if result.Matches[len(result.Matches)-1].Model != "Speed Twin 900" {
			t.Errorf("last match = %s, want Speed Twin 900", result.Matches[len(result.Matches)-1].Model)
		}
		if store.Size() != 3 {
			t.Errorf("store.Size() = %d, want 3", store.Size())
		}
	})

	t.Run("record without a name returns 400", func(t *testing.T) {
		router := setupTestRouterWithService(t, catalog.NewMemoryStore(testCatalog()), nil)

		w := doJSON(router, "POST", "/api/v1/similarity/compare", `{"Displacement (cc)":650}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("malformed JSON returns 400", func(t *testing.T) {
		router := setupTestRouterWithService(t, catalog.NewMemoryStore(testCatalog()), nil)

		w := doJSON(router, "POST", "/api/v1/similarity/compare", `{"Models":`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

// TestSimilarityMatrixEndpoint tests the pairwise matrix
func TestSimilarityMatrixEndpoint(t *testing.T) {
	router := setupTestRouterWithService(t, catalog.NewMemoryStore(testCatalog()), nil)

	w := doJSON(router, "GET", "/api/v1/similarity/matrix", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
	}

	var response struct {
		Models []string    `json:"models"`
		Matrix [][]float64 `json:"matrix"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if len(response.Models) != 3 || len(response.Matrix) != 3 {
		t.Fatalf("got %d models and %d rows, want 3 and 3", len(response.Models), len(response.Matrix))
	}
	for i := range response.Matrix {
		for j := range response.Matrix[i] {
			if response.Matrix[i][j] != response.Matrix[j][i] {
				t.Errorf("matrix[%d][%d] = %v, matrix[%d][%d] = %v, want symmetric", i, j, response.Matrix[i][j], j, i, response.Matrix[j][i])
			}
		}
	}
}

// TestAppendRecordEndpoint tests catalog mutation
func TestAppendRecordEndpoint(t *testing.T) {
	t.Run("appends and serializes list fields", func(t *testing.T) {
		store := catalog.NewMemoryStore(testCatalog())
		router := setupTestRouterWithService(t, store, nil)

		body := `{"Models":"Shotgun 650","Displacement (cc)":648,"Ex-Showroom Price INR":["3,59,430","3,73,000"]}`
		w := doJSON(router, "POST", "/api/v1/catalog/records", body)
		if w.Code != http.StatusCreated {
			t.Fatalf("Status = %d, want %d; body %s", w.Code, http.StatusCreated, w.Body.String())
		}

		c, err := store.Load(context.Background())
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		row := c.Find("Shotgun 650")
		if row == nil {
			t.Fatalf("appended row not found")
		}
		if got := row["Ex-Showroom Price INR"]; got != `["3,59,430","3,73,000"]` {
			t.Errorf("price = %v, want JSON-encoded list", got)
		}
	})

	t.Run("record without a name returns 400", func(t *testing.T) {
		store := catalog.NewMemoryStore(testCatalog())
		router := setupTestRouterWithService(t, store, nil)

		w := doJSON(router, "POST", "/api/v1/catalog/records", `{"Variant":"Base"}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
		if store.Size() != 3 {
			t.Errorf("store.Size() = %d, want 3", store.Size())
		}
	})
}

// TestFetchModelEndpoint tests fetch-and-compare
func TestFetchModelEndpoint(t *testing.T) {
	fetched := domain.Record{
		domain.FieldModels:      "Shotgun 650",
		"Displacement (cc)":     "648",
		"Maximum Power":         "47 PS @ 7250 rpm",
		"Engine Layout":         "Parallel Twin",
		"ABS":                   "Dual Channel",
		"Ex-Showroom Price INR": "3,59,430; 3,73,000",
	}

	t.Run("returns record, ranking and table", func(t *testing.T) {
		fetcher := &mockFetcher{record: fetched}
		router := setupTestRouterWithService(t, catalog.NewMemoryStore(testCatalog()), fetcher)

		w := doJSON(router, "POST", "/api/v1/models/fetch", `{"model":"Shotgun 650"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d; body %s", w.Code, http.StatusOK, w.Body.String())
		}

		var response usecase.FetchComparison
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		if !response.Result.Found {
			t.Errorf("Result.Found = false, want true")
		}
		if len(response.Table.Headers) != 2+len(response.Result.Matches) {
			t.Errorf("len(Headers) = %d, want %d", len(response.Table.Headers), 2+len(response.Result.Matches))
		}
	})

	t.Run("second fetch is served from cache", func(t *testing.T) {
		fetcher := &mockFetcher{record: fetched}
		router := setupTestRouterWithService(t, catalog.NewMemoryStore(testCatalog()), fetcher)

		doJSON(router, "POST", "/api/v1/models/fetch", `{"model":"Shotgun 650"}`)
		doJSON(router, "POST", "/api/v1/models/fetch", `{"model":"shotgun 650!"}`)

		if fetcher.calls != 1 {
			t.Errorf("fetcher.calls = %d, want 1", fetcher.calls)
		}
	})

	t.Run("csv format returns an attachment", func(t *testing.T) {
		fetcher := &mockFetcher{record: fetched}
		router := setupTestRouterWithService(t, catalog.NewMemoryStore(testCatalog()), fetcher)

		w := doJSON(router, "POST", "/api/v1/models/fetch?format=csv", `{"model":"Shotgun 650"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
		}
		if got := w.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/csv") {
			t.Errorf("Content-Type = %q, want text/csv", got)
		}
		if !strings.HasPrefix(w.Body.String(), "Field,Shotgun 650 (fetched online data)") {
			t.Errorf("body starts with %q", strings.SplitN(w.Body.String(), "\n", 2)[0])
		}
	})

	t.Run("missing model returns 400", func(t *testing.T) {
		router := setupTestRouterWithService(t, catalog.NewMemoryStore(testCatalog()), &mockFetcher{record: fetched})

		w := doJSON(router, "POST", "/api/v1/models/fetch", `{"variant":"Base"}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("fetcher failure returns 502", func(t *testing.T) {
		fetcher := &mockFetcher{err: errors.New("upstream timeout")}
		router := setupTestRouterWithService(t, catalog.NewMemoryStore(testCatalog()), fetcher)

		w := doJSON(router, "POST", "/api/v1/models/fetch", `{"model":"Shotgun 650"}`)
		if w.Code != http.StatusBadGateway {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadGateway)
		}
	})

	t.Run("no fetcher returns 503", func(t *testing.T) {
		router := setupTestRouterWithService(t, catalog.NewMemoryStore(testCatalog()), nil)

		w := doJSON(router, "POST", "/api/v1/models/fetch", `{"model":"Shotgun 650"}`)
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusServiceUnavailable)
		}
	})
}

// TestCORSIntegration tests CORS headers work end-to-end with full router
func TestCORSIntegration(t *testing.T) {
	req, _ := http.NewRequest("GET", "/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	setupTestRouter().ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, "http://localhost:5173")
	}
	if w.Header().Get(RequestIDHeader) == "" {
		t.Errorf("%s not set", RequestIDHeader)
	}
}

// TestRecoveryMiddleware tests panic recovery
func TestRecoveryMiddleware(t *testing.T) {
	router := setupTestRouter()
	router.GET("/panic", func(c *gin.Context) {
		panic("test panic")
	})

	w := doJSON(router, "GET", "/panic", "")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrInvalidRequest, http.StatusBadRequest},
		{domain.ErrInvalidRecord, http.StatusBadRequest},
		{domain.ErrModelNotFound, http.StatusNotFound},
		{domain.ErrSchemaMismatch, http.StatusUnprocessableEntity},
		{domain.ErrRateLimited, http.StatusTooManyRequests},
		{domain.ErrFetcherDisabled, http.StatusServiceUnavailable},
		{domain.ErrFetchFailure, http.StatusBadGateway},
		{domain.ErrCatalogUnavailable, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := statusForError(tt.err); got != tt.want {
				t.Errorf("statusForError() = %d, want %d", got, tt.want)
			}
		})
	}
}
