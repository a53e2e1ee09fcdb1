package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/motospec/backend/internal/domain"
	"github.com/rs/zerolog"
)

// Package-level compiled regex patterns for cache keys
var (
	nonAlphanumericRegex = regexp.MustCompile(`[^a-z0-9\s]`)
	multipleSpacesRegex  = regexp.MustCompile(`\s+`)
)

// SimilarityServiceConfig holds configuration for the similarity service
type SimilarityServiceConfig struct {
	Spec          FeatureSpec
	TopN          int
	NearEqualTol  float64
	BatchSnapping bool
	QuerySnapping bool
	FetchCacheTTL time.Duration
}

// SimilarityService ranks catalog models against a reference model or a fetched
// record, and appends accepted records to the catalog.
type SimilarityService struct {
	store        domain.CatalogStore
	cache        domain.CacheRepository
	fetcher      domain.RecordFetcher
	preprocessor *RecordPreprocessor
	mutator      *CatalogMutator
	resolver     *ModelResolver
	logger       zerolog.Logger
	config       SimilarityServiceConfig
}

// FetchComparison is a fetched record together with its ranking and comparison table.
type FetchComparison struct {
	Record domain.Record            `json:"record"`
	Result *domain.SimilarityResult `json:"result"`
	Table  *ComparisonTable         `json:"table"`
}

// NewSimilarityService creates a new similarity service. cache and fetcher may be nil;
// fetch operations then fail with domain.ErrFetcherDisabled.
func NewSimilarityService(
	store domain.CatalogStore,
	cache domain.CacheRepository,
	fetcher domain.RecordFetcher,
	logger zerolog.Logger,
	config SimilarityServiceConfig,
) *SimilarityService {
	if len(config.Spec.Numeric) == 0 {
		config.Spec = DefaultFeatureSpec()
	}
	if config.TopN <= 0 {
		config.TopN = 5
	}
	if config.NearEqualTol <= 0 {
		config.NearEqualTol = DefaultNearEqualTol
	}
	if config.FetchCacheTTL == 0 {
		config.FetchCacheTTL = 24 * time.Hour
	}

	return &SimilarityService{
		store:        store,
		cache:        cache,
		fetcher:      fetcher,
		preprocessor: NewRecordPreprocessor(logger),
		mutator:      NewCatalogMutator(store, logger),
		resolver:     NewModelResolver(ResolverConfig{}),
		logger:       logger,
		config:       config,
	}
}

// BatchOptions are the defaults for comparing a catalog model with the rest of the catalog.
func (s *SimilarityService) BatchOptions() RankOptions {
	return RankOptions{Snapping: s.config.BatchSnapping, NearEqualTol: s.config.NearEqualTol, TopN: s.config.TopN}
}

// QueryOptions are the defaults for comparing an external record with the catalog.
func (s *SimilarityService) QueryOptions() RankOptions {
	return RankOptions{Snapping: s.config.QuerySnapping, NearEqualTol: s.config.NearEqualTol, TopN: s.config.TopN}
}

// SimilarModels ranks the catalog against the catalog model called name. An unknown
// name yields an empty, not-found result rather than an error.
func (s *SimilarityService) SimilarModels(ctx context.Context, name string, opts RankOptions) (*domain.SimilarityResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrInvalidRequest
	}

	catalog, err := s.loadCatalog(ctx)
	if err != nil {
		return nil, err
	}

	fm, err := BuildFeatureMatrix(catalog, nil, s.config.Spec)
	if err != nil {
		return nil, err
	}

	return s.rank(fm, name, opts), nil
}

// CompareRecord appends record transiently to the catalog and ranks the catalog
// against it. The catalog store is not modified.
func (s *SimilarityService) CompareRecord(ctx context.Context, record domain.Record, opts RankOptions) (*domain.SimilarityResult, error) {
	result, _, err := s.compareRecord(ctx, record, opts)
	return result, err
}

func (s *SimilarityService) compareRecord(ctx context.Context, record domain.Record, opts RankOptions) (*domain.SimilarityResult, *domain.Catalog, error) {
	if record == nil || record.Name() == "" {
		return nil, nil, fmt.Errorf("%w: record has no %s name", domain.ErrInvalidRecord, domain.FieldModels)
	}

	catalog, err := s.loadCatalog(ctx)
	if err != nil {
		return nil, nil, err
	}

	fm, err := BuildFeatureMatrix(catalog, record.Flatten(), s.config.Spec)
	if err != nil {
		return nil, nil, err
	}

	return s.rank(fm, record.Name(), opts), catalog, nil
}

// SimilarityMatrix returns unsnapped cosine similarity between every pair of catalog models.
func (s *SimilarityService) SimilarityMatrix(ctx context.Context) ([]string, [][]float64, error) {
	catalog, err := s.loadCatalog(ctx)
	if err != nil {
		return nil, nil, err
	}

	fm, err := BuildFeatureMatrix(catalog, nil, s.config.Spec)
	if err != nil {
		return nil, nil, err
	}
	return fm.Models, SimilarityMatrix(fm), nil
}

// AcceptRecord appends record to the persistent catalog.
func (s *SimilarityService) AcceptRecord(ctx context.Context, record domain.Record) error {
	if record == nil || record.Name() == "" {
		return fmt.Errorf("%w: record has no %s name", domain.ErrInvalidRecord, domain.FieldModels)
	}
	return s.mutator.Append(ctx, record)
}

// FetchRecord retrieves a record for model/variant from the fetcher, using the cache
// when a fresh copy is available.
// Flow: check cache -> fetch -> preprocess -> cache -> return
func (s *SimilarityService) FetchRecord(ctx context.Context, request *domain.FetchRequest) (domain.Record, error) {
	if request == nil || strings.TrimSpace(request.Model) == "" {
		return nil, domain.ErrInvalidRequest
	}
	if s.fetcher == nil {
		return nil, domain.ErrFetcherDisabled
	}

	cacheKey := generateCacheKey(request)
	if cached, err := s.getFromCache(ctx, cacheKey); err == nil && cached != nil {
		s.logger.Debug().Str("key", cacheKey).Msg("fetched record served from cache")
		return cached, nil
	}

	raw, err := s.fetcher.FetchRecord(ctx, request.Model, request.Variant)
	if err != nil {
		if errors.Is(err, domain.ErrFetchFailure) || errors.Is(err, domain.ErrInvalidRecord) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailure, err)
	}

	record := s.preprocessor.Preprocess(raw, request.Model)

	if err := s.setInCache(ctx, cacheKey, record); err != nil {
		s.logger.Warn().Err(err).Str("key", cacheKey).Msg("failed to cache fetched record")
	}
	return record, nil
}

// FetchAndCompare fetches a record and lays it out next to its closest catalog models.
func (s *SimilarityService) FetchAndCompare(ctx context.Context, request *domain.FetchRequest, opts RankOptions) (*FetchComparison, error) {
	record, err := s.FetchRecord(ctx, request)
	if err != nil {
		return nil, err
	}

	result, catalog, err := s.compareRecord(ctx, record, opts)
	if err != nil {
		return nil, err
	}

	rows := make(map[string]domain.Record, len(result.Matches))
	for _, m := range result.Matches {
		if row := catalog.Find(m.Model); row != nil {
			rows[m.Model] = row
		}
	}

	return &FetchComparison{
		Record: record,
		Result: result,
		Table:  BuildComparisonTable(record, result.Matches, rows),
	}, nil
}

func (s *SimilarityService) rank(fm *FeatureMatrix, name string, opts RankOptions) *domain.SimilarityResult {
	result := &domain.SimilarityResult{Reference: name, Snapping: opts.Snapping, Matches: []domain.Match{}}

	ref := fm.IndexOf(name)
	if ref < 0 {
		for _, suggestion := range s.resolver.Suggest(name, fm.Models) {
			result.Suggestions = append(result.Suggestions, suggestion.Model)
		}
		s.logger.Info().
			Str("model", name).
			Strs("suggestions", result.Suggestions).
			Msg("reference model not found")
		return result
	}

	start := time.Now()
	result.Found = true
	result.Matches = Rank(fm, ref, opts)

	s.logger.Debug().
		Str("model", name).
		Int("rows", fm.Len()).
		Bool("snapping", opts.Snapping).
		Float64("tolerance", opts.NearEqualTol).
		Int("matches", len(result.Matches)).
		Dur("elapsed", time.Since(start)).
		Msg("ranked similar models")
	return result
}

func (s *SimilarityService) loadCatalog(ctx context.Context) (*domain.Catalog, error) {
	catalog, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
	}
	return catalog, nil
}

// generateCacheKey creates a normalized cache key from a fetch request.
// Format: "record:{normalized_model}:{normalized_variant}"
func generateCacheKey(request *domain.FetchRequest) string {
	return fmt.Sprintf("record:%s:%s", normalizeForCacheKey(request.Model), normalizeForCacheKey(request.Variant))
}

// normalizeForCacheKey normalizes a string for use as cache key component.
// Converts to lowercase, removes special characters, and trims whitespace.
func normalizeForCacheKey(s string) string {
	if s == "" {
		return ""
	}

	result := strings.ToLower(s)
	result = nonAlphanumericRegex.ReplaceAllString(result, "")
	result = multipleSpacesRegex.ReplaceAllString(result, " ")
	return strings.TrimSpace(result)
}

// getFromCache retrieves a fetched record from cache
func (s *SimilarityService) getFromCache(ctx context.Context, key string) (domain.Record, error) {
	if s.cache == nil {
		return nil, domain.ErrCacheMiss
	}

	value, err := s.cache.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	switch v := value.(type) {
	case domain.Record:
		return v, nil
	case map[string]interface{}:
		// JSON round-tripped caches hand back plain maps
		return domain.Record(v), nil
	default:
		return nil, domain.ErrCacheMiss
	}
}

// setInCache stores a fetched record in cache
func (s *SimilarityService) setInCache(ctx context.Context, key string, record domain.Record) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Set(ctx, key, record, s.config.FetchCacheTTL)
}
