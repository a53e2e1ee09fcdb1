package domain

import "errors"

var (
	// ErrModelNotFound is returned when a reference model name is absent from the row set
	ErrModelNotFound = errors.New("model not found in catalog")

	// ErrSchemaMismatch is returned when the catalog lacks a configured feature column
	ErrSchemaMismatch = errors.New("catalog schema is missing a configured feature column")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrInvalidRecord is returned when a record cannot be used (e.g. no Models name)
	ErrInvalidRecord = errors.New("invalid catalog record")

	// ErrCatalogUnavailable is returned when the catalog store cannot be read or written
	ErrCatalogUnavailable = errors.New("catalog store unavailable")

	// ErrFetchFailure is returned when the record fetcher request fails
	ErrFetchFailure = errors.New("record fetch failed")

	// ErrFetcherDisabled is returned when no record fetcher is configured
	ErrFetcherDisabled = errors.New("record fetcher not configured")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")
)
