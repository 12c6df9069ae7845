package domain

import (
	"context"
	"errors"
)

// Service allocates and verifies return-bag identifiers.
type Service interface {
	// EnsureSeries fetches the generator for a prefix, creating it on first use.
	EnsureSeries(ctx context.Context, name string, prefix int) (*QRCodeGenerator, error)
	// Series returns the generator for a prefix, or nil when unknown.
	Series(ctx context.Context, prefix int) (*QRCodeGenerator, error)
	// Generate reserves n consecutive sequence ids under one salt and returns
	// the full codes (prefix + zero-padded id + control code). A fresh random
	// salt is used when salt is empty.
	Generate(ctx context.Context, prefix int, n int, salt string) ([]string, error)
	// Verify checks a candidate code against the series and returns its
	// canonical short form (prefix + id). A code that does not verify yields
	// an empty string, not an error; errors are reserved for storage failures.
	Verify(ctx context.Context, prefix int, candidate string) (string, error)
	// Exists reports whether the full code was issued by any registered series.
	Exists(ctx context.Context, code string) (bool, error)
}

var (
	ErrUnknownSeries = errors.New("unknown_series")
	ErrInvalidCount  = errors.New("invalid_count")
	ErrContention    = errors.New("sequence_contention")
)
