package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Service is the payout store. Batches and their lines are created
// atomically; exports stamp lines with the file that paid them.
type Service interface {
	// CreateBatch writes a payout and its lines in one transaction and
	// fills in the generated ids.
	CreateBatch(ctx context.Context, payout *DepositPayout, items []DepositPayoutItem) error

	// KnownSourceIdentifiers returns the identifiers already imported
	// for a source type.
	KnownSourceIdentifiers(ctx context.Context, source SourceType) (map[string]bool, error)

	// LatestToDate returns the newest ToDate among batches of a source
	// type, or nil when none exist.
	LatestToDate(ctx context.Context, source SourceType) (*time.Time, error)

	// ExistingSessionIDs reports which of the given consumer session ids
	// are already stored.
	ExistingSessionIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]bool, error)

	// ItemsInRange returns lines dated within [from, to] with account and
	// product records loaded. Unless includeExported is set, lines already
	// stamped with a file id are excluded.
	ItemsInRange(ctx context.Context, from, to time.Time, includeExported bool) ([]DepositPayoutItem, error)

	// StampFileID marks lines as exported. Lines that already carry a
	// file id are left untouched; the returned count is how many rows
	// actually changed.
	StampFileID(ctx context.Context, itemIDs []int64, fileID uuid.UUID) (int64, error)
}
