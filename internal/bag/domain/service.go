package domain

import (
	"context"
	"errors"

	"gorm.io/datatypes"
)

var ErrBagNotFound = errors.New("bag_not_found")

// Service manages the bag registry and its lifecycle.
type Service interface {
	// Register creates a bag in status created and writes the first
	// history entry. Registering the same code twice is an error.
	Register(ctx context.Context, bag *QRBag, actor string) error

	// GetByQR looks a bag up by its full printed code.
	GetByQR(ctx context.Context, qr string) (*QRBag, error)

	// GetByShortCode looks a bag up by the canonical short form of its
	// code, the series digit followed by the sequence id.
	GetByShortCode(ctx context.Context, short string) (*QRBag, error)

	// SetStatus advances the bag lifecycle and appends a history entry
	// in the same transaction. Moves rejected by Transition return
	// ErrInvalidTransition and leave the bag unchanged.
	SetStatus(ctx context.Context, qr string, status Status, actor string, metadata datatypes.JSONMap) error

	// History returns the status trail for a bag, oldest first.
	History(ctx context.Context, qr string) ([]QRBagHistory, error)
}
