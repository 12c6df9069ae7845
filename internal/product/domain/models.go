package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// Material and shape categories registered with the deposit system.
const (
	MaterialPET       = "P"
	MaterialAluminium = "A"
	MaterialSteel     = "S"
	MaterialGlass     = "G"

	ShapeBottle = "F"
	ShapeOther  = "A"
)

// Product is one registered deposit-bearing packaging type, keyed by barcode.
type Product struct {
	ID       int64  `json:"id" gorm:"primaryKey"`
	Name     string `json:"name" gorm:"type:text;not null"`
	Barcode  string `json:"barcode" gorm:"type:text;not null;uniqueIndex"`
	// RefundValue is the deposit in øre (100 = 1 DKK).
	RefundValue int            `json:"refund_value" gorm:"not null;default:200"`
	Approved    bool           `json:"approved" gorm:"not null;default:false"`
	Material    string         `json:"material" gorm:"type:text"`
	Shape       string         `json:"shape" gorm:"type:text"`
	Height      int            `json:"height"`
	Diameter    int            `json:"diameter"`
	Weight      int            `json:"weight"`
	Capacity    int            `json:"capacity"`
	CreatedAt   time.Time      `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time      `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Product) TableName() string { return "products" }

type Service interface {
	// GetByBarcode returns the product for a barcode, skipping soft-deleted
	// rows. Unknown barcodes yield nil, not an error.
	GetByBarcode(ctx context.Context, barcode string) (*Product, error)
	Create(ctx context.Context, product *Product) error
	// List returns products ordered by barcode. A non-positive limit
	// returns everything.
	List(ctx context.Context, limit int) ([]*Product, error)
}

var (
	ErrInvalidBarcode = errors.New("invalid_barcode")
	ErrDuplicate      = errors.New("duplicate_barcode")
)

// ValidateBarcode enforces the 8/12/13 digit EAN shapes accepted on intake.
func ValidateBarcode(barcode string) error {
	switch len(barcode) {
	case 8, 12, 13:
	default:
		return ErrInvalidBarcode
	}
	for _, r := range barcode {
		if r < '0' || r > '9' {
			return ErrInvalidBarcode
		}
	}
	return nil
}
