package domain

import (
	"time"

	"github.com/google/uuid"
)

// Category is the first level of the ERP line catalogue key.
type Category string

const (
	CategoryDeposit  Category = "deposit"
	CategoryHandling Category = "handling"
	CategoryBag      Category = "bag"
)

// Specifier values for the deposit and handling categories. The bag
// category uses the series prefix digit as its specifier.
const (
	SpecifierRVM    = "rvm"
	SpecifierBag    = "bag"
	SpecifierManual = "manual"
)

// ERPProductMapping selects the ERP item number and invoice text for one
// kind of credit-note line.
type ERPProductMapping struct {
	ID         int64    `json:"id" gorm:"primaryKey"`
	Category   Category `json:"category" gorm:"type:text;not null;uniqueIndex:idx_erp_mapping_key"`
	Specifier  string   `json:"specifier" gorm:"type:text;not null;uniqueIndex:idx_erp_mapping_key"`
	ItemNumber string   `json:"item_number" gorm:"type:text;not null"`
	Text       string   `json:"text" gorm:"type:text;not null"`
	// Rate is a fallback unit price in øre for lines with no better rate.
	Rate      int       `json:"rate" gorm:"not null;default:0"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (ERPProductMapping) TableName() string { return "erp_product_mappings" }

// ERPCreditNoteExport records one committed export run.
type ERPCreditNoteExport struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	FileID    uuid.UUID `json:"file_id" gorm:"type:uuid;not null;uniqueIndex"`
	FromDate  time.Time `json:"from_date" gorm:"not null"`
	ToDate    time.Time `json:"to_date" gorm:"not null"`
	LineCount int       `json:"line_count" gorm:"not null"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (ERPCreditNoteExport) TableName() string { return "erp_credit_note_exports" }
