package domain

import (
	"time"

	"github.com/google/uuid"

	accountdomain "github.com/esani/pantportal/internal/account/domain"
	productdomain "github.com/esani/pantportal/internal/product/domain"
)

// SourceType says where a payout batch came from.
type SourceType string

const (
	SourceCSV    SourceType = "csv"
	SourceAPI    SourceType = "api"
	SourceManual SourceType = "manual"
)

// DepositPayout is one imported batch. SourceIdentifier is the clearing
// file name for csv batches and the collection URL for api batches; it is
// what makes re-imports detectable.
type DepositPayout struct {
	ID               int64      `json:"id" gorm:"primaryKey"`
	SourceType       SourceType `json:"source_type" gorm:"type:text;not null;index"`
	SourceIdentifier string     `json:"source_identifier" gorm:"type:text;not null;index"`
	FromDate         time.Time  `json:"from_date" gorm:"not null"`
	ToDate           time.Time  `json:"to_date" gorm:"not null"`
	ItemCount        int        `json:"item_count" gorm:"not null"`
	CreatedAt        time.Time  `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (DepositPayout) TableName() string { return "deposit_payouts" }

// DepositPayoutItem is one counted position within a batch. Exactly one of
// the account references is set. FileID stays null until the line has been
// exported to the ERP system.
type DepositPayoutItem struct {
	ID       int64          `json:"id" gorm:"primaryKey"`
	PayoutID int64          `json:"payout_id" gorm:"not null;index"`
	Payout   *DepositPayout `json:"payout,omitempty" gorm:"foreignKey:PayoutID"`

	CompanyID       *int64                       `json:"company_id,omitempty" gorm:"index"`
	Company         *accountdomain.Company       `json:"company,omitempty" gorm:"foreignKey:CompanyID"`
	CompanyBranchID *int64                       `json:"company_branch_id,omitempty" gorm:"index"`
	CompanyBranch   *accountdomain.CompanyBranch `json:"company_branch,omitempty" gorm:"foreignKey:CompanyBranchID"`
	KioskID         *int64                       `json:"kiosk_id,omitempty" gorm:"index"`
	Kiosk           *accountdomain.Kiosk         `json:"kiosk,omitempty" gorm:"foreignKey:KioskID"`

	ProductID *int64                 `json:"product_id,omitempty" gorm:"index"`
	Product   *productdomain.Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	Barcode   string                 `json:"barcode" gorm:"type:text"`

	RvmSerial  string    `json:"rvm_serial" gorm:"type:text;index"`
	LocationID string    `json:"location_id" gorm:"type:text"`
	Date       time.Time `json:"date" gorm:"not null;index"`
	Count      int       `json:"count" gorm:"not null"`

	ConsumerSessionID *uuid.UUID `json:"consumer_session_id,omitempty" gorm:"type:uuid;index"`
	ConsumerIdentity  string     `json:"consumer_identity,omitempty" gorm:"type:text"`

	// CompensationOverride, in øre per unit, takes precedence over the
	// machine or account rate when set.
	CompensationOverride *int `json:"compensation_override,omitempty"`

	FileID    *uuid.UUID `json:"file_id,omitempty" gorm:"type:uuid;index"`
	CreatedAt time.Time  `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (DepositPayoutItem) TableName() string { return "deposit_payout_items" }

// Source returns the source type of the batch the line belongs to, or ""
// when the batch is not loaded.
func (i *DepositPayoutItem) Source() SourceType {
	if i.Payout != nil {
		return i.Payout.SourceType
	}
	return ""
}

// Account returns the account the line pays out to, or nil.
func (i *DepositPayoutItem) Account() accountdomain.Account {
	if i.Company != nil {
		return i.Company
	}
	if i.CompanyBranch != nil {
		return i.CompanyBranch
	}
	if i.Kiosk != nil {
		return i.Kiosk
	}
	return nil
}
