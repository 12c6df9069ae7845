package domain

import (
	"context"
	"time"

	accountdomain "github.com/esani/pantportal/internal/account/domain"
)

// ReverseVendingMachine is one registered RVM, owned by either a company
// branch or a kiosk, with its negotiated handling compensation.
type ReverseVendingMachine struct {
	ID           int64  `json:"id" gorm:"primaryKey"`
	SerialNumber string `json:"serial_number" gorm:"type:text;not null;uniqueIndex"`
	// Compensation is the per-unit handling rate in øre.
	Compensation    int                          `json:"compensation" gorm:"not null;default:0"`
	CompanyBranchID *int64                       `json:"company_branch_id,omitempty" gorm:"index"`
	CompanyBranch   *accountdomain.CompanyBranch `json:"company_branch,omitempty" gorm:"foreignKey:CompanyBranchID"`
	KioskID         *int64                       `json:"kiosk_id,omitempty" gorm:"index"`
	Kiosk           *accountdomain.Kiosk         `json:"kiosk,omitempty" gorm:"foreignKey:KioskID"`
	CreatedAt       time.Time                    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time                    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (ReverseVendingMachine) TableName() string { return "reverse_vending_machines" }

// Owner returns the account the machine is registered to, or nil.
func (m *ReverseVendingMachine) Owner() accountdomain.Account {
	if m.CompanyBranch != nil {
		return m.CompanyBranch
	}
	if m.Kiosk != nil {
		return m.Kiosk
	}
	return nil
}

type Service interface {
	// GetBySerial returns the machine with its owning account preloaded, or
	// nil when the serial is not registered.
	GetBySerial(ctx context.Context, serial string) (*ReverseVendingMachine, error)

	// ListSerials returns every registered serial number, sorted.
	ListSerials(ctx context.Context) ([]string, error)
}
