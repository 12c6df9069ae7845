package domain

import (
	"errors"
	"time"

	accountdomain "github.com/esani/pantportal/internal/account/domain"
	"gorm.io/datatypes"
)

// Status is one stage of the bag lifecycle. The stored values are the codes
// understood by the rest of the deposit system.
type Status string

const (
	StatusCreated   Status = "oprettet"
	StatusInTransit Status = "under_transport"
	StatusReceived  Status = "pantsystem_modtaget"
	StatusCounted   Status = "esani_optalt"
	StatusPaid      Status = "esani_udbetalt"
)

var statusOrder = map[Status]int{
	StatusCreated:   0,
	StatusInTransit: 1,
	StatusReceived:  2,
	StatusCounted:   3,
	StatusPaid:      4,
}

var (
	ErrUnknownStatus     = errors.New("unknown_bag_status")
	ErrInvalidTransition = errors.New("invalid_bag_transition")
)

// Transition validates a lifecycle move. Bags only move forward; a machine
// count may skip stages (a bag scanned at the counting line goes straight to
// counted), but never revisits an earlier one.
func Transition(from, to Status) error {
	fromRank, ok := statusOrder[from]
	if !ok {
		return ErrUnknownStatus
	}
	toRank, ok := statusOrder[to]
	if !ok {
		return ErrUnknownStatus
	}
	if toRank <= fromRank {
		return ErrInvalidTransition
	}
	return nil
}

// QRBag is one physical return bag, identified by its full printed code.
type QRBag struct {
	QR              string                       `json:"qr" gorm:"primaryKey;type:text"`
	Active          bool                         `json:"active" gorm:"not null;default:true"`
	Status          Status                       `json:"status" gorm:"type:text;not null"`
	CompanyBranchID *int64                       `json:"company_branch_id,omitempty" gorm:"index"`
	CompanyBranch   *accountdomain.CompanyBranch `json:"company_branch,omitempty" gorm:"foreignKey:CompanyBranchID"`
	KioskID         *int64                       `json:"kiosk_id,omitempty" gorm:"index"`
	Kiosk           *accountdomain.Kiosk         `json:"kiosk,omitempty" gorm:"foreignKey:KioskID"`
	CreatedAt       time.Time                    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time                    `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (QRBag) TableName() string { return "qr_bags" }

// Owner returns the account the bag is registered to, or nil.
func (b *QRBag) Owner() accountdomain.Account {
	if b.CompanyBranch != nil {
		return b.CompanyBranch
	}
	if b.Kiosk != nil {
		return b.Kiosk
	}
	return nil
}

// QRBagHistory is an append-only record of one status change.
type QRBagHistory struct {
	ID        int64             `json:"id" gorm:"primaryKey"`
	QR        string            `json:"qr" gorm:"type:text;not null;index"`
	Status    Status            `json:"status" gorm:"type:text;not null"`
	ChangedBy string            `json:"changed_by" gorm:"type:text"`
	Metadata  datatypes.JSONMap `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt time.Time         `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (QRBagHistory) TableName() string { return "qr_bag_history" }
