package domain

import (
	"fmt"
	"time"
)

// Kind discriminates the three customer record types.
type Kind string

const (
	KindCompany Kind = "company"
	KindBranch  Kind = "company_branch"
	KindKiosk   Kind = "kiosk"
)

// Customer id prefixes used in the ERP external customer id scheme.
const (
	CompanyIDPrefix = 1
	BranchIDPrefix  = 2
	KioskIDPrefix   = 3
)

// Account is the shared capability of Company, CompanyBranch and Kiosk.
type Account interface {
	AccountKind() Kind
	InternalID() int64
	// ExternalCustomerID renders "<type digit>-<5-digit zero-padded id>".
	ExternalCustomerID() string
	DisplayName() string
	GetCVR() int64
	GetLocationID() *int64
	// BagCompensation is the per-bag handling rate in øre.
	BagCompensation() int
	InvoiceAccountID() *string
}

// CompanyFields carries the columns common to all three customer tables.
type CompanyFields struct {
	ID                 int64     `json:"id" gorm:"primaryKey"`
	Name               string    `json:"name" gorm:"type:text;not null"`
	Address            string    `json:"address" gorm:"type:text;not null"`
	PostalCode         string    `json:"postal_code" gorm:"type:text;not null"`
	City               string    `json:"city" gorm:"type:text;not null"`
	Phone              string    `json:"phone" gorm:"type:text;not null"`
	RegistrationNumber *string   `json:"registration_number,omitempty" gorm:"type:text"`
	AccountNumber      *string   `json:"account_number,omitempty" gorm:"type:text"`
	InvoiceMail        string    `json:"invoice_mail" gorm:"type:text"`
	CreatedAt          time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt          time.Time `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

type Company struct {
	CompanyFields
	CVR          int64  `json:"cvr" gorm:"not null;uniqueIndex"`
	PermitNumber *int64 `json:"permit_number,omitempty"`
}

func (Company) TableName() string { return "companies" }

func (c *Company) AccountKind() Kind   { return KindCompany }
func (c *Company) InternalID() int64   { return c.ID }
func (c *Company) DisplayName() string { return c.Name }
func (c *Company) GetCVR() int64       { return c.CVR }
func (c *Company) ExternalCustomerID() string {
	return externalCustomerID(CompanyIDPrefix, c.ID)
}
func (c *Company) GetLocationID() *int64     { return nil }
func (c *Company) BagCompensation() int      { return 0 }
func (c *Company) InvoiceAccountID() *string { return nil }

type CompanyBranch struct {
	CompanyFields
	CompanyID                int64    `json:"company_id" gorm:"not null;index"`
	Company                  *Company `json:"company,omitempty" gorm:"foreignKey:CompanyID"`
	LocationID               *int64   `json:"location_id,omitempty"`
	QRCompensation           int      `json:"qr_compensation" gorm:"not null;default:0"`
	CustomerInvoiceAccountID *string  `json:"customer_invoice_account_id,omitempty" gorm:"type:text"`
}

func (CompanyBranch) TableName() string { return "company_branches" }

func (b *CompanyBranch) AccountKind() Kind   { return KindBranch }
func (b *CompanyBranch) InternalID() int64   { return b.ID }
func (b *CompanyBranch) DisplayName() string { return b.Name }
func (b *CompanyBranch) GetCVR() int64 {
	if b.Company != nil {
		return b.Company.CVR
	}
	return 0
}
func (b *CompanyBranch) ExternalCustomerID() string {
	return externalCustomerID(BranchIDPrefix, b.ID)
}
func (b *CompanyBranch) GetLocationID() *int64     { return b.LocationID }
func (b *CompanyBranch) BagCompensation() int      { return b.QRCompensation }
func (b *CompanyBranch) InvoiceAccountID() *string { return b.CustomerInvoiceAccountID }

type Kiosk struct {
	CompanyFields
	CVR                      int64   `json:"cvr" gorm:"not null;uniqueIndex"`
	LocationID               *int64  `json:"location_id,omitempty"`
	QRCompensation           int     `json:"qr_compensation" gorm:"not null;default:0"`
	CustomerInvoiceAccountID *string `json:"customer_invoice_account_id,omitempty" gorm:"type:text"`
}

func (Kiosk) TableName() string { return "kiosks" }

func (k *Kiosk) AccountKind() Kind   { return KindKiosk }
func (k *Kiosk) InternalID() int64   { return k.ID }
func (k *Kiosk) DisplayName() string { return k.Name }
func (k *Kiosk) GetCVR() int64       { return k.CVR }
func (k *Kiosk) ExternalCustomerID() string {
	return externalCustomerID(KioskIDPrefix, k.ID)
}
func (k *Kiosk) GetLocationID() *int64     { return k.LocationID }
func (k *Kiosk) BagCompensation() int      { return k.QRCompensation }
func (k *Kiosk) InvoiceAccountID() *string { return k.CustomerInvoiceAccountID }

func (c *Company) Fields() CompanyFields       { return c.CompanyFields }
func (b *CompanyBranch) Fields() CompanyFields { return b.CompanyFields }
func (k *Kiosk) Fields() CompanyFields         { return k.CompanyFields }

func externalCustomerID(prefix int, id int64) string {
	return fmt.Sprintf("%d-%05d", prefix, id)
}
