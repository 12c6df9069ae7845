package domain

import (
	"context"
	"errors"
)

type Service interface {
	// GetFromExternalID resolves "<type digit>-<zero-padded id>" to the
	// matching Company, CompanyBranch or Kiosk. Unknown ids yield nil.
	GetFromExternalID(ctx context.Context, externalID string) (Account, error)
	BranchByID(ctx context.Context, id int64) (*CompanyBranch, error)
	KioskByID(ctx context.Context, id int64) (*Kiosk, error)
	// Debtors lists every customer of every kind with its external id, for
	// the ERP debtor export.
	Debtors(ctx context.Context) ([]Debtor, error)
}

// Debtor is one unified customer row across all three kinds.
type Debtor struct {
	ExternalID         string
	Name               string
	Phone              string
	Address            string
	PostalCode         string
	City               string
	RegistrationNumber *string
	AccountNumber      *string
	InvoiceMail        string
	CVR                int64
	LocationID         *int64
}

var ErrMalformedExternalID = errors.New("malformed_external_customer_id")
