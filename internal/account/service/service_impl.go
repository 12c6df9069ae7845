package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	accountdomain "github.com/esani/pantportal/internal/account/domain"
	"github.com/esani/pantportal/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	companies repository.Repository[accountdomain.Company]
	kiosks    repository.Repository[accountdomain.Kiosk]
}

func NewService(p ServiceParam) accountdomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("account.service"),

		companies: repository.ProvideStore[accountdomain.Company](p.DB),
		kiosks:    repository.ProvideStore[accountdomain.Kiosk](p.DB),
	}
}

func (s *Service) GetFromExternalID(ctx context.Context, externalID string) (accountdomain.Account, error) {
	prefixPart, idPart, found := strings.Cut(externalID, "-")
	if !found {
		return nil, fmt.Errorf("%w: %q", accountdomain.ErrMalformedExternalID, externalID)
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", accountdomain.ErrMalformedExternalID, externalID)
	}

	switch prefixPart {
	case strconv.Itoa(accountdomain.CompanyIDPrefix):
		company, err := s.companyByID(ctx, id)
		if err != nil || company == nil {
			return nil, err
		}
		return company, nil
	case strconv.Itoa(accountdomain.BranchIDPrefix):
		branch, err := s.BranchByID(ctx, id)
		if err != nil || branch == nil {
			return nil, err
		}
		return branch, nil
	case strconv.Itoa(accountdomain.KioskIDPrefix):
		kiosk, err := s.KioskByID(ctx, id)
		if err != nil || kiosk == nil {
			return nil, err
		}
		return kiosk, nil
	default:
		return nil, fmt.Errorf("%w: %q", accountdomain.ErrMalformedExternalID, externalID)
	}
}

func (s *Service) BranchByID(ctx context.Context, id int64) (*accountdomain.CompanyBranch, error) {
	var branch accountdomain.CompanyBranch
	err := s.db.WithContext(ctx).
		Preload("Company").
		Where("id = ?", id).
		First(&branch).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &branch, nil
}

func (s *Service) KioskByID(ctx context.Context, id int64) (*accountdomain.Kiosk, error) {
	return s.kiosks.FindOne(ctx, &accountdomain.Kiosk{CompanyFields: accountdomain.CompanyFields{ID: id}})
}

func (s *Service) Debtors(ctx context.Context) ([]accountdomain.Debtor, error) {
	companies, err := s.companies.Find(ctx, &accountdomain.Company{})
	if err != nil {
		return nil, err
	}
	var branches []*accountdomain.CompanyBranch
	if err := s.db.WithContext(ctx).Preload("Company").Find(&branches).Error; err != nil {
		return nil, err
	}
	kiosks, err := s.kiosks.Find(ctx, &accountdomain.Kiosk{})
	if err != nil {
		return nil, err
	}

	debtors := make([]accountdomain.Debtor, 0, len(companies)+len(branches)+len(kiosks))
	for _, company := range companies {
		debtors = append(debtors, debtorRow(company))
	}
	for _, branch := range branches {
		debtors = append(debtors, debtorRow(branch))
	}
	for _, kiosk := range kiosks {
		debtors = append(debtors, debtorRow(kiosk))
	}

	sort.Slice(debtors, func(i, j int) bool {
		return debtors[i].ExternalID < debtors[j].ExternalID
	})
	return debtors, nil
}

func (s *Service) companyByID(ctx context.Context, id int64) (*accountdomain.Company, error) {
	return s.companies.FindOne(ctx, &accountdomain.Company{CompanyFields: accountdomain.CompanyFields{ID: id}})
}

type accountWithFields interface {
	accountdomain.Account
	Fields() accountdomain.CompanyFields
}

func debtorRow(account accountWithFields) accountdomain.Debtor {
	fields := account.Fields()
	return accountdomain.Debtor{
		ExternalID:         account.ExternalCustomerID(),
		Name:               fields.Name,
		Phone:              fields.Phone,
		Address:            fields.Address,
		PostalCode:         fields.PostalCode,
		City:               fields.City,
		RegistrationNumber: fields.RegistrationNumber,
		AccountNumber:      fields.AccountNumber,
		InvoiceMail:        fields.InvoiceMail,
		CVR:                account.GetCVR(),
		LocationID:         account.GetLocationID(),
	}
}
