package service

import (
	"context"
	"errors"

	machinedomain "github.com/esani/pantportal/internal/machine/domain"
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
}

func NewService(p ServiceParam) machinedomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("machine.service"),
	}
}

func (s *Service) GetBySerial(ctx context.Context, serial string) (*machinedomain.ReverseVendingMachine, error) {
	if serial == "" {
		return nil, nil
	}
	var machine machinedomain.ReverseVendingMachine
	err := s.db.WithContext(ctx).
		Preload("CompanyBranch").
		Preload("CompanyBranch.Company").
		Preload("Kiosk").
		Where("serial_number = ?", serial).
		First(&machine).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &machine, nil
}

func (s *Service) ListSerials(ctx context.Context) ([]string, error) {
	var serials []string
	err := s.db.WithContext(ctx).
		Model(&machinedomain.ReverseVendingMachine{}).
		Order("serial_number ASC").
		Pluck("serial_number", &serials).Error
	if err != nil {
		return nil, err
	}
	return serials, nil
}
