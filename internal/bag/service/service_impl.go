package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/esani/pantportal/internal/bag/domain"
	"github.com/esani/pantportal/internal/clock"
	"github.com/esani/pantportal/pkg/db"
)

type ServiceParam struct {
	fx.In

	Log   *zap.Logger
	DB    *gorm.DB
	Clock clock.Clock
}

type service struct {
	log   *zap.Logger
	db    *gorm.DB
	clock clock.Clock
}

func NewService(p ServiceParam) domain.Service {
	return &service{
		log:   p.Log.Named("bag.service"),
		db:    p.DB,
		clock: p.Clock,
	}
}

func (s *service) Register(ctx context.Context, bag *domain.QRBag, actor string) error {
	if bag.Status == "" {
		bag.Status = domain.StatusCreated
	}
	now := s.clock.Now()
	bag.CreatedAt = now
	bag.UpdatedAt = now

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(bag).Error; err != nil {
			if db.IsDuplicateKeyErr(err) {
				return fmt.Errorf("bag %s already registered: %w", bag.QR, err)
			}
			return err
		}
		return tx.Create(&domain.QRBagHistory{
			QR:        bag.QR,
			Status:    bag.Status,
			ChangedBy: actor,
			CreatedAt: now,
		}).Error
	})
}

func (s *service) GetByQR(ctx context.Context, qr string) (*domain.QRBag, error) {
	var bag domain.QRBag
	err := s.db.WithContext(ctx).
		Preload("CompanyBranch").
		Preload("CompanyBranch.Company").
		Preload("Kiosk").
		Where("qr = ?", qr).
		First(&bag).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bag, nil
}

func (s *service) GetByShortCode(ctx context.Context, short string) (*domain.QRBag, error) {
	var bag domain.QRBag
	err := s.db.WithContext(ctx).
		Preload("CompanyBranch").
		Preload("CompanyBranch.Company").
		Preload("Kiosk").
		Where("substr(qr, 1, ?) = ?", len(short), short).
		First(&bag).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bag, nil
}

func (s *service) SetStatus(ctx context.Context, qr string, status domain.Status, actor string, metadata datatypes.JSONMap) error {
	now := s.clock.Now()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var bag domain.QRBag
		if err := tx.Where("qr = ?", qr).First(&bag).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrBagNotFound
			}
			return err
		}
		if err := domain.Transition(bag.Status, status); err != nil {
			return fmt.Errorf("bag %s: %s -> %s: %w", qr, bag.Status, status, err)
		}
		if err := tx.Model(&domain.QRBag{}).
			Where("qr = ?", qr).
			Updates(map[string]any{"status": status, "updated_at": now}).Error; err != nil {
			return err
		}
		return tx.Create(&domain.QRBagHistory{
			QR:        qr,
			Status:    status,
			ChangedBy: actor,
			Metadata:  metadata,
			CreatedAt: now,
		}).Error
	})
}

func (s *service) History(ctx context.Context, qr string) ([]domain.QRBagHistory, error) {
	var entries []domain.QRBagHistory
	err := s.db.WithContext(ctx).
		Where("qr = ?", qr).
		Order("created_at ASC, id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
