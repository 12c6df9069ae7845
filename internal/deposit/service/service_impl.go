package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/esani/pantportal/internal/clock"
	"github.com/esani/pantportal/internal/deposit/domain"
)

type ServiceParam struct {
	fx.In

	Log   *zap.Logger
	DB    *gorm.DB
	ID    *snowflake.Node
	Clock clock.Clock
}

type service struct {
	log   *zap.Logger
	db    *gorm.DB
	id    *snowflake.Node
	clock clock.Clock
}

func NewService(p ServiceParam) domain.Service {
	return &service{
		log:   p.Log.Named("deposit.service"),
		db:    p.DB,
		id:    p.ID,
		clock: p.Clock,
	}
}

func (s *service) CreateBatch(ctx context.Context, payout *domain.DepositPayout, items []domain.DepositPayoutItem) error {
	now := s.clock.Now()
	payout.ID = s.id.Generate().Int64()
	payout.ItemCount = len(items)
	payout.CreatedAt = now
	for i := range items {
		items[i].ID = s.id.Generate().Int64()
		items[i].PayoutID = payout.ID
		items[i].CreatedAt = now
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(payout).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		return tx.CreateInBatches(items, 500).Error
	})
}

func (s *service) KnownSourceIdentifiers(ctx context.Context, source domain.SourceType) (map[string]bool, error) {
	var identifiers []string
	err := s.db.WithContext(ctx).
		Model(&domain.DepositPayout{}).
		Where("source_type = ?", source).
		Pluck("source_identifier", &identifiers).Error
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(identifiers))
	for _, id := range identifiers {
		known[id] = true
	}
	return known, nil
}

func (s *service) LatestToDate(ctx context.Context, source domain.SourceType) (*time.Time, error) {
	var payout domain.DepositPayout
	err := s.db.WithContext(ctx).
		Where("source_type = ?", source).
		Order("to_date DESC").
		First(&payout).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &payout.ToDate, nil
}

func (s *service) ExistingSessionIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	existing := make(map[uuid.UUID]bool, len(ids))
	if len(ids) == 0 {
		return existing, nil
	}
	var found []uuid.UUID
	err := s.db.WithContext(ctx).
		Model(&domain.DepositPayoutItem{}).
		Where("consumer_session_id IN ?", ids).
		Pluck("consumer_session_id", &found).Error
	if err != nil {
		return nil, err
	}
	for _, id := range found {
		existing[id] = true
	}
	return existing, nil
}

func (s *service) ItemsInRange(ctx context.Context, from, to time.Time, includeExported bool) ([]domain.DepositPayoutItem, error) {
	query := s.db.WithContext(ctx).
		Preload("Payout").
		Preload("Company").
		Preload("CompanyBranch").
		Preload("CompanyBranch.Company").
		Preload("Kiosk").
		Preload("Product").
		Where("date >= ? AND date <= ?", from, to)
	if !includeExported {
		query = query.Where("file_id IS NULL")
	}
	var items []domain.DepositPayoutItem
	if err := query.Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *service) StampFileID(ctx context.Context, itemIDs []int64, fileID uuid.UUID) (int64, error) {
	if len(itemIDs) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Model(&domain.DepositPayoutItem{}).
		Where("id IN ? AND file_id IS NULL", itemIDs).
		Update("file_id", fileID)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
