package service

import (
	"context"
	"fmt"

	productdomain "github.com/esani/pantportal/internal/product/domain"
	"github.com/esani/pantportal/pkg/db"
	"github.com/esani/pantportal/pkg/db/option"
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
	db       *gorm.DB
	log      *zap.Logger
	products repository.Repository[productdomain.Product]
}

func NewService(p ServiceParam) productdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("product.service"),
		products: repository.ProvideStore[productdomain.Product](p.DB),
	}
}

func (s *Service) GetByBarcode(ctx context.Context, barcode string) (*productdomain.Product, error) {
	if barcode == "" {
		return nil, nil
	}
	return s.products.FindOne(ctx, &productdomain.Product{Barcode: barcode})
}

func (s *Service) List(ctx context.Context, limit int) ([]*productdomain.Product, error) {
	return s.products.Find(ctx, &productdomain.Product{},
		option.WithOrder("barcode ASC"),
		option.WithLimit(limit),
	)
}

func (s *Service) Create(ctx context.Context, product *productdomain.Product) error {
	if err := productdomain.ValidateBarcode(product.Barcode); err != nil {
		return err
	}
	if err := s.products.Create(ctx, product); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return fmt.Errorf("%w: %s", productdomain.ErrDuplicate, product.Barcode)
		}
		return err
	}
	return nil
}
