package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/esani/pantportal/internal/config"
	qrdomain "github.com/esani/pantportal/internal/qrcode/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Two concurrent allocations against one series are serialized by a
// compare-and-swap on the counter; the loser retries on a fresh snapshot.
const maxAllocateAttempts = 5

type ServiceParam struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Config config.Config
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger
	qr  config.QRConfig
}

func NewService(p ServiceParam) qrdomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("qrcode.service"),
		qr:  p.Config.QR,
	}
}

func (s *Service) EnsureSeries(ctx context.Context, name string, prefix int) (*qrdomain.QRCodeGenerator, error) {
	var generator qrdomain.QRCodeGenerator
	err := s.db.WithContext(ctx).
		Where(qrdomain.QRCodeGenerator{Prefix: prefix}).
		Attrs(qrdomain.QRCodeGenerator{Name: name}).
		FirstOrCreate(&generator).Error
	if err != nil {
		return nil, err
	}
	return &generator, nil
}

func (s *Service) Series(ctx context.Context, prefix int) (*qrdomain.QRCodeGenerator, error) {
	var generator qrdomain.QRCodeGenerator
	err := s.db.WithContext(ctx).Where("prefix = ?", prefix).First(&generator).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &generator, nil
}

func (s *Service) Generate(ctx context.Context, prefix int, n int, salt string) ([]string, error) {
	if n <= 0 {
		return nil, qrdomain.ErrInvalidCount
	}
	if salt == "" {
		salt = qrdomain.NewSalt()
	}

	for attempt := 0; attempt < maxAllocateAttempts; attempt++ {
		codes, err := s.tryAllocate(ctx, prefix, n, salt)
		if errors.Is(err, qrdomain.ErrContention) {
			s.log.Warn("sequence counter contention, retrying",
				zap.Int("prefix", prefix),
				zap.Int("attempt", attempt+1),
			)
			continue
		}
		return codes, err
	}
	return nil, qrdomain.ErrContention
}

func (s *Service) tryAllocate(ctx context.Context, prefix int, n int, salt string) ([]string, error) {
	var codes []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var generator qrdomain.QRCodeGenerator
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("prefix = ?", prefix).
			First(&generator).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return qrdomain.ErrUnknownSeries
			}
			return err
		}

		start := generator.Count

		// Guarded counter advance: the WHERE clause on the old value keeps two
		// racing allocations from reserving the same range on backends where
		// the row lock above is a no-op.
		result := tx.Model(&qrdomain.QRCodeGenerator{}).
			Where("id = ? AND count = ?", generator.ID, start).
			Update("count", start+int64(n))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return qrdomain.ErrContention
		}

		interval := qrdomain.QRCodeInterval{
			GeneratorID: generator.ID,
			Start:       start,
			Length:      int64(n),
			Salt:        salt,
		}
		if err := tx.Create(&interval).Error; err != nil {
			return err
		}

		codes = make([]string, 0, n)
		for sequenceID := start; sequenceID < start+int64(n); sequenceID++ {
			codes = append(codes, qrdomain.FormatCode(prefix, sequenceID, s.qr.IDLength, salt, s.qr.HashLength))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return codes, nil
}

func (s *Service) Verify(ctx context.Context, prefix int, candidate string) (string, error) {
	code := strings.TrimPrefix(strings.TrimSpace(candidate), s.qr.URLPrefix)

	var idPart, controlPart string
	switch len(code) {
	case s.qr.CodeLength():
		if code[:1] != strconv.Itoa(prefix) {
			return "", nil
		}
		idPart = code[1 : 1+s.qr.IDLength]
		controlPart = code[1+s.qr.IDLength:]
	case s.qr.ShortCodeLength():
		if code[:1] != strconv.Itoa(prefix) {
			return "", nil
		}
		idPart = code[1:]
	case s.qr.IDLength:
		idPart = code
	default:
		return "", nil
	}

	if !isDigits(idPart) {
		return "", nil
	}
	sequenceID, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return "", nil
	}

	generator, err := s.Series(ctx, prefix)
	if err != nil {
		return "", err
	}
	if generator == nil {
		return "", nil
	}

	interval, err := s.containingInterval(ctx, generator.ID, sequenceID)
	if err != nil {
		return "", err
	}
	if interval == nil {
		return "", nil
	}

	if controlPart != "" && qrdomain.ControlCode(interval.Salt, sequenceID, s.qr.HashLength) != controlPart {
		return "", nil
	}

	return fmt.Sprintf("%d%s", prefix, idPart), nil
}

func (s *Service) Exists(ctx context.Context, code string) (bool, error) {
	stripped := strings.TrimPrefix(strings.TrimSpace(code), s.qr.URLPrefix)
	if len(stripped) != s.qr.CodeLength() || !isDigits(stripped[:1]) {
		return false, nil
	}
	prefix, err := strconv.Atoi(stripped[:1])
	if err != nil {
		return false, nil
	}
	short, err := s.Verify(ctx, prefix, stripped)
	if err != nil {
		return false, err
	}
	return short != "", nil
}

func (s *Service) containingInterval(ctx context.Context, generatorID, sequenceID int64) (*qrdomain.QRCodeInterval, error) {
	var interval qrdomain.QRCodeInterval
	err := s.db.WithContext(ctx).
		Where("generator_id = ? AND start <= ? AND start + length > ?", generatorID, sequenceID, sequenceID).
		First(&interval).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &interval, nil
}

func isDigits(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
