package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/wyfcoding/optionlab/internal/pricing/domain"
	"github.com/wyfcoding/optionlab/pkg/db"
)

type pricingRepository struct {
	db *gorm.DB
}

// NewPricingRepository 创建定价结果仓储
func NewPricingRepository(gdb *gorm.DB) domain.PricingRepository {
	return &pricingRepository{db: gdb}
}

func (r *pricingRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.WithTx(ctx, r.db, fn)
}

// SaveResult 新结果插入，已有 ID 的结果整行更新
func (r *pricingRepository) SaveResult(ctx context.Context, res *domain.PricingResult) error {
	model := toPricingResultModel(res)
	if model == nil {
		return nil
	}
	conn := db.Conn(ctx, r.db)
	if model.ID == 0 {
		if err := conn.Create(model).Error; err != nil {
			return err
		}
	} else if err := conn.Save(model).Error; err != nil {
		return err
	}
	res.ID = model.ID
	res.CreatedAt = model.CreatedAt
	res.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *pricingRepository) GetLatest(ctx context.Context, symbol string) (*domain.PricingResult, error) {
	var m PricingResultModel
	err := db.Conn(ctx, r.db).
		Where("symbol = ?", symbol).
		Order("calculated_at desc").
		Order("id desc").
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toPricingResult(&m), nil
}

func (r *pricingRepository) GetHistory(ctx context.Context, symbol string, limit int) ([]*domain.PricingResult, error) {
	var models []PricingResultModel
	if err := db.Conn(ctx, r.db).
		Where("symbol = ?", symbol).
		Order("calculated_at desc").
		Order("id desc").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]*domain.PricingResult, len(models))
	for i := range models {
		res[i] = toPricingResult(&models[i])
	}
	return res, nil
}
