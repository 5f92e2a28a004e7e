package sqlstore

import (
	"context"
	"fmt"

	domain "github.com/Zhima-Mochi/restaurant-ordering/internal/domain/promo"
	"gorm.io/gorm"
)

type PromoRepository struct {
	db *gorm.DB
}

func (r *PromoRepository) Create(ctx context.Context, c *domain.Code) error {
	if err := r.db.WithContext(ctx).Create(promoToModel(c)).Error; err != nil {
		if isDuplicate(err) {
			return domain.ErrDuplicateCode
		}
		return fmt.Errorf("promo repository: create: %w", err)
	}
	return nil
}

// FindActive compares the code again in Go because MySQL's default collation ignores case.
func (r *PromoRepository) FindActive(ctx context.Context, code string) (*domain.Code, error) {
	var m promoCodeModel
	err := r.db.WithContext(ctx).
		Where("code = ? AND active = ?", code, true).
		First(&m).Error
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("promo repository: find: %w", err)
	}
	if m.Code != code {
		return nil, domain.ErrNotFound
	}
	return promoFromModel(&m), nil
}

func (r *PromoRepository) IncrementUsage(ctx context.Context, code string) error {
	res := r.db.WithContext(ctx).
		Model(&promoCodeModel{}).
		Where("code = ?", code).
		UpdateColumn("current_uses", gorm.Expr("current_uses + ?", 1))
	if res.Error != nil {
		return fmt.Errorf("promo repository: increment usage: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
