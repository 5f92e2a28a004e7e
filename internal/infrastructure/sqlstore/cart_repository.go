package sqlstore

import (
	"context"
	"fmt"

	domain "github.com/Zhima-Mochi/restaurant-ordering/internal/domain/cart"
	"gorm.io/gorm"
)

type CartRepository struct {
	db *gorm.DB
}

func (r *CartRepository) Add(ctx context.Context, item *domain.Item) error {
	if err := r.db.WithContext(ctx).Create(cartItemToModel(item)).Error; err != nil {
		return fmt.Errorf("cart repository: add: %w", err)
	}
	return nil
}

func (r *CartRepository) Get(ctx context.Context, id string) (*domain.Item, error) {
	var m cartItemModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("cart repository: get: %w", err)
	}
	return cartItemFromModel(&m), nil
}

func (r *CartRepository) Update(ctx context.Context, item *domain.Item) error {
	res := r.db.WithContext(ctx).
		Model(&cartItemModel{}).
		Where("id = ?", item.ID).
		Updates(map[string]any{
			"quantity":      item.Quantity,
			"customization": item.Customization,
			"updated_at":    item.UpdatedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("cart repository: update: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *CartRepository) Remove(ctx context.Context, userID, id string) error {
	res := r.db.WithContext(ctx).Delete(&cartItemModel{}, "id = ? AND user_id = ?", id, userID)
	if res.Error != nil {
		return fmt.Errorf("cart repository: remove: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *CartRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Item, error) {
	var rows []cartItemModel
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at, id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("cart repository: list: %w", err)
	}
	out := make([]*domain.Item, 0, len(rows))
	for i := range rows {
		out = append(out, cartItemFromModel(&rows[i]))
	}
	return out, nil
}

func (r *CartRepository) ClearByUser(ctx context.Context, userID string) (int, error) {
	res := r.db.WithContext(ctx).Delete(&cartItemModel{}, "user_id = ?", userID)
	if res.Error != nil {
		return 0, fmt.Errorf("cart repository: clear: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}
