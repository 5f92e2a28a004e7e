package sqlstore

import (
	"context"
	"fmt"

	domain "github.com/Zhima-Mochi/restaurant-ordering/internal/domain/order"
	"gorm.io/gorm"
)

type OrderRepository struct {
	db *gorm.DB
}

// Insert writes the order and its items; gorm saves the Items association in the same call.
func (r *OrderRepository) Insert(ctx context.Context, o *domain.Order) error {
	if err := r.db.WithContext(ctx).Create(orderToModel(o)).Error; err != nil {
		if isDuplicate(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("order repository: insert: %w", err)
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	var m orderModel
	if err := r.db.WithContext(ctx).Preload("Items").First(&m, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("order repository: get: %w", err)
	}
	return orderFromModel(&m), nil
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Order, error) {
	var rows []orderModel
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("order repository: list: %w", err)
	}
	out := make([]*domain.Order, 0, len(rows))
	for i := range rows {
		out = append(out, orderFromModel(&rows[i]))
	}
	return out, nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, o *domain.Order) error {
	res := r.db.WithContext(ctx).
		Model(&orderModel{}).
		Where("id = ?", o.ID).
		Updates(map[string]any{
			"status":     string(o.Status),
			"updated_at": o.UpdatedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("order repository: update status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
