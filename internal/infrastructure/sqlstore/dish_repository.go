package sqlstore

import (
	"context"
	"fmt"

	domain "github.com/Zhima-Mochi/restaurant-ordering/internal/domain/menu"
	"gorm.io/gorm"
)

type DishRepository struct {
	db *gorm.DB
}

func (r *DishRepository) Create(ctx context.Context, dish *domain.Dish) error {
	if err := r.db.WithContext(ctx).Create(dishToModel(dish)).Error; err != nil {
		return fmt.Errorf("dish repository: create: %w", err)
	}
	return nil
}

func (r *DishRepository) Get(ctx context.Context, id string) (*domain.Dish, error) {
	var m dishModel
	err := r.db.WithContext(ctx).
		Preload("Links.Ingredient").
		First(&m, "id = ?", id).Error
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("dish repository: get: %w", err)
	}
	return dishFromModel(&m), nil
}

func (r *DishRepository) List(ctx context.Context, filter domain.Filter) ([]*domain.Dish, error) {
	q := r.db.WithContext(ctx).Preload("Links.Ingredient")
	if filter.AvailableOnly {
		q = q.Where("available = ?", true)
	}
	if filter.PopularOnly {
		q = q.Where("popular = ?", true)
	}
	if filter.NewOnly {
		q = q.Where("is_new = ?", true)
	}
	if filter.NewestFirst {
		q = q.Order("created_at DESC").Order("id DESC")
	} else {
		q = q.Order("name")
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var rows []dishModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("dish repository: list: %w", err)
	}
	out := make([]*domain.Dish, 0, len(rows))
	for i := range rows {
		out = append(out, dishFromModel(&rows[i]))
	}
	return out, nil
}

// Update saves the dish columns; links are left as they are.
func (r *DishRepository) Update(ctx context.Context, dish *domain.Dish) error {
	m := dishToModel(dish)
	res := r.db.WithContext(ctx).
		Model(&dishModel{}).
		Where("id = ?", dish.ID).
		Select("name", "description", "category", "image_url", "price", "available", "popular", "is_new", "updated_at").
		Updates(m)
	if res.Error != nil {
		return fmt.Errorf("dish repository: update: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *DishRepository) CountUsing(ctx context.Context, ingredientID string) (int, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&dishIngredientModel{}).
		Where("ingredient_id = ?", ingredientID).
		Distinct("dish_id").
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("dish repository: count using: %w", err)
	}
	return int(n), nil
}
