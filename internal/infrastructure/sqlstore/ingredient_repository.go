package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	domain "github.com/Zhima-Mochi/restaurant-ordering/internal/domain/inventory"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type IngredientRepository struct {
	db *gorm.DB
	// lock reads rows FOR UPDATE; set on repositories bound to a transaction.
	lock bool
}

func (r *IngredientRepository) Create(ctx context.Context, ing *domain.Ingredient) error {
	if err := r.db.WithContext(ctx).Create(ingredientToModel(ing)).Error; err != nil {
		if isDuplicate(err) {
			return domain.ErrDuplicateName
		}
		return fmt.Errorf("ingredient repository: create: %w", err)
	}
	return nil
}

func (r *IngredientRepository) Get(ctx context.Context, id string) (*domain.Ingredient, error) {
	var m ingredientModel
	q := r.db.WithContext(ctx)
	if r.lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := q.First(&m, "id = ?", id).Error; err != nil {
		if isNotFound(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("ingredient repository: get: %w", err)
	}
	return ingredientFromModel(&m), nil
}

func (r *IngredientRepository) FindByName(ctx context.Context, name string) (*domain.Ingredient, error) {
	var m ingredientModel
	err := r.db.WithContext(ctx).
		Where("LOWER(name) = LOWER(?)", name).
		Order("name, id").
		First(&m).Error
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("ingredient repository: find by name: %w", err)
	}
	return ingredientFromModel(&m), nil
}

func (r *IngredientRepository) List(ctx context.Context) ([]*domain.Ingredient, error) {
	var rows []ingredientModel
	if err := r.db.WithContext(ctx).Order("name").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("ingredient repository: list: %w", err)
	}
	return ingredientsFromModels(rows), nil
}

func (r *IngredientRepository) ListLowStock(ctx context.Context) ([]*domain.Ingredient, error) {
	var rows []ingredientModel
	err := r.db.WithContext(ctx).
		Where("stock <= alert_threshold").
		Order("stock ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("ingredient repository: low stock: %w", err)
	}
	return ingredientsFromModels(rows), nil
}

// Deduct is a single conditional UPDATE, so concurrent checkouts cannot push stock below zero.
func (r *IngredientRepository) Deduct(ctx context.Context, id string, quantity float64) error {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}
	res := r.db.WithContext(ctx).
		Model(&ingredientModel{}).
		Where("id = ? AND stock >= ?", id, quantity).
		Updates(map[string]any{
			"stock":      gorm.Expr("stock - ?", quantity),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("ingredient repository: deduct: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
		return domain.ErrInsufficientStock
	}
	return nil
}

func (r *IngredientRepository) ForceDeduct(ctx context.Context, id string, quantity float64) error {
	if quantity <= 0 {
		return domain.ErrInvalidQuantity
	}
	res := r.db.WithContext(ctx).
		Model(&ingredientModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"stock":      gorm.Expr("stock - ?", quantity),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("ingredient repository: force deduct: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *IngredientRepository) Adjust(ctx context.Context, id string, delta float64) (*domain.Ingredient, error) {
	var out *domain.Ingredient
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m ingredientModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&m, "id = ?", id).Error; err != nil {
			if isNotFound(err) {
				return domain.ErrNotFound
			}
			return err
		}
		ing := ingredientFromModel(&m)
		if err := ing.Adjust(delta); err != nil {
			return err
		}
		if err := tx.Model(&ingredientModel{}).Where("id = ?", id).Updates(map[string]any{
			"stock":      ing.Stock,
			"updated_at": ing.UpdatedAt,
		}).Error; err != nil {
			return err
		}
		out = ing
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInsufficientStock) || errors.Is(err, domain.ErrInvalidQuantity) {
			return nil, err
		}
		return nil, fmt.Errorf("ingredient repository: adjust: %w", err)
	}
	return out, nil
}

func (r *IngredientRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&ingredientModel{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("ingredient repository: delete: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Lock takes row locks on the given ingredients in id order so that concurrent
// transactions touching overlapping rows queue instead of deadlocking.
func (r *IngredientRepository) Lock(ctx context.Context, ids []string) error {
	if !r.lock || len(ids) == 0 {
		return nil
	}
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	var rows []ingredientModel
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", sorted).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return fmt.Errorf("ingredient repository: lock: %w", err)
	}
	return nil
}

func ingredientsFromModels(rows []ingredientModel) []*domain.Ingredient {
	out := make([]*domain.Ingredient, 0, len(rows))
	for i := range rows {
		out = append(out, ingredientFromModel(&rows[i]))
	}
	return out
}
