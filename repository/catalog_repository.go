package repository

import (
	"context"

	"brunopizza/entity"

	"gorm.io/gorm"
)

// CatalogRepository reads the prices the pricing engine needs. Catalog CRUD is
// handled by the back-office, not here.
type CatalogRepository struct {
	DB *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{DB: db}
}

func (r *CatalogRepository) ProductsByIDs(ctx context.Context, ids []uint) (map[uint]entity.Product, error) {
	var rows []entity.Product
	if len(ids) > 0 {
		if err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
			return nil, err
		}
	}
	out := make(map[uint]entity.Product, len(rows))
	for _, p := range rows {
		out[p.ID] = p
	}
	return out, nil
}

func (r *CatalogRepository) SizesByIDs(ctx context.Context, ids []uint) (map[uint]entity.Size, error) {
	var rows []entity.Size
	if len(ids) > 0 {
		if err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
			return nil, err
		}
	}
	out := make(map[uint]entity.Size, len(rows))
	for _, s := range rows {
		out[s.ID] = s
	}
	return out, nil
}

func (r *CatalogRepository) ToppingsByIDs(ctx context.Context, ids []uint) (map[uint]entity.Topping, error) {
	var rows []entity.Topping
	if len(ids) > 0 {
		if err := r.DB.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
			return nil, err
		}
	}
	out := make(map[uint]entity.Topping, len(rows))
	for _, t := range rows {
		out[t.ID] = t
	}
	return out, nil
}
