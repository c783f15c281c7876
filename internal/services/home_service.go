package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/bakehouse/internal/apperr"
	"github.com/example/bakehouse/internal/models"
)

// HomeView is the homepage with featured ids resolved, in configured order.
type HomeView struct {
	FeaturedCategories []models.Category `json:"featured_categories"`
	FeaturedProducts   []models.Product  `json:"featured_products"`
}

type HomeInput struct {
	CategoryIDs []uuid.UUID
	ProductIDs  []uuid.UUID
}

// HomeService manages the single homepage configuration row.
type HomeService struct {
	db *gorm.DB
}

func NewHomeService(db *gorm.DB) *HomeService {
	return &HomeService{db: db}
}

// Get resolves the stored configuration. Ids that no longer resolve are
// skipped; no stored row yields empty lists.
func (s *HomeService) Get(ctx context.Context) (*HomeView, error) {
	cfg, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	view := &HomeView{FeaturedCategories: []models.Category{}, FeaturedProducts: []models.Product{}}
	if cfg == nil {
		return view, nil
	}

	if len(cfg.FeaturedCategoryIDs) > 0 {
		var categories []models.Category
		if err := s.db.WithContext(ctx).Where("id IN ?", cfg.FeaturedCategoryIDs).Find(&categories).Error; err != nil {
			return nil, apperr.Internal("load featured categories", err)
		}
		byID := make(map[uuid.UUID]models.Category, len(categories))
		for _, c := range categories {
			byID[c.ID] = c
		}
		for _, id := range cfg.FeaturedCategoryIDs {
			if c, ok := byID[id]; ok {
				view.FeaturedCategories = append(view.FeaturedCategories, c)
			}
		}
	}

	products, err := loadProducts(ctx, s.db, cfg.FeaturedProductIDs)
	if err != nil {
		return nil, err
	}
	for _, id := range cfg.FeaturedProductIDs {
		if p, ok := products[id]; ok {
			view.FeaturedProducts = append(view.FeaturedProducts, *p)
		}
	}

	return view, nil
}

// Update replaces the configuration. Each list holds at most MaxFeatured ids
// and every id must exist.
func (s *HomeService) Update(ctx context.Context, in HomeInput) (*HomeView, error) {
	categoryIDs := dedupe(in.CategoryIDs)
	productIDs := dedupe(in.ProductIDs)
	if len(categoryIDs) > models.MaxFeatured || len(productIDs) > models.MaxFeatured {
		return nil, apperr.Validation(fmt.Sprintf("at most %d featured categories and %d featured products", models.MaxFeatured, models.MaxFeatured))
	}

	if err := s.allExist(ctx, &models.Category{}, categoryIDs, "category"); err != nil {
		return nil, err
	}
	if err := s.allExist(ctx, &models.Product{}, productIDs, "product"); err != nil {
		return nil, err
	}

	cfg, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = &models.HomePageConfig{}
	}
	cfg.FeaturedCategoryIDs = categoryIDs
	cfg.FeaturedProductIDs = productIDs

	if err := s.db.WithContext(ctx).Save(cfg).Error; err != nil {
		return nil, apperr.Internal("save homepage config", err)
	}
	return s.Get(ctx)
}

func (s *HomeService) load(ctx context.Context) (*models.HomePageConfig, error) {
	var cfg models.HomePageConfig
	err := s.db.WithContext(ctx).Order("created_at asc").First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Internal("load homepage config", err)
	}
	return &cfg, nil
}

func (s *HomeService) allExist(ctx context.Context, model interface{}, ids []uuid.UUID, what string) error {
	if len(ids) == 0 {
		return nil
	}
	var n int64
	if err := s.db.WithContext(ctx).Model(model).Where("id IN ?", ids).Count(&n).Error; err != nil {
		return apperr.Internal("check featured "+what, err)
	}
	if int(n) != len(ids) {
		return apperr.NotFound("featured " + what + " not found")
	}
	return nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
