package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/bakehouse/internal/apperr"
	"github.com/example/bakehouse/internal/models"
	"github.com/example/bakehouse/internal/utils"
)

type CategoryInput struct {
	Name           string
	Description    string
	Image          string
	HamperEligible bool
}

type ProductInput struct {
	Name        string
	Price       float64
	Description string
	CategoryID  uuid.UUID
	Images      []string
	Featured    bool
	SugarFree   bool
}

// ProductFilter holds the product listing query. Nil flags are not applied.
type ProductFilter struct {
	Search     string
	Categories []uuid.UUID
	Featured   *bool
	SugarFree  *bool
	Page       utils.Pagination
}

// CatalogService manages categories and products.
type CatalogService struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewCatalogService(db *gorm.DB, log *zap.Logger) *CatalogService {
	return &CatalogService{db: db, log: log}
}

func (s *CatalogService) ListCategories(ctx context.Context, pg utils.Pagination) ([]models.Category, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Category{}).Count(&total).Error; err != nil {
		return nil, 0, apperr.Internal("count categories", err)
	}

	var categories []models.Category
	if err := s.db.WithContext(ctx).
		Order("name asc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&categories).Error; err != nil {
		return nil, 0, apperr.Internal("list categories", err)
	}
	return categories, total, nil
}

func (s *CatalogService) GetCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	if err := s.db.WithContext(ctx).First(&category, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("category not found")
		}
		return nil, apperr.Internal("load category", err)
	}
	return &category, nil
}

func (s *CatalogService) CreateCategory(ctx context.Context, in CategoryInput) (*models.Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("name is required")
	}
	if err := s.uniqueCategoryName(ctx, name, uuid.Nil); err != nil {
		return nil, err
	}

	category := models.Category{
		Name:           name,
		Description:    in.Description,
		Image:          in.Image,
		HamperEligible: in.HamperEligible,
	}
	if err := s.db.WithContext(ctx).Create(&category).Error; err != nil {
		return nil, apperr.Internal("create category", err)
	}
	return &category, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, id uuid.UUID, in CategoryInput) (*models.Category, error) {
	category, err := s.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("name is required")
	}
	if err := s.uniqueCategoryName(ctx, name, id); err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Model(category).Updates(map[string]interface{}{
		"name":            name,
		"description":     in.Description,
		"image":           in.Image,
		"hamper_eligible": in.HamperEligible,
	}).Error
	if err != nil {
		return nil, apperr.Internal("update category", err)
	}
	return s.GetCategory(ctx, id)
}

// DeleteCategory refuses to remove a category that still has products.
func (s *CatalogService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetCategory(ctx, id); err != nil {
		return err
	}

	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Product{}).Where("category_id = ?", id).Count(&n).Error; err != nil {
		return apperr.Internal("count category products", err)
	}
	if n > 0 {
		return apperr.InvalidOperation("category still has products")
	}

	if err := s.db.WithContext(ctx).Delete(&models.Category{}, "id = ?", id).Error; err != nil {
		return apperr.Internal("delete category", err)
	}
	return nil
}

// ListProducts applies the filter and returns one page with the total count.
func (s *CatalogService) ListProducts(ctx context.Context, f ProductFilter) ([]models.Product, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Product{})

	if search := strings.TrimSpace(f.Search); search != "" {
		query = query.Where("LOWER(name) LIKE ? "+utils.LikeEscape, utils.ContainsPattern(search))
	}
	if len(f.Categories) > 0 {
		query = query.Where("category_id IN ?", f.Categories)
	}
	if f.Featured != nil {
		query = query.Where("featured = ?", *f.Featured)
	}
	if f.SugarFree != nil {
		query = query.Where("sugar_free = ?", *f.SugarFree)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperr.Internal("count products", err)
	}

	var products []models.Product
	if err := query.Preload("Category").
		Order("created_at desc").
		Limit(f.Page.Limit).Offset(f.Page.Offset).
		Find(&products).Error; err != nil {
		return nil, 0, apperr.Internal("list products", err)
	}
	return products, total, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).Preload("Category").First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("product not found")
		}
		return nil, apperr.Internal("load product", err)
	}
	return &product, nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	if err := s.checkProduct(ctx, in); err != nil {
		return nil, err
	}

	product := models.Product{
		Name:        strings.TrimSpace(in.Name),
		Price:       in.Price,
		Description: in.Description,
		CategoryID:  in.CategoryID,
		Images:      nonNilImages(in.Images),
		Featured:    in.Featured,
		SugarFree:   in.SugarFree,
	}
	if err := s.db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, apperr.Internal("create product", err)
	}

	s.log.Info("product created", zap.String("product_id", product.ID.String()))
	return s.GetProduct(ctx, product.ID)
}

func (s *CatalogService) UpdateProduct(ctx context.Context, id uuid.UUID, in ProductInput) (*models.Product, error) {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkProduct(ctx, in); err != nil {
		return nil, err
	}

	product.Name = strings.TrimSpace(in.Name)
	product.Price = in.Price
	product.Description = in.Description
	product.CategoryID = in.CategoryID
	product.Category = nil
	product.Images = nonNilImages(in.Images)
	product.Featured = in.Featured
	product.SugarFree = in.SugarFree

	if err := s.db.WithContext(ctx).Omit("Category").Save(product).Error; err != nil {
		return nil, apperr.Internal("update product", err)
	}
	return s.GetProduct(ctx, id)
}

// DeleteProduct removes the product together with any cart lines holding it.
// Orders keep their own snapshot.
func (s *CatalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetProduct(ctx, id); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Product{}, "id = ?", id).Error
	})
	if err != nil {
		return apperr.Internal("delete product", err)
	}
	return nil
}

func (s *CatalogService) checkProduct(ctx context.Context, in ProductInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return apperr.Validation("name is required")
	}
	if in.Price <= 0 {
		return apperr.Validation("price must be greater than 0")
	}
	if strings.TrimSpace(in.Description) == "" {
		return apperr.Validation("description is required")
	}
	if in.CategoryID == uuid.Nil {
		return apperr.Validation("category_id is required")
	}

	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Category{}).Where("id = ?", in.CategoryID).Count(&n).Error; err != nil {
		return apperr.Internal("check category", err)
	}
	if n == 0 {
		return apperr.NotFound("category not found")
	}
	return nil
}

func (s *CatalogService) uniqueCategoryName(ctx context.Context, name string, self uuid.UUID) error {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Category{}).
		Where("LOWER(name) = ? AND id <> ?", strings.ToLower(name), self).
		Count(&n).Error; err != nil {
		return apperr.Internal("check category name", err)
	}
	if n > 0 {
		return apperr.Conflict("category name already exists")
	}
	return nil
}

func nonNilImages(images []string) []string {
	if images == nil {
		return []string{}
	}
	return images
}
