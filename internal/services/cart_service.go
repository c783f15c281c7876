package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/bakehouse/internal/apperr"
	"github.com/example/bakehouse/internal/models"
)

const (
	CartIncrease = "increase"
	CartDecrease = "decrease"

	ClearAll       = "all"
	ClearNonHamper = "non-hamper"
)

// CartLine is a cart item joined with live product data.
type CartLine struct {
	ProductID      uuid.UUID `json:"product_id"`
	Name           string    `json:"name"`
	Price          float64   `json:"price"`
	Images         []string  `json:"images"`
	CategoryID     uuid.UUID `json:"category_id"`
	CategoryName   string    `json:"category_name"`
	HamperEligible bool      `json:"hamper_eligible"`
	SugarFree      bool      `json:"sugar_free"`
	Quantity       int       `json:"quantity"`
	LineTotal      float64   `json:"line_total"`
}

// CartView is the response shape of every cart operation.
type CartView struct {
	ID            uuid.UUID  `json:"id"`
	UserID        uuid.UUID  `json:"user_id"`
	Items         []CartLine `json:"items"`
	TotalQuantity int        `json:"total_quantity"`
	TotalAmount   float64    `json:"total_amount"`
}

type MutateCartInput struct {
	ProductID uuid.UUID
	Quantity  int
	Action    string
	Hamper    bool
}

type CartService struct {
	db             *gorm.DB
	hamperMaxItems int
	log            *zap.Logger
}

func NewCartService(db *gorm.DB, hamperMaxItems int, log *zap.Logger) *CartService {
	return &CartService{db: db, hamperMaxItems: hamperMaxItems, log: log}
}

// GetCart returns the user's cart, optionally only its hamper-eligible lines.
func (s *CartService) GetCart(ctx context.Context, userID uuid.UUID, hamperOnly bool) (*CartView, error) {
	cart, err := s.findCart(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, cart, hamperOnly)
}

// MutateCart adds or removes quantity of one product. Each change is a single
// SQL statement so concurrent requests for the same line add up instead of
// overwriting each other.
func (s *CartService) MutateCart(ctx context.Context, userID uuid.UUID, in MutateCartInput) (*CartView, error) {
	if in.Quantity < 1 {
		return nil, apperr.Validation("quantity must be at least 1")
	}
	if in.Action != CartIncrease && in.Action != CartDecrease {
		return nil, apperr.Validation("action must be one of [increase decrease]")
	}

	product, err := s.product(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	if in.Hamper && !product.HamperEligible() {
		return nil, apperr.InvalidOperation("product is not eligible for hampers")
	}

	var cart *models.Cart
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.Action == CartIncrease {
			cart, err = s.ensureCart(ctx, tx, userID)
			if err != nil {
				return err
			}
			if in.Hamper {
				if err := s.checkHamperCap(ctx, tx, cart.ID, in.Quantity); err != nil {
					return err
				}
			}
			return s.increase(tx, cart.ID, in.ProductID, in.Quantity)
		}

		cart, err = s.findCart(ctx, tx, userID)
		if err != nil {
			return err
		}
		return s.decrease(tx, cart.ID, in.ProductID, in.Quantity)
	})
	if err != nil {
		return nil, err
	}

	return s.view(ctx, cart, in.Hamper)
}

// RemoveItem drops a product from the cart. A missing line is not an error.
func (s *CartService) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*CartView, error) {
	cart, err := s.findCart(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cart.ID, productID).
		Delete(&models.CartItem{}).Error; err != nil {
		return nil, apperr.Internal("remove cart item", err)
	}

	return s.view(ctx, cart, false)
}

// ClearCart empties the cart, or with ClearNonHamper removes only the lines a
// hamper could not hold.
func (s *CartService) ClearCart(ctx context.Context, userID uuid.UUID, scope string) (*CartView, error) {
	if scope == "" {
		scope = ClearAll
	}
	if scope != ClearAll && scope != ClearNonHamper {
		return nil, apperr.Validation("scope must be one of [all non-hamper]")
	}

	cart, err := s.findCart(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).Where("cart_id = ?", cart.ID)
	if scope == ClearNonHamper {
		query = query.Where("product_id NOT IN (?)", s.eligibleProductIDs(ctx))
	}
	if err := query.Delete(&models.CartItem{}).Error; err != nil {
		return nil, apperr.Internal("clear cart", err)
	}

	return s.view(ctx, cart, false)
}

func (s *CartService) increase(tx *gorm.DB, cartID, productID uuid.UUID, qty int) error {
	item := models.CartItem{CartID: cartID, ProductID: productID, Quantity: qty}
	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "cart_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":   gorm.Expr("cart_items.quantity + excluded.quantity"),
			"updated_at": time.Now(),
		}),
	}).Create(&item).Error
	if err != nil {
		return apperr.Internal("increase cart item", err)
	}
	return nil
}

func (s *CartService) decrease(tx *gorm.DB, cartID, productID uuid.UUID, qty int) error {
	err := tx.Model(&models.CartItem{}).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Update("quantity", gorm.Expr("quantity - ?", qty)).Error
	if err != nil {
		return apperr.Internal("decrease cart item", err)
	}

	if err := tx.Where("cart_id = ? AND quantity <= 0", cartID).Delete(&models.CartItem{}).Error; err != nil {
		return apperr.Internal("prune cart items", err)
	}
	return nil
}

func (s *CartService) checkHamperCap(ctx context.Context, tx *gorm.DB, cartID uuid.UUID, adding int) error {
	if s.hamperMaxItems <= 0 {
		return nil
	}

	var current int64
	err := tx.WithContext(ctx).Model(&models.CartItem{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("cart_id = ? AND product_id IN (?)", cartID, s.eligibleProductIDs(ctx)).
		Scan(&current).Error
	if err != nil {
		return apperr.Internal("count hamper items", err)
	}

	if int(current)+adding > s.hamperMaxItems {
		return apperr.InvalidOperation(fmt.Sprintf("a hamper holds at most %d items", s.hamperMaxItems))
	}
	return nil
}

// eligibleProductIDs is a subquery selecting products of hamper-eligible categories.
func (s *CartService) eligibleProductIDs(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Model(&models.Product{}).
		Select("products.id").
		Joins("JOIN categories ON categories.id = products.category_id").
		Where("categories.hamper_eligible = ?", true)
}

func (s *CartService) findCart(ctx context.Context, db *gorm.DB, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	if err := db.WithContext(ctx).Where("user_id = ?", userID).First(&cart).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("cart not found")
		}
		return nil, apperr.Internal("load cart", err)
	}
	return &cart, nil
}

func (s *CartService) ensureCart(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.Cart, error) {
	cart := models.Cart{UserID: userID}
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&cart).Error; err != nil {
		return nil, apperr.Internal("create cart", err)
	}
	return s.findCart(ctx, tx, userID)
}

func (s *CartService) product(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).Preload("Category").First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("product not found")
		}
		return nil, apperr.Internal("load product", err)
	}
	return &product, nil
}

// view loads the cart lines, batch-fetches their products and assembles the
// response. Lines whose product no longer exists are skipped.
func (s *CartService) view(ctx context.Context, cart *models.Cart, hamperOnly bool) (*CartView, error) {
	var items []models.CartItem
	if err := s.db.WithContext(ctx).
		Where("cart_id = ?", cart.ID).
		Order("created_at asc").
		Find(&items).Error; err != nil {
		return nil, apperr.Internal("load cart items", err)
	}

	products, err := loadProducts(ctx, s.db, cartProductIDs(items))
	if err != nil {
		return nil, err
	}

	out := &CartView{ID: cart.ID, UserID: cart.UserID, Items: []CartLine{}}
	for _, item := range items {
		p, ok := products[item.ProductID]
		if !ok {
			continue
		}
		if hamperOnly && !p.HamperEligible() {
			continue
		}
		line := CartLine{
			ProductID:      p.ID,
			Name:           p.Name,
			Price:          p.Price,
			Images:         p.Images,
			CategoryID:     p.CategoryID,
			HamperEligible: p.HamperEligible(),
			SugarFree:      p.SugarFree,
			Quantity:       item.Quantity,
			LineTotal:      p.Price * float64(item.Quantity),
		}
		if p.Category != nil {
			line.CategoryName = p.Category.Name
		}
		out.Items = append(out.Items, line)
		out.TotalQuantity += line.Quantity
		out.TotalAmount += line.LineTotal
	}
	return out, nil
}

func cartProductIDs(items []models.CartItem) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	return ids
}

// loadProducts fetches products with their categories keyed by id.
func loadProducts(ctx context.Context, db *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error) {
	out := make(map[uuid.UUID]*models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var products []models.Product
	if err := db.WithContext(ctx).Preload("Category").Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, apperr.Internal("load products", err)
	}
	for i := range products {
		out[products[i].ID] = &products[i]
	}
	return out, nil
}
