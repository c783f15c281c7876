package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/bakehouse/internal/apperr"
	"github.com/example/bakehouse/internal/metrics"
	"github.com/example/bakehouse/internal/models"
	"github.com/example/bakehouse/internal/utils"
)

// CancellationWindow is how long after placing an order a customer may cancel it.
const CancellationWindow = 5 * time.Hour

const notifyTimeout = 20 * time.Second

type PlaceOrderInput struct {
	Hamper        bool
	TransactionID string
	Customization string
}

// OrderFilter narrows the admin order listing.
type OrderFilter struct {
	Status string
	Search string
	Page   utils.Pagination
}

type OrderService struct {
	db             *gorm.DB
	admin          AdminNotifier
	customer       CustomerNotifier
	hamperMaxItems int
	log            *zap.Logger
	now            func() time.Time
	// dispatch runs best-effort notifications off the request path.
	dispatch func(func())
}

func NewOrderService(db *gorm.DB, admin AdminNotifier, customer CustomerNotifier, hamperMaxItems int, log *zap.Logger) *OrderService {
	return &OrderService{
		db:             db,
		admin:          admin,
		customer:       customer,
		hamperMaxItems: hamperMaxItems,
		log:            log,
		now:            time.Now,
		dispatch:       func(f func()) { go f() },
	}
}

// PlaceOrder turns the cart, or only its hamper-eligible lines, into a pending
// order priced at current product prices. Ordered lines leave the cart.
func (s *OrderService) PlaceOrder(ctx context.Context, userID uuid.UUID, in PlaceOrderInput) (*models.Order, error) {
	order := models.Order{
		UserID:        userID,
		OrderNumber:   s.orderNumber(),
		Status:        models.OrderStatusPending,
		TransactionID: strings.TrimSpace(in.TransactionID),
		Customization: strings.TrimSpace(in.Customization),
		IsHamper:      in.Hamper,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cart models.Cart
		if err := tx.Where("user_id = ?", userID).First(&cart).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.InvalidOperation("cart is empty")
			}
			return apperr.Internal("load cart", err)
		}

		var lines []models.CartItem
		if err := tx.Where("cart_id = ?", cart.ID).Order("created_at asc").Find(&lines).Error; err != nil {
			return apperr.Internal("load cart items", err)
		}
		products, err := loadProducts(ctx, tx, cartProductIDs(lines))
		if err != nil {
			return err
		}

		var ordered []uuid.UUID
		var quantity int
		var total float64
		for _, line := range lines {
			p, ok := products[line.ProductID]
			if !ok || (in.Hamper && !p.HamperEligible()) {
				continue
			}
			lineTotal := roundCents(p.Price * float64(line.Quantity))
			order.Items = append(order.Items, models.OrderItem{
				ProductID:   p.ID,
				ProductName: p.Name,
				UnitPrice:   p.Price,
				Quantity:    line.Quantity,
				LineTotal:   lineTotal,
			})
			ordered = append(ordered, p.ID)
			quantity += line.Quantity
			total += lineTotal
		}

		if len(order.Items) == 0 {
			if in.Hamper {
				return apperr.InvalidOperation("hamper is empty")
			}
			return apperr.InvalidOperation("cart is empty")
		}
		if in.Hamper && s.hamperMaxItems > 0 && quantity > s.hamperMaxItems {
			return apperr.InvalidOperation(fmt.Sprintf("a hamper holds at most %d items", s.hamperMaxItems))
		}
		order.TotalAmount = roundCents(total)

		if err := tx.Create(&order).Error; err != nil {
			return apperr.Internal("create order", err)
		}
		if err := tx.Where("cart_id = ? AND product_id IN ?", cart.ID, ordered).Delete(&models.CartItem{}).Error; err != nil {
			return apperr.Internal("clear ordered cart lines", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	kind := "regular"
	if order.IsHamper {
		kind = "hamper"
	}
	metrics.OrdersPlaced.WithLabelValues(kind).Inc()
	s.log.Info("order placed",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.Float64("total", order.TotalAmount))

	placed := order
	s.notify(ctx, func(ctx context.Context) {
		customer, _ := s.user(ctx, userID)
		if err := s.admin.NotifyNewOrder(ctx, &placed, customer); err != nil {
			s.log.Warn("new order alert failed", zap.String("order_id", placed.ID.String()), zap.Error(err))
		}
	})

	return &order, nil
}

// ListOrders returns the user's orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, userID uuid.UUID, status string, pg utils.Pagination) ([]models.Order, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperr.Internal("count orders", err)
	}

	var orders []models.Order
	if err := query.Preload("Items").
		Order("created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&orders).Error; err != nil {
		return nil, 0, apperr.Internal("list orders", err)
	}
	return orders, total, nil
}

// GetOrder returns one of the user's orders. Orders of other users are not found.
func (s *OrderService) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).Preload("Items").
		First(&order, "id = ? AND user_id = ?", orderID, userID).Error; err != nil {
		return nil, orderLookupError(err)
	}
	return &order, nil
}

// ListAllOrders is the admin listing across all users.
func (s *OrderService) ListAllOrders(ctx context.Context, f OrderFilter) ([]models.Order, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Order{})
	if f.Status != "" {
		if !models.ValidOrderStatus(f.Status) {
			return nil, 0, invalidStatus()
		}
		query = query.Where("status = ?", f.Status)
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		query = query.Where("LOWER(order_number) LIKE ? "+utils.LikeEscape, utils.ContainsPattern(search))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperr.Internal("count orders", err)
	}

	var orders []models.Order
	if err := query.Preload("Items").Preload("User").
		Order("created_at desc").
		Limit(f.Page.Limit).Offset(f.Page.Offset).
		Find(&orders).Error; err != nil {
		return nil, 0, apperr.Internal("list orders", err)
	}
	return orders, total, nil
}

// GetOrderAdmin returns any order with its customer.
func (s *OrderService) GetOrderAdmin(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).Preload("Items").Preload("User").
		First(&order, "id = ?", orderID).Error; err != nil {
		return nil, orderLookupError(err)
	}
	return &order, nil
}

// RecentOrders returns the latest n orders for the dashboard.
func (s *OrderService) RecentOrders(ctx context.Context, n int) ([]models.Order, error) {
	var orders []models.Order
	if err := s.db.WithContext(ctx).Preload("User").
		Order("created_at desc").
		Limit(n).
		Find(&orders).Error; err != nil {
		return nil, apperr.Internal("recent orders", err)
	}
	return orders, nil
}

// UpdateStatus moves an order to any valid status.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, status string) (*models.Order, error) {
	if !models.ValidOrderStatus(status) {
		return nil, invalidStatus()
	}
	return s.update(ctx, orderID, map[string]interface{}{"status": status})
}

// SetPaymentVerified records whether the payment was checked by staff.
func (s *OrderService) SetPaymentVerified(ctx context.Context, orderID uuid.UUID, verified bool) (*models.Order, error) {
	return s.update(ctx, orderID, map[string]interface{}{"payment_verified": verified})
}

// CancelOrder lets the owner cancel a pending order within CancellationWindow.
// Customer and admin notifications are best-effort.
func (s *OrderService) CancelOrder(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.GetOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status != models.OrderStatusPending {
		return nil, apperr.InvalidOperation("order is not pending")
	}
	if order.Age(s.now()) > CancellationWindow {
		return nil, apperr.InvalidOperation("cancellation window expired")
	}

	res := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", order.ID, models.OrderStatusPending).
		Update("status", models.OrderStatusCancelled)
	if res.Error != nil {
		return nil, apperr.Internal("cancel order", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperr.InvalidOperation("order is not pending")
	}
	order.Status = models.OrderStatusCancelled

	s.log.Info("order cancelled", zap.String("order_id", order.ID.String()))

	cancelled := *order
	s.notify(ctx, func(ctx context.Context) {
		customer, err := s.user(ctx, userID)
		if err == nil {
			if err := s.customer.OrderCancelled(ctx, customer, &cancelled); err != nil {
				s.log.Warn("cancellation notice to customer failed", zap.String("order_id", cancelled.ID.String()), zap.Error(err))
			}
		}
		if err := s.admin.NotifyCancellation(ctx, &cancelled); err != nil {
			s.log.Warn("cancellation alert failed", zap.String("order_id", cancelled.ID.String()), zap.Error(err))
		}
	})

	return order, nil
}

func (s *OrderService) update(ctx context.Context, orderID uuid.UUID, updates map[string]interface{}) (*models.Order, error) {
	res := s.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", orderID).Updates(updates)
	if res.Error != nil {
		return nil, apperr.Internal("update order", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperr.NotFound("order not found")
	}
	return s.GetOrderAdmin(ctx, orderID)
}

func (s *OrderService) notify(ctx context.Context, fn func(ctx context.Context)) {
	base := context.WithoutCancel(ctx)
	s.dispatch(func() {
		ctx, cancel := context.WithTimeout(base, notifyTimeout)
		defer cancel()
		fn(ctx)
	})
}

func (s *OrderService) user(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *OrderService) orderNumber() string {
	return fmt.Sprintf("#%s-%s", s.now().Format("060102"), strings.ToUpper(uuid.NewString()[:6]))
}

func orderLookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("order not found")
	}
	return apperr.Internal("load order", err)
}

func invalidStatus() error {
	return apperr.Validation("status must be one of [" + strings.Join(models.OrderStatuses, ", ") + "]")
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
