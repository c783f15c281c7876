package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/example/bakehouse/internal/apperr"
	"github.com/example/bakehouse/internal/models"
)

// DashboardStats is the admin overview. Values are computed on every request.
type DashboardStats struct {
	TotalUsers        int64            `json:"total_users"`
	TotalProducts     int64            `json:"total_products"`
	TotalCategories   int64            `json:"total_categories"`
	TotalOrders       int64            `json:"total_orders"`
	TotalReviews      int64            `json:"total_reviews"`
	PendingReviews    int64            `json:"pending_reviews"`
	FeaturedProducts  int64            `json:"featured_products"`
	SugarFreeProducts int64            `json:"sugar_free_products"`
	HamperOrders      int64            `json:"hamper_orders"`
	OrdersByStatus    map[string]int64 `json:"orders_by_status"`
	TotalRevenue      float64          `json:"total_revenue"`
	TodayRevenue      float64          `json:"today_revenue"`
}

type StatsService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewStatsService(db *gorm.DB) *StatsService {
	return &StatsService{db: db, now: time.Now}
}

func (s *StatsService) Dashboard(ctx context.Context) (*DashboardStats, error) {
	db := s.db.WithContext(ctx)
	stats := &DashboardStats{OrdersByStatus: make(map[string]int64, len(models.OrderStatuses))}

	counts := []struct {
		dst   *int64
		query *gorm.DB
	}{
		{&stats.TotalUsers, db.Model(&models.User{})},
		{&stats.TotalProducts, db.Model(&models.Product{})},
		{&stats.TotalCategories, db.Model(&models.Category{})},
		{&stats.TotalOrders, db.Model(&models.Order{})},
		{&stats.TotalReviews, db.Model(&models.Review{})},
		{&stats.PendingReviews, db.Model(&models.Review{}).Where("approved = ?", false)},
		{&stats.FeaturedProducts, db.Model(&models.Product{}).Where("featured = ?", true)},
		{&stats.SugarFreeProducts, db.Model(&models.Product{}).Where("sugar_free = ?", true)},
		{&stats.HamperOrders, db.Model(&models.Order{}).Where("is_hamper = ?", true)},
	}
	for _, c := range counts {
		if err := c.query.Count(c.dst).Error; err != nil {
			return nil, apperr.Internal("dashboard counts", err)
		}
	}

	for _, status := range models.OrderStatuses {
		stats.OrdersByStatus[status] = 0
	}
	var byStatus []struct {
		Status string
		Count  int64
	}
	if err := db.Model(&models.Order{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&byStatus).Error; err != nil {
		return nil, apperr.Internal("orders by status", err)
	}
	for _, row := range byStatus {
		stats.OrdersByStatus[row.Status] = row.Count
	}

	if err := db.Model(&models.Order{}).
		Where("status <> ?", models.OrderStatusCancelled).
		Select("COALESCE(SUM(total_amount), 0)").
		Scan(&stats.TotalRevenue).Error; err != nil {
		return nil, apperr.Internal("total revenue", err)
	}

	now := s.now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if err := db.Model(&models.Order{}).
		Where("status <> ? AND created_at >= ?", models.OrderStatusCancelled, startOfDay).
		Select("COALESCE(SUM(total_amount), 0)").
		Scan(&stats.TodayRevenue).Error; err != nil {
		return nil, apperr.Internal("today revenue", err)
	}

	stats.TotalRevenue = roundCents(stats.TotalRevenue)
	stats.TodayRevenue = roundCents(stats.TodayRevenue)
	return stats, nil
}
