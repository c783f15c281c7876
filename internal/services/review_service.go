package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/bakehouse/internal/apperr"
	"github.com/example/bakehouse/internal/models"
	"github.com/example/bakehouse/internal/utils"
)

type ReviewInput struct {
	Name    string
	Phone   string
	Email   string
	Comment string
}

// ReviewService stores customer testimonials. New reviews stay hidden until
// an admin approves them.
type ReviewService struct {
	db *gorm.DB
}

func NewReviewService(db *gorm.DB) *ReviewService {
	return &ReviewService{db: db}
}

func (s *ReviewService) Submit(ctx context.Context, in ReviewInput) (*models.Review, error) {
	review := models.Review{
		Name:    strings.TrimSpace(in.Name),
		Phone:   utils.NormalizePhone(in.Phone),
		Email:   strings.ToLower(strings.TrimSpace(in.Email)),
		Comment: strings.TrimSpace(in.Comment),
	}
	if review.Name == "" || review.Comment == "" {
		return nil, apperr.Validation("name and comment are required")
	}

	if err := s.db.WithContext(ctx).Create(&review).Error; err != nil {
		return nil, apperr.Internal("create review", err)
	}
	return &review, nil
}

// List returns reviews newest first. A nil approved returns every review.
func (s *ReviewService) List(ctx context.Context, approved *bool, pg utils.Pagination) ([]models.Review, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Review{})
	if approved != nil {
		query = query.Where("approved = ?", *approved)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperr.Internal("count reviews", err)
	}

	var reviews []models.Review
	if err := query.Order("created_at desc").Limit(pg.Limit).Offset(pg.Offset).Find(&reviews).Error; err != nil {
		return nil, 0, apperr.Internal("list reviews", err)
	}
	return reviews, total, nil
}

// SetApproval sets the approval flag, or flips it when approved is nil.
func (s *ReviewService) SetApproval(ctx context.Context, id uuid.UUID, approved *bool) (*models.Review, error) {
	var review models.Review
	if err := s.db.WithContext(ctx).First(&review, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("review not found")
		}
		return nil, apperr.Internal("load review", err)
	}

	next := !review.Approved
	if approved != nil {
		next = *approved
	}
	if err := s.db.WithContext(ctx).Model(&review).Update("approved", next).Error; err != nil {
		return nil, apperr.Internal("update review", err)
	}
	review.Approved = next
	return &review, nil
}

func (s *ReviewService) Delete(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Delete(&models.Review{}, "id = ?", id)
	if res.Error != nil {
		return apperr.Internal("delete review", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("review not found")
	}
	return nil
}
