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

type ProfileInput struct {
	Name  string
	Email string
}

// UserSummary is a user row in the admin listing.
type UserSummary struct {
	models.User
	OrderCount int64   `json:"order_count"`
	TotalSpent float64 `json:"total_spent"`
}

type UserService struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewUserService(db *gorm.DB, log *zap.Logger) *UserService {
	return &UserService{db: db, log: log}
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Internal("load user", err)
	}
	return &user, nil
}

// Role returns the stored role of a user.
func (s *UserService) Role(ctx context.Context, id uuid.UUID) (string, error) {
	var role string
	err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Limit(1).Pluck("role", &role).Error
	if err != nil {
		return "", apperr.Internal("load user role", err)
	}
	if role == "" {
		return "", apperr.NotFound("user not found")
	}
	return role, nil
}

// UpdateProfile changes name and email. Empty fields are left untouched.
func (s *UserService) UpdateProfile(ctx context.Context, id uuid.UUID, in ProfileInput) (*models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if name == "" && email == "" {
		return nil, apperr.Validation("no fields to update")
	}

	if name != "" {
		user.Name = name
	}
	if email != "" {
		if err := ensureUniqueContact(ctx, s.db, email, "", id); err != nil {
			return nil, err
		}
		user.Email = &email
	}

	if err := s.db.WithContext(ctx).Save(user).Error; err != nil {
		return nil, apperr.Internal("update profile", err)
	}
	return user, nil
}

// ChangePassword sets a new password. Accounts that already have one must
// present it.
func (s *UserService) ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error {
	if len(next) < minPasswordLength {
		return apperr.Validation("password must be at least 8 characters")
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if user.HasPassword() && !utils.CheckPassword(user.PasswordHash, current) {
		return apperr.Unauthenticated("current password is incorrect")
	}

	hash, err := utils.HashPassword(next)
	if err != nil {
		return apperr.Internal("hash password", err)
	}
	if err := s.db.WithContext(ctx).Model(user).Update("password_hash", hash).Error; err != nil {
		return apperr.Internal("update password", err)
	}
	return nil
}

// List returns users with their order count and non-cancelled spend.
func (s *UserService) List(ctx context.Context, search string, pg utils.Pagination) ([]UserSummary, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.User{})
	if search = strings.TrimSpace(search); search != "" {
		like := utils.ContainsPattern(search)
		query = query.Where("LOWER(name) LIKE ? "+utils.LikeEscape+" OR LOWER(email) LIKE ? "+utils.LikeEscape+" OR phone LIKE ? "+utils.LikeEscape, like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperr.Internal("count users", err)
	}

	var users []models.User
	if err := query.Order("created_at desc").Limit(pg.Limit).Offset(pg.Offset).Find(&users).Error; err != nil {
		return nil, 0, apperr.Internal("list users", err)
	}

	out := make([]UserSummary, 0, len(users))
	if len(users) == 0 {
		return out, total, nil
	}

	ids := make([]uuid.UUID, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}

	var rows []struct {
		UserID     uuid.UUID
		OrderCount int64
		TotalSpent float64
	}
	if err := s.db.WithContext(ctx).Model(&models.Order{}).
		Select("user_id, count(*) as order_count, COALESCE(SUM(CASE WHEN status <> ? THEN total_amount ELSE 0 END), 0) as total_spent", models.OrderStatusCancelled).
		Where("user_id IN ?", ids).
		Group("user_id").
		Scan(&rows).Error; err != nil {
		return nil, 0, apperr.Internal("user order totals", err)
	}
	totals := make(map[uuid.UUID]int, len(rows))
	for i, r := range rows {
		totals[r.UserID] = i
	}

	for _, u := range users {
		summary := UserSummary{User: u}
		if i, ok := totals[u.ID]; ok {
			summary.OrderCount = rows[i].OrderCount
			summary.TotalSpent = roundCents(rows[i].TotalSpent)
		}
		out = append(out, summary)
	}
	return out, total, nil
}

// SetRole promotes or demotes a user. Admins cannot demote themselves.
func (s *UserService) SetRole(ctx context.Context, actor, id uuid.UUID, role string) (*models.User, error) {
	if role != models.RoleUser && role != models.RoleAdmin {
		return nil, apperr.Validation("role must be one of [user admin]")
	}
	if actor == id && role != models.RoleAdmin {
		return nil, apperr.InvalidOperation("administrators cannot remove their own role")
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(user).Update("role", role).Error; err != nil {
		return nil, apperr.Internal("update role", err)
	}
	user.Role = role

	s.log.Info("user role changed", zap.String("user_id", id.String()), zap.String("role", role), zap.String("by", actor.String()))
	return user, nil
}
