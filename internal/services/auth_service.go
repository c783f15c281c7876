package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/bakehouse/internal/apperr"
	"github.com/example/bakehouse/internal/models"
	"github.com/example/bakehouse/internal/utils"
)

// SignupTicketTTL bounds the time between OTP verification and account creation.
const SignupTicketTTL = 15 * time.Minute

const minPasswordLength = 8

// Session is an issued login.
type Session struct {
	Token     string       `json:"-"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// VerifyResult is the outcome of a successful OTP verification. Either
// Session is set (existing account) or SignupTicket (phone verified, account
// still to be created).
type VerifyResult struct {
	Session         *Session
	SignupTicket    string
	TicketExpiresAt time.Time
}

type VerifyOTPInput struct {
	Phone   string
	Code    string
	Purpose string
	Name    string
	Email   string
}

type SignupInput struct {
	Ticket   string
	Name     string
	Email    string
	Phone    string
	Password string
}

// AuthService implements every login path: phone OTP (customer and admin),
// credentials, social providers and OTP password reset.
type AuthService struct {
	db       *gorm.DB
	otp      *OTPService
	social   SocialVerifier
	secret   string
	tokenTTL time.Duration
	log      *zap.Logger
}

func NewAuthService(db *gorm.DB, otp *OTPService, social SocialVerifier, secret string, tokenTTL time.Duration, log *zap.Logger) *AuthService {
	return &AuthService{db: db, otp: otp, social: social, secret: secret, tokenTTL: tokenTTL, log: log}
}

// RequestOTP sends a code for purpose. Admin codes are only sent to phones of
// admin accounts; reset codes only to registered phones; signup codes only to
// unregistered ones.
func (s *AuthService) RequestOTP(ctx context.Context, phone, purpose string) (*IssueResult, error) {
	phone = utils.NormalizePhone(phone)
	if !utils.ValidPhone(phone) {
		return nil, apperr.Validation("phone must be a valid phone number")
	}

	switch purpose {
	case models.OTPPurposeAdmin:
		user, err := s.userByPhone(ctx, phone)
		if err != nil {
			return nil, err
		}
		if !user.IsAdmin() {
			return nil, apperr.Forbidden("phone does not belong to an administrator")
		}
	case models.OTPPurposeReset:
		if _, err := s.userByPhone(ctx, phone); err != nil {
			return nil, err
		}
	case models.OTPPurposeSignup:
		_, err := s.userByPhone(ctx, phone)
		if err == nil {
			return nil, apperr.Conflict("phone is already registered")
		}
		if !apperr.Is(err, apperr.KindNotFound) {
			return nil, err
		}
	case models.OTPPurposeLogin:
	default:
		return nil, apperr.Validation("unknown otp purpose")
	}

	return s.otp.Issue(ctx, phone, purpose)
}

// VerifyOTP consumes the code and logs the phone's owner in. For an unknown
// phone it returns a signup ticket when name and email were supplied.
func (s *AuthService) VerifyOTP(ctx context.Context, in VerifyOTPInput) (*VerifyResult, error) {
	phone := utils.NormalizePhone(in.Phone)
	if !utils.ValidPhone(phone) {
		return nil, apperr.Validation("phone must be a valid phone number")
	}
	if len(in.Code) != otpDigits {
		return nil, apperr.Validation("code must have 6 digits")
	}

	purpose := in.Purpose
	if purpose == "" {
		purpose = models.OTPPurposeLogin
	}

	if err := s.otp.Consume(ctx, phone, in.Code, purpose); err != nil {
		return nil, err
	}

	user, err := s.userByPhone(ctx, phone)
	switch {
	case err == nil:
		role := ""
		if purpose == models.OTPPurposeAdmin {
			if !user.IsAdmin() {
				return nil, apperr.Forbidden("administrator access required")
			}
			role = models.RoleAdmin
		}
		session, err := s.issue(user, role)
		if err != nil {
			return nil, err
		}
		return &VerifyResult{Session: session}, nil

	case apperr.Is(err, apperr.KindNotFound):
		if purpose == models.OTPPurposeAdmin {
			return nil, err
		}
		if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Email) == "" {
			return nil, apperr.NotFound("no account is registered for this phone")
		}
		ticket, err := utils.GenerateSignupTicket(s.secret, phone, SignupTicketTTL)
		if err != nil {
			return nil, apperr.Internal("sign signup ticket", err)
		}
		return &VerifyResult{SignupTicket: ticket, TicketExpiresAt: time.Now().Add(SignupTicketTTL)}, nil

	default:
		return nil, err
	}
}

// Signup creates the account for a phone that passed OTP verification.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*Session, error) {
	phone := utils.NormalizePhone(in.Phone)
	verified, err := utils.ParseSignupTicket(s.secret, in.Ticket)
	if err != nil {
		return nil, apperr.Unauthenticated("phone verification required")
	}
	if verified != phone {
		return nil, apperr.Forbidden("phone does not match the verified number")
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	user := models.User{
		Name:     strings.TrimSpace(in.Name),
		Email:    &email,
		Phone:    &phone,
		Role:     models.RoleUser,
		Provider: models.ProviderCredentials,
	}
	if in.Password != "" {
		if len(in.Password) < minPasswordLength {
			return nil, apperr.Validation("password must be at least 8 characters")
		}
		hash, err := utils.HashPassword(in.Password)
		if err != nil {
			return nil, apperr.Internal("hash password", err)
		}
		user.PasswordHash = hash
	}

	if err := s.ensureUnique(ctx, email, phone, uuid.Nil); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, apperr.Internal("create user", err)
	}

	s.log.Info("user signed up", zap.String("user_id", user.ID.String()))
	return s.issue(&user, "")
}

// Login checks an email-or-phone identifier and password.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*Session, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, apperr.Validation("identifier and password are required")
	}

	var user models.User
	query := s.db.WithContext(ctx)
	if strings.Contains(identifier, "@") {
		query = query.Where("email = ?", strings.ToLower(identifier))
	} else {
		query = query.Where("phone = ?", utils.NormalizePhone(identifier))
	}
	if err := query.First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Unauthenticated("invalid credentials")
		}
		return nil, apperr.Internal("load user", err)
	}

	if !user.HasPassword() || !utils.CheckPassword(user.PasswordHash, password) {
		return nil, apperr.Unauthenticated("invalid credentials")
	}

	return s.issue(&user, "")
}

// SocialLogin signs in with a provider token, creating the account on first use.
func (s *AuthService) SocialLogin(ctx context.Context, provider, token string) (*Session, error) {
	identity, err := s.social.Verify(ctx, provider, token)
	if err != nil {
		if errors.Is(err, ErrSocialTokenRejected) {
			return nil, apperr.Unauthenticated("social login rejected")
		}
		if errors.Is(err, ErrSocialNotConfigured) {
			return nil, apperr.Forbidden(provider + " login is not enabled")
		}
		return nil, apperr.Internal("verify social token", err)
	}

	var user models.User
	err = s.db.WithContext(ctx).Where("email = ?", identity.Email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		email := identity.Email
		user = models.User{
			Name:     identity.Name,
			Email:    &email,
			Role:     models.RoleUser,
			Provider: identity.Provider,
		}
		if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
			return nil, apperr.Internal("create social user", err)
		}
		s.log.Info("social user created", zap.String("user_id", user.ID.String()), zap.String("provider", identity.Provider))
	} else if err != nil {
		return nil, apperr.Internal("load user", err)
	}

	return s.issue(&user, "")
}

// ResetPassword sets a new password after verifying a reset code.
func (s *AuthService) ResetPassword(ctx context.Context, phone, code, newPassword string) error {
	phone = utils.NormalizePhone(phone)
	if len(newPassword) < minPasswordLength {
		return apperr.Validation("password must be at least 8 characters")
	}

	if err := s.otp.Consume(ctx, phone, code, models.OTPPurposeReset); err != nil {
		return err
	}

	user, err := s.userByPhone(ctx, phone)
	if err != nil {
		return err
	}

	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return apperr.Internal("hash password", err)
	}
	user.PasswordHash = hash
	if err := s.db.WithContext(ctx).Save(user).Error; err != nil {
		return apperr.Internal("update password", err)
	}
	return nil
}

// CurrentUser loads the user behind an identity.
func (s *AuthService) CurrentUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Unauthenticated("account no longer exists")
		}
		return nil, apperr.Internal("load user", err)
	}
	return &user, nil
}

func (s *AuthService) issue(user *models.User, role string) (*Session, error) {
	token, err := utils.GenerateToken(s.secret, user.ID, role, s.tokenTTL)
	if err != nil {
		return nil, apperr.Internal("failed to generate token", err)
	}
	return &Session{Token: token, ExpiresAt: time.Now().Add(s.tokenTTL), User: user}, nil
}

func (s *AuthService) userByPhone(ctx context.Context, phone string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("phone = ?", phone).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("no account is registered for this phone")
		}
		return nil, apperr.Internal("load user", err)
	}
	return &user, nil
}

// ensureUnique rejects an email or phone already used by another account.
func (s *AuthService) ensureUnique(ctx context.Context, email, phone string, self uuid.UUID) error {
	return ensureUniqueContact(ctx, s.db, email, phone, self)
}

func ensureUniqueContact(ctx context.Context, db *gorm.DB, email, phone string, self uuid.UUID) error {
	if email != "" {
		var n int64
		if err := db.WithContext(ctx).Model(&models.User{}).
			Where("email = ? AND id <> ?", email, self).Count(&n).Error; err != nil {
			return apperr.Internal("check email", err)
		}
		if n > 0 {
			return apperr.Conflict("email is already registered")
		}
	}
	if phone != "" {
		var n int64
		if err := db.WithContext(ctx).Model(&models.User{}).
			Where("phone = ? AND id <> ?", phone, self).Count(&n).Error; err != nil {
			return apperr.Internal("check phone", err)
		}
		if n > 0 {
			return apperr.Conflict("phone is already registered")
		}
	}
	return nil
}
