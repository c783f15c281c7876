package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/bakehouse/internal/apperr"
	"github.com/example/bakehouse/internal/metrics"
	"github.com/example/bakehouse/internal/models"
	"github.com/example/bakehouse/internal/utils"
)

const otpDigits = 6

// OTPExpiry returns how long a code for purpose stays valid.
func OTPExpiry(purpose string) time.Duration {
	if purpose == models.OTPPurposeAdmin {
		return 5 * time.Minute
	}
	return 2 * time.Minute
}

// IssueResult is reported back to the caller after a code was sent.
type IssueResult struct {
	ExpiresIn         int `json:"expires_in"`
	RemainingAttempts int `json:"remaining_attempts"`
}

// OTPService issues and consumes one-time codes delivered by SMS. Codes are
// stored only as bcrypt hashes and at most one code per phone is live.
type OTPService struct {
	db      *gorm.DB
	limiter OTPLimiter
	sms     SMSSender
	log     *zap.Logger
	now     func() time.Time
}

func NewOTPService(db *gorm.DB, limiter OTPLimiter, sms SMSSender, log *zap.Logger) *OTPService {
	return &OTPService{db: db, limiter: limiter, sms: sms, log: log, now: time.Now}
}

// Issue rate-limits, replaces any previous code for phone, stores a new hashed
// code and sends it. A failed send removes the stored code again.
func (s *OTPService) Issue(ctx context.Context, phone, purpose string) (*IssueResult, error) {
	limit, err := s.limiter.Hit(ctx, phone)
	if err != nil {
		s.count(purpose, "error")
		return nil, apperr.Internal("otp rate limiter", err)
	}
	if !limit.Allowed {
		s.count(purpose, "rate_limited")
		return nil, apperr.RateLimited(
			fmt.Sprintf("too many code requests, try again in %d seconds", int(limit.RetryAfter.Seconds())),
			limit.RetryAfter)
	}

	code, err := utils.GenerateNumericCode(otpDigits)
	if err != nil {
		return nil, apperr.Internal("generate otp", err)
	}
	hash, err := utils.HashPassword(code)
	if err != nil {
		return nil, apperr.Internal("hash otp", err)
	}

	ttl := OTPExpiry(purpose)
	record := models.OTP{
		Phone:     phone,
		CodeHash:  hash,
		Purpose:   purpose,
		ExpiresAt: s.now().Add(ttl),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("phone = ? OR expires_at < ?", phone, s.now()).Delete(&models.OTP{}).Error; err != nil {
			return err
		}
		return tx.Create(&record).Error
	})
	if err != nil {
		s.count(purpose, "error")
		return nil, apperr.Internal("store otp", err)
	}

	body := fmt.Sprintf("Your verification code is %s. It expires in %d minutes.", code, int(ttl.Minutes()))
	if err := s.sms.SendSMS(ctx, phone, body); err != nil {
		s.log.Error("otp delivery failed", zap.String("purpose", purpose), zap.Error(err))
		if delErr := s.db.WithContext(context.WithoutCancel(ctx)).Delete(&models.OTP{}, "id = ?", record.ID).Error; delErr != nil {
			s.log.Error("otp rollback failed", zap.String("otp_id", record.ID.String()), zap.Error(delErr))
		}
		s.count(purpose, "delivery_failed")
		return nil, apperr.DeliveryFailure("failed to send verification code", err)
	}

	s.count(purpose, "sent")
	s.log.Info("otp issued", zap.String("purpose", purpose), zap.Int("remaining_attempts", limit.Remaining))
	return &IssueResult{
		ExpiresIn:         int(ttl.Seconds()),
		RemainingAttempts: limit.Remaining,
	}, nil
}

// Consume checks code against the latest live code for phone and deletes it
// on success. A wrong code leaves the record in place until it expires.
func (s *OTPService) Consume(ctx context.Context, phone, code, purpose string) error {
	db := s.db.WithContext(ctx)

	var record models.OTP
	err := db.Where("phone = ? AND purpose = ?", phone, purpose).
		Order("created_at desc").
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.verified(purpose, "expired")
		return apperr.Expired("verification code expired or not requested")
	}
	if err != nil {
		return apperr.Internal("load otp", err)
	}

	if record.Expired(s.now()) {
		s.verified(purpose, "expired")
		return apperr.Expired("verification code expired or not requested")
	}

	if !utils.CheckPassword(record.CodeHash, code) {
		s.verified(purpose, "invalid")
		return apperr.InvalidCode("invalid verification code")
	}

	res := db.Delete(&models.OTP{}, "id = ?", record.ID)
	if res.Error != nil {
		return apperr.Internal("delete otp", res.Error)
	}
	if res.RowsAffected == 0 {
		// consumed by a concurrent request
		s.verified(purpose, "expired")
		return apperr.Expired("verification code expired or not requested")
	}

	s.verified(purpose, "ok")
	return nil
}

func (s *OTPService) count(purpose, outcome string) {
	metrics.OTPRequests.WithLabelValues(purpose, outcome).Inc()
}

func (s *OTPService) verified(purpose, outcome string) {
	metrics.OTPVerifications.WithLabelValues(purpose, outcome).Inc()
}
