package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/bakehouse/internal/apperr"
	"github.com/example/bakehouse/internal/models"
)

const testPhone = "9998887776"

func newOTPService(t *testing.T) (*OTPService, *fakeSMS, *time.Time) {
	t.Helper()

	clock := time.Now()
	sms := newFakeSMS()
	limiter := NewMemoryLimiter(OTPMaxRequests, OTPWindow)
	limiter.now = func() time.Time { return clock }

	svc := NewOTPService(newTestDB(t), limiter, sms, zap.NewNop())
	svc.now = func() time.Time { return clock }
	return svc, sms, &clock
}

func TestOTPIssueStoresOnlyHash(t *testing.T) {
	ctx := context.Background()
	svc, sms, _ := newOTPService(t)

	res, err := svc.Issue(ctx, testPhone, models.OTPPurposeLogin)
	require.NoError(t, err)
	assert.Equal(t, 120, res.ExpiresIn)
	assert.Equal(t, 2, res.RemainingAttempts)

	code := sms.lastCode(t, testPhone)

	var records []models.OTP
	require.NoError(t, svc.db.Find(&records).Error)
	require.Len(t, records, 1)
	assert.NotEqual(t, code, records[0].CodeHash)
	assert.NotContains(t, records[0].CodeHash, code)
}

func TestOTPAdminExpiry(t *testing.T) {
	svc, _, _ := newOTPService(t)

	res, err := svc.Issue(context.Background(), testPhone, models.OTPPurposeAdmin)
	require.NoError(t, err)
	assert.Equal(t, 300, res.ExpiresIn)
}

func TestOTPReissueReplacesPreviousCode(t *testing.T) {
	ctx := context.Background()
	svc, sms, _ := newOTPService(t)

	_, err := svc.Issue(ctx, testPhone, models.OTPPurposeLogin)
	require.NoError(t, err)
	first := sms.lastCode(t, testPhone)

	_, err = svc.Issue(ctx, testPhone, models.OTPPurposeLogin)
	require.NoError(t, err)
	second := sms.lastCode(t, testPhone)

	var n int64
	require.NoError(t, svc.db.Model(&models.OTP{}).Where("phone = ?", testPhone).Count(&n).Error)
	assert.EqualValues(t, 1, n)

	if first != second {
		err = svc.Consume(ctx, testPhone, first, models.OTPPurposeLogin)
		assert.True(t, apperr.Is(err, apperr.KindInvalidCode))
	}
	assert.NoError(t, svc.Consume(ctx, testPhone, second, models.OTPPurposeLogin))
}

func TestOTPSingleUse(t *testing.T) {
	ctx := context.Background()
	svc, sms, _ := newOTPService(t)

	_, err := svc.Issue(ctx, testPhone, models.OTPPurposeLogin)
	require.NoError(t, err)
	code := sms.lastCode(t, testPhone)

	require.NoError(t, svc.Consume(ctx, testPhone, code, models.OTPPurposeLogin))

	err = svc.Consume(ctx, testPhone, code, models.OTPPurposeLogin)
	assert.True(t, apperr.Is(err, apperr.KindExpired))
}

func TestOTPWrongCodeKeepsRecord(t *testing.T) {
	ctx := context.Background()
	svc, sms, _ := newOTPService(t)

	_, err := svc.Issue(ctx, testPhone, models.OTPPurposeLogin)
	require.NoError(t, err)
	code := sms.lastCode(t, testPhone)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	err = svc.Consume(ctx, testPhone, wrong, models.OTPPurposeLogin)
	assert.True(t, apperr.Is(err, apperr.KindInvalidCode))

	assert.NoError(t, svc.Consume(ctx, testPhone, code, models.OTPPurposeLogin))
}

func TestOTPExpires(t *testing.T) {
	ctx := context.Background()
	svc, sms, clock := newOTPService(t)

	_, err := svc.Issue(ctx, testPhone, models.OTPPurposeLogin)
	require.NoError(t, err)
	code := sms.lastCode(t, testPhone)

	*clock = clock.Add(2*time.Minute + time.Second)
	err = svc.Consume(ctx, testPhone, code, models.OTPPurposeLogin)
	assert.True(t, apperr.Is(err, apperr.KindExpired))
}

func TestOTPPurposeMismatch(t *testing.T) {
	ctx := context.Background()
	svc, sms, _ := newOTPService(t)

	_, err := svc.Issue(ctx, testPhone, models.OTPPurposeLogin)
	require.NoError(t, err)
	code := sms.lastCode(t, testPhone)

	err = svc.Consume(ctx, testPhone, code, models.OTPPurposeAdmin)
	assert.True(t, apperr.Is(err, apperr.KindExpired))
}

func TestOTPFourthRequestRateLimited(t *testing.T) {
	ctx := context.Background()
	svc, _, clock := newOTPService(t)

	for i := 0; i < 3; i++ {
		_, err := svc.Issue(ctx, testPhone, models.OTPPurposeLogin)
		require.NoError(t, err)
		*clock = clock.Add(time.Minute)
	}

	_, err := svc.Issue(ctx, testPhone, models.OTPPurposeLogin)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindRateLimited))

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Greater(t, appErr.RetryAfter, time.Duration(0))
}

func TestOTPDeliveryFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	svc, sms, _ := newOTPService(t)
	sms.err = errProviderDown

	_, err := svc.Issue(ctx, testPhone, models.OTPPurposeLogin)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindDeliveryFailure))
	assert.Equal(t, "internal server error", err.(*apperr.Error).Public())

	var n int64
	require.NoError(t, svc.db.Model(&models.OTP{}).Count(&n).Error)
	assert.Zero(t, n)
}
