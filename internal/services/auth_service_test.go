package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/bakehouse/internal/apperr"
	"github.com/example/bakehouse/internal/models"
	"github.com/example/bakehouse/internal/utils"
)

const authSecret = "auth-test-secret"

type fakeSocial struct {
	identity SocialIdentity
	err      error
}

func (f *fakeSocial) Verify(_ context.Context, _, _ string) (SocialIdentity, error) {
	return f.identity, f.err
}

type authEnv struct {
	auth   *AuthService
	sms    *fakeSMS
	social *fakeSocial
	db     *gorm.DB
}

func newAuthEnv(t *testing.T) *authEnv {
	t.Helper()
	db := newTestDB(t)
	sms := newFakeSMS()
	social := &fakeSocial{}
	otp := NewOTPService(db, NewMemoryLimiter(OTPMaxRequests, OTPWindow), sms, zap.NewNop())
	return &authEnv{
		auth:   NewAuthService(db, otp, social, authSecret, 24*time.Hour, zap.NewNop()),
		sms:    sms,
		social: social,
		db:     db,
	}
}

func (e *authEnv) createUser(t *testing.T, phone, email, role, password string) *models.User {
	t.Helper()
	user := models.User{Name: "Test", Role: role}
	if phone != "" {
		user.Phone = &phone
	}
	if email != "" {
		user.Email = &email
	}
	if password != "" {
		hash, err := utils.HashPassword(password)
		require.NoError(t, err)
		user.PasswordHash = hash
	}
	require.NoError(t, e.db.Create(&user).Error)
	return &user
}

func TestVerifyOTPLogsInExistingUser(t *testing.T) {
	ctx := context.Background()
	env := newAuthEnv(t)
	user := env.createUser(t, testPhone, "ada@example.com", models.RoleUser, "")

	_, err := env.auth.RequestOTP(ctx, testPhone, models.OTPPurposeLogin)
	require.NoError(t, err)

	res, err := env.auth.VerifyOTP(ctx, VerifyOTPInput{Phone: testPhone, Code: env.sms.lastCode(t, testPhone)})
	require.NoError(t, err)
	require.NotNil(t, res.Session)
	assert.Equal(t, user.ID, res.Session.User.ID)

	id, role, err := utils.ParseToken(authSecret, res.Session.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, id)
	assert.Empty(t, role)
}

func TestAdminOTPFlow(t *testing.T) {
	ctx := context.Background()
	env := newAuthEnv(t)
	admin := env.createUser(t, "1112223334", "", models.RoleAdmin, "")
	env.createUser(t, testPhone, "", models.RoleUser, "")

	t.Run("unknown phone", func(t *testing.T) {
		_, err := env.auth.RequestOTP(ctx, "5556667778", models.OTPPurposeAdmin)
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
	})

	t.Run("non-admin phone", func(t *testing.T) {
		_, err := env.auth.RequestOTP(ctx, testPhone, models.OTPPurposeAdmin)
		assert.True(t, apperr.Is(err, apperr.KindForbidden))
	})

	t.Run("admin gets role claim", func(t *testing.T) {
		res, err := env.auth.RequestOTP(ctx, "1112223334", models.OTPPurposeAdmin)
		require.NoError(t, err)
		assert.Equal(t, 300, res.ExpiresIn)

		verified, err := env.auth.VerifyOTP(ctx, VerifyOTPInput{
			Phone:   "1112223334",
			Code:    env.sms.lastCode(t, "1112223334"),
			Purpose: models.OTPPurposeAdmin,
		})
		require.NoError(t, err)

		id, role, err := utils.ParseToken(authSecret, verified.Session.Token)
		require.NoError(t, err)
		assert.Equal(t, admin.ID, id)
		assert.Equal(t, models.RoleAdmin, role)
	})
}

func TestOTPSignupWithTicket(t *testing.T) {
	ctx := context.Background()
	env := newAuthEnv(t)

	_, err := env.auth.RequestOTP(ctx, testPhone, models.OTPPurposeSignup)
	require.NoError(t, err)

	t.Run("unknown phone without details", func(t *testing.T) {
		_, err := env.auth.RequestOTP(ctx, "5556667778", models.OTPPurposeLogin)
		require.NoError(t, err)
		_, err = env.auth.VerifyOTP(ctx, VerifyOTPInput{Phone: "5556667778", Code: env.sms.lastCode(t, "5556667778")})
		assert.True(t, apperr.Is(err, apperr.KindNotFound))
	})

	res, err := env.auth.VerifyOTP(ctx, VerifyOTPInput{
		Phone:   testPhone,
		Code:    env.sms.lastCode(t, testPhone),
		Purpose: models.OTPPurposeSignup,
		Name:    "Ada",
		Email:   "ada@example.com",
	})
	require.NoError(t, err)
	assert.Nil(t, res.Session)
	require.NotEmpty(t, res.SignupTicket)

	_, err = env.auth.Signup(ctx, SignupInput{Ticket: res.SignupTicket, Name: "Ada", Email: "ada@example.com", Phone: "1112223334"})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))

	session, err := env.auth.Signup(ctx, SignupInput{Ticket: res.SignupTicket, Name: "Ada", Email: "Ada@Example.com", Phone: testPhone, Password: "correct horse"})
	require.NoError(t, err)
	assert.True(t, session.User.ProfileComplete)
	assert.Equal(t, "ada@example.com", session.User.EmailAddress())

	_, err = env.auth.Signup(ctx, SignupInput{Ticket: res.SignupTicket, Name: "Ada", Email: "ada@example.com", Phone: testPhone})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = env.auth.RequestOTP(ctx, testPhone, models.OTPPurposeSignup)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestSignupRequiresTicket(t *testing.T) {
	env := newAuthEnv(t)

	_, err := env.auth.Signup(context.Background(), SignupInput{Ticket: "forged", Name: "Eve", Email: "eve@example.com", Phone: testPhone})
	assert.True(t, apperr.Is(err, apperr.KindUnauthenticated))
}

func TestCredentialLogin(t *testing.T) {
	ctx := context.Background()
	env := newAuthEnv(t)
	user := env.createUser(t, testPhone, "ada@example.com", models.RoleUser, "s3cret-pass")

	session, err := env.auth.Login(ctx, "ADA@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, user.ID, session.User.ID)

	session, err = env.auth.Login(ctx, "999-888-7776", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, user.ID, session.User.ID)

	_, err = env.auth.Login(ctx, "ada@example.com", "wrong")
	assert.True(t, apperr.Is(err, apperr.KindUnauthenticated))

	_, err = env.auth.Login(ctx, "nobody@example.com", "s3cret-pass")
	assert.True(t, apperr.Is(err, apperr.KindUnauthenticated))
}

func TestSocialLoginFindsOrCreates(t *testing.T) {
	ctx := context.Background()
	env := newAuthEnv(t)
	env.social.identity = SocialIdentity{Provider: models.ProviderGoogle, Subject: "g-1", Email: "grace@example.com", Name: "Grace"}

	first, err := env.auth.SocialLogin(ctx, models.ProviderGoogle, "token")
	require.NoError(t, err)
	assert.Equal(t, models.ProviderGoogle, first.User.Provider)
	assert.False(t, first.User.HasPassword())

	second, err := env.auth.SocialLogin(ctx, models.ProviderGoogle, "token")
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, second.User.ID)

	env.social.err = ErrSocialTokenRejected
	_, err = env.auth.SocialLogin(ctx, models.ProviderGoogle, "bad")
	assert.True(t, apperr.Is(err, apperr.KindUnauthenticated))

	env.social.err = ErrSocialNotConfigured
	_, err = env.auth.SocialLogin(ctx, models.ProviderFacebook, "token")
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestResetPassword(t *testing.T) {
	ctx := context.Background()
	env := newAuthEnv(t)
	env.createUser(t, testPhone, "ada@example.com", models.RoleUser, "old-password")

	_, err := env.auth.RequestOTP(ctx, "5556667778", models.OTPPurposeReset)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = env.auth.RequestOTP(ctx, testPhone, models.OTPPurposeReset)
	require.NoError(t, err)
	code := env.sms.lastCode(t, testPhone)

	err = env.auth.ResetPassword(ctx, testPhone, code, "short")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	require.NoError(t, env.auth.ResetPassword(ctx, testPhone, code, "new-password"))

	_, err = env.auth.Login(ctx, testPhone, "new-password")
	assert.NoError(t, err)
	_, err = env.auth.Login(ctx, testPhone, "old-password")
	assert.True(t, apperr.Is(err, apperr.KindUnauthenticated))
}

func TestRequestOTPValidatesPhone(t *testing.T) {
	env := newAuthEnv(t)

	_, err := env.auth.RequestOTP(context.Background(), "12ab", models.OTPPurposeLogin)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}
