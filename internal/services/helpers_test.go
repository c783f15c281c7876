package services

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/bakehouse/internal/database"
	"github.com/example/bakehouse/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := database.Connect(database.DriverSQLite, dsn, zap.NewNop())
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return conn
}

var codePattern = regexp.MustCompile(`\b(\d{6})\b`)

type fakeSMS struct {
	mu   sync.Mutex
	sent map[string][]string
	err  error
}

func newFakeSMS() *fakeSMS {
	return &fakeSMS{sent: make(map[string][]string)}
}

func (f *fakeSMS) SendSMS(_ context.Context, phone, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent[phone] = append(f.sent[phone], body)
	return nil
}

// lastCode returns the code of the latest message sent to phone.
func (f *fakeSMS) lastCode(t *testing.T, phone string) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	msgs := f.sent[phone]
	require.NotEmpty(t, msgs, "no sms sent to %s", phone)
	m := codePattern.FindStringSubmatch(msgs[len(msgs)-1])
	require.Len(t, m, 2)
	return m[1]
}

type fakeAdminNotifier struct {
	placed    []string
	cancelled []string
	err       error
}

func (f *fakeAdminNotifier) NotifyNewOrder(_ context.Context, order *models.Order, _ *models.User) error {
	f.placed = append(f.placed, order.OrderNumber)
	return f.err
}

func (f *fakeAdminNotifier) NotifyCancellation(_ context.Context, order *models.Order) error {
	f.cancelled = append(f.cancelled, order.OrderNumber)
	return f.err
}

type fakeCustomerNotifier struct {
	notified []uuid.UUID
	err      error
}

func (f *fakeCustomerNotifier) OrderCancelled(_ context.Context, _ *models.User, order *models.Order) error {
	f.notified = append(f.notified, order.ID)
	return f.err
}

var errProviderDown = errors.New("provider down")

// fixture is a small catalog: one hamper-eligible and one regular category.
type fixture struct {
	user      models.User
	cookies   models.Category
	breads    models.Category
	cookie    models.Product // price 100, hamper eligible
	brownie   models.Product // price 50, hamper eligible
	sourdough models.Product // price 250, not eligible
}

func seedFixture(t *testing.T, db *gorm.DB) *fixture {
	t.Helper()

	phone := "9998887776"
	email := "ada@example.com"
	f := &fixture{
		user:    models.User{Name: "Ada", Phone: &phone, Email: &email},
		cookies: models.Category{Name: "Cookies", HamperEligible: true},
		breads:  models.Category{Name: "Breads"},
	}
	require.NoError(t, db.Create(&f.user).Error)
	require.NoError(t, db.Create(&f.cookies).Error)
	require.NoError(t, db.Create(&f.breads).Error)

	f.cookie = models.Product{Name: "Choco Chip Cookie", Price: 100, CategoryID: f.cookies.ID, Images: []string{}}
	f.brownie = models.Product{Name: "Brownie", Price: 50, CategoryID: f.cookies.ID, Images: []string{}, SugarFree: true}
	f.sourdough = models.Product{Name: "Sourdough Loaf", Price: 250, CategoryID: f.breads.ID, Images: []string{}, Featured: true}
	require.NoError(t, db.Create(&f.cookie).Error)
	require.NoError(t, db.Create(&f.brownie).Error)
	require.NoError(t, db.Create(&f.sourdough).Error)

	return f
}
