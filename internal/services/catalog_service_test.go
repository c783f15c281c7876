package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/bakehouse/internal/apperr"
	"github.com/example/bakehouse/internal/models"
	"github.com/example/bakehouse/internal/utils"
)

func newCatalogService(t *testing.T) (*CatalogService, *fixture) {
	t.Helper()
	db := newTestDB(t)
	return NewCatalogService(db, zap.NewNop()), seedFixture(t, db)
}

func boolPtr(b bool) *bool { return &b }

func TestListProductsFilters(t *testing.T) {
	ctx := context.Background()
	svc, f := newCatalogService(t)
	page := utils.NewPagination(1, 20)

	cases := []struct {
		name   string
		filter ProductFilter
		want   []uuid.UUID
	}{
		{"case-insensitive search", ProductFilter{Search: "COOKIE"}, []uuid.UUID{f.cookie.ID}},
		{"percent is literal", ProductFilter{Search: "%"}, []uuid.UUID{}},
		{"underscore is literal", ProductFilter{Search: "_"}, []uuid.UUID{}},
		{"single category", ProductFilter{Categories: []uuid.UUID{f.breads.ID}}, []uuid.UUID{f.sourdough.ID}},
		{"many categories", ProductFilter{Categories: []uuid.UUID{f.breads.ID, f.cookies.ID}}, []uuid.UUID{f.cookie.ID, f.brownie.ID, f.sourdough.ID}},
		{"featured", ProductFilter{Featured: boolPtr(true)}, []uuid.UUID{f.sourdough.ID}},
		{"sugar free", ProductFilter{SugarFree: boolPtr(true)}, []uuid.UUID{f.brownie.ID}},
		{"combined", ProductFilter{Categories: []uuid.UUID{f.cookies.ID}, SugarFree: boolPtr(false)}, []uuid.UUID{f.cookie.ID}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.filter.Page = page
			products, total, err := svc.ListProducts(ctx, tc.filter)
			require.NoError(t, err)
			assert.EqualValues(t, len(tc.want), total)

			got := make([]uuid.UUID, 0, len(products))
			for _, p := range products {
				got = append(got, p.ID)
				assert.NotNil(t, p.Category)
			}
			assert.ElementsMatch(t, tc.want, got)
		})
	}
}

func TestProductValidation(t *testing.T) {
	ctx := context.Background()
	svc, f := newCatalogService(t)

	_, err := svc.CreateProduct(ctx, ProductInput{Name: "Free Cake", Price: 0, CategoryID: f.cookies.ID})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.CreateProduct(ctx, ProductInput{Name: "", Price: 10, CategoryID: f.cookies.ID})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.CreateProduct(ctx, ProductInput{Name: "Bun", Price: 10, Description: "  ", CategoryID: f.breads.ID})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Contains(t, err.Error(), "description is required")

	_, err = svc.CreateProduct(ctx, ProductInput{Name: "Orphan", Price: 10, Description: "Lost", CategoryID: uuid.New()})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	p, err := svc.CreateProduct(ctx, ProductInput{Name: " Macaron ", Price: 30, Description: "Almond shells", CategoryID: f.cookies.ID, Images: []string{"a.jpg"}})
	require.NoError(t, err)
	assert.Equal(t, "Macaron", p.Name)
	assert.Equal(t, []string{"a.jpg"}, p.Images)
	assert.True(t, p.HamperEligible())

	_, err = svc.UpdateProduct(ctx, p.ID, ProductInput{Name: "Macaron Box", Price: 90, CategoryID: f.breads.ID})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	updated, err := svc.UpdateProduct(ctx, p.ID, ProductInput{Name: "Macaron Box", Price: 90, Description: "Six macarons", CategoryID: f.breads.ID})
	require.NoError(t, err)
	assert.Equal(t, 90.0, updated.Price)
	assert.False(t, updated.HamperEligible())
	assert.Equal(t, []string{}, updated.Images)
}

func TestDeleteProductRemovesCartLines(t *testing.T) {
	ctx := context.Background()
	svc, f := newCatalogService(t)
	carts := NewCartService(svc.db, 10, zap.NewNop())

	_, err := carts.MutateCart(ctx, f.user.ID, increase(f.cookie.ID, 2))
	require.NoError(t, err)
	_, err = carts.MutateCart(ctx, f.user.ID, increase(f.brownie.ID, 1))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteProduct(ctx, f.cookie.ID))

	cart, err := carts.GetCart(ctx, f.user.ID, false)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, f.brownie.ID, cart.Items[0].ProductID)

	err = svc.DeleteProduct(ctx, f.cookie.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestCategoryLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, f := newCatalogService(t)

	_, err := svc.CreateCategory(ctx, CategoryInput{Name: "cookies"})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = svc.CreateCategory(ctx, CategoryInput{Name: "  "})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	cakes, err := svc.CreateCategory(ctx, CategoryInput{Name: "Cakes", HamperEligible: true})
	require.NoError(t, err)

	updated, err := svc.UpdateCategory(ctx, cakes.ID, CategoryInput{Name: "Celebration Cakes", HamperEligible: false})
	require.NoError(t, err)
	assert.Equal(t, "Celebration Cakes", updated.Name)
	assert.False(t, updated.HamperEligible)

	_, err = svc.UpdateCategory(ctx, cakes.ID, CategoryInput{Name: "Breads"})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	err = svc.DeleteCategory(ctx, f.breads.ID)
	assert.True(t, apperr.Is(err, apperr.KindInvalidOperation))

	require.NoError(t, svc.DeleteCategory(ctx, cakes.ID))
	_, err = svc.GetCategory(ctx, cakes.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	categories, total, err := svc.ListCategories(ctx, utils.NewPagination(1, 10))
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Equal(t, "Breads", categories[0].Name)
}

func TestReviewModeration(t *testing.T) {
	ctx := context.Background()
	svc := NewReviewService(newTestDB(t))
	page := utils.NewPagination(1, 10)

	_, err := svc.Submit(ctx, ReviewInput{Name: "Ada"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	review, err := svc.Submit(ctx, ReviewInput{Name: "Ada", Comment: "Best brownies in town", Email: "ADA@example.com"})
	require.NoError(t, err)
	assert.False(t, review.Approved)
	assert.Equal(t, "ada@example.com", review.Email)

	public, _, err := svc.List(ctx, boolPtr(true), page)
	require.NoError(t, err)
	assert.Empty(t, public)

	toggled, err := svc.SetApproval(ctx, review.ID, nil)
	require.NoError(t, err)
	assert.True(t, toggled.Approved)

	public, total, err := svc.List(ctx, boolPtr(true), page)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, public, 1)

	explicit, err := svc.SetApproval(ctx, review.ID, boolPtr(true))
	require.NoError(t, err)
	assert.True(t, explicit.Approved)

	require.NoError(t, svc.Delete(ctx, review.ID))
	assert.True(t, apperr.Is(svc.Delete(ctx, review.ID), apperr.KindNotFound))
	_, err = svc.SetApproval(ctx, review.ID, nil)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestHomePageConfig(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	f := seedFixture(t, db)
	svc := NewHomeService(db)

	empty, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty.FeaturedCategories)
	assert.Empty(t, empty.FeaturedProducts)

	view, err := svc.Update(ctx, HomeInput{
		CategoryIDs: []uuid.UUID{f.breads.ID, f.cookies.ID},
		ProductIDs:  []uuid.UUID{f.sourdough.ID, f.cookie.ID, f.cookie.ID},
	})
	require.NoError(t, err)
	require.Len(t, view.FeaturedCategories, 2)
	assert.Equal(t, f.breads.ID, view.FeaturedCategories[0].ID)
	require.Len(t, view.FeaturedProducts, 2)
	assert.Equal(t, f.sourdough.ID, view.FeaturedProducts[0].ID)

	_, err = svc.Update(ctx, HomeInput{ProductIDs: []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New(), uuid.New()}})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = svc.Update(ctx, HomeInput{CategoryIDs: []uuid.UUID{uuid.New()}})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	var rows int64
	require.NoError(t, db.Model(&models.HomePageConfig{}).Count(&rows).Error)
	assert.EqualValues(t, 1, rows)
}
