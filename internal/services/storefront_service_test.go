package services

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"techmart/internal/catalog"
	"techmart/internal/models"
	"techmart/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type zeroRand struct{}

func (zeroRand) Float64() float64 { return 0 }

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func intPtr(i int) *int { return &i }

type StorefrontServiceTestSuite struct {
	suite.Suite
	service      StorefrontService
	productRepo  *MockProductRepository
	categoryRepo *MockCategoryRepository
	cache        *MockCacheService
	ctx          context.Context
	now          time.Time

	laptops     uuid.UUID
	accessories uuid.UUID
	products    []*models.Product
}

func (suite *StorefrontServiceTestSuite) SetupTest() {
	suite.productRepo = new(MockProductRepository)
	suite.categoryRepo = new(MockCategoryRepository)
	suite.cache = new(MockCacheService)
	suite.ctx = context.Background()
	suite.now = time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

	suite.laptops = uuid.New()
	suite.accessories = uuid.New()
	suite.products = []*models.Product{
		{ID: uuid.New(), Slug: strPtr("dell-xps-13"), Name: "Dell XPS 13", Brand: strPtr("Dell"), CategoryID: &suite.laptops, Price: 450000, Rating: floatPtr(4.5), IsFeatured: true, Tags: []string{"ultrabook"}},
		{ID: uuid.New(), Slug: strPtr("dell-xps-15"), Name: "Dell XPS 15", Brand: strPtr("DELL"), CategoryID: &suite.laptops, Price: 520000, Rating: floatPtr(4.7), Tags: []string{"ultrabook"}},
		{ID: uuid.New(), Slug: strPtr("hp-laptop-15"), Name: "HP Laptop 15", Brand: strPtr("HP"), CategoryID: &suite.laptops, Price: 280000, IsNew: true},
		{ID: uuid.New(), Slug: strPtr("logitech-mx-master-3"), Name: "Logitech MX Master 3", Brand: strPtr("Logitech"), CategoryID: &suite.accessories, Price: 45000, Rating: floatPtr(4.8), Discount: intPtr(10)},
		{ID: uuid.New(), Name: "Unbranded HDMI Cable", CategoryID: &suite.accessories, Price: 2500, Rating: floatPtr(3.1)},
	}

	suite.service = NewStorefrontService(suite.productRepo, suite.categoryRepo, suite.cache, StorefrontOptions{
		CacheTTL: 5 * time.Minute,
		Rand:     zeroRand{},
		Now:      func() time.Time { return suite.now },
	})
}

func (suite *StorefrontServiceTestSuite) TearDownTest() {
	suite.productRepo.AssertExpectations(suite.T())
	suite.categoryRepo.AssertExpectations(suite.T())
	suite.cache.AssertExpectations(suite.T())
}

func TestStorefrontServiceTestSuite(t *testing.T) {
	suite.Run(t, new(StorefrontServiceTestSuite))
}

func (suite *StorefrontServiceTestSuite) expectedVersion() string {
	return catalogVersion(suite.products)
}

func (suite *StorefrontServiceTestSuite) cachedSnapshot(version string) *models.CatalogSnapshot {
	return &models.CatalogSnapshot{Version: version, LoadedAt: suite.now, Products: suite.products}
}

func (suite *StorefrontServiceTestSuite) expectCacheMiss() {
	suite.cache.On("GetCatalog", mock.Anything).Return(nil, nil).Once()
	suite.productRepo.On("ListStorefront", mock.Anything).Return(suite.products, nil).Once()
	suite.cache.On("SetCatalog", mock.Anything, mock.AnythingOfType("*models.CatalogSnapshot"), 5*time.Minute).Return(nil).Once()
}

func names(products []catalog.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.Name
	}
	return out
}

func (suite *StorefrontServiceTestSuite) TestBrowse_CacheMissLoadsFromDatabase() {
	suite.expectCacheMiss()

	result, err := suite.service.Browse(suite.ctx, catalog.DefaultFilterState().WithSearch("dell"), 1, "")

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), []string{"Dell XPS 15", "Dell XPS 13"}, names(result.Items))
	assert.Equal(suite.T(), 2, result.TotalItems)
	assert.Equal(suite.T(), 1, result.TotalPages)
	assert.Equal(suite.T(), suite.expectedVersion(), result.CatalogVersion)
	assert.NotEmpty(suite.T(), result.StateKey)
}

func (suite *StorefrontServiceTestSuite) TestBrowse_CacheHitSkipsDatabase() {
	suite.cache.On("GetCatalog", mock.Anything).Return(suite.cachedSnapshot("cached-v1"), nil).Twice()

	first, err := suite.service.Browse(suite.ctx, catalog.DefaultFilterState().WithSort(catalog.SortByPriceLow), 1, "")
	require.NoError(suite.T(), err)
	second, err := suite.service.Browse(suite.ctx, catalog.DefaultFilterState().WithSort(catalog.SortByPriceLow), 1, first.StateKey)
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), "Unbranded HDMI Cable", first.Items[0].Name)
	assert.Equal(suite.T(), names(first.Items), names(second.Items))
	assert.Equal(suite.T(), "cached-v1", second.CatalogVersion)
	suite.productRepo.AssertNotCalled(suite.T(), "ListStorefront", mock.Anything)
}

func (suite *StorefrontServiceTestSuite) TestBrowse_CacheErrorFallsBackToDatabase() {
	suite.cache.On("GetCatalog", mock.Anything).Return(nil, errors.New("redis down")).Once()
	suite.productRepo.On("ListStorefront", mock.Anything).Return(suite.products, nil).Once()
	suite.cache.On("SetCatalog", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("redis down")).Once()

	result, err := suite.service.Browse(suite.ctx, catalog.DefaultFilterState(), 1, "")

	require.NoError(suite.T(), err)
	assert.Len(suite.T(), result.Items, len(suite.products))
}

func (suite *StorefrontServiceTestSuite) TestBrowse_DatabaseError() {
	suite.cache.On("GetCatalog", mock.Anything).Return(nil, nil).Once()
	suite.productRepo.On("ListStorefront", mock.Anything).Return(nil, errors.New("connection refused")).Once()

	result, err := suite.service.Browse(suite.ctx, catalog.DefaultFilterState(), 1, "")

	assert.Nil(suite.T(), result)
	assert.Error(suite.T(), err)
	assert.Contains(suite.T(), err.Error(), "failed to load catalog")
}

func (suite *StorefrontServiceTestSuite) TestBrowse_InvalidFilters() {
	_, err := suite.service.Browse(suite.ctx, catalog.DefaultFilterState().WithTags("clearance"), 1, "")

	assert.ErrorIs(suite.T(), err, catalog.ErrInvalidFilter)
	suite.cache.AssertNotCalled(suite.T(), "GetCatalog", mock.Anything)
}

func (suite *StorefrontServiceTestSuite) TestBrowse_FilterChangeResetsPage() {
	many := make([]*models.Product, 0, 60)
	for i := 0; i < 60; i++ {
		many = append(many, &models.Product{ID: uuid.New(), Name: "Item " + strconv.Itoa(100+i), Price: float64(1000 + i), CategoryID: &suite.laptops})
	}
	suite.cache.On("GetCatalog", mock.Anything).Return(&models.CatalogSnapshot{Version: "v1", Products: many}, nil)

	fs := catalog.DefaultFilterState()
	page3, err := suite.service.Browse(suite.ctx, fs, 3, "")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 3, page3.Page.Page)
	assert.Len(suite.T(), page3.Items, 12)

	changed, err := suite.service.Browse(suite.ctx, fs.WithPriceRange(1000, 1040), 3, page3.StateKey)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, changed.Page.Page)
	assert.Equal(suite.T(), 41, changed.TotalItems)
}

func (suite *StorefrontServiceTestSuite) TestGetProduct_ByIDAndSlug() {
	suite.cache.On("GetCatalog", mock.Anything).Return(suite.cachedSnapshot("v1"), nil)

	byID, err := suite.service.GetProduct(suite.ctx, suite.products[2].ID.String())
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "HP Laptop 15", byID.Name)

	bySlug, err := suite.service.GetProduct(suite.ctx, "logitech-mx-master-3")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Logitech MX Master 3", bySlug.Name)
	assert.Equal(suite.T(), catalog.DefaultRating, byID.Rating)

	suite.productRepo.On("GetBySlug", mock.Anything, "no-such-product").Return(nil, repositories.ErrNotFound).Once()
	_, err = suite.service.GetProduct(suite.ctx, "no-such-product")
	assert.ErrorIs(suite.T(), err, ErrProductNotFound)
}

func (suite *StorefrontServiceTestSuite) TestRelated() {
	suite.cache.On("GetCatalog", mock.Anything).Return(suite.cachedSnapshot("v1"), nil)

	related, err := suite.service.Related(suite.ctx, "dell-xps-13", 0)

	require.NoError(suite.T(), err)
	// XPS 15: category 3 + ultrabook tag 1 (brand differs by case); HP: category 3
	assert.Equal(suite.T(), []string{"Dell XPS 15", "HP Laptop 15"}, names(related))

	missing := uuid.New()
	suite.productRepo.On("GetByID", mock.Anything, missing).Return(nil, repositories.ErrNotFound).Once()
	_, err = suite.service.Related(suite.ctx, missing.String(), 0)
	assert.ErrorIs(suite.T(), err, ErrProductNotFound)
}

func (suite *StorefrontServiceTestSuite) TestRelated_LimitIsCapped() {
	many := []*models.Product{{ID: uuid.New(), Slug: strPtr("anchor"), Name: "Anchor", CategoryID: &suite.accessories}}
	for i := 0; i < 20; i++ {
		many = append(many, &models.Product{ID: uuid.New(), Name: "Cable " + strconv.Itoa(i), CategoryID: &suite.accessories})
	}
	suite.cache.On("GetCatalog", mock.Anything).Return(&models.CatalogSnapshot{Version: "v2", Products: many}, nil)

	related, err := suite.service.Related(suite.ctx, "anchor", 50)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), related, catalog.MaxRelatedLimit)

	related, err = suite.service.Related(suite.ctx, "anchor", 0)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), related, catalog.DefaultRelatedLimit)
}

func (suite *StorefrontServiceTestSuite) TestFilterMetadata() {
	suite.cache.On("GetCatalog", mock.Anything).Return(suite.cachedSnapshot("v1"), nil)
	suite.cache.On("GetCategories", mock.Anything).Return(nil, nil).Once()
	categories := []*models.Category{
		{ID: suite.accessories, Name: "Accessories"},
		{ID: suite.laptops, Name: "Laptops"},
	}
	suite.categoryRepo.On("List", mock.Anything).Return(categories, nil).Once()
	suite.cache.On("SetCategories", mock.Anything, categories, 5*time.Minute).Return(nil).Once()

	meta, err := suite.service.FilterMetadata(suite.ctx)

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), []string{"Dell", "HP", "Logitech"}, meta.Brands)
	assert.Equal(suite.T(), 2500.0, meta.PriceRange.Min)
	assert.Equal(suite.T(), 520000.0, meta.PriceRange.Max)
	require.Len(suite.T(), meta.Categories, 2)
	assert.Equal(suite.T(), 2, meta.Categories[0].ProductCount)
	assert.Equal(suite.T(), 3, meta.Categories[1].ProductCount)
	assert.Equal(suite.T(), catalog.SupportedTags, meta.Tags)
	assert.Contains(suite.T(), meta.SortKeys, "price-high")
}

func (suite *StorefrontServiceTestSuite) TestRefreshCatalog() {
	suite.productRepo.On("ListStorefront", mock.Anything).Return(suite.products, nil).Once()
	suite.cache.On("SetCatalog", mock.Anything, mock.MatchedBy(func(s *models.CatalogSnapshot) bool {
		return s.Version == suite.expectedVersion() && len(s.Products) == len(suite.products)
	}), 5*time.Minute).Return(nil).Once()
	suite.categoryRepo.On("List", mock.Anything).Return([]*models.Category{}, nil).Once()
	suite.cache.On("SetCategories", mock.Anything, []*models.Category{}, 5*time.Minute).Return(nil).Once()

	snapshot, err := suite.service.RefreshCatalog(suite.ctx)

	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), suite.expectedVersion(), snapshot.Version)
	assert.Equal(suite.T(), suite.now, snapshot.LoadedAt)
}

func (suite *StorefrontServiceTestSuite) TestCatalogReturnsCopy() {
	suite.cache.On("GetCatalog", mock.Anything).Return(suite.cachedSnapshot("v1"), nil)

	version, products, err := suite.service.Catalog(suite.ctx)
	require.NoError(suite.T(), err)
	products[0].Name = "mutated"

	_, again, err := suite.service.Catalog(suite.ctx)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "v1", version)
	assert.NotEqual(suite.T(), "mutated", again[0].Name)
}

func (suite *StorefrontServiceTestSuite) TestGetProduct_FallsBackToDatabase() {
	suite.cache.On("GetCatalog", mock.Anything).Return(suite.cachedSnapshot("v1"), nil)
	fresh := &models.Product{ID: uuid.New(), Slug: strPtr("framework-16"), Name: "Framework Laptop 16", Price: 610000, CategoryID: &suite.laptops}
	suite.productRepo.On("GetBySlug", mock.Anything, "framework-16").Return(fresh, nil).Once()
	suite.productRepo.On("GetByID", mock.Anything, fresh.ID).Return(fresh, nil).Once()

	bySlug, err := suite.service.GetProduct(suite.ctx, "framework-16")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Framework Laptop 16", bySlug.Name)
	assert.Equal(suite.T(), catalog.DefaultRating, bySlug.Rating)

	related, err := suite.service.Related(suite.ctx, fresh.ID.String(), 0)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), []string{"Dell XPS 13", "Dell XPS 15", "HP Laptop 15"}, names(related))
}

func (suite *StorefrontServiceTestSuite) TestGetProduct_DatabaseError() {
	suite.cache.On("GetCatalog", mock.Anything).Return(suite.cachedSnapshot("v1"), nil)
	suite.productRepo.On("GetBySlug", mock.Anything, "framework-16").Return(nil, errors.New("connection reset")).Once()

	_, err := suite.service.GetProduct(suite.ctx, "framework-16")

	assert.Error(suite.T(), err)
	assert.NotErrorIs(suite.T(), err, ErrProductNotFound)
	assert.Contains(suite.T(), err.Error(), "failed to look up product")
}

func (suite *StorefrontServiceTestSuite) TestRefreshCatalog_CacheWriteFailureInvalidates() {
	suite.productRepo.On("ListStorefront", mock.Anything).Return(suite.products, nil).Once()
	suite.cache.On("SetCatalog", mock.Anything, mock.Anything, 5*time.Minute).Return(errors.New("OOM")).Once()
	suite.cache.On("InvalidateCatalog", mock.Anything).Return(nil).Once()
	suite.categoryRepo.On("List", mock.Anything).Return([]*models.Category{}, nil).Once()
	suite.cache.On("SetCategories", mock.Anything, []*models.Category{}, 5*time.Minute).Return(nil).Once()

	_, err := suite.service.RefreshCatalog(suite.ctx)

	require.NoError(suite.T(), err)
}

func (suite *StorefrontServiceTestSuite) TestBrowse_ReloadingSameRowsKeepsPage() {
	many := make([]*models.Product, 0, 60)
	updated := time.Date(2026, 9, 30, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 60; i++ {
		many = append(many, &models.Product{ID: uuid.New(), Name: "Item " + strconv.Itoa(100+i), Price: 1000, UpdatedAt: updated})
	}
	tick := suite.now
	service := NewStorefrontService(suite.productRepo, suite.categoryRepo, suite.cache, StorefrontOptions{
		CacheTTL: 5 * time.Minute,
		Rand:     zeroRand{},
		Now: func() time.Time {
			tick = tick.Add(time.Minute)
			return tick
		},
	})
	suite.cache.On("GetCatalog", mock.Anything).Return(nil, errors.New("redis down")).Twice()
	suite.productRepo.On("ListStorefront", mock.Anything).Return(many, nil).Twice()
	suite.cache.On("SetCatalog", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("redis down")).Twice()

	fs := catalog.DefaultFilterState()
	first, err := service.Browse(suite.ctx, fs, 1, "")
	require.NoError(suite.T(), err)
	second, err := service.Browse(suite.ctx, fs, 2, first.StateKey)
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), first.CatalogVersion, second.CatalogVersion)
	assert.Equal(suite.T(), 2, second.Page.Page)
	assert.Equal(suite.T(), "Item 124", second.Items[0].Name)
}

func TestCatalogVersion(t *testing.T) {
	id := uuid.New()
	updated := time.Date(2026, 9, 30, 12, 0, 0, 0, time.UTC)
	products := []*models.Product{{ID: id, Name: "Dell XPS 13", UpdatedAt: updated}}
	same := []*models.Product{{ID: id, Name: "Dell XPS 13", UpdatedAt: updated}}
	edited := []*models.Product{{ID: id, Name: "Dell XPS 13", UpdatedAt: updated.Add(time.Second)}}

	assert.Equal(t, catalogVersion(products), catalogVersion(same))
	assert.NotEqual(t, catalogVersion(products), catalogVersion(edited))
	assert.NotEqual(t, catalogVersion(products), catalogVersion(nil))
}
