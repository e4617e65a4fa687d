package services

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"math"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"techmart/internal/caching"
	"techmart/internal/catalog"
	"techmart/internal/models"
	"techmart/internal/repositories"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

var ErrProductNotFound = errors.New("product not found")

// BrowseResult is one page of the filtered listing plus the state key the
// client sends back with its next page request.
type BrowseResult struct {
	catalog.Page
	Filters        catalog.FilterState `json:"filters"`
	StateKey       string              `json:"state"`
	CatalogVersion string              `json:"catalog_version"`
}

type StorefrontService interface {
	Browse(ctx context.Context, filters catalog.FilterState, page int, stateKey string) (*BrowseResult, error)
	GetProduct(ctx context.Context, idOrSlug string) (*catalog.Product, error)
	Related(ctx context.Context, idOrSlug string, limit int) ([]catalog.Product, error)
	FilterMetadata(ctx context.Context) (*models.FilterMetadata, error)
	Catalog(ctx context.Context) (string, []catalog.Product, error)
	RefreshCatalog(ctx context.Context) (*models.CatalogSnapshot, error)
}

// StorefrontOptions tunes the storefront service. Zero values pick defaults.
type StorefrontOptions struct {
	CacheTTL     time.Duration
	RelatedLimit int
	Rand         catalog.RandSource
	Now          func() time.Time
}

// loadedCatalog is a normalized snapshot kept in process so requests
// against the same cached version skip normalization.
type loadedCatalog struct {
	version  string
	products []catalog.Product
	byID     map[string]int
	bySlug   map[string]int
}

type storefrontService struct {
	productRepo  repositories.ProductRepository
	categoryRepo repositories.CategoryRepository
	cacheService caching.CacheService
	opts         StorefrontOptions

	mu      sync.RWMutex
	current *loadedCatalog
}

func NewStorefrontService(productRepo repositories.ProductRepository, categoryRepo repositories.CategoryRepository, cacheService caching.CacheService, opts StorefrontOptions) StorefrontService {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 10 * time.Minute
	}
	if opts.RelatedLimit <= 0 {
		opts.RelatedLimit = catalog.DefaultRelatedLimit
	}
	if opts.Rand == nil {
		opts.Rand = catalog.SystemRand()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &storefrontService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		cacheService: cacheService,
		opts:         opts,
	}
}

func (s *storefrontService) Browse(ctx context.Context, filters catalog.FilterState, page int, stateKey string) (*BrowseResult, error) {
	filters = filters.Clone()
	if err := filters.Validate(); err != nil {
		return nil, err
	}

	loaded, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	filtered := catalog.ApplyFilters(loaded.products, filters)
	resolved, key := catalog.ResolvePage(page, filters, loaded.version, stateKey)

	return &BrowseResult{
		Page:           catalog.Paginate(filtered, resolved),
		Filters:        filters,
		StateKey:       key,
		CatalogVersion: loaded.version,
	}, nil
}

func (s *storefrontService) GetProduct(ctx context.Context, idOrSlug string) (*catalog.Product, error) {
	loaded, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	p, err := s.resolve(ctx, loaded, idOrSlug)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *storefrontService) Related(ctx context.Context, idOrSlug string, limit int) ([]catalog.Product, error) {
	loaded, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	current, err := s.resolve(ctx, loaded, idOrSlug)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = s.opts.RelatedLimit
	}
	limit = min(limit, catalog.MaxRelatedLimit)

	return catalog.RankRelated(loaded.products, current, limit, s.opts.Rand), nil
}

func (s *storefrontService) FilterMetadata(ctx context.Context) (*models.FilterMetadata, error) {
	loaded, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	categories, err := s.categories(ctx)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, p := range loaded.products {
		if p.Category != "" {
			counts[p.Category]++
		}
	}

	categoryData := make([]models.CategoryData, 0, len(categories))
	for _, c := range categories {
		id := c.ID.String()
		categoryData = append(categoryData, models.CategoryData{
			ID:           id,
			Name:         c.Name,
			ProductCount: counts[id],
		})
	}

	sortKeys := make([]string, len(catalog.SortKeys))
	for i, k := range catalog.SortKeys {
		sortKeys[i] = string(k)
	}

	return &models.FilterMetadata{
		Brands:     distinctBrands(loaded.products),
		Categories: categoryData,
		PriceRange: priceRange(loaded.products),
		Tags:       slices.Clone(catalog.SupportedTags),
		SortKeys:   sortKeys,
	}, nil
}

func (s *storefrontService) Catalog(ctx context.Context) (string, []catalog.Product, error) {
	loaded, err := s.load(ctx)
	if err != nil {
		return "", nil, err
	}
	return loaded.version, slices.Clone(loaded.products), nil
}

// RefreshCatalog reloads the listing from the database and replaces the cached snapshot.
func (s *storefrontService) RefreshCatalog(ctx context.Context) (*models.CatalogSnapshot, error) {
	snapshot, err := s.fetchSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	if cacheErr := s.cacheService.SetCatalog(ctx, snapshot, s.opts.CacheTTL); cacheErr != nil {
		log.Printf("WARN: Failed to cache catalog %s: %v", snapshot.Version, cacheErr)
		// Drop the previous snapshot so readers fall through to the database.
		if delErr := s.cacheService.InvalidateCatalog(ctx); delErr != nil {
			log.Printf("WARN: Failed to invalidate cached catalog: %v", delErr)
		}
	}

	categories, err := s.categoryRepo.List(ctx)
	if err != nil {
		log.Printf("WARN: Failed to reload categories: %v", err)
	} else if cacheErr := s.cacheService.SetCategories(ctx, categories, s.opts.CacheTTL); cacheErr != nil {
		log.Printf("WARN: Failed to cache categories: %v", cacheErr)
	}

	s.use(snapshot)
	return snapshot, nil
}

// load returns the normalized catalogue, reading the cache first and the
// database on a miss. Cache errors are logged and never fail the request.
func (s *storefrontService) load(ctx context.Context) (*loadedCatalog, error) {
	snapshot, err := s.cacheService.GetCatalog(ctx)
	if err != nil {
		log.Printf("WARN: Cache error for catalog: %v", err)
		snapshot = nil
	}

	if snapshot == nil {
		snapshot, err = s.fetchSnapshot(ctx)
		if err != nil {
			return nil, err
		}
		if cacheErr := s.cacheService.SetCatalog(ctx, snapshot, s.opts.CacheTTL); cacheErr != nil {
			log.Printf("WARN: Failed to cache catalog %s: %v", snapshot.Version, cacheErr)
		}
	}

	s.mu.RLock()
	current := s.current
	s.mu.RUnlock()
	if current != nil && current.version == snapshot.Version {
		return current, nil
	}

	return s.use(snapshot), nil
}

func (s *storefrontService) fetchSnapshot(ctx context.Context) (*models.CatalogSnapshot, error) {
	products, err := s.productRepo.ListStorefront(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	loadedAt := s.opts.Now().UTC()
	log.Printf("DEBUG: Loaded %d storefront products from database", len(products))

	return &models.CatalogSnapshot{
		Version:  catalogVersion(products),
		LoadedAt: loadedAt,
		Products: products,
	}, nil
}

// catalogVersion fingerprints the listing by id and last update, in order.
// Reloading unchanged rows yields the same version.
func catalogVersion(products []*models.Product) string {
	h := xxhash.New()
	var buf [8]byte
	for _, p := range products {
		if p == nil {
			continue
		}
		_, _ = h.Write(p.ID[:])
		binary.BigEndian.PutUint64(buf[:], uint64(p.UpdatedAt.UnixNano()))
		_, _ = h.Write(buf[:])
	}
	return strconv.FormatUint(h.Sum64(), 36)
}

// resolve finds a product in the loaded catalogue, falling back to the
// database for items published since the last refresh.
func (s *storefrontService) resolve(ctx context.Context, loaded *loadedCatalog, idOrSlug string) (catalog.Product, error) {
	if p, ok := loaded.find(idOrSlug); ok {
		return p, nil
	}

	key := strings.TrimSpace(idOrSlug)
	if key == "" {
		return catalog.Product{}, ErrProductNotFound
	}

	var (
		product *models.Product
		err     error
	)
	if id, parseErr := uuid.Parse(key); parseErr == nil {
		product, err = s.productRepo.GetByID(ctx, id)
	} else {
		product, err = s.productRepo.GetBySlug(ctx, key)
	}
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return catalog.Product{}, ErrProductNotFound
		}
		return catalog.Product{}, fmt.Errorf("failed to look up product %s: %w", key, err)
	}

	log.Printf("DEBUG: Product %s resolved from database ahead of catalog refresh", key)
	return catalog.NormalizeProduct(product), nil
}

func (s *storefrontService) use(snapshot *models.CatalogSnapshot) *loadedCatalog {
	products := catalog.NormalizeProducts(snapshot.Products)
	loaded := &loadedCatalog{
		version:  snapshot.Version,
		products: products,
		byID:     make(map[string]int, len(products)),
		bySlug:   make(map[string]int, len(products)),
	}
	for i, p := range products {
		loaded.byID[p.ID] = i
		if p.Slug != "" {
			loaded.bySlug[p.Slug] = i
		}
	}

	s.mu.Lock()
	s.current = loaded
	s.mu.Unlock()
	return loaded
}

func (s *storefrontService) categories(ctx context.Context) ([]*models.Category, error) {
	categories, err := s.cacheService.GetCategories(ctx)
	if err != nil {
		log.Printf("WARN: Cache error for categories: %v", err)
	}
	if categories != nil {
		return categories, nil
	}

	categories, err = s.categoryRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	if cacheErr := s.cacheService.SetCategories(ctx, categories, s.opts.CacheTTL); cacheErr != nil {
		log.Printf("WARN: Failed to cache categories: %v", cacheErr)
	}
	return categories, nil
}

func (c *loadedCatalog) find(idOrSlug string) (catalog.Product, bool) {
	key := strings.TrimSpace(idOrSlug)
	if id, err := uuid.Parse(key); err == nil {
		if i, ok := c.byID[id.String()]; ok {
			return c.products[i], true
		}
	}
	if i, ok := c.bySlug[key]; ok {
		return c.products[i], true
	}
	return catalog.Product{}, false
}

// distinctBrands dedupes brands case-insensitively, keeping the first spelling seen.
func distinctBrands(products []catalog.Product) []string {
	seen := make(map[string]struct{})
	brands := make([]string, 0)
	for _, p := range products {
		if p.Brand == "" {
			continue
		}
		key := strings.ToLower(p.Brand)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		brands = append(brands, p.Brand)
	}
	slices.SortFunc(brands, func(a, b string) int {
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	})
	return brands
}

func priceRange(products []catalog.Product) *models.PriceRangeData {
	if len(products) == 0 {
		return &models.PriceRangeData{}
	}
	r := &models.PriceRangeData{Min: math.Inf(1), Max: math.Inf(-1)}
	for _, p := range products {
		r.Min = math.Min(r.Min, p.Price)
		r.Max = math.Max(r.Max, p.Price)
	}
	return r
}
