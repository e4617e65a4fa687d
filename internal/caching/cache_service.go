package caching

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"techmart/internal/models"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "techmart"

type CacheService interface {
	// Catalogue snapshot caching
	GetCatalog(ctx context.Context) (*models.CatalogSnapshot, error)
	SetCatalog(ctx context.Context, snapshot *models.CatalogSnapshot, ttl time.Duration) error
	InvalidateCatalog(ctx context.Context) error

	// Category caching
	GetCategories(ctx context.Context) ([]*models.Category, error)
	SetCategories(ctx context.Context, categories []*models.Category, ttl time.Duration) error

	// Rate limiting
	IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error)

	Ping(ctx context.Context) error
}

type redisCacheService struct {
	client *redis.Client
}

func NewRedisCacheService(addr, password string, db int) CacheService {
	// Accept redis://host:port as well as host:port
	parsedAddr := strings.TrimPrefix(strings.TrimPrefix(addr, "redis://"), "rediss://")

	log.Printf("DEBUG: Creating Redis client with address: %s", parsedAddr)

	client := redis.NewClient(&redis.Options{
		Addr:     parsedAddr,
		Password: password,
		DB:       db,
	})

	if pingErr := client.Ping(context.Background()).Err(); pingErr != nil {
		log.Printf("WARN: Redis ping failed on initialization: %v (address: %s)", pingErr, parsedAddr)
	}

	return NewCacheServiceWithClient(client)
}

// NewCacheServiceWithClient wraps an existing client.
func NewCacheServiceWithClient(client *redis.Client) CacheService {
	return &redisCacheService{client: client}
}

func catalogKey() string {
	return fmt.Sprintf("%s:catalog", keyPrefix)
}

func categoriesKey() string {
	return fmt.Sprintf("%s:categories", keyPrefix)
}

func (r *redisCacheService) GetCatalog(ctx context.Context) (*models.CatalogSnapshot, error) {
	data, err := r.client.Get(ctx, catalogKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // cache miss
		}
		return nil, err
	}

	var snapshot models.CatalogSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode cached catalog: %w", err)
	}
	return &snapshot, nil
}

func (r *redisCacheService) SetCatalog(ctx context.Context, snapshot *models.CatalogSnapshot, ttl time.Duration) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, catalogKey(), data, ttl).Err()
}

func (r *redisCacheService) InvalidateCatalog(ctx context.Context) error {
	return r.client.Del(ctx, catalogKey(), categoriesKey()).Err()
}

func (r *redisCacheService) GetCategories(ctx context.Context) ([]*models.Category, error) {
	data, err := r.client.Get(ctx, categoriesKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // cache miss
		}
		return nil, err
	}

	var categories []*models.Category
	if err := json.Unmarshal(data, &categories); err != nil {
		return nil, fmt.Errorf("failed to decode cached categories: %w", err)
	}
	return categories, nil
}

func (r *redisCacheService) SetCategories(ctx context.Context, categories []*models.Category, ttl time.Duration) error {
	data, err := json.Marshal(categories)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, categoriesKey(), data, ttl).Err()
}

func (r *redisCacheService) IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	cacheKey := fmt.Sprintf("%s:ratelimit:%s", keyPrefix, key)
	count, err := r.client.Incr(ctx, cacheKey).Result()
	if err != nil {
		return false, err
	}

	// Set expiry on first request in the window
	if count == 1 {
		if err := r.client.Expire(ctx, cacheKey, window).Err(); err != nil {
			return false, err
		}
	}

	return count > int64(limit), nil
}

func (r *redisCacheService) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
