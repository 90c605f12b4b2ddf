package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheStore handles entity caching in Redis.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// VehicleCacheTTL bounds staleness of cached vehicles. Vehicles change only
// through fleet-management sync, so a generous TTL is fine.
const VehicleCacheTTL = 5 * time.Minute

const vehicleCachePrefix = "cache:vehicle:"

// CachedVehicle represents a cached vehicle entity.
type CachedVehicle struct {
	ID           string  `json:"id"`
	Registration string  `json:"registration"`
	Ownership    string  `json:"ownership"`
	Regime       string  `json:"regime"`
	StartingKm   float64 `json:"starting_km"`
	Active       bool    `json:"active"`
	TolerancePct float64 `json:"tolerance_pct"`
	ToleranceKm  float64 `json:"tolerance_km"`
}

// GetVehicle retrieves a vehicle from cache.
func (s *CacheStore) GetVehicle(ctx context.Context, vehicleID string) (*CachedVehicle, error) {
	key := vehicleCachePrefix + vehicleID
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var vehicle CachedVehicle
	if err := json.Unmarshal(data, &vehicle); err != nil {
		return nil, err
	}
	return &vehicle, nil
}

// SetVehicle stores a vehicle in cache.
func (s *CacheStore) SetVehicle(ctx context.Context, vehicle *CachedVehicle) error {
	key := vehicleCachePrefix + vehicle.ID
	data, err := json.Marshal(vehicle)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, VehicleCacheTTL).Err()
}

// InvalidateVehicle removes a vehicle from cache.
func (s *CacheStore) InvalidateVehicle(ctx context.Context, vehicleID string) error {
	key := vehicleCachePrefix + vehicleID
	return s.client.Del(ctx, key).Err()
}
