// Package redisstore keeps ephemeral state in Redis.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"swiftresponse/internal/models"
	"swiftresponse/internal/repositories/interfaces"
	"swiftresponse/internal/utils"
	"swiftresponse/pkg/cache"
)

type driverSessionStore struct {
	cache *cache.RedisCache
	ttl   time.Duration
}

// NewDriverSessionStore stores sessions under driver_session:<id> and tracks
// online drivers in a set so they can be listed without a key scan.
func NewDriverSessionStore(c *cache.RedisCache, ttl time.Duration) interfaces.DriverSessionStore {
	return &driverSessionStore{cache: c, ttl: ttl}
}

func sessionKey(driverID string) string {
	return utils.CacheDriverSessionPrefix + driverID
}

func (s *driverSessionStore) Get(ctx context.Context, driverID string) (*models.DriverSession, error) {
	var session models.DriverSession
	err := s.cache.Get(ctx, sessionKey(driverID), &session)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, fmt.Errorf("driver session %s: %w", driverID, interfaces.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get driver session: %w: %v", interfaces.ErrStoreUnavailable, err)
	}
	return &session, nil
}

func (s *driverSessionStore) Save(ctx context.Context, session *models.DriverSession) error {
	session.UpdatedAt = time.Now()
	if err := s.cache.Set(ctx, sessionKey(session.DriverID), session, s.ttl); err != nil {
		return fmt.Errorf("failed to save driver session: %w: %v", interfaces.ErrStoreUnavailable, err)
	}

	var err error
	if session.Online {
		err = s.cache.SAdd(ctx, utils.RoomDriversOnline, session.DriverID)
	} else {
		err = s.cache.SRem(ctx, utils.RoomDriversOnline, session.DriverID)
	}
	if err != nil {
		return fmt.Errorf("failed to update online drivers: %w", err)
	}
	return nil
}

func (s *driverSessionStore) Delete(ctx context.Context, driverID string) error {
	if err := s.cache.Delete(ctx, sessionKey(driverID)); err != nil {
		return fmt.Errorf("failed to delete driver session: %w", err)
	}
	return s.cache.SRem(ctx, utils.RoomDriversOnline, driverID)
}

// ListOnline drops set members whose session has expired.
func (s *driverSessionStore) ListOnline(ctx context.Context) ([]*models.DriverSession, error) {
	ids, err := s.cache.SMembers(ctx, utils.RoomDriversOnline)
	if err != nil {
		return nil, fmt.Errorf("failed to list online drivers: %w", err)
	}

	sessions := make([]*models.DriverSession, 0, len(ids))
	for _, id := range ids {
		session, err := s.Get(ctx, id)
		if errors.Is(err, interfaces.ErrNotFound) {
			s.cache.SRem(ctx, utils.RoomDriversOnline, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		if session.Online {
			sessions = append(sessions, session)
		}
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].DriverID < sessions[j].DriverID })
	return sessions, nil
}
