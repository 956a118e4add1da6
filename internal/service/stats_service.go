package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/civic-kit/municipal-services/internal/domain"
	"github.com/civic-kit/municipal-services/internal/repository"
	apperrors "github.com/civic-kit/municipal-services/pkg/util/errorutil"
)

// StatsCache is the read-through cache in front of the dashboard
// counters. Satisfied by persistence.Redis; misses and write failures
// fall back to the database.
type StatsCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}

// StatsService serves the dashboard counters. Citizens get counters
// scoped to their own requests; reporting roles get municipality-wide
// numbers.
type StatsService struct {
	store  repository.Store
	cache  StatsCache
	logger *zap.Logger
	ttl    time.Duration
}

// StatsDependencies bundles collaborators for the stats service.
type StatsDependencies struct {
	Store  repository.Store
	Cache  StatsCache
	Logger *zap.Logger
	TTL    time.Duration
}

// NewStatsService constructs the service.
func NewStatsService(deps StatsDependencies) *StatsService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := deps.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &StatsService{
		store:  deps.Store,
		cache:  deps.Cache,
		logger: logger,
		ttl:    ttl,
	}
}

// Dashboard returns the counters visible to the actor. Citizens see
// their own requests only; technicians have no dashboard and are
// rejected.
func (s *StatsService) Dashboard(ctx context.Context, actor *domain.User) (*domain.RequestStats, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("actor required")
	}

	var citizenID *string
	cacheKey := "stats:global"
	switch {
	case actor.CanViewReports():
		// municipality-wide
	case actor.Role == domain.RoleCitizen:
		id := actor.ID
		citizenID = &id
		cacheKey = "stats:citizen:" + actor.ID
	default:
		return nil, apperrors.NewForbidden("insufficient role for reports")
	}

	if s.cache != nil {
		if raw, ok := s.cache.Get(ctx, cacheKey); ok {
			var cached domain.RequestStats
			if err := json.Unmarshal(raw, &cached); err == nil {
				return &cached, nil
			}
			s.logger.Warn("discarding malformed stats cache entry", zap.String("key", cacheKey))
		}
	}

	stats, err := s.store.Requests.Stats(ctx, citizenID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	if s.cache != nil {
		if raw, err := json.Marshal(stats); err == nil {
			s.cache.Set(ctx, cacheKey, raw, s.ttl)
		}
	}
	return stats, nil
}
