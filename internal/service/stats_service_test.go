package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/civic-kit/municipal-services/internal/domain"
	apperrors "github.com/civic-kit/municipal-services/pkg/util/errorutil"
)

type mapCache struct {
	entries map[string][]byte
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string][]byte)}
}

func (c *mapCache) Get(_ context.Context, key string) ([]byte, bool) {
	val, ok := c.entries[key]
	return val, ok
}

func (c *mapCache) Set(_ context.Context, key string, value []byte, _ time.Duration) {
	c.entries[key] = value
}

func newStatsFixture(t *testing.T) (*StatsService, *RequestService, *memDB, *mapCache) {
	t.Helper()
	store, db, tx := newTestStore()
	cache := newMapCache()
	stats := NewStatsService(StatsDependencies{Store: store, Cache: cache})
	requests := NewRequestService(RequestDependencies{Store: store, Tx: tx})
	return stats, requests, db, cache
}

func TestDashboardScopesCitizenToOwnRequests(t *testing.T) {
	stats, requests, db, _ := newStatsFixture(t)
	alice := seedUser(db, domain.RoleCitizen)
	bob := seedUser(db, domain.RoleCitizen)
	manager := seedUser(db, domain.RoleManager)
	createRequest(t, requests, db, alice)
	createRequest(t, requests, db, bob)
	createRequest(t, requests, db, bob)

	mine, err := stats.Dashboard(context.Background(), alice)
	require.NoError(t, err)
	require.EqualValues(t, 1, mine.Total)
	require.EqualValues(t, 1, mine.Pending)

	global, err := stats.Dashboard(context.Background(), manager)
	require.NoError(t, err)
	require.EqualValues(t, 3, global.Total)
}

func TestDashboardServesCachedCounters(t *testing.T) {
	stats, requests, db, cache := newStatsFixture(t)
	manager := seedUser(db, domain.RoleManager)
	citizen := seedUser(db, domain.RoleCitizen)
	createRequest(t, requests, db, citizen)

	first, err := stats.Dashboard(context.Background(), manager)
	require.NoError(t, err)
	require.EqualValues(t, 1, first.Total)
	require.Contains(t, cache.entries, "stats:global")

	// new rows are invisible until the cache entry expires
	createRequest(t, requests, db, citizen)
	second, err := stats.Dashboard(context.Background(), manager)
	require.NoError(t, err)
	require.EqualValues(t, 1, second.Total)
}

func TestDashboardRejectsTechnicians(t *testing.T) {
	stats, _, db, _ := newStatsFixture(t)
	technician := seedUser(db, domain.RoleTechnician)

	_, err := stats.Dashboard(context.Background(), technician)
	require.True(t, apperrors.IsCode(err, "FORBIDDEN"))
}
