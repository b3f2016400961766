//go:build integration

package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"eventdesk/internal/notification/cache"
	"eventdesk/internal/platform/config"
	"eventdesk/internal/platform/redis"
	"eventdesk/pkg/testutil/containers"
)

type UnreadCacheSuite struct {
	suite.Suite

	ctx    context.Context
	client *redis.Client
	cache  *cache.UnreadCache
}

func TestUnreadCacheSuite(t *testing.T) {
	suite.Run(t, new(UnreadCacheSuite))
}

func (s *UnreadCacheSuite) SetupSuite() {
	s.ctx = context.Background()
	url := containers.GetManager().GetRedisURL(s.T())

	client, err := redis.New(config.RedisConfig{
		URL:          url,
		PoolSize:     5,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	s.Require().NoError(err)
	s.Require().NotNil(client)
	s.client = client
	s.cache = cache.NewUnread(client, time.Minute)
}

func (s *UnreadCacheSuite) TearDownSuite() {
	if s.client != nil {
		s.client.Close()
	}
}

func (s *UnreadCacheSuite) SetupTest() {
	s.Require().NoError(s.cache.InvalidateAll(s.ctx))
}

func (s *UnreadCacheSuite) TestGetMissThenHit() {
	_, hit, err := s.cache.Get(s.ctx, 1)
	s.Require().NoError(err)
	s.False(hit)

	s.Require().NoError(s.cache.Set(s.ctx, 1, 4))

	count, hit, err := s.cache.Get(s.ctx, 1)
	s.Require().NoError(err)
	s.True(hit)
	s.Equal(4, count)
}

func (s *UnreadCacheSuite) TestInvalidate() {
	s.Require().NoError(s.cache.Set(s.ctx, 1, 4))
	s.Require().NoError(s.cache.Set(s.ctx, 2, 7))

	s.Require().NoError(s.cache.Invalidate(s.ctx, 1))

	_, hit, err := s.cache.Get(s.ctx, 1)
	s.Require().NoError(err)
	s.False(hit)

	count, hit, err := s.cache.Get(s.ctx, 2)
	s.Require().NoError(err)
	s.True(hit)
	s.Equal(7, count)

	s.Require().NoError(s.cache.Invalidate(s.ctx))
}

func (s *UnreadCacheSuite) TestInvalidateAll() {
	for id := int64(1); id <= 5; id++ {
		s.Require().NoError(s.cache.Set(s.ctx, id, int(id)))
	}

	s.Require().NoError(s.cache.InvalidateAll(s.ctx))

	for id := int64(1); id <= 5; id++ {
		_, hit, err := s.cache.Get(s.ctx, id)
		s.Require().NoError(err)
		s.False(hit)
	}
}
