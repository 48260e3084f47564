//go:build integration

package claim_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"lingkod/internal/claim"
	"lingkod/pkg/testutil/containers"
)

type RedisConsumedSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *claim.RedisConsumedStore
}

func TestRedisConsumedSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisConsumedSuite))
}

func (s *RedisConsumedSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.store = claim.NewRedisConsumedStore(s.redis.Client)
}

func (s *RedisConsumedSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisConsumedSuite) TestMarkAndCheck() {
	ctx := context.Background()
	jti := uuid.NewString()

	consumed, err := s.store.IsConsumed(ctx, jti)
	s.Require().NoError(err)
	s.False(consumed)

	s.Require().NoError(s.store.MarkConsumed(ctx, jti, time.Minute))

	consumed, err = s.store.IsConsumed(ctx, jti)
	s.Require().NoError(err)
	s.True(consumed)
}

func (s *RedisConsumedSuite) TestConsumedEntryExpires() {
	ctx := context.Background()
	jti := uuid.NewString()

	s.Require().NoError(s.store.MarkConsumed(ctx, jti, 500*time.Millisecond))

	s.Require().Eventually(func() bool {
		consumed, err := s.store.IsConsumed(ctx, jti)
		return err == nil && !consumed
	}, 5*time.Second, 100*time.Millisecond, "consumed marker should expire with its token")
}

func (s *RedisConsumedSuite) TestEmptyJTIIsNoOp() {
	ctx := context.Background()
	s.Require().NoError(s.store.MarkConsumed(ctx, "", time.Minute))
	consumed, err := s.store.IsConsumed(ctx, "")
	s.Require().NoError(err)
	s.False(consumed)
}
