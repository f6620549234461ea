package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"apisense/internal/common/logger"
	"apisense/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	a := Key("description", "weather app")
	assert.Equal(t, a, Key("description", "weather app"))
	assert.NotEqual(t, a, Key("file", "weather app"))
	assert.NotEqual(t, a, Key("description", "weather apps"))
	assert.Contains(t, a, "apisense:requirements:description:")
}

func TestRequirementCacheRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	c := NewRequirementCache(client, time.Hour, logger.NewTestLogger(t))
	ctx := context.Background()

	_, ok := c.Get(ctx, "description", "travel app")
	assert.False(t, ok)

	reqs := &models.RequirementSet{
		ProjectType:         "travel app",
		RequiredCategories:  []string{"travel", "weather"},
		BudgetConsideration: "free",
	}
	c.Set(ctx, "description", "travel app", reqs)

	got, ok := c.Get(ctx, "description", "travel app")
	require.True(t, ok)
	assert.Equal(t, reqs, got)

	mr.FastForward(2 * time.Hour)
	_, ok = c.Get(ctx, "description", "travel app")
	assert.False(t, ok)
}

func TestRequirementCacheErrorsReadAsMiss(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewRequirementCache(client, time.Minute, logger.NewNoOpLogger())
	ctx := context.Background()

	key := Key("file", "readme")
	mock.ExpectGet(key).SetErr(fmt.Errorf("connection reset"))
	_, ok := c.Get(ctx, "file", "readme")
	assert.False(t, ok)

	mock.ExpectGet(key).SetVal("{not json")
	_, ok = c.Get(ctx, "file", "readme")
	assert.False(t, ok)

	reqs := &models.RequirementSet{Summary: "readme"}
	data, _ := json.Marshal(reqs)
	mock.ExpectSet(key, data, time.Minute).SetErr(fmt.Errorf("READONLY"))
	assert.NotPanics(t, func() { c.Set(ctx, "file", "readme", reqs) })

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNilCache(t *testing.T) {
	var c *RequirementCache
	_, ok := c.Get(context.Background(), "description", "x")
	assert.False(t, ok)
	assert.NotPanics(t, func() { c.Set(context.Background(), "description", "x", &models.RequirementSet{}) })
}
