package summary

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyChangesWithContent(t *testing.T) {
	a := Key("fatigue", "board v1")
	b := Key("fatigue", "board v2")
	c := Key("momentum", "board v1")

	assert.NotEqual(t, a, b, "changed content must change the key")
	assert.NotEqual(t, a, c, "board name is part of the key")
	assert.Equal(t, a, Key("fatigue", "board v1"), "keys are deterministic")
}

func TestGetOrGenerateCacheHit(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewCache(client, time.Hour)

	mock.ExpectGet(Key("fatigue", "board")).SetVal("cached summary")

	called := false
	got, err := cache.GetOrGenerate(context.Background(), "fatigue", "board",
		func(context.Context, string) (string, error) {
			called = true
			return "fresh", nil
		})

	require.NoError(t, err)
	assert.Equal(t, "cached summary", got)
	assert.False(t, called, "a hit must not invoke the generator")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrGenerateCacheMiss(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewCache(client, time.Hour)
	key := Key("fatigue", "board")

	mock.ExpectGet(key).RedisNil()
	mock.ExpectSet(key, "fresh summary", time.Hour).SetVal("OK")

	got, err := cache.GetOrGenerate(context.Background(), "fatigue", "board",
		func(_ context.Context, board string) (string, error) {
			assert.Equal(t, "board", board)
			return "fresh summary", nil
		})

	require.NoError(t, err)
	assert.Equal(t, "fresh summary", got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrGenerateSurvivesRedisErrors(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewCache(client, time.Hour)
	key := Key("fatigue", "board")

	mock.ExpectGet(key).SetErr(errors.New("connection refused"))
	mock.ExpectSet(key, "fresh", time.Hour).SetErr(errors.New("connection refused"))

	got, err := cache.GetOrGenerate(context.Background(), "fatigue", "board",
		func(context.Context, string) (string, error) { return "fresh", nil })

	require.NoError(t, err, "cache failures degrade to generation, never fail the render")
	assert.Equal(t, "fresh", got)
}

func TestGetOrGeneratePropagatesGeneratorError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewCache(client, time.Hour)

	mock.ExpectGet(Key("fatigue", "board")).RedisNil()

	_, err := cache.GetOrGenerate(context.Background(), "fatigue", "board",
		func(context.Context, string) (string, error) {
			return "", errors.New("model unavailable")
		})
	require.Error(t, err)
}

func TestInvalidate(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewCache(client, time.Hour)

	mock.ExpectDel(Key("fatigue", "board")).SetVal(1)
	require.NoError(t, cache.Invalidate(context.Background(), "fatigue", "board"))
	require.NoError(t, mock.ExpectationsWereMet())
}
