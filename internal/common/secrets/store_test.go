package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticStore_Get(t *testing.T) {
	values := map[string]string{"imageApiKey": "sk-test", "pinningApiKey": ""}
	store := NewStaticStore(values)

	// mutating the source map must not leak into the store
	values["imageApiKey"] = "changed"

	v, err := store.Get(context.Background(), "imageApiKey")
	require.NoError(t, err)
	assert.Equal(t, "sk-test", v)

	_, err = store.Get(context.Background(), "pinningApiKey")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_Get(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	mr.HSet("ticketpin:secrets", "imageApiKey", "sk-live", "pinningApiKey", "")

	store := NewRedisStore(client, "ticketpin:secrets")
	ctx := context.Background()

	v, err := store.Get(ctx, "imageApiKey")
	require.NoError(t, err)
	assert.Equal(t, "sk-live", v)

	_, err = store.Get(ctx, "pinningApiKey")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Get(ctx, "unknown")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_ReadsFreshValueEachCall(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := NewRedisStore(client, "ticketpin:secrets")
	ctx := context.Background()

	mr.HSet("ticketpin:secrets", "pinningApiKey", "jwt-1")
	v, err := store.Get(ctx, "pinningApiKey")
	require.NoError(t, err)
	assert.Equal(t, "jwt-1", v)

	mr.HSet("ticketpin:secrets", "pinningApiKey", "jwt-2")
	v, err = store.Get(ctx, "pinningApiKey")
	require.NoError(t, err)
	assert.Equal(t, "jwt-2", v)
}

func TestRedisStore_Unavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	mr.Close()

	_, err := NewRedisStore(client, "ticketpin:secrets").Get(context.Background(), "imageApiKey")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_CommandErrors(t *testing.T) {
	client, redisMock := redismock.NewClientMock()
	store := NewRedisStore(client, "ticketpin:secrets")
	ctx := context.Background()

	redisMock.ExpectHGet("ticketpin:secrets", "imageApiKey").SetErr(errors.New("WRONGTYPE Operation against a key holding the wrong kind of value"))
	_, err := store.Get(ctx, "imageApiKey")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read secret imageApiKey from redis")
	assert.NotErrorIs(t, err, ErrNotFound)

	redisMock.ExpectHGet("ticketpin:secrets", "pinningApiKey").RedisNil()
	_, err = store.Get(ctx, "pinningApiKey")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, redisMock.ExpectationsWereMet())
}
