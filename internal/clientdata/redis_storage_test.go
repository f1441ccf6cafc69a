package clientdata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisStorage_Read(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisStorage(client)
	ctx := context.Background()

	mock.ExpectGet("crypto_market_data").SetVal("value")
	mock.ExpectGet("crypto_missing").RedisNil()
	mock.ExpectGet("crypto_broken").SetErr(errors.New("connection refused"))

	val, ok, err := store.Read(ctx, "crypto_market_data")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "value", val)

	_, ok, err = store.Read(ctx, "crypto_missing")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = store.Read(ctx, "crypto_broken")
	assert.Error(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStorage_KeysScansAllPages(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisStorage(client)

	mock.ExpectScan(0, "crypto_*", scanBatchSize).SetVal([]string{"crypto_a"}, 7)
	mock.ExpectScan(7, "crypto_*", scanBatchSize).SetVal([]string{"crypto_b", "crypto_c"}, 0)

	keys, err := store.Keys(context.Background(), PrefixCrypto)
	require.NoError(t, err)
	assert.Equal(t, []string{"crypto_a", "crypto_b", "crypto_c"}, keys)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStorage_DeleteEmpty(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisStorage(client)

	n, err := store.Delete(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEscapeGlob(t *testing.T) {
	assert.Equal(t, `crypto_`, escapeGlob("crypto_"))
	assert.Equal(t, `a\*b\?\[c\]`, escapeGlob("a*b?[c]"))
}

func TestRepository_OverRedis(t *testing.T) {
	client, mock := redismock.NewClientMock()
	now := time.UnixMilli(1700000000000)
	repo := NewRepository(NewRedisStorage(client), zerolog.Nop(), WithClock(func() time.Time { return now }))
	ctx := context.Background()

	envelope := `{"payload":{"a":1},"storedAtEpochMs":1700000000000}`
	mock.ExpectSet(KeyMarketData, envelope, 0).SetVal("OK")
	mock.ExpectGet(KeyMarketData).SetVal(envelope)
	mock.ExpectScan(0, "crypto_*", scanBatchSize).SetVal([]string{KeyMarketData}, 0)
	mock.ExpectDel(KeyMarketData).SetVal(1)

	repo.Set(ctx, KeyMarketData, map[string]int{"a": 1})

	payload, ok := repo.Get(ctx, KeyMarketData)
	require.True(t, ok)
	assert.JSONEq(t, `{"a":1}`, string(payload))

	assert.Equal(t, 1, repo.Clear(ctx, PrefixCrypto))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_OverRedisExpiredEntryIsDeleted(t *testing.T) {
	client, mock := redismock.NewClientMock()
	now := time.UnixMilli(1700000000000).Add(TTLMarketData)
	repo := NewRepository(NewRedisStorage(client), zerolog.Nop(), WithClock(func() time.Time { return now }))

	mock.ExpectGet(KeyMarketData).SetVal(`{"payload":[1],"storedAtEpochMs":1700000000000}`)
	mock.ExpectDel(KeyMarketData).SetVal(1)

	_, ok := repo.Get(context.Background(), KeyMarketData)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
