package cache

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WhitehatD/Student-Identity-Consent/consent"
)

type fakeBackend struct {
	values map[string]string
	ttls   map[string]time.Duration
	getErr error
	setErr error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		values: make(map[string]string),
		ttls:   make(map[string]time.Duration),
	}
}

func (f *fakeBackend) Get(_ context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeBackend) Set(_ context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}
	f.values[key] = string(value.([]byte))
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

const owner = "0xAbC0000000000000000000000000000000000001"

func TestLogKey(t *testing.T) {
	assert.Equal(
		t, "educonsent:consent-logs:0xabc0000000000000000000000000000000000001:42", logKey(owner, 42),
	)
}

func TestConsentLogCache_RoundTrip(t *testing.T) {
	backend := newFakeBackend()
	c := NewConsentLogCache(backend, time.Minute)
	ctx := context.Background()

	entries := []consent.LogEntry{
		{
			ID:          "0x00000000000000000000000000000000000000b0-1",
			Requester:   "0x00000000000000000000000000000000000000b0",
			DataType:    consent.AcademicRecord,
			ExpiresAt:   "1700000000",
			Status:      consent.StatusRevoked,
			BlockNumber: 12,
		},
	}
	require.NoError(t, c.Set(ctx, owner, 20, entries))
	assert.Equal(t, time.Minute, backend.ttls[logKey(owner, 20)])

	got, found, err := c.Get(ctx, owner, 20)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, entries, got)

	_, found, err = c.Get(ctx, owner, 21)
	require.NoError(t, err)
	assert.False(t, found, "entries are bound to the block height")
}

func TestConsentLogCache_EmptyHistory(t *testing.T) {
	c := NewConsentLogCache(newFakeBackend(), 0)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, owner, 3, []consent.LogEntry{}))
	got, found, err := c.Get(ctx, owner, 3)
	require.NoError(t, err)
	assert.True(t, found)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestConsentLogCache_DefaultLifetime(t *testing.T) {
	backend := newFakeBackend()
	c := NewConsentLogCache(backend, 0)
	require.NoError(t, c.Set(context.Background(), owner, 1, nil))
	assert.Equal(t, DefaultLifetime, backend.ttls[logKey(owner, 1)])
}

func TestConsentLogCache_Errors(t *testing.T) {
	backend := newFakeBackend()
	c := NewConsentLogCache(backend, time.Minute)
	ctx := context.Background()

	backend.values[logKey(owner, 5)] = "not msgpack \xc1"
	_, found, err := c.Get(ctx, owner, 5)
	assert.Error(t, err)
	assert.False(t, found)

	backend.getErr = errors.New("connection refused")
	_, found, err = c.Get(ctx, owner, 5)
	assert.Error(t, err)
	assert.False(t, found)

	backend.setErr = errors.New("read only replica")
	assert.Error(t, c.Set(ctx, owner, 5, nil))
}
