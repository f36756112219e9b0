package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGetDel(t *testing.T) {
	ctx := context.Background()
	p := New(Config{})
	defer p.Close(ctx)

	ok, err := p.Set(ctx, "a", []byte("1"), 0)
	require.NoError(t, err)
	require.True(t, ok)

	v, hit, err := p.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, []byte("1"), v)

	n, err := p.Del(ctx, "a", "missing")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, hit, err = p.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestLazyExpiry(t *testing.T) {
	ctx := context.Background()
	p := New(Config{})
	defer p.Close(ctx)

	_, err := p.Set(ctx, "ttl", []byte("x"), 10*time.Millisecond)
	require.NoError(t, err)

	_, hit, _ := p.Get(ctx, "ttl")
	require.True(t, hit, "present before expiry")

	time.Sleep(25 * time.Millisecond)

	_, hit, _ = p.Get(ctx, "ttl")
	assert.False(t, hit, "absent after expiry")

	ok, err := p.Exists(ctx, "ttl")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestKeysGlob(t *testing.T) {
	ctx := context.Background()
	p := New(Config{})
	defer p.Close(ctx)

	for _, k := range []string{
		"ns:user:list:all",
		"ns:user:list:page:1:limit:10",
		"ns:user:id:1",
		"ns:order:list:all",
	} {
		_, err := p.Set(ctx, k, []byte("v"), 0)
		require.NoError(t, err)
	}

	got, err := p.Keys(ctx, "ns:user:list:*")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ns:user:list:all", "ns:user:list:page:1:limit:10"}, got)
}

func TestKeysSkipsExpired(t *testing.T) {
	ctx := context.Background()
	p := New(Config{})
	defer p.Close(ctx)

	_, err := p.Set(ctx, "gone", []byte("v"), time.Millisecond)
	require.NoError(t, err)
	_, err = p.Set(ctx, "alive", []byte("v"), 0)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	got, err := p.Keys(ctx, "*")
	require.NoError(t, err)
	assert.Equal(t, []string{"alive"}, got)
}

func TestBackgroundSweep(t *testing.T) {
	ctx := context.Background()
	p := New(Config{SweepInterval: 5 * time.Millisecond})
	defer p.Close(ctx)

	_, err := p.Set(ctx, "short", []byte("v"), time.Millisecond)
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return p.Len() == 0 }, time.Second, 5*time.Millisecond)
}
