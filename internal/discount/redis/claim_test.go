package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedis(client), mr
}

func TestClaimEmail_FirstWins(t *testing.T) {
	r, _ := newTestRedis(t)
	ctx := context.Background()

	ok, err := r.ClaimEmail(ctx, "member@example.com", "sess_1")
	require.NoError(t, err)
	assert.True(t, ok)

	// Second session is kept out while the first holds the claim
	ok, err = r.ClaimEmail(ctx, "member@example.com", "sess_2")
	require.NoError(t, err)
	assert.False(t, ok)

	// Different member is unaffected
	ok, err = r.ClaimEmail(ctx, "other@example.com", "sess_3")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReleaseClaim_OwnerOnly(t *testing.T) {
	r, _ := newTestRedis(t)
	ctx := context.Background()

	ok, err := r.ClaimEmail(ctx, "member@example.com", "sess_1")
	require.NoError(t, err)
	require.True(t, ok)

	// A non-owner release is a no-op
	require.NoError(t, r.ReleaseClaim(ctx, "member@example.com", "sess_2"))
	claimed, err := r.IsClaimed(ctx, "member@example.com")
	require.NoError(t, err)
	assert.True(t, claimed)

	// The owner's release frees the claim
	require.NoError(t, r.ReleaseClaim(ctx, "member@example.com", "sess_1"))
	claimed, err = r.IsClaimed(ctx, "member@example.com")
	require.NoError(t, err)
	assert.False(t, claimed)

	// Releasing an already-released claim is fine
	require.NoError(t, r.ReleaseClaim(ctx, "member@example.com", "sess_1"))
}

func TestClaimExpires(t *testing.T) {
	r, mr := newTestRedis(t)
	ctx := context.Background()

	ok, err := r.ClaimEmail(ctx, "member@example.com", "sess_1")
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(31 * time.Second)

	ok, err = r.ClaimEmail(ctx, "member@example.com", "sess_2")
	require.NoError(t, err)
	assert.True(t, ok, "an expired claim is free to take")
}

func TestClaimTTLFromEnv(t *testing.T) {
	t.Setenv("DISCOUNT_CLAIM_TTL_SECONDS", "5")

	r, mr := newTestRedis(t)
	ctx := context.Background()

	ok, err := r.ClaimEmail(ctx, "member@example.com", "sess_1")
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(6 * time.Second)

	claimed, err := r.IsClaimed(ctx, "member@example.com")
	require.NoError(t, err)
	assert.False(t, claimed)
}
