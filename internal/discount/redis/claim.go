package redis

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"log"

	"github.com/go-redis/redis/v8"
)

// Redis holds a short-lived per-email claim while a discount usage record is
// being finalized. The database insert is the real single-use guarantee; the
// claim just keeps two in-flight checkouts for the same member from both
// reaching the payment step.
type Redis struct {
	Client *redis.Client
	Logger *log.Logger
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{
		Client: client,
		Logger: log.Default(),
	}
}

// getClaimDuration returns the claim TTL from environment variables or the default value
func (r *Redis) getClaimDuration() time.Duration {
	// Default claim TTL is 30 seconds
	defaultDuration := 30 * time.Second

	ttlStr := os.Getenv("DISCOUNT_CLAIM_TTL_SECONDS")
	if ttlStr == "" {
		return defaultDuration
	}

	ttlSec, err := strconv.Atoi(ttlStr)
	if err != nil {
		r.Logger.Println("REDIS: Invalid DISCOUNT_CLAIM_TTL_SECONDS value '" + ttlStr + "', using default 30 seconds")
		return defaultDuration
	}

	return time.Duration(ttlSec) * time.Second
}

func claimKey(email string) string {
	return "discount_claim:" + email
}

// ClaimEmail takes the per-email claim for a checkout session. Returns false
// if another session already holds it.
func (r *Redis) ClaimEmail(ctx context.Context, email, sessionID string) (bool, error) {
	ok, err := r.Client.SetNX(ctx, claimKey(email), sessionID, r.getClaimDuration()).Result()
	return ok, err
}

// ReleaseClaim releases the claim only if this session still owns it.
func (r *Redis) ReleaseClaim(ctx context.Context, email, sessionID string) error {
	key := claimKey(email)
	val, err := r.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil // already expired or released
	}
	if err != nil {
		return err
	}
	if val == sessionID {
		_, err := r.Client.Del(ctx, key).Result()
		return err
	}
	return nil
}

// IsClaimed reports whether any session currently holds the claim.
func (r *Redis) IsClaimed(ctx context.Context, email string) (bool, error) {
	_, err := r.Client.Get(ctx, claimKey(email)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking discount claim: %w", err)
	}
	return true, nil
}
