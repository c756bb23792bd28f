package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	appErrors "github.com/lrms-portal/lrms-api/pkg/errors"
)

// OTPRepository stores login verification codes in Redis. Codes expire on
// their own; attempt counters share the code's lifetime so a fresh code
// always starts with a clean slate.
type OTPRepository struct {
	client *redis.Client
}

// NewOTPRepository constructs an OTP repository.
func NewOTPRepository(client *redis.Client) *OTPRepository {
	return &OTPRepository{client: client}
}

func otpKey(email string) string {
	return "lrms:otp:" + strings.ToLower(email)
}

func attemptsKey(email string) string {
	return "lrms:otp:attempts:" + strings.ToLower(email)
}

func resendKey(email string) string {
	return "lrms:otp:resend:" + strings.ToLower(email)
}

// Store saves a code with the given TTL and resets the attempt counter.
func (r *OTPRepository) Store(ctx context.Context, email, code string, ttl time.Duration) error {
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, otpKey(email), code, ttl)
	pipe.Del(ctx, attemptsKey(email))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}
	return nil
}

// Get returns the active code for the email or ErrCacheMiss when none exists.
func (r *OTPRepository) Get(ctx context.Context, email string) (string, error) {
	code, err := r.client.Get(ctx, otpKey(email)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", appErrors.ErrCacheMiss
		}
		return "", fmt.Errorf("get otp: %w", err)
	}
	return code, nil
}

// Delete discards the code and its attempt counter.
func (r *OTPRepository) Delete(ctx context.Context, email string) error {
	if err := r.client.Del(ctx, otpKey(email), attemptsKey(email)).Err(); err != nil {
		return fmt.Errorf("delete otp: %w", err)
	}
	return nil
}

// IncrementAttempts bumps and returns the failed-verification counter.
func (r *OTPRepository) IncrementAttempts(ctx context.Context, email string, ttl time.Duration) (int, error) {
	key := attemptsKey(email)
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("increment otp attempts: %w", err)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, key, ttl).Err(); err != nil {
			return int(count), fmt.Errorf("expire otp attempts: %w", err)
		}
	}
	return int(count), nil
}

// TryResend arms the resend cooldown. It returns false while a previous
// resend is still cooling down.
func (r *OTPRepository) TryResend(ctx context.Context, email string, cooldown time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, resendKey(email), "1", cooldown).Result()
	if err != nil {
		return false, fmt.Errorf("arm otp resend cooldown: %w", err)
	}
	return ok, nil
}
