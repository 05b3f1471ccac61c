package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/you/accountsvc/domain"
)

// deleteIfIDScript removes the record only while it still carries the
// expected id, so a newer code issued concurrently survives.
var deleteIfIDScript = redis.NewScript(`
if redis.call("HGET", KEYS[1], "id") == ARGV[1] then
	redis.call("DEL", KEYS[1], KEYS[2])
	return 1
end
return 0
`)

// OTPRepositoryImpl implements domain.OTPRepository using Redis
type OTPRepositoryImpl struct {
	client    *redis.Client
	prefix    string
	retention time.Duration
}

// NewOTPRepository creates a new OTP repository. Records are kept for
// retention past their expiry so the service can tell an expired code
// from a missing one.
func NewOTPRepository(client *redis.Client, retention time.Duration) domain.OTPRepository {
	return &OTPRepositoryImpl{
		client:    client,
		prefix:    "otp:",
		retention: retention,
	}
}

func (r *OTPRepositoryImpl) recordKey(accountID string) string {
	return r.prefix + accountID
}

func (r *OTPRepositoryImpl) attemptsKey(accountID string) string {
	return r.prefix + "att:" + accountID
}

// Save implements domain.OTPRepository. A new record replaces the previous
// one and resets the attempt counter.
func (r *OTPRepositoryImpl) Save(ctx context.Context, record *domain.OTPRecord) error {
	key := r.recordKey(record.AccountID)
	ttl := record.ExpiresAt.Sub(record.CreatedAt) + r.retention
	if ttl <= 0 {
		ttl = r.retention
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key, r.attemptsKey(record.AccountID))
		pipe.HSet(ctx, key, map[string]interface{}{
			"id":         record.ID,
			"code":       record.Code,
			"expires_at": record.ExpiresAt.UnixMilli(),
			"created_at": record.CreatedAt.UnixMilli(),
		})
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save otp: %w", err)
	}
	return nil
}

// Find implements domain.OTPRepository
func (r *OTPRepositoryImpl) Find(ctx context.Context, accountID string) (*domain.OTPRecord, error) {
	var stored struct {
		ID        string `redis:"id"`
		Code      string `redis:"code"`
		ExpiresAt int64  `redis:"expires_at"`
		CreatedAt int64  `redis:"created_at"`
	}

	cmd := r.client.HGetAll(ctx, r.recordKey(accountID))
	if err := cmd.Err(); err != nil {
		return nil, fmt.Errorf("failed to load otp: %w", err)
	}
	if len(cmd.Val()) == 0 {
		return nil, domain.ErrOTPNotFound
	}
	if err := cmd.Scan(&stored); err != nil {
		return nil, fmt.Errorf("failed to decode otp: %w", err)
	}

	return &domain.OTPRecord{
		ID:        stored.ID,
		AccountID: accountID,
		Code:      stored.Code,
		ExpiresAt: time.UnixMilli(stored.ExpiresAt),
		CreatedAt: time.UnixMilli(stored.CreatedAt),
	}, nil
}

// Delete implements domain.OTPRepository
func (r *OTPRepositoryImpl) Delete(ctx context.Context, accountID string) error {
	return r.client.Del(ctx, r.recordKey(accountID), r.attemptsKey(accountID)).Err()
}

// DeleteIfID implements domain.OTPRepository
func (r *OTPRepositoryImpl) DeleteIfID(ctx context.Context, accountID, otpID string) (bool, error) {
	keys := []string{r.recordKey(accountID), r.attemptsKey(accountID)}
	n, err := deleteIfIDScript.Run(ctx, r.client, keys, otpID).Int()
	if err != nil {
		return false, fmt.Errorf("failed to discard otp: %w", err)
	}
	return n == 1, nil
}

// IncrementAttempts implements domain.OTPRepository
func (r *OTPRepositoryImpl) IncrementAttempts(ctx context.Context, accountID string, ttl time.Duration) (int64, error) {
	key := r.attemptsKey(accountID)
	var incr *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count otp attempt: %w", err)
	}
	return incr.Val(), nil
}
