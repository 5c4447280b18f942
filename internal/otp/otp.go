package otp

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cast"

	"github.com/nekogravitycat/rental-crm-backend/internal/pkg/apperror"
)

var (
	ErrInvalidCode     = apperror.New(http.StatusBadRequest, "invalid verification code")
	ErrExpired         = apperror.New(http.StatusBadRequest, "verification code expired or not found")
	ErrTooManyAttempts = apperror.New(http.StatusTooManyRequests, "too many failed attempts, request a new code")
	ErrCooldown        = apperror.New(http.StatusTooManyRequests, "please wait before requesting a new code")
)

// Purpose namespaces codes so one issued for email verification cannot be
// redeemed elsewhere.
type Purpose string

const PurposeVerifyEmail Purpose = "verify_email"

type Config struct {
	TTL         time.Duration
	Cooldown    time.Duration
	MaxAttempts int
}

type Service interface {
	// Issue generates and stores a fresh 6-digit code, replacing any previous one.
	Issue(ctx context.Context, purpose Purpose, email string) (string, error)
	// Verify consumes the code on success.
	Verify(ctx context.Context, purpose Purpose, email, code string) error
}

// Codes live in a hash: code_hash plus an attempts counter.
const (
	fieldCodeHash = "code_hash"
	fieldAttempts = "attempts"
)

// verifyScript counts the attempt before the code is compared, so parallel
// guesses each consume one of the allowed attempts. It returns nil when no
// code is stored.
var verifyScript = redis.NewScript(`
local hash = redis.call('HGET', KEYS[1], 'code_hash')
if not hash then
	return false
end
local attempts = redis.call('HINCRBY', KEYS[1], 'attempts', 1)
return {attempts, hash}
`)

type redisService struct {
	client *redis.Client
	cfg    Config
}

func NewRedisService(client *redis.Client, cfg Config) Service {
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	return &redisService{client: client, cfg: cfg}
}

func codeKey(purpose Purpose, email string) string {
	return fmt.Sprintf("otp:%s:%s", purpose, normalizeEmail(email))
}

func cooldownKey(purpose Purpose, email string) string {
	return fmt.Sprintf("otp_cooldown:%s:%s", purpose, normalizeEmail(email))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *redisService) Issue(ctx context.Context, purpose Purpose, email string) (string, error) {
	if s.cfg.Cooldown > 0 {
		ok, err := s.client.SetNX(ctx, cooldownKey(purpose, email), 1, s.cfg.Cooldown).Result()
		if err != nil {
			return "", fmt.Errorf("failed to set otp cooldown: %w", err)
		}
		if !ok {
			return "", ErrCooldown
		}
	}

	code, err := generateCode()
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}

	key := codeKey(purpose, email)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, fieldCodeHash, hashCode(code), fieldAttempts, 0)
		pipe.Expire(ctx, key, s.cfg.TTL)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to store otp: %w", err)
	}

	return code, nil
}

func (s *redisService) Verify(ctx context.Context, purpose Purpose, email, code string) error {
	key := codeKey(purpose, email)

	res, err := verifyScript.Run(ctx, s.client, []string{key}).Slice()
	if errors.Is(err, redis.Nil) {
		return ErrExpired
	}
	if err != nil {
		return fmt.Errorf("failed to load otp: %w", err)
	}
	if len(res) != 2 {
		return fmt.Errorf("unexpected otp script reply: %v", res)
	}
	attempts := cast.ToInt(res[0])
	storedHash := cast.ToString(res[1])

	if attempts > s.cfg.MaxAttempts {
		return s.burn(ctx, key)
	}

	if subtle.ConstantTimeCompare([]byte(hashCode(strings.TrimSpace(code))), []byte(storedHash)) == 1 {
		if err := s.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("failed to consume otp: %w", err)
		}
		return nil
	}

	if attempts >= s.cfg.MaxAttempts {
		return s.burn(ctx, key)
	}
	return ErrInvalidCode
}

// burn deletes the code once the attempt limit is reached.
func (s *redisService) burn(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to burn otp: %w", err)
	}
	return ErrTooManyAttempts
}

// generateCode returns a uniformly random code in 000000-999999.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func hashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
