package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	orderSequenceKey  = "order:sequence"
	idempotencyPrefix = "idempotency:"

	maxReserveAttempts = 3
)

var (
	// ErrIdempotencyPending is returned while another request holds the same key.
	ErrIdempotencyPending = errors.New("idempotency key is being processed")
	// ErrIdempotencyFingerprintMismatch is returned when a key is reused for a different request.
	ErrIdempotencyFingerprintMismatch = errors.New("idempotency key already used for a different request")
)

type Client struct {
	rdb *redis.Client
}

// IdempotentResponse is the stored outcome of a request made with an idempotency key.
type IdempotentResponse struct {
	State       string    `json:"state"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	StatusCode  int       `json:"status_code,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	Body        []byte    `json:"body,omitempty"`
	StoredAt    time.Time `json:"stored_at"`
}

const (
	idempotencyPending   = "pending"
	idempotencyCompleted = "completed"
)

// Completed reports whether the response can be replayed.
func (r *IdempotentResponse) Completed() bool {
	return r != nil && r.State == idempotencyCompleted
}

func Initialize(redisURL string) (*Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	rdb := redis.NewClient(opt)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// NewFromClient wraps an existing go-redis client.
func NewFromClient(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

// Order numbers

// NextOrderNumber returns the next value of the shared order sequence as a
// zero padded string of at least six digits.
func (c *Client) NextOrderNumber(ctx context.Context) (string, error) {
	n, err := c.rdb.Incr(ctx, orderSequenceKey).Result()
	if err != nil {
		return "", fmt.Errorf("failed to increment order sequence: %w", err)
	}
	return fmt.Sprintf("%06d", n), nil
}

// Idempotency records

// ReserveIdempotencyKey marks key as in progress for the request identified by
// fingerprint. It returns the stored response when the same request was made
// before, ErrIdempotencyPending when another request still holds the key and
// ErrIdempotencyFingerprintMismatch when the key belongs to a different request.
// A nil response and nil error mean the caller owns the key.
func (c *Client) ReserveIdempotencyKey(ctx context.Context, key, fingerprint string, ttl time.Duration) (*IdempotentResponse, error) {
	pending, err := json.Marshal(IdempotentResponse{State: idempotencyPending, Fingerprint: fingerprint, StoredAt: time.Now().UTC()})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal idempotency record: %w", err)
	}

	for attempt := 0; attempt < maxReserveAttempts; attempt++ {
		ok, err := c.rdb.SetNX(ctx, idempotencyPrefix+key, pending, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to reserve idempotency key: %w", err)
		}
		if ok {
			return nil, nil
		}

		existing, err := c.GetIdempotentResponse(ctx, key)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			// expired between SETNX and GET
			continue
		}
		if existing.Fingerprint != fingerprint {
			return nil, ErrIdempotencyFingerprintMismatch
		}
		if !existing.Completed() {
			return nil, ErrIdempotencyPending
		}
		return existing, nil
	}
	return nil, fmt.Errorf("failed to reserve idempotency key %q after %d attempts", key, maxReserveAttempts)
}

// GetIdempotentResponse returns the record stored under key, or nil when none exists.
func (c *Client) GetIdempotentResponse(ctx context.Context, key string) (*IdempotentResponse, error) {
	val, err := c.rdb.Get(ctx, idempotencyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get idempotency record: %w", err)
	}

	var record IdempotentResponse
	if err := json.Unmarshal(val, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal idempotency record: %w", err)
	}
	return &record, nil
}

// SaveIdempotentResponse stores a completed response under key for ttl.
func (c *Client) SaveIdempotentResponse(ctx context.Context, key, fingerprint string, statusCode int, contentType string, body []byte, ttl time.Duration) error {
	record := IdempotentResponse{
		State:       idempotencyCompleted,
		Fingerprint: fingerprint,
		StatusCode:  statusCode,
		ContentType: contentType,
		Body:        body,
		StoredAt:    time.Now().UTC(),
	}

	jsonData, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal idempotency record: %w", err)
	}
	return c.rdb.Set(ctx, idempotencyPrefix+key, jsonData, ttl).Err()
}

// ReleaseIdempotencyKey forgets key so the request can be retried.
func (c *Client) ReleaseIdempotencyKey(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, idempotencyPrefix+key).Err()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}
