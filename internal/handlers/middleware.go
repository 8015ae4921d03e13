package handlers

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"shop_backend/internal/logging"
	"shop_backend/internal/redis"
	"shop_backend/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	AdminKeyHeader       = "X-Admin-Key"
	IdempotencyKeyHeader = "Idempotency-Key"
	IdempotentReplay     = "X-Idempotent-Replay"

	maxIdempotencyKeyLength = 255
)

// AdminGuard rejects requests that do not carry a valid admin key.
// A disabled authenticator lets every request through.
func AdminGuard(auth services.AdminAuthenticator, logger *zap.Logger) gin.HandlerFunc {
	if auth == nil || !auth.Enabled() {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if err := auth.Verify(strings.TrimSpace(c.GetHeader(AdminKeyHeader))); err != nil {
			logging.FromContext(c, logger).Warn("admin key rejected", zap.String("path", c.FullPath()))
			respondFailure(c, http.StatusUnauthorized, "You are not authorized", errorMessage{Path: AdminKeyHeader, Message: "missing or invalid admin key"})
			return
		}
		c.Next()
	}
}

// IdempotencyStore keeps responses of requests made with an idempotency key.
type IdempotencyStore interface {
	ReserveIdempotencyKey(ctx context.Context, key, fingerprint string, ttl time.Duration) (*redis.IdempotentResponse, error)
	SaveIdempotentResponse(ctx context.Context, key, fingerprint string, statusCode int, contentType string, body []byte, ttl time.Duration) error
	ReleaseIdempotencyKey(ctx context.Context, key string) error
}

type capturingWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *capturingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *capturingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// requestFingerprint identifies the request a key was first used for.
func requestFingerprint(r *http.Request, body []byte) string {
	bodySum := sha256.Sum256(body)
	var b strings.Builder
	b.WriteString(r.Method)
	b.WriteString("|")
	b.WriteString(r.URL.Path)
	b.WriteString("|")
	b.WriteString(r.URL.RawQuery)
	b.WriteString("|")
	b.WriteString(r.Header.Get("Content-Type"))
	b.WriteString("|")
	b.WriteString(hex.EncodeToString(bodySum[:]))
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Idempotency replays the stored response when a request is repeated with the
// same Idempotency-Key and body. Reusing a key for a different request is
// rejected. Only successful responses are kept; a failed or panicking attempt
// frees the key. Requests without the header, or without a store, pass through.
func Idempotency(store IdempotencyStore, ttl time.Duration, logger *zap.Logger) gin.HandlerFunc {
	if store == nil {
		return func(c *gin.Context) { c.Next() }
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
		if header == "" {
			c.Next()
			return
		}
		if len(header) > maxIdempotencyKeyLength {
			respondFailure(c, http.StatusBadRequest, "Invalid idempotency key", errorMessage{Path: IdempotencyKeyHeader, Message: "key is too long"})
			return
		}

		log := logging.FromContext(c, logger)
		ctx := c.Request.Context()
		key := c.Request.Method + " " + c.FullPath() + " " + header

		var body []byte
		if c.Request.Body != nil {
			data, err := io.ReadAll(c.Request.Body)
			if err != nil {
				respondFailure(c, http.StatusBadRequest, "Unable to read request body", errorMessage{Path: "", Message: err.Error()})
				return
			}
			_ = c.Request.Body.Close()
			c.Request.Body = io.NopCloser(bytes.NewReader(data))
			body = data
		}
		fingerprint := requestFingerprint(c.Request, body)

		stored, err := store.ReserveIdempotencyKey(ctx, key, fingerprint, ttl)
		switch {
		case errors.Is(err, redis.ErrIdempotencyPending):
			respondFailure(c, http.StatusConflict, "A request with this idempotency key is in progress", errorMessage{Path: IdempotencyKeyHeader, Message: "retry once the first request finishes"})
			return
		case errors.Is(err, redis.ErrIdempotencyFingerprintMismatch):
			respondFailure(c, http.StatusUnprocessableEntity, "Idempotency key already used for a different request", errorMessage{Path: IdempotencyKeyHeader, Message: "use a new key for a new request"})
			return
		case err != nil:
			log.Warn("idempotency store unavailable", zap.Error(err))
			c.Next()
			return
		case stored != nil:
			c.Header(IdempotentReplay, "true")
			contentType := stored.ContentType
			if contentType == "" {
				contentType = "application/json; charset=utf-8"
			}
			c.Data(stored.StatusCode, contentType, stored.Body)
			c.Abort()
			return
		}

		writer := &capturingWriter{ResponseWriter: c.Writer}
		c.Writer = writer

		defer func() {
			recovered := recover()

			// the request context may already be cancelled
			storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			defer cancel()

			status := writer.Status()
			if recovered == nil && status >= 200 && status < 300 {
				if err := store.SaveIdempotentResponse(storeCtx, key, fingerprint, status, writer.Header().Get("Content-Type"), writer.body.Bytes(), ttl); err != nil {
					log.Warn("failed to store idempotent response", zap.Error(err))
				}
				return
			}
			if err := store.ReleaseIdempotencyKey(storeCtx, key); err != nil {
				log.Warn("failed to release idempotency key", zap.Error(err))
			}
			if recovered != nil {
				panic(recovered)
			}
		}()
		c.Next()
	}
}
