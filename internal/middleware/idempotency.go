package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"

	"github.com/forgo/haven/api/internal/cache"
	"github.com/forgo/haven/api/internal/model"
)

// ResponseStore persists responses keyed by request fingerprint
type ResponseStore interface {
	Get(ctx context.Context, key string) (*cache.StoredResponse, error)
	Acquire(ctx context.Context, key string) (bool, error)
	Save(ctx context.Context, key string, resp *cache.StoredResponse) error
	Release(ctx context.Context, key string) error
}

// generateKey creates a unique key from the caller, idempotency key, and request fingerprint
func generateKey(caller, idempotencyKey, method, path string, body []byte) string {
	h := sha256.New()
	for _, part := range []string{caller, idempotencyKey, method, path} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// idempotencyResponseWriter captures the response for caching
type idempotencyResponseWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (w *idempotencyResponseWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *idempotencyResponseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func replay(w http.ResponseWriter, resp *cache.StoredResponse) {
	for k, v := range resp.Headers {
		for _, val := range v {
			w.Header().Add(k, val)
		}
	}
	w.Header().Set("X-Idempotency-Replayed", "true")
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}

// Idempotency replays the stored response for POST and PATCH requests that
// repeat an Idempotency-Key. Only non-5xx responses are stored.
func Idempotency(store ResponseStore) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost && r.Method != http.MethodPatch {
				next.ServeHTTP(w, r)
				return
			}
			idempotencyKey := r.Header.Get("Idempotency-Key")
			if idempotencyKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			// Runs ahead of per-route auth, so the bearer token identifies the caller.
			caller := GetUserID(r.Context())
			if caller == "" {
				caller = r.Header.Get("Authorization")
			}
			if caller == "" {
				caller = r.RemoteAddr
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				model.NewBadRequestError("unable to read request body").WriteJSON(w)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			ctx := r.Context()
			key := generateKey(caller, idempotencyKey, r.Method, r.URL.Path, body)

			if stored, err := store.Get(ctx, key); err != nil {
				slog.Warn("idempotency lookup failed", slog.String("error", err.Error()))
				next.ServeHTTP(w, r)
				return
			} else if stored != nil {
				replay(w, stored)
				return
			}

			acquired, err := store.Acquire(ctx, key)
			if err != nil {
				slog.Warn("idempotency lock failed", slog.String("error", err.Error()))
				next.ServeHTTP(w, r)
				return
			}
			if !acquired {
				model.NewConflictError("a request with this idempotency key is already in progress").WriteJSON(w)
				return
			}

			irw := &idempotencyResponseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(irw, r)

			// The request context may already be cancelled once the client disconnects.
			saveCtx := context.WithoutCancel(ctx)
			if irw.status >= http.StatusInternalServerError {
				if err := store.Release(saveCtx, key); err != nil {
					slog.Warn("idempotency release failed", slog.String("error", err.Error()))
				}
				return
			}
			resp := &cache.StoredResponse{
				Status:  irw.status,
				Headers: irw.Header().Clone(),
				Body:    irw.body.Bytes(),
			}
			if err := store.Save(saveCtx, key, resp); err != nil {
				slog.Warn("idempotency save failed", slog.String("error", err.Error()))
			}
		})
	}
}
