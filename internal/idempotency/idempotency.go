// Package idempotency replays the stored response of a request that carries an
// Idempotency-Key the server has already answered, so a retried request does
// not fire its side effects twice.
package idempotency

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Header is the request header carrying the client's key.
const Header = "Idempotency-Key"

// ReplayedHeader is set on responses served from the store.
const ReplayedHeader = "Idempotent-Replayed"

// ErrInFlight is returned by Reserve when the key is held by a request that
// has not finished yet.
var ErrInFlight = errors.New("request with this idempotency key is in progress")

// Response is a recorded HTTP answer.
type Response struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// Store records responses by key.
type Store interface {
	// Lookup returns the completed response stored under key.
	Lookup(ctx context.Context, key string) (Response, bool, error)
	// Reserve claims key for a request in progress. It returns ErrInFlight
	// when the key is already claimed or answered.
	Reserve(ctx context.Context, key string, ttl time.Duration) error
	// Save stores the final response under a reserved key.
	Save(ctx context.Context, key string, resp Response, ttl time.Duration) error
	// Release drops a reservation so the request can be retried.
	Release(ctx context.Context, key string) error
}

// Middleware guards the wrapped handler with store. Requests without the
// header pass through. Responses with status 5xx are not stored, so the
// client may retry them.
func Middleware(store Store, ttl time.Duration, log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(Header)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}
			scoped := r.Method + " " + r.URL.Path + " " + key
			ctx := r.Context()

			if resp, ok, err := store.Lookup(ctx, scoped); err != nil {
				log.WithError(err).Error("idempotency lookup")
				writeError(w, http.StatusServiceUnavailable, "idempotency store unavailable")
				return
			} else if ok {
				replay(w, resp)
				return
			}

			if err := store.Reserve(ctx, scoped, ttl); err != nil {
				if errors.Is(err, ErrInFlight) {
					writeError(w, http.StatusConflict, ErrInFlight.Error())
					return
				}
				log.WithError(err).Error("idempotency reserve")
				writeError(w, http.StatusServiceUnavailable, "idempotency store unavailable")
				return
			}

			rec := &recorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			// The client may have gone away; the outcome must still be kept.
			bg := context.WithoutCancel(ctx)
			if rec.status >= http.StatusInternalServerError {
				if err := store.Release(bg, scoped); err != nil {
					log.WithError(err).Warn("idempotency release")
				}
				return
			}
			resp := Response{Status: rec.status, ContentType: rec.Header().Get("Content-Type"), Body: rec.body.Bytes()}
			if err := store.Save(bg, scoped, resp, ttl); err != nil {
				log.WithError(err).Warn("idempotency save")
			}
		})
	}
}

func replay(w http.ResponseWriter, resp Response) {
	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	w.Header().Set(ReplayedHeader, "true")
	w.WriteHeader(resp.Status)
	w.Write(resp.Body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// recorder copies what the handler writes.
type recorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func (r *recorder) WriteHeader(status int) {
	if r.wroteHeader {
		return
	}
	r.status = status
	r.wroteHeader = true
	r.ResponseWriter.WriteHeader(status)
}

func (r *recorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
