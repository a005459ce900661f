package middleware

import (
	"bytes"
	"net/http"
	"time"

	"github.com/dvloznov/goaltracker/internal/auth"
	"github.com/dvloznov/goaltracker/internal/logger"
	"github.com/patrickmn/go-cache"
)

// IdempotencyHeader names the request header carrying the client's key.
const IdempotencyHeader = "Idempotency-Key"

type storedResponse struct {
	status      int
	contentType string
	body        []byte
}

// Idempotency replays the first successful response to a POST for every
// later POST with the same Idempotency-Key from the same user, so a retried
// paycheck submit is not ingested twice. Keys live for ttl.
type Idempotency struct {
	responses *cache.Cache
}

// NewIdempotency creates the replay cache.
func NewIdempotency(ttl time.Duration) *Idempotency {
	return &Idempotency{responses: cache.New(ttl, 2*ttl)}
}

// Middleware applies to POST requests that carry the header.
func (i *Idempotency) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(IdempotencyHeader)
		if r.Method != http.MethodPost || key == "" {
			next.ServeHTTP(w, r)
			return
		}

		cacheKey := auth.FromContext(r.Context()).UID + "|" + r.URL.Path + "|" + key
		if v, ok := i.responses.Get(cacheKey); ok {
			stored := v.(*storedResponse)
			log := logger.FromContext(r.Context())
			log.Info().Str("idempotency_key", key).Msg("Replaying stored response")

			w.Header().Set("Content-Type", stored.contentType)
			w.Header().Set("Idempotent-Replayed", "true")
			w.WriteHeader(stored.status)
			w.Write(stored.body)
			return
		}

		rec := &recordingWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		if rec.status < 300 {
			i.responses.SetDefault(cacheKey, &storedResponse{
				status:      rec.status,
				contentType: rec.Header().Get("Content-Type"),
				body:        rec.body.Bytes(),
			})
		}
	})
}

type recordingWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (rw *recordingWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *recordingWriter) Write(b []byte) (int, error) {
	rw.body.Write(b)
	return rw.ResponseWriter.Write(b)
}
