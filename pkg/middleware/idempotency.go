package middleware

import (
	"bytes"
	"net/http"
	"sync"
	"time"

	"roomsvc/pkg/logger"
)

type idempotencyRecord struct {
	statusCode int
	body       []byte
	header     http.Header
	storedAt   time.Time
}

// InMemoryIdempotencyStore caches responses for replayed Idempotency-Key
// headers within a TTL window.
type InMemoryIdempotencyStore struct {
	mu       sync.Mutex
	records  map[string]*idempotencyRecord
	ttl      time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewInMemoryIdempotencyStore(ttl time.Duration) *InMemoryIdempotencyStore {
	s := &InMemoryIdempotencyStore{
		records: make(map[string]*idempotencyRecord),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}

	go s.cleanupLoop()
	return s
}

func (s *InMemoryIdempotencyStore) Get(key string) (*idempotencyRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, exists := s.records[key]
	if !exists {
		return nil, false
	}

	if time.Since(record.storedAt) >= s.ttl {
		delete(s.records, key)
		return nil, false
	}

	return record, true
}

func (s *InMemoryIdempotencyStore) Set(key string, record *idempotencyRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = record
}

func (s *InMemoryIdempotencyStore) cleanupLoop() {
	ticker := time.NewTicker(s.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

func (s *InMemoryIdempotencyStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, record := range s.records {
		if now.Sub(record.storedAt) >= s.ttl {
			delete(s.records, key)
		}
	}
}

func (s *InMemoryIdempotencyStore) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}

type recordingWriter struct {
	http.ResponseWriter
	statusCode int
	body       bytes.Buffer
	written    bool
}

func (rw *recordingWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *recordingWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	rw.body.Write(b)
	return rw.ResponseWriter.Write(b)
}

// Idempotency replays the stored response for repeated mutating requests
// that carry the same Idempotency-Key. Keys are scoped to the user so one
// client cannot replay another's responses.
func Idempotency(store *InMemoryIdempotencyStore, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost && r.Method != http.MethodPut {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get("Idempotency-Key")
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			scopedKey := UserID(r.Context()) + ":" + r.Method + ":" + r.URL.Path + ":" + key

			if record, found := store.Get(scopedKey); found {
				log.Info("Replaying idempotent response",
					"method", r.Method,
					"path", r.URL.Path,
				)
				for name, values := range record.header {
					for _, v := range values {
						w.Header().Add(name, v)
					}
				}
				w.Header().Set("X-Idempotency-Replay", "true")
				w.WriteHeader(record.statusCode)
				_, _ = w.Write(record.body)
				return
			}

			rw := &recordingWriter{ResponseWriter: w, statusCode: 200}
			next.ServeHTTP(rw, r)

			// Only successful responses are worth replaying.
			if rw.statusCode >= 200 && rw.statusCode < 300 {
				header := make(http.Header)
				for name, values := range rw.Header() {
					header[name] = append([]string(nil), values...)
				}
				store.Set(scopedKey, &idempotencyRecord{
					statusCode: rw.statusCode,
					body:       append([]byte(nil), rw.body.Bytes()...),
					header:     header,
					storedAt:   time.Now(),
				})
			}
		})
	}
}
