package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyHeader   = "Idempotency-Key"
	idempotencyReplayed = "Idempotency-Replayed"
	idempotencyTTL      = 24 * time.Hour
)

// storedReply is the replayable part of a completed mutation.
type storedReply struct {
	Status      int             `json:"status"`
	ContentType string          `json:"content_type"`
	Body        json.RawMessage `json:"body"`
}

// replayStore keeps completed replies keyed by client idempotency key.
type replayStore struct {
	client *redis.Client
}

func (s *replayStore) get(c *gin.Context, key string) (*storedReply, bool) {
	data, err := s.client.Get(c.Request.Context(), key).Bytes()
	if err != nil {
		// Missing key and store errors both fall through to a fresh
		// execution; replay is best effort.
		return nil, false
	}
	var reply storedReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return nil, false
	}
	return &reply, true
}

func (s *replayStore) put(c *gin.Context, key string, reply *storedReply) {
	data, err := json.Marshal(reply)
	if err != nil {
		return
	}
	_ = s.client.Set(c.Request.Context(), key, data, idempotencyTTL).Err()
}

// bodyCapture tees the response body so a completed reply can be stored.
type bodyCapture struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *bodyCapture) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// IdempotencyMiddleware replays the stored reply when a mutation is retried
// with the same Idempotency-Key, so a retried trip create or period lock does
// not run twice. Keys are scoped to method and route: reusing one key across
// endpoints never cross-replays. Server errors are not stored; the client may
// retry those.
func IdempotencyMiddleware(redisClient *redis.Client) gin.HandlerFunc {
	store := &replayStore{client: redisClient}
	return func(c *gin.Context) {
		if !isMutation(c.Request.Method) {
			c.Next()
			return
		}
		key := c.GetHeader(idempotencyHeader)
		if key == "" {
			c.Next()
			return
		}

		storeKey := "idempotency:" + c.Request.Method + ":" + c.FullPath() + ":" + key
		if reply, ok := store.get(c, storeKey); ok {
			c.Header(idempotencyReplayed, "true")
			c.Data(reply.Status, reply.ContentType, reply.Body)
			c.Abort()
			return
		}

		w := &bodyCapture{ResponseWriter: c.Writer}
		c.Writer = w

		c.Next()

		if status := c.Writer.Status(); status < http.StatusInternalServerError {
			store.put(c, storeKey, &storedReply{
				Status:      status,
				ContentType: c.Writer.Header().Get("Content-Type"),
				Body:        w.buf.Bytes(),
			})
		}
	}
}
