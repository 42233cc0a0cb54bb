package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRedis is an in-memory RedisClient that honors context cancellation,
// the way a real client refuses commands on a dead context.
type fakeRedis struct {
	mu   sync.Mutex
	data map[string]string
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: make(map[string]string)}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if err := ctx.Err(); err != nil {
		return redis.NewStringResult("", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	if err := ctx.Err(); err != nil {
		return redis.NewStatusResult("", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value.(string)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, value interface{}, _ time.Duration) *redis.BoolCmd {
	if err := ctx.Err(); err != nil {
		return redis.NewBoolResult(false, err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.data[key] = value.(string)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, key := range keys {
		if _, ok := f.data[key]; ok {
			delete(f.data, key)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeRedis) storedRecord(t *testing.T, key string) *IdempotencyRecord {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.data[IdempotencyKeyPrefix+key]
	require.True(t, ok, "no record stored for key %s", key)
	record := &IdempotencyRecord{}
	require.NoError(t, json.Unmarshal([]byte(raw), record))
	return record
}

func idempotencyRouter(client RedisClient, handler gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/bookings", IdempotencyMiddleware(DefaultIdempotencyConfig(client)), handler)
	return router
}

func postWithKey(router *gin.Engine, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/bookings", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set(IdempotencyKeyHeader, key)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestIdempotency_ReplaysCompletedResponse(t *testing.T) {
	client := newFakeRedis()
	handlerCalls := 0
	router := idempotencyRouter(client, func(c *gin.Context) {
		handlerCalls++
		c.JSON(http.StatusCreated, gin.H{"id": "res-1"})
	})

	first := postWithKey(router, "key-1", `{"event_id":"e1"}`)
	second := postWithKey(router, "key-1", `{"event_id":"e1"}`)

	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, handlerCalls)
}

func TestIdempotency_RecordSurvivesClientDisconnect(t *testing.T) {
	// The client walking away cancels the request context mid-handler. The
	// completed record must still land, or a retry with the same key would
	// execute the booking a second time.
	client := newFakeRedis()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handlerCalls := 0
	router := idempotencyRouter(client, func(c *gin.Context) {
		handlerCalls++
		c.JSON(http.StatusCreated, gin.H{"id": "res-1"})
		// The client is gone by the time the handler finishes
		cancel()
	})

	req := httptest.NewRequest(http.MethodPost, "/bookings", bytes.NewBufferString(`{"event_id":"e1"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(IdempotencyKeyHeader, "key-gone")
	req = req.WithContext(ctx)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	record := client.storedRecord(t, "key-gone")
	assert.Equal(t, StatusCompleted, record.Status)
	assert.Equal(t, http.StatusCreated, record.ResponseCode)

	replay := postWithKey(router, "key-gone", `{"event_id":"e1"}`)
	assert.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, 1, handlerCalls)
}

func TestIdempotency_ImplicitStatusStoredAsOK(t *testing.T) {
	client := newFakeRedis()
	router := idempotencyRouter(client, func(c *gin.Context) {
		// Body written without an explicit WriteHeader
		_, _ = c.Writer.Write([]byte(`{"ok":true}`))
	})

	w := postWithKey(router, "key-implicit", `{}`)
	assert.Equal(t, http.StatusOK, w.Code)

	record := client.storedRecord(t, "key-implicit")
	assert.Equal(t, http.StatusOK, record.ResponseCode)

	replay := postWithKey(router, "key-implicit", `{}`)
	assert.Equal(t, http.StatusOK, replay.Code)
	assert.Equal(t, `{"ok":true}`, replay.Body.String())
}

func TestIdempotency_KeyReusedWithDifferentRequest(t *testing.T) {
	client := newFakeRedis()
	router := idempotencyRouter(client, func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"id": "res-1"})
	})

	first := postWithKey(router, "key-2", `{"event_id":"e1"}`)
	second := postWithKey(router, "key-2", `{"event_id":"OTHER"}`)

	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, second.Code)
}

func TestIdempotency_NoHeaderPassesThrough(t *testing.T) {
	client := newFakeRedis()
	handlerCalls := 0
	router := idempotencyRouter(client, func(c *gin.Context) {
		handlerCalls++
		c.JSON(http.StatusCreated, gin.H{"id": "res-1"})
	})

	postWithKey(router, "", `{}`)
	postWithKey(router, "", `{}`)

	assert.Equal(t, 2, handlerCalls)
	assert.Empty(t, client.data)
}
