package metrics

import (
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounter(t *testing.T) {
	var c Counter
	c.Inc()
	c.Add(4)
	assert.Equal(t, uint64(5), c.Load())
}

func TestTimer(t *testing.T) {
	tm := StartTimer()
	time.Sleep(time.Millisecond)
	assert.GreaterOrEqual(t, tm.Duration(), time.Millisecond)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Counter("orders_created").Inc()
		}()
	}
	wg.Wait()
	r.Counter("orders_rejected").Add(2)

	assert.Same(t, r.Counter("orders_created"), r.Counter("orders_created"))
	assert.Equal(t, []string{"orders_created", "orders_rejected"}, r.Names())
	assert.Equal(t, map[string]uint64{"orders_created": 50, "orders_rejected": 2}, r.Snapshot())
}

func TestRegistryHandler(t *testing.T) {
	r := NewRegistry()
	r.Counter("products_created").Inc()

	w := httptest.NewRecorder()
	r.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]uint64
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, uint64(1), body["products_created"])
}
