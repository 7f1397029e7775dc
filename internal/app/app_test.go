package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig(t *testing.T) Config {
	t.Helper()

	cfg := DefaultConfig()
	cfg.StorageDriver = StorageDriverMemory
	cfg.HTTPAddr = fmt.Sprintf("127.0.0.1:%d", findFreePort(t))
	cfg.MetricsAddr = fmt.Sprintf("127.0.0.1:%d", findFreePort(t))
	cfg.ShutdownTimeout = 2 * time.Second
	return cfg
}

func runInBackground(ctx context.Context, cfg Config) <-chan error {
	done := make(chan error, 1)
	go func() { done <- Run(ctx, cfg) }()
	return done
}

func TestRun_MemoryGracefulShutdown(t *testing.T) {
	cfg := memoryConfig(t)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(150 * time.Millisecond)
		cancel()
	}()

	err := Run(ctx, cfg)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRun_InvalidStorageDriver(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StorageDriver = "invalid-driver"

	err := Run(context.Background(), cfg)
	if err == nil || !strings.Contains(err.Error(), "unsupported storage driver") {
		t.Fatalf("expected unsupported storage driver error, got %v", err)
	}
}

func TestRun_InvalidHTTPAddr(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.HTTPAddr = "127.0.0.1:-1"

	err := Run(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen http")
}

func TestRun_ServesOrdersAPI(t *testing.T) {
	cfg := memoryConfig(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := runInBackground(ctx, cfg)
	defer func() {
		cancel()
		<-done
	}()

	base := "http://" + cfg.HTTPAddr
	waitForHTTP(t, base+"/orders")

	body, _ := json.Marshal(map[string]string{
		"created_at":  "2026-01-02T03:04:05Z",
		"customer_id": "customer-1",
	})
	resp, err := http.Post(base+"/orders", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	var created struct {
		ID         string `json:"id"`
		CustomerID string `json:"customer_id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "customer-1", created.CustomerID)

	resp, err = http.Get(base + "/orders/" + created.ID)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(base + "/orders?page=1&per_page=5")
	require.NoError(t, err)
	var page struct {
		Value      []json.RawMessage `json:"value"`
		TotalCount int64             `json:"total_count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	resp.Body.Close()
	assert.Len(t, page.Value, 1)
	assert.EqualValues(t, 1, page.TotalCount)

	metricsBase := "http://" + cfg.MetricsAddr
	waitForHTTP(t, metricsBase+"/livez")
	resp, err = http.Get(metricsBase + "/metrics")
	require.NoError(t, err)
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	resp.Body.Close()
	assert.Contains(t, buf.String(), "orders_http_requests_total")
	assert.Contains(t, buf.String(), "orders_repository_operations_total")
}

func TestRun_ShutdownReturnsAfterCancel(t *testing.T) {
	cfg := memoryConfig(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := runInBackground(ctx, cfg)
	waitForHTTP(t, "http://"+cfg.HTTPAddr+"/orders")

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	_, err := http.Get("http://" + cfg.HTTPAddr + "/orders")
	assert.Error(t, err, "api server should be stopped")
}
