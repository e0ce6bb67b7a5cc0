package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/akashx/akashx/pkg/db"
	"github.com/akashx/akashx/pkg/syncer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func emptyChain(head int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/status":
			fmt.Fprintf(w, `{"result":{"sync_info":{"latest_block_height":"%d"}}}`, head)
		case "/genesis":
			fmt.Fprint(w, `{"result":{"genesis":{"chain_id":"akashnet-2","app_state":{}}}}`)
		case "/block":
			h, _ := strconv.ParseInt(r.URL.Query().Get("height"), 10, 64)
			ts := time.Date(2022, 1, 1, 0, 0, int(h), 0, time.UTC).Format(time.RFC3339)
			fmt.Fprintf(w, `{"result":{"block_id":{"hash":"H%d"},"block":{"header":{"height":"%d","time":%q},"data":{"txs":[]}}}}`, h, h, ts)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func testConfig(t *testing.T, endpoint string) Config {
	return Config{
		RPCEndpoints:     []string{endpoint},
		RPCMaxConcurrent: 2,
		RPCTimeout:       5 * time.Second,
		DataDir:          t.TempDir(),
		InsertBatchSize:  10,
		ProcessWindow:    10,
		StoreDriver:      DriverMemory,
		SyncCron:         "@every 1h",
		Addr:             "127.0.0.1:0",
	}
}

func newTestApp(t *testing.T, head int64) *App {
	t.Helper()
	node := httptest.NewServer(emptyChain(head))
	t.Cleanup(node.Close)

	a, err := build(context.Background(), zaptest.NewLogger(t), testConfig(t, node.URL))
	require.NoError(t, err)
	t.Cleanup(func() {
		a.Coordinator.Close()
		_ = a.Cache.Close()
	})
	return a
}

func TestSyncOnceWithMemoryStore(t *testing.T) {
	a := newTestApp(t, 25)
	assert.False(t, a.Ready())

	a.SyncOnce(context.Background())

	latest, err := a.Store.LatestBlock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(25), latest.Height)
	assert.True(t, latest.IsProcessed)
	assert.True(t, a.Ready())
}

func TestRouter(t *testing.T) {
	a := newTestApp(t, 4)
	a.SyncOnce(context.Background())
	a.SetupServer()
	srv := httptest.NewServer(a.Server.Handler)
	defer srv.Close()

	get := func(path string) (int, string) {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, string(body)
	}

	code, _ := get("/healthz")
	assert.Equal(t, http.StatusOK, code)
	code, _ = get("/readyz")
	assert.Equal(t, http.StatusOK, code)

	code, body := get("/status")
	require.Equal(t, http.StatusOK, code)
	var status StatusResponse
	require.NoError(t, json.Unmarshal([]byte(body), &status))
	assert.Equal(t, syncer.StageDone, status.Sync.Stage)
	assert.Equal(t, int64(4), status.Sync.TargetHeight)
	require.Len(t, status.Endpoints, 1)
	assert.NotZero(t, status.Endpoints[0].Requests)

	code, body = get("/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, strings.Contains(body, "akashx_rpc_requests_total"))
	assert.True(t, strings.Contains(body, "akashx_processor_blocks_total 4"))

	resp, err := http.Post(srv.URL+"/status", "application/json", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestStopWaitsForFirstCycle(t *testing.T) {
	release := make(chan struct{})
	var fetching atomic.Bool
	chain := emptyChain(500)
	node := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/block" {
			chain.ServeHTTP(w, r)
			return
		}
		fetching.Store(true)
		select {
		case <-r.Context().Done():
		case <-release:
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(node.Close)
	t.Cleanup(func() { close(release) })

	a, err := build(context.Background(), zaptest.NewLogger(t), testConfig(t, node.URL))
	require.NoError(t, err)
	require.NoError(t, a.SetupScheduler(context.Background()))
	a.SetupServer()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		a.Start(ctx)
		close(done)
	}()

	require.Eventually(t, fetching.Load, 5*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("Start did not return after cancel")
	}

	snap := a.Coordinator.Status().Snapshot()
	assert.False(t, snap.Running)
	assert.Equal(t, int64(1), snap.FailedCycles)
}

func TestRebuildIfRequested(t *testing.T) {
	a := newTestApp(t, 6)
	a.SyncOnce(context.Background())
	require.NoError(t, a.RebuildIfRequested(context.Background()))

	a.Config.RebuildIndexers = true
	require.NoError(t, a.RebuildIfRequested(context.Background()))
	b, err := a.Store.GetBlock(context.Background(), 6)
	require.NoError(t, err)
	assert.True(t, b.IsProcessed)
	_, err = a.Store.GetBlock(context.Background(), 7)
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestSetupSchedulerRejectsBadSpec(t *testing.T) {
	a := newTestApp(t, 1)
	a.Config.SyncCron = "every now and then"
	assert.Error(t, a.SetupScheduler(context.Background()))

	a.Config.SyncCron = "*/20 * * * * *"
	require.NoError(t, a.SetupScheduler(context.Background()))
	assert.Len(t, a.Cron.Entries(), 1)
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("RPC_ENDPOINTS", "http://a:26657, http://b:26657,")
	t.Setenv("MAX_HEIGHT", "1200")
	t.Setenv("PRODUCTION", "true")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("RPC_JITTER_MAX", "1s")

	cfg := LoadConfig()
	assert.Equal(t, []string{"http://a:26657", "http://b:26657"}, cfg.RPCEndpoints)
	assert.Equal(t, int64(1200), cfg.MaxHeight)
	assert.True(t, cfg.Production)
	assert.Equal(t, 5, cfg.RPCMaxConcurrent)
	assert.Equal(t, time.Second, cfg.RPCJitterMax)
	assert.Equal(t, int64(10000), cfg.ProcessWindow)
	assert.Equal(t, "*/20 * * * * *", cfg.SyncCron)
	require.NoError(t, cfg.Validate())

	cfg.StoreDriver = "sqlite"
	assert.Error(t, cfg.Validate())

	cfg = LoadConfig()
	cfg.RPCJitterMin = 2 * time.Second
	assert.Error(t, cfg.Validate())
}
