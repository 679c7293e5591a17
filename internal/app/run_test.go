package app

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"biogas-server/internal/config"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := l.Addr().String()
	_ = l.Close()
	return addr
}

func sqliteConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		AppEnv:             "dev",
		HTTPAddr:           freeAddr(t),
		StoreKind:          config.StoreSQLite,
		StoreBucket:        "biogas_data",
		StoreMeasurement:   "biogas_sensor",
		QueryTimeout:       time.Second,
		SQLitePath:         filepath.Join(t.TempDir(), "biogas.db"),
		SQLiteMaxOpenConns: 1,
		SQLiteMaxIdleConns: 1,
		BreakerMaxFailures: 5,
		BreakerOpenTimeout: time.Second,
	}
}

func waitFor(t *testing.T, url string) *http.Response {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			return resp
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not come up: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestRun_ServesAndShutsDown(t *testing.T) {
	cfg := sqliteConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, cfg) }()

	resp := waitFor(t, "http://"+cfg.HTTPAddr+"/api/sensors/latest")
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("latest on empty store: status=%d body=%s; want 404", resp.StatusCode, body)
	}

	resp = waitFor(t, "http://"+cfg.HTTPAddr+"/api/health")
	body, _ = io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if !strings.Contains(string(body), `"database":"SQLite"`) {
		t.Errorf("health body = %s", body)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() = %v; want context.Canceled", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_InvalidThresholdsFileFailsStartup(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.ThresholdsFile = filepath.Join(t.TempDir(), "thresholds.yaml")
	if err := os.WriteFile(cfg.ThresholdsFile, []byte("rules:\n  - parameter: ph_level\n    min: 9\n    max: 1\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	err := Run(context.Background(), cfg)
	if err == nil || !strings.Contains(err.Error(), "greater than max") {
		t.Fatalf("Run() = %v; want thresholds validation error", err)
	}
}

func TestRun_MissingBucketFailsStartup(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.StoreBucket = ""
	if err := Run(context.Background(), cfg); err == nil {
		t.Fatal("Run() = nil; want error for missing bucket")
	}
}
