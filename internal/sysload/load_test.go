package sysload

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_NothingEnabled(t *testing.T) {
	res, err := NewTester(nil, nil).Run(context.Background(), Plan{})
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestRun_CPU(t *testing.T) {
	res, err := NewTester(nil, nil).Run(context.Background(), Plan{
		CPU:     true,
		CPUTime: 30 * time.Millisecond,
		CPULoad: 5,
	})

	require.NoError(t, err)
	assert.Equal(t, "100.0", res["cpu.target_load_percent"])
	assert.Greater(t, res["cpu.iterations"].(int64), int64(0))
	assert.Contains(t, res, "cpu.elapsed_seconds")
}

func TestClampLoad(t *testing.T) {
	assert.Equal(t, 0.1, clampLoad(0))
	assert.Equal(t, 0.5, clampLoad(0.5))
	assert.Equal(t, 1.0, clampLoad(3))
}

func TestRun_RAM(t *testing.T) {
	res, err := NewTester(nil, nil).Run(context.Background(), Plan{
		RAM:       true,
		RAMMB:     1,
		RAMTime:   10 * time.Millisecond,
		RAMChunks: 4,
	})

	require.NoError(t, err)
	assert.Equal(t, "1.0", res["ram.requested_mb"])
	assert.Equal(t, 4, res["ram.chunks"])
	assert.NotContains(t, res, "ram.error")
}

func TestRun_RAMShortage(t *testing.T) {
	huge := Plan{RAM: true, RAMMB: 1 << 40, RAMTime: time.Millisecond}

	res, err := NewTester(nil, nil).Run(context.Background(), huge)
	require.NoError(t, err)
	assert.Contains(t, res["ram.error"], "insufficient memory")
	assert.NotContains(t, res, "ram.chunks")

	huge.FailOnRAMShortage = true
	_, err = NewTester(nil, nil).Run(context.Background(), huge)
	assert.ErrorContains(t, err, "insufficient memory")
}

func TestRun_Network(t *testing.T) {
	payload := strings.Repeat("x", 96*1024)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(payload))
	}))
	defer srv.Close()
	dir := t.TempDir()

	res, err := NewTester(nil, nil).Run(context.Background(), Plan{
		Network:          true,
		NetworkURL:       srv.URL + "/blob.db",
		NetworkDownloads: 2,
		DownloadDir:      dir,
	})

	require.NoError(t, err)
	assert.NotContains(t, res, "network.error")
	assert.Equal(t, 2, res["network.downloads"])
	assert.Equal(t, "0.19", res["network.total_mb"])
	assert.Contains(t, res, "network.avg_speed_mbps")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "downloads are removed")
}

func TestRun_NetworkErrorIsRecorded(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	res, err := NewTester(nil, nil).Run(context.Background(), Plan{
		Network:     true,
		NetworkURL:  srv.URL,
		DownloadDir: t.TempDir(),
	})

	require.NoError(t, err)
	assert.Contains(t, res["network.error"], "404")
	assert.NotContains(t, res, "network.downloads")
}

func TestRun_CanceledDuringPause(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := NewTester(nil, nil).Run(ctx, Plan{
		CPU:   true,
		RAM:   true,
		RAMMB: 1,
		Pause: time.Hour,
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, res, "cpu.iterations")
	assert.NotContains(t, res, "ram.chunks")
}
