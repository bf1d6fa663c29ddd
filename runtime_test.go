package swissalloc

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/hupe1980/swissalloc/alloc"
	"github.com/hupe1980/swissalloc/internal/resource"
	"github.com/hupe1980/swissalloc/swiss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		HeapSize:  4 << 20,
		ArenaSize: 1 << 20,
		Backing:   alloc.BackingGo,
		LogLevel:  slog.LevelInfo,
		LogFormat: LogFormatNone,
	}
}

func TestOpen(t *testing.T) {
	rt, err := Open(testConfig())
	require.NoError(t, err)

	require.NotNil(t, rt.Heap())
	require.NotNil(t, rt.Arena())
	assert.Equal(t, 4<<20, rt.Heap().Capacity())
	assert.Equal(t, 1<<20, rt.Arena().Capacity())
	assert.Equal(t, int64(5<<20), rt.Reserved())
	assert.Equal(t, testConfig(), rt.Config())

	require.NoError(t, rt.Close())
	assert.Equal(t, int64(0), rt.Reserved())
	require.NoError(t, rt.Close())
}

func TestOpen_Partial(t *testing.T) {
	cfg := testConfig()
	cfg.ArenaSize = 0
	rt, err := Open(cfg)
	require.NoError(t, err)
	defer rt.Close()

	assert.NotNil(t, rt.Heap())
	assert.Nil(t, rt.Arena())
}

func TestOpen_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.MemoryLimit = 1 << 20
	_, err := Open(cfg)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestOpen_HeapTooSmall(t *testing.T) {
	cfg := testConfig()
	cfg.HeapSize = 16
	_, err := Open(cfg)
	require.Error(t, err)
}

func TestRuntime_Tables(t *testing.T) {
	metrics := &BasicMetricsCollector{}
	rt, err := Open(testConfig(), WithMetricsCollector(metrics))
	require.NoError(t, err)
	defer rt.Close()

	ht, err := swiss.New[uint64, uint64](16, rt.Heap(), rt.TableOptions()...)
	require.NoError(t, err)
	for i := uint64(0); i < 1000; i++ {
		ht.Insert(i, i)
	}

	mark := rt.Arena().Mark()
	at, err := swiss.New[uint32, uint32](16, rt.Arena(), rt.TableOptions()...)
	require.NoError(t, err)
	for i := uint32(0); i < 100; i++ {
		at.Insert(i, i)
	}
	at.DestroyArena()
	rt.Arena().CutTo(mark)
	ht.DestroyHeap()

	stats := metrics.GetStats()
	assert.Positive(t, stats.HeapAllocs)
	assert.Equal(t, stats.HeapAllocs, stats.HeapFrees)
	assert.Equal(t, int64(0), stats.HeapBytesInUse)
	assert.Positive(t, stats.ArenaAllocs)
	assert.Equal(t, int64(1), stats.ArenaResets)
	assert.Equal(t, int64(0), stats.ArenaBytesInUse)
	assert.Equal(t, int64(2048), stats.LargestCapacity)
	assert.Positive(t, stats.Grows)
	assert.GreaterOrEqual(t, stats.GrantedBytes, stats.RequestedBytes)
}

func TestRuntime_Sharded(t *testing.T) {
	cfg := testConfig()
	cfg.MaxWorkers = 2
	rt, err := Open(cfg)
	require.NoError(t, err)
	defer rt.Close()

	s, err := swiss.NewSharded[uint64, uint64](4, 16, rt.Heap(), rt.TableOptions()...)
	require.NoError(t, err)
	defer s.Destroy()

	keys := make([]uint64, 10_000)
	for i := range keys {
		keys[i] = uint64(i)
	}
	require.NoError(t, s.BulkSet(context.Background(), keys, keys))
	assert.Equal(t, len(keys), s.Len())

	lim, ok := rt.WorkerLimiter().(*resource.Controller)
	require.True(t, ok)
	assert.Equal(t, 2, lim.MaxWorkers())
}

func TestRuntime_Logging(t *testing.T) {
	var buf bytes.Buffer
	rt, err := Open(testConfig(), WithLogger(newJSONLogger(&buf, slog.LevelInfo)))
	require.NoError(t, err)
	require.NoError(t, rt.Close())

	out := buf.String()
	assert.Contains(t, out, `"msg":"runtime opened"`)
	assert.Contains(t, out, `"heap":"4.0 MiB"`)
	assert.Contains(t, out, `"memory_limit":"unlimited"`)
	assert.Contains(t, out, `"msg":"runtime closed"`)
}

func TestRuntime_FatalIsLogged(t *testing.T) {
	var buf bytes.Buffer
	rt, err := Open(testConfig(), WithLogger(newTextLogger(&buf, slog.LevelInfo)))
	require.NoError(t, err)
	defer rt.Close()

	require.Panics(t, func() {
		rt.Arena().Alloc(2<<20, 16)
	})
	assert.Contains(t, buf.String(), "invariant violated")
	assert.Contains(t, buf.String(), "family=arena")
}
