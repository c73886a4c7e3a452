package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Layout hooks
	l := NoopLayoutHooks{}
	l.OnLayoutStart(ctx, "continuous", 10, 9)
	l.OnLayoutProgress(ctx, 100, 2500, 0.4)
	l.OnLayoutStop(ctx, "autoStop", 100, time.Second)
	l.OnContextSpawn(ctx)
	l.OnContextKill(ctx, "mutation")

	// Graph hooks
	g := NoopGraphHooks{}
	g.OnOperation(ctx, "collapse", time.Millisecond, nil)
	g.OnChange(ctx, "nodesAdded", true)

	// Pipeline hooks
	p := NoopPipelineHooks{}
	p.OnLoadStart(ctx, "graph.json")
	p.OnLoadComplete(ctx, "graph.json", 100, time.Second, nil)
	p.OnLayoutStart(ctx, 100)
	p.OnLayoutComplete(ctx, 500, time.Second, nil)
	p.OnRenderStart(ctx, []string{"svg"})
	p.OnRenderComplete(ctx, []string{"svg"}, time.Second, nil)

	// Cache hooks
	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "positions")
	c.OnCacheMiss(ctx, "positions")
	c.OnCacheSet(ctx, "positions", 1024)

	// HTTP hooks
	h := NoopHTTPHooks{}
	h.OnResponse(ctx, "GET", "/snapshot", 200, time.Second)
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	// Verify defaults are noop
	if _, ok := Layout().(NoopLayoutHooks); !ok {
		t.Error("Layout() should return NoopLayoutHooks by default")
	}
	if _, ok := Graph().(NoopGraphHooks); !ok {
		t.Error("Graph() should return NoopGraphHooks by default")
	}
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Pipeline() should return NoopPipelineHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}

	customLayout := &testLayoutHooks{}
	SetLayoutHooks(customLayout)
	if Layout() != customLayout {
		t.Error("SetLayoutHooks should set custom hooks")
	}

	customPipeline := &testPipelineHooks{}
	SetPipelineHooks(customPipeline)
	if Pipeline() != customPipeline {
		t.Error("SetPipelineHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	// Reset and verify
	Reset()
	if _, ok := Layout().(NoopLayoutHooks); !ok {
		t.Error("Reset() should restore NoopLayoutHooks")
	}
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Reset() should restore NoopPipelineHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testLayoutHooks{}
	SetLayoutHooks(custom)

	// Setting nil should be ignored
	SetLayoutHooks(nil)

	if Layout() != custom {
		t.Error("SetLayoutHooks(nil) should be ignored")
	}

	Reset()
}

func TestPrometheusHooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg)
	ctx := context.Background()

	p.OnLayoutStart(ctx, "continuous", 3, 2)
	if got := testutil.ToFloat64(p.LayoutRunning); got != 1 {
		t.Errorf("running = %v, want 1", got)
	}
	p.OnLayoutProgress(ctx, 50, 1000, 0.5)
	p.OnLayoutProgress(ctx, 50, 1200, 0.3)
	p.OnLayoutStop(ctx, "explicit", 100, time.Second)

	if got := testutil.ToFloat64(p.LayoutIterations); got != 100 {
		t.Errorf("iterations = %v, want 100", got)
	}
	if got := testutil.ToFloat64(p.AverageTraction); got != 0.3 {
		t.Errorf("average traction = %v, want 0.3", got)
	}
	if got := testutil.ToFloat64(p.LayoutRunning); got != 0 {
		t.Errorf("running = %v, want 0", got)
	}
	if got := testutil.ToFloat64(p.LayoutStops.WithLabelValues("explicit")); got != 1 {
		t.Errorf("stops{explicit} = %v, want 1", got)
	}

	p.OnOperation(ctx, "cut", time.Millisecond, errors.New("boom"))
	if got := testutil.ToFloat64(p.GraphOperations.WithLabelValues("cut", "error")); got != 1 {
		t.Errorf("operations{cut,error} = %v, want 1", got)
	}

	p.OnCacheSet(ctx, "positions", 512)
	if got := testutil.ToFloat64(p.CacheBytes); got != 512 {
		t.Errorf("cache bytes = %v, want 512", got)
	}
}

func TestInstall(t *testing.T) {
	defer Reset()
	p := NewPrometheus(prometheus.NewRegistry())
	Install(p)

	if Layout() != LayoutHooks(p) {
		t.Error("Install should register layout hooks")
	}
	Pipeline().OnRenderComplete(context.Background(), []string{"svg"}, time.Second, errors.New("boom"))
	if got := testutil.ToFloat64(p.PipelineErrors.WithLabelValues("render")); got != 1 {
		t.Errorf("pipeline errors{render} = %v, want 1", got)
	}
}

// Test implementations
type testLayoutHooks struct{ NoopLayoutHooks }
type testPipelineHooks struct{ NoopPipelineHooks }
type testCacheHooks struct{ NoopCacheHooks }
