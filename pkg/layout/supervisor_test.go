package layout

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	herrors "github.com/cafour/helveg-sub001/pkg/errors"
	"github.com/cafour/helveg-sub001/pkg/forceatlas2"
	"github.com/cafour/helveg-sub001/pkg/layout/protocol"
	"github.com/cafour/helveg-sub001/pkg/multigraph"
)

const waitTimeout = 5 * time.Second

// recorder collects supervisor events.
type recorder struct {
	mu       sync.Mutex
	started  []StartedEvent
	stopped  []StoppedEvent
	updates  int
	progress int

	startedCh chan StartedEvent
	stoppedCh chan StoppedEvent
	updateCh  chan UpdateEvent
}

func record(s *Supervisor) *recorder {
	r := &recorder{
		startedCh: make(chan StartedEvent, 64),
		stoppedCh: make(chan StoppedEvent, 64),
		updateCh:  make(chan UpdateEvent, 1024),
	}
	s.OnStarted(func(e StartedEvent) {
		r.mu.Lock()
		r.started = append(r.started, e)
		r.mu.Unlock()
		r.startedCh <- e
	})
	s.OnStopped(func(e StoppedEvent) {
		r.mu.Lock()
		r.stopped = append(r.stopped, e)
		r.mu.Unlock()
		r.stoppedCh <- e
	})
	s.OnUpdate(func(e UpdateEvent) {
		r.mu.Lock()
		r.updates++
		r.mu.Unlock()
		select {
		case r.updateCh <- e:
		default:
		}
	})
	s.OnProgress(func(ProgressEvent) {
		r.mu.Lock()
		r.progress++
		r.mu.Unlock()
	})
	return r
}

func (r *recorder) stops() []StoppedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]StoppedEvent(nil), r.stopped...)
}

func (r *recorder) starts() []StartedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]StartedEvent(nil), r.started...)
}

func (r *recorder) waitStopped(t *testing.T) StoppedEvent {
	t.Helper()
	select {
	case e := <-r.stoppedCh:
		return e
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for stopped event")
	}
	return StoppedEvent{}
}

func (r *recorder) waitUpdateFrom(t *testing.T, session string) UpdateEvent {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case e := <-r.updateCh:
			if e.Session == session {
				return e
			}
		case <-deadline:
			t.Fatalf("timed out waiting for update from %s", session)
			return UpdateEvent{}
		}
	}
}

func (r *recorder) waitUpdate(t *testing.T) UpdateEvent {
	t.Helper()
	select {
	case e := <-r.updateCh:
		return e
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for update event")
	}
	return UpdateEvent{}
}

// star builds a hub with n leaves spread around it.
func star(t *testing.T, n int) *multigraph.Multigraph {
	t.Helper()
	g := multigraph.New()
	if err := g.AddRelation(multigraph.Relation{Name: "declares", Transitive: true}); err != nil {
		t.Fatal(err)
	}
	g.AddNode(multigraph.Node{ID: "hub", X: 1, Y: 1})
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("leaf%d", i)
		g.AddNode(multigraph.Node{ID: id, X: float64(10 + i), Y: float64(i * i % 13)})
		g.AddEdge(multigraph.Edge{Relation: "declares", Src: "hub", Dst: id})
	}
	g.SetMainRelation("declares")
	return g
}

func continuousSettings() forceatlas2.Settings {
	s := forceatlas2.DefaultSettings()
	s.AutoStopAverageTraction = 0
	return s
}

func newSupervisor(t *testing.T, g *multigraph.Multigraph, opts Options) *Supervisor {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	s, err := NewSupervisor(g, opts)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Kill)
	return s
}

func TestStartRejectsInvalidSettings(t *testing.T) {
	bad := forceatlas2.DefaultSettings()
	bad.Gravity = -1
	s := newSupervisor(t, star(t, 3), Options{Settings: bad})
	r := record(s)

	err := s.Start(context.Background(), Continuous)
	if !herrors.Is(err, herrors.ErrCodeInvalidSettings) {
		t.Fatalf("Start() = %v, want %v", err, herrors.ErrCodeInvalidSettings)
	}
	s.Sync()
	if st := s.Status(); st.Running || st.Alive {
		t.Errorf("Status() = %+v, want nothing spawned", st)
	}
	if len(r.starts()) != 0 {
		t.Error("started event emitted for rejected start")
	}
}

func TestSetSettingsValidates(t *testing.T) {
	s := newSupervisor(t, star(t, 1), Options{})
	bad := forceatlas2.DefaultSettings()
	bad.SlowDown = 0
	if err := s.SetSettings(bad); !herrors.Is(err, herrors.ErrCodeInvalidSettings) {
		t.Errorf("SetSettings() = %v, want %v", err, herrors.ErrCodeInvalidSettings)
	}
	if s.Settings().SlowDown != 1 {
		t.Error("invalid settings were stored")
	}
}

func TestStartThenImmediateStop(t *testing.T) {
	s := newSupervisor(t, star(t, 10), Options{Settings: continuousSettings()})
	r := record(s)
	ctx := context.Background()

	if err := s.Start(ctx, Continuous); err != nil {
		t.Fatal(err)
	}
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop() = %v", err)
	}
	s.Sync()

	st := s.Status()
	if st.Running || st.Alive {
		t.Errorf("Status() = %+v, want stopped with no live context", st)
	}
	if stops := r.stops(); len(stops) != 1 {
		t.Fatalf("stopped events = %d, want 1", len(stops))
	}
}

func TestConcurrentStopsShareOneRequest(t *testing.T) {
	s := newSupervisor(t, star(t, 10), Options{Settings: continuousSettings()})
	r := record(s)
	ctx := context.Background()
	s.Start(ctx, Continuous)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Stop(ctx); err != nil {
				t.Errorf("Stop() = %v", err)
			}
		}()
	}
	wg.Wait()
	s.Sync()

	if stops := r.stops(); len(stops) != 1 {
		t.Errorf("stopped events = %d, want 1", len(stops))
	}
	if s.IsRunning() {
		t.Error("still running after Stop")
	}
}

func TestStopWithoutRun(t *testing.T) {
	s := newSupervisor(t, star(t, 2), Options{})
	if err := s.Stop(context.Background()); err != nil {
		t.Errorf("Stop() = %v, want nil", err)
	}
}

func TestStartSameModeIsNoop(t *testing.T) {
	s := newSupervisor(t, star(t, 5), Options{Settings: continuousSettings()})
	r := record(s)
	ctx := context.Background()

	s.Start(ctx, Continuous)
	session := s.Status().Session
	s.Start(ctx, Continuous)
	s.Sync()

	if got := len(r.starts()); got != 1 {
		t.Errorf("started events = %d, want 1", got)
	}
	if s.Status().Session != session {
		t.Error("second Start replaced the session")
	}
	s.Stop(ctx)
}

func TestStartOtherModeStopsFirst(t *testing.T) {
	s := newSupervisor(t, star(t, 5), Options{Settings: continuousSettings(), SingleIterations: 3})
	r := record(s)
	ctx := context.Background()

	s.Start(ctx, Continuous)
	if err := s.Start(ctx, SingleIteration); err != nil {
		t.Fatal(err)
	}

	first := r.waitStopped(t)
	if first.Reason != StopExplicit {
		t.Errorf("first stop = %v, want %v", first.Reason, StopExplicit)
	}
	second := r.waitStopped(t)
	if second.Reason != StopIterationLimitReached {
		t.Errorf("second stop = %v, want %v", second.Reason, StopIterationLimitReached)
	}
	starts := r.starts()
	if len(starts) != 2 || starts[1].Mode != SingleIteration {
		t.Errorf("starts = %+v, want continuous then single", starts)
	}
}

func TestSingleIterationMode(t *testing.T) {
	g := star(t, 6)
	before, _ := g.Node("leaf0")
	s := newSupervisor(t, g, Options{SingleIterations: 25})
	r := record(s)

	if err := s.Start(context.Background(), SingleIteration); err != nil {
		t.Fatal(err)
	}
	e := r.waitStopped(t)
	if e.Reason != StopIterationLimitReached || e.Iterations != 25 {
		t.Errorf("stopped = %+v, want iterationLimitReached after 25", e)
	}
	after, _ := g.Node("leaf0")
	if before.X == after.X && before.Y == after.Y {
		t.Error("positions were not written back")
	}
	if s.Status().Alive {
		t.Error("context still alive after run ended")
	}
}

func TestAutoStop(t *testing.T) {
	settings := forceatlas2.DefaultSettings()
	settings.AutoStopAverageTraction = 1e12
	s := newSupervisor(t, star(t, 4), Options{Settings: settings})
	r := record(s)

	s.Start(context.Background(), Continuous)
	if e := r.waitStopped(t); e.Reason != StopAutoStop {
		t.Errorf("reason = %v, want %v", e.Reason, StopAutoStop)
	}
}

func TestFixedNodeKeepsModelPosition(t *testing.T) {
	g := star(t, 6)
	g.SetFixed("leaf2", true)
	pinned, _ := g.Node("leaf2")
	s := newSupervisor(t, g, Options{SingleIterations: 50})
	r := record(s)

	s.Start(context.Background(), SingleIteration)
	r.waitStopped(t)

	got, _ := g.Node("leaf2")
	if got.X != pinned.X || got.Y != pinned.Y {
		t.Errorf("pinned node moved from (%v, %v) to (%v, %v)", pinned.X, pinned.Y, got.X, got.Y)
	}
}

func TestMutationRestartsContinuousRun(t *testing.T) {
	g := star(t, 8)
	seed, _ := g.Node("leaf3")
	s := newSupervisor(t, g, Options{Settings: continuousSettings(), ReportInterval: 1})
	r := record(s)
	ctx := context.Background()

	if err := s.Start(ctx, Continuous); err != nil {
		t.Fatal(err)
	}
	r.waitUpdate(t)
	oldSession := s.Status().Session

	if err := g.AddNode(multigraph.Node{ID: "late", X: -5, Y: -5}); err != nil {
		t.Fatal(err)
	}
	s.Sync()

	st := s.Status()
	if !st.Running || !st.Alive {
		t.Fatalf("Status() = %+v, want running with a live context", st)
	}
	if st.Session == oldSession {
		t.Error("session was not replaced after mutation")
	}
	if st.Mode != Continuous.String() {
		t.Errorf("mode = %s, want continuous", st.Mode)
	}
	starts := r.starts()
	if len(starts) != 2 || !starts[1].Resumed || starts[1].Mode != Continuous {
		t.Errorf("starts = %+v, want a resumed continuous second start", starts)
	}
	if len(r.stops()) != 0 {
		t.Error("mutation emitted a stopped event")
	}

	// Positions written by the first context are carried forward, and the
	// new context lays out the added node too.
	r.waitUpdateFrom(t, st.Session)
	if moved, _ := g.Node("leaf3"); moved.X == seed.X && moved.Y == seed.Y {
		t.Error("leaf3 never left its initial position")
	}
	if late, _ := g.Node("late"); late.X == -5 && late.Y == -5 {
		t.Error("added node was not laid out")
	}

	if err := s.Stop(ctx); err != nil {
		t.Fatal(err)
	}
	s.Sync()
	if st := s.Status(); st.Running || st.Alive {
		t.Errorf("Status() after stop = %+v", st)
	}
	if stops := r.stops(); len(stops) != 1 || stops[0].Session != st.Session {
		t.Errorf("stops = %+v, want one stop of the resumed session", stops)
	}
}

func TestHiddenChangeDoesNotRestart(t *testing.T) {
	g := star(t, 4)
	s := newSupervisor(t, g, Options{Settings: continuousSettings()})
	r := record(s)
	ctx := context.Background()
	s.Start(ctx, Continuous)
	session := s.Status().Session

	g.AddNode(multigraph.Node{ID: "invisible", Hidden: true})
	g.SetFixed("leaf0", true)
	s.Sync()

	if s.Status().Session != session {
		t.Error("non-structural change restarted the run")
	}
	if len(r.starts()) != 1 {
		t.Errorf("started events = %d, want 1", len(r.starts()))
	}
	s.Stop(ctx)
}

func TestMutationWhileIdleDoesNotStart(t *testing.T) {
	g := star(t, 3)
	s := newSupervisor(t, g, Options{})
	r := record(s)

	g.AddNode(multigraph.Node{ID: "x"})
	g.CollapseNode("hub", "")
	s.Sync()

	if s.IsRunning() || s.Status().Alive {
		t.Error("idle supervisor started on mutation")
	}
	if len(r.starts()) != 0 {
		t.Error("started event emitted")
	}
}

func TestKillIsTerminal(t *testing.T) {
	g := star(t, 6)
	s := newSupervisor(t, g, Options{Settings: continuousSettings()})
	r := record(s)
	ctx := context.Background()

	s.Start(ctx, Continuous)
	s.Kill()
	s.Kill()
	s.Sync()

	stops := r.stops()
	if len(stops) != 1 || stops[0].Reason != StopKilled {
		t.Fatalf("stops = %+v, want one killed", stops)
	}
	if err := s.Start(ctx, Continuous); err != nil {
		t.Errorf("Start() after Kill = %v, want nil", err)
	}
	g.AddNode(multigraph.Node{ID: "after"})
	if st := s.Status(); st.Running || st.Alive || !st.Killed {
		t.Errorf("Status() = %+v, want killed and idle", st)
	}
	if err := s.Stop(ctx); err != nil {
		t.Errorf("Stop() after Kill = %v", err)
	}
}

func TestStopTimeoutStillStops(t *testing.T) {
	s := newSupervisor(t, star(t, 30), Options{Settings: continuousSettings(), StopTimeout: time.Nanosecond})
	r := record(s)
	ctx := context.Background()

	s.Start(ctx, Continuous)
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop() = %v, want nil even on timeout", err)
	}
	if st := s.Status(); st.Running || st.Alive {
		t.Errorf("Status() = %+v, want stopped", st)
	}

	// Late messages from the killed worker must not produce a second stop.
	time.Sleep(50 * time.Millisecond)
	s.Sync()
	stops := r.stops()
	if len(stops) != 1 {
		t.Fatalf("stopped events = %d, want 1", len(stops))
	}
	if reason := stops[0].Reason; reason != StopTimeout && reason != StopExplicit {
		t.Errorf("reason = %v, want timeout or explicit", reason)
	}
}

func TestRestartAfterStop(t *testing.T) {
	s := newSupervisor(t, star(t, 5), Options{Settings: continuousSettings()})
	r := record(s)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := s.Start(ctx, Continuous); err != nil {
			t.Fatal(err)
		}
		if err := s.Stop(ctx); err != nil {
			t.Fatal(err)
		}
	}
	s.Sync()
	if got := len(r.stops()); got != 3 {
		t.Errorf("stopped events = %d, want 3", got)
	}
}

func TestEngineOperations(t *testing.T) {
	g := star(t, 3)
	e, err := NewEngine(g, Options{Logger: log.New(io.Discard)})
	if err != nil {
		t.Fatal(err)
	}
	defer e.Kill()
	ctx := context.Background()

	if err := e.ToggleNode(ctx, "hub"); err != nil {
		t.Fatal(err)
	}
	if snap := e.Snapshot(); snap.Nodes["leaf0"].Visible {
		t.Error("leaf0 visible after toggle")
	}
	if err := e.ExpandNode(ctx, "hub", multigraph.ExpandOptions{Shallow: true}); err != nil {
		t.Fatal(err)
	}
	if roots := e.FindRoots("declares"); len(roots) != 1 || roots[0] != "hub" {
		t.Errorf("FindRoots() = %v, want [hub]", roots)
	}
	if _, err := e.Cut(ctx, "missing", multigraph.CutOptions{}); !herrors.IsNotFound(err) {
		t.Errorf("Cut(missing) = %v, want not found", err)
	}
	removed, err := e.Cut(ctx, "hub", multigraph.CutOptions{IsTransitive: true})
	if err != nil || len(removed) != 4 {
		t.Errorf("Cut(hub) = %v, %v; want 4 removed", removed, err)
	}
}

func TestSingleIterationReportsEveryInterval(t *testing.T) {
	s := newSupervisor(t, star(t, 5), Options{ReportInterval: 10, SingleIterations: 50})
	r := record(s)

	s.Start(context.Background(), SingleIteration)
	if e := r.waitStopped(t); e.Reason != StopIterationLimitReached {
		t.Fatalf("reason = %v, want %v", e.Reason, StopIterationLimitReached)
	}
	s.Sync()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.progress != 5 {
		t.Errorf("progress events = %d, want 5", r.progress)
	}
}

func TestStopFromEventHandler(t *testing.T) {
	timeout := 2 * time.Second
	s := newSupervisor(t, star(t, 8), Options{Settings: continuousSettings(), ReportInterval: 1, StopTimeout: timeout})
	r := record(s)

	var once sync.Once
	took := make(chan time.Duration, 1)
	s.OnProgress(func(ProgressEvent) {
		once.Do(func() {
			start := time.Now()
			if err := s.Stop(context.Background()); err != nil {
				t.Errorf("Stop() = %v", err)
			}
			took <- time.Since(start)
		})
	})

	s.Start(context.Background(), Continuous)
	e := r.waitStopped(t)
	if e.Reason != StopExplicit {
		t.Errorf("reason = %v, want %v", e.Reason, StopExplicit)
	}
	if d := <-took; d >= timeout {
		t.Errorf("Stop() from handler took %v, want less than %v", d, timeout)
	}
	if s.Status().Alive {
		t.Error("context still alive after stop")
	}
}

// inject hands msg to the supervisor as if the current worker had sent it.
func inject(s *Supervisor, msg protocol.Message) {
	s.mu.Lock()
	w, gen := s.worker, s.gen
	s.mu.Unlock()
	s.handle(w, gen, msg)
}

func TestAbnormalStops(t *testing.T) {
	tests := []struct {
		name string
		msg  protocol.Message
		code herrors.Code
	}{
		{"fault", protocol.Fault{Err: herrors.New(herrors.ErrCodeAbnormalStop, "iteration failed")}, herrors.ErrCodeAbnormalStop},
		{"update length mismatch", protocol.Update{Nodes: make([]float64, forceatlas2.PPN+1)}, herrors.ErrCodeProtocolViolation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSupervisor(t, star(t, 4), Options{Settings: continuousSettings()})
			r := record(s)
			s.Start(context.Background(), Continuous)

			inject(s, tt.msg)

			e := r.waitStopped(t)
			if e.Reason != StopAbnormal {
				t.Errorf("reason = %v, want %v", e.Reason, StopAbnormal)
			}
			if !herrors.Is(e.Err, tt.code) {
				t.Errorf("Err = %v, want code %v", e.Err, tt.code)
			}
			if st := s.Status(); st.Running || st.Alive {
				t.Errorf("Status() = %+v, want idle with no worker", st)
			}

			time.Sleep(20 * time.Millisecond)
			s.Sync()
			if got := len(r.stops()); got != 1 {
				t.Errorf("stopped events = %d, want 1", got)
			}
		})
	}
}

func TestProgressRate(t *testing.T) {
	s := newSupervisor(t, star(t, 6), Options{Settings: continuousSettings(), ReportInterval: 5})
	progress := make(chan ProgressEvent, 64)
	s.OnProgress(func(e ProgressEvent) {
		select {
		case progress <- e:
		default:
		}
	})

	ctx := context.Background()
	s.Start(ctx, Continuous)
	defer s.Stop(ctx)

	select {
	case e := <-progress:
		if e.Iterations != 5 {
			t.Errorf("Iterations = %d, want 5", e.Iterations)
		}
		if e.IterationsPerSecond <= 0 {
			t.Errorf("IterationsPerSecond = %v, want > 0", e.IterationsPerSecond)
		}
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for progress")
	}
}
