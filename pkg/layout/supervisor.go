package layout

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	herrors "github.com/cafour/helveg-sub001/pkg/errors"
	"github.com/cafour/helveg-sub001/pkg/event"
	"github.com/cafour/helveg-sub001/pkg/forceatlas2"
	"github.com/cafour/helveg-sub001/pkg/layout/protocol"
	"github.com/cafour/helveg-sub001/pkg/layout/worker"
	"github.com/cafour/helveg-sub001/pkg/multigraph"
	"github.com/cafour/helveg-sub001/pkg/observability"
)

// Supervisor runs the force-directed layout of a graph model on a background
// worker and writes the resulting positions back into the model.
//
// The supervisor owns at most one worker at a time. A worker is spawned
// lazily on Start and released when its run ends, when the visible part of
// the model changes, or on Kill. A run interrupted by a model change is
// resumed on a fresh worker from the positions last written to the model.
//
// Start and Kill return immediately; their effects are observed through
// events. Stop blocks until the worker acknowledges or StopTimeout elapses.
//
// Events are delivered in the order they occur on a dispatch goroutine owned
// by the supervisor, never on the goroutine that reads worker messages and
// never with the supervisor lock held. Handlers may therefore call back into
// the supervisor, including Stop. Use Sync to wait for delivery.
type Supervisor struct {
	graph  *multigraph.Multigraph
	opts   Options
	logger *log.Logger

	mu       sync.Mutex
	settings forceatlas2.Settings
	worker   *worker.Worker
	gen      uint64
	session  string
	ids      []string

	running    bool
	mode       Mode
	stopWait   chan struct{}
	killed     bool
	runStart   time.Time
	lastReport time.Time
	lastIters  int
	iterations int

	unsubscribe func()

	events   event.Queue
	started  event.Signal[StartedEvent]
	progress event.Signal[ProgressEvent]
	updated  event.Signal[UpdateEvent]
	stopped  event.Signal[StoppedEvent]
}

// NewSupervisor creates a supervisor for g and subscribes it to model
// changes. Call Kill to release it.
func NewSupervisor(g *multigraph.Multigraph, opts Options) (*Supervisor, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	s := &Supervisor{
		graph:    g,
		opts:     opts,
		logger:   opts.Logger,
		settings: opts.Settings,
	}
	s.unsubscribe = g.OnChange(s.onGraphChange)
	return s, nil
}

// OnStarted subscribes to run starts.
func (s *Supervisor) OnStarted(fn func(StartedEvent)) func() { return s.started.Subscribe(fn) }

// OnProgress subscribes to progress reports.
func (s *Supervisor) OnProgress(fn func(ProgressEvent)) func() { return s.progress.Subscribe(fn) }

// OnUpdate subscribes to position write-backs.
func (s *Supervisor) OnUpdate(fn func(UpdateEvent)) func() { return s.updated.Subscribe(fn) }

// OnStopped subscribes to run ends.
func (s *Supervisor) OnStopped(fn func(StoppedEvent)) func() { return s.stopped.Subscribe(fn) }

// Sync blocks until every event produced before the call has been delivered
// to its handlers. It must not be called from an event handler.
func (s *Supervisor) Sync() { s.events.Wait() }

// Settings returns the settings used for the next run.
func (s *Supervisor) Settings() forceatlas2.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// SetSettings replaces the settings used by subsequent runs. A running
// layout keeps its settings until it is restarted.
func (s *Supervisor) SetSettings(settings forceatlas2.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()
	return nil
}

// Status describes the supervisor at a point in time.
type Status struct {
	Running    bool   `json:"running"`
	Mode       string `json:"mode"`
	Session    string `json:"session,omitempty"`
	Alive      bool   `json:"alive"` // a background worker exists
	Iterations int    `json:"iterations"`
	Killed     bool   `json:"killed"`
}

// Status returns the current state.
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Running:    s.running,
		Mode:       s.mode.String(),
		Session:    s.session,
		Alive:      s.worker != nil,
		Iterations: s.iterations,
		Killed:     s.killed,
	}
}

// IsRunning reports whether a run is in progress.
func (s *Supervisor) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Start begins a run in the given mode. Invalid settings are reported
// before anything is spawned. Starting the mode that is already running is
// a no-op; starting the other mode stops the current run first.
func (s *Supervisor) Start(ctx context.Context, mode Mode) error {
	if err := s.Settings().Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.killed || (s.running && s.mode == mode) {
		s.mu.Unlock()
		return nil
	}
	if s.running {
		s.mu.Unlock()
		if err := s.Stop(ctx); err != nil {
			return err
		}
		s.mu.Lock()
		if s.killed || s.running {
			s.mu.Unlock()
			return nil
		}
	}
	s.startLocked(mode, false)
	s.mu.Unlock()
	return nil
}

// startLocked begins a run and queues its started event.
func (s *Supervisor) startLocked(mode Mode, resumed bool) {
	view := s.graph.Visible(s.opts.Relations)
	nodes, edges, ids := Pack(view)

	if s.worker == nil || !slices.Equal(ids, s.ids) {
		s.releaseLocked("respawn")
		s.spawnLocked(ids, edges)
	}

	iterations := 0
	if mode == SingleIteration {
		iterations = s.opts.SingleIterations
	}
	s.worker.Send(protocol.Start{
		Settings:       s.settings,
		Nodes:          nodes,
		Iterations:     iterations,
		ReportInterval: s.opts.ReportInterval,
	})

	now := time.Now()
	s.running = true
	s.mode = mode
	s.runStart, s.lastReport = now, now
	s.lastIters, s.iterations = 0, 0

	ev := StartedEvent{Session: s.session, Mode: mode, Resumed: resumed}
	s.logger.Debug("layout started", "session", short(s.session), "mode", mode, "nodes", len(ids), "edges", forceatlas2.EdgeCount(edges), "resumed", resumed)
	s.events.Post(func() {
		observability.Layout().OnLayoutStart(context.Background(), mode.String(), len(ids), forceatlas2.EdgeCount(edges))
		s.started.Emit(ev)
	})
}

func (s *Supervisor) spawnLocked(ids []string, edges []float64) {
	s.gen++
	s.session = uuid.NewString()
	s.ids = ids
	w := worker.Spawn(context.Background(), s.logger)
	s.worker = w
	w.Send(protocol.Init{Edges: edges})
	observability.Layout().OnContextSpawn(context.Background())
	go s.pump(w, s.gen)
}

// releaseLocked kills the current worker, if any. Messages it may still
// produce are discarded by the generation check in handle.
func (s *Supervisor) releaseLocked(reason string) {
	if s.worker == nil {
		return
	}
	s.worker.Kill()
	s.worker = nil
	s.gen++
	observability.Layout().OnContextKill(context.Background(), reason)
	s.logger.Debug("layout context released", "session", short(s.session), "reason", reason)
}

// Stop ends the current run and waits until the worker has handed back its
// final positions. If the worker does not answer within StopTimeout it is
// killed; Stop still returns nil in that case. Concurrent calls share one
// stop request.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.killed || !s.running {
		s.mu.Unlock()
		return nil
	}
	if s.stopWait == nil {
		s.stopWait = make(chan struct{})
		s.worker.Send(protocol.Stop{})
	}
	wait := s.stopWait
	s.mu.Unlock()

	timer := time.NewTimer(s.opts.StopTimeout)
	defer timer.Stop()

	select {
	case <-wait:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	s.mu.Lock()
	if s.stopWait != wait {
		// Acknowledged while the timer fired.
		s.mu.Unlock()
		return nil
	}
	s.logger.Warn("layout stop timed out, killing context", "session", short(s.session), "timeout", s.opts.StopTimeout)
	s.releaseLocked("timeout")
	s.endRunLocked(StopTimeout, nil)
	s.mu.Unlock()
	return nil
}

// Kill tears everything down immediately. The supervisor detaches from the
// model and ignores all further calls.
func (s *Supervisor) Kill() {
	s.mu.Lock()
	if s.killed {
		s.mu.Unlock()
		return
	}
	s.killed = true
	s.releaseLocked("killed")
	s.endRunLocked(StopKilled, nil)
	unsubscribe := s.unsubscribe
	s.mu.Unlock()

	unsubscribe()
}

// endRunLocked marks the run as finished, resolves a pending Stop and
// queues the stopped event. Nothing is queued if no run was in progress, so
// each run reports exactly one stop.
func (s *Supervisor) endRunLocked(reason StopReason, err error) {
	if s.stopWait != nil {
		close(s.stopWait)
		s.stopWait = nil
	}
	if !s.running {
		return
	}
	s.running = false
	ev := StoppedEvent{Session: s.session, Reason: reason, Iterations: s.iterations, Err: err}
	elapsed := time.Since(s.runStart)
	s.logger.Debug("layout stopped", "session", short(s.session), "reason", reason, "iterations", s.iterations, "elapsed", elapsed.Round(time.Millisecond))
	s.events.Post(func() {
		observability.Layout().OnLayoutStop(context.Background(), reason.String(), ev.Iterations, elapsed)
		s.stopped.Emit(ev)
	})
}

// pump forwards worker messages until the worker exits.
func (s *Supervisor) pump(w *worker.Worker, gen uint64) {
	for msg := range w.Out() {
		s.handle(w, gen, msg)
	}

	s.mu.Lock()
	if s.gen != gen || s.worker != w {
		s.mu.Unlock()
		return
	}
	// The worker exited on its own without a fault message.
	s.logger.Error("layout context exited unexpectedly", "session", short(s.session))
	s.releaseLocked("exited")
	s.endRunLocked(StopAbnormal, nil)
	s.mu.Unlock()
}

func (s *Supervisor) handle(w *worker.Worker, gen uint64, msg protocol.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || s.worker != w {
		return
	}

	switch m := msg.(type) {
	case protocol.Progress:
		now := time.Now()
		ips := 0.0
		if dt := now.Sub(s.lastReport).Seconds(); dt > 0 {
			ips = float64(m.Iterations-s.lastIters) / dt
		}
		s.lastReport, s.lastIters, s.iterations = now, m.Iterations, m.Iterations
		ev := ProgressEvent{Session: s.session, Iterations: m.Iterations, IterationsPerSecond: ips, Metadata: m.Metadata}
		s.events.Post(func() {
			observability.Layout().OnLayoutProgress(context.Background(), m.Iterations, ips, m.Metadata.AverageTraction())
			s.progress.Emit(ev)
		})

	case protocol.Update:
		if len(m.Nodes) != len(s.ids)*forceatlas2.PPN {
			s.logger.Error("layout update length mismatch", "session", short(s.session), "got", len(m.Nodes), "want", len(s.ids)*forceatlas2.PPN)
			s.releaseLocked("protocolViolation")
			s.endRunLocked(StopAbnormal, herrors.New(herrors.ErrCodeProtocolViolation, "update buffer length mismatch"))
			return
		}
		Unpack(s.graph, s.ids, m.Nodes)
		ev := UpdateEvent{Session: s.session, Nodes: len(s.ids)}
		s.events.Post(func() { s.updated.Emit(ev) })

	case protocol.Stopped:
		if m.Iterations > 0 {
			s.iterations = m.Iterations
		}
		s.releaseLocked("stopped")
		s.endRunLocked(fromProtocol(m.Reason), nil)

	case protocol.Fault:
		s.logger.Error("layout context faulted", "session", short(s.session), "err", m.Err)
		s.releaseLocked("fault")
		s.endRunLocked(StopAbnormal, m.Err)
	}
}

// onGraphChange restarts the background context when the visible subset of
// the model changes. A running layout resumes in the same mode from the
// positions already written back; a pending Stop is acknowledged instead.
func (s *Supervisor) onGraphChange(c multigraph.Change) {
	observability.Graph().OnChange(context.Background(), c.Kind.String(), c.Structural())
	if !c.Structural() {
		return
	}

	s.mu.Lock()
	if s.killed || s.worker == nil {
		s.mu.Unlock()
		return
	}
	wasRunning, mode := s.running, s.mode
	s.releaseLocked("mutation")

	switch {
	case s.stopWait != nil:
		s.endRunLocked(StopExplicit, nil)
	case wasRunning:
		s.logger.Debug("graph changed, restarting layout", "change", c.Kind)
		s.startLocked(mode, true)
	}
	s.mu.Unlock()
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
