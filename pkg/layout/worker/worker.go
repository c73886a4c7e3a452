// Package worker runs ForceAtlas2 iterations on a background goroutine.
//
// A worker is an isolated execution context: it owns the node and edge
// buffers it has been sent and talks to its supervisor only through
// [protocol] messages. It moves through three states:
//
//	idle --Init--> topology ready --Start--> running --(stop|auto-stop|limit)--> topology ready
//
// Any broken invariant (a Start before Init, mismatched buffer lengths, a
// panic inside the iterator) produces a single [protocol.Fault] after which
// the worker exits. Cancelling the spawn context, or calling Kill, terminates
// it immediately without a reply.
package worker

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"runtime/debug"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	herrors "github.com/cafour/helveg-sub001/pkg/errors"
	"github.com/cafour/helveg-sub001/pkg/forceatlas2"
	"github.com/cafour/helveg-sub001/pkg/layout/protocol"
)

// outboxSize bounds how far the worker can run ahead of its supervisor.
const outboxSize = 64

// Worker is the supervisor's handle on a background context.
type Worker struct {
	id     string
	in     chan protocol.Message
	out    chan protocol.Message
	cancel context.CancelFunc
	done   chan struct{}
	logger *log.Logger

	edges []float64 // owned by the run goroutine
}

// Spawn starts a worker. It runs until ctx is cancelled, Kill is called, or
// it reports a fault.
func Spawn(ctx context.Context, logger *log.Logger) *Worker {
	ctx, cancel := context.WithCancel(ctx)
	id := uuid.NewString()
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	w := &Worker{
		id:     id,
		in:     make(chan protocol.Message, 4),
		out:    make(chan protocol.Message, outboxSize),
		cancel: cancel,
		done:   make(chan struct{}),
		logger: logger.With("worker", id[:8]),
	}
	go w.run(ctx)
	return w
}

// ID returns the worker's unique identifier.
func (w *Worker) ID() string { return w.id }

// Send delivers msg to the worker. It returns false if the worker has
// already terminated. Buffers inside msg are transferred either way.
func (w *Worker) Send(msg protocol.Message) bool {
	select {
	case <-w.done:
		return false
	default:
	}
	select {
	case w.in <- msg:
		return true
	case <-w.done:
		return false
	}
}

// Out returns the channel of worker messages. It is closed when the worker
// terminates.
func (w *Worker) Out() <-chan protocol.Message { return w.out }

// Kill terminates the worker without waiting for acknowledgement.
func (w *Worker) Kill() { w.cancel() }

// Done is closed once the worker goroutine has exited.
func (w *Worker) Done() <-chan struct{} { return w.done }

func (w *Worker) run(ctx context.Context) {
	defer close(w.done)
	defer close(w.out)
	defer w.cancel()

	w.logger.Debug("worker started")
	defer w.logger.Debug("worker exited")

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-w.in:
			var err error
			switch m := msg.(type) {
			case protocol.Init:
				err = w.init(m)
			case protocol.Start:
				err = w.start(ctx, m)
			case protocol.Stop:
				// Nothing is running; acknowledge so a racing stop resolves.
				w.send(ctx, protocol.Stopped{Reason: protocol.Explicit})
			default:
				err = violation("unexpected %s message", msg.Kind())
			}
			if err != nil {
				w.logger.Error("worker fault", "err", err)
				w.send(ctx, protocol.Fault{Err: err})
				return
			}
			if ctx.Err() != nil {
				return
			}
		}
	}
}

func (w *Worker) init(m protocol.Init) error {
	if len(m.Edges)%forceatlas2.PPE != 0 {
		return violation("edge buffer has %d values, want a multiple of %d", len(m.Edges), forceatlas2.PPE)
	}
	w.edges = m.Edges
	w.logger.Debug("topology ready", "edges", forceatlas2.EdgeCount(m.Edges))
	return nil
}

func (w *Worker) start(ctx context.Context, m protocol.Start) error {
	if w.edges == nil {
		return violation("start before init")
	}
	if err := forceatlas2.CheckBuffers(m.Nodes, w.edges); err != nil {
		return err
	}
	if err := m.Settings.Validate(); err != nil {
		return err
	}
	if m.Iterations > 0 {
		return w.runBounded(ctx, m)
	}
	return w.runContinuous(ctx, m)
}

// runBounded performs exactly m.Iterations steps, reporting progress every
// ReportInterval steps and once more after the last step if it did not fall
// on an interval. A zero interval reports only at the end.
func (w *Worker) runBounded(ctx context.Context, m protocol.Start) error {
	nodes := m.Nodes
	interval := m.ReportInterval
	if interval <= 0 {
		interval = m.Iterations
	}
	var meta forceatlas2.Metadata
	for i := 1; i <= m.Iterations; i++ {
		var err error
		if meta, err = step(m.Settings, nodes, w.edges); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
		if i%interval == 0 {
			if !w.send(ctx, protocol.Progress{Iterations: i, Metadata: meta}) {
				return nil
			}
		}
	}
	if m.Iterations%interval != 0 {
		if !w.send(ctx, protocol.Progress{Iterations: m.Iterations, Metadata: meta}) {
			return nil
		}
	}
	if !w.send(ctx, protocol.Update{Nodes: nodes}) {
		return nil
	}
	w.send(ctx, protocol.Stopped{Reason: protocol.IterationLimitReached, Iterations: m.Iterations})
	return nil
}

// runContinuous iterates until a Stop message, auto-stop or cancellation.
// Progress and a copy of the positions are reported every ReportInterval
// steps; the final Update hands over the working buffer itself.
func (w *Worker) runContinuous(ctx context.Context, m protocol.Start) error {
	nodes := m.Nodes
	interval := max(m.ReportInterval, 1)
	threshold := m.Settings.AutoStopAverageTraction
	iterations := 0

	finish := func(reason protocol.StopReason, meta forceatlas2.Metadata) {
		if iterations%interval != 0 {
			if !w.send(ctx, protocol.Progress{Iterations: iterations, Metadata: meta}) {
				return
			}
		}
		if !w.send(ctx, protocol.Update{Nodes: nodes}) {
			return
		}
		w.send(ctx, protocol.Stopped{Reason: reason, Iterations: iterations})
	}

	for {
		meta, err := step(m.Settings, nodes, w.edges)
		if err != nil {
			return err
		}
		iterations++

		if iterations%interval == 0 {
			if !w.send(ctx, protocol.Progress{Iterations: iterations, Metadata: meta}) {
				return nil
			}
			if !w.send(ctx, protocol.Update{Nodes: slices.Clone(nodes)}) {
				return nil
			}
		}

		if forceatlas2.NodeCount(nodes) == 0 || (threshold > 0 && meta.AverageTraction() < threshold) {
			w.logger.Debug("auto-stop", "iterations", iterations, "traction", meta.AverageTraction())
			finish(protocol.AutoStop, meta)
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case msg := <-w.in:
			switch msg.(type) {
			case protocol.Stop:
				finish(protocol.Explicit, meta)
				return nil
			default:
				return violation("%s message while running", msg.Kind())
			}
		default:
		}
		runtime.Gosched()
	}
}

// send delivers msg unless the context is cancelled first.
func (w *Worker) send(ctx context.Context, msg protocol.Message) bool {
	select {
	case w.out <- msg:
		return true
	case <-ctx.Done():
		return false
	}
}

// step runs one iteration, converting an iterator panic into an error.
func step(s forceatlas2.Settings, nodes, edges []float64) (meta forceatlas2.Metadata, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = herrors.Wrap(herrors.ErrCodeAbnormalStop, fmt.Errorf("panic: %v\n%s", r, debug.Stack()), "iteration failed")
		}
	}()
	return forceatlas2.Iterate(s, nodes, edges), nil
}

func violation(format string, args ...any) error {
	return herrors.New(herrors.ErrCodeProtocolViolation, format, args...)
}
