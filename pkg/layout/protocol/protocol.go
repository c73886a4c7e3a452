// Package protocol defines the messages exchanged between the layout
// supervisor and its background worker.
//
// Messages travel over channels. Buffers are handed off by sending them: once
// a []float64 has been placed in a message the sender must drop its
// reference and never touch the slice again. The receiver becomes its sole
// owner. This keeps exactly one writer per buffer without locks.
//
// Supervisor to worker: [Init], [Start], [Stop].
// Worker to supervisor: [Progress], [Update], [Stopped], [Fault].
package protocol

import (
	"fmt"

	"github.com/cafour/helveg-sub001/pkg/forceatlas2"
)

// Message is implemented by every protocol message.
type Message interface {
	Kind() string
}

// Init hands the worker the graph topology. It must precede the first Start
// and may be sent again between runs.
type Init struct {
	Edges []float64 // transferred
}

// Start begins a run. Nodes carries current positions and is transferred.
type Start struct {
	Settings forceatlas2.Settings
	Nodes    []float64

	// Iterations bounds the run. Zero runs continuously until Stop or
	// auto-stop.
	Iterations int

	// ReportInterval is the number of steps between Progress and Update
	// messages in a continuous run. Zero means every step.
	ReportInterval int
}

// Stop asks a continuous run to end. The worker answers with a final Update
// followed by Stopped.
type Stop struct{}

// Progress reports the state after a number of steps.
type Progress struct {
	Iterations int
	Metadata   forceatlas2.Metadata
}

// Update carries node positions back to the supervisor. Nodes is
// transferred; during a continuous run it is a copy and the worker keeps
// iterating on its own buffer.
type Update struct {
	Nodes []float64
}

// StopReason says why a run ended.
type StopReason int

const (
	// Explicit means a Stop message was honored.
	Explicit StopReason = iota
	// AutoStop means average traction fell below the threshold.
	AutoStop
	// IterationLimitReached means a bounded run finished.
	IterationLimitReached
)

func (r StopReason) String() string {
	switch r {
	case Explicit:
		return "explicit"
	case AutoStop:
		return "autoStop"
	case IterationLimitReached:
		return "iterationLimitReached"
	}
	return fmt.Sprintf("StopReason(%d)", int(r))
}

// Stopped is the worker's acknowledgement that a run ended.
type Stopped struct {
	Reason     StopReason
	Iterations int
}

// Fault reports a broken invariant or a failure inside the iterator. The
// worker exits after sending it.
type Fault struct {
	Err error
}

func (Init) Kind() string     { return "init" }
func (Start) Kind() string    { return "start" }
func (Stop) Kind() string     { return "stop" }
func (Progress) Kind() string { return "progress" }
func (Update) Kind() string   { return "update" }
func (Stopped) Kind() string  { return "stopped" }
func (Fault) Kind() string    { return "fault" }
