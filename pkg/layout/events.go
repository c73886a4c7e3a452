package layout

import (
	"fmt"

	"github.com/cafour/helveg-sub001/pkg/forceatlas2"
	"github.com/cafour/helveg-sub001/pkg/layout/protocol"
)

// StopReason says why a run ended.
type StopReason int

const (
	StopExplicit StopReason = iota
	StopAutoStop
	StopIterationLimitReached
	// StopTimeout means the worker did not acknowledge Stop in time and
	// was killed.
	StopTimeout
	// StopKilled means the supervisor was killed during the run.
	StopKilled
	// StopAbnormal means the worker faulted or exited unexpectedly.
	StopAbnormal
)

func (r StopReason) String() string {
	switch r {
	case StopExplicit:
		return "explicit"
	case StopAutoStop:
		return "autoStop"
	case StopIterationLimitReached:
		return "iterationLimitReached"
	case StopTimeout:
		return "timeout"
	case StopKilled:
		return "killed"
	case StopAbnormal:
		return "abnormal"
	}
	return fmt.Sprintf("StopReason(%d)", int(r))
}

func fromProtocol(r protocol.StopReason) StopReason {
	switch r {
	case protocol.AutoStop:
		return StopAutoStop
	case protocol.IterationLimitReached:
		return StopIterationLimitReached
	}
	return StopExplicit
}

// StartedEvent is emitted when a run begins.
type StartedEvent struct {
	Session string
	Mode    Mode

	// Resumed is set when the run replaces one torn down by a graph change.
	Resumed bool
}

// ProgressEvent is emitted for every worker progress report.
type ProgressEvent struct {
	Session             string
	Iterations          int
	IterationsPerSecond float64
	Metadata            forceatlas2.Metadata
}

// UpdateEvent is emitted after worker positions were written to the model.
type UpdateEvent struct {
	Session string
	Nodes   int
}

// StoppedEvent is emitted exactly once per run.
type StoppedEvent struct {
	Session    string
	Reason     StopReason
	Iterations int
	Err        error // set for StopAbnormal
}
