package layout

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	herrors "github.com/cafour/helveg-sub001/pkg/errors"
	"github.com/cafour/helveg-sub001/pkg/forceatlas2"
)

// Defaults applied by [Options.ValidateAndSetDefaults].
const (
	DefaultReportInterval   = 10
	DefaultStopTimeout      = time.Second
	DefaultSingleIterations = 1
)

// Mode selects how a run ends.
type Mode int

const (
	// Continuous iterates until stopped, auto-stopped or killed.
	Continuous Mode = iota
	// SingleIteration runs a fixed number of iterations and stops.
	SingleIteration
)

func (m Mode) String() string {
	switch m {
	case Continuous:
		return "continuous"
	case SingleIteration:
		return "single"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode parses "continuous" or "single".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "continuous", "":
		return Continuous, nil
	case "single", "singleIteration", "single-iteration":
		return SingleIteration, nil
	}
	return 0, herrors.New(herrors.ErrCodeInvalidInput, "unknown layout mode %q (want continuous or single)", s)
}

// Options configures a [Supervisor].
type Options struct {
	// Settings are validated on every Start. The zero value is replaced by
	// forceatlas2.DefaultSettings.
	Settings forceatlas2.Settings

	// Relations restricts which edges the layout sees. Empty means all.
	Relations []string

	// ReportInterval is the number of iterations between progress reports
	// in continuous mode.
	ReportInterval int

	// StopTimeout bounds how long Stop waits for the worker before killing it.
	StopTimeout time.Duration

	// SingleIterations is the run length in SingleIteration mode.
	SingleIterations int

	// Logger receives supervisor diagnostics. Nil discards them.
	Logger *log.Logger

	validated bool
}

// ValidateAndSetDefaults applies defaults and checks the remaining fields.
// Calling it more than once has no further effect.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Settings == (forceatlas2.Settings{}) {
		o.Settings = forceatlas2.DefaultSettings()
	}
	if o.ReportInterval <= 0 {
		o.ReportInterval = DefaultReportInterval
	}
	if o.StopTimeout <= 0 {
		o.StopTimeout = DefaultStopTimeout
	}
	if o.SingleIterations <= 0 {
		o.SingleIterations = DefaultSingleIterations
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	for _, r := range o.Relations {
		if err := herrors.ValidateRelationName(r); err != nil {
			return err
		}
	}
	o.validated = true
	return nil
}
