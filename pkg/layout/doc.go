// Package layout coordinates force-directed layout of a [multigraph.Multigraph]
// on a background worker.
//
// # Overview
//
// A [Supervisor] serializes the visible part of the model into flat buffers
// ([Pack]), spawns a [worker.Worker] that owns those buffers, and writes the
// positions it reports back into the model ([Unpack]). The model stays the
// single source of truth: pinned nodes keep their model position, and every
// restart packs fresh buffers from it.
//
//	g := multigraph.New()
//	// ... populate g ...
//	layout.Scatter(g, 1)
//
//	sup, err := layout.NewSupervisor(g, layout.Options{})
//	if err != nil {
//	    return err
//	}
//	defer sup.Kill()
//
//	sup.OnStopped(func(e layout.StoppedEvent) { fmt.Println("stopped:", e.Reason) })
//	sup.Start(ctx, layout.Continuous)
//	// ...
//	sup.Stop(ctx)
//
// # Lifecycle
//
// Start is fire-and-forget. Stop waits for the worker to hand back its final
// positions, falling back to killing the worker after [Options.StopTimeout].
// Kill is immediate and terminal.
//
// The supervisor subscribes to model changes. When the visible subset
// changes it kills the current worker and, if a run was active, resumes it
// on a new worker so that two workers never write into the same model.
//
// # Events
//
// Subscribers receive [StartedEvent], [ProgressEvent], [UpdateEvent] and
// [StoppedEvent] values. Exactly one StoppedEvent is emitted per run.
// Messages from a worker that has been replaced are discarded.
//
// Events are delivered in order on a dispatch goroutine, so a handler may
// call Stop or Start. [Supervisor.Sync] waits until everything produced so
// far has been delivered.
//
// # Engine
//
// [Engine] bundles a model and its supervisor behind the operations a user
// interface needs: toggle, collapse, expand, cut, prune, find roots and
// snapshot, instrumented through the observability package.
package layout
