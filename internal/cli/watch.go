package cli

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/cafour/helveg-sub001/pkg/graph"
	"github.com/cafour/helveg-sub001/pkg/layout"
	"github.com/cafour/helveg-sub001/pkg/multigraph"
	"github.com/cafour/helveg-sub001/pkg/pipeline"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// watchCommand creates the watch command.
func (c *CLI) watchCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "watch [graph.json]",
		Short: "Drive a live layout from the terminal",
		Long: `Drive a live layout from the terminal.

Keys:
  s        start or stop a continuous layout
  space    run a single batch of iterations
  enter/t  toggle the selected node
  c        collapse the selected node
  x / X    cut the selected node / its whole subtree
  q        quit`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			g, err := c.loadGraph(args[0])
			if err != nil {
				return err
			}
			layout.Scatter(g, pipeline.DefaultSeed)

			opts := cfg.LayoutOptions(c.Logger)
			// The TUI owns the terminal.
			opts.Logger = nil
			engine, err := layout.NewEngine(g, opts)
			if err != nil {
				return err
			}
			defer engine.Kill()

			if err := runWatch(cmd.Context(), engine); err != nil {
				return err
			}

			if output != "" {
				if err := engine.Stop(context.Background()); err != nil {
					return err
				}
				if err := graph.WriteGraphFile(g, output); err != nil {
					return err
				}
				printFile(output)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the graph here on exit")
	return cmd
}

// runWatch runs the TUI until the user quits, forwarding engine events to
// the program.
func runWatch(ctx context.Context, engine *layout.Engine) error {
	p := tea.NewProgram(newWatchModel(ctx, engine), tea.WithContext(ctx))

	unsubscribe := []func(){
		engine.OnStarted(func(e layout.StartedEvent) { p.Send(startedMsg(e)) }),
		engine.OnProgress(func(e layout.ProgressEvent) { p.Send(progressMsg(e)) }),
		engine.OnStopped(func(e layout.StoppedEvent) { p.Send(stoppedMsg(e)) }),
	}
	defer func() {
		for _, fn := range unsubscribe {
			fn()
		}
	}()

	_, err := p.Run()
	return err
}

// =============================================================================
// watchModel - live layout view
// =============================================================================

type (
	startedMsg  layout.StartedEvent
	progressMsg layout.ProgressEvent
	stoppedMsg  layout.StoppedEvent
	opDoneMsg   struct {
		op  string
		err error
	}
)

type watchModel struct {
	ctx    context.Context
	engine *layout.Engine

	nodes  []multigraph.Node
	cursor int
	offset int
	height int

	running  bool
	mode     layout.Mode
	progress layout.ProgressEvent
	lastStop string
	message  string
	err      error
}

func newWatchModel(ctx context.Context, engine *layout.Engine) watchModel {
	m := watchModel{ctx: ctx, engine: engine, height: 15}
	m.refresh()
	return m
}

// refresh reloads the visible node list and clamps the cursor.
func (m *watchModel) refresh() {
	var nodes []multigraph.Node
	for _, n := range m.engine.Graph.Nodes() {
		if !n.Hidden {
			nodes = append(nodes, n)
		}
	}
	m.nodes = nodes
	if m.cursor >= len(m.nodes) {
		m.cursor = max(len(m.nodes)-1, 0)
	}
	if m.offset > m.cursor {
		m.offset = m.cursor
	}
}

func (m watchModel) selected() (string, bool) {
	if len(m.nodes) == 0 {
		return "", false
	}
	return m.nodes[m.cursor].ID, true
}

// do runs op off the event loop, since Stop may block.
func (m watchModel) do(name string, op func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return opDoneMsg{op: name, err: op(ctx)}
	}
}

func (m watchModel) Init() tea.Cmd {
	return nil
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.height = max(msg.Height-8, 5)
	case startedMsg:
		m.running = true
		m.mode = msg.Mode
		m.progress = layout.ProgressEvent{}
	case progressMsg:
		m.progress = layout.ProgressEvent(msg)
	case stoppedMsg:
		m.running = false
		m.lastStop = msg.Reason.String()
		m.progress.Iterations = msg.Iterations
	case opDoneMsg:
		m.err = msg.err
		if msg.err == nil {
			m.message = msg.op
		}
		m.refresh()
	}
	return m, nil
}

func (m watchModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	e := m.engine
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			if m.cursor < m.offset {
				m.offset = m.cursor
			}
		}
	case "down", "j":
		if m.cursor < len(m.nodes)-1 {
			m.cursor++
			if m.cursor >= m.offset+m.height {
				m.offset = m.cursor - m.height + 1
			}
		}
	case "s":
		if m.running {
			return m, m.do("stopped", e.Stop)
		}
		return m, m.do("started", func(ctx context.Context) error { return e.Start(ctx, layout.Continuous) })
	case " ":
		return m, m.do("single run", func(ctx context.Context) error { return e.Start(ctx, layout.SingleIteration) })
	}

	id, ok := m.selected()
	if !ok {
		return m, nil
	}
	switch msg.String() {
	case "enter", "t":
		return m, m.do("toggled "+id, func(ctx context.Context) error { return e.ToggleNode(ctx, id) })
	case "c":
		return m, m.do("collapsed "+id, func(ctx context.Context) error { return e.CollapseNode(ctx, id, "") })
	case "x", "X":
		transitive := msg.String() == "X"
		return m, m.do("cut "+id, func(ctx context.Context) error {
			_, err := e.Cut(ctx, id, multigraph.CutOptions{IsTransitive: transitive})
			return err
		})
	}
	return m, nil
}

func (m watchModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Layout"))
	b.WriteString("  ")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("s start/stop  space single  ⏎ toggle  c collapse  x/X cut  q quit"))
	b.WriteString("\n\n")

	end := min(m.offset+m.height, len(m.nodes))
	for i := m.offset; i < end; i++ {
		n := m.nodes[i]
		line := n.ID
		if n.Label != "" && n.Label != n.ID {
			line += " " + listDimStyle.Render(n.Label)
		}
		if n.Collapsed {
			line += listDimStyle.Render(" [+]")
		}
		if n.Fixed {
			line += listDimStyle.Render(" (pinned)")
		}
		if i == m.cursor {
			b.WriteString(listSelectedStyle.Render("▸ " + line))
		} else {
			b.WriteString(listNormalStyle.Render("  " + line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch {
	case m.err != nil:
		b.WriteString(styleIconError.Render(iconError) + " " + m.err.Error())
	case m.message != "":
		b.WriteString(listDimStyle.Render(m.message))
	}
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d visible]", len(m.nodes), m.engine.Graph.NodeCount())))

	return b.String()
}

func (m watchModel) statusLine() string {
	p := m.progress
	stats := fmt.Sprintf("%d iterations · %.0f it/s · traction %.3f",
		p.Iterations, p.IterationsPerSecond, p.Metadata.AverageTraction())
	if m.running {
		return StyleSuccess.Render("● "+m.mode.String()) + "  " + StyleDim.Render(stats)
	}
	status := "○ idle"
	if m.lastStop != "" {
		status += " (" + m.lastStop + ")"
	}
	return StyleDim.Render(status + "  " + stats)
}
