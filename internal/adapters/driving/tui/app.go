package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/deepcode-labs/deepcode/internal/adapters/driving/tui/components/status"
	"github.com/deepcode-labs/deepcode/internal/adapters/driving/tui/keymap"
	"github.com/deepcode-labs/deepcode/internal/adapters/driving/tui/messages"
	"github.com/deepcode-labs/deepcode/internal/adapters/driving/tui/styles"
	"github.com/deepcode-labs/deepcode/internal/adapters/driving/tui/views/progress"
	"github.com/deepcode-labs/deepcode/internal/core/domain"
	"github.com/deepcode-labs/deepcode/internal/core/ports/driving"
)

// App runs one pipeline and shows its progress, following the Elm
// architecture. It quits once the run is terminal.
type App struct {
	ports  *Ports
	ctx    context.Context
	runCtx context.Context
	stop   context.CancelFunc
	doc    *domain.Document
	runID  string
	keymap *keymap.KeyMap

	progressView *progress.View
	statusBar    *status.Bar

	// events carries observer callbacks from the orchestrator goroutine.
	events chan domain.RunEvent

	result     *domain.RunResult
	err        error
	finished   bool
	cancelling bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates the progress application for one run. runID must be set
// so the run can be cancelled from the keyboard.
func NewApp(ports *Ports, doc *domain.Document, runID string) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("creating app: %w", ErrMissingDocument)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	a := &App{
		ports:        ports,
		doc:          doc,
		runID:        runID,
		keymap:       km,
		progressView: progress.NewView(s, doc.Title),
		statusBar:    status.NewBar(s, km),
		events:       make(chan domain.RunEvent, 64),
	}
	return a.WithContext(context.Background()), nil
}

// WithContext sets the context the run executes under.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.runCtx, a.stop = context.WithCancel(ctx)
	return a
}

// Init implements tea.Model. It starts the run and the event pump.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("deepcode - "+a.doc.Title),
		a.progressView.Init(),
		a.runPipeline,
		a.waitForEvent,
	)
}

// runPipeline executes the run and reports its end.
func (a *App) runPipeline() tea.Msg {
	observer := driving.RunObserverFunc(func(e domain.RunEvent) {
		select {
		case a.events <- e:
		case <-a.runCtx.Done():
		}
	})
	result, err := a.ports.Pipeline.Run(a.runCtx, a.doc, driving.RunOptions{RunID: a.runID, Observer: observer})
	close(a.events)
	return messages.RunFinished{Result: result, Err: err}
}

// waitForEvent delivers the next observer event as a message.
func (a *App) waitForEvent() tea.Msg {
	e, ok := <-a.events
	if !ok {
		return nil
	}
	return messages.RunEvent{Event: e}
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.progressView.SetDimensions(msg.Width, msg.Height)
		a.statusBar.SetWidth(msg.Width)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case messages.RunEvent:
		var cmd tea.Cmd
		a.progressView, cmd = a.progressView.Update(msg)
		if !a.finished {
			a.statusBar.SetProgress(msg.Event.Progress)
		}
		return a, tea.Batch(cmd, a.waitForEvent)

	case messages.RunFinished:
		a.finished = true
		a.result = msg.Result
		a.err = msg.Err
		a.progressView, _ = a.progressView.Update(messages.RunEvent{Event: domain.RunEvent{Type: domain.EventRunFinished}})
		if msg.Result != nil {
			a.statusBar.SetState(status.StateFinished)
			a.statusBar.SetProgress(domain.RunProgress{Status: msg.Result.Run.Status})
		} else if msg.Err != nil {
			a.statusBar.SetState(status.StateError)
			a.statusBar.SetMessage(msg.Err.Error())
		}
		return a, tea.Quit
	}

	var cmd tea.Cmd
	a.progressView, cmd = a.progressView.Update(msg)
	return a, cmd
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch {
	case a.finished:
		return a, tea.Quit
	case a.cancelling && keymap.Matches(key, a.keymap.Quit):
		return a, tea.Quit
	case !a.cancelling && keymap.Matches(key, a.keymap.Cancel):
		a.cancelling = true
		a.statusBar.SetState(status.StateCancelling)
		// Before the run registers, cancel its context instead.
		if err := a.ports.Pipeline.Cancel(a.runID); err != nil {
			a.stop()
		}
	}
	return a, nil
}

// View implements tea.Model.
func (a *App) View() string {
	return a.progressView.View() + "\n" + a.statusBar.View() + "\n"
}

// Run starts the TUI and blocks until the run is terminal or the user quits.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// Result returns the run result and error once the run has finished.
func (a *App) Result() (*domain.RunResult, error) {
	return a.result, a.err
}

// Finished reports whether the run has returned.
func (a *App) Finished() bool {
	return a.finished
}

// Cancelling reports whether cancellation was requested.
func (a *App) Cancelling() bool {
	return a.cancelling
}
