// internal/tui/app.go
//
// This is the participant board for bargain. It uses bubbletea, which
// follows The Elm Architecture:
//
// 1. Model: the App, wrapping one session and its board controller
// 2. Update: keys, bridge events and delivery results become controller calls
// 3. View: the current phase's form, the actions with their reasons, the chat
//
// Everything that touches the controller happens inside Update. Sends run in
// a tea.Cmd and come back as a sendResultMsg, where they are settled.

package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/bargain/internal/board"
	"github.com/kingrea/bargain/internal/deal"
	"github.com/kingrea/bargain/internal/envelope"
	"github.com/kingrea/bargain/internal/eventbridge"
	"github.com/kingrea/bargain/internal/logbook"
	"github.com/kingrea/bargain/internal/session"
)

const defaultSendTimeout = 10 * time.Second

// eventMsg carries one orchestrator event from the bridge into Update.
type eventMsg struct {
	event eventbridge.Event
}

// eventsClosedMsg reports that the bridge subscription ended.
type eventsClosedMsg struct{}

// sendResultMsg carries the outcome of one delivery back into Update.
type sendResultMsg struct {
	pending *board.Pending
	err     error
}

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithSender sets the transport used for outbound envelopes.
func WithSender(sender session.Sender) AppOption {
	return func(a *App) {
		if sender != nil {
			a.sender = sender
		}
	}
}

// WithEvents attaches the bridge subscription channel.
func WithEvents(events <-chan eventbridge.Event) AppOption {
	return func(a *App) {
		a.events = events
	}
}

// WithContext bounds every send with ctx.
func WithContext(ctx context.Context) AppOption {
	return func(a *App) {
		if ctx != nil {
			a.ctx = ctx
		}
	}
}

// WithSendTimeout caps a single delivery attempt.
func WithSendTimeout(d time.Duration) AppOption {
	return func(a *App) {
		if d > 0 {
			a.sendTimeout = d
		}
	}
}

// App is the main application model. In bubbletea, this holds ALL your state.
type App struct {
	session     *session.Session
	board       *board.Controller
	logbook     *logbook.Logbook
	sender      session.Sender
	events      <-chan eventbridge.Event
	ctx         context.Context
	sendTimeout time.Duration

	// UI components
	keys       keyMap
	help       help.Model
	forms      forms
	transcript viewport.Model
	focus      int
	lastPhase  board.Phase
	statusMsg  string
	bridgeDown bool

	// Window size (we get this from bubbletea)
	width  int
	height int
}

// NewApp creates the board for one participant session.
func NewApp(sess *session.Session, opts ...AppOption) *App {
	app := &App{
		session:     sess,
		board:       sess.Controller(),
		logbook:     sess.Journal(),
		ctx:         context.Background(),
		sendTimeout: defaultSendTimeout,
		keys:        defaultKeyMap,
		help:        help.New(),
		forms:       newForms(),
		transcript:  viewport.New(40, 10),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	app.lastPhase = app.board.Phase()
	app.forms.focus(app.focused())
	app.logInfo("Session opened · participant %s · phase: %s", app.board.SenderID(), app.lastPhase.FriendlyName())
	return app
}

func (a *App) logInfo(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Info(format, args...)
}

func (a *App) logWarn(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Warn(format, args...)
}

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, a.waitForEvent())
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.resize()

	case eventMsg:
		if err := a.session.Apply(msg.event); err != nil {
			a.statusMsg = describeEventError(msg.event, err)
		}
		a.refreshTranscript()
		cmds = append(cmds, a.waitForEvent())

	case eventsClosedMsg:
		a.bridgeDown = true
		a.statusMsg = "Connection to the study server closed."
		a.logWarn("event subscription closed")

	case sendResultMsg:
		a.settle(msg)

	case tea.KeyMsg:
		if key.Matches(msg, a.keys.Quit) {
			return a, tea.Quit
		}
		cmds = append(cmds, a.handleKey(msg))

	default:
		cmds = append(cmds, a.forms.update(a.focused(), msg))
	}
	cmds = append(cmds, a.syncPhase())
	return a, tea.Batch(cmds...)
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, a.keys.Submit):
		if action, ok := primaryAction(a.board.Phase()); ok {
			return a.submit(action)
		}
		return nil
	case key.Matches(msg, a.keys.Propose):
		return a.submit(envelope.ActionProposeDeal)
	case key.Matches(msg, a.keys.Walk):
		return a.submit(envelope.ActionWalkAway)
	case key.Matches(msg, a.keys.Accept):
		return a.submit(envelope.ActionAcceptDeal)
	case key.Matches(msg, a.keys.Reject):
		return a.submit(envelope.ActionRejectDeal)
	case key.Matches(msg, a.keys.Next):
		return a.moveFocus(1)
	case key.Matches(msg, a.keys.Prev):
		return a.moveFocus(-1)
	case key.Matches(msg, a.keys.Scroll):
		var cmd tea.Cmd
		a.transcript, cmd = a.transcript.Update(msg)
		return cmd
	}

	current := a.focused()
	switch {
	case current == fieldCode && key.Matches(msg, a.keys.Send):
		return a.submit(envelope.ActionSubmitOnboardingCode)
	case current == fieldChat && key.Matches(msg, a.keys.Send):
		return a.sendChat()
	case current.isShare():
		a.editShare(current, msg)
		return nil
	case current.isSelect():
		issues, _ := a.board.Issues()
		switch {
		case key.Matches(msg, a.keys.Less):
			a.forms.cycle(current, -1, issues)
		case key.Matches(msg, a.keys.More), key.Matches(msg, a.keys.Send):
			a.forms.cycle(current, 1, issues)
		}
		a.syncFields()
		return nil
	}
	cmd := a.forms.update(current, msg)
	a.syncFields()
	return cmd
}

// primaryAction is what ctrl+s submits in each phase.
func primaryAction(p board.Phase) (envelope.Action, bool) {
	switch p {
	case board.PhaseOnboardingCode:
		return envelope.ActionSubmitOnboardingCode, true
	case board.PhaseOnboardingReasons:
		return envelope.ActionSubmitOnboardingReasons, true
	case board.PhaseChatting:
		return envelope.ActionProposeDeal, true
	case board.PhasePostSurvey:
		return envelope.ActionSubmitPostSurvey, true
	default:
		return "", false
	}
}

func (a *App) focused() field {
	fields := fieldsFor(a.board.Phase())
	if len(fields) == 0 {
		return fieldNone
	}
	if a.focus < 0 || a.focus >= len(fields) {
		a.focus = 0
	}
	return fields[a.focus]
}

func (a *App) moveFocus(delta int) tea.Cmd {
	fields := fieldsFor(a.board.Phase())
	if len(fields) == 0 {
		return nil
	}
	a.focus = (a.focus + delta + len(fields)) % len(fields)
	return a.forms.focus(a.focused())
}

// syncPhase resets focus when the board moved to another phase.
func (a *App) syncPhase() tea.Cmd {
	phase := a.board.Phase()
	if phase == a.lastPhase {
		return nil
	}
	a.lastPhase = phase
	a.focus = 0
	a.syncFields()
	return a.forms.focus(a.focused())
}

// syncFields hands the current drafts to the controller so the action list
// reflects what is on screen.
func (a *App) syncFields() {
	issues, _ := a.board.Issues()
	a.board.Edit(a.forms.answers(issues))
}

func (a *App) editShare(current field, msg tea.KeyMsg) {
	rank := current.rank()
	draft := a.board.Draft()
	if draft == nil {
		a.statusMsg = "The deal board is not ready yet."
		return
	}
	value, set := draft.Self(rank)
	total := draft.Issues().Total(rank)
	var err error
	switch {
	case key.Matches(msg, a.keys.Clear):
		a.board.ClearShare(rank)
	case key.Matches(msg, a.keys.More):
		if !set {
			err = a.board.SetShare(rank, 0)
		} else if value < total {
			err = a.board.SetShare(rank, value+1)
		}
	case key.Matches(msg, a.keys.Less):
		if set && value == 0 {
			a.board.ClearShare(rank)
		} else if set {
			err = a.board.SetShare(rank, value-1)
		}
	default:
		n, convErr := strconv.Atoi(msg.String())
		if convErr != nil {
			return
		}
		err = a.board.SetShare(rank, n)
	}
	if err != nil {
		a.statusMsg = err.Error()
		return
	}
	a.statusMsg = ""
}

// submit validates and stages action, then returns the command that sends it.
func (a *App) submit(action envelope.Action) tea.Cmd {
	issues, _ := a.board.Issues()
	pending, err := a.session.Submit(action, a.forms.answers(issues))
	if err != nil {
		a.statusMsg = describeRejection(err)
		return nil
	}
	a.statusMsg = fmt.Sprintf("Sending %s...", action.Label())
	return a.dispatch(pending)
}

func (a *App) sendChat() tea.Cmd {
	pending, err := a.session.Chat(a.forms.chat.Value())
	if err != nil {
		a.statusMsg = describeRejection(err)
		return nil
	}
	a.statusMsg = "Sending message..."
	return a.dispatch(pending)
}

func (a *App) dispatch(pending *board.Pending) tea.Cmd {
	sender := a.sender
	parent := a.ctx
	timeout := a.sendTimeout
	return func() tea.Msg {
		if sender == nil {
			return sendResultMsg{pending: pending, err: errors.New("no orchestrator configured")}
		}
		ctx, cancel := context.WithTimeout(parent, timeout)
		defer cancel()
		return sendResultMsg{pending: pending, err: session.Dispatch(ctx, sender, pending)}
	}
}

func (a *App) settle(msg sendResultMsg) {
	err := a.session.Settle(msg.pending, msg.err)
	if errors.Is(err, board.ErrStalePending) {
		return
	}
	action := msg.pending.Action()
	if err != nil {
		a.statusMsg = fmt.Sprintf("Could not deliver %s: %v. Try again.", action.Label(), msg.err)
		return
	}
	if action == envelope.ActionChat {
		a.forms.chat.Reset()
		a.refreshTranscript()
		a.statusMsg = ""
		return
	}
	a.statusMsg = fmt.Sprintf("%s delivered.", action.Label())
}

func (a *App) waitForEvent() tea.Cmd {
	events := a.events
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		evt, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg{event: evt}
	}
}

func (a *App) resize() {
	leftWidth, rightWidth := a.columns()
	a.transcript.Width = max(20, rightWidth-4)
	a.transcript.Height = max(5, a.height/3)
	a.forms.setWidth(leftWidth - 8)
	a.help.Width = a.width
	a.refreshTranscript()
}

func (a *App) refreshTranscript() {
	a.transcript.SetContent(renderTranscript(a.session.Transcript(), a.transcript.Width))
	a.transcript.GotoBottom()
}

func describeRejection(err error) string {
	var verr *board.ValidationError
	if errors.As(err, &verr) {
		msg := fmt.Sprintf("%s blocked: %s", verr.Action.Label(), board.ActionState{Reasons: verr.Reasons}.Explain())
		if verr.Detail != "" {
			msg += " (" + verr.Detail + ")"
		}
		return msg
	}
	return err.Error()
}

func describeEventError(evt eventbridge.Event, err error) string {
	var invalid *deal.InvalidDealError
	if errors.As(err, &invalid) {
		return "Your partner's deal could not be used: " + invalid.Error()
	}
	if errors.Is(err, board.ErrUnexpectedDeal) {
		return "A partner deal arrived outside the negotiation and was ignored."
	}
	return fmt.Sprintf("Ignored %s update: %v", evt.Type, err)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
