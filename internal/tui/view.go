package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/bargain/internal/board"
	"github.com/kingrea/bargain/internal/deal"
	"github.com/kingrea/bargain/internal/session"
)

var (
	borderColor = lipgloss.Color("#444444")
	titleColor  = lipgloss.Color("#5B8DEF")
	mutedColor  = lipgloss.Color("#888888")
	okColor     = lipgloss.Color("#7BD88F")
	blockColor  = lipgloss.Color("#FF6B6B")

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(titleColor)
	mutedStyle  = lipgloss.NewStyle().Foreground(mutedColor)
	cursorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFD166"))
	panelStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(borderColor).
			Padding(0, 1)
)

// columns splits the window into the form column and the side column.
func (a *App) columns() (int, int) {
	width := a.width
	if width <= 0 {
		width = 100
	}
	rightWidth := max(32, width/3)
	leftWidth := width - rightWidth - 4
	if leftWidth < 40 {
		leftWidth = width - 4
		rightWidth = width - 4
	}
	return leftWidth, rightWidth
}

// View renders the board.
func (a *App) View() string {
	leftWidth, rightWidth := a.columns()
	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FF6B6B")).
		MarginBottom(1).
		Render(fmt.Sprintf("⬡ BARGAIN · %s", a.board.SenderID()))

	left := lipgloss.JoinVertical(lipgloss.Left,
		a.renderPhasePanel(),
		"",
		a.renderForm(leftWidth-4),
	)
	leftBox := panelStyle.Width(leftWidth).Render(left)
	rightBox := panelStyle.Width(rightWidth).Render(lipgloss.JoinVertical(lipgloss.Left,
		a.renderActions(),
		"",
		a.renderChatPanel(),
	))

	var body string
	if leftWidth+rightWidth+4 <= max(a.width, 100) {
		body = lipgloss.JoinHorizontal(lipgloss.Top, leftBox, " ", rightBox)
	} else {
		body = lipgloss.JoinVertical(lipgloss.Left, leftBox, rightBox)
	}

	sections := []string{header, body}
	if logPanel := a.renderLogPanel(); logPanel != "" {
		sections = append(sections, logPanel)
	}
	sections = append(sections, a.help.View(a.phaseKeys()))
	if a.statusMsg != "" {
		footer := lipgloss.NewStyle().
			Foreground(mutedColor).
			MarginTop(1).
			Render(a.statusMsg)
		sections = append(sections, footer)
	}
	return strings.Join(sections, "\n")
}

func (a *App) renderPhasePanel() string {
	phase := a.board.Phase()
	lines := []string{titleStyle.Render(strings.ToUpper(phase.FriendlyName()))}
	if phase.IsBargaining() {
		gate := a.board.Gate()
		turn := "Partner's turn"
		if gate.IsMyTurn {
			turn = "Your turn"
		}
		lines = append(lines, mutedStyle.Render(fmt.Sprintf("%s · messages %d/%d", turn, gate.MessageCount, gate.Floor)))
	}
	if a.bridgeDown {
		lines = append(lines, lipgloss.NewStyle().Foreground(blockColor).Render("Disconnected from the study server"))
	}
	return strings.Join(lines, "\n")
}

func (a *App) renderForm(width int) string {
	c := a.board
	issues, hasIssues := c.Issues()
	notice := ""
	if n := strings.TrimSpace(c.Notice()); n != "" {
		notice = "\n\n" + mutedStyle.Render(n)
	}
	switch c.Phase() {
	case board.PhaseOnboardingCode:
		var b strings.Builder
		if link := c.SurveyLink(); link != "" {
			fmt.Fprintf(&b, "Complete the survey at:\n%s\n\n", link)
		}
		b.WriteString("Enter the code shown at the end of the survey.\n")
		b.WriteString(a.forms.code.View())
		return b.String() + notice
	case board.PhaseOnboardingReasons:
		var b strings.Builder
		fmt.Fprintf(&b, "Tell us why you ranked the items this way (at least %d words each).\n", c.MinWords())
		for _, fd := range []field{fieldReasonHigh, fieldReasonMedium, fieldReasonLow} {
			label := string(fd.rank())
			if hasIssues {
				label = issues.Label(fd.rank())
			}
			fmt.Fprintf(&b, "\n%s\n", a.fieldTitle(fd, fmt.Sprintf("Why is %s your %s priority?", label, strings.ToLower(string(fd.rank())))))
			b.WriteString(a.forms.reasonArea(fd).View())
			b.WriteString("\n")
		}
		return b.String()
	case board.PhaseWaiting:
		return "Waiting for a partner to join..." + notice
	case board.PhaseChatting:
		return a.renderDraft(width) + "\n\n" + a.forms.chat.View() + notice
	case board.PhaseDealProposedBySelfAwaitingOther:
		return "Your deal was sent. Waiting for your partner to respond." + notice
	case board.PhaseDealProposedByOtherAwaitingSelf:
		fd, ok := c.IncomingDeal()
		if !ok || !hasIssues {
			return "Your partner proposed a deal that could not be read. Reject it to keep negotiating." + notice
		}
		return "Your partner proposed:\n\n" + renderDeal(fd, issues) + notice
	case board.PhaseWaitingForPartnerPostSurvey:
		return "Waiting for your partner to finish..." + notice
	case board.PhasePostSurvey:
		var b strings.Builder
		for _, fd := range fieldsFor(board.PhasePostSurvey) {
			if fd == fieldFeedback {
				fmt.Fprintf(&b, "\n%s\n%s\n", a.fieldTitle(fd, "Feedback"), a.forms.feedback.View())
				continue
			}
			value := a.forms.choice(fd, issues)
			if value == "" {
				value = "choose"
			}
			fmt.Fprintf(&b, "%s\n   ‹ %s ›\n", a.fieldTitle(fd, fd.question()), value)
		}
		return b.String()
	case board.PhaseEnd:
		return "Thank you for taking part. You can close this window." + notice
	default:
		return c.Phase().String()
	}
}

func (a *App) fieldTitle(fd field, text string) string {
	if a.focused() == fd {
		return cursorStyle.Render("▸ " + text)
	}
	return "  " + text
}

func (a *App) renderDraft(width int) string {
	draft := a.board.Draft()
	if draft == nil {
		return mutedStyle.Render("Waiting for the items to be assigned...")
	}
	issues := draft.Issues()
	rows := []string{titleStyle.Render("YOUR PROPOSAL")}
	for _, fd := range []field{fieldShareHigh, fieldShareMedium, fieldShareLow} {
		rank := fd.rank()
		self, partner := "-", "-"
		if v, ok := draft.Self(rank); ok {
			self = fmt.Sprint(v)
		}
		if v, ok := draft.Partner(rank); ok {
			partner = fmt.Sprint(v)
		}
		line := fmt.Sprintf("%-12s you %s · partner %s (of %d)", issues.Label(rank), self, partner, issues.Total(rank))
		rows = append(rows, a.fieldTitle(fd, line))
	}
	return lipgloss.NewStyle().MaxWidth(max(20, width)).Render(strings.Join(rows, "\n"))
}

func renderDeal(fd deal.FinalizedDeal, issues deal.Issues) string {
	rows := make([]string, 0, len(deal.Ranks))
	for _, rank := range deal.Ranks {
		split, ok := fd.Split(rank)
		if !ok {
			continue
		}
		rows = append(rows, fmt.Sprintf("  %-12s you get %d · partner gets %d", issues.Label(rank), split.Self, split.Partner))
	}
	return strings.Join(rows, "\n")
}

func (a *App) renderActions() string {
	states := a.board.AvailableActions()
	if a.board.Phase() == board.PhaseChatting {
		states = append([]board.ActionState{a.board.ChatState(a.forms.chat.Value())}, states...)
	}
	if len(states) == 0 {
		return mutedStyle.Render("No actions available")
	}
	lines := []string{titleStyle.Render("ACTIONS")}
	for _, state := range states {
		if state.Enabled {
			lines = append(lines, lipgloss.NewStyle().Foreground(okColor).Render("✓ "+state.Action.Label()))
			continue
		}
		lines = append(lines,
			lipgloss.NewStyle().Foreground(blockColor).Render("✗ "+state.Action.Label()),
			mutedStyle.Render("   "+state.Explain()),
		)
	}
	return strings.Join(lines, "\n")
}

func (a *App) renderChatPanel() string {
	if !a.board.Phase().IsBargaining() && len(a.session.Transcript()) == 0 {
		return ""
	}
	return titleStyle.Render("CHAT") + "\n" + a.transcript.View()
}

func renderTranscript(lines []session.ChatLine, width int) string {
	if len(lines) == 0 {
		return mutedStyle.Render("No messages yet.")
	}
	mine := lipgloss.NewStyle().Foreground(titleColor)
	theirs := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD166"))
	wrap := lipgloss.NewStyle().Width(max(10, width))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		who := theirs.Render(line.From)
		if line.Mine {
			who = mine.Render(line.From)
		}
		stamp := mutedStyle.Render(line.At.Format("15:04"))
		out = append(out, wrap.Render(fmt.Sprintf("%s %s: %s", stamp, who, line.Text)))
	}
	return strings.Join(out, "\n")
}

func (a *App) renderLogPanel() string {
	if a.logbook == nil {
		return ""
	}
	lines, total := a.logbook.Tail(6)
	if len(lines) == 0 {
		return ""
	}
	fileName := filepath.Base(a.logbook.Path())
	if fileName == "." || fileName == "" {
		fileName = "log"
	}
	head := lipgloss.NewStyle().
		Bold(true).
		Foreground(titleColor).
		Render(fmt.Sprintf("LOG · %s · %d entries", fileName, total))
	body := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#AAAAAA")).
		Render(strings.Join(lines, "\n"))
	return panelStyle.Render(fmt.Sprintf("%s\n%s", head, body))
}

// phaseKeys lists the bindings that do something in the current phase.
func (a *App) phaseKeys() phaseKeys {
	k := a.keys
	var bindings []key.Binding
	switch a.board.Phase() {
	case board.PhaseOnboardingCode:
		bindings = []key.Binding{k.Submit}
	case board.PhaseOnboardingReasons:
		bindings = []key.Binding{k.Next, k.Prev, k.Submit}
	case board.PhaseChatting:
		bindings = []key.Binding{k.Next, k.Send, k.Less, k.More, k.Clear, k.Propose, k.Walk, k.Scroll}
	case board.PhaseDealProposedByOtherAwaitingSelf:
		bindings = []key.Binding{k.Accept, k.Reject, k.Walk}
	case board.PhasePostSurvey:
		bindings = []key.Binding{k.Next, k.Less, k.More, k.Submit}
	}
	return phaseKeys(append(bindings, k.Quit))
}
