package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/bargain/internal/board"
	"github.com/kingrea/bargain/internal/deal"
	"github.com/kingrea/bargain/internal/rules"
)

// field is one focusable input on the board.
type field int

const (
	fieldNone field = iota
	fieldCode
	fieldReasonHigh
	fieldReasonMedium
	fieldReasonLow
	fieldChat
	fieldShareHigh
	fieldShareMedium
	fieldShareLow
	fieldLikeness
	fieldSatisfaction
	fieldHighest
	fieldLowest
	fieldPartnerHighest
	fieldPartnerLowest
	fieldFeedback
)

const selectCount = int(fieldPartnerLowest-fieldLikeness) + 1

// fieldsFor lists the focus order of a phase's form.
func fieldsFor(p board.Phase) []field {
	switch p {
	case board.PhaseOnboardingCode:
		return []field{fieldCode}
	case board.PhaseOnboardingReasons:
		return []field{fieldReasonHigh, fieldReasonMedium, fieldReasonLow}
	case board.PhaseChatting:
		return []field{fieldChat, fieldShareHigh, fieldShareMedium, fieldShareLow}
	case board.PhasePostSurvey:
		return []field{
			fieldLikeness, fieldSatisfaction,
			fieldHighest, fieldLowest,
			fieldPartnerHighest, fieldPartnerLowest,
			fieldFeedback,
		}
	default:
		return nil
	}
}

func (f field) isShare() bool { return f >= fieldShareHigh && f <= fieldShareLow }

func (f field) isSelect() bool { return f >= fieldLikeness && f <= fieldPartnerLowest }

func (f field) rank() deal.Rank {
	switch f {
	case fieldShareHigh, fieldReasonHigh:
		return deal.RankHigh
	case fieldShareMedium, fieldReasonMedium:
		return deal.RankMedium
	case fieldShareLow, fieldReasonLow:
		return deal.RankLow
	default:
		return ""
	}
}

func (f field) question() string {
	switch f {
	case fieldLikeness:
		return "How much do you like your partner?"
	case fieldSatisfaction:
		return "How satisfied are you with the outcome?"
	case fieldHighest:
		return "Which item did you value most?"
	case fieldLowest:
		return "Which item did you value least?"
	case fieldPartnerHighest:
		return "Which item do you think your partner valued most?"
	case fieldPartnerLowest:
		return "Which item do you think your partner valued least?"
	default:
		return ""
	}
}

// forms holds the widgets behind every phase's inputs. Values survive phase
// changes so a failed delivery brings the participant back to what they typed.
type forms struct {
	code     textinput.Model
	reasons  [3]textarea.Model
	chat     textinput.Model
	feedback textarea.Model
	choices  [selectCount]int
}

func newForms() forms {
	code := textinput.New()
	code.Prompt = "❯ "
	code.Placeholder = "survey completion code"
	code.CharLimit = 64

	chat := textinput.New()
	chat.Prompt = "❯ "
	chat.Placeholder = "Type a message and press enter"
	chat.CharLimit = 1000

	var reasons [3]textarea.Model
	for i := range reasons {
		reasons[i] = newTextArea("Explain in a few sentences")
	}
	f := forms{
		code:     code,
		reasons:  reasons,
		chat:     chat,
		feedback: newTextArea("Anything you want to tell us (optional)"),
	}
	for i := range f.choices {
		f.choices[i] = -1
	}
	return f
}

func newTextArea(placeholder string) textarea.Model {
	ta := textarea.New()
	ta.Placeholder = placeholder
	ta.ShowLineNumbers = false
	ta.CharLimit = 2000
	ta.SetHeight(3)
	ta.SetWidth(60)
	return ta
}

func (f *forms) reasonArea(fd field) *textarea.Model {
	switch fd {
	case fieldReasonHigh:
		return &f.reasons[0]
	case fieldReasonMedium:
		return &f.reasons[1]
	case fieldReasonLow:
		return &f.reasons[2]
	case fieldFeedback:
		return &f.feedback
	default:
		return nil
	}
}

func (f *forms) textInput(fd field) *textinput.Model {
	switch fd {
	case fieldCode:
		return &f.code
	case fieldChat:
		return &f.chat
	default:
		return nil
	}
}

// focus moves the cursor to target and blurs every other text widget.
func (f *forms) focus(target field) tea.Cmd {
	f.code.Blur()
	f.chat.Blur()
	for i := range f.reasons {
		f.reasons[i].Blur()
	}
	f.feedback.Blur()
	if in := f.textInput(target); in != nil {
		return in.Focus()
	}
	if area := f.reasonArea(target); area != nil {
		return area.Focus()
	}
	return nil
}

// update forwards a message to the text widget behind target.
func (f *forms) update(target field, msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	if in := f.textInput(target); in != nil {
		*in, cmd = in.Update(msg)
		return cmd
	}
	if area := f.reasonArea(target); area != nil {
		*area, cmd = area.Update(msg)
	}
	return cmd
}

func (f *forms) setWidth(width int) {
	if width < 20 {
		width = 20
	}
	for i := range f.reasons {
		f.reasons[i].SetWidth(width)
	}
	f.feedback.SetWidth(width)
	f.code.Width = width - 4
	f.chat.Width = width - 4
}

// options lists the choices of a select field.
func options(fd field, issues deal.Issues) []string {
	switch fd {
	case fieldLikeness:
		return rules.LikenessScale
	case fieldSatisfaction:
		return rules.SatisfactionScale
	case fieldHighest, fieldLowest, fieldPartnerHighest, fieldPartnerLowest:
		return issues.Labels()
	default:
		return nil
	}
}

// cycle steps a select field through its options. Stepping back from the
// first option returns to unset.
func (f *forms) cycle(fd field, delta int, issues deal.Issues) {
	opts := options(fd, issues)
	if len(opts) == 0 {
		return
	}
	idx := &f.choices[fd-fieldLikeness]
	next := *idx + delta
	switch {
	case next < -1:
		next = len(opts) - 1
	case next >= len(opts):
		next = -1
	}
	*idx = next
}

func (f *forms) choice(fd field, issues deal.Issues) string {
	opts := options(fd, issues)
	idx := f.choices[fd-fieldLikeness]
	if idx < 0 || idx >= len(opts) {
		return ""
	}
	return opts[idx]
}

// answers snapshots every text and categorical draft.
func (f *forms) answers(issues deal.Issues) board.Fields {
	return board.Fields{
		Onboarding: rules.OnboardingAnswers{
			SurveyCode:   strings.TrimSpace(f.code.Value()),
			HighReason:   f.reasons[0].Value(),
			MediumReason: f.reasons[1].Value(),
			LowReason:    f.reasons[2].Value(),
		},
		Survey: rules.PostSurveyAnswers{
			Likeness:           f.choice(fieldLikeness, issues),
			Satisfaction:       f.choice(fieldSatisfaction, issues),
			HighestItem:        f.choice(fieldHighest, issues),
			LowestItem:         f.choice(fieldLowest, issues),
			PartnerHighestItem: f.choice(fieldPartnerHighest, issues),
			PartnerLowestItem:  f.choice(fieldPartnerLowest, issues),
			Feedback:           strings.TrimSpace(f.feedback.Value()),
		},
	}
}
