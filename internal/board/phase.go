package board

import (
	"fmt"
	"strings"
)

// Phase is the participant's board status. Exactly one is active at a time.
type Phase int

const (
	PhaseOnboardingCode Phase = iota
	PhaseOnboardingReasons
	PhaseWaiting
	PhaseChatting
	PhaseDealProposedBySelfAwaitingOther
	PhaseDealProposedByOtherAwaitingSelf
	PhaseWaitingForPartnerPostSurvey
	PhasePostSurvey
	PhaseEnd
)

var phaseWireNames = map[Phase]string{
	PhaseOnboardingCode:                  "ONBOARD_FILL_SURVEY_CODE",
	PhaseOnboardingReasons:               "ONBOARD_FILL_PREF_REASONS",
	PhaseWaiting:                         "WAITING",
	PhaseChatting:                        "CHAT",
	PhaseDealProposedBySelfAwaitingOther: "DEAL_ENTERED_BY_MYSELF_AND_NOW_WAITING_FOR_OTHER",
	PhaseDealProposedByOtherAwaitingSelf: "DEAL_ENTERED_BY_OTHER_AND_NOW_ENTERING_MYSELF",
	PhaseWaitingForPartnerPostSurvey:     "WAITING_FOR_POST_SURVEY_BY_OTHER",
	PhasePostSurvey:                      "ENTERING_POST_SURVEY",
	PhaseEnd:                             "END",
}

// String returns the Go-style name of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseOnboardingCode:
		return "OnboardingCode"
	case PhaseOnboardingReasons:
		return "OnboardingReasons"
	case PhaseWaiting:
		return "Waiting"
	case PhaseChatting:
		return "Chatting"
	case PhaseDealProposedBySelfAwaitingOther:
		return "DealProposedBySelfAwaitingOther"
	case PhaseDealProposedByOtherAwaitingSelf:
		return "DealProposedByOtherAwaitingSelf"
	case PhaseWaitingForPartnerPostSurvey:
		return "WaitingForPartnerPostSurvey"
	case PhasePostSurvey:
		return "PostSurvey"
	case PhaseEnd:
		return "End"
	default:
		return "Unknown"
	}
}

// WireName is the board status string the orchestrator uses.
func (p Phase) WireName() string {
	if name, ok := phaseWireNames[p]; ok {
		return name
	}
	return ""
}

// FriendlyName is a short title for the board header.
func (p Phase) FriendlyName() string {
	switch p {
	case PhaseOnboardingCode:
		return "Enter Survey Code"
	case PhaseOnboardingReasons:
		return "Explain Your Preferences"
	case PhaseWaiting:
		return "Waiting For A Partner"
	case PhaseChatting:
		return "Negotiation"
	case PhaseDealProposedBySelfAwaitingOther:
		return "Deal Submitted"
	case PhaseDealProposedByOtherAwaitingSelf:
		return "Review Partner's Deal"
	case PhaseWaitingForPartnerPostSurvey:
		return "Waiting For Partner"
	case PhasePostSurvey:
		return "Final Questions"
	case PhaseEnd:
		return "Finished"
	default:
		return p.String()
	}
}

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool { return p >= PhaseOnboardingCode && p <= PhaseEnd }

// IsTerminal reports whether no further action is possible.
func (p Phase) IsTerminal() bool { return p == PhaseEnd }

// IsBargaining covers chatting and both deal review phases.
func (p Phase) IsBargaining() bool {
	return p == PhaseChatting || p == PhaseDealProposedBySelfAwaitingOther || p == PhaseDealProposedByOtherAwaitingSelf
}

// ParsePhase accepts wire names ("CHAT") and Go names ("Chatting").
func ParsePhase(value string) (Phase, error) {
	target := strings.TrimSpace(value)
	for p := PhaseOnboardingCode; p <= PhaseEnd; p++ {
		if strings.EqualFold(target, p.WireName()) || strings.EqualFold(target, p.String()) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("board: unknown phase %q", value)
}

// localTransitions lists the edges a participant can take on its own. The
// orchestrator may assign any phase regardless of this table.
var localTransitions = map[Phase][]Phase{
	PhaseOnboardingCode:                  {PhaseOnboardingReasons},
	PhaseOnboardingReasons:               {PhaseWaiting},
	PhaseChatting:                        {PhaseDealProposedBySelfAwaitingOther, PhaseDealProposedByOtherAwaitingSelf, PhaseEnd},
	PhaseDealProposedByOtherAwaitingSelf: {PhaseEnd, PhaseChatting},
	PhasePostSurvey:                      {PhaseEnd},
}

// CanTransitionTo reports whether p → target is a locally legal edge.
func (p Phase) CanTransitionTo(target Phase) bool {
	for _, next := range localTransitions[p] {
		if next == target {
			return true
		}
	}
	return false
}
