package envelope

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/kingrea/bargain/internal/deal"
	"github.com/kingrea/bargain/internal/rules"
)

// Action names one participant submission.
type Action string

const (
	ActionSubmitOnboardingCode    Action = "submitOnboardingCode"
	ActionSubmitOnboardingReasons Action = "submitOnboardingReasons"
	ActionProposeDeal             Action = "proposeDeal"
	ActionWalkAway                Action = "walkAway"
	ActionAcceptDeal              Action = "acceptDeal"
	ActionRejectDeal              Action = "rejectDeal"
	ActionSubmitPostSurvey        Action = "submitPostSurvey"
	ActionChat                    Action = "chat"
)

// DisplayText is the free-text part the orchestrator keys its handling on.
func (a Action) DisplayText() string {
	switch a {
	case ActionSubmitOnboardingCode, ActionSubmitOnboardingReasons:
		return "Submitted"
	case ActionProposeDeal:
		return "Submit-Deal"
	case ActionWalkAway:
		return "Walk-Away"
	case ActionAcceptDeal:
		return "Accept-Deal"
	case ActionRejectDeal:
		return "Reject-Deal"
	case ActionSubmitPostSurvey:
		return "Submit-Post-Survey"
	default:
		return ""
	}
}

// Label is a short human name used in the board and journal.
func (a Action) Label() string {
	switch a {
	case ActionSubmitOnboardingCode:
		return "Submit Code"
	case ActionSubmitOnboardingReasons:
		return "Submit Answers"
	case ActionProposeDeal:
		return "Submit Deal"
	case ActionWalkAway:
		return "Walk Away"
	case ActionAcceptDeal:
		return "Accept Deal"
	case ActionRejectDeal:
		return "Reject Deal"
	case ActionSubmitPostSurvey:
		return "Submit Survey"
	case ActionChat:
		return "Send Message"
	default:
		return string(a)
	}
}

// Payload is the structured part of an envelope. Each action has exactly one
// payload type with a fixed field set.
type Payload interface {
	Action() Action
}

// SurveyCodePayload carries the onboarding survey completion code.
type SurveyCodePayload struct {
	QualtricsCode string `json:"qualtrics_code"`
}

func (SurveyCodePayload) Action() Action { return ActionSubmitOnboardingCode }

// ReasonsPayload carries the three preference justifications.
type ReasonsPayload struct {
	HighReason   string `json:"high_reason"`
	MediumReason string `json:"medium_reason"`
	LowReason    string `json:"low_reason"`
}

func (ReasonsPayload) Action() Action { return ActionSubmitOnboardingReasons }

// ReasonsFromAnswers copies the justifications out of the onboarding form.
func ReasonsFromAnswers(a rules.OnboardingAnswers) ReasonsPayload {
	return ReasonsPayload{HighReason: a.HighReason, MediumReason: a.MediumReason, LowReason: a.LowReason}
}

// Share is one package count on the wire. The orchestrator and older
// clients may send numeric strings, and "-" for an unset share.
type Share struct {
	Value int
	Set   bool
}

// ShareOf returns a set share.
func ShareOf(v int) Share { return Share{Value: v, Set: true} }

func (s Share) MarshalJSON() ([]byte, error) {
	if !s.Set {
		return []byte(`"-"`), nil
	}
	return []byte(strconv.Itoa(s.Value)), nil
}

func (s *Share) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = Share{}
		return nil
	}
	raw := string(data)
	if strings.HasPrefix(raw, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		raw = strings.TrimSpace(str)
		if raw == "" || raw == rules.Placeholder {
			*s = Share{}
			return nil
		}
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("envelope: share %s is not an integer", string(data))
	}
	*s = ShareOf(value)
	return nil
}

// DealPayload is a proposal keyed by issue display label, from the sender's
// perspective: YouGet is what the sender keeps.
type DealPayload struct {
	YouGet  map[string]Share `json:"issue2youget"`
	TheyGet map[string]Share `json:"issue2theyget"`
}

func (DealPayload) Action() Action { return ActionProposeDeal }

// DealFromFinalized renders fd (sender's perspective) with issues' labels.
func DealFromFinalized(fd deal.FinalizedDeal, issues deal.Issues) DealPayload {
	p := DealPayload{YouGet: map[string]Share{}, TheyGet: map[string]Share{}}
	for _, rank := range deal.Ranks {
		split, ok := fd.Split(rank)
		if !ok {
			continue
		}
		label := issues.Label(rank)
		p.YouGet[label] = ShareOf(split.Self)
		p.TheyGet[label] = ShareOf(split.Partner)
	}
	return p
}

// Finalized maps the payload back onto ranks, still in the sender's
// perspective. Issues with an unset share on either side are left out so that
// deal.ValidateIncoming reports them.
func (p DealPayload) Finalized(issues deal.Issues) (deal.FinalizedDeal, error) {
	splits := map[deal.Rank]deal.Split{}
	for label, you := range p.YouGet {
		rank, ok := issues.RankOf(label)
		if !ok {
			return deal.FinalizedDeal{}, fmt.Errorf("envelope: unknown issue label %q", label)
		}
		they, ok := p.TheyGet[label]
		if !ok || !you.Set || !they.Set {
			continue
		}
		splits[rank] = deal.Split{Self: you.Value, Partner: they.Value}
	}
	for label := range p.TheyGet {
		if _, ok := issues.RankOf(label); !ok {
			return deal.FinalizedDeal{}, fmt.Errorf("envelope: unknown issue label %q", label)
		}
	}
	return deal.NewFinalizedDeal(splits), nil
}

// Decision is the fixed value of a decision payload.
type Decision string

const (
	DecisionWalkAway Decision = "walk_away"
	DecisionAccept   Decision = "accept_deal"
	DecisionReject   Decision = "reject_deal"
)

// DecisionPayload carries walk away, accept and reject.
type DecisionPayload struct {
	Data Decision `json:"data"`
}

func (p DecisionPayload) Action() Action {
	switch p.Data {
	case DecisionWalkAway:
		return ActionWalkAway
	case DecisionAccept:
		return ActionAcceptDeal
	case DecisionReject:
		return ActionRejectDeal
	default:
		return ""
	}
}

// PostSurveyPayload carries the final questionnaire.
type PostSurveyPayload struct {
	Likeness           string `json:"likeness"`
	Satisfaction       string `json:"satisfaction"`
	HighestItem        string `json:"highest_item"`
	LowestItem         string `json:"lowest_item"`
	PartnerHighestItem string `json:"partner_highest_item"`
	PartnerLowestItem  string `json:"partner_lowest_item"`
	Feedback           string `json:"feedback"`
}

func (PostSurveyPayload) Action() Action { return ActionSubmitPostSurvey }

// PostSurveyFromAnswers copies the questionnaire answers.
func PostSurveyFromAnswers(a rules.PostSurveyAnswers) PostSurveyPayload {
	return PostSurveyPayload{
		Likeness:           a.Likeness,
		Satisfaction:       a.Satisfaction,
		HighestItem:        a.HighestItem,
		LowestItem:         a.LowestItem,
		PartnerHighestItem: a.PartnerHighestItem,
		PartnerLowestItem:  a.PartnerLowestItem,
		Feedback:           a.Feedback,
	}
}

// ChatPayload marks a plain chat line; it has no structured fields.
type ChatPayload struct{}

func (ChatPayload) Action() Action { return ActionChat }
