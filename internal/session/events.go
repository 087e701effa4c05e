package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kingrea/bargain/internal/board"
	"github.com/kingrea/bargain/internal/deal"
	"github.com/kingrea/bargain/internal/envelope"
	"github.com/kingrea/bargain/internal/eventbridge"
)

// ErrMalformedEvent wraps payloads that cannot be decoded at all.
var ErrMalformedEvent = errors.New("session: malformed event")

type assignPhasePayload struct {
	BoardStatus string            `json:"board_status"`
	SurveyLink  string            `json:"survey_link"`
	Value2Issue map[string]string `json:"value2issue"`
	// Items is the package count of every issue.
	Items *int `json:"items"`
	// Issues overrides the count per issue label.
	Issues   map[string]int  `json:"issues"`
	NumMsgs  *int            `json:"num_msgs"`
	IsMyTurn *bool           `json:"is_my_turn"`
	DealData json.RawMessage `json:"deal_data"`
	Text     string          `json:"text"`
}

type incomingDealPayload struct {
	DealData json.RawMessage `json:"deal_data"`
}

type chatPayload struct {
	Text    string `json:"text"`
	Sender  string `json:"sender"`
	NumMsgs *int   `json:"num_msgs"`
}

type turnPayload struct {
	IsMyTurn bool `json:"is_my_turn"`
	NumMsgs  *int `json:"num_msgs"`
}

type sessionEndPayload struct {
	Reason string `json:"reason"`
}

func decodePayload(evt eventbridge.Event, into any) error {
	if len(evt.Payload) == 0 || string(evt.Payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(evt.Payload, into); err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrMalformedEvent, evt.Type, evt.EventID, err)
	}
	return nil
}

// issuesFrom extracts labels and totals by rank. Both are nil when the
// assignment does not describe the board.
func (p assignPhasePayload) issuesFrom() (map[deal.Rank]string, map[deal.Rank]int, error) {
	if len(p.Value2Issue) == 0 {
		return nil, nil, nil
	}
	labels := map[deal.Rank]string{}
	for key, label := range p.Value2Issue {
		rank, err := deal.ParseRank(key)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: value2issue: %v", ErrMalformedEvent, err)
		}
		labels[rank] = strings.TrimSpace(label)
	}
	totals := map[deal.Rank]int{}
	for rank, label := range labels {
		if p.Items != nil {
			totals[rank] = *p.Items
		}
		if n, ok := p.Issues[label]; ok {
			totals[rank] = n
		}
	}
	return labels, totals, nil
}

// partnerDeal decodes deal_data, which is written from the proposer's
// perspective, and flips it to this participant's.
func partnerDeal(raw json.RawMessage, issues deal.Issues) (deal.FinalizedDeal, error) {
	payload, err := envelope.DecodeDealData(raw)
	if err != nil {
		return deal.FinalizedDeal{}, err
	}
	fd, err := payload.Finalized(issues)
	if err != nil {
		return deal.FinalizedDeal{}, err
	}
	return fd.Mirror(), nil
}

func hasDealData(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed != "" && trimmed != "null" && trimmed != "{}"
}

func parseBoardStatus(status string) (board.Phase, error) {
	phase, err := board.ParsePhase(status)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return phase, nil
}
