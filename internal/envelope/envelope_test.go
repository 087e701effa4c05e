package envelope

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/bargain/internal/deal"
	"github.com/kingrea/bargain/internal/rules"
)

func testIssues(t *testing.T) deal.Issues {
	t.Helper()
	issues, err := deal.NewIssues(map[deal.Rank]string{
		deal.RankHigh:   "Food",
		deal.RankMedium: "Water",
		deal.RankLow:    "Firewood",
	}, nil)
	require.NoError(t, err)
	return issues
}

func TestEnvelopeWireForm(t *testing.T) {
	env := New("mturk_agent_1", SurveyCodePayload{QualtricsCode: "ABCDT2XYZ1"})
	encoded, err := json.Marshal(env)
	require.NoError(t, err)

	var wire map[string]any
	require.NoError(t, json.Unmarshal(encoded, &wire))
	assert.Equal(t, "Submitted", wire["text"])
	assert.Equal(t, "mturk_agent_1", wire["id"])
	assert.Equal(t, false, wire["episode_done"])
	assert.NotEmpty(t, wire["message_id"])
	taskData, ok := wire["task_data"].(map[string]any)
	require.True(t, ok, "task_data must be an object")
	response, ok := taskData["response"].(map[string]any)
	require.True(t, ok, "task_data.response must be an object")
	assert.Equal(t, "ABCDT2XYZ1", response["qualtrics_code"])
}

func TestChatEnvelopeHasNoTaskData(t *testing.T) {
	encoded, err := json.Marshal(NewChat("mturk_agent_2", "Hi, I need food for my kids"))
	require.NoError(t, err)
	var wire map[string]any
	require.NoError(t, json.Unmarshal(encoded, &wire))
	_, present := wire["task_data"]
	assert.False(t, present)
	assert.Equal(t, "Hi, I need food for my kids", wire["text"])
}

func TestSummaryTruncatesOnCharacters(t *testing.T) {
	text := strings.Repeat("é", 36) + "🔥🔥🔥🔥🔥🔥"
	summary := NewChat("p1", text).Summary()
	assert.True(t, utf8.ValidString(summary), "summary split a character: %q", summary)
	assert.Contains(t, summary, strings.Repeat("é", 36)+"🔥...")

	short := NewChat("p1", "water for firewood?").Summary()
	assert.Contains(t, short, `"water for firewood?"`)
}

func TestDecisionPayloadShapes(t *testing.T) {
	cases := map[Action]string{
		ActionWalkAway:   `{"data":"walk_away"}`,
		ActionAcceptDeal: `{"data":"accept_deal"}`,
		ActionRejectDeal: `{"data":"reject_deal"}`,
	}
	payloads := map[Action]DecisionPayload{
		ActionWalkAway:   {Data: DecisionWalkAway},
		ActionAcceptDeal: {Data: DecisionAccept},
		ActionRejectDeal: {Data: DecisionReject},
	}
	for action, want := range cases {
		p := payloads[action]
		assert.Equal(t, action, p.Action())
		encoded, err := json.Marshal(p)
		require.NoError(t, err)
		assert.JSONEq(t, want, string(encoded))
		require.NoError(t, Check(New("p1", p)))
	}
}

func TestDealPayloadRoundTrip(t *testing.T) {
	issues := testIssues(t)
	fd := deal.NewFinalizedDeal(map[deal.Rank]deal.Split{
		deal.RankHigh:   {Self: 1, Partner: 2},
		deal.RankMedium: {Self: 2, Partner: 1},
		deal.RankLow:    {Self: 0, Partner: 3},
	})
	payload := DealFromFinalized(fd, issues)
	encoded, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"issue2youget":{"Food":1,"Water":2,"Firewood":0},"issue2theyget":{"Food":2,"Water":1,"Firewood":3}}`, string(encoded))

	decoded, err := DecodeDealData(encoded)
	require.NoError(t, err)
	back, err := decoded.Finalized(issues)
	require.NoError(t, err)
	assert.Equal(t, fd, back)
}

func TestDecodeDealDataAcceptsStringShares(t *testing.T) {
	issues := testIssues(t)
	raw := json.RawMessage(`{"issue2youget":{"Food":"3","Water":"-","Firewood":"1"},"issue2theyget":{"Food":"0","Water":"-","Firewood":"2"}}`)
	payload, err := DecodeDealData(raw)
	require.NoError(t, err)
	fd, err := payload.Finalized(issues)
	require.NoError(t, err)
	high, ok := fd.Split(deal.RankHigh)
	require.True(t, ok)
	assert.Equal(t, deal.Split{Self: 3, Partner: 0}, high)
	_, ok = fd.Split(deal.RankMedium)
	assert.False(t, ok, "unset shares must stay absent so validation reports them")

	err = deal.ValidateIncoming(fd.Mirror(), issues)
	var invalid *deal.InvalidDealError
	require.True(t, errors.As(err, &invalid))
	assert.True(t, invalid.Cites(deal.RankMedium))
}

func TestDealPayloadRejectsUnknownLabel(t *testing.T) {
	payload := DealPayload{
		YouGet:  map[string]Share{"Gold": ShareOf(1)},
		TheyGet: map[string]Share{"Gold": ShareOf(2)},
	}
	_, err := payload.Finalized(testIssues(t))
	require.Error(t, err)
}

func TestCheckEnforcesContract(t *testing.T) {
	require.NoError(t, Check(New("p1", SurveyCodePayload{QualtricsCode: "ABCDT2XYZ1"})))

	err := Check(New("p1", SurveyCodePayload{QualtricsCode: "ABCDX2XYZ1"}))
	require.ErrorIs(t, err, ErrContract)

	err = Check(New("", SurveyCodePayload{QualtricsCode: "ABCDT2XYZ1"}))
	require.ErrorIs(t, err, ErrContract)

	incomplete := DealPayload{
		YouGet:  map[string]Share{"Food": ShareOf(1), "Water": {}, "Firewood": ShareOf(0)},
		TheyGet: map[string]Share{"Food": ShareOf(2), "Water": {}, "Firewood": ShareOf(3)},
	}
	require.ErrorIs(t, Check(New("p1", incomplete)), ErrContract)

	survey := PostSurveyFromAnswers(rules.PostSurveyAnswers{
		Likeness:           "Slightly like",
		Satisfaction:       "Extremely satisfied",
		HighestItem:        "Food",
		LowestItem:         "Firewood",
		PartnerHighestItem: "Water",
		PartnerLowestItem:  "Food",
	})
	require.NoError(t, Check(New("p1", survey)))
	survey.Likeness = rules.Placeholder
	require.ErrorIs(t, Check(New("p1", survey)), ErrContract)

	mislabeled := New("p1", DecisionPayload{Data: DecisionAccept})
	mislabeled.DisplayText = "Walk-Away"
	require.ErrorIs(t, Check(mislabeled), ErrContract)

	require.ErrorIs(t, Check(NewChat("p1", "   ")), ErrContract)
}
