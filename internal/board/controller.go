// Package board implements the participant's negotiation state machine: the
// current phase, the drafts edited in it, which actions are legal and
// enabled, and how a submission becomes exactly one outbound envelope.
//
// A Controller has a single owner. The TUI update loop (or any other single
// caller) issues every call in sequence; there is no internal locking.
package board

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kingrea/bargain/internal/deal"
	"github.com/kingrea/bargain/internal/envelope"
	"github.com/kingrea/bargain/internal/rules"
)

// Reason is a human-relevant explanation for a disabled action.
type Reason string

const (
	ReasonInFlight          Reason = "submission in flight"
	ReasonNotYourTurn       Reason = "not your turn"
	ReasonMessageFloor      Reason = "minimum messages not reached"
	ReasonBoardNotReady     Reason = "issues not assigned yet"
	ReasonDraftIncomplete   Reason = "draft incomplete"
	ReasonSurveyCodeInvalid Reason = "survey code invalid"
	ReasonReasonsTooShort   Reason = "reasons below minimum words"
	ReasonSurveyIncomplete  Reason = "survey incomplete"
	ReasonNoDeal            Reason = "no valid deal to review"
	ReasonEmptyMessage      Reason = "message is empty"
	ReasonWrongPhase        Reason = "not available in this phase"
	ReasonContract          Reason = "payload contract violated"
)

// ActionState is one legal action and whether it can be submitted now.
type ActionState struct {
	Action  envelope.Action
	Enabled bool
	Reasons []Reason
}

// Explain joins the blocking reasons in their stable order.
func (s ActionState) Explain() string {
	parts := make([]string, len(s.Reasons))
	for i, r := range s.Reasons {
		parts[i] = string(r)
	}
	return strings.Join(parts, " | ")
}

// Fields are the free-text and categorical drafts the participant edits.
// The deal draft is edited separately through SetShare.
type Fields struct {
	Onboarding rules.OnboardingAnswers
	Survey     rules.PostSurveyAnswers
}

// Assignment is the context the orchestrator pushes with a phase. Nil or
// empty members leave the previous value in place.
type Assignment struct {
	SurveyLink   string
	IssueLabels  map[deal.Rank]string
	Totals       map[deal.Rank]int
	MessageCount *int
	IsMyTurn     *bool
	// Deal is the partner's proposal from this participant's perspective.
	Deal   *deal.FinalizedDeal
	Notice string
}

// Pending is a submission handed to the transport and not yet settled.
type Pending struct {
	Envelope envelope.Envelope

	seq       uint64
	epoch     uint64
	fromPhase Phase
	toPhase   Phase
	draft     *deal.Draft
	incoming  *deal.FinalizedDeal
	settled   bool
}

// Action reports which submission is pending.
func (p *Pending) Action() envelope.Action { return p.Envelope.Action() }

// Option customizes a Controller.
type Option func(*Controller)

// WithMinWords overrides the minimum words per onboarding reason.
func WithMinWords(k int) Option {
	return func(c *Controller) {
		if k > 0 {
			c.minWords = k
		}
	}
}

// WithMessageFloor overrides the chat messages required before proposing a
// deal or walking away.
func WithMessageFloor(floor int) Option {
	return func(c *Controller) {
		if floor > 0 {
			c.gate.Floor = floor
		}
	}
}

// Controller is the per-participant phase state machine.
type Controller struct {
	senderID string
	minWords int

	phase      Phase
	epoch      uint64
	seq        uint64
	surveyLink string
	notice     string
	issues     deal.Issues
	hasIssues  bool
	gate       TurnGate

	fields   Fields
	draft    *deal.Draft
	incoming *deal.FinalizedDeal
	inFlight map[envelope.Action]*Pending
}

// New returns a controller in PhaseOnboardingCode.
func New(senderID string, opts ...Option) *Controller {
	c := &Controller{
		senderID: strings.TrimSpace(senderID),
		minWords: rules.DefaultMinWords,
		phase:    PhaseOnboardingCode,
		gate:     TurnGate{Floor: DefaultMessageFloor},
		inFlight: map[envelope.Action]*Pending{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// SenderID is the identity stamped on every envelope.
func (c *Controller) SenderID() string { return c.senderID }

// Phase returns the current phase.
func (c *Controller) Phase() Phase { return c.phase }

// SurveyLink returns the onboarding survey URL, if assigned.
func (c *Controller) SurveyLink() string { return c.surveyLink }

// Notice is the last orchestrator message attached to an assignment.
func (c *Controller) Notice() string { return c.notice }

// Issues returns the board, once the orchestrator has assigned labels.
func (c *Controller) Issues() (deal.Issues, bool) { return c.issues, c.hasIssues }

// Gate returns the current turn gate inputs.
func (c *Controller) Gate() TurnGate { return c.gate }

// MinWords is the per-reason word minimum in effect.
func (c *Controller) MinWords() int { return c.minWords }

// Fields returns the current text drafts.
func (c *Controller) Fields() Fields { return c.fields }

// Edit replaces the text drafts.
func (c *Controller) Edit(fields Fields) { c.fields = fields }

// Draft returns a copy of the deal draft, or nil outside chat.
func (c *Controller) Draft() *deal.Draft { return c.draft.Clone() }

// SetShare assigns the participant's share of rank in the deal draft.
func (c *Controller) SetShare(rank deal.Rank, value int) error {
	if c.draft == nil {
		return fmt.Errorf("%w: no deal draft in %s", ErrActionNotAvailable, c.phase)
	}
	return c.draft.SetShare(rank, value)
}

// ClearShare unsets rank in the deal draft.
func (c *Controller) ClearShare(rank deal.Rank) {
	if c.draft != nil {
		c.draft.Clear(rank)
	}
}

// IncomingDeal returns the partner proposal under review.
func (c *Controller) IncomingDeal() (deal.FinalizedDeal, bool) {
	if c.incoming == nil {
		return deal.FinalizedDeal{}, false
	}
	return *c.incoming, true
}

// InFlight reports whether action is awaiting its delivery result.
func (c *Controller) InFlight(action envelope.Action) bool {
	_, ok := c.inFlight[action]
	return ok
}

// advancing reports whether a phase-changing submission is awaiting its
// delivery result. Chat does not count.
func (c *Controller) advancing() bool {
	for action := range c.inFlight {
		if action != envelope.ActionChat {
			return true
		}
	}
	return false
}

// SetTurn records the transport's turn signal.
func (c *Controller) SetTurn(isMyTurn bool) { c.gate.IsMyTurn = isMyTurn }

// SetMessageCount records the orchestrator's message count.
func (c *Controller) SetMessageCount(n int) {
	if n >= 0 {
		c.gate.MessageCount = n
	}
}

// ObserveChat counts a chat line received from the partner.
func (c *Controller) ObserveChat() { c.gate.MessageCount++ }

// actionsFor lists the legal actions of each phase in display order.
func actionsFor(p Phase) []envelope.Action {
	switch p {
	case PhaseOnboardingCode:
		return []envelope.Action{envelope.ActionSubmitOnboardingCode}
	case PhaseOnboardingReasons:
		return []envelope.Action{envelope.ActionSubmitOnboardingReasons}
	case PhaseChatting:
		return []envelope.Action{envelope.ActionProposeDeal, envelope.ActionWalkAway}
	case PhaseDealProposedByOtherAwaitingSelf:
		return []envelope.Action{envelope.ActionAcceptDeal, envelope.ActionRejectDeal, envelope.ActionWalkAway}
	case PhasePostSurvey:
		return []envelope.Action{envelope.ActionSubmitPostSurvey}
	default:
		return nil
	}
}

func legalIn(p Phase, action envelope.Action) bool {
	for _, a := range actionsFor(p) {
		if a == action {
			return true
		}
	}
	return false
}

// AvailableActions returns every action legal in the current phase with its
// eligibility and blocking reasons.
func (c *Controller) AvailableActions() []ActionState {
	actions := actionsFor(c.phase)
	states := make([]ActionState, 0, len(actions))
	for _, action := range actions {
		state, _ := c.evaluate(action)
		states = append(states, state)
	}
	return states
}

// ChatState reports whether a chat line can be sent now.
func (c *Controller) ChatState(text string) ActionState {
	state := ActionState{Action: envelope.ActionChat}
	if c.phase != PhaseChatting {
		state.Reasons = append(state.Reasons, ReasonWrongPhase)
	}
	if c.InFlight(envelope.ActionChat) {
		state.Reasons = append(state.Reasons, ReasonInFlight)
	}
	state.Reasons = append(state.Reasons, c.gate.Reasons(false)...)
	if strings.TrimSpace(text) == "" {
		state.Reasons = append(state.Reasons, ReasonEmptyMessage)
	}
	state.Enabled = len(state.Reasons) == 0
	return state
}

// evaluate computes the state of a legal action and, for the first
// completeness failure, the rule's detail.
func (c *Controller) evaluate(action envelope.Action) (ActionState, string) {
	state := ActionState{Action: action}
	var detail string
	if c.advancing() {
		state.Reasons = append(state.Reasons, ReasonInFlight)
	}
	completeness := func(res rules.Result, reason Reason) {
		if !res.OK {
			state.Reasons = append(state.Reasons, reason)
			if detail == "" {
				detail = res.Detail
			}
		}
	}
	switch action {
	case envelope.ActionSubmitOnboardingCode:
		completeness(rules.IsValidSurveyCode(c.fields.Onboarding.SurveyCode), ReasonSurveyCodeInvalid)
	case envelope.ActionSubmitOnboardingReasons:
		completeness(rules.OnboardingReasonsComplete(c.fields.Onboarding, c.minWords), ReasonReasonsTooShort)
	case envelope.ActionProposeDeal:
		state.Reasons = append(state.Reasons, c.gate.Reasons(true)...)
		switch {
		case !c.hasIssues:
			state.Reasons = append(state.Reasons, ReasonBoardNotReady)
		case c.draft == nil:
			state.Reasons = append(state.Reasons, ReasonDraftIncomplete)
		default:
			completeness(rules.DealDraftComplete(c.draft), ReasonDraftIncomplete)
		}
	case envelope.ActionWalkAway:
		state.Reasons = append(state.Reasons, c.gate.Reasons(c.phase == PhaseChatting)...)
	case envelope.ActionAcceptDeal:
		state.Reasons = append(state.Reasons, c.gate.Reasons(false)...)
		if c.incoming == nil {
			state.Reasons = append(state.Reasons, ReasonNoDeal)
		}
	case envelope.ActionRejectDeal:
		state.Reasons = append(state.Reasons, c.gate.Reasons(false)...)
	case envelope.ActionSubmitPostSurvey:
		completeness(rules.PostSurveyComplete(c.fields.Survey), ReasonSurveyIncomplete)
	}
	state.Enabled = len(state.Reasons) == 0
	return state, detail
}

// Submit re-validates action against the current drafts (never trusting
// caller-side gating), builds one envelope, marks the action in flight and
// optimistically advances the phase. Nothing is sent; the caller hands
// Pending.Envelope to the transport and reports the outcome with Settle.
// Only one phase-changing submission may be unsettled at a time.
func (c *Controller) Submit(action envelope.Action, fields Fields) (*Pending, error) {
	if c.advancing() {
		return nil, &ValidationError{Action: action, Rule: ReasonInFlight, Reasons: []Reason{ReasonInFlight}, Err: ErrAwaitingEcho}
	}
	if !legalIn(c.phase, action) {
		return nil, &ValidationError{Action: action, Rule: ReasonWrongPhase, Detail: c.phase.String(), Reasons: []Reason{ReasonWrongPhase}, Err: ErrActionNotAvailable}
	}
	c.applyFields(action, fields)
	state, detail := c.evaluate(action)
	if !state.Enabled {
		return nil, &ValidationError{Action: action, Rule: state.Reasons[0], Detail: detail, Reasons: state.Reasons}
	}
	payload, err := c.payloadFor(action)
	if err != nil {
		return nil, &ValidationError{Action: action, Rule: ReasonDraftIncomplete, Detail: err.Error(), Reasons: []Reason{ReasonDraftIncomplete}, Err: err}
	}
	env := envelope.New(c.senderID, payload)
	if err := envelope.Check(env); err != nil {
		return nil, &ValidationError{Action: action, Rule: ReasonContract, Detail: err.Error(), Reasons: []Reason{ReasonContract}, Err: err}
	}
	return c.begin(env, nextPhase(action)), nil
}

// ComposeChat builds a chat envelope. Chat never changes the phase.
func (c *Controller) ComposeChat(text string) (*Pending, error) {
	state := c.ChatState(text)
	if !state.Enabled {
		var err error
		if c.InFlight(envelope.ActionChat) {
			err = ErrAwaitingEcho
		}
		return nil, &ValidationError{Action: envelope.ActionChat, Rule: state.Reasons[0], Reasons: state.Reasons, Err: err}
	}
	env := envelope.NewChat(c.senderID, strings.TrimSpace(text))
	if err := envelope.Check(env); err != nil {
		return nil, &ValidationError{Action: envelope.ActionChat, Rule: ReasonContract, Detail: err.Error(), Reasons: []Reason{ReasonContract}, Err: err}
	}
	return c.begin(env, c.phase), nil
}

func (c *Controller) begin(env envelope.Envelope, to Phase) *Pending {
	c.seq++
	p := &Pending{
		Envelope:  env,
		seq:       c.seq,
		epoch:     c.epoch,
		fromPhase: c.phase,
		toPhase:   to,
		draft:     c.draft,
		incoming:  c.incoming,
	}
	c.inFlight[env.Action()] = p
	if to != c.phase {
		c.enter(to)
	}
	return p
}

func (c *Controller) applyFields(action envelope.Action, fields Fields) {
	switch action {
	case envelope.ActionSubmitOnboardingCode:
		c.fields.Onboarding.SurveyCode = fields.Onboarding.SurveyCode
	case envelope.ActionSubmitOnboardingReasons:
		c.fields.Onboarding.HighReason = fields.Onboarding.HighReason
		c.fields.Onboarding.MediumReason = fields.Onboarding.MediumReason
		c.fields.Onboarding.LowReason = fields.Onboarding.LowReason
	case envelope.ActionSubmitPostSurvey:
		c.fields.Survey = fields.Survey
	}
}

func (c *Controller) payloadFor(action envelope.Action) (envelope.Payload, error) {
	switch action {
	case envelope.ActionSubmitOnboardingCode:
		return envelope.SurveyCodePayload{QualtricsCode: c.fields.Onboarding.SurveyCode}, nil
	case envelope.ActionSubmitOnboardingReasons:
		return envelope.ReasonsFromAnswers(c.fields.Onboarding), nil
	case envelope.ActionProposeDeal:
		fd, err := c.draft.ToFinalizedDeal()
		if err != nil {
			return nil, err
		}
		return envelope.DealFromFinalized(fd, c.issues), nil
	case envelope.ActionWalkAway:
		return envelope.DecisionPayload{Data: envelope.DecisionWalkAway}, nil
	case envelope.ActionAcceptDeal:
		return envelope.DecisionPayload{Data: envelope.DecisionAccept}, nil
	case envelope.ActionRejectDeal:
		return envelope.DecisionPayload{Data: envelope.DecisionReject}, nil
	case envelope.ActionSubmitPostSurvey:
		return envelope.PostSurveyFromAnswers(c.fields.Survey), nil
	}
	return nil, fmt.Errorf("board: no payload for %s", action)
}

// nextPhase is the locally optimistic phase after a successful submit.
func nextPhase(action envelope.Action) Phase {
	switch action {
	case envelope.ActionSubmitOnboardingCode:
		return PhaseOnboardingReasons
	case envelope.ActionSubmitOnboardingReasons:
		return PhaseWaiting
	case envelope.ActionProposeDeal:
		return PhaseDealProposedBySelfAwaitingOther
	case envelope.ActionRejectDeal:
		return PhaseChatting
	default:
		return PhaseEnd
	}
}

// enter switches phase and maintains the draft lifecycle: a fresh deal draft
// on every entry into chat, no draft and no reviewed deal elsewhere.
func (c *Controller) enter(next Phase) {
	prev := c.phase
	c.phase = next
	if next != PhaseDealProposedByOtherAwaitingSelf {
		c.incoming = nil
	}
	if next != PhaseChatting {
		c.draft = nil
		return
	}
	if prev != PhaseChatting || c.draft == nil {
		c.draft = nil
		if c.hasIssues {
			c.draft = deal.NewDraft(c.issues)
		}
	}
}

// Settle is the second half of a submission. It clears the in-flight flag.
// On failure it returns a *DeliveryError and, unless the orchestrator has
// assigned a phase in the meantime, restores the phase and drafts the
// submission had consumed so the user can retry.
func (c *Controller) Settle(p *Pending, sendErr error) error {
	if p == nil || p.settled {
		return ErrStalePending
	}
	p.settled = true
	action := p.Action()
	if current, ok := c.inFlight[action]; ok && current.seq == p.seq {
		delete(c.inFlight, action)
	}
	if sendErr == nil {
		if action == envelope.ActionChat {
			c.gate.MessageCount++
		}
		return nil
	}
	if c.epoch == p.epoch && c.phase == p.toPhase {
		c.phase = p.fromPhase
		c.draft = p.draft
		c.incoming = p.incoming
	}
	return &DeliveryError{Action: action, Err: sendErr}
}

// AssignPhase applies the orchestrator's authoritative phase and context in
// one step. It always wins over a locally optimistic phase, including while
// a submission is in flight. A partner deal in the context that fails
// validation is dropped and reported, but the phase still applies.
func (c *Controller) AssignPhase(phase Phase, a Assignment) error {
	if !phase.Valid() {
		return fmt.Errorf("board: invalid phase %d", int(phase))
	}
	var errs []error
	issues, hasIssues := c.issues, c.hasIssues
	if len(a.IssueLabels) > 0 {
		built, err := deal.NewIssues(a.IssueLabels, a.Totals)
		if err != nil {
			errs = append(errs, err)
		} else {
			issues, hasIssues = built, true
		}
	}
	var incoming *deal.FinalizedDeal
	if a.Deal != nil && phase == PhaseDealProposedByOtherAwaitingSelf {
		if err := deal.ValidateIncoming(*a.Deal, issues); err != nil {
			errs = append(errs, err)
		} else {
			fd := *a.Deal
			incoming = &fd
		}
	}

	c.epoch++
	if hasIssues && (!c.hasIssues || issues != c.issues) {
		c.issues, c.hasIssues = issues, true
		if c.draft != nil {
			c.draft = nil
		}
	}
	if link := strings.TrimSpace(a.SurveyLink); link != "" {
		c.surveyLink = link
	}
	c.notice = strings.TrimSpace(a.Notice)
	if a.MessageCount != nil {
		c.SetMessageCount(*a.MessageCount)
	}
	if a.IsMyTurn != nil {
		c.gate.IsMyTurn = *a.IsMyTurn
	}
	c.enter(phase)
	if incoming != nil {
		c.incoming = incoming
	}
	return errors.Join(errs...)
}

// DeliverIncomingDeal validates a partner proposal (already in this
// participant's perspective) and, if it is sound, moves chat into review.
// An invalid deal leaves the phase untouched.
func (c *Controller) DeliverIncomingDeal(fd deal.FinalizedDeal) error {
	if err := deal.ValidateIncoming(fd, c.issues); err != nil {
		return err
	}
	if c.phase != PhaseChatting {
		return fmt.Errorf("%w (phase %s)", ErrUnexpectedDeal, c.phase)
	}
	c.epoch++
	c.enter(PhaseDealProposedByOtherAwaitingSelf)
	c.incoming = &fd
	return nil
}
